package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/sykell/bookmarks/internal/logger"
	"github.com/sykell/bookmarks/internal/service"
)

// ListLinksHandler handles link listing with pagination, search and tag filter
func ListLinksHandler(dbConn *gorm.DB, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		page, size := pageParams(c, service.DefaultPageSize, service.MaxPageSize)
		filter := service.LinkFilter{
			Page:   page,
			Size:   size,
			Search: c.Query("q"),
			Tag:    c.Query("tag"),
			Sort:   c.DefaultQuery("sort", "created_at desc"),
		}

		links, total, err := service.ListLinks(c.Request.Context(), dbConn, user.UserID, filter)
		if err != nil {
			log.Error("Failed to list links", logger.Uint("user_id", user.UserID), logger.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		c.JSON(http.StatusOK, newPaginatedResponse(links, page, size, total))
	}
}

// GetLinkHandler handles retrieving a single link
func GetLinkHandler(dbConn *gorm.DB, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid link ID"})
			return
		}

		link, err := service.GetLinkByIDAndUser(c.Request.Context(), dbConn, uint(id), user.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Link not found"})
				return
			}
			log.Error("Failed to fetch link", logger.Uint("link_id", uint(id)), logger.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		c.JSON(http.StatusOK, link)
	}
}
