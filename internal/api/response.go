package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sykell/bookmarks/internal/middleware"
)

// PaginatedResponse represents a paginated response
type PaginatedResponse struct {
	Data  interface{} `json:"data"`
	Page  int         `json:"page"`
	Size  int         `json:"size"`
	Total int64       `json:"total"`
	Pages int         `json:"pages"`
}

func newPaginatedResponse(data interface{}, page, size int, total int64) PaginatedResponse {
	return PaginatedResponse{
		Data:  data,
		Page:  page,
		Size:  size,
		Total: total,
		Pages: int((total + int64(size) - 1) / int64(size)),
	}
}

// pageParams reads page and size query parameters with the listing defaults.
func pageParams(c *gin.Context, defaultSize, maxSize int) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	size, err := strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(defaultSize)))
	if err != nil || size < 1 || size > maxSize {
		size = defaultSize
	}
	return page, size
}

// currentUser returns the authenticated user or writes a 401.
func currentUser(c *gin.Context) (*middleware.UserContext, bool) {
	user, ok := middleware.GetUserFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return nil, false
	}
	return user, true
}
