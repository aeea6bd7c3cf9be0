package api

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/sykell/bookmarks/internal/config"
	"github.com/sykell/bookmarks/internal/importer"
	"github.com/sykell/bookmarks/internal/logger"
	"github.com/sykell/bookmarks/internal/service"
	"github.com/sykell/bookmarks/internal/sheet"
)

// ParseResponse is an uploaded sheet with a suggested column mapping
type ParseResponse struct {
	FileName string                `json:"file_name"`
	Source   string                `json:"source"`
	Headers  []string              `json:"headers"`
	Rows     []importer.RawRow     `json:"rows"`
	Mapping  importer.FieldMapping `json:"mapping"`
}

// ParseImportHandler reads an uploaded CSV or XLSX file into raw rows
func ParseImportHandler(cfg config.ImportConfig, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := currentUser(c); !ok {
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, cfg.MaxUploadBytes)
		header, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "A file upload is required",
				"details": err.Error(),
			})
			return
		}
		if header.Size > cfg.MaxUploadBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File is too large"})
			return
		}

		file, err := header.Open()
		if err != nil {
			log.Error("Failed to open uploaded file", logger.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		defer file.Close()

		fileName := filepath.Base(header.Filename)
		parsed, err := sheet.Parse(file, fileName)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Could not read file",
				"details": err.Error(),
			})
			return
		}
		if len(parsed.Rows) > cfg.MaxRows {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("File has %d rows, the limit is %d", len(parsed.Rows), cfg.MaxRows),
			})
			return
		}

		format, _ := sheet.DetectFormat(fileName)
		c.JSON(http.StatusOK, ParseResponse{
			FileName: fileName,
			Source:   sheet.SourceLabel(format, fileName),
			Headers:  parsed.Headers,
			Rows:     parsed.Rows,
			Mapping:  importer.SuggestMapping(parsed.Headers),
		})
	}
}

// PreviewImportHandler classifies rows without writing anything
func PreviewImportHandler(svc *importer.Service, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		var req importer.PreviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request format",
				"details": err.Error(),
			})
			return
		}

		result, err := svc.Preview(c.Request.Context(), user.UserID, req)
		if err != nil {
			writeImportError(c, log, "preview", err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

// CommitImportHandler stores the rows accepted after preview
func CommitImportHandler(svc *importer.Service, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		var req importer.CommitRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request format",
				"details": err.Error(),
			})
			return
		}

		result, err := svc.Commit(c.Request.Context(), user.UserID, req)
		if err != nil {
			writeImportError(c, log, "commit", err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

// ListImportsHandler lists the user's imports, newest first
func ListImportsHandler(dbConn *gorm.DB, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		page, size := pageParams(c, service.DefaultPageSize, service.MaxPageSize)
		imports, total, err := service.ListImports(c.Request.Context(), dbConn, user.UserID, page, size)
		if err != nil {
			log.Error("Failed to list imports", logger.Uint("user_id", user.UserID), logger.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		c.JSON(http.StatusOK, newPaginatedResponse(imports, page, size, total))
	}
}

// GetImportHandler returns one import with its error rows
func GetImportHandler(dbConn *gorm.DB, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		imp, err := service.GetImportByIDAndUser(c.Request.Context(), dbConn, c.Param("id"), user.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Import not found"})
				return
			}
			log.Error("Failed to fetch import", logger.String("import_id", c.Param("id")), logger.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		c.JSON(http.StatusOK, imp)
	}
}

func writeImportError(c *gin.Context, log logger.Logger, op string, err error) {
	if errors.Is(err, importer.ErrInvalidRequest) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid import request",
			"details": err.Error(),
		})
		return
	}

	_ = c.Error(err)
	log.Error("Import "+op+" failed", logger.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}
