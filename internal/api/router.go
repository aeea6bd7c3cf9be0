package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/sykell/bookmarks/internal/config"
	"github.com/sykell/bookmarks/internal/importer"
	"github.com/sykell/bookmarks/internal/logger"
	"github.com/sykell/bookmarks/internal/middleware"
)

// RouterDeps holds what the HTTP routes need
type RouterDeps struct {
	DB       *gorm.DB
	Importer *importer.Service
	Config   *config.Config
	Log      logger.Logger
}

// NewRouter builds the gin engine with all routes registered
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	r.Use(middleware.RequestLogger(deps.Log))
	r.Use(gin.Recovery())
	r.Use(middleware.CORS())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC(),
			"service":   "bookmarks",
		})
	})

	r.POST("/auth/login", LoginHandler(deps.DB, deps.Config.Auth, deps.Log))

	authorized := r.Group("/")
	authorized.Use(middleware.JWTRequired(deps.Config.Auth.JWTSecret, deps.Log))
	{
		authorized.GET("/links", ListLinksHandler(deps.DB, deps.Log))
		authorized.GET("/links/:id", GetLinkHandler(deps.DB, deps.Log))

		authorized.POST("/imports/parse", ParseImportHandler(deps.Config.Import, deps.Log))
		authorized.POST("/imports/preview", PreviewImportHandler(deps.Importer, deps.Log))
		authorized.POST("/imports/commit", CommitImportHandler(deps.Importer, deps.Log))
		authorized.GET("/imports", ListImportsHandler(deps.DB, deps.Log))
		authorized.GET("/imports/:id", GetImportHandler(deps.DB, deps.Log))
	}

	return r
}
