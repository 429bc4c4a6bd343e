package routes

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/artefactory/smartparks/internal/config"
	"github.com/artefactory/smartparks/internal/handlers"
	"github.com/artefactory/smartparks/internal/logger"
	"github.com/artefactory/smartparks/internal/middleware"
	"github.com/artefactory/smartparks/internal/repository"
	"github.com/artefactory/smartparks/internal/services/websocket"
)

const staticDir = "static"

// Services are the handlers' collaborators.
type Services struct {
	Processor  handlers.MediaProcessor
	Classifier handlers.MediaClassifier
	Views      handlers.ViewRenderer
	Cameras    handlers.CameraSaver
	Objects    repository.ObjectStore
	Hub        *websocket.HubService
}

// dynamicHTMLHandler serves /path as /static/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(c *gin.Context) {
	path := c.Request.URL.Path
	if strings.HasPrefix(path, "/api/") {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if path == "/" {
		path = "/index"
	}

	filePath := filepath.Join(staticDir, filepath.Clean("/"+path)+".html")
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		c.Status(http.StatusNotFound)
		return
	}
	c.File(filePath)
}

// SetupRoutes registers the ingestion trigger, the dashboard API, log and
// auth endpoints and static pages behind the authentication middleware.
func SetupRoutes(svc Services, cfg *config.Config, logger *logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	router.Use(middleware.AuthMiddleware())

	router.Static("/static", staticDir)

	ingest := router.Group("/api", middleware.IngestTokenMiddleware(cfg.IngestToken))
	ingest.POST("/ingest", handlers.IngestHandler(svc.Processor, logger))

	api := router.Group("/api")
	{
		api.GET("/views", handlers.ListViewsHandler(svc.Views))
		api.GET("/views/:view", handlers.ViewHandler(svc.Views, cfg.Location(), logger))
		api.GET("/media/*path", handlers.MediaHandler(svc.Objects, cfg.OutputBucket, svc.Classifier, logger))
		api.PUT("/cameras", handlers.SaveCamerasHandler(svc.Cameras, logger))
		api.GET("/live", handlers.LiveWebsocketHandler(svc.Hub, logger))
	}

	logs := router.Group("/logs")
	{
		logs.GET("/:level", handlers.ShowLogsHandler(logger))
		logs.POST("/:level/clear", handlers.ClearLogsHandler(logger))
	}

	router.POST("/auth/login", handlers.LoginHandler(cfg, logger))
	router.GET("/auth/logout", handlers.LogoutHandler)

	// /settings -> static/settings.html
	router.NoRoute(dynamicHTMLHandler)

	return router
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowOriginFunc = func(string) bool { return true }
	} else {
		c.AllowOrigins = origins
	}
	return c
}
