package controlplane

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Gold240sx/MacOS-Bookmarks/internal/controlplane/handlers"
	"github.com/Gold240sx/MacOS-Bookmarks/internal/controlplane/middleware"
	"github.com/Gold240sx/MacOS-Bookmarks/internal/version"
)

type RouteConfig struct {
	Auth              middleware.TokenAuthConfig
	RequestsPerSecond int64
}

func SetupRoutes(svc handlers.FolderService, routeConfig *RouteConfig) http.Handler {
	r := gin.New()

	folderH := handlers.NewFolderHandler(svc)
	statusH := handlers.NewStatusHandler(svc)
	eventsH := handlers.NewEventsHandler(svc)

	r.Use(middleware.Logger())
	r.Use(gin.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.Gzip())
	r.Use(middleware.RateLimit(routeConfig.RequestsPerSecond))

	r.GET("/", IndexHandler)

	v1 := r.Group("/v1")
	v1.Use(middleware.TokenAuth(routeConfig.Auth))
	{
		v1.GET("/status", statusH.Status)
		v1.GET("/events", eventsH.Events)

		v1Folders := v1.Group("/folders")
		{
			v1Folders.GET("", folderH.List)
			v1Folders.POST("", folderH.Add)
			v1Folders.GET("/:id", folderH.Get)
			v1Folders.PATCH("/:id", folderH.Rename)
			v1Folders.DELETE("/:id", folderH.Delete)
			v1Folders.GET("/:id/status", folderH.Status)
			v1Folders.POST("/:id/resolve", folderH.Resolve)
			v1Folders.POST("/:id/locate", folderH.Locate)
			v1Folders.POST("/:id/restore", folderH.Restore)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "not found",
		})
	})

	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{
			"error": "method not allowed",
		})
	})

	return r.Handler()
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}

func IndexHandler(c *gin.Context) {
	c.PureJSON(http.StatusOK, version.Current())
}
