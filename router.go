package main

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"sitelens/api/handlers"
	"sitelens/api/metrics"
	"sitelens/api/middleware"
	"sitelens/api/utils"
)

type routerDeps struct {
	Logger         zerolog.Logger
	FrontendOrigin string
	JWTManager     *utils.JWTManager

	Track    *handlers.TrackHandlers
	Auth     *handlers.AuthHandlers
	Websites *handlers.WebsiteHandlers
}

func newRouter(d routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(d.Logger))
	r.Use(middleware.CORS(d.FrontendOrigin))

	r.GET("/healthz", handlers.Health)
	r.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))
	r.GET("/analytics.js", handlers.ProbeScript)

	api := r.Group("/api")
	{
		// Public: called by the probe from tracked sites.
		api.POST("/track", d.Track.TrackEvent)

		api.POST("/signup", d.Auth.Signup)
		api.POST("/login", d.Auth.Login)
		api.POST("/logout", d.Auth.Logout)

		protected := api.Group("/")
		protected.Use(middleware.AuthRequired(d.JWTManager))
		{
			protected.GET("/profile", d.Auth.Profile)

			websites := protected.Group("/websites")
			{
				websites.POST("", d.Websites.CreateWebsite)
				websites.GET("", d.Websites.ListWebsites)
				websites.GET("/:websiteId/analytics", d.Websites.GetAnalytics)
			}
		}
	}

	return r
}
