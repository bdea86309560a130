package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// TrackCORS opens the ingestion endpoint and probe script to every origin:
// the probe runs on arbitrary customer sites and sends no credentials.
func TrackCORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Content-Type", "Origin", "Accept"},
		MaxAge:          12 * time.Hour,
	})
}

// DashboardCORS allows the dashboard frontend at origin to call the
// authenticated API with cookies.
func DashboardCORS(origin string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins: []string{origin},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type", "Content-Length", "Accept-Encoding", "X-CSRF-Token",
			"Authorization", "Accept", "Origin", "Cache-Control", "X-Requested-With",
		},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

// publicPaths are served to tracked sites rather than to the dashboard.
var publicPaths = map[string]bool{
	"/api/track":    true,
	"/analytics.js": true,
}

// CORS applies TrackCORS to the public tracking paths and DashboardCORS to
// everything else. It is installed on the engine so preflight requests for
// paths without an OPTIONS route are answered too.
func CORS(dashboardOrigin string) gin.HandlerFunc {
	public := TrackCORS()
	dashboard := DashboardCORS(dashboardOrigin)
	return func(c *gin.Context) {
		if publicPaths[c.Request.URL.Path] {
			public(c)
			return
		}
		dashboard(c)
	}
}
