package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sitelens/api/web"
)

// ProbeScript serves the browser probe that sites embed with
// <script src=".../analytics.js" data-website-id="..." data-domain="...">.
func ProbeScript(c *gin.Context) {
	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, "application/javascript; charset=utf-8", web.ProbeJS)
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
