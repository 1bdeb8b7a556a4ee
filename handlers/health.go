package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"huddle/utils"
)

// Health handles GET /health with the last dependency check.
func Health(c *gin.Context) {
	status := utils.GetHealthStatus()
	code := http.StatusOK
	state := "ok"
	if !status.Healthy() {
		code = http.StatusServiceUnavailable
		state = "degraded"
	}
	c.JSON(code, gin.H{"status": state, "message": "Hi, I'm Huddle", "dependencies": status})
}
