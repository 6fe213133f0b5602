package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-retake-api/internal/service"
)

// Metrics wraps the Prometheus handler for gin.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return gin.WrapH(metricsSvc.Handler())
}
