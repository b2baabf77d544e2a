package apihandlers

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the local API used by a browser UI.
func RegisterRoutes(router *gin.Engine, h *APIHandler) {
	router.GET("/health", h.HealthHandler)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/state", h.GetStateHandler)
		v1.GET("/events", h.GetEventsHandler)
		v1.POST("/analyze", h.AnalyzeHandler)
		v1.POST("/connection/test", h.ConnectionTestHandler)

		reportGroup := v1.Group("/report")
		{
			reportGroup.GET("", h.GetReportHandler)
			reportGroup.POST("/save", h.SaveReportHandler)
		}
	}
}

// NewRouter builds a gin engine with logging and recovery middleware and the
// API routes mounted.
func NewRouter(h *APIHandler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.MaxMultipartMemory = h.App.Config.MaxUploadBytes()
	RegisterRoutes(router, h)
	return router
}
