package api

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all routes of the report service.
func RegisterRoutes(router *gin.Engine, api *API) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	reports := v1.Group("/reports")
	{
		reports.POST("", api.CreateReportHandler)
		reports.GET("", api.ListReportsHandler)
		reports.POST("/search", api.SearchReportsHandler)
		reports.POST("/lookup", api.LookupHandler)
		reports.GET("/:id", api.GetReportHandler)
		reports.GET("/:id/status", api.ReportStatusHandler)
		reports.POST("/:id/subsections/:subsection_id/regenerate", api.RegenerateHandler)
	}

	documents := v1.Group("/documents")
	{
		documents.POST("", api.UploadDocumentHandler)
		documents.POST("/embed", api.EmbedDocumentHandler)
		documents.GET("/embed/:id/status", api.EmbedStatusHandler)
	}

	experts := v1.Group("/experts")
	{
		experts.POST("", api.CreateExpertHandler)
		experts.POST("/match", api.MatchExpertsHandler)
	}

	v1.POST("/diagnosis", api.DiagnoseHandler)
}
