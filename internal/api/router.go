package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"webstar/fundraise-enrichment-worker/internal/api/controllers"
)

// Controllers groups the controllers mounted by NewRouter.
// A nil controller leaves its routes unregistered.
type Controllers struct {
	Search  *controllers.SearchController
	Records *controllers.RecordsController
	Batch   *controllers.BatchController
	Webhook *controllers.WebhookController
}

// NewRouter creates and configures a new Gin router
func NewRouter(c Controllers) *gin.Engine {
	router := gin.Default() // Includes Logger and Recovery middleware

	// Health check endpoint
	router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	// Swagger documentation route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		if c.Search != nil {
			v1.POST("/search", c.Search.Search)
		}
		if c.Batch != nil {
			v1.POST("/records/enrich-pending", c.Batch.EnrichPending)
		}
		if c.Records != nil {
			v1.POST("/records", c.Records.CreateRecord)
			v1.GET("/records/:id", c.Records.GetRecord)
			v1.POST("/records/:id/enrich", c.Records.EnrichRecord)
		}
	}

	if c.Webhook != nil {
		router.POST("/webhooks/record-created", c.Webhook.HandleRecordCreated)
	}

	return router
}
