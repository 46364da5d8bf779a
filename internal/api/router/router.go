package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docuvoice/backend/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "api-service",
		})
	})

	jobHandler := handler.NewJobHandler(deps)
	fileHandler := handler.NewFileHandler(deps)
	callbackHandler := handler.NewCallbackHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		jobs := v1.Group("/jobs")
		{
			// POST /api/v1/jobs - Start a document-to-speech job
			jobs.POST("", jobHandler.SubmitJob)

			// GET /api/v1/jobs/:job_id - Get job details
			jobs.GET("/:job_id", jobHandler.GetJob)
		}

		files := v1.Group("/files")
		{
			// POST /api/v1/files - Upload a document
			files.POST("", fileHandler.Upload)

			// GET /api/v1/files/*key - Fetch a stored object
			files.GET("/*key", fileHandler.Download)
		}
	}

	// Service completion callbacks. The speech and OCR topics post here
	// and the handler bridges them onto the internal queues.
	callbacks := r.Group("/callbacks")
	{
		callbacks.POST("/textract", callbackHandler.TextractCallback)
		callbacks.POST("/polly", callbackHandler.PollyCallback)
	}

	return r
}
