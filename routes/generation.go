package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rag-platform/models"
	"rag-platform/services"
	"rag-platform/utils"
)

func SetupGenerationRoutes(router *gin.Engine, generation *services.GenerationService) {
	api := router.Group("/api/v1")

	api.POST("/generate", func(c *gin.Context) {
		var req models.GenerateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.Respond(c, utils.Validation("invalid request body: "+err.Error()))
			return
		}

		answer, err := generation.Generate(c.Request.Context(), req.Query, req.ContextChunks)
		if err != nil {
			utils.Respond(c, err)
			return
		}

		c.JSON(http.StatusOK, models.GenerateResponse{Answer: answer})
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, models.HealthResponse{Status: "ok"})
	})
}
