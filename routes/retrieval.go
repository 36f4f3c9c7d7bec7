package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rag-platform/models"
	"rag-platform/services"
	"rag-platform/utils"
)

func SetupRetrievalRoutes(router *gin.Engine, retrieval *services.RetrievalService) {
	api := router.Group("/api/v1")

	api.POST("/retrieve", func(c *gin.Context) {
		var req models.RetrieveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.Respond(c, utils.Validation("invalid request body: "+err.Error()))
			return
		}

		chunks, err := retrieval.Retrieve(c.Request.Context(), req.Query, req.TopK)
		if err != nil {
			utils.Respond(c, err)
			return
		}

		c.JSON(http.StatusOK, models.RetrieveResponse{
			Chunks:         chunks,
			CollectionName: retrieval.CollectionName(c.Request.Context()),
			Query:          req.Query,
		})
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, models.HealthResponse{Status: "ok"})
	})
}
