package routes

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"rag-platform/clients"
	"rag-platform/models"
	"rag-platform/utils"
)

const chatTopK = 5

// OrchestratorDeps carries the downstream clients the public API fans out to.
type OrchestratorDeps struct {
	Retrieval  *clients.RetrievalClient
	Generation *clients.GenerationClient
	Ingestion  *clients.IngestionClient
}

func SetupOrchestratorRoutes(router *gin.Engine, deps *OrchestratorDeps) {
	api := router.Group("/api/v1")

	api.POST("/chat", func(c *gin.Context) {
		var req models.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.Respond(c, utils.Unprocessable("invalid request body: "+err.Error()))
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			utils.Respond(c, utils.Unprocessable("message must not be empty"))
			return
		}

		chunks, err := deps.Retrieval.Retrieve(c.Request.Context(), req.Message, chatTopK)
		if err != nil {
			utils.Respond(c, err)
			return
		}

		// An empty context is a valid path; generation answers from the
		// "no information" branch of the prompt.
		answer, err := deps.Generation.Generate(c.Request.Context(), req.Message, chunks)
		if err != nil {
			utils.Respond(c, err)
			return
		}

		c.JSON(http.StatusOK, models.ChatResponse{
			Query:    req.Message,
			Response: answer,
		})
	})

	api.POST("/documents/upload", func(c *gin.Context) {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			utils.Respond(c, utils.Validation("no file provided in 'file' form field"))
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			utils.Respond(c, utils.Internal("failed to open uploaded file", err))
			return
		}
		defer file.Close()

		resp, err := deps.Ingestion.Upload(c.Request.Context(), fileHeader.Filename, file)
		relayProxy(c, resp, err)
	})

	api.GET("/documents", func(c *gin.Context) {
		resp, err := deps.Ingestion.ListDocuments(c.Request.Context())
		relayProxy(c, resp, err)
	})

	api.DELETE("/documents", func(c *gin.Context) {
		resp, err := deps.Ingestion.ClearDocuments(c.Request.Context())
		relayProxy(c, resp, err)
	})

	api.GET("/ingestion/status", func(c *gin.Context) {
		resp, err := deps.Ingestion.Status(c.Request.Context())
		relayProxy(c, resp, err)
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, models.HealthResponse{Status: "ok"})
	})
}

// relayProxy writes a proxied downstream response, or maps the client error
// when the call never produced one.
func relayProxy(c *gin.Context, resp *clients.ProxyResponse, err error) {
	if err != nil {
		utils.Respond(c, err)
		return
	}
	c.Data(resp.Status, "application/json", resp.Body)
}
