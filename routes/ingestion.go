package routes

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"rag-platform/internal/logger"
	"rag-platform/internal/vectorstore"
	"rag-platform/models"
	"rag-platform/services"
	"rag-platform/utils"
)

// IngestionDeps carries the wired services the ingestion handlers close over.
type IngestionDeps struct {
	Registry     *vectorstore.Registry
	Pipeline     *services.IngestionPipeline
	State        *services.IngestionState
	Documents    *services.DocumentService
	Clear        *services.ClearService
	MaxFileBytes int64
}

func SetupIngestionRoutes(router *gin.Engine, deps *IngestionDeps) {
	api := router.Group("/api/v1")

	api.POST("/upload", func(c *gin.Context) {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			utils.Respond(c, utils.Validation("no file provided in 'file' form field"))
			return
		}

		filename := filepath.Base(fileHeader.Filename)
		if filename == "" || filename == "." {
			utils.Respond(c, utils.Validation("uploaded file has no filename"))
			return
		}
		if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
			utils.Respond(c, utils.Validation("only PDF files are accepted"))
			return
		}
		if fileHeader.Size > deps.MaxFileBytes {
			utils.Respond(c, utils.TooLarge("file exceeds the maximum allowed size"))
			return
		}

		// Best-effort duplicate check against what the collection already
		// holds. An unreachable or missing collection does not block upload.
		if store, err := deps.Registry.Store(c.Request.Context()); err == nil {
			if sources, err := store.Sources(c.Request.Context()); err == nil && sources[filename] {
				utils.Respond(c, utils.Conflict("document '"+filename+"' has already been processed"))
				return
			}
		}

		file, err := fileHeader.Open()
		if err != nil {
			utils.Respond(c, utils.Internal("failed to open uploaded file", err))
			return
		}
		defer file.Close()

		// Extension decides acceptance; the magic bytes only feed the log so
		// mislabeled uploads can be traced when extraction later fails.
		var magic [4]byte
		if n, _ := file.Read(magic[:]); n == 4 && string(magic[:]) != "%PDF" {
			logger.Warn("uploaded file lacks PDF magic bytes", "filename", filename)
		}
		if _, err := file.Seek(0, 0); err != nil {
			utils.Respond(c, utils.Internal("failed to rewind uploaded file", err))
			return
		}

		if _, err := deps.Documents.SaveUpload(file, filename); err != nil {
			utils.Respond(c, utils.Internal("failed to persist uploaded file", err))
			return
		}

		resp := models.UploadResponse{
			Status:   "Upload accepted",
			Filename: filename,
			Message:  "File saved to source directory",
		}

		if c.DefaultQuery("auto_ingest", "true") == "true" {
			if scheduled, found := scheduleRun(c, deps); scheduled {
				resp.Message = "File saved; ingestion started"
				resp.DocumentsFound = &found
			}
		}

		c.JSON(http.StatusAccepted, resp)
	})

	api.POST("/ingest", func(c *gin.Context) {
		paths, err := deps.Pipeline.NewFiles(c.Request.Context())
		if err != nil {
			utils.Respond(c, utils.Internal("failed to scan for new documents", err))
			return
		}

		if len(paths) == 0 {
			c.JSON(http.StatusOK, models.TriggerResponse{
				Status:         "No new files to process",
				DocumentsFound: 0,
			})
			return
		}

		if !deps.State.TryStart() {
			utils.Respond(c, utils.Conflict("an ingestion process is already running"))
			return
		}

		go deps.Pipeline.Run(detachedContext(c), paths)

		c.JSON(http.StatusAccepted, models.TriggerResponse{
			Status:         "Ingestion started",
			DocumentsFound: len(paths),
		})
	})

	api.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, statusResponse(deps.State.Snapshot()))
	})

	api.GET("/documents", func(c *gin.Context) {
		docs, err := deps.Documents.List()
		if err != nil {
			utils.Respond(c, utils.Internal("failed to list documents", err))
			return
		}
		c.JSON(http.StatusOK, models.ListDocumentsResponse{
			Count:     len(docs),
			Documents: docs,
		})
	})

	api.DELETE("/documents", func(c *gin.Context) {
		result, err := deps.Clear.Clear(c.Request.Context())
		if err != nil {
			if errors.Is(err, services.ErrIngestionBusy) {
				utils.Respond(c, utils.Conflict("cannot clear while an ingestion process is running"))
				return
			}
			utils.Respond(c, utils.Internal("clear operation failed", err))
			return
		}

		status := http.StatusOK
		switch {
		case !result.SourceFilesCleared && !result.CollectionDeleted:
			status = http.StatusInternalServerError
		case !result.SourceFilesCleared || !result.CollectionDeleted:
			status = http.StatusMultiStatus
		}
		c.JSON(status, result.Response())
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, models.HealthResponse{Status: "ok"})
	})
}

// scheduleRun claims the ingestion slot and launches a background run over
// the currently-new files. It reports whether a run was scheduled and how
// many files it will cover. Upload never fails because scheduling did not
// happen; a busy slot just means the running job will not see this file yet.
func scheduleRun(c *gin.Context, deps *IngestionDeps) (bool, int) {
	paths, err := deps.Pipeline.NewFiles(c.Request.Context())
	if err != nil {
		logger.Warn("failed to scan for new documents after upload", "error", err)
		return false, 0
	}
	if len(paths) == 0 {
		return false, 0
	}
	if !deps.State.TryStart() {
		return false, 0
	}

	go deps.Pipeline.Run(detachedContext(c), paths)
	return true, len(paths)
}

func statusResponse(snap services.IngestionStatus) models.IngestionStatusResponse {
	resp := models.IngestionStatusResponse{
		IsProcessing:       snap.IsProcessing,
		Status:             snap.Status,
		DocumentsProcessed: snap.DocumentsProcessed,
		ChunksAdded:        snap.ChunksAdded,
		Errors:             snap.Errors,
	}
	if resp.Errors == nil {
		resp.Errors = []string{}
	}
	if snap.LastCompleted != nil {
		formatted := snap.LastCompleted.Format(time.RFC3339)
		resp.LastCompleted = &formatted
	}
	return resp
}
