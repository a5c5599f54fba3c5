package routes

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"qa-agent-backend/internal/config"
	"qa-agent-backend/internal/extract"
	"qa-agent-backend/internal/logger"
	"qa-agent-backend/internal/telemetry"
	"qa-agent-backend/services"
	"qa-agent-backend/utils"

	"github.com/gin-gonic/gin"
)

// BuildKBRequest mirrors the build_kb contract: previously uploaded file
// paths plus the window configuration for this ingestion. The window
// fields are pointers so an explicit zero is distinguishable from an
// absent field.
type BuildKBRequest struct {
	FilePaths    []string `json:"file_paths" binding:"required"`
	ChunkSize    *int     `json:"chunk_size"`
	ChunkOverlap *int     `json:"chunk_overlap"`
}

// chunkParams applies configured defaults for absent window fields. An
// explicit value passes through untouched: overlap 0 is a valid
// non-overlapping split, and an invalid size is rejected by the chunker
// rather than silently replaced here.
func chunkParams(req BuildKBRequest, cfg *config.Config) (int, int) {
	size := cfg.ChunkSize
	if req.ChunkSize != nil {
		size = *req.ChunkSize
	}
	overlap := cfg.ChunkOverlap
	if req.ChunkOverlap != nil {
		overlap = *req.ChunkOverlap
	}
	return size, overlap
}

// SetupKnowledgeRoutes wires knowledge-base construction.
func SetupKnowledgeRoutes(router *gin.Engine, cfg *config.Config, knowledge *services.KnowledgeService, metrics *telemetry.Metrics) {
	router.POST("/build_kb", func(c *gin.Context) {
		var req BuildKBRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		chunkSize, chunkOverlap := chunkParams(req, cfg)

		docs := make([]services.SourceDocument, 0, len(req.FilePaths))
		for _, path := range req.FilePaths {
			content, err := os.ReadFile(path)
			if err != nil {
				logger.Warn("Skipping missing file", "path", path, "error", err)
				continue
			}

			text, err := extract.Text(path, content)
			if err != nil {
				if errors.Is(err, extract.ErrUnsupportedType) {
					logger.Warn("Skipping unsupported file", "path", path)
				} else {
					logger.Warn("Extraction failed", "path", path, "error", err)
				}
				continue
			}

			docs = append(docs, services.SourceDocument{
				Name: filepath.Base(path),
				Text: text,
			})
		}

		result, err := knowledge.BuildKB(c.Request.Context(), cfg.CollectionName, docs, chunkSize, chunkOverlap)
		if err != nil {
			respondWithServiceError(c, err)
			return
		}
		if result == nil {
			c.JSON(http.StatusOK, gin.H{
				"status":   "no_docs_found",
				"received": req.FilePaths,
			})
			return
		}

		metrics.RecordChunksIndexed(c.Request.Context(), cfg.CollectionName, result.NumChunks)
		c.JSON(http.StatusOK, gin.H{
			"status":         "kb_built",
			"num_chunks":     result.NumChunks,
			"ingested_files": result.IngestedFiles,
		})
	})
}
