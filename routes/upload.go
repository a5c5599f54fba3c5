package routes

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"qa-agent-backend/internal/config"
	"qa-agent-backend/internal/logger"
	"qa-agent-backend/utils"

	"github.com/gin-gonic/gin"
)

// SetupUploadRoutes wires the document upload endpoint. Uploads only
// land files in the upload directory; indexing happens later via
// /build_kb with the returned paths.
func SetupUploadRoutes(router *gin.Engine, cfg *config.Config) {
	router.POST("/upload_files", func(c *gin.Context) {
		form, err := c.MultipartForm()
		if err != nil {
			utils.RespondWithBadRequest(c, "Invalid multipart form", gin.H{"error": err.Error()})
			return
		}

		files := form.File["files"]
		if len(files) == 0 {
			utils.RespondWithBadRequest(c, "No files provided", nil)
			return
		}

		if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
			utils.RespondWithInternalError(c, "Failed to prepare upload directory", gin.H{"error": err.Error()})
			return
		}

		saved := make([]gin.H, 0, len(files))
		for _, file := range files {
			if file.Size > cfg.MaxFileSize {
				utils.RespondWithBadRequest(c,
					fmt.Sprintf("File %s exceeds the %d byte limit", file.Filename, cfg.MaxFileSize), nil)
				return
			}

			// Strip any client-supplied directory components
			name := filepath.Base(file.Filename)
			path := filepath.Join(cfg.UploadDir, name)
			if err := c.SaveUploadedFile(file, path); err != nil {
				utils.RespondWithInternalError(c, "Failed to save uploaded file", gin.H{
					"filename": name,
					"error":    err.Error(),
				})
				return
			}
			logger.Info("File uploaded", "filename", name, "size", file.Size)
			saved = append(saved, gin.H{"filename": name, "path": path})
		}

		c.JSON(http.StatusOK, gin.H{"status": "ok", "saved": saved})
	})
}
