package routes

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"qa-agent-backend/internal/ai"
	"qa-agent-backend/internal/config"
	"qa-agent-backend/internal/telemetry"
	"qa-agent-backend/services"
	"qa-agent-backend/utils"

	"github.com/gin-gonic/gin"
)

// GenerateTestcasesRequest asks for test cases grounded in the chunks
// that best match the query.
type GenerateTestcasesRequest struct {
	Query string `json:"query" binding:"required"`
	TopK  int    `json:"top_k"`
}

// SeleniumRequest names the stored record to expand into a script.
type SeleniumRequest struct {
	TestcaseID string `json:"testcase_id" binding:"required"`
}

// SetupTestCaseRoutes wires test-case generation, listing, script
// synthesis, and export.
func SetupTestCaseRoutes(router *gin.Engine, cfg *config.Config, testcases *services.TestCaseService, scripts *services.ScriptService, export *services.ExportService, metrics *telemetry.Metrics) {
	router.POST("/generate_testcases", func(c *gin.Context) {
		var req GenerateTestcasesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		topK := req.TopK
		if topK <= 0 {
			topK = cfg.DefaultTopK
		}

		generated, retrieved, err := testcases.Generate(c.Request.Context(), cfg.CollectionName, req.Query, topK)
		if err != nil {
			respondWithServiceError(c, err)
			return
		}

		metrics.RecordTestCases(c.Request.Context(), len(generated))

		items := make([]gin.H, 0, len(generated))
		for _, record := range generated {
			items = append(items, gin.H{"id": record.ID, "payload": record.Payload})
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"generated": items,
			"retrieved": retrieved,
		})
	})

	router.GET("/list_testcases", func(c *gin.Context) {
		records, err := testcases.List(c.Request.Context())
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list testcases", gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"count": len(records),
			"items": records,
		})
	})

	router.POST("/generate_selenium_script", func(c *gin.Context) {
		var req SeleniumRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		script, err := scripts.Synthesize(c.Request.Context(), req.TestcaseID)
		if err != nil {
			if errors.Is(err, services.ErrTestCaseNotFound) {
				utils.RespondWithError(c, http.StatusNotFound, "testcase_not_found",
					"No testcase with the given id", gin.H{"testcase_id": req.TestcaseID})
				return
			}
			utils.RespondWithInternalError(c, "Failed to synthesize script", gin.H{"error": err.Error()})
			return
		}

		metrics.RecordScript(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{
			"status":          "ok",
			"selenium_script": script,
		})
	})

	router.GET("/export_testcases", func(c *gin.Context) {
		buf, count, err := export.ExportExcel(c.Request.Context())
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to export testcases", gin.H{"error": err.Error()})
			return
		}

		filename := fmt.Sprintf("testcases_%s.xlsx", time.Now().Format("20060102_150405"))
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		c.Header("X-Record-Count", fmt.Sprintf("%d", count))
		c.Data(http.StatusOK,
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			buf.Bytes())
	})
}

// respondWithServiceError maps typed core failures onto the HTTP error
// envelope.
func respondWithServiceError(c *gin.Context, err error) {
	var storeErr *services.StoreWriteError
	switch {
	case errors.Is(err, services.ErrChunkConfig):
		utils.RespondWithBadRequest(c, "Invalid chunk configuration", gin.H{"error": err.Error()})
	case errors.Is(err, ai.ErrProviderUnavailable):
		utils.RespondWithUnavailable(c, err.Error())
	case errors.Is(err, services.ErrDimensionMismatch):
		utils.RespondWithBadRequest(c, "Vector dimension mismatch", gin.H{"error": err.Error()})
	case errors.As(err, &storeErr):
		utils.RespondWithInternalError(c, "Vector store write failed", gin.H{
			"collection": storeErr.Collection,
			"failed_ids": storeErr.FailedIDs,
			"error":      storeErr.Error(),
		})
	default:
		utils.RespondWithInternalError(c, "Request failed", gin.H{"error": err.Error()})
	}
}
