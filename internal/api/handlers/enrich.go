package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"jobleads/internal/logging"
	"jobleads/pkg/models"
)

// EnrichHandler enriches one job synchronously. Enrichment failures are part
// of the result, so the status is 200 whenever the request itself was valid.
func EnrichHandler(enricher Enricher, logger logging.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		startTime := time.Now()
		reqID := requestID(c)
		log := logger.WithField("request_id", reqID)

		var req models.EnrichRequest
		if err := c.Bind(&req); err != nil {
			log.Warn("Failed to bind enrich request", map[string]interface{}{"error": err.Error()})
			return errorJSON(c, http.StatusBadRequest, "invalid_request", "Invalid request format")
		}
		if err := validate.Struct(&req); err != nil {
			return errorJSON(c, http.StatusBadRequest, "validation_failed", err.Error())
		}

		log.Info("Enrich request received", map[string]interface{}{"job_id": req.Job.ID})

		result := enricher.Enrich(c.Request().Context(), req.Job)

		log.Info("Enrich request completed", map[string]interface{}{
			"job_id":          req.Job.ID,
			"status":          string(result.Status),
			"confidence":      string(result.Confidence),
			"processing_time": time.Since(startTime).String(),
		})

		return c.JSON(http.StatusOK, models.EnrichResponse{
			Result:    result,
			RequestID: reqID,
		})
	}
}

// BatchEnrichHandler queues a batch and answers 202 with the process id
func BatchEnrichHandler(tasks TaskQueue, logger logging.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		reqID := requestID(c)
		log := logger.WithField("request_id", reqID)

		var req models.BatchEnrichRequest
		if err := c.Bind(&req); err != nil {
			log.Warn("Failed to bind batch request", map[string]interface{}{"error": err.Error()})
			return errorJSON(c, http.StatusBadRequest, "invalid_request", "Invalid request format")
		}
		if err := validate.Struct(&req); err != nil {
			return errorJSON(c, http.StatusBadRequest, "validation_failed", err.Error())
		}

		processID, err := tasks.SubmitBatch(c.Request().Context(), req.Jobs)
		if err != nil {
			log.Error("Failed to queue batch", map[string]interface{}{"error": err.Error()})
			return errorJSON(c, statusFor(err), "task_submission_failed", err.Error())
		}

		return c.JSON(http.StatusAccepted, models.BatchAcceptedResponse{
			ProcessID: processID,
			Status:    models.TaskStatusAccepted,
			Jobs:      len(req.Jobs),
			Message:   "Batch accepted for processing",
			Timestamp: time.Now(),
		})
	}
}
