package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"jobleads/internal/store"
)

// ResultHandler returns the last persisted result for a job id
func ResultHandler(sink store.Sink) echo.HandlerFunc {
	return func(c echo.Context) error {
		result, err := sink.Get(c.Request().Context(), c.Param("jobId"))
		switch {
		case errors.Is(err, store.ErrNotFound):
			return errorJSON(c, http.StatusNotFound, "result_not_found", "No result stored for this job")
		case err != nil:
			return errorJSON(c, http.StatusServiceUnavailable, "store_unavailable", err.Error())
		}
		return c.JSON(http.StatusOK, result)
	}
}
