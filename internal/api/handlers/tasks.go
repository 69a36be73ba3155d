package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// TaskHandler returns one task with its results once finished
func TaskHandler(tasks TaskQueue) echo.HandlerFunc {
	return func(c echo.Context) error {
		task, err := tasks.Get(c.Request().Context(), c.Param("id"))
		if err != nil {
			return errorJSON(c, statusFor(err), "task_lookup_failed", err.Error())
		}
		return c.JSON(http.StatusOK, task)
	}
}

// ListTasksHandler lists tasks without their per-job results
func ListTasksHandler(tasks TaskQueue) echo.HandlerFunc {
	return func(c echo.Context) error {
		list, err := tasks.List(c.Request().Context())
		if err != nil {
			return errorJSON(c, statusFor(err), "task_list_failed", err.Error())
		}
		for _, t := range list {
			t.Results = nil
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"tasks":      list,
			"stats":      tasks.Stats(),
			"request_id": requestID(c),
			"timestamp":  time.Now(),
		})
	}
}
