package background

import (
	"time"

	"jobleads/internal/logging"
	"jobleads/pkg/models"
)

// TaskCompletionLogger writes the lifecycle events of background tasks
type TaskCompletionLogger struct {
	logger logging.Logger
}

func NewTaskCompletionLogger(logger logging.Logger) *TaskCompletionLogger {
	return &TaskCompletionLogger{logger: logger}
}

// LogTaskAccepted logs when a task is accepted for processing
func (l *TaskCompletionLogger) LogTaskAccepted(processID string, taskType TaskType, jobs int) {
	l.logger.Info("Background task accepted", map[string]interface{}{
		"process_id": processID,
		"operation":  taskType,
		"status":     models.TaskStatusAccepted,
		"jobs":       jobs,
	})
}

// LogTaskStart logs when a task starts processing
func (l *TaskCompletionLogger) LogTaskStart(processID string, taskType TaskType) {
	l.logger.Info("Background task started", map[string]interface{}{
		"process_id": processID,
		"operation":  taskType,
		"status":     models.TaskStatusProcessing,
	})
}

// LogTaskCompletion logs the final state of a task together with its
// batch summary
func (l *TaskCompletionLogger) LogTaskCompletion(result *TaskResult) {
	var processingTime time.Duration
	if result.ProcessingTime != nil {
		processingTime = *result.ProcessingTime
	}

	fields := map[string]interface{}{
		"process_id":      result.ProcessID,
		"operation":       result.Type,
		"status":          result.Status,
		"processing_time": processingTime.String(),
		"jobs":            result.Jobs,
	}
	if result.Summary != nil {
		fields["completed"] = result.Summary.Completed
		fields["failed"] = result.Summary.Failed
		fields["by_confidence"] = result.Summary.ByConfidence
	}

	if result.Status == models.TaskStatusFailure {
		fields["error"] = result.Error
		l.logger.Error("Background task failed", fields)
		return
	}
	l.logger.Info("Background task completed", fields)
}
