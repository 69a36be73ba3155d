package utils

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHostOf(t *testing.T) {
	assert.Equal(t, "www.arbeitsagentur.de", HostOf("https://WWW.Arbeitsagentur.de/jobsuche/jobdetail/123"))
	assert.Equal(t, "unknown", HostOf("::not a url"))
	assert.Equal(t, "unknown", HostOf(""))
}

func TestGenerateProcessID(t *testing.T) {
	id := GenerateProcessID("batch")
	assert.Len(t, id, len("batch_")+20)
	assert.NotEqual(t, id, GenerateProcessID("batch"))
	assert.Len(t, GenerateProcessID(""), 20)
}

func TestSleepContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := SleepContext(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, StatusCode(NewBrowserLaunchError("no chrome")))
	wrapped := errors.Join(errors.New("outer"), NewValidationError("job.id"))
	assert.Equal(t, http.StatusBadRequest, StatusCode(wrapped))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(errors.New("plain")))
}
