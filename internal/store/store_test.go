package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobleads/internal/config"
	"jobleads/internal/logging"
	"jobleads/pkg/models"
)

func TestNewReturnsNopWhenDisabled(t *testing.T) {
	sink, err := New(config.RedisConfig{Enabled: false}, logging.NewNopLogger())
	require.NoError(t, err)

	assert.IsType(t, NopSink{}, sink)
	assert.NoError(t, sink.Save(context.Background(), models.NewEnrichmentResult(models.JobRecord{ID: "1"})))
	_, err = sink.Get(context.Background(), "1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewRedisSinkRejectsBadURL(t *testing.T) {
	_, err := New(config.RedisConfig{Enabled: true, URL: "not a url"}, logging.NewNopLogger())
	assert.Error(t, err)
}

func TestRedisSinkKeys(t *testing.T) {
	sink, err := NewRedisSink(config.Default().Redis, logging.NewNopLogger())
	require.NoError(t, err)
	defer sink.Close()

	assert.Equal(t, "jobleads:enrichment:result:10000-1234567890-S", sink.resultKey("10000-1234567890-S"))
	assert.Equal(t, "jobleads:enrichment:index", sink.indexKey())
}

func TestRedisSinkSaveRequiresJobID(t *testing.T) {
	sink, err := NewRedisSink(config.Default().Redis, logging.NewNopLogger())
	require.NoError(t, err)
	defer sink.Close()

	assert.Error(t, sink.Save(context.Background(), models.NewEnrichmentResult(models.JobRecord{})))
	assert.Error(t, sink.Save(context.Background(), nil))
}
