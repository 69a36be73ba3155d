package store

import (
	"jobleads/internal/config"
	"jobleads/internal/logging"
)

// New returns a RedisSink when Redis is enabled and a NopSink otherwise
func New(cfg config.RedisConfig, logger logging.Logger) (Sink, error) {
	if !cfg.Enabled {
		return NopSink{}, nil
	}
	return NewRedisSink(cfg, logger)
}
