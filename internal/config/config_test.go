package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "log-aggregator", cfg.App.Name)
	assert.Equal(t, "8080", cfg.HTTP.Port)
	assert.Equal(t, "redis", cfg.Channel.Backend)
	assert.Equal(t, "event_queue", cfg.Channel.QueueKey)
	assert.Equal(t, 30*time.Second, cfg.Channel.Visibility)
	assert.Equal(t, 5, cfg.Workers.Count)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("CHANNEL_BACKEND", "kafka")
	t.Setenv("CHANNEL_VISIBILITY", "45s")
	t.Setenv("WORKER_COUNT", "12")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092,broker-2:9092")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.HTTP.Port)
	assert.Equal(t, "kafka", cfg.Channel.Backend)
	assert.Equal(t, 45*time.Second, cfg.Channel.Visibility)
	assert.Equal(t, 12, cfg.Workers.Count)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Kafka.Brokers)
}
