package server

import (
	"testing"
	"time"

	"github.com/deppfellow/ormdemo/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestGormOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Client.Log = []string{"error"}
	cfg.Observability.Logging.SlowQueryThreshold = time.Second

	opts := GormOptions(cfg)
	assert.False(t, opts.Queries)
	assert.True(t, opts.Errors)
	assert.Equal(t, time.Second, opts.SlowThreshold)

	cfg.Observability = nil
	assert.Zero(t, GormOptions(cfg).SlowThreshold)
}

func TestShutdown_Empty(t *testing.T) {
	s := &Server{}
	assert.NoError(t, s.Shutdown())
}
