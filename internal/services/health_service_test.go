package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthService(t *testing.T) {
	hs := NewHealthService("1.2.3", "2026-01-01", nil)
	ctx := context.Background()

	assert.Equal(t, "ok", hs.HealthCheck(ctx).Status)

	ready := hs.ReadinessCheck(ctx)
	assert.Equal(t, "ready", ready.Status)
	assert.Equal(t, "ready", ready.Checks["engine"].Status, ready.Checks["engine"].Message)
	assert.Equal(t, "ready", ready.Checks["temp_dir"].Status)

	live := hs.LivenessCheck(ctx)
	assert.Equal(t, "alive", live.Status)
	assert.Contains(t, live.Runtime, "goroutines")

	v := hs.Version()
	assert.Equal(t, "1.2.3", v["version"])
	assert.Equal(t, "2026-01-01", v["build_time"])
	assert.Equal(t, "v1", v["data_format"])
}

func TestEngineSelfTest(t *testing.T) {
	assert.Equal(t, ServiceHealth{Status: "ready"}, checkEngine())
}
