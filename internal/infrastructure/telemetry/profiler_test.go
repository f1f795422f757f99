package telemetry

import (
	"testing"

	"github.com/grafana/pyroscope-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewProfiler_Disabled(t *testing.T) {
	p, err := NewProfiler(ProfilerConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Stop())
	// Stop stays safe on repeat calls
	assert.NoError(t, p.Stop())
}

func TestNewProfiler_ValidatesConfig(t *testing.T) {
	_, err := NewProfiler(ProfilerConfig{
		Enabled:         true,
		ApplicationName: "restohub-backend",
	}, zap.NewNop())
	assert.ErrorContains(t, err, "server address")

	_, err = NewProfiler(ProfilerConfig{
		Enabled:       true,
		ServerAddress: "http://localhost:4040",
	}, zap.NewNop())
	assert.ErrorContains(t, err, "application name")
}

func TestProfilerConfig_ProfileTypes(t *testing.T) {
	t.Run("empty when nothing enabled", func(t *testing.T) {
		assert.Empty(t, ProfilerConfig{}.profileTypes())
	})

	t.Run("maps each flag", func(t *testing.T) {
		cfg := ProfilerConfig{
			ProfileCPU:        true,
			ProfileInuseSpace: true,
			ProfileGoroutines: true,
		}
		types := cfg.profileTypes()
		assert.ElementsMatch(t, []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
		}, types)
	})

	t.Run("all flags yield all types", func(t *testing.T) {
		cfg := ProfilerConfig{
			ProfileCPU:           true,
			ProfileAllocObjects:  true,
			ProfileAllocSpace:    true,
			ProfileInuseObjects:  true,
			ProfileInuseSpace:    true,
			ProfileGoroutines:    true,
			ProfileMutexCount:    true,
			ProfileMutexDuration: true,
			ProfileBlockCount:    true,
			ProfileBlockDuration: true,
		}
		assert.Len(t, cfg.profileTypes(), 10)
	})
}

func TestHostTags(t *testing.T) {
	t.Setenv("HOSTNAME", "worker-3")
	t.Setenv("POD_NAME", "restohub-backend-abc123")

	tags := hostTags()
	assert.Equal(t, "worker-3", tags["hostname"])
	assert.Equal(t, "restohub-backend-abc123", tags["pod"])
}

func TestHostTags_EmptyEnvironment(t *testing.T) {
	t.Setenv("HOSTNAME", "")
	t.Setenv("POD_NAME", "")

	assert.Empty(t, hostTags())
}

func TestPyroscopeLogger(t *testing.T) {
	l := &pyroscopeLogger{logger: zap.NewNop()}
	assert.NotPanics(t, func() {
		l.Infof("upload complete: %d bytes", 1024)
		l.Debugf("session %s", "s1")
		l.Errorf("upload failed: %v", "timeout")
	})
}
