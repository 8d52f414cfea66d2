package registry

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-wormhole/config"
	"github.com/dep2p/go-wormhole/internal/core/directory"
	"github.com/dep2p/go-wormhole/internal/core/workerpool"
	"github.com/dep2p/go-wormhole/pkg/wire"
)

func unifiedConfig(t *testing.T) *config.Config {
	cfg := config.NewConfig()
	cfg.Registry.ListenHost = "127.0.0.1"
	cfg.Registry.Port = freePort(t)
	cfg.Registry.Workers = 2
	return cfg
}

func TestConfigFromUnified(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Registry.Port = 7000
	cfg.Registry.Workers = 8
	cfg.Registry.SaturationPolicy = config.PolicyBlockThenDrop
	cfg.Registry.BlockTimeout = config.Duration(20 * time.Millisecond)

	rc := ConfigFromUnified(cfg)
	assert.Equal(t, 7000, rc.Port)
	assert.Equal(t, 8, rc.Workers)
	assert.Equal(t, "block-then-drop", rc.Policy.String())
	assert.Equal(t, 20*time.Millisecond, rc.BlockTimeout)
	assert.Equal(t, ":7000", rc.Addr())

	def := ConfigFromUnified(nil)
	assert.Equal(t, config.DefaultRegistryConfig().Port, def.Port)
	assert.Equal(t, "drop-oldest", def.Policy.String())
	assert.NoError(t, def.Validate())
}

func TestConfig_ValidateMatchesUnified(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.RegistryConfig)
	}{
		{"zero port", func(c *config.RegistryConfig) { c.Port = 0 }},
		{"zero workers", func(c *config.RegistryConfig) { c.Workers = 0 }},
		{"negative queue", func(c *config.RegistryConfig) { c.QueueSize = -1 }},
		{"oversized datagram", func(c *config.RegistryConfig) { c.MaxDatagramSize = config.MaxUDPPayload + 1 }},
		{"negative block timeout", func(c *config.RegistryConfig) { c.BlockTimeout = config.Duration(-time.Second) }},
		{"negative grace", func(c *config.RegistryConfig) { c.StopGracePeriod = config.Duration(-time.Second) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unified := config.NewConfig()
			tt.mutate(&unified.Registry)
			want := unified.Registry.Validate()
			require.Error(t, want)

			got := ConfigFromUnified(unified).Validate()
			assert.ErrorIs(t, got, ErrInvalidConfiguration)
			assert.EqualError(t, got, want.Error())
		})
	}

	t.Run("unknown policy", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Policy = workerpool.Policy(99)
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfiguration)
	})
}

func TestModule_Lifecycle(t *testing.T) {
	cfg := unifiedConfig(t)
	obs := newRecorder()

	var svc *Service
	var dir *directory.Directory
	app := fxtest.New(t,
		fx.Supply(cfg),
		fx.Provide(func() Observer { return obs }),
		directory.Module,
		Module,
		fx.Populate(&svc, &dir),
	)
	app.RequireStart()

	require.Equal(t, StateRunning, svc.State())
	assert.Equal(t, cfg.Registry.Port, svc.LocalAddr().Port)
	assert.Same(t, dir, svc.Directory())

	conn, err := net.DialUDP("udp", nil, svc.LocalAddr())
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write(wire.EncodeRegister("svc", "inner"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return dir.Len("svc") == 1 }, waitFor, 5*time.Millisecond)
	assert.Equal(t, 1, obs.receivedCount())

	app.RequireStop()
	assert.Equal(t, StateStopped, svc.State())
}

func TestModule_RateLimitFromConfig(t *testing.T) {
	cfg := unifiedConfig(t)
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.PerSenderRate = 0.001
	cfg.RateLimit.Burst = 1
	cfg.RateLimit.MaxTrackedSenders = 16
	obs := newRecorder()

	var svc *Service
	var dir *directory.Directory
	app := fxtest.New(t,
		fx.Supply(cfg),
		fx.Provide(func() Observer { return obs }),
		directory.Module,
		Module,
		fx.Populate(&svc, &dir),
	)
	app.RequireStart()
	defer app.RequireStop()

	conn, err := net.DialUDP("udp", nil, svc.LocalAddr())
	require.NoError(t, err)
	defer conn.Close()

	for _, name := range []string{"a", "b", "c"} {
		_, err := conn.Write(wire.EncodeRegister(name, "inner"))
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool { return obs.droppedFor(DropRateLimited) == 2 }, waitFor, 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(dir.Names()) == 1 }, waitFor, 5*time.Millisecond)
	assert.Equal(t, []string{"a"}, dir.Names())
}

func TestModule_InvalidConfiguration(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Registry.Workers = 0

	app := fx.New(
		fx.NopLogger,
		fx.Supply(cfg),
		directory.Module,
		Module,
	)
	assert.ErrorIs(t, app.Err(), ErrInvalidConfiguration)
}
