package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/dshills/switchboard/internal/config/loader"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 100, cfg.Events.QueueCapacity)
	assert.Equal(t, 50, cfg.Events.ReplaySize)
	assert.Equal(t, 10, cfg.State.HistoryDepth)
	assert.Equal(t, 50*time.Millisecond, cfg.Events.DrainInterval.Std())
	assert.Equal(t, 5*time.Second, cfg.Components.ShutdownTimeout.Std())
}

func TestLoadWithFS_TOML(t *testing.T) {
	fsys := loader.MapFS{"sb.toml": []byte(`
[events]
queue_capacity = 20
drain_interval = "10ms"

[security]
allow_list_enabled = true
allow_list = ["user:*", "filter:changed"]
rate_limit = 5.0
rate_burst = 3

[state.initial]
theme = "dark"

[components]
shutdown_timeout = "2s"
`)}

	cfg, err := LoadWithFS(fsys, "sb.toml", nil)
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.Events.QueueCapacity)
	assert.Equal(t, 50, cfg.Events.ReplaySize, "defaults fill unset settings")
	assert.Equal(t, 10*time.Millisecond, cfg.Events.DrainInterval.Std())
	assert.True(t, cfg.Security.AllowListEnabled)
	assert.Equal(t, []string{"user:*", "filter:changed"}, cfg.Security.AllowList)
	assert.Equal(t, 5.0, cfg.Security.RateLimit)
	assert.Equal(t, "dark", cfg.State.Initial["theme"])
	assert.Equal(t, 2*time.Second, cfg.Components.ShutdownTimeout.Std())
}

func TestLoadWithFS_YAML(t *testing.T) {
	fsys := loader.MapFS{"sb.yaml": []byte(`
log:
  level: debug
  format: json
introspect:
  enabled: true
  addr: "localhost:9000"
`)}

	cfg, err := LoadWithFS(fsys, "sb.yaml", nil)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.Introspect.Enabled)
	assert.Equal(t, "localhost:9000", cfg.Introspect.Addr)
}

func TestLoadWithFS_EnvOverridesFile(t *testing.T) {
	fsys := loader.MapFS{"sb.json": []byte(`{"events":{"queue_capacity":20}}`)}

	cfg, err := LoadWithFS(fsys, "sb.json", []string{
		"SWITCHBOARD_EVENTS_QUEUE_CAPACITY=30",
		"SWITCHBOARD_SECURITY_ALLOW_LIST=a,b:*",
		"SWITCHBOARD_COMPONENTS_SHUTDOWN_TIMEOUT=1m",
		"HOME=/root",
	})
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Events.QueueCapacity)
	assert.Equal(t, []string{"a", "b:*"}, cfg.Security.AllowList)
	assert.Equal(t, time.Minute, cfg.Components.ShutdownTimeout.Std())
}

func TestLoadWithFS_Errors(t *testing.T) {
	_, err := LoadWithFS(loader.MapFS{}, "missing.toml", nil)
	assert.ErrorIs(t, err, loader.ErrFileNotFound)

	_, err = LoadWithFS(loader.MapFS{"x.toml": []byte("[events]\nbogus = 1\n")}, "x.toml", nil)
	var perr *loader.ParseError
	assert.ErrorAs(t, err, &perr)

	_, err = LoadWithFS(loader.MapFS{}, "", []string{"SWITCHBOARD_EVENTS_QUEUE_CAPACITY=many"})
	var eerr *loader.EnvError
	assert.ErrorAs(t, err, &eerr)
}

func TestLoadWithFS_NoFile(t *testing.T) {
	cfg, err := LoadWithFS(loader.MapFS{}, "", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Events.QueueCapacity = 0
	cfg.Events.DrainInterval = Duration(-time.Second)
	cfg.State.HistoryDepth = -1
	cfg.Security.AllowList = []string{"bad:*:x"}
	cfg.Security.RateLimit = 2
	cfg.Security.RateBurst = 0
	cfg.Security.EscapeContext = "css"
	cfg.Log.Format = "xml"
	cfg.Log.Level = "loud"
	cfg.Introspect.Enabled = true
	cfg.Introspect.Addr = "0.0.0.0:7070"

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	var paths []string
	for _, e := range multierr.Errors(err) {
		var fe *FieldError
		require.True(t, errors.As(e, &fe))
		paths = append(paths, fe.Path)
	}
	assert.Equal(t, []string{
		"events.queue_capacity",
		"events.drain_interval",
		"state.history_depth",
		"security.allow_list",
		"security.rate_burst",
		"security.escape_context",
		"log.format",
		"log.level",
		"introspect.addr",
	}, paths)
}

func TestValidate_LoopbackAddrs(t *testing.T) {
	for addr, ok := range map[string]bool{
		"127.0.0.1:7070": true,
		"localhost:1":    true,
		"[::1]:80":       true,
		"10.0.0.1:80":    false,
		":7070":          false,
		"nonsense":       false,
	} {
		assert.Equal(t, ok, checkLoopback(addr) == "", addr)
	}
}

func TestClone(t *testing.T) {
	cfg := Default()
	cfg.Security.AllowList = []string{"a"}

	cp := cfg.Clone()
	cp.Security.AllowList[0] = "b"
	assert.Equal(t, "a", cfg.Security.AllowList[0])
}

func TestFieldError(t *testing.T) {
	err := &FieldError{Path: "events.replay_size", Message: "must be positive", Value: 0}
	assert.Equal(t, "events.replay_size: must be positive (got 0)", err.Error())
	assert.Equal(t, "x: bad", (&FieldError{Path: "x", Message: "bad"}).Error())
}
