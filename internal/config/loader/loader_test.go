package loader

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

type sample struct {
	Name  string   `toml:"name" yaml:"name" json:"name"`
	Size  int      `toml:"size" yaml:"size" json:"size"`
	Tags  []string `toml:"tags" yaml:"tags" json:"tags"`
	Inner struct {
		Enabled bool `toml:"enabled" yaml:"enabled" json:"enabled"`
	} `toml:"inner" yaml:"inner" json:"inner"`
}

func TestFormatOf(t *testing.T) {
	tests := map[string]Format{
		"a.toml":      FormatTOML,
		"dir/a.YAML":  FormatYAML,
		"a.yml":       FormatYAML,
		"/etc/x.json": FormatJSON,
	}
	for path, want := range tests {
		got, err := FormatOf(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}

	_, err := FormatOf("a.ini")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoader_LoadInto(t *testing.T) {
	fsys := MapFS{
		"c.toml": []byte("name = \"t\"\ntags = [\"a\"]\n[inner]\nenabled = true\n"),
		"c.yaml": []byte("name: y\ninner:\n  enabled: true\n"),
		"c.json": []byte(`{"name":"j","size":3}`),
	}

	for _, path := range []string{"c.toml", "c.yaml", "c.json"} {
		t.Run(path, func(t *testing.T) {
			v := sample{Size: 7}
			require.NoError(t, New(fsys).LoadInto(path, &v))
			assert.NotEmpty(t, v.Name)
			if path != "c.json" {
				assert.Equal(t, 7, v.Size, "unset fields keep their value")
				assert.True(t, v.Inner.Enabled)
			} else {
				assert.Equal(t, 3, v.Size)
			}
		})
	}
}

func TestLoader_EmptyYAML(t *testing.T) {
	v := sample{Name: "keep"}
	require.NoError(t, New(MapFS{"e.yaml": nil}).LoadInto("e.yaml", &v))
	assert.Equal(t, "keep", v.Name)
}

func TestLoader_Errors(t *testing.T) {
	fsys := MapFS{
		"unknown.toml": []byte("bogus = 1\n"),
		"unknown.yaml": []byte("bogus: 1\n"),
		"unknown.json": []byte(`{"bogus":1}`),
		"broken.toml":  []byte("name = \n"),
	}
	l := New(fsys)

	var v sample
	err := l.LoadInto("missing.toml", &v)
	assert.ErrorIs(t, err, ErrFileNotFound)

	for _, path := range []string{"unknown.toml", "unknown.yaml", "unknown.json", "broken.toml"} {
		err := l.LoadInto(path, &v)
		var perr *ParseError
		require.True(t, errors.As(err, &perr), path)
		assert.Equal(t, path, perr.Path)
	}

	err = l.LoadInto("broken.toml", &v)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Positive(t, perr.Line)
}

func TestEnvOverlay_Path(t *testing.T) {
	o := NewEnvOverlay("SWITCHBOARD_")
	assert.Equal(t, "events.queue_capacity", o.Path("SWITCHBOARD_EVENTS_QUEUE_CAPACITY"))
	assert.Equal(t, "log.level", o.Path("SWITCHBOARD_LOG_LEVEL"))
	assert.Equal(t, "log", o.Path("SWITCHBOARD_LOG"))
}

func TestEnvOverlay_Apply(t *testing.T) {
	doc := []byte(`{"events":{"queue_capacity":100},"log":{"level":"info"},` +
		`"security":{"allow_list":null,"enabled":false,"rate":0}}`)

	out, err := NewEnvOverlay("SWITCHBOARD_").Apply(doc, []string{
		"PATH=/bin",
		"SWITCHBOARD_EVENTS_QUEUE_CAPACITY=250",
		"SWITCHBOARD_LOG_LEVEL=debug",
		"SWITCHBOARD_SECURITY_ALLOW_LIST=user:*, filter:changed",
		"SWITCHBOARD_SECURITY_ENABLED=true",
		"SWITCHBOARD_SECURITY_RATE=2.5",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"events":{"queue_capacity":250},"log":{"level":"debug"},`+
		`"security":{"allow_list":["user:*","filter:changed"],"enabled":true,"rate":2.5}}`, string(out))
}

func TestEnvOverlay_RawJSON(t *testing.T) {
	doc := []byte(`{"state":{"initial":null}}`)
	out, err := NewEnvOverlay("SWITCHBOARD_").Apply(doc, []string{
		`SWITCHBOARD_STATE_INITIAL={"user":{"name":"ada"}}`,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":{"initial":{"user":{"name":"ada"}}}}`, string(out))
}

func TestEnvOverlay_Errors(t *testing.T) {
	doc := []byte(`{"events":{"queue_capacity":100},"log":{"enabled":false}}`)
	out, err := NewEnvOverlay("SWITCHBOARD_").Apply(doc, []string{
		"SWITCHBOARD_EVENTS_QUEUE_CAPACITY=lots",
		"SWITCHBOARD_LOG_ENABLED=maybe",
		"SWITCHBOARD_NOPE_SETTING=1",
	})
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 3)
	assert.JSONEq(t, string(doc), string(out), "failed variables leave the document untouched")

	var eerr *EnvError
	require.ErrorAs(t, err, &eerr)
	assert.Equal(t, "SWITCHBOARD_EVENTS_QUEUE_CAPACITY", eerr.Var)
}
