package common

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/kvkit/lib/registry"
	"github.com/ValentinKolb/kvkit/lib/store"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
store:
  type: RedisStore
  options:
    addr: localhost:6379
    password: hunter2
loader:
  strategy: replace
  source:
    path: /data/users.tsv
  parser:
    type: JSONParser
    options:
      key_fields: [tenant, id]
trigger:
  type: file
  debounce: 250ms
log:
  level: debug
  format: json
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kvkit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func load(t *testing.T, file string) (*Config, error) {
	t.Helper()
	v := viper.New()
	InitViper(v)
	return LoadConfig(v, file)
}

func TestLoadConfigDefaults(t *testing.T) {
	conf, err := load(t, "")
	require.NoError(t, err)

	assert.Equal(t, registry.ShardedStore, conf.Store.Type)
	assert.Equal(t, "inplace", conf.Loader.Strategy)
	assert.Equal(t, registry.LineParser, conf.Loader.Parser.Type)
	assert.True(t, conf.Loader.SkipDirtyRows)
	assert.Equal(t, 64*1024, conf.Loader.BufferMinSize)
	assert.Equal(t, 4*1024*1024, conf.Loader.BufferMaxSize)
	assert.Equal(t, 100*time.Millisecond, conf.Trigger.Debounce)
	assert.Equal(t, 5*time.Second, conf.Trigger.Interval)
	assert.Equal(t, "info", conf.Log.Level)
}

func TestLoadConfigFile(t *testing.T) {
	conf, err := load(t, writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, registry.RedisStore, conf.Store.Type)
	assert.Equal(t, "localhost:6379", conf.Store.Options["addr"])
	assert.Equal(t, "replace", conf.Loader.Strategy)
	assert.Equal(t, "/data/users.tsv", conf.Loader.Source.Path)
	assert.Equal(t, registry.JSONParser, conf.Loader.Parser.Type)
	assert.Equal(t, 250*time.Millisecond, conf.Trigger.Debounce)
	assert.Equal(t, "json", conf.Log.Format)
}

func TestLoadConfigEnvWins(t *testing.T) {
	t.Setenv("KVKIT_LOADER_SOURCE_PATH", "/override.tsv")
	t.Setenv("KVKIT_TRIGGER_TYPE", "none")

	conf, err := load(t, writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, "/override.tsv", conf.Loader.Source.Path)
	assert.Equal(t, "none", conf.Trigger.Type)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := load(t, filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, store.CodeIO, store.CodeOf(err))

	for name, content := range map[string]string{
		"strategy":            "loader:\n  strategy: merge\n",
		"format":              "loader:\n  format: csv\n",
		"trigger":             "trigger:\n  type: cron\n",
		"log level":           "log:\n  level: loud\n",
		"log format":          "log:\n  format: xml\n",
		"object":              "loader:\n  source:\n    type: object\n",
		"object+file trigger": "loader:\n  source:\n    type: object\n    bucket: b\n    object: o\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := load(t, writeConfig(t, content))
			require.Error(t, err)
			assert.Equal(t, store.CodeOther, store.CodeOf(err))
		})
	}
}

func TestConfigString(t *testing.T) {
	conf, err := load(t, writeConfig(t, sampleConfig))
	require.NoError(t, err)

	out := conf.String()
	for _, section := range []string{"STORE", "LOADER", "SOURCE", "TRIGGER", "LOGGING"} {
		assert.Contains(t, out, section)
	}
	assert.Contains(t, out, "/data/users.tsv")
	assert.Contains(t, out, "250ms")
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "METRICS")
}

func TestLoggerFactory(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerFactory(&buf, "json")("loader")

	l.Debugf("hidden %d", 1)
	l.Infof("reloaded %d records", 3)
	l.SetLevel(logger.ERROR)
	l.Warningf("hidden")
	l.Errorf("failed: %s", "boom")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "info", first["level"])
	assert.Equal(t, "loader", first["pkg"])
	assert.Equal(t, "reloaded 3 records", first["message"])

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "error", second["level"])

	assert.Panics(t, func() { l.Panicf("fatal") })
}

func TestParseLogLevel(t *testing.T) {
	for input, expected := range map[string]logger.LogLevel{
		"debug": logger.DEBUG, "INFO": logger.INFO, "warn": logger.WARNING, "warning": logger.WARNING, "error": logger.ERROR,
	} {
		level, err := parseLogLevel(input)
		require.NoError(t, err)
		assert.Equal(t, expected, level)
	}
	_, err := parseLogLevel("verbose")
	assert.Error(t, err)
}
