package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devforge-io/devforge/internal/model"
)

func TestLoad_DefaultsWithoutConfigFile(t *testing.T) {
	// Point the config search at an empty directory so no real user
	// config leaks into the test.
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultDiscoveryTag, cfg.DiscoveryTag)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL)
	assert.Equal(t, "cli", cfg.DefaultTemplate)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.RemoteFeeds)
	assert.Empty(t, cfg.LocalSources)
}

func TestLoad_ExplicitConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `remote_feeds:
  - https://feed.example.com/search
local_sources:
  - /var/packages
discovery_tag: custom-tag
cache_ttl: 1h
default_template: api
log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://feed.example.com/search"}, cfg.RemoteFeeds)
	assert.Equal(t, []string{"/var/packages"}, cfg.LocalSources)
	assert.Equal(t, "custom-tag", cfg.DiscoveryTag)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, "api", cfg.DefaultTemplate)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_MissingExplicitFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err, "an explicitly named config file must exist")
}

func TestLoad_MalformedConfigFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("discovery_tag: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("DEVFORGE_DEFAULT_TEMPLATE", "webapp")
	t.Setenv("DEVFORGE_DISCOVERY_TAG", "team-tag")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "webapp", cfg.DefaultTemplate)
	assert.Equal(t, "team-tag", cfg.DiscoveryTag)
}

func TestSources_LocalFirst(t *testing.T) {
	cfg := Config{
		RemoteFeeds:  []string{"https://a.example.com", "https://b.example.com"},
		LocalSources: []string{"/pkg"},
	}

	sources := cfg.Sources()
	require.Len(t, sources, 3)
	assert.Equal(t, model.SourceRef{Kind: model.SourceLocal, Location: "/pkg"}, sources[0])
	assert.Equal(t, model.SourceKind(model.SourceRemote), sources[1].Kind)
}

func TestDir_UsesXDGConfigHome(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		t.Skip("XDG convention applies to neither Windows nor macOS")
	}
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", base)

	dir, err := Dir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, AppName), dir)
}
