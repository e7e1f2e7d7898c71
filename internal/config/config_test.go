package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(listenAddrEnv, "")
	t.Setenv(logLevelEnv, "")
	t.Setenv(refreshIntervalEnv, "")
	t.Setenv(shortageFeedURLEnv, "")

	cfg := Load()

	assert.Equal(t, ":8000", cfg.Server.Address)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 15*time.Minute, cfg.Refresh.Interval)
	assert.Equal(t, 5*time.Second, cfg.Refresh.RetryDelay)
	assert.Equal(t, 5, cfg.Refresh.MaxConcurrentRequests)
	assert.Equal(t, "windows-1252", cfg.ShortageFeed.Encoding)
	require.Len(t, cfg.Sites, 2)
	assert.Equal(t, "pei", cfg.Sites[0].Scanner)
	assert.Equal(t, "bfarm", cfg.Sites[1].Scanner)
	for _, site := range cfg.Sites {
		assert.Contains(t, site.PageURL, "{page}")
		assert.Equal(t, 200, site.MaxPages)
	}
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  address: ":9000"
refresh:
  interval: 1h
  maxConcurrentRequests: 2
shortageFeed:
  encoding: utf-8
sites:
  - scanner: bfarm
    pageUrl: "http://local/list?page={page}"
    baseUrl: "http://local/"
`), 0o600))

	t.Setenv(configPathEnv, path)
	t.Setenv(listenAddrEnv, "")
	t.Setenv(logLevelEnv, "debug")
	t.Setenv(refreshIntervalEnv, "")
	t.Setenv(shortageFeedURLEnv, "http://feed.local/csv")

	cfg := Load()

	assert.Equal(t, ":9000", cfg.Server.Address)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, time.Hour, cfg.Refresh.Interval)
	assert.Equal(t, 5*time.Second, cfg.Refresh.RetryDelay)
	assert.Equal(t, 2, cfg.Refresh.MaxConcurrentRequests)
	assert.Equal(t, "utf-8", cfg.ShortageFeed.Encoding)
	assert.Equal(t, "http://feed.local/csv", cfg.ShortageFeed.URL)
	require.Len(t, cfg.Sites, 1)
	assert.Equal(t, "bfarm", cfg.Sites[0].Name)
	assert.Equal(t, 200, cfg.Sites[0].MaxPages)
}

func TestLoadFallsBackOnBadInput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unterminated"), 0o600))

	t.Setenv(configPathEnv, path)
	t.Setenv(listenAddrEnv, "")
	t.Setenv(logLevelEnv, "")
	t.Setenv(refreshIntervalEnv, "not-a-duration")
	t.Setenv(shortageFeedURLEnv, "")

	cfg := Load()

	assert.Equal(t, ":8000", cfg.Server.Address)
	assert.Equal(t, 15*time.Minute, cfg.Refresh.Interval)
}

func TestNormalizeRejectsNonPositiveInterval(t *testing.T) {
	cfg := defaultConfig()
	cfg.Refresh.Interval = -time.Second
	cfg.Refresh.MaxConcurrentRequests = 0

	cfg.normalize()

	assert.Equal(t, defaultInterval, cfg.Refresh.Interval)
	assert.Equal(t, defaultMaxConcurrent, cfg.Refresh.MaxConcurrentRequests)
}

func TestLoadRevertsUnknownEncoding(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
refresh:
  retryDelay: -1s
shortageFeed:
  encoding: bogus-charset
`), 0o600))

	t.Setenv(configPathEnv, path)
	t.Setenv(listenAddrEnv, "")
	t.Setenv(logLevelEnv, "")
	t.Setenv(refreshIntervalEnv, "")
	t.Setenv(shortageFeedURLEnv, "")

	cfg := Load()

	assert.Equal(t, "windows-1252", cfg.ShortageFeed.Encoding)
	assert.Equal(t, 5*time.Second, cfg.Refresh.RetryDelay)
}

func TestNormalizeKeepsKnownEncoding(t *testing.T) {
	cfg := defaultConfig()
	cfg.ShortageFeed.Encoding = "ISO-8859-1"

	cfg.normalize()

	assert.Equal(t, "ISO-8859-1", cfg.ShortageFeed.Encoding)
}
