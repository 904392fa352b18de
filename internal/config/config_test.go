package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "data/01-staging", cfg.Paths.StagingDir)
	assert.Equal(t, "data/00-rejected", cfg.Paths.RejectedDir)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Retry.BaseDelay)
	assert.Equal(t, 500*time.Millisecond, cfg.Retry.MinInterval)
	assert.Equal(t, 50, cfg.Cache.Capacity)
	assert.Equal(t, 24*time.Hour, cfg.Manifest.TTL())
	assert.InDelta(t, 0.8, cfg.Cluster.Threshold, 1e-9)
	assert.Equal(t, "PN-OB", cfg.OpeningBalance.CodePrefix)
	assert.Equal(t, "Kho đầu kỳ", cfg.OpeningBalance.Supplier)
	assert.InDelta(t, 5.0, cfg.OpeningBalance.TolerancePct, 1e-9)
	assert.InDelta(t, 0.01, cfg.Reconcile.QtyTolerance, 1e-9)
	assert.InDelta(t, 1.0, cfg.Reconcile.ValueTolerance, 1e-9)
	assert.Equal(t, "data/drive", cfg.Paths.MirrorDir)
	assert.Equal(t, 30*time.Second, cfg.Retry.MaxBackoff)
	assert.Equal(t, 168, cfg.Monitoring.LookbackWindowHours)
	assert.InDelta(t, 0.2, cfg.Monitoring.FailureRateThreshold, 1e-9)

	src, err := cfg.Source(DefaultSource)
	require.NoError(t, err)
	assert.Equal(t, []string{"CT.NHAP", "CT.XUAT", "XNT"}, src.Tabs)
	assert.Equal(t, "import_export", src.OutputSubdir)
	assert.True(t, src.Preprocessed())

	assert.NoError(t, cfg.Validate())
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
  format: console
cluster:
  threshold: 0.75
opening_balance:
  receipt_date: "2020-03-31"
sources:
  import_export_receipts:
    folder_ids: ["f1", "f2"]
    tabs: ["CT.NHAP", "XNT"]
    output_subdir: ie
    source_type: raw
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.InDelta(t, 0.75, cfg.Cluster.Threshold, 1e-9)
	src, err := cfg.Source(DefaultSource)
	require.NoError(t, err)
	assert.Equal(t, []string{"f1", "f2"}, src.FolderIDs)
	assert.False(t, src.Preprocessed())

	d, err := cfg.OpeningBalance.Receipt()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, 3, 31, 0, 0, 0, 0, time.UTC), d)

	// Defaults still apply for unset values
	assert.Equal(t, 50, cfg.Cache.Capacity)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log:\n  level: debug\n"), 0o644))

	t.Setenv("CATALOG_LOG_LEVEL", "warn")
	t.Setenv("CATALOG_CACHE_CAPACITY", "7")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 7, cfg.Cache.Capacity)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CATALOG_OPENING_BALANCE_CODE_PREFIX=OB\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("CATALOG_OPENING_BALANCE_CODE_PREFIX") }) //nolint:errcheck

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "OB", cfg.OpeningBalance.CodePrefix)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log: [unclosed"), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestSourceUnknown(t *testing.T) {
	cfg := &Config{Sources: map[string]SourceConfig{"b": {}, "a": {}}}
	_, err := cfg.Source("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown source "nope" (known: a, b)`)
}

func validDefaults() *Config {
	return &Config{
		Sources:        map[string]SourceConfig{DefaultSource: {SourceType: SourcePreprocessed}},
		Retry:          RetryConfig{MaxAttempts: 3},
		Cache:          CacheConfig{Capacity: 50},
		Manifest:       ManifestConfig{TTLHours: 24},
		Cluster:        ClusterConfig{Threshold: 0.8},
		OpeningBalance: OpeningBalanceConfig{CodePrefix: "PN-OB", TolerancePct: 5},
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validDefaults().Validate())

	cfg := validDefaults()
	cfg.Cluster.Threshold = 1.5
	cfg.Cache.Capacity = 0
	cfg.OpeningBalance.ReceiptDate = "31/03/2020"
	cfg.Sources["x"] = SourceConfig{SourceType: "cooked"}
	cfg.Monitoring.FailureRateThreshold = 2

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cluster.threshold must be in (0, 1]")
	assert.Contains(t, err.Error(), "cache.capacity must be >= 1")
	assert.Contains(t, err.Error(), "receipt_date must be YYYY-MM-DD")
	assert.Contains(t, err.Error(), "sources.x.source_type")
	assert.Contains(t, err.Error(), "monitoring.failure_rate_threshold")

	cfg = validDefaults()
	cfg.Sources = nil
	assert.ErrorContains(t, cfg.Validate(), "at least one source")
}

func TestInitLoggerConsole(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	assert.Error(t, InitLogger(LogConfig{Level: "invalid", Format: "json"}))
}
