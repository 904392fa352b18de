// Package config loads catalog-reconcile settings from config.yaml, a .env
// file and CATALOG_* environment variables.
package config

import (
	"errors"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Log            LogConfig               `yaml:"log" mapstructure:"log"`
	Paths          PathsConfig             `yaml:"paths" mapstructure:"paths"`
	Sources        map[string]SourceConfig `yaml:"sources" mapstructure:"sources"`
	Retry          RetryConfig             `yaml:"retry" mapstructure:"retry"`
	Cache          CacheConfig             `yaml:"cache" mapstructure:"cache"`
	Manifest       ManifestConfig          `yaml:"manifest" mapstructure:"manifest"`
	Store          StoreConfig             `yaml:"store" mapstructure:"store"`
	Cluster        ClusterConfig           `yaml:"cluster" mapstructure:"cluster"`
	OpeningBalance OpeningBalanceConfig    `yaml:"opening_balance" mapstructure:"opening_balance"`
	Reconcile      ReconcileConfig         `yaml:"reconcile" mapstructure:"reconcile"`
	Canon          CanonConfig             `yaml:"canon" mapstructure:"canon"`
	Monitoring     MonitoringConfig        `yaml:"monitoring" mapstructure:"monitoring"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// PathsConfig locates the pipeline directories.
type PathsConfig struct {
	DataDir      string `yaml:"data_dir" mapstructure:"data_dir"`
	MirrorDir    string `yaml:"mirror_dir" mapstructure:"mirror_dir"`
	StagingDir   string `yaml:"staging_dir" mapstructure:"staging_dir"`
	ValidatedDir string `yaml:"validated_dir" mapstructure:"validated_dir"`
	RejectedDir  string `yaml:"rejected_dir" mapstructure:"rejected_dir"`
	OutputDir    string `yaml:"output_dir" mapstructure:"output_dir"`
}

// Source types.
const (
	SourcePreprocessed = "preprocessed"
	SourceRaw          = "raw"
)

// SourceConfig describes one logical source of monthly exports.
type SourceConfig struct {
	FolderIDs    []string `yaml:"folder_ids" mapstructure:"folder_ids"`
	Tabs         []string `yaml:"tabs" mapstructure:"tabs"`
	OutputSubdir string   `yaml:"output_subdir" mapstructure:"output_subdir"`
	SourceType   string   `yaml:"source_type" mapstructure:"source_type"`
}

// Preprocessed reports whether the transform step is skipped.
func (s SourceConfig) Preprocessed() bool { return s.SourceType != SourceRaw }

// RetryConfig configures calls to the remote spreadsheet service.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" mapstructure:"base_delay"`
	MaxBackoff  time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`
	MinInterval time.Duration `yaml:"min_interval" mapstructure:"min_interval"`
}

// CacheConfig sizes the staging parse cache.
type CacheConfig struct {
	Capacity int `yaml:"capacity" mapstructure:"capacity"`
}

// ManifestConfig configures the remote-listing cache.
type ManifestConfig struct {
	TTLHours int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
	Path     string `yaml:"path" mapstructure:"path"`
}

// TTL returns the manifest time-to-live.
func (m ManifestConfig) TTL() time.Duration { return time.Duration(m.TTLHours) * time.Hour }

// StoreConfig configures the run-history database.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ClusterConfig configures name similarity clustering.
type ClusterConfig struct {
	Threshold float64 `yaml:"threshold" mapstructure:"threshold"`
}

// OpeningBalanceConfig configures synthetic opening-balance receipts.
type OpeningBalanceConfig struct {
	ReceiptDate  string  `yaml:"receipt_date" mapstructure:"receipt_date"`
	CodePrefix   string  `yaml:"code_prefix" mapstructure:"code_prefix"`
	Supplier     string  `yaml:"supplier" mapstructure:"supplier"`
	TolerancePct float64 `yaml:"tolerance_pct" mapstructure:"tolerance_pct"`
}

// Receipt parses ReceiptDate. An empty value yields the zero time, which
// means the date is derived from the data.
func (o OpeningBalanceConfig) Receipt() (time.Time, error) {
	if o.ReceiptDate == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", o.ReceiptDate)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "config: opening_balance.receipt_date %q", o.ReceiptDate)
	}
	return t, nil
}

// ReconcileConfig configures cross-source checks.
type ReconcileConfig struct {
	QtyTolerance       float64 `yaml:"qty_tolerance" mapstructure:"qty_tolerance"`
	ValueTolerance     float64 `yaml:"value_tolerance" mapstructure:"value_tolerance"`
	DiscrepancyPattern string  `yaml:"discrepancy_pattern" mapstructure:"discrepancy_pattern"`
}

// CanonConfig points at an optional extra canonicalizer dictionary.
type CanonConfig struct {
	DictionaryPath string `yaml:"dictionary_path" mapstructure:"dictionary_path"`
}

// MonitoringConfig configures run-health alerting.
type MonitoringConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	// DiscrepancyThreshold alerts when the latest completed run flagged
	// more discrepancies. Zero disables the check.
	DiscrepancyThreshold int `yaml:"discrepancy_threshold" mapstructure:"discrepancy_threshold"`
	// QuarantineThreshold alerts when more files were quarantined within
	// the window. Zero disables the check.
	QuarantineThreshold int `yaml:"quarantine_threshold" mapstructure:"quarantine_threshold"`
}

// DefaultSource is the source a run uses when none is named.
const DefaultSource = "import_export_receipts"

// Load reads configuration from file and environment. A .env file in the
// working directory is applied to the environment first.
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CATALOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("paths.data_dir", "data")
	v.SetDefault("paths.mirror_dir", "data/drive")
	v.SetDefault("paths.staging_dir", "data/01-staging")
	v.SetDefault("paths.validated_dir", "data/02-validated")
	v.SetDefault("paths.rejected_dir", "data/00-rejected")
	v.SetDefault("paths.output_dir", "data/03-output")
	v.SetDefault("sources", map[string]any{
		DefaultSource: map[string]any{
			"folder_ids":    []string{},
			"tabs":          []string{"CT.NHAP", "CT.XUAT", "XNT"},
			"output_subdir": "import_export",
			"source_type":   SourcePreprocessed,
		},
	})
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay", "1s")
	v.SetDefault("retry.max_backoff", "30s")
	v.SetDefault("retry.min_interval", "500ms")
	v.SetDefault("cache.capacity", 50)
	v.SetDefault("manifest.ttl_hours", 24)
	v.SetDefault("manifest.path", "data/.manifest.db")
	v.SetDefault("store.database_url", "data/.catalog.db")
	v.SetDefault("cluster.threshold", 0.8)
	v.SetDefault("opening_balance.receipt_date", "")
	v.SetDefault("opening_balance.code_prefix", "PN-OB")
	v.SetDefault("opening_balance.supplier", "Kho đầu kỳ")
	v.SetDefault("opening_balance.tolerance_pct", 5.0)
	v.SetDefault("reconcile.qty_tolerance", 0.01)
	v.SetDefault("reconcile.value_tolerance", 1.0)
	v.SetDefault("reconcile.discrepancy_pattern", `(?i)discrepancy|chênh_lệch|_diff$`)
	v.SetDefault("canon.dictionary_path", "")
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 168)
	v.SetDefault("monitoring.failure_rate_threshold", 0.2)
	v.SetDefault("monitoring.discrepancy_threshold", 0)
	v.SetDefault("monitoring.quarantine_threshold", 0)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return eris.Wrapf(err, "config: stat %s", path)
	}
	return eris.Wrapf(godotenv.Load(path), "config: load %s", path)
}

// Source returns the named source. Unknown names are an error.
func (c *Config) Source(name string) (SourceConfig, error) {
	s, ok := c.Sources[name]
	if !ok {
		return SourceConfig{}, eris.Errorf("config: unknown source %q (known: %s)", name, strings.Join(c.SourceNames(), ", "))
	}
	return s, nil
}

// SourceNames lists configured sources in sorted order.
func (c *Config) SourceNames() []string {
	names := make([]string, 0, len(c.Sources))
	for n := range c.Sources {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Validate checks value ranges. All problems are reported together.
func (c *Config) Validate() error {
	var errs []string

	if len(c.Sources) == 0 {
		errs = append(errs, "at least one source is required")
	}
	for _, name := range c.SourceNames() {
		switch c.Sources[name].SourceType {
		case "", SourcePreprocessed, SourceRaw:
		default:
			errs = append(errs, "sources."+name+".source_type must be preprocessed or raw")
		}
	}
	if c.Cluster.Threshold <= 0 || c.Cluster.Threshold > 1 {
		errs = append(errs, "cluster.threshold must be in (0, 1]")
	}
	if c.Cache.Capacity < 1 {
		errs = append(errs, "cache.capacity must be >= 1")
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, "retry.max_attempts must be >= 1")
	}
	if c.Manifest.TTLHours < 0 {
		errs = append(errs, "manifest.ttl_hours must be >= 0")
	}
	if c.OpeningBalance.TolerancePct < 0 {
		errs = append(errs, "opening_balance.tolerance_pct must be >= 0")
	}
	if c.OpeningBalance.CodePrefix == "" {
		errs = append(errs, "opening_balance.code_prefix is required")
	}
	if _, err := c.OpeningBalance.Receipt(); err != nil {
		errs = append(errs, "opening_balance.receipt_date must be YYYY-MM-DD")
	}
	if c.Reconcile.QtyTolerance < 0 || c.Reconcile.ValueTolerance < 0 {
		errs = append(errs, "reconcile tolerances must be >= 0")
	}
	if m := c.Monitoring.FailureRateThreshold; m < 0 || m > 1 {
		errs = append(errs, "monitoring.failure_rate_threshold must be in [0, 1]")
	}

	if len(errs) > 0 {
		return eris.New("config: " + strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
