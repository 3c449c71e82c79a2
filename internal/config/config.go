package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Meta      MetaConfig      `yaml:"meta" mapstructure:"meta"`
	Accounts  []Account       `yaml:"accounts" mapstructure:"accounts"`
	Paths     PathsConfig     `yaml:"paths" mapstructure:"paths"`
	Sync      SyncConfig      `yaml:"sync" mapstructure:"sync"`
	Report    ReportConfig    `yaml:"report" mapstructure:"report"`
	Transform TransformConfig `yaml:"transform" mapstructure:"transform"`
	Spend     SpendConfig     `yaml:"spend" mapstructure:"spend"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Warehouse WarehouseConfig `yaml:"warehouse" mapstructure:"warehouse"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// MetaConfig configures the Meta Marketing API client.
type MetaConfig struct {
	AppID       string `yaml:"app_id" mapstructure:"app_id"`
	AppSecret   string `yaml:"app_secret" mapstructure:"app_secret"`
	AccessToken string `yaml:"access_token" mapstructure:"access_token"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	APIVersion  string `yaml:"api_version" mapstructure:"api_version"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// Account maps an ad account id to the label stored in the datasets.
type Account struct {
	ID    string `yaml:"id" mapstructure:"id"`
	Label string `yaml:"label" mapstructure:"label"`
}

// PathsConfig locates the datasets and generated artifacts.
type PathsConfig struct {
	Dataset        string `yaml:"dataset" mapstructure:"dataset"`
	VideoDataset   string `yaml:"video_dataset" mapstructure:"video_dataset"`
	InsightDir     string `yaml:"insight_dir" mapstructure:"insight_dir"`
	DownstreamCSV  string `yaml:"downstream_csv" mapstructure:"downstream_csv"`
	DownstreamXLSX string `yaml:"downstream_xlsx" mapstructure:"downstream_xlsx"`
	SpendXLSX      string `yaml:"spend_xlsx" mapstructure:"spend_xlsx"`
}

// SyncConfig controls extraction windows, pacing and retries.
type SyncConfig struct {
	WindowDays      int  `yaml:"window_days" mapstructure:"window_days"`
	CampaignPauseMs int  `yaml:"campaign_pause_ms" mapstructure:"campaign_pause_ms"`
	VideoPauseMs    int  `yaml:"video_pause_ms" mapstructure:"video_pause_ms"`
	MaxAttempts     int  `yaml:"max_attempts" mapstructure:"max_attempts"`
	BackoffMs       int  `yaml:"backoff_ms" mapstructure:"backoff_ms"`
	SkipVideo       bool `yaml:"skip_video" mapstructure:"skip_video"`
}

// CampaignPause is the minimum spacing between campaign-level requests.
func (s SyncConfig) CampaignPause() time.Duration {
	return time.Duration(s.CampaignPauseMs) * time.Millisecond
}

// VideoPause is the minimum spacing between ad-level requests.
func (s SyncConfig) VideoPause() time.Duration {
	return time.Duration(s.VideoPauseMs) * time.Millisecond
}

// Backoff is the base retry delay.
func (s SyncConfig) Backoff() time.Duration {
	return time.Duration(s.BackoffMs) * time.Millisecond
}

// ReportConfig configures the weekly comparison report.
type ReportConfig struct {
	// Period is "next", "latest" or an explicit period label.
	Period string `yaml:"period" mapstructure:"period"`
	Scale  int    `yaml:"scale" mapstructure:"scale"`
}

// TransformConfig configures the downstream reshaping.
type TransformConfig struct {
	AccountRenames map[string]string `yaml:"account_renames" mapstructure:"account_renames"`
	WriteXLSX      bool              `yaml:"write_xlsx" mapstructure:"write_xlsx"`
}

// SpendConfig configures the monthly spend workbook.
type SpendConfig struct {
	Cutoff     string `yaml:"cutoff" mapstructure:"cutoff"`
	ByAccount  bool   `yaml:"by_account" mapstructure:"by_account"`
	ByCampaign bool   `yaml:"by_campaign" mapstructure:"by_campaign"`
}

// StoreConfig configures the run ledger.
type StoreConfig struct {
	DSN string `yaml:"dsn" mapstructure:"dsn"`
}

// WarehouseConfig configures the Postgres export target.
type WarehouseConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Table       string `yaml:"table" mapstructure:"table"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// legacyEnv lists environment variables older deployments export
// without the application prefix.
var legacyEnv = map[string]string{
	"meta.app_id":       "META_APP_ID",
	"meta.app_secret":   "META_APP_SECRET",
	"meta.access_token": "META_ACCESS_TOKEN",
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ADREPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		envKey := "ADREPORT_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, legacy); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

	// Defaults
	v.SetDefault("meta.base_url", "https://graph.facebook.com")
	v.SetDefault("meta.api_version", "v21.0")
	v.SetDefault("meta.timeout_secs", 60)
	v.SetDefault("accounts", []map[string]any{
		{"id": "act_266875535124705", "label": "tla"},
		{"id": "act_172227634833453", "label": "illapa"},
	})
	v.SetDefault("paths.dataset", "datasets/data/campaign_1d.csv")
	v.SetDefault("paths.video_dataset", "datasets/data/campaign_video_3s_100pct_1d_ads.csv")
	v.SetDefault("paths.insight_dir", "insight")
	v.SetDefault("paths.downstream_csv", "datasets/powerbi/primera_tabla.csv")
	v.SetDefault("paths.downstream_xlsx", "datasets/powerbi/primera_tabla.xlsx")
	v.SetDefault("paths.spend_xlsx", "spend/raw_spend_monthly.xlsx")
	v.SetDefault("sync.window_days", 7)
	v.SetDefault("sync.campaign_pause_ms", 5000)
	v.SetDefault("sync.video_pause_ms", 1000)
	v.SetDefault("sync.max_attempts", 3)
	v.SetDefault("sync.backoff_ms", 2000)
	v.SetDefault("report.period", "next")
	v.SetDefault("report.scale", 2)
	v.SetDefault("transform.account_renames", map[string]string{"illapa": "illa"})
	v.SetDefault("spend.cutoff", "2026-01-01")
	v.SetDefault("spend.by_account", true)
	v.SetDefault("spend.by_campaign", false)
	v.SetDefault("store.dsn", "adreport.db")
	v.SetDefault("warehouse.table", "campaign_daily")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks that the settings a command depends on are present.
func (c *Config) Validate(command string) error {
	var missing []string
	switch command {
	case "sync", "run":
		if c.Meta.AccessToken == "" {
			missing = append(missing, "meta.access_token")
		}
		if c.Meta.AppSecret == "" {
			missing = append(missing, "meta.app_secret")
		}
		if len(c.Accounts) == 0 {
			missing = append(missing, "accounts")
		}
		for i, a := range c.Accounts {
			if a.ID == "" || a.Label == "" {
				missing = append(missing, fmt.Sprintf("accounts[%d]", i))
			}
		}
		if c.Sync.WindowDays < 1 {
			return eris.Errorf("config: sync.window_days must be at least 1, got %d", c.Sync.WindowDays)
		}
	case "export":
		if c.Warehouse.DatabaseURL == "" {
			missing = append(missing, "warehouse.database_url")
		}
		if c.Warehouse.Table == "" {
			missing = append(missing, "warehouse.table")
		}
	}
	if c.Paths.Dataset == "" {
		missing = append(missing, "paths.dataset")
	}
	if len(missing) > 0 {
		return eris.Errorf("config: missing required settings for %s: %s", command, strings.Join(missing, ", "))
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
