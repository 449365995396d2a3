package config

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Bundle BundleConfig `yaml:"bundle" mapstructure:"bundle"`
	Search SearchConfig `yaml:"search" mapstructure:"search"`
	Serve  ServeConfig  `yaml:"serve" mapstructure:"serve"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the writable dataset copy.
type StoreConfig struct {
	DataDir  string `yaml:"data_dir" mapstructure:"data_dir"`
	FileName string `yaml:"file_name" mapstructure:"file_name"`
}

// WritablePath returns the full path of the writable dataset file.
func (c StoreConfig) WritablePath() string {
	return filepath.Join(c.DataDir, c.FileName)
}

// BundleConfig configures resolution of the read-only shipped snapshot.
type BundleConfig struct {
	// AssetName is looked up under each SearchDirs entry in order.
	AssetName  string   `yaml:"asset_name" mapstructure:"asset_name"`
	SearchDirs []string `yaml:"search_dirs" mapstructure:"search_dirs"`
	// DirectPath is the fallback when the asset-name lookup finds nothing.
	DirectPath string `yaml:"direct_path" mapstructure:"direct_path"`
}

// SearchConfig configures the ranked free-text search.
type SearchConfig struct {
	DefaultLimit    int `yaml:"default_limit" mapstructure:"default_limit"`
	OverfetchFactor int `yaml:"overfetch_factor" mapstructure:"overfetch_factor"`
	// RankConfigPath optionally overrides the built-in ranking heuristics.
	RankConfigPath string `yaml:"rank_config_path" mapstructure:"rank_config_path"`
}

// ServeConfig configures the local debug HTTP server.
type ServeConfig struct {
	Port      int     `yaml:"port" mapstructure:"port"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst int     `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("NUTRASAFE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.data_dir", "data")
	v.SetDefault("store.file_name", "foods.db")
	v.SetDefault("bundle.asset_name", "foods_bundled.db")
	v.SetDefault("bundle.search_dirs", []string{"assets", "bundle"})
	v.SetDefault("bundle.direct_path", filepath.Join("assets", "foods_bundled.db"))
	v.SetDefault("search.default_limit", 20)
	v.SetDefault("search.overfetch_factor", 2)
	v.SetDefault("serve.port", 8080)
	v.SetDefault("serve.rate_limit", 50)
	v.SetDefault("serve.rate_burst", 100)
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
