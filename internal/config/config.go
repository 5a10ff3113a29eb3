// Package config loads application configuration from config.yaml and
// the CAMPUS_* environment.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Extract    ExtractConfig    `yaml:"extract" mapstructure:"extract"`
	Merge      MergeConfig      `yaml:"merge" mapstructure:"merge"`
	Geocoder   GeocoderConfig   `yaml:"geocoder" mapstructure:"geocoder"`
	Scheduling SchedulingConfig `yaml:"scheduling" mapstructure:"scheduling"`
	FTP        FTPConfig        `yaml:"ftp" mapstructure:"ftp"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ExtractConfig configures drawing extraction.
type ExtractConfig struct {
	OutlineLayers []string `yaml:"outline_layers" mapstructure:"outline_layers"`
	LabelLayers   []string `yaml:"label_layers" mapstructure:"label_layers"`
	TitleLayers   []string `yaml:"title_layers" mapstructure:"title_layers"`
	Scale         float64  `yaml:"scale" mapstructure:"scale"`
	FloorTable    string   `yaml:"floor_table" mapstructure:"floor_table"`
	CategoryTable string   `yaml:"category_table" mapstructure:"category_table"`
}

// MergeConfig configures canonical view derivation.
type MergeConfig struct {
	NameKeywords []string `yaml:"name_keywords" mapstructure:"name_keywords"`
}

// GeocoderConfig configures the Nominatim-compatible geocoder.
type GeocoderConfig struct {
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	RPS       float64 `yaml:"rps" mapstructure:"rps"`
	UserAgent string  `yaml:"user_agent" mapstructure:"user_agent"`
}

// SchedulingConfig configures the timetabling feed.
type SchedulingConfig struct {
	BaseURL string  `yaml:"base_url" mapstructure:"base_url"`
	RPS     float64 `yaml:"rps" mapstructure:"rps"`
}

// FTPConfig configures the drawing drop share.
type FTPConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	Dir      string `yaml:"dir" mapstructure:"dir"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("CAMPUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "campus.db")
	v.SetDefault("extract.outline_layers", []string{"MURI", "ROOMS"})
	v.SetDefault("extract.label_layers", []string{"TESTI", "LABELS"})
	v.SetDefault("extract.title_layers", []string{"CARTIGLIO", "TITLE"})
	v.SetDefault("extract.scale", 0.3)
	v.SetDefault("extract.floor_table", "floors.yaml")
	v.SetDefault("extract.category_table", "categories.yaml")
	v.SetDefault("merge.name_keywords", []string{"edificio", "padiglione", "building"})
	v.SetDefault("geocoder.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocoder.rps", 1)
	v.SetDefault("geocoder.user_agent", "plan-cli")
	v.SetDefault("scheduling.rps", 5)
	v.SetDefault("ftp.dir", "/drawings")
	v.SetDefault("server.port", 8080)
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
