package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Assets      AssetsConfig      `yaml:"assets" mapstructure:"assets"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Interaction InteractionConfig `yaml:"interaction" mapstructure:"interaction"`
	Sidebar     SidebarConfig     `yaml:"sidebar" mapstructure:"sidebar"`
	Format      FormatConfig      `yaml:"format" mapstructure:"format"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	StaticDir      string   `yaml:"static_dir" mapstructure:"static_dir"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	SessionTTLMins int      `yaml:"session_ttl_mins" mapstructure:"session_ttl_mins"`
	MapConfig      string   `yaml:"map_config" mapstructure:"map_config"`
}

// AssetsConfig names where the static map data comes from.
type AssetsConfig struct {
	// LookupSource is "file" (LookupPath) or "store".
	LookupSource string `yaml:"lookup_source" mapstructure:"lookup_source"`
	// Locations below may be file paths or http(s)/ftp URLs.
	LookupPath   string `yaml:"lookup_path" mapstructure:"lookup_path"`
	StatesPath   string `yaml:"states_path" mapstructure:"states_path"`
	ZipcodesPath string `yaml:"zipcodes_path" mapstructure:"zipcodes_path"`
	TimeoutSecs  int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent    string `yaml:"user_agent" mapstructure:"user_agent"`
}

// StoreConfig configures the lookup store.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// InteractionConfig tunes map click handling.
type InteractionConfig struct {
	StateClickIntervalMS int     `yaml:"state_click_interval_ms" mapstructure:"state_click_interval_ms"`
	FitPadding           float64 `yaml:"fit_padding" mapstructure:"fit_padding"`
	FitDurationMS        int     `yaml:"fit_duration_ms" mapstructure:"fit_duration_ms"`
}

// SidebarConfig bounds the resizable panel.
type SidebarConfig struct {
	MinHeight         float64 `yaml:"min_height" mapstructure:"min_height"`
	MaxHeightFraction float64 `yaml:"max_height_fraction" mapstructure:"max_height_fraction"`
}

// FormatConfig configures value formatting.
type FormatConfig struct {
	Locale string `yaml:"locale" mapstructure:"locale"`
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
	v.SetEnvPrefix("ZIPMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.static_dir", "web")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.session_ttl_mins", 30)
	v.SetDefault("assets.lookup_source", "file")
	v.SetDefault("assets.lookup_path", "data/state_zipcodes.json")
	v.SetDefault("assets.states_path", "https://raw.githubusercontent.com/PublicaMundi/MappingAPI/master/data/geojson/us-states.json")
	v.SetDefault("assets.zipcodes_path", "data/zip3_with_spending.geojson")
	v.SetDefault("assets.timeout_secs", 30)
	v.SetDefault("assets.user_agent", "zipmap/1.0")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "zipmap.db")
	v.SetDefault("interaction.state_click_interval_ms", 200)
	v.SetDefault("interaction.fit_padding", 0.15)
	v.SetDefault("interaction.fit_duration_ms", 700)
	v.SetDefault("sidebar.min_height", 120)
	v.SetDefault("sidebar.max_height_fraction", 0.96)
	v.SetDefault("format.locale", "en-US")
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

// Validate checks the settings a command mode depends on. Every problem is
// reported, not just the first.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		if c.Server.SessionTTLMins <= 0 {
			errs = append(errs, "server.session_ttl_mins must be > 0")
		}
		switch c.Assets.LookupSource {
		case "file":
			if c.Assets.LookupPath == "" {
				errs = append(errs, "assets.lookup_path is required when assets.lookup_source is file")
			}
		case "store":
			errs = append(errs, c.validateStore()...)
		default:
			errs = append(errs, fmt.Sprintf("assets.lookup_source must be file or store, got %q", c.Assets.LookupSource))
		}
		if c.Interaction.FitPadding < 0 || c.Interaction.FitPadding >= 0.5 {
			errs = append(errs, "interaction.fit_padding must be in [0, 0.5)")
		}
		if c.Sidebar.MaxHeightFraction <= 0 || c.Sidebar.MaxHeightFraction > 1 {
			errs = append(errs, "sidebar.max_height_fraction must be in (0, 1]")
		}
		if c.Sidebar.MinHeight < 0 {
			errs = append(errs, "sidebar.min_height must be >= 0")
		}
	case "lookup":
		errs = append(errs, c.validateStore()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateStore() []string {
	var errs []string
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}
	return errs
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
