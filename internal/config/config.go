package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Compositor CompositorConfig `mapstructure:"compositor"`
	Demo       DemoConfig       `mapstructure:"demo"`
}

type ServerConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	ListenAddr      string        `mapstructure:"listen_addr"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	DebugEndpoints  bool          `mapstructure:"debug_endpoints"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`   // json or text
	Output     string `mapstructure:"output"`   // stdout, stderr, or file path
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	Port    int    `mapstructure:"port"`
}

type CompositorConfig struct {
	// Output frame geometry. Inputs are scaled to fit.
	OutputWidth  int `mapstructure:"output_width"`
	OutputHeight int `mapstructure:"output_height"`

	// Number of composited frames that may be in flight downstream
	// before the compositor stops producing new ones.
	OutputCapacity int `mapstructure:"output_capacity"`

	// Scheduler selects where blend work executes: "shared" runs all
	// blends on one dedicated locked thread, "direct" runs them on the
	// compose worker and relies on fences for cross-context ordering.
	Scheduler string `mapstructure:"scheduler"`

	// TexturePoolSize is the number of output textures kept for reuse.
	TexturePoolSize int `mapstructure:"texture_pool_size"`
}

type DemoConfig struct {
	Sources []DemoSourceConfig `mapstructure:"sources"`
}

type DemoSourceConfig struct {
	Name      string  `mapstructure:"name"`
	Width     int     `mapstructure:"width"`
	Height    int     `mapstructure:"height"`
	FrameRate float64 `mapstructure:"frame_rate"`
	Frames    int     `mapstructure:"frames"`
	Pattern   string  `mapstructure:"pattern"` // solid, bars, checker
}

func Load(configPath string) (*Config, error) {
	viper.SetConfigType("yaml")
	viper.SetConfigFile(configPath)

	// Environment variable override
	viper.SetEnvPrefix("BLEND")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Defaults
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Default returns a configuration populated with defaults only, without
// reading a file. Used by tests and embedding callers.
func Default() *Config {
	setDefaults()

	var cfg Config
	// Defaults only contain well-formed scalar keys.
	_ = viper.Unmarshal(&cfg)
	return &cfg
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.enabled", true)
	viper.SetDefault("server.listen_addr", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.shutdown_timeout", "10s")
	viper.SetDefault("server.debug_endpoints", false)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
	viper.SetDefault("logging.max_size", 100)
	viper.SetDefault("logging.max_backups", 5)
	viper.SetDefault("logging.max_age", 30)

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")
	viper.SetDefault("metrics.port", 9090)

	// Compositor defaults
	viper.SetDefault("compositor.output_width", 1280)
	viper.SetDefault("compositor.output_height", 720)
	viper.SetDefault("compositor.output_capacity", 1)
	viper.SetDefault("compositor.scheduler", "shared")
	viper.SetDefault("compositor.texture_pool_size", 4)
}
