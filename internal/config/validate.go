package config

import (
	"fmt"
)

func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config: %w", err)
	}

	if err := c.Compositor.Validate(); err != nil {
		return fmt.Errorf("compositor config: %w", err)
	}

	if err := c.Demo.Validate(); err != nil {
		return fmt.Errorf("demo config: %w", err)
	}

	return nil
}

func (s *ServerConfig) Validate() error {
	if !s.Enabled {
		return nil
	}

	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("invalid port: %d", s.Port)
	}

	if s.ReadTimeout <= 0 {
		return fmt.Errorf("read_timeout must be positive")
	}

	if s.WriteTimeout <= 0 {
		return fmt.Errorf("write_timeout must be positive")
	}

	return nil
}

func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("invalid log level: %s", l.Level)
	}

	if l.Format != "json" && l.Format != "text" {
		return fmt.Errorf("invalid log format: %s (must be json or text)", l.Format)
	}

	if l.Output != "stdout" && l.Output != "stderr" {
		// File output requires rotation limits
		if l.MaxSize <= 0 {
			return fmt.Errorf("max_size must be positive for file output")
		}
		if l.MaxBackups < 0 {
			return fmt.Errorf("max_backups cannot be negative")
		}
		if l.MaxAge < 0 {
			return fmt.Errorf("max_age cannot be negative")
		}
	}

	return nil
}

func (m *MetricsConfig) Validate() error {
	if !m.Enabled {
		return nil
	}

	if m.Port < 1 || m.Port > 65535 {
		return fmt.Errorf("invalid metrics port: %d", m.Port)
	}

	if m.Path == "" {
		return fmt.Errorf("metrics path is required when metrics are enabled")
	}

	return nil
}

func (c *CompositorConfig) Validate() error {
	if c.OutputWidth <= 0 || c.OutputHeight <= 0 {
		return fmt.Errorf("invalid output size: %dx%d", c.OutputWidth, c.OutputHeight)
	}

	if c.OutputCapacity <= 0 {
		return fmt.Errorf("output_capacity must be positive")
	}

	if c.Scheduler != "shared" && c.Scheduler != "direct" {
		return fmt.Errorf("invalid scheduler: %s (must be shared or direct)", c.Scheduler)
	}

	if c.TexturePoolSize < 0 {
		return fmt.Errorf("texture_pool_size cannot be negative")
	}

	return nil
}

func (d *DemoConfig) Validate() error {
	for i, src := range d.Sources {
		if src.Width <= 0 || src.Height <= 0 {
			return fmt.Errorf("source %d: invalid size %dx%d", i, src.Width, src.Height)
		}
		if src.FrameRate <= 0 {
			return fmt.Errorf("source %d: frame_rate must be positive", i)
		}
		if src.Frames <= 0 {
			return fmt.Errorf("source %d: frames must be positive", i)
		}
		switch src.Pattern {
		case "", "solid", "bars", "checker":
		default:
			return fmt.Errorf("source %d: unknown pattern %q", i, src.Pattern)
		}
	}
	return nil
}
