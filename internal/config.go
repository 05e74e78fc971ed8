package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Server ServerConfig      `yaml:"server"`
	Remote RemoteConfig      `yaml:"remote"`
	Sync   SyncConfig        `yaml:"sync"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Vault  VaultConfig       `yaml:"vault"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Remote.Validate(); err != nil {
		return fmt.Errorf("remote: %w", err)
	}
	if err := c.Sync.Validate(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	if err := c.SQLite.Validate(); err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	return nil
}

// ApplicationConfig holds application-level configuration. HTTP is the
// client's local API.
type ApplicationConfig struct {
	LogLevel slog.Level    `yaml:"log_level"`
	LogFile  LogFileConfig `yaml:"log_file"`
	HTTP     HTTPConfig    `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := c.LogFile.Validate(); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// LogFileConfig enables a rotating log file next to the console output.
type LogFileConfig struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Enabled reports whether file logging is configured.
func (c *LogFileConfig) Enabled() bool {
	return c.Path != ""
}

// Validate validates the log file configuration.
func (c *LogFileConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxSizeMB, validation.When(c.Enabled(), validation.Required, validation.Min(1))),
		validation.Field(&c.MaxBackups, validation.Min(0)),
		validation.Field(&c.MaxAgeDays, validation.Min(0)),
	)
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// ServerConfig configures the remote endpoint run by the server command.
type ServerConfig struct {
	HTTP HTTPConfig `yaml:"http"`
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	return c.HTTP.Validate()
}

// RemoteConfig tells the client where the remote endpoint lives.
type RemoteConfig struct {
	// URL is the API base, e.g. http://localhost:8080/api. The liveness probe
	// is resolved against its host.
	URL       string          `yaml:"url"`
	Timeout   time.Duration   `yaml:"timeout"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// Validate validates the remote configuration.
func (c *RemoteConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.URL, validation.Required, is.URL),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Millisecond)),
	); err != nil {
		return err
	}
	return c.RateLimit.Validate()
}

// RateLimitConfig bounds request rate to the remote. RPS 0 disables it.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int64   `yaml:"burst"`
}

// Validate validates the rate limit configuration.
func (c *RateLimitConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.RPS, validation.Min(0.0)),
		validation.Field(&c.Burst, validation.When(c.RPS > 0, validation.Required, validation.Min(int64(1)))),
	)
}

// SyncConfig controls when reconcile passes run and how connectivity is
// probed.
type SyncConfig struct {
	// Schedule is a cron expression or descriptor ("@every 30s"). Empty
	// disables periodic passes.
	Schedule      string        `yaml:"schedule"`
	OnlineDelay   time.Duration `yaml:"online_delay"`
	ProbeInterval time.Duration `yaml:"probe_interval"`
	ProbeTimeout  time.Duration `yaml:"probe_timeout"`
}

// Validate validates the sync configuration.
func (c *SyncConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Schedule, validation.By(validSchedule)),
		validation.Field(&c.OnlineDelay, validation.Min(time.Duration(0))),
		validation.Field(&c.ProbeInterval, validation.Required, validation.Min(100*time.Millisecond)),
		validation.Field(&c.ProbeTimeout, validation.Required, validation.Min(time.Millisecond)),
	)
}

func validSchedule(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := cron.ParseStandard(s); err != nil {
		return validation.NewError("validation_cron", "must be a cron expression or descriptor")
	}
	return nil
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// VaultConfig holds the path to the Markdown mirror directory. An empty path
// disables the mirror.
type VaultConfig struct {
	Path string `yaml:"path"`
}

// Enabled reports whether the vault mirror is configured.
func (c *VaultConfig) Enabled() bool {
	return c.Path != ""
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			LogFile: LogFileConfig{
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
			},
			HTTP: HTTPConfig{
				Port: 8081,
			},
		},
		Server: ServerConfig{
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Remote: RemoteConfig{
			URL:     "http://localhost:8080/api",
			Timeout: 10 * time.Second,
			RateLimit: RateLimitConfig{
				RPS:   20,
				Burst: 40,
			},
		},
		Sync: SyncConfig{
			Schedule:      "@every 30s",
			OnlineDelay:   time.Second,
			ProbeInterval: 5 * time.Second,
			ProbeTimeout:  3 * time.Second,
		},
		SQLite: SQLiteConfig{
			Path: "./offnote.db",
		},
	}
}
