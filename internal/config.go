package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/glance/internal/bootsync"
	"github.com/starford/glance/internal/deeplink"
	"github.com/starford/glance/internal/storage"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Store    StoreConfig       `yaml:"store"`
	DeepLink DeepLinkConfig    `yaml:"deeplink"`
	Host     HostConfig        `yaml:"host"`
	Boot     BootConfig        `yaml:"boot"`
	Auth     AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if err := c.DeepLink.Validate(); err != nil {
		return err
	}
	if err := c.Host.Validate(); err != nil {
		return err
	}
	if err := c.Boot.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
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

// StoreConfig selects the snapshot store engine. An empty Path resolves to
// a per-engine location under the XDG data directory.
type StoreConfig struct {
	Engine string `yaml:"engine"`
	Path   string `yaml:"path"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	if c.Engine == "" {
		c.Engine = storage.EngineSQLite
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Engine, validation.In(
			storage.EngineSQLite, storage.EngineBadger, storage.EngineBolt, storage.EngineFS,
		)),
	)
}

// Location returns the file or directory the engine opens.
func (c *StoreConfig) Location() string {
	if c.Path != "" {
		return c.Path
	}
	dir := filepath.Join(xdg.DataHome, "glance")
	switch c.Engine {
	case storage.EngineBadger:
		return filepath.Join(dir, "badger")
	case storage.EngineBolt:
		return filepath.Join(dir, "glance.bolt")
	case storage.EngineFS:
		return filepath.Join(dir, "snapshots")
	default:
		return filepath.Join(dir, "glance.db")
	}
}

// DeepLinkConfig holds the prefix of every click-target URI.
type DeepLinkConfig struct {
	Base string `yaml:"base"`
}

// Validate validates the deep-link configuration.
func (c *DeepLinkConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Base, validation.Required, validation.By(func(any) error {
			if !strings.HasSuffix(c.Base, "://") && !strings.HasSuffix(c.Base, "/") {
				return errors.New(`must end with "://" or "/"`)
			}
			return nil
		})),
	)
}

// HostConfig describes the surface host platform.
type HostConfig struct {
	PlatformVersion   int    `yaml:"platform_version"`
	PinSupported      bool   `yaml:"pin_supported"`
	PositionalItemIDs bool   `yaml:"positional_item_ids"`
	SignalDir         string `yaml:"signal_dir"`
	Timezone          string `yaml:"timezone"`
}

// Validate validates the host configuration.
func (c *HostConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.PlatformVersion, validation.Required, validation.Min(1)),
		validation.Field(&c.Timezone, validation.By(func(any) error {
			_, err := c.Location()
			return err
		})),
	)
}

// Location resolves Timezone; empty means UTC.
func (c *HostConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

// BootConfig configures the boot sync job. An empty Command disables it.
type BootConfig struct {
	Timeout time.Duration `yaml:"timeout"`
	Command []string      `yaml:"command"`
	Task    string        `yaml:"task"`
}

// Validate validates the boot configuration.
func (c *BootConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.Task, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Store: StoreConfig{
			Engine: storage.EngineSQLite,
		},
		DeepLink: DeepLinkConfig{
			Base: deeplink.DefaultBase,
		},
		Host: HostConfig{
			PlatformVersion: 26,
			PinSupported:    true,
		},
		Boot: BootConfig{
			Timeout: bootsync.DefaultTimeout,
			Task:    bootsync.DefaultTask,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
