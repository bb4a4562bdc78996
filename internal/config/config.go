package config

import (
	"io/fs"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/thoreinstein/conductor/internal/errors"
	"github.com/thoreinstein/conductor/internal/paths"
)

// EnvPrefix prefixes environment overrides, e.g. CONDUCTOR_CONDUCTOR_DIR.
const EnvPrefix = "CONDUCTOR"

// Default values.
const (
	DefaultWatchDebounce   = 500 * time.Millisecond
	DefaultCallbackTimeout = 5 * time.Minute
)

// Config represents the CLI preferences file.
type Config struct {
	Version        int            `mapstructure:"version" yaml:"version"`
	ConductorDir   string         `mapstructure:"conductor_dir" yaml:"conductor_dir"`
	DefaultClients []string       `mapstructure:"default_clients" yaml:"default_clients"`
	WatchDebounce  time.Duration  `mapstructure:"watch_debounce" yaml:"watch_debounce"`
	OAuth          OAuthConfig    `mapstructure:"oauth" yaml:"oauth"`
	Clients        []CustomClient `mapstructure:"clients" yaml:"clients,omitempty"`
}

// OAuthConfig holds authorization flow settings.
type OAuthConfig struct {
	CallbackTimeout time.Duration `mapstructure:"callback_timeout" yaml:"callback_timeout"`
}

// CustomClient declares a host application conductor does not know about.
// Format is one of platform.FormatKinds.
type CustomClient struct {
	ID     string `mapstructure:"id" yaml:"id"`
	Name   string `mapstructure:"name" yaml:"name"`
	Format string `mapstructure:"format" yaml:"format"`
	Path   string `mapstructure:"path" yaml:"path"`
}

// Init initializes Viper with default configuration.
// Call this once at application startup before accessing config values.
func Init() {
	viper.Reset()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Search paths, in order of precedence.
	viper.AddConfigPath(".")
	if dir := os.Getenv(EnvPrefix + "_CONFIG_DIR"); dir != "" {
		viper.AddConfigPath(dir)
	}
	viper.AddConfigPath(paths.PreferencesDir())

	viper.SetEnvPrefix(EnvPrefix)
	viper.AutomaticEnv()

	viper.SetDefault("version", 1)
	viper.SetDefault("conductor_dir", paths.ConductorDir())
	viper.SetDefault("default_clients", []string{})
	viper.SetDefault("watch_debounce", DefaultWatchDebounce)
	viper.SetDefault("oauth.callback_timeout", DefaultCallbackTimeout)
}

// Load reads the configuration file.
// If path is provided, it reads from that specific file.
// If path is empty, it searches the default locations and falls back to
// defaults when no file exists.
func Load(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound) && path == "":
		case errors.As(err, &notFound), errors.Is(err, fs.ErrNotExist):
			return nil, errors.Wrapf(err, "config file not found at %s", path)
		default:
			return nil, errors.Wrap(err, "reading config file")
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}

	if errs := Validate(&cfg); len(errs) > 0 {
		return nil, errors.Wrap(errs[0], "validating config")
	}

	return &cfg, nil
}

// Dir returns the master document directory.
func (c *Config) Dir() string {
	if c == nil || c.ConductorDir == "" {
		return paths.ConductorDir()
	}
	return paths.Expand(c.ConductorDir)
}
