// Package config loads settings from defaults, an optional YAML file, the
// environment and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/wagnerlima/memory-cloud/debate-vault/internal/drive"
	"github.com/wagnerlima/memory-cloud/debate-vault/internal/reconcile"
	"github.com/wagnerlima/memory-cloud/debate-vault/internal/session"
)

// EnvPrefix is prepended to every environment variable, e.g.
// DEBATE_VAULT_DRIVE_CLIENT_ID for drive.client_id.
const EnvPrefix = "DEBATE_VAULT"

// FileName is looked up in the data directory when no --config is given.
const FileName = "config.yaml"

// Config is the resolved process configuration.
type Config struct {
	DataDir  string `mapstructure:"data_dir"`
	LogFile  string `mapstructure:"log_file"`
	LogLevel string `mapstructure:"log_level"`
	Drive    Drive  `mapstructure:"drive"`
	Sync     Sync   `mapstructure:"sync"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

type Drive struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	APIBase      string `mapstructure:"api_base"`
	AuthURL      string `mapstructure:"auth_url"`
	TokenURL     string `mapstructure:"token_url"`
	RedirectPort int    `mapstructure:"redirect_port"`
}

type Sync struct {
	MaxFiles           int   `mapstructure:"max_files"`
	MaxAttachmentBytes int64 `mapstructure:"max_attachment_bytes"`
	PageSize           int   `mapstructure:"page_size"`
}

// New returns a viper instance with defaults and environment binding set.
// Callers bind flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("data_dir", "./data")
	v.SetDefault("log_file", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("drive.client_id", "")
	v.SetDefault("drive.client_secret", "")
	v.SetDefault("drive.api_base", drive.DefaultBaseURL)
	v.SetDefault("drive.auth_url", session.GoogleAuthURL)
	v.SetDefault("drive.token_url", session.GoogleTokenURL)
	v.SetDefault("drive.redirect_port", 0)
	v.SetDefault("sync.max_files", drive.DefaultMaxFiles)
	v.SetDefault("sync.max_attachment_bytes", reconcile.DefaultMaxSize)
	v.SetDefault("sync.page_size", drive.DefaultPageSize)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file and decodes v. An explicit file must exist;
// the data directory's config.yaml is optional.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file == "" {
		candidate := filepath.Join(v.GetString("data_dir"), FileName)
		if _, err := os.Stat(candidate); err == nil {
			file = candidate
		}
	}
	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = file
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if strings.TrimSpace(c.DataDir) == "" {
		errs = append(errs, errors.New("data_dir must not be empty"))
	}
	if c.Sync.MaxFiles <= 0 {
		errs = append(errs, fmt.Errorf("sync.max_files must be positive, got %d", c.Sync.MaxFiles))
	}
	if c.Sync.MaxAttachmentBytes <= 0 {
		errs = append(errs, fmt.Errorf("sync.max_attachment_bytes must be positive, got %d", c.Sync.MaxAttachmentBytes))
	}
	if c.Sync.PageSize <= 0 || c.Sync.PageSize > drive.DefaultPageSize {
		errs = append(errs, fmt.Errorf("sync.page_size must be between 1 and %d, got %d", drive.DefaultPageSize, c.Sync.PageSize))
	}
	if c.Drive.RedirectPort < 0 || c.Drive.RedirectPort > 65535 {
		errs = append(errs, fmt.Errorf("drive.redirect_port out of range: %d", c.Drive.RedirectPort))
	}
	return errors.Join(errs...)
}
