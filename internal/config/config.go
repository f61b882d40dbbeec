// Copyright (c) 2026 ToeiRei
// Proctor - SSH public key directory
// This source code is licensed under the MIT license found in the LICENSE file.

// Package config loads Proctor's configuration from defaults, proctor.yaml,
// PROCTOR_* environment variables and command line flags, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/toeirei/proctor/internal/auth"
	"github.com/toeirei/proctor/internal/logging"
	"github.com/toeirei/proctor/internal/security"
)

// EnvPrefix is prepended to every environment variable, e.g.
// PROCTOR_ADMIN_USERNAME for admin.username.
const EnvPrefix = "proctor"

type DatabaseConfig struct {
	Type string `mapstructure:"type" yaml:"type"`
	Dsn  string `mapstructure:"dsn" yaml:"dsn"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// AdminConfig names the system administrator. It authenticates without an
// account row and seeds the first admin account.
type AdminConfig struct {
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
}

// SystemAdmin converts the configured credentials for the Guard.
func (a AdminConfig) SystemAdmin() auth.SystemAdmin {
	return auth.SystemAdmin{Username: a.Username, Password: security.FromString(a.Password)}
}

type Config struct {
	Database   DatabaseConfig `mapstructure:"database" yaml:"database"`
	Server     ServerConfig   `mapstructure:"server" yaml:"server"`
	Admin      AdminConfig    `mapstructure:"admin" yaml:"admin"`
	Language   string         `mapstructure:"language" yaml:"language"`
	LogLevel   string         `mapstructure:"log_level" yaml:"log_level"`
	BcryptCost int            `mapstructure:"bcrypt_cost" yaml:"bcrypt_cost"`
}

// Defaults returns the default value of every key. Keys missing here are
// invisible to the environment lookup, so it lists all of them.
func Defaults() map[string]any {
	return map[string]any{
		"database.type":           "sqlite",
		"database.dsn":            "./proctor.db",
		"server.addr":             ":8080",
		"server.read_timeout":     15 * time.Second,
		"server.write_timeout":    15 * time.Second,
		"server.idle_timeout":     60 * time.Second,
		"server.shutdown_timeout": 10 * time.Second,
		"admin.username":          "",
		"admin.password":          "",
		"language":                "en",
		"log_level":               "info",
		"bcrypt_cost":             bcrypt.DefaultCost,
	}
}

// Validate reports settings the rest of the program cannot work with.
func (c Config) Validate() error {
	var errs []error
	switch c.Database.Type {
	case "sqlite", "postgres", "mysql":
	default:
		errs = append(errs, fmt.Errorf("database.type must be sqlite, postgres or mysql, got %q", c.Database.Type))
	}
	if c.Database.Dsn == "" {
		errs = append(errs, errors.New("database.dsn must not be empty"))
	}
	if c.BcryptCost != 0 && (c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost) {
		errs = append(errs, fmt.Errorf("bcrypt_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}
	return errors.Join(errs...)
}

// GetConfigPath returns the full path of the user or system-wide
// configuration file.
func GetConfigPath(system bool) (string, error) {
	var configDir string
	var err error

	if system {
		switch runtime.GOOS {
		case "windows":
			configDir = filepath.Join(os.Getenv("ProgramData"), "Proctor")
		default:
			configDir = "/etc/proctor"
		}
	} else {
		configDir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("could not get user config directory: %w", err)
		}
		configDir = filepath.Join(configDir, "proctor")
	}

	return filepath.Join(configDir, "proctor.yaml"), nil
}

// LoadConfig resolves T from defaults, the first proctor.yaml found (or
// configFile when given), the environment and the flags of cmd. A missing
// configuration file is not an error.
func LoadConfig[T any](cmd *cobra.Command, defaults map[string]any, configFile *string) (T, error) {
	var c T
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("proctor")
	v.SetConfigType("yaml")
	if configFile != nil && *configFile != "" {
		v.SetConfigFile(*configFile)
	}
	if userConfigPath, err := GetConfigPath(false); err == nil {
		v.AddConfigPath(filepath.Dir(userConfigPath))
	}
	if systemConfigPath, err := GetConfigPath(true); err == nil {
		v.AddConfigPath(filepath.Dir(systemConfigPath))
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return c, err
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cmd != nil {
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return c, err
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, nil
}

// Load is LoadConfig for Proctor's own Config with the package defaults,
// followed by Validate. A half-configured system administrator is only
// warned about; the Guard never matches it.
func Load(cmd *cobra.Command, configFile *string) (Config, error) {
	c, err := LoadConfig[Config](cmd, Defaults(), configFile)
	if err != nil {
		return c, err
	}
	if (c.Admin.Username == "") != (c.Admin.Password == "") {
		logging.Warnf("admin.username and admin.password must be set together; system administrator disabled")
	}
	return c, c.Validate()
}

// WriteConfigFile writes c as YAML to path, or to the user or system-wide
// location when path is empty. The file is created with mode 0600 since it
// may contain the admin password.
func WriteConfigFile[T any](c *T, path string, system bool) (string, error) {
	if path == "" {
		var err error
		if path, err = GetConfigPath(system); err != nil {
			return "", err
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", fmt.Errorf("could not create config directory %s: %w", configDir, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
