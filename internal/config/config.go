// Package config loads taskflow settings from defaults, a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	tferrors "github.com/abatilo/taskflow/internal/errors"
	"github.com/abatilo/taskflow/internal/history"
	"github.com/abatilo/taskflow/internal/logging"
	"github.com/abatilo/taskflow/internal/remote"
)

const (
	envPrefix   = "TASKFLOW"
	envConfig   = "TASKFLOW_CONFIG"
	envDataDir  = "TASKFLOW_DATA_DIR"
	defaultDir  = ".taskflow"
	fileName    = "config.yaml"
	defaultAddr = "127.0.0.1:8080"
)

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Config is the full set of settings.
type Config struct {
	DataDir string        `mapstructure:"data_dir" yaml:"data_dir"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Remote  RemoteConfig  `mapstructure:"remote" yaml:"remote"`
	History HistoryConfig `mapstructure:"history" yaml:"history"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type StorageConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
}

type RemoteConfig struct {
	Driver  string        `mapstructure:"driver" yaml:"driver"`
	URL     string        `mapstructure:"url" yaml:"url"`
	AnonKey string        `mapstructure:"anon_key" yaml:"anon_key"`
	DSN     string        `mapstructure:"dsn" yaml:"dsn"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type HistoryConfig struct {
	Retention int `mapstructure:"retention" yaml:"retention"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		DataDir: DefaultDataDir(),
		Log:     LogConfig{Level: "info", Format: logging.FormatText},
		Storage: StorageConfig{Backend: BackendFile},
		Remote:  RemoteConfig{Driver: remote.DriverREST, Timeout: remote.DefaultTimeout},
		History: HistoryConfig{Retention: history.DefaultRetention},
		Server:  ServerConfig{Addr: defaultAddr},
	}
}

// DefaultDataDir is $TASKFLOW_DATA_DIR or ~/.taskflow.
func DefaultDataDir() string {
	if dir := os.Getenv(envDataDir); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultDir
	}
	return filepath.Join(home, defaultDir)
}

// Path resolves the config file: the flag value, $TASKFLOW_CONFIG, or
// config.yaml in the default data directory.
func Path(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if p := os.Getenv(envConfig); p != "" {
		return p
	}
	return filepath.Join(DefaultDataDir(), fileName)
}

// Load merges defaults, the YAML file at path (if it exists) and
// TASKFLOW_* environment variables, in increasing precedence.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applySupabaseEnv(cfg)
	cfg.DataDir = expandHome(cfg.DataDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("remote.driver", d.Remote.Driver)
	v.SetDefault("remote.url", d.Remote.URL)
	v.SetDefault("remote.anon_key", d.Remote.AnonKey)
	v.SetDefault("remote.dsn", d.Remote.DSN)
	v.SetDefault("remote.timeout", d.Remote.Timeout)
	v.SetDefault("history.retention", d.History.Retention)
	v.SetDefault("server.addr", d.Server.Addr)
}

// applySupabaseEnv fills the REST settings from the variables a Supabase
// project conventionally exports.
func applySupabaseEnv(cfg *Config) {
	if cfg.Remote.URL == "" {
		cfg.Remote.URL = firstEnv("SUPABASE_URL", "NEXT_PUBLIC_SUPABASE_URL")
	}
	if cfg.Remote.AnonKey == "" {
		cfg.Remote.AnonKey = firstEnv("SUPABASE_ANON_KEY", "NEXT_PUBLIC_SUPABASE_ANON_KEY")
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// Validate rejects unknown enum values and nonsensical limits.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return tferrors.ValidationError{Field: "data_dir", Reason: "must not be empty"}
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return tferrors.ValidationError{Field: "log.level", Reason: err.Error()}
	}
	switch c.Log.Format {
	case logging.FormatText, logging.FormatJSON:
	default:
		return tferrors.ValidationError{Field: "log.format", Reason: "must be text or json"}
	}
	switch c.Storage.Backend {
	case BackendFile, BackendSQLite:
	default:
		return tferrors.ValidationError{Field: "storage.backend", Reason: "must be file or sqlite"}
	}
	switch c.Remote.Driver {
	case remote.DriverREST, remote.DriverPostgres, remote.DriverNone:
	default:
		return tferrors.ValidationError{Field: "remote.driver", Reason: "must be rest, postgres or none"}
	}
	if c.History.Retention <= 0 {
		return tferrors.ValidationError{Field: "history.retention", Reason: "must be positive"}
	}
	return nil
}

// RemoteClientConfig converts the remote section for remote.New.
func (c *Config) RemoteClientConfig() remote.Config {
	return remote.Config{
		Driver:  c.Remote.Driver,
		URL:     c.Remote.URL,
		AnonKey: c.Remote.AnonKey,
		DSN:     c.Remote.DSN,
		Timeout: c.Remote.Timeout,
	}
}

// RemoteConfigured reports whether the selected driver has its required settings.
func (c *Config) RemoteConfigured() bool {
	switch c.Remote.Driver {
	case remote.DriverREST:
		return c.Remote.URL != "" && c.Remote.AnonKey != ""
	case remote.DriverPostgres:
		return c.Remote.DSN != ""
	default:
		return false
	}
}

// SQLitePath is the database file used by the sqlite backend.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "taskflow.db")
}

// Write renders cfg as YAML at path, refusing to overwrite unless force is set.
func Write(path string, cfg *Config, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return tferrors.AlreadyInitializedError{Path: path}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	//nolint:gosec // G301: 0755 is appropriate for user-accessible data directory
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	// Keys may be secrets.
	return os.WriteFile(path, data, 0o600)
}
