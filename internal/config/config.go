package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Upload and load limits
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes" yaml:"max_upload_bytes"`
	MaxRows        int   `mapstructure:"max_rows" yaml:"max_rows"`

	// Pipeline defaults
	DefaultChart string `mapstructure:"default_chart" yaml:"default_chart"`
	GroupOrder   string `mapstructure:"group_order" yaml:"group_order"`
	AssetsHost   string `mapstructure:"assets_host" yaml:"assets_host"`
	OutputDir    string `mapstructure:"output_dir" yaml:"output_dir"`

	// Dashboard
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// Keys lists the settable keys in display order.
var Keys = []string{
	"max_upload_bytes", "max_rows", "default_chart", "group_order",
	"assets_host", "output_dir", "listen_addr", "log_level", "log_format",
}

const dirName = ".tabloom"

// DefaultPath returns ~/.tabloom/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, dirName, "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.tabloom/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. A .env file in the working
// directory is applied to the environment first without overriding
// variables that are already set.
func Load(cfgFile string) (*Global, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("TABLOOM")
	v.AutomaticEnv()

	v.SetDefault("max_upload_bytes", int64(50<<20))
	v.SetDefault("max_rows", 200000)
	v.SetDefault("default_chart", "bar")
	v.SetDefault("group_order", "first-seen")
	v.SetDefault("assets_host", "https://go-echarts.github.io/go-echarts-assets/assets/")
	v.SetDefault("output_dir", ".")
	v.SetDefault("listen_addr", "127.0.0.1:8501")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		v.AddConfigPath(filepath.Join(home, dirName))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.MaxUploadBytes < 0 {
		return nil, fmt.Errorf("invalid max_upload_bytes: %d (must be 0 or more)", c.MaxUploadBytes)
	}
	if c.MaxRows < 0 {
		return nil, fmt.Errorf("invalid max_rows: %d (must be 0 or more)", c.MaxRows)
	}
	return &c, nil
}

// Get returns the display value of key.
func (c *Global) Get(key string) (string, error) {
	switch key {
	case "max_upload_bytes":
		return strconv.FormatInt(c.MaxUploadBytes, 10), nil
	case "max_rows":
		return strconv.Itoa(c.MaxRows), nil
	case "default_chart":
		return c.DefaultChart, nil
	case "group_order":
		return c.GroupOrder, nil
	case "assets_host":
		return c.AssetsHost, nil
	case "output_dir":
		return c.OutputDir, nil
	case "listen_addr":
		return c.ListenAddr, nil
	case "log_level":
		return c.LogLevel, nil
	case "log_format":
		return c.LogFormat, nil
	}
	return "", fmt.Errorf("unknown key: %s", key)
}

// Set parses and assigns val to key.
func (c *Global) Set(key, val string) error {
	switch key {
	case "max_upload_bytes":
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid int for max_upload_bytes: %v", val)
		}
		c.MaxUploadBytes = n
	case "max_rows":
		n, err := strconv.Atoi(val)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid int for max_rows: %v", val)
		}
		c.MaxRows = n
	case "default_chart":
		switch v := strings.ToLower(val); v {
		case "bar", "pie", "scatter", "box":
			c.DefaultChart = v
		default:
			return fmt.Errorf("invalid default_chart: %s (use bar, pie, scatter or box)", val)
		}
	case "group_order":
		switch v := strings.ToLower(val); v {
		case "first-seen", "sorted":
			c.GroupOrder = v
		default:
			return fmt.Errorf("invalid group_order: %s (use first-seen or sorted)", val)
		}
	case "assets_host":
		if val != "" && !strings.HasSuffix(val, "/") {
			val += "/"
		}
		c.AssetsHost = val
	case "output_dir":
		c.OutputDir = val
	case "listen_addr":
		c.ListenAddr = val
	case "log_level":
		switch v := strings.ToLower(val); v {
		case "debug", "info", "warn", "error":
			c.LogLevel = v
		default:
			return fmt.Errorf("invalid log_level: %s (use debug, info, warn or error)", val)
		}
	case "log_format":
		switch v := strings.ToLower(val); v {
		case "text", "json":
			c.LogFormat = v
		default:
			return fmt.Errorf("invalid log_format: %s (use text or json)", val)
		}
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}
