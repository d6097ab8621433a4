package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultEnvFile   = "config.env"
	SessionFileName  = "session.json"
	DefaultLogLevel  = "info"
	DefaultCmdPrefix = "."
)

type Config struct {
	AppID    int    `mapstructure:"APP_ID"`
	AppHash  string `mapstructure:"APP_HASH"`
	Phone    string `mapstructure:"PHONE"`
	Password string `mapstructure:"PASSWORD"`

	SessionDir       string        `mapstructure:"SESSION_DIR"`
	DownloadDir      string        `mapstructure:"TMP_DOWNLOAD_DIRECTORY"`
	CmdPrefix        string        `mapstructure:"CMD_PREFIX"`
	ProgressInterval time.Duration `mapstructure:"PROGRESS_INTERVAL"`
	DownloadThreads  int           `mapstructure:"DOWNLOAD_THREADS"`
	UploadThreads    int           `mapstructure:"UPLOAD_THREADS"`
	LogLevel         string        `mapstructure:"LOG_LEVEL"`
	FFProbePath      string        `mapstructure:"FFPROBE_PATH"`

	// EnvFile is the config file that was read, empty when none was found.
	EnvFile string `mapstructure:"-"`
}

var defaults = map[string]any{
	"APP_ID":                 0,
	"APP_HASH":               "",
	"PHONE":                  "",
	"PASSWORD":               "",
	"SESSION_DIR":            "./session",
	"TMP_DOWNLOAD_DIRECTORY": "./downloads/",
	"CMD_PREFIX":             DefaultCmdPrefix,
	"PROGRESS_INTERVAL":      "10s",
	"DOWNLOAD_THREADS":       4,
	"UPLOAD_THREADS":         4,
	"LOG_LEVEL":              DefaultLogLevel,
	"FFPROBE_PATH":           "ffprobe",
}

// Load reads defaults, then the dotenv file at path (DefaultEnvFile when
// empty, skipped if missing), then environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = DefaultEnvFile
	}

	cfg := &Config{}
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s failed: %w", path, err)
		}
		cfg.EnvFile = path
	} else if explicit {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config failed: %w", err)
	}
	cfg.normalize()

	return cfg, nil
}

func (c *Config) normalize() {
	c.AppHash = strings.TrimSpace(c.AppHash)
	if c.CmdPrefix == "" {
		c.CmdPrefix = DefaultCmdPrefix
	}
	if c.ProgressInterval <= 0 {
		c.ProgressInterval = 10 * time.Second
	}
	if c.DownloadThreads < 1 {
		c.DownloadThreads = 1
	}
	if c.UploadThreads < 1 {
		c.UploadThreads = 1
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.AppID == 0 {
		errs = append(errs, errors.New("APP_ID is required"))
	}
	if c.AppHash == "" {
		errs = append(errs, errors.New("APP_HASH is required"))
	}
	return errors.Join(errs...)
}

func (c *Config) SessionPath() string {
	return filepath.Join(c.SessionDir, SessionFileName)
}

// ProtectedPaths lists files that must never be sent to a chat.
func (c *Config) ProtectedPaths() []string {
	paths := []string{c.SessionPath()}
	if c.EnvFile != "" {
		paths = append(paths, c.EnvFile)
	} else {
		paths = append(paths, DefaultEnvFile)
	}
	return paths
}
