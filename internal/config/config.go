// Package config loads application settings from config.yaml, the
// environment and command-line flags.
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
	appName   = "innerglow"
	envPrefix = "INNERGLOW"
)

type Audio struct {
	SampleRate int `mapstructure:"sample_rate"`
	Channels   int `mapstructure:"channels"`
}

type Log struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

type Feed struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type Settings struct {
	DBPath   string `mapstructure:"db_path"`
	AudioDir string `mapstructure:"audio_dir"`
	Theme    string `mapstructure:"theme"`
	Debug    bool   `mapstructure:"debug"`
	Log      Log    `mapstructure:"log"`
	Audio    Audio  `mapstructure:"audio"`
	Feed     Feed   `mapstructure:"feed"`

	// ConfigFile is the file that was read, if any.
	ConfigFile string `mapstructure:"-"`
}

// Dir returns the per-user configuration directory.
func Dir() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, appName), nil
}

// NewViper returns a viper instance with defaults, search paths and env
// binding configured but nothing read yet.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir, err := Dir(); err == nil {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	dir, err := Dir()
	if err != nil {
		dir = "."
	}
	v.SetDefault("db_path", filepath.Join(dir, appName+".db"))
	v.SetDefault("audio_dir", filepath.Join(dir, "audio"))
	v.SetDefault("theme", "dark")
	v.SetDefault("debug", false)
	v.SetDefault("log.file", filepath.Join(dir, "logs", appName+".log"))
	v.SetDefault("log.level", "info")
	v.SetDefault("audio.sample_rate", 44100)
	v.SetDefault("audio.channels", 1)
	v.SetDefault("feed.cache_ttl", 5*time.Minute)
}

// Load reads the config file (explicit path, or the first config.yaml found
// on the search path) and unmarshals the merged settings. A missing file is
// not an error unless it was named explicitly.
func Load(v *viper.Viper, explicit string) (*Settings, error) {
	if explicit != "" {
		v.SetConfigFile(explicit)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	s.ConfigFile = v.ConfigFileUsed()
	if s.Debug {
		s.Log.Level = "debug"
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) Validate() error {
	if s.DBPath == "" {
		return errors.New("config: db_path is empty")
	}
	if s.Theme != "dark" && s.Theme != "light" {
		return fmt.Errorf("config: theme must be dark or light, got %q", s.Theme)
	}
	if s.Audio.SampleRate <= 0 {
		return fmt.Errorf("config: audio.sample_rate must be positive, got %d", s.Audio.SampleRate)
	}
	if s.Audio.Channels < 1 || s.Audio.Channels > 2 {
		return fmt.Errorf("config: audio.channels must be 1 or 2, got %d", s.Audio.Channels)
	}
	if s.Feed.CacheTTL < 0 {
		return errors.New("config: feed.cache_ttl must not be negative")
	}
	return nil
}
