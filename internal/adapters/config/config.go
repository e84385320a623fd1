package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds CLI configuration from config.toml.
type Config struct {
	Backend   string   `toml:"backend"`
	Timeout   Duration `toml:"timeout"`
	Broker    string   `toml:"broker"`
	TopicBase string   `toml:"topic_base"`
	Upload    Upload   `toml:"upload"`
	Defaults  Defaults `toml:"defaults"`
}

// Upload tunes the upload pipeline.
type Upload struct {
	MaxFiles int `toml:"max_files"`
}

// Defaults defines default selector values.
type Defaults struct {
	Folder   int64  `toml:"folder"`
	Remember bool   `toml:"remember"`
	Range    string `toml:"range"`
}

// Load loads config.toml if present. Missing file returns an empty config.
func Load() (Config, error) {
	path, err := configPath()
	if err != nil {
		return Config{}, err
	}
	return LoadFile(path)
}

// LoadFile loads a config file at path. Missing file returns an empty config.
func LoadFile(path string) (Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, err
	}
	if info.IsDir() {
		return Config{}, errors.New("config path is a directory")
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, err
	}
	if cfg.Upload.MaxFiles < 0 {
		return Config{}, errors.New("upload.max_files must not be negative")
	}
	switch cfg.Defaults.Range {
	case "", "7d", "30d", "6m":
	default:
		return Config{}, errors.New("defaults.range must be 7d|30d|6m")
	}
	return cfg, nil
}

func configPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "sg", "config.toml"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "sg", "config.toml"), nil
}
