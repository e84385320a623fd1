package sgd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/mikey-austin/signage/internal/adapters/config"
)

// Config is the top-level configuration for sgd.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Modules ModulesConfig `toml:"modules"`
}

// ServerConfig defines shared server settings.
type ServerConfig struct {
	Broker    string     `toml:"broker"`
	Backend   string     `toml:"backend"`
	TopicBase string     `toml:"topic_base"`
	LogLevel  string     `toml:"log_level"`
	LogFormat string     `toml:"log_format"`
	LogOutput string     `toml:"log_output"`
	LogSource bool       `toml:"log_source"`
	LogUTC    bool       `toml:"log_utc"`
	TLS       TLSConfig  `toml:"tls"`
	Auth      AuthConfig `toml:"auth"`
}

// TLSConfig holds TLS paths for MQTT.
type TLSConfig struct {
	CA   string `toml:"ca"`
	Cert string `toml:"cert"`
	Key  string `toml:"key"`
}

// AuthConfig holds MQTT auth credentials.
type AuthConfig struct {
	User string `toml:"user"`
	Pass string `toml:"pass"`
}

// ModulesConfig holds module configurations.
type ModulesConfig struct {
	EmbeddedMQTT EmbeddedMQTTConfig `toml:"embedded_mqtt"`
	FeedImport   FeedImportConfig   `toml:"feed_import"`
}

// EmbeddedMQTTConfig configures the embedded MQTT broker.
type EmbeddedMQTTConfig struct {
	Enabled        bool   `toml:"enabled"`
	Listen         string `toml:"listen"`
	AllowAnonymous bool   `toml:"allow_anonymous"`
	Username       string `toml:"username"`
	Password       string `toml:"password"`
	TLSCA          string `toml:"tls_ca"`
	TLSCert        string `toml:"tls_cert"`
	TLSKey         string `toml:"tls_key"`
}

// FeedImportConfig configures the feed import module.
type FeedImportConfig struct {
	Enabled         bool            `toml:"enabled"`
	Interval        config.Duration `toml:"interval"`
	Timeout         config.Duration `toml:"timeout"`
	MaxBytes        int64           `toml:"max_bytes"`
	SkipExisting    bool            `toml:"skip_existing"`
	Email           string          `toml:"email"`
	Password        string          `toml:"password"`
	CredentialsPath string          `toml:"credentials_path"`
	Feeds           []FeedConfig    `toml:"feeds"`
}

// FeedConfig maps one feed to a media folder.
type FeedConfig struct {
	URL    string `toml:"url"`
	Folder int64  `toml:"folder"`
}

// LoadConfig loads a config file from path.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return Config{}, err
	}
	if info.IsDir() {
		return Config{}, errors.New("config path is a directory")
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings that would only fail once a module runs.
func (c Config) Validate() error {
	if mq := c.Modules.EmbeddedMQTT; mq.Enabled && !mq.AllowAnonymous && strings.TrimSpace(mq.Username) == "" {
		return errors.New("modules.embedded_mqtt requires allow_anonymous or username")
	}
	fi := c.Modules.FeedImport
	if !fi.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Server.Backend) == "" {
		return errors.New("server.backend is required for feed_import")
	}
	if len(fi.Feeds) == 0 {
		return errors.New("modules.feed_import.feeds is empty")
	}
	for i, f := range fi.Feeds {
		if strings.TrimSpace(f.URL) == "" {
			return fmt.Errorf("modules.feed_import.feeds[%d]: url is required", i)
		}
		if f.Folder <= 0 {
			return fmt.Errorf("modules.feed_import.feeds[%d]: folder is required", i)
		}
	}
	if fi.MaxBytes < 0 {
		return errors.New("modules.feed_import.max_bytes must not be negative")
	}
	return nil
}

// DefaultConfigPath returns the default config location.
func DefaultConfigPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "sg", "sgd.toml"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "sg", "sgd.toml"), nil
}

// DefaultStateDir returns where sgd keeps its backend session.
func DefaultStateDir() (string, error) {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "sgd"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", "sgd"), nil
}
