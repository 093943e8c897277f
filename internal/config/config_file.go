package config

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig is the TOML form of Config.
type FileConfig struct {
	Reader          string `toml:"reader"`
	ReaderIndex     *int   `toml:"reader_index"`
	Stub            string `toml:"stub"`
	Processing      string `toml:"processing"`
	ChannelControl  string `toml:"channel"`
	Contactless     *bool  `toml:"contactless"`
	LogicalChannels *bool  `toml:"logical_channels"`
	LogLevel        string `toml:"log_level"`
}

// LoadFileConfig reads and parses a TOML config file.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.seproxy/config.toml, or "" without a home.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".seproxy", "config.toml")
	}
	return ""
}

// ApplyFileConfig copies fc into cfg, skipping flags set on the command line.
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) {
	s := newConfigSetter(changed)

	s.setString("reader", fc.Reader, &cfg.Reader)
	s.setInt("reader-index", fc.ReaderIndex, &cfg.ReaderIndex)
	s.setString("stub", fc.Stub, &cfg.Stub)
	s.setString("processing", fc.Processing, &cfg.Processing)
	s.setString("channel", fc.ChannelControl, &cfg.ChannelControl)
	s.setBool("contactless", fc.Contactless, &cfg.Contactless)
	s.setBool("logical-channels", fc.LogicalChannels, &cfg.LogicalChannels)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
