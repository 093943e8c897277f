// Package config holds the seproxy CLI configuration and batch files.
package config

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/gregLibert/seproxy/pkg/seproxy"
)

// Config holds CLI configuration for seproxy run.
type Config struct {
	Reader      string
	ReaderIndex int
	Stub        string

	Batch          string
	Processing     string
	ChannelControl string

	Contactless     bool
	LogicalChannels bool

	LogLevel string
}

// DefaultConfig returns a Config with default values. Empty policies defer
// to the batch file.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Batch == "" {
		return errors.New("batch is required")
	}
	if c.Reader != "" && c.Stub != "" {
		return errors.New("reader and stub are mutually exclusive")
	}
	if c.ReaderIndex < 0 {
		return fmt.Errorf("reader index must not be negative, got %d", c.ReaderIndex)
	}
	if c.Processing != "" {
		if _, err := seproxy.ParseProcessing(c.Processing); err != nil {
			return err
		}
	}
	if c.ChannelControl != "" {
		if _, err := seproxy.ParseChannelControl(c.ChannelControl); err != nil {
			return err
		}
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	return nil
}

// configSetter applies values unless the matching flag was set explicitly.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setInt(flag string, value *int, dst *int) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = i
	return nil
}

// setBoolFromString accepts "true" and "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
