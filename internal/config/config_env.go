package config

import "os"

// ApplyEnvConfig applies SEPROXY_* environment variables, skipping flags set
// on the command line.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("reader", os.Getenv("SEPROXY_READER"), &cfg.Reader)
	s.setString("stub", os.Getenv("SEPROXY_STUB"), &cfg.Stub)
	s.setString("batch", os.Getenv("SEPROXY_BATCH"), &cfg.Batch)
	s.setString("processing", os.Getenv("SEPROXY_PROCESSING"), &cfg.Processing)
	s.setString("channel", os.Getenv("SEPROXY_CHANNEL"), &cfg.ChannelControl)
	s.setString("log-level", os.Getenv("SEPROXY_LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setIntFromString("reader-index", os.Getenv("SEPROXY_READER_INDEX"), &cfg.ReaderIndex); err != nil {
		return err
	}

	s.setBoolFromString("contactless", os.Getenv("SEPROXY_CONTACTLESS"), &cfg.Contactless)
	s.setBoolFromString("logical-channels", os.Getenv("SEPROXY_LOGICAL_CHANNELS"), &cfg.LogicalChannels)

	return nil
}
