package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ebfe/scard"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/gregLibert/seproxy/internal/config"
	"github.com/gregLibert/seproxy/pkg/pcsc"
	"github.com/gregLibert/seproxy/pkg/seproxy"
	"github.com/gregLibert/seproxy/pkg/stub"
)

var exampleUsage = strings.TrimSpace(`
  seproxy readers
  seproxy run --batch calypso.yaml --reader Gemalto --channel keep-open
  seproxy run --batch calypso.toml --stub card.yaml --log-level debug
`)

func main() {
	cfg := config.DefaultConfig()
	var cfgPath string

	log := config.NewLogger(os.Stderr, cfg.LogLevel)

	root := &cobra.Command{
		Use:           "seproxy",
		Short:         "Run batches of APDU requests against a Secure Element",
		Example:       exampleUsage,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.seproxy/config.toml)")
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")

	readersCmd := &cobra.Command{
		Use:   "readers",
		Short: "List PC/SC readers and card presence",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listReaders(cmd.OutOrStdout())
		},
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Process a batch file and print the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, &cfg, cfgPath); err != nil {
				return err
			}
			log = config.NewLogger(os.Stderr, cfg.LogLevel)
			return run(cmd.OutOrStdout(), cfg, log)
		},
	}
	runCmd.Flags().StringVar(&cfg.Batch, "batch", "", "batch file (.toml, .yaml)")
	runCmd.Flags().StringVar(&cfg.Reader, "reader", "", "PC/SC reader name (substring match)")
	runCmd.Flags().IntVar(&cfg.ReaderIndex, "reader-index", 0, "PC/SC reader index when no name is given")
	runCmd.Flags().StringVar(&cfg.Stub, "stub", "", "simulated card file instead of a reader")
	runCmd.Flags().StringVar(&cfg.Processing, "processing", "", "first-match or process-all (overrides the batch file)")
	runCmd.Flags().StringVar(&cfg.ChannelControl, "channel", "", "keep-open or close-after (overrides the batch file)")
	runCmd.Flags().BoolVar(&cfg.Contactless, "contactless", false, "reader is contactless (ISO 14443-4)")
	runCmd.Flags().BoolVar(&cfg.LogicalChannels, "logical-channels", false, "open logical channels with MANAGE CHANNEL")

	root.AddCommand(readersCmd, runCmd)

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("seproxy")
		os.Exit(1)
	}
}

// loadConfig applies the config file, then SEPROXY_* variables. Flags set on
// the command line win over both.
func loadConfig(cmd *cobra.Command, cfg *config.Config, cfgPath string) error {
	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = config.DefaultConfigPath()
	}
	if cfgFile != "" && config.FileExists(cfgFile) {
		fc, err := config.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		config.ApplyFileConfig(cfg, fc, changed)
	}

	if err := config.ApplyEnvConfig(cfg, changed); err != nil {
		return err
	}
	return cfg.Validate()
}

func run(out io.Writer, cfg config.Config, log zerolog.Logger) error {
	batch, err := config.LoadBatch(cfg.Batch)
	if err != nil {
		return fmt.Errorf("load batch: %w", err)
	}
	if err := batch.Override(cfg); err != nil {
		return err
	}

	transport, closeTransport, err := openTransport(cfg, log)
	if err != nil {
		return err
	}
	defer closeTransport()

	p := seproxy.NewProcessor(transport, seproxy.WithLogger(log))
	defer func() {
		if err := p.Release(); err != nil {
			log.Warn().Err(err).Msg("failed to release channel")
		}
	}()

	results, err := p.Process(batch.Requests, batch.Processing, batch.Control)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, seproxy.Describe(batch.Requests, results))
	return nil
}

func openTransport(cfg config.Config, log zerolog.Logger) (seproxy.Transport, func(), error) {
	if cfg.Stub != "" {
		card, err := stub.Load(cfg.Stub)
		if err != nil {
			return nil, nil, fmt.Errorf("load stub: %w", err)
		}
		log.Info().Str("stub", cfg.Stub).Msg("using simulated card")
		return card, func() {}, nil
	}

	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, nil, fmt.Errorf("establish context: %w", err)
	}
	release := func() {
		if err := ctx.Release(); err != nil {
			log.Warn().Err(err).Msg("failed to release context")
		}
	}

	readers, err := ctx.ListReaders()
	if err != nil {
		release()
		return nil, nil, fmt.Errorf("list readers: %w", err)
	}
	name, err := pcsc.PickReader(readers, cfg.Reader, cfg.ReaderIndex)
	if err != nil {
		release()
		return nil, nil, err
	}
	log.Info().Str("reader", name).Msg("using reader")

	reader := pcsc.NewReader(ctx, name,
		pcsc.WithContactless(cfg.Contactless),
		pcsc.WithLogicalChannels(cfg.LogicalChannels),
		pcsc.WithLogger(log),
	)
	return reader, func() {
		if err := reader.Disconnect(); err != nil {
			log.Warn().Err(err).Msg("failed to disconnect card")
		}
		release()
	}, nil
}

func listReaders(out io.Writer) error {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return fmt.Errorf("establish context: %w", err)
	}
	defer ctx.Release()

	readers, err := ctx.ListReaders()
	if err != nil {
		return fmt.Errorf("list readers: %w", err)
	}
	if len(readers) == 0 {
		fmt.Fprintln(out, "no PC/SC reader found")
		return nil
	}

	for i, name := range readers {
		state := "empty"
		present, err := pcsc.NewReader(ctx, name).IsCardPresent()
		switch {
		case err != nil:
			state = "unknown (" + err.Error() + ")"
		case present:
			state = "card present"
		}
		fmt.Fprintf(out, "[%d] %s: %s\n", i, name, state)
	}
	return nil
}
