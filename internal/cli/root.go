package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/me/nada/internal/config"
	"github.com/me/nada/internal/launcher"
	"github.com/me/nada/internal/logging"
	"github.com/me/nada/internal/poller"
	"github.com/me/nada/internal/resolver"
	"github.com/me/nada/pkg/kestra"
)

var (
	flagServer    string
	flagDirect    bool
	flagConfig    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	logger *slog.Logger
	cfg    config.Config
)

// defaultServer returns the default server URL, checking NADA_SERVER env var first.
func defaultServer() string {
	if s := os.Getenv("NADA_SERVER"); s != "" {
		return s
	}
	return "http://localhost:3000"
}

// NewRootCmd creates the root cobra command for the nada CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "nada",
		Short: "Ask questions answered by a Kestra flow",
		Long: `nada submits a question to the analysis flow, polls the execution until it
finishes, and prints the answer the flow wrote to its logs.

By default it talks to a nada server; with --direct it talks to Kestra itself
using KESTRA_API_URL and KESTRA_BASIC_AUTH_HEADER.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if flagDebug {
				flagLogLevel = "debug"
			}
			logger = logging.NewWithWriter(logging.ParseLevel(flagLogLevel), flagLogFormat, cmd.ErrOrStderr())

			var err error
			cfg, err = config.Load(flagConfig)
			if err != nil {
				return err
			}
			return nil
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagServer, "server", defaultServer(), "nada server URL (or NADA_SERVER env)")
	root.PersistentFlags().BoolVar(&flagDirect, "direct", false, "Talk to Kestra directly instead of a nada server")
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to a YAML config file")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newAskCmd(),
		newTriggerCmd(),
		newStatusCmd(),
		newConfigCmd(),
	)

	return root
}

// backend returns the launcher and resolver the commands drive: the nada
// server by default, or the engine itself with --direct.
func backend() (poller.Launcher, poller.Resolver, error) {
	if !flagDirect {
		c := NewClient(flagServer, logger)
		return c, c, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	kc := kestra.NewClient(cfg.Kestra(), logger)
	return launcher.New(kc, logger), resolver.New(kc, cfg.Resolver(), logger), nil
}
