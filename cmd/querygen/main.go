// Command querygen generates reproducible corpora of benign, realistic user
// queries from template catalogs.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"querygen/internal/config"
	"querygen/internal/logging"
)

var (
	verbose    bool
	configPath string

	cfg    *config.Config
	logger *zap.Logger
)

func newRootCmd() *cobra.Command {
	genOpts := &generateOptions{}

	root := &cobra.Command{
		Use:   "querygen",
		Short: "Generate a synthetic corpus of benign user queries",
		Long: `querygen expands category catalogs of sentence templates and value pools
into a deduplicated, shuffled corpus of JSON lines:

  {"query":"How do I kill a zombie process in Docker?","category":"technical_operations"}

The same seed and catalogs always produce a byte-identical corpus. A per-category
summary is written to stderr so the corpus stream stays clean.

Run without a subcommand to generate with the embedded default catalog.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path := resolvedConfigPath()
			loaded, err := config.Load(path)
			if err != nil {
				return err
			}
			if err := loaded.Validate(); err != nil {
				return fmt.Errorf("invalid config %s: %w", path, err)
			}
			cfg = loaded

			if err := logging.Initialize(logging.Options{
				Level:   cfg.Logging.Level,
				Format:  cfg.Logging.Format,
				File:       cfg.Logging.File,
				Verbose:    verbose,
				Categories: cfg.Logging.Categories,
			}); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			logger = logging.L()
			logging.BootDebug("config loaded from %s (seed=%d, catalogs=%v)", path, cfg.Seed, cfg.Catalogs)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logging.Sync()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, genOpts)
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	root.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default "+config.DefaultPath+")")
	addGenerateFlags(root, genOpts)

	root.AddCommand(
		newGenerateCmd(),
		newCategoriesCmd(),
		newValidateCmd(),
		newVerifyCmd(),
		newRunsCmd(),
		newConfigCmd(),
	)
	return root
}

// currentConfig returns the loaded config, or defaults when commands run
// without the root pre-run hook.
func currentConfig() *config.Config {
	if cfg == nil {
		return config.DefaultConfig()
	}
	return cfg
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
