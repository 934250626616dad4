package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sawpanic/fourdrun/internal/config"
	logsetup "github.com/sawpanic/fourdrun/internal/log"
)

// cli holds state shared by the commands of one invocation.
type cli struct {
	configPath string
	envFile    string
	logLevel   string
	logFormat  string
	noColor    bool

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:     appName,
		Short:   "4D draw statistics, candidate ranking and box builder",
		Version: version,
		Long: `fourdrun ingests 4D draw results, ranks candidate numbers with a weighted
scoring model, builds a 4x4 digit box and reports hit statistics against the
latest winning numbers.

Without a database DSN, history and the prediction ledger are kept in
<data-dir>/fourdrun.json.`,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "YAML configuration file")
	pf.StringVar(&c.envFile, "env-file", ".env", "dotenv file loaded before environment overrides")
	pf.StringVar(&c.logLevel, "log-level", "info", "log level (debug|info|warn|error)")
	pf.StringVar(&c.logFormat, "log-format", string(logsetup.FormatAuto), "log format (auto|console|json)")
	pf.BoolVar(&c.noColor, "no-color", false, "disable colored output")
	config.RegisterFlags(pf)

	root.AddCommand(
		c.fetchCmd(),
		c.importCmd(),
		c.exportCmd(),
		c.predictCmd(),
		c.boxCmd(),
		c.settleCmd(),
		c.runCmd(),
		c.serveCmd(),
		c.scheduleCmd(),
		c.configCmd(),
	)
	return root
}

// setup configures logging, then loads configuration: defaults, YAML,
// dotenv and FOURD_* environment, then command-line flags.
func (c *cli) setup(cmd *cobra.Command, args []string) error {
	if err := logsetup.Setup(logsetup.Options{
		Level:  c.logLevel,
		Format: logsetup.Format(c.logFormat),
		Out:    cmd.ErrOrStderr(),
	}); err != nil {
		return err
	}

	if c.envFile != "" {
		if err := config.LoadDotEnv(c.envFile); err != nil {
			return err
		}
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if err := cfg.ApplyFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	c.cfg = cfg
	return nil
}
