// Package cmd provides the CLI commands for vatcalc.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"vat-calculator/core/output"
	"vat-calculator/internal/app"
	"vat-calculator/internal/config"
	"vat-calculator/internal/logging"
)

// Version is set at build time
var Version = "0.1.0"

// rootOptions is the state shared by every command of one invocation
type rootOptions struct {
	cfgFile  string
	format   string
	logLevel string
	verbose  bool

	cfg       *config.Config
	app       *app.App
	formatter output.Formatter
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "vatcalc",
		Short: "Calculate EU VAT for a customer location",
		Long: `vatcalc resolves the VAT rate for a customer's country, postal code
and business status, and turns net prices into gross prices and back.

Examples:
  vatcalc calculate 24 --country DE
  vatcalc net 28.56 --country DE
  vatcalc calculate 100 --country AT --postal-code 6691
  vatcalc rates DE FR --format json
  vatcalc validate "DE 123456789"`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			opts.close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.cfgFile, "config", "", "config file (default is ./vatcalc.yaml or $HOME/.vatcalc/vatcalc.yaml)")
	flags.StringVarP(&opts.format, "format", "f", "", "output format (cli, json, yaml)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose output")

	root.AddCommand(
		newCalculateCmd(opts),
		newNetCmd(opts),
		newRatesCmd(opts),
		newValidateCmd(opts),
		newLocateCmd(opts),
		newRulesCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return root
}

// Execute runs the CLI
func Execute() error {
	return NewRootCmd().Execute()
}

func (o *rootOptions) init(cmd *cobra.Command) error {
	cfg, err := config.Load(o.cfgFile)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.verbose {
		cfg.Logging.Level = "debug"
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
	}
	o.cfg = cfg

	format := o.format
	if format == "" {
		format = cfg.Output.DefaultFormat
	}
	o.formatter, err = output.New(output.Format(format))
	if err != nil {
		return err
	}

	o.app, err = app.New(cfg, logging.Named("vatcalc"))
	return err
}

func (o *rootOptions) close() {
	if o.app != nil {
		_ = o.app.Close()
	}
	logging.Sync()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vatcalc version %s\n", Version)
		},
	}
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "init [path]",
		Short: "Write the effective configuration to a file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "vatcalc.yaml"
			if len(args) > 0 {
				path = args[0]
			}
			if err := opts.cfg.Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	})
	return configCmd
}
