// Package cmd - rules command
package cmd

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"vat-calculator/adapters/rulestore"
	"vat-calculator/core/overrides"
	"vat-calculator/core/types"
	"vat-calculator/internal/app"
	apperrors "vat-calculator/internal/errors"
)

func newRulesCmd(opts *rootOptions) *cobra.Command {
	rulesCmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and manage rate overrides",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rulesCmd.AddCommand(
		newRulesShowCmd(opts),
		newRulesSetCmd(opts),
		newRulesDeleteCmd(opts),
		newRulesBusinessCountryCmd(opts),
	)
	return rulesCmd
}

func newRulesShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show [file...]",
		Short: "Print rules files as merged YAML",
		Long: `Load HCL or YAML rules files and print the merged result as YAML.
Files listed first win, as they do at runtime. Without arguments the
files from overrides.files are used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			files := args
			if len(files) == 0 {
				files = opts.cfg.Overrides.Files
			}
			merged, err := mergeRulesFiles(files)
			if err != nil {
				return err
			}
			data, err := rulestore.Dump(merged)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

// mergeRulesFiles merges files into one provider; earlier files win
func mergeRulesFiles(files []string) (*overrides.MapProvider, error) {
	merged := overrides.NewMapProvider(nil)
	for i := len(files) - 1; i >= 0; i-- {
		p, err := app.LoadRulesFile(files[i])
		if err != nil {
			return nil, err
		}
		for _, key := range p.Keys() {
			merged.Set(key, p.Get(key, nil))
		}
	}
	return merged, nil
}

func redisRules(opts *rootOptions) (*rulestore.RedisProvider, error) {
	client := opts.app.Redis()
	if client == nil {
		return nil, apperrors.Config("redis is not enabled; set redis.enabled", nil)
	}
	return rulestore.NewRedisProvider(client,
		rulestore.WithKeyPrefix(opts.cfg.Overrides.RedisKeyPrefix),
		rulestore.WithLogger(opts.app.Logger),
	), nil
}

func newRulesSetCmd(opts *rootOptions) *cobra.Command {
	var named map[string]string
	cmd := &cobra.Command{
		Use:   "set <country> <rate>",
		Short: "Store an override in Redis",
		Long: `Store an override rule in Redis, shared by every instance.

Examples:
  vatcalc rules set DE 0.19
  vatcalc rules set DE 0.19 --named low=0.07 --named high=0.19`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rule, err := buildRule(args[1], named)
			if err != nil {
				return err
			}
			store, err := redisRules(opts)
			if err != nil {
				return err
			}
			country := types.Country(args[0])
			if err := store.PutRule(cmd.Context(), country, rule); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored override for %s\n", country)
			return nil
		},
	}
	cmd.Flags().StringToStringVar(&named, "named", nil, "named rates, e.g. low=0.07")
	return cmd
}

func buildRule(raw string, named map[string]string) (overrides.Rule, error) {
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return overrides.Rule{}, apperrors.Newf(apperrors.TypeInput, "invalid rate %q", raw)
	}
	if len(named) == 0 {
		return overrides.FlatRule(rate), nil
	}

	rates := make(map[types.RateType]decimal.Decimal, len(named))
	for label, value := range named {
		d, err := decimal.NewFromString(value)
		if err != nil {
			return overrides.Rule{}, apperrors.Newf(apperrors.TypeInput, "invalid %s rate %q", label, value)
		}
		rates[types.RateType(label)] = d
	}
	return overrides.StructuredRule(rate, rates), nil
}

func newRulesDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <country>",
		Short: "Remove an override from Redis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := redisRules(opts)
			if err != nil {
				return err
			}
			country := types.Country(args[0])
			if err := store.DeleteRule(cmd.Context(), country); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted override for %s\n", country)
			return nil
		},
	}
}

func newRulesBusinessCountryCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "business-country <country>",
		Short: "Store the seller country in Redis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := redisRules(opts)
			if err != nil {
				return err
			}
			country := types.Country(args[0])
			if err := store.PutBusinessCountry(cmd.Context(), country); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "business country set to %s\n", country)
			return nil
		},
	}
}
