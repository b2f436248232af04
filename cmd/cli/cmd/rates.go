// Package cmd - rates command
package cmd

import (
	"github.com/spf13/cobra"

	"vat-calculator/core/output"
	"vat-calculator/core/types"
)

func newRatesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rates [country...]",
		Short: "List built-in VAT rates",
		Long: `List the built-in rate table, for every country or the ones given.
Overrides are not applied; use calculate to see the effective rate.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			codes := make([]types.CountryCode, 0, len(args))
			for _, arg := range args {
				codes = append(codes, types.Country(arg))
			}
			rows, err := output.RateRows(opts.app.Resolver.Table(), codes...)
			if err != nil {
				return err
			}
			return opts.formatter.RenderRates(cmd.OutOrStdout(), rows)
		},
	}
}
