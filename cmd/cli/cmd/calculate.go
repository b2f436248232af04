// Package cmd - calculate and net commands
package cmd

import (
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"vat-calculator/core/calculator"
	"vat-calculator/core/output"
	"vat-calculator/core/types"
	apperrors "vat-calculator/internal/errors"
)

// locationFlags are the inputs shared by calculate and net
type locationFlags struct {
	country    string
	postalCode string
	company    bool
	rateType   string
	business   string
}

func (f *locationFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.country, "country", "c", "", "customer country code (required)")
	cmd.Flags().StringVarP(&f.postalCode, "postal-code", "p", "", "customer postal code")
	cmd.Flags().BoolVar(&f.company, "company", false, "customer is a VAT-registered business")
	cmd.Flags().StringVarP(&f.rateType, "rate-type", "t", "", "rate type such as high, low or super-reduced")
	cmd.Flags().StringVar(&f.business, "business-country", "", "seller country, overrides business_country_code")
	_ = cmd.MarkFlagRequired("country")
}

func (f *locationFlags) input() calculator.Input {
	return calculator.Input{
		CountryCode: f.country,
		PostalCode:  f.postalCode,
		Company:     calculator.Company(f.company),
		RateType:    types.RateType(f.rateType),
	}
}

func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, apperrors.Newf(apperrors.TypeInput, "invalid amount %q", raw)
	}
	return amount, nil
}

func newCalculateCmd(opts *rootOptions) *cobra.Command {
	flags := &locationFlags{}
	cmd := &cobra.Command{
		Use:   "calculate <net-amount>",
		Short: "Add VAT to a net price",
		Long: `Treat the amount as a net price and compute the tax and gross price.

Examples:
  vatcalc calculate 24 --country DE
  vatcalc calculate 24 --country NL --rate-type low
  vatcalc calculate 24 --country FR --company --business-country DE`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCalculation(cmd, opts, flags, args[0], false)
		},
	}
	flags.register(cmd)
	return cmd
}

func newNetCmd(opts *rootOptions) *cobra.Command {
	flags := &locationFlags{}
	cmd := &cobra.Command{
		Use:   "net <gross-amount>",
		Short: "Remove VAT from a gross price",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCalculation(cmd, opts, flags, args[0], true)
		},
	}
	flags.register(cmd)
	return cmd
}

func runCalculation(cmd *cobra.Command, opts *rootOptions, flags *locationFlags, raw string, fromGross bool) error {
	amount, err := parseAmount(raw)
	if err != nil {
		return err
	}

	calc := opts.app.Calculator()
	if flags.business != "" {
		calc.SetBusinessCountryCode(flags.business)
	}

	var result types.CalculationResult
	if fromGross {
		result = calc.CalculateNet(amount, flags.input())
	} else {
		result = calc.Calculate(amount, flags.input())
	}
	return opts.formatter.RenderCalculation(cmd.OutOrStdout(), output.NewCalculation(result))
}
