// Package cmd - validate and locate commands
package cmd

import (
	"github.com/spf13/cobra"

	"vat-calculator/core/output"
	"vat-calculator/core/vies"
)

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <vat-number>",
		Short: "Check a VAT number against the EU registry",
		Long: `Check a VAT number, country prefix included, against VIES.
Whitespace is ignored: "DE 123 456 789" and "DE123456789" are the same.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed := vies.ParseNumber(args[0])
			doc := output.Validation{
				VATNumber:   parsed.VATNumber,
				CountryCode: parsed.CountryCode,
			}

			resp, err := opts.app.Validator.Check(cmd.Context(), args[0])
			if err != nil {
				doc.Error = err.Error()
				if rerr := opts.formatter.RenderValidation(cmd.OutOrStdout(), doc); rerr != nil {
					return rerr
				}
				return err
			}

			doc.Valid = resp.Valid
			doc.Name = resp.Name
			doc.Address = resp.Address
			return opts.formatter.RenderValidation(cmd.OutOrStdout(), doc)
		},
	}
}

func newLocateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "locate <ip>",
		Short: "Resolve the country of an IP address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc := output.Location{Address: args[0]}
			if code, ok := opts.app.Geo.ResolveCountry(cmd.Context(), args[0]); ok {
				doc.Country = code.String()
				doc.Found = true
			}
			return opts.formatter.RenderLocation(cmd.OutOrStdout(), doc)
		},
	}
}
