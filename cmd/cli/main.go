// Package main is the entry point for the vatcalc CLI.
package main

import (
	"os"

	"vat-calculator/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
