package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	accent  = lipgloss.Color("#2563EB")
	fg      = lipgloss.Color("#E5E7EB")
	dim     = lipgloss.Color("#6B7280")
	success = lipgloss.Color("#22C55E")
	danger  = lipgloss.Color("#EF4444")
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	boxStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 2)
	labelStyle = lipgloss.NewStyle().Foreground(dim).Width(18)
	valueStyle = lipgloss.NewStyle().Foreground(fg)
	totalStyle = lipgloss.NewStyle().Bold(true).Foreground(fg)
	passStyle  = lipgloss.NewStyle().Foreground(success).Bold(true)
	failStyle  = lipgloss.NewStyle().Foreground(danger).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(dim)
)

// CLIFormatter renders boxed, colored terminal output
type CLIFormatter struct{}

// Format returns FormatCLI
func (f *CLIFormatter) Format() Format { return FormatCLI }

type line struct {
	label string
	value string
}

func renderBox(title string, lines []line, footer string) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(title))
	b.WriteString("\n\n")
	for _, l := range lines {
		b.WriteString(labelStyle.Render(l.label))
		b.WriteString(l.value)
		b.WriteString("\n")
	}
	if footer != "" {
		b.WriteString("\n")
		b.WriteString(footer)
	}
	return boxStyle.Render(strings.TrimRight(b.String(), "\n")) + "\n"
}

func (f *CLIFormatter) RenderCalculation(w io.Writer, doc Calculation) error {
	country := doc.Country
	if doc.EffectiveCountry != "" && doc.EffectiveCountry != doc.Country {
		country = fmt.Sprintf("%s (taxed as %s)", doc.Country, doc.EffectiveCountry)
	}
	lines := []line{{"Country", valueStyle.Render(country)}}
	if doc.PostalCode != "" {
		lines = append(lines, line{"Postal code", valueStyle.Render(doc.PostalCode)})
	}
	if doc.Territory != "" {
		lines = append(lines, line{"Territory", valueStyle.Render(doc.Territory)})
	}
	if doc.Company {
		lines = append(lines, line{"Customer", valueStyle.Render("business")})
	}
	if doc.RateType != "" {
		lines = append(lines, line{"Rate type", valueStyle.Render(doc.RateType)})
	}
	lines = append(lines,
		line{"Rate", valueStyle.Render(doc.Rate) + "  " + dimStyle.Render(doc.Source)},
		line{"Net", valueStyle.Render(doc.NetPrice)},
		line{"Tax", valueStyle.Render(doc.TaxValue)},
	)

	footer := labelStyle.Render("Gross") + totalStyle.Render(doc.GrossPrice)
	_, err := io.WriteString(w, renderBox("VAT calculation", lines, footer))
	return err
}

func (f *CLIFormatter) RenderRates(w io.Writer, rows []RateRow) error {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("VAT rates (%d countries)", len(rows))))
	b.WriteString("\n\n")
	for _, row := range rows {
		b.WriteString(totalStyle.Render(fmt.Sprintf("%-4s", row.Country)))
		b.WriteString(valueStyle.Render(fmt.Sprintf("%-8s", row.Standard)))
		b.WriteString(dimStyle.Render(joinRates(row.Named)))
		if len(row.Territories) > 0 {
			b.WriteString(dimStyle.Render("  territories: " + joinRates(row.Territories)))
		}
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func joinRates(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+m[k])
	}
	return strings.Join(parts, " ")
}

func (f *CLIFormatter) RenderValidation(w io.Writer, doc Validation) error {
	status := failStyle.Render("invalid")
	if doc.Valid {
		status = passStyle.Render("valid")
	}
	lines := []line{
		{"VAT number", valueStyle.Render(doc.VATNumber)},
		{"Status", status},
	}
	if doc.Name != "" {
		lines = append(lines, line{"Name", valueStyle.Render(doc.Name)})
	}
	if doc.Address != "" {
		lines = append(lines, line{"Address", valueStyle.Render(doc.Address)})
	}
	footer := ""
	if doc.Error != "" {
		footer = failStyle.Render(doc.Error)
	}
	_, err := io.WriteString(w, renderBox("VAT number check", lines, footer))
	return err
}

func (f *CLIFormatter) RenderLocation(w io.Writer, doc Location) error {
	country := dimStyle.Render("unknown")
	if doc.Found {
		country = passStyle.Render(doc.Country)
	}
	lines := []line{
		{"Address", valueStyle.Render(doc.Address)},
		{"Country", country},
	}
	_, err := io.WriteString(w, renderBox("Location", lines, ""))
	return err
}
