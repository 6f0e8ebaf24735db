package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/praballama89182-collab/NGRAM/internal/analysis"
)

var (
	colorPrimary = lipgloss.Color("#7C3AED")
	colorSuccess = lipgloss.Color("#10B981")
	colorWarning = lipgloss.Color("#EF4444")
	colorMuted   = lipgloss.Color("#6B7280")

	styleTitle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	styleLabel = lipgloss.NewStyle().
			Foreground(colorMuted)

	styleGood = lipgloss.NewStyle().
			Foreground(colorSuccess)

	styleBad = lipgloss.NewStyle().
			Foreground(colorWarning)

	styleBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1)
)

// renderSummary formats the run statistics for the terminal.
func renderSummary(res *analysis.Result, outPath string) string {
	var b strings.Builder
	b.WriteString(styleTitle.Render("Search-Term Analysis"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%s %d\n", styleLabel.Render("Rows analyzed:"), res.Rows))
	b.WriteString(fmt.Sprintf("%s %d\n", styleLabel.Render("Unique terms:"), res.Terms))
	b.WriteString(fmt.Sprintf("%s %s\n", styleLabel.Render("Total spend:"), fmt.Sprintf("%.2f", res.TotalSpend)))
	b.WriteString(fmt.Sprintf("%s %s\n", styleLabel.Render("Total sales:"), styleGood.Render(fmt.Sprintf("%.2f", res.TotalSales))))
	b.WriteString(fmt.Sprintf("%s %s (%d terms)\n",
		styleLabel.Render("Wasted spend:"),
		styleBad.Render(fmt.Sprintf("%.2f", res.WastedSpend)),
		res.WastedTerms))
	if c := res.Concentration; c != nil {
		b.WriteString(fmt.Sprintf("%s HHI %.3f, %s\n", styleLabel.Render("Spend concentration:"), c.HHI, c.Band))
	}
	b.WriteString(fmt.Sprintf("%s %s", styleLabel.Render("Workbook:"), outPath))
	return styleBox.Render(b.String())
}
