package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/joseph-ayodele/acordao-extractor/constants"
)

// ClearScreen moves the cursor home and clears the terminal.
const ClearScreen = "\033[H\033[2J"

// Settings is the configuration block shown above the dashboard.
type Settings struct {
	SourceDir string
	Ledger    string
	ErrorLog  string
	Model     string
	Interval  time.Duration
}

// Renderer draws a Stats snapshot as a colored text dashboard.
type Renderer struct {
	bar     progress.Model
	title   lipgloss.Style
	label   lipgloss.Style
	muted   lipgloss.Style
	box     lipgloss.Style
	colors  map[constants.Outcome]lipgloss.Style
}

// NewRenderer builds a renderer; plain disables styling for logs and tests.
func NewRenderer(plain bool) *Renderer {
	r := &Renderer{
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
	if plain {
		r.bar = progress.New(progress.WithFillCharacters('#', '.'), progress.WithWidth(40), progress.WithoutPercentage())
		r.colors = map[constants.Outcome]lipgloss.Style{}
		return r
	}
	r.title = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	r.label = lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4"))
	r.muted = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
	r.box = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#45475A")).Padding(0, 1)
	r.colors = map[constants.Outcome]lipgloss.Style{
		constants.OutcomeSuccess:    lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1")),
		constants.OutcomeParseError: lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF")),
		constants.OutcomeFailure:    lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8")),
	}
	return r
}

// Render returns the full dashboard text.
func (r *Renderer) Render(cfg Settings, st Stats) string {
	var b strings.Builder

	b.WriteString(r.title.Render("Extraction progress"))
	b.WriteString("  ")
	b.WriteString(r.muted.Render(st.ComputedAt.Format(constants.LedgerTimeLayout)))
	b.WriteString("\n\n")

	var c strings.Builder
	fmt.Fprintf(&c, "%s %s\n", r.label.Render("Documents:"), cfg.SourceDir)
	fmt.Fprintf(&c, "%s %s\n", r.label.Render("Ledger:   "), cfg.Ledger)
	fmt.Fprintf(&c, "%s %s\n", r.label.Render("Error log:"), cfg.ErrorLog)
	if cfg.Model != "" {
		fmt.Fprintf(&c, "%s %s\n", r.label.Render("Model:    "), cfg.Model)
	}
	fmt.Fprintf(&c, "%s %s", r.label.Render("Refresh:  "), cfg.Interval)
	b.WriteString(r.box.Render(c.String()))
	b.WriteString("\n\n")

	for _, o := range []constants.Outcome{constants.OutcomeSuccess, constants.OutcomeParseError, constants.OutcomeFailure} {
		agg := st.ByOutcome[o]
		line := fmt.Sprintf("%-11s %5d", o, agg.Count)
		if agg.LastDocument != "" {
			line += fmt.Sprintf("   last: %s (%s)", agg.LastDocument, agg.LastAt.Format(constants.LedgerTimeLayout))
		}
		b.WriteString(r.colors[o].Render(line))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "%s %d/%d\n", r.bar.ViewAs(st.Fraction()), st.WithHistory, st.Total)
	fmt.Fprintf(&b, "%s %d\n", r.label.Render("Remaining:"), st.Remaining)
	fmt.Fprintf(&b, "%s %s\n", r.label.Render("Mean gap: "), formatGap(st.MeanGap))
	fmt.Fprintf(&b, "%s %s\n", r.label.Render("ETA:      "), FormatETA(st.ETA))
	if st.SkippedRows > 0 {
		b.WriteString(r.muted.Render(fmt.Sprintf("(%d malformed ledger rows skipped)", st.SkippedRows)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(r.label.Render("Last error:"))
	b.WriteString("\n")
	b.WriteString(r.muted.Render(st.LastError))
	b.WriteString("\n")
	return b.String()
}

// FormatETA renders a duration as HH:MM:SS, or "--:--:--" when unknown.
func FormatETA(d time.Duration) string {
	if d <= 0 {
		return "--:--:--"
	}
	secs := int64(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}

func formatGap(d time.Duration) string {
	if d <= 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
