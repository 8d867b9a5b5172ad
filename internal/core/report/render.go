package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	passStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	detailStyle  = lipgloss.NewStyle().Faint(true)
	summaryStyle = lipgloss.NewStyle().Bold(true)
)

// RenderText writes the human-readable diagnostic listing. Fixtures appear
// in path order; every mismatch is enumerated, with an explicit marker for
// capped overflow.
func RenderText(w io.Writer, r *Report) error {
	for _, result := range r.Results {
		if result.Passed {
			if _, err := fmt.Fprintf(w, "%s %s (%s)\n",
				passStyle.Render("PASS"), result.Path, result.Language); err != nil {
				return err
			}
			continue
		}

		if _, err := fmt.Fprintf(w, "%s %s (%s)\n",
			failStyle.Render("FAIL"), result.Path, result.Language); err != nil {
			return err
		}
		for _, m := range result.Verdict.Mismatches {
			if _, err := fmt.Fprintf(w, "    %s %s\n",
				detailStyle.Render(string(m.Kind)), m.String()); err != nil {
				return err
			}
		}
		if result.Verdict.Omitted > 0 {
			if _, err := fmt.Fprintf(w, "    %s\n",
				detailStyle.Render(fmt.Sprintf("%d more mismatches omitted", result.Verdict.Omitted))); err != nil {
				return err
			}
		}
	}

	for _, warning := range r.Warnings {
		if _, err := fmt.Fprintf(w, "%s %s: %s\n",
			warnStyle.Render("SKIP"), warning.Path, warning.Message); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "%s\n", summaryStyle.Render(
		fmt.Sprintf("%d fixtures: %d passed, %d failed (%d skipped)",
			r.Total, r.Passed, r.Failed, len(r.Warnings))))
	return err
}

// RenderJSON writes the report as indented JSON.
func RenderJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
