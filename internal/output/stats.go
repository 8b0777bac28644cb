package output

import (
	"cmp"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Clair severities, most severe first.
var severityRank = map[string]int{
	"defcon1":    0,
	"critical":   1,
	"high":       2,
	"medium":     3,
	"low":        4,
	"negligible": 5,
	"unknown":    6,
}

var severityColor = map[string]lipgloss.Color{
	"unknown":    lipgloss.Color("243"), // grey
	"negligible": lipgloss.Color("243"), // grey
	"low":        lipgloss.Color("28"),  // green
	"medium":     lipgloss.Color("208"), // orange
	"high":       lipgloss.Color("160"), // red
	"critical":   lipgloss.Color("88"),  // dark red
	"defcon1":    lipgloss.Color("88"),  // dark red
}

func rank(severity string) int {
	if r, ok := severityRank[strings.ToLower(severity)]; ok {
		return r
	}

	return len(severityRank)
}

// compareSeverity orders severities from most to least severe, then by
// name.
func compareSeverity(a, b string) int {
	return cmp.Or(cmp.Compare(rank(a), rank(b)), cmp.Compare(a, b))
}

// RenderSeverity colours severity when color is set.
func RenderSeverity(severity string, color bool) string {
	c, ok := severityColor[strings.ToLower(severity)]
	if !color || !ok {
		return severity
	}

	return lipgloss.NewStyle().Foreground(c).Bold(true).Render(severity)
}

// PrintStatistics prints one `Severity: count` line per severity.
func PrintStatistics(w io.Writer, stats map[string]int, color bool) error {
	for _, severity := range slices.SortedFunc(maps.Keys(stats), compareSeverity) {
		if _, err := fmt.Fprintf(w, "%s: %d\n", RenderSeverity(severity, color), stats[severity]); err != nil {
			return fmt.Errorf("failed to write statistics: %w", err)
		}
	}

	return nil
}
