package output

import (
	"io"
	"slices"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/muesli/reflow/truncate"
	"github.com/paclair/paclair/internal/clair"
)

const descriptionWidth = 60

// PrintTableResults prints report rows as a human friendly table, most
// severe first.
func PrintTableResults(w io.Writer, rows []clair.Row, terminalWidth int) {
	if terminalWidth <= 0 {
		text.DisableColors()
	}

	outputTable := newTable(w, terminalWidth)
	outputTable.AppendHeader(table.Row{"CVE", "Severity", "Package", "Version", "Fixed by", "Score", "Introduced by", "Description"})

	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b clair.Row) int {
		return compareSeverity(a.Severity, b.Severity)
	})

	for _, r := range sorted {
		outputTable.AppendRow(table.Row{
			r.CVE,
			RenderSeverity(r.Severity, terminalWidth > 0),
			r.Package,
			r.Current,
			r.Fixed,
			r.Score,
			shortLayer(r.Introduced),
			truncate.StringWithTail(r.Description, descriptionWidth, "…"),
		})
	}

	if outputTable.Length() == 0 {
		return
	}
	outputTable.Render()
}

// shortLayer keeps the beginning of a layer digest, enough to tell layers
// apart.
func shortLayer(layer string) string {
	const width = len("sha256:") + 12
	if len(layer) <= width {
		return layer
	}

	return layer[:width]
}

func newTable(outputWriter io.Writer, terminalWidth int) table.Writer {
	outputTable := table.NewWriter()
	outputTable.SetOutputMirror(outputWriter)

	// use fancy characters if we're outputting to a terminal
	if terminalWidth > 0 {
		outputTable.SetStyle(table.StyleRounded)
		outputTable.SetAllowedRowLength(terminalWidth)
	}

	outputTable.Style().Options.DoNotColorBordersAndSeparators = true
	outputTable.Style().Color.Row = text.Colors{text.Reset, text.BgHiBlack}
	outputTable.Style().Color.RowAlternate = text.Colors{text.Reset, text.BgBlack}

	return outputTable
}
