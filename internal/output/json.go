package output

import (
	"fmt"
	"io"

	"github.com/tidwall/pretty"
)

// PrintJSON prints a Clair document indented, colourised when color is set.
func PrintJSON(w io.Writer, doc []byte, color bool) error {
	out := pretty.Pretty(doc)
	if color {
		out = pretty.Color(out, nil)
	}

	_, err := w.Write(out)
	if err != nil {
		return fmt.Errorf("failed to write json: %w", err)
	}

	return nil
}
