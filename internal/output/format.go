// Package output renders Clair analyses in the formats paclair supports.
package output

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Format is an analysis output format.
type Format string

const (
	FormatJSON  Format = "json"
	FormatStats Format = "stats"
	FormatHTML  Format = "html"
	FormatTable Format = "table"
	FormatSARIF Format = "sarif"
)

var ErrUnknownFormat = errors.New("unknown output format")

// Formats lists the supported formats, default first.
var Formats = []Format{FormatJSON, FormatStats, FormatHTML, FormatTable, FormatSARIF}

func ParseFormat(s string) (Format, error) {
	if s == "" {
		return FormatJSON, nil
	}

	f := Format(strings.ToLower(s))
	if !slices.Contains(Formats, f) {
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}

	return f, nil
}

// Extension is the file extension of reports written in f.
func (f Format) Extension() string {
	switch f {
	case FormatStats, FormatTable:
		return "txt"
	case FormatSARIF:
		return "sarif.json"
	case FormatJSON, FormatHTML:
		return string(f)
	}

	return string(f)
}

func (f Format) String() string {
	return string(f)
}
