package output_test

import (
	"errors"
	"testing"

	"github.com/paclair/paclair/internal/output"
)

func TestParseFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    output.Format
		wantErr error
	}{
		{in: "", want: output.FormatJSON},
		{in: "stats", want: output.FormatStats},
		{in: "HTML", want: output.FormatHTML},
		{in: "sarif", want: output.FormatSARIF},
		{in: "xml", wantErr: output.ErrUnknownFormat},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := output.ParseFormat(tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ParseFormat(%q) error = %v, want %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormat_Extension(t *testing.T) {
	t.Parallel()

	want := map[output.Format]string{
		output.FormatJSON:  "json",
		output.FormatStats: "txt",
		output.FormatHTML:  "html",
		output.FormatTable: "txt",
		output.FormatSARIF: "sarif.json",
	}
	for f, ext := range want {
		if got := f.Extension(); got != ext {
			t.Errorf("%s.Extension() = %q, want %q", f, got, ext)
		}
	}
}
