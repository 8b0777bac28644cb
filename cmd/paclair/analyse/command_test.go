package analyse_test

import (
	"testing"

	"github.com/paclair/paclair/cmd/paclair/analyse"
	"github.com/paclair/paclair/internal/output"
)

func TestReportFileName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		format output.Format
		want   string
	}{
		{name: "ubuntu:16.04", format: output.FormatJSON, want: "ubuntu_16.04.json"},
		{name: "registry.corp.local/team/app:1.0", format: output.FormatHTML, want: "registry.corp.local_team_app_1.0.html"},
		{name: "cflinuxfs3.tgz", format: output.FormatStats, want: "cflinuxfs3.tgz.txt"},
		{name: "app", format: output.FormatSARIF, want: "app.sarif.json"},
	}

	for _, tt := range tests {
		if got := analyse.ReportFileName(tt.name, tt.format); got != tt.want {
			t.Errorf("ReportFileName(%q, %s) = %q, want %q", tt.name, tt.format, got, tt.want)
		}
	}
}
