package paclair_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/paclair/paclair/internal/clair"
	"github.com/paclair/paclair/internal/config"
	"github.com/paclair/paclair/internal/output"
	"github.com/paclair/paclair/internal/plugins"
	"github.com/paclair/paclair/internal/testutility"
	"github.com/paclair/paclair/pkg/paclair"
	"github.com/tidwall/gjson"
)

type servers struct {
	clair *testutility.MockHTTPServer
	files *testutility.MockHTTPServer
}

func setup(t *testing.T, api string) (*paclair.PaClair, servers) {
	t.Helper()

	s := servers{
		clair: testutility.NewMockHTTPServer(t),
		files: testutility.NewMockHTTPServer(t),
	}
	s.clair.SetResponseFromFile(t, "/ancestry/debian", "testdata/debian_v3.json")
	s.files.SetMethodResponse(t, http.MethodHead, "/rootfs/debian.tgz", testutility.MockResponse{})

	p, err := paclair.New(config.Config{
		General: config.General{
			ClairURL:     s.clair.URL,
			API:          api,
			CVEWhitelist: []string{"CVE-2019-3815"},
		},
		Plugins: map[string]config.Plugin{
			"Cf": {Type: config.KindCF, BaseURL: s.files.URL},
		},
	})
	if err != nil {
		t.Fatalf("New() returned an unexpected error: %v", err)
	}

	return p, s
}

func TestNew_InvalidAPI(t *testing.T) {
	t.Parallel()

	_, err := paclair.New(config.Config{General: config.General{ClairURL: "http://clair.test", API: "v2"}})
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("New() error = %v, want %v", err, config.ErrInvalidConfig)
	}
}

func TestPaClair_UnknownPlugin(t *testing.T) {
	t.Parallel()

	p, _ := setup(t, clair.APIV3)
	ctx := context.Background()

	if err := p.Push(ctx, "Docker", "ubuntu"); !errors.Is(err, plugins.ErrPluginNotFound) {
		t.Errorf("Push() error = %v, want %v", err, plugins.ErrPluginNotFound)
	}
	if err := p.Delete(ctx, "Docker", "ubuntu"); !errors.Is(err, plugins.ErrPluginNotFound) {
		t.Errorf("Delete() error = %v, want %v", err, plugins.ErrPluginNotFound)
	}
	if _, err := p.Analyse(ctx, "Docker", "ubuntu", paclair.AnalyseOptions{}); !errors.Is(err, plugins.ErrPluginNotFound) {
		t.Errorf("Analyse() error = %v, want %v", err, plugins.ErrPluginNotFound)
	}
}

func TestPaClair_Push(t *testing.T) {
	t.Parallel()

	p, s := setup(t, clair.APIV3)
	s.clair.SetMethodResponse(t, http.MethodPost, "/ancestry", testutility.MockResponse{})

	if err := p.Push(context.Background(), "Cf", "rootfs/debian.tgz"); err != nil {
		t.Fatalf("Push() returned an unexpected error: %v", err)
	}

	requests := s.clair.Requests()
	if len(requests) != 1 {
		t.Fatalf("expected a single request to Clair, got %d", len(requests))
	}

	body := gjson.ParseBytes(requests[0].Body)
	if got := body.Get("ancestry_name").String(); got != "debian" {
		t.Errorf("ancestry_name = %q, want debian", got)
	}
	if got := body.Get("format").String(); got != plugins.CFFormat {
		t.Errorf("format = %q, want %s", got, plugins.CFFormat)
	}
	if got := body.Get("layers.0.path").String(); got != s.files.URL+"/rootfs/debian.tgz" {
		t.Errorf("layer path = %q", got)
	}
}

func TestPaClair_Push_MissingArchive(t *testing.T) {
	t.Parallel()

	p, s := setup(t, clair.APIV3)

	err := p.Push(context.Background(), "Cf", "rootfs/missing.tgz")
	if !errors.Is(err, clair.ErrResourceNotFound) {
		t.Errorf("Push() error = %v, want %v", err, clair.ErrResourceNotFound)
	}
	if n := len(s.clair.Requests()); n != 0 {
		t.Errorf("expected no request to Clair, got %d", n)
	}
}

func TestPaClair_Analyse_Stats(t *testing.T) {
	t.Parallel()

	p, _ := setup(t, clair.APIV3)

	got, err := p.Analyse(context.Background(), "Cf", "rootfs/debian.tgz", paclair.AnalyseOptions{Format: output.FormatStats})
	if err != nil {
		t.Fatalf("Analyse() returned an unexpected error: %v", err)
	}

	if diff := cmp.Diff("High: 2\nUnknown: 1\n", string(got)); diff != "" {
		t.Errorf("Analyse() mismatch (-want +got):\n%s", diff)
	}
}

func TestPaClair_Analyse_JSON(t *testing.T) {
	t.Parallel()

	p, _ := setup(t, clair.APIV3)

	got, err := p.Analyse(context.Background(), "Cf", "debian.tgz", paclair.AnalyseOptions{})
	if err != nil {
		t.Fatalf("Analyse() returned an unexpected error: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(got, &doc); err != nil {
		t.Fatalf("Analyse() returned invalid json: %v\n%s", err, got)
	}

	want := testutility.LoadJSONFixture[map[string]any](t, "testdata/debian_v3.json")
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Errorf("Analyse() mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(string(got), "\n  ") {
		t.Errorf("expected indented json, got %s", got)
	}
}

func TestPaClair_Analyse_Reports(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format output.Format
		want   []string
	}{
		{format: output.FormatHTML, want: []string{"Clair report: debian", "CVE-2018-0732", "CVE-2018-1000300"}},
		{format: output.FormatTable, want: []string{"CVE-2018-0732", "openssl"}},
		{format: output.FormatSARIF, want: []string{`"CVE-2018-0732"`, "/rootfs/debian.tgz"}},
	}

	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			t.Parallel()

			p, _ := setup(t, clair.APIV3)

			got, err := p.Analyse(context.Background(), "Cf", "rootfs/debian.tgz", paclair.AnalyseOptions{Format: tt.format})
			if err != nil {
				t.Fatalf("Analyse() returned an unexpected error: %v", err)
			}

			for _, want := range tt.want {
				if !strings.Contains(string(got), want) {
					t.Errorf("expected %q in the %s report", want, tt.format)
				}
			}
			if strings.Contains(string(got), "CVE-2019-3815") {
				t.Errorf("whitelisted CVE-2019-3815 is part of the %s report", tt.format)
			}
		})
	}
}

func TestPaClair_Analyse_UnknownFormat(t *testing.T) {
	t.Parallel()

	p, s := setup(t, clair.APIV3)

	_, err := p.Analyse(context.Background(), "Cf", "debian.tgz", paclair.AnalyseOptions{Format: "xml"})
	if !errors.Is(err, output.ErrUnknownFormat) {
		t.Errorf("Analyse() error = %v, want %v", err, output.ErrUnknownFormat)
	}
	if n := len(s.clair.Requests()); n != 0 {
		t.Errorf("expected no request to Clair, got %d", n)
	}
}

func TestPaClair_Analyse_Delete(t *testing.T) {
	t.Parallel()

	p, s := setup(t, clair.APIV3)

	_, err := p.Analyse(context.Background(), "Cf", "rootfs/debian.tgz", paclair.AnalyseOptions{Format: output.FormatStats, Delete: true})
	if !errors.Is(err, clair.ErrUnsupportedOperation) {
		t.Errorf("Analyse() error = %v, want %v", err, clair.ErrUnsupportedOperation)
	}

	// the archive is checked again before deleting
	if n := len(s.files.Requests()); n != 1 {
		t.Errorf("expected a single request for the archive, got %d", n)
	}
}

func TestPaClair_Plugins(t *testing.T) {
	t.Parallel()

	p, _ := setup(t, clair.APIV1)

	if diff := cmp.Diff([]string{"Cf"}, p.Plugins()); diff != "" {
		t.Errorf("Plugins() mismatch (-want +got):\n%s", diff)
	}
	if p.Clair.Version != clair.APIV1 {
		t.Errorf("Clair version = %s, want %s", p.Clair.Version, clair.APIV1)
	}
}
