package plugins_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/paclair/paclair/internal/ancestry"
	"github.com/paclair/paclair/internal/clair"
	"github.com/paclair/paclair/internal/config"
	"github.com/paclair/paclair/internal/plugins"
	"github.com/paclair/paclair/internal/registry"
	"github.com/paclair/paclair/internal/testutility"
)

type fakeScanner struct {
	calls     []string
	deleteErr error
	postErr   error
	rows      []clair.Row
}

func (f *fakeScanner) PostAncestry(_ context.Context, a *ancestry.Ancestry) error {
	f.calls = append(f.calls, "post "+a.Name)
	return f.postErr
}

func (f *fakeScanner) DeleteAncestry(_ context.Context, a *ancestry.Ancestry) error {
	f.calls = append(f.calls, "delete "+a.Name)
	return f.deleteErr
}

func (f *fakeScanner) AncestryJSON(_ context.Context, name string) ([]byte, error) {
	f.calls = append(f.calls, "json "+name)
	return []byte(`{}`), nil
}

func (f *fakeScanner) Statistics(_ context.Context, name string) (map[string]int, error) {
	f.calls = append(f.calls, "stats "+name)
	return map[string]int{"High": 1}, nil
}

func (f *fakeScanner) Rows(_ context.Context, name string) ([]clair.Row, error) {
	f.calls = append(f.calls, "rows "+name)
	return f.rows, nil
}

func fileServer(t *testing.T) *testutility.MockHTTPServer {
	t.Helper()

	mock := testutility.NewMockHTTPServer(t)
	mock.SetMethodResponse(t, http.MethodHead, "/rootfs/cflinuxfs3.tgz", testutility.MockResponse{})

	return mock
}

func TestCleanName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"cflinuxfs3.tgz":           "cflinuxfs3",
		"rootfs/cflinuxfs3.tar.gz": "cflinuxfs3",
		"a/b/image":                "image",
		"archive.tar":              "archive.tar",
		"tgz":                      "tgz",
	}

	for name, want := range tests {
		if got := plugins.CleanName(name); got != want {
			t.Errorf("CleanName(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestHTTP_Push(t *testing.T) {
	t.Parallel()

	mock := fileServer(t)
	scanner := &fakeScanner{}
	p := plugins.NewCF(scanner, mock.URL+"/", true, false)

	if err := p.Push(context.Background(), "rootfs/cflinuxfs3.tgz"); err != nil {
		t.Fatalf("Push() returned an unexpected error: %v", err)
	}

	if diff := cmp.Diff([]string{"post cflinuxfs3"}, scanner.calls); diff != "" {
		t.Errorf("scanner calls mismatch (-want +got):\n%s", diff)
	}
}

func TestHTTP_Ancestry(t *testing.T) {
	t.Parallel()

	mock := fileServer(t)
	p := plugins.NewHTTP(&fakeScanner{}, "Rootfs", mock.URL, true, false)

	got, err := p.Ancestry(context.Background(), "rootfs/cflinuxfs3.tgz")
	if err != nil {
		t.Fatalf("Ancestry() returned an unexpected error: %v", err)
	}

	want := ancestry.Single("cflinuxfs3", "Rootfs", mock.URL+"/rootfs/cflinuxfs3.tgz", nil)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Ancestry() mismatch (-want +got):\n%s", diff)
	}

	reqs := mock.Requests()
	if len(reqs) != 1 || reqs[0].Method != http.MethodHead {
		t.Errorf("expected a single HEAD request, got %+v", reqs)
	}
}

func TestHTTP_Ancestry_Missing(t *testing.T) {
	t.Parallel()

	mock := fileServer(t)
	p := plugins.NewCF(&fakeScanner{}, mock.URL, true, false)

	_, err := p.Ancestry(context.Background(), "missing.tgz")
	if !errors.Is(err, clair.ErrResourceNotFound) {
		t.Errorf("Ancestry() error = %v, want %v", err, clair.ErrResourceNotFound)
	}
}

func TestBase_DeleteBeforePush(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		deleteErr error
		wantCalls []string
		wantErr   bool
	}{
		{
			name:      "previous analysis",
			wantCalls: []string{"delete cflinuxfs3", "post cflinuxfs3"},
		},
		{
			name:      "nothing to remove",
			deleteErr: clair.ErrResourceNotFound,
			wantCalls: []string{"delete cflinuxfs3", "post cflinuxfs3"},
		},
		{
			name:      "api cannot remove",
			deleteErr: clair.ErrUnsupportedOperation,
			wantCalls: []string{"delete cflinuxfs3", "post cflinuxfs3"},
		},
		{
			name:      "clair failure",
			deleteErr: &clair.ConnectionError{StatusCode: http.StatusBadGateway, Status: "502 Bad Gateway"},
			wantCalls: []string{"delete cflinuxfs3"},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mock := fileServer(t)
			scanner := &fakeScanner{deleteErr: tt.deleteErr}
			p := plugins.NewCF(scanner, mock.URL, true, true)

			err := p.Push(context.Background(), "rootfs/cflinuxfs3.tgz")
			var connErr *clair.ConnectionError
			if got := errors.As(err, &connErr); got != tt.wantErr {
				t.Fatalf("Push() error = %v, want connection error: %v", err, tt.wantErr)
			}

			if diff := cmp.Diff(tt.wantCalls, scanner.calls); diff != "" {
				t.Errorf("scanner calls mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBase_Analyse(t *testing.T) {
	t.Parallel()

	scanner := &fakeScanner{rows: []clair.Row{{ID: 0, CVE: "CVE-2018-0732"}}}
	p := plugins.NewCF(scanner, "https://files.test", true, false)
	ctx := context.Background()

	stats, err := p.Analyse(ctx, "cflinuxfs3.tgz", plugins.AnalysisStatistics)
	if err != nil {
		t.Fatalf("Analyse() returned an unexpected error: %v", err)
	}
	if diff := cmp.Diff(map[string]int{"High": 1}, stats.Statistics); diff != "" {
		t.Errorf("Analyse() statistics mismatch (-want +got):\n%s", diff)
	}

	rows, err := p.Analyse(ctx, "cflinuxfs3.tgz", plugins.AnalysisRows)
	if err != nil {
		t.Fatalf("Analyse() returned an unexpected error: %v", err)
	}
	if rows.AncestryName != "cflinuxfs3" || len(rows.Rows) != 1 {
		t.Errorf("Analyse() = %+v", rows)
	}

	doc, err := p.Analyse(ctx, "cflinuxfs3.tgz", plugins.AnalysisJSON)
	if err != nil {
		t.Fatalf("Analyse() returned an unexpected error: %v", err)
	}
	if string(doc.JSON) != "{}" {
		t.Errorf("Analyse() json = %s", doc.JSON)
	}

	want := []string{"stats cflinuxfs3", "rows cflinuxfs3", "json cflinuxfs3"}
	if diff := cmp.Diff(want, scanner.calls); diff != "" {
		t.Errorf("scanner calls mismatch (-want +got):\n%s", diff)
	}
}

func TestDocker_Image(t *testing.T) {
	t.Parallel()

	p := plugins.NewDocker(&fakeScanner{}, map[string]registry.Config{
		"artifactory.net":     {APIPrefix: "/api/docker/{image.repository}"},
		"registry.corp.local": {},
	}, false)

	tests := []struct {
		ref            string
		wantDomain     string
		wantName       string
		wantRepository string
		wantTag        string
	}{
		{ref: "ubuntu", wantDomain: "registry.hub.docker.com", wantName: "library/ubuntu", wantTag: "latest"},
		{ref: "paclair/paclair:2.1", wantDomain: "registry.hub.docker.com", wantName: "paclair/paclair", wantTag: "2.1"},
		{ref: "team.artifactory.net/app:1.0", wantDomain: "artifactory.net", wantName: "app", wantRepository: "team", wantTag: "1.0"},
		{ref: "registry.corp.local/app", wantDomain: "registry.corp.local", wantName: "app", wantTag: "latest"},
		{ref: "quay.io/coreos/etcd:v3", wantDomain: "quay.io", wantName: "coreos/etcd", wantTag: "v3"},
	}

	for _, tt := range tests {
		img, err := p.Image(tt.ref)
		if err != nil {
			t.Errorf("Image(%q) returned an unexpected error: %v", tt.ref, err)
			continue
		}

		if img.Registry.Domain != tt.wantDomain || img.Name != tt.wantName ||
			img.Repository != tt.wantRepository || img.Tag != tt.wantTag {
			t.Errorf("Image(%q) = %s (repository %q)", tt.ref, img, img.Repository)
		}
	}
}

func TestDocker_SharesRegistries(t *testing.T) {
	t.Parallel()

	p := plugins.NewDocker(&fakeScanner{}, nil, false)

	first, err := p.Image("quay.io/coreos/etcd")
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.Image("quay.io/coreos/flannel")
	if err != nil {
		t.Fatal(err)
	}
	if first.Registry != second.Registry {
		t.Errorf("expected images of the same domain to share their registry")
	}

	hub, err := p.Image("ubuntu")
	if err != nil {
		t.Fatal(err)
	}
	if hub.Registry.Config.TokenURL != registry.DockerHubTokenURL {
		t.Errorf("hub token url = %q", hub.Registry.Config.TokenURL)
	}
}

func TestDocker_InvalidReference(t *testing.T) {
	t.Parallel()

	p := plugins.NewDocker(&fakeScanner{}, nil, false)

	if err := p.Push(context.Background(), "not a reference"); err == nil {
		t.Errorf("Push() expected an error for an invalid reference")
	}
	if got := p.Artifact("not a reference"); got != "not a reference" {
		t.Errorf("Artifact() = %q, want the name unchanged", got)
	}
}

func TestDocker_Push(t *testing.T) {
	t.Parallel()

	mock := testutility.NewMockHTTPServer(t)
	mock.SetResponse(t, "/token", []byte(`{"token":"abc"}`))
	mock.SetResponse(t, "/v2/app/manifests/1.0", []byte(`{
		"schemaVersion": 2,
		"layers": [
			{"digest": "sha256:e692418e4cbaf90ca69d05a66403747baa33ee08806650b51fab815ad7fc331f"},
			{"digest": "sha256:3c3a4604a545cdc127456d94e421cd355bca5b528f4a9c1905b15da2eb4a4c6b"}
		]
	}`))

	domain := strings.TrimPrefix(mock.URL, "http://")
	scanner := &fakeScanner{}
	p := plugins.NewDocker(scanner, map[string]registry.Config{
		domain: {Protocol: "http", TokenURL: mock.URL + "/token"},
	}, false)

	ctx := context.Background()
	if err := p.Push(ctx, domain+"/app:1.0"); err != nil {
		t.Fatalf("Push() returned an unexpected error: %v", err)
	}

	name, err := p.AncestryName(ctx, domain+"/app:1.0")
	if err != nil {
		t.Fatalf("AncestryName() returned an unexpected error: %v", err)
	}
	if !strings.HasPrefix(name, "sha256:3c3a4604a545") {
		t.Errorf("AncestryName() = %s, want the head layer", name)
	}

	if diff := cmp.Diff([]string{"post " + name}, scanner.calls); diff != "" {
		t.Errorf("scanner calls mismatch (-want +got):\n%s", diff)
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load("../config/testdata/paclair.yml")
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}

	got, err := plugins.FromConfig(cfg, &fakeScanner{})
	if err != nil {
		t.Fatalf("FromConfig() returned an unexpected error: %v", err)
	}

	if _, ok := got["Docker"].(*plugins.Docker); !ok {
		t.Errorf("Docker plugin is %T", got["Docker"])
	}
	if cf, ok := got["Cf"].(*plugins.HTTP); !ok || cf.Format != plugins.CFFormat {
		t.Errorf("Cf plugin is %#v", got["Cf"])
	}

	_, err = plugins.New("Unknown", config.Plugin{Type: "ftp"}, &fakeScanner{})
	if !errors.Is(err, plugins.ErrPluginNotFound) {
		t.Errorf("New() error = %v, want %v", err, plugins.ErrPluginNotFound)
	}
}
