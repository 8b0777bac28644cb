package reference_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/paclair/paclair/internal/reference"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want reference.Reference
	}{
		{
			name: "bare name",
			raw:  "ubuntu",
			want: reference.Reference{Name: "ubuntu", Tag: "latest"},
		},
		{
			name: "name and tag",
			raw:  "ubuntu:14.04",
			want: reference.Reference{Name: "ubuntu", Tag: "14.04"},
		},
		{
			name: "leading path segment is captured as a domain",
			raw:  "library/ubuntu",
			want: reference.Reference{Domain: "library", Name: "ubuntu", Tag: "latest"},
		},
		{
			name: "domain with port and nested path",
			raw:  "registry.example.com:5000/team/app:1.0-rc_1",
			want: reference.Reference{Domain: "registry.example.com:5000", Name: "team/app", Tag: "1.0-rc_1"},
		},
		{
			name: "separators inside name",
			raw:  "my.domain.io/some__name/with-dashes---x",
			want: reference.Reference{Domain: "my.domain.io", Name: "some__name/with-dashes---x", Tag: "latest"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := reference.Parse(tt.raw)
			if err != nil {
				t.Fatalf("Parse(%q) returned an unexpected error: %v", tt.raw, err)
			}

			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tt.raw, diff)
			}

			// parsing the normalised form again must be stable
			again, err := reference.Parse(got.String())
			if err != nil {
				t.Fatalf("Parse(%q) returned an unexpected error: %v", got.String(), err)
			}
			if diff := cmp.Diff(got, again); diff != "" {
				t.Errorf("round trip of %q mismatch (-want +got):\n%s", got.String(), diff)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{
		"",
		"Ubuntu",
		"ubuntu:",
		"ubuntu:-tag",
		"/ubuntu",
		"ubuntu@sha256:abc",
	} {
		_, err := reference.Parse(raw)
		if !errors.Is(err, reference.ErrInvalidReference) {
			t.Errorf("Parse(%q) error = %v, want %v", raw, err, reference.ErrInvalidReference)
		}
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	configured := map[string]bool{
		"artifactory.net":     true,
		"registry.corp.local": true,
		"localhost:5000":      true,
	}
	isConfigured := func(domain string) bool { return configured[domain] }

	tests := []struct {
		raw  string
		want reference.Resolution
	}{
		{
			raw: "ubuntu:16.04",
			want: reference.Resolution{
				Domain: reference.DockerHubDomain,
				Name:   "library/ubuntu",
				Tag:    "16.04",
			},
		},
		{
			raw: "bitnami/redis",
			want: reference.Resolution{
				Domain: reference.DockerHubDomain,
				Name:   "bitnami/redis",
				Tag:    "latest",
			},
		},
		{
			raw: "docker-local.artifactory.net/monimage:1",
			want: reference.Resolution{
				Domain:     "artifactory.net",
				Configured: true,
				Name:       "monimage",
				Repository: "docker-local",
				Tag:        "1",
			},
		},
		{
			raw: "registry.corp.local/team/app",
			want: reference.Resolution{
				Domain:     "registry.corp.local",
				Configured: true,
				Name:       "team/app",
				Tag:        "latest",
			},
		},
		{
			raw: "quay.io:443/coreos/etcd:v3",
			want: reference.Resolution{
				Domain: "quay.io:443",
				Name:   "coreos/etcd",
				Tag:    "v3",
			},
		},
		{
			raw: "localhost:5000/team/app:1",
			want: reference.Resolution{
				Domain:     "localhost:5000",
				Configured: true,
				Name:       "team/app",
				Tag:        "1",
			},
		},
		{
			raw: "myregistry:5000/app",
			want: reference.Resolution{
				Domain: "myregistry:5000",
				Name:   "app",
				Tag:    "latest",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()

			ref, err := reference.Parse(tt.raw)
			if err != nil {
				t.Fatalf("Parse(%q) returned an unexpected error: %v", tt.raw, err)
			}

			got := reference.Resolve(ref, isConfigured)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Resolve(%q) mismatch (-want +got):\n%s", tt.raw, diff)
			}
		})
	}
}
