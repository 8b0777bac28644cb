package registry

import "testing"

func TestParseChallenge(t *testing.T) {
	t.Parallel()

	tests := []struct {
		header string
		want   challenge
		ok     bool
	}{
		{
			header: `Bearer realm="https://auth.docker.io/token",service="registry.docker.io"`,
			want:   challenge{Scheme: "bearer", Realm: "https://auth.docker.io/token", Service: "registry.docker.io"},
			ok:     true,
		},
		{
			header: `Bearer realm="https://quay.io/v2/auth",service="quay.io",scope="repository:coreos/etcd:pull"`,
			want:   challenge{Scheme: "bearer", Realm: "https://quay.io/v2/auth", Service: "quay.io", Scope: "repository:coreos/etcd:pull"},
			ok:     true,
		},
		{
			header: `Basic realm="Artifactory Realm"`,
			want:   challenge{Scheme: "basic", Realm: "Artifactory Realm"},
			ok:     true,
		},
		{header: `Bearer service="registry.docker.io"`},
		{header: `Negotiate`},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			t.Parallel()

			got, ok := parseChallenge(tt.header)
			if ok != tt.ok {
				t.Fatalf("parseChallenge(%q) ok = %v, want %v", tt.header, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("parseChallenge(%q) = %+v, want %+v", tt.header, got, tt.want)
			}
		})
	}
}
