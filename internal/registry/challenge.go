package registry

import (
	"strings"
)

type challenge struct {
	Scheme  string
	Realm   string
	Service string
	Scope   string
}

// parseChallenge reads a Www-Authenticate header value such as
// `Bearer realm="https://auth.docker.io/token",service="registry.docker.io"`.
func parseChallenge(h string) (challenge, bool) {
	scheme, params, _ := strings.Cut(strings.TrimSpace(h), " ")

	out := challenge{Scheme: strings.ToLower(scheme)}
	for _, p := range strings.Split(params, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(p), "=")
		if !ok {
			continue
		}
		v = strings.Trim(v, `"`)

		switch strings.ToLower(k) {
		case "realm":
			out.Realm = v
		case "service":
			out.Service = v
		case "scope":
			out.Scope = v
		}
	}

	switch out.Scheme {
	case "bearer":
		return out, out.Realm != ""
	case "basic":
		return out, true
	default:
		return out, false
	}
}
