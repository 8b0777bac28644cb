// Package reference parses container image references and resolves which
// registry they point to.
package reference

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// DockerHubDomain is the registry used when a reference carries no domain.
const DockerHubDomain = "registry.hub.docker.com"

// DefaultTag is used when a reference carries no tag.
const DefaultTag = "latest"

// ErrInvalidReference is returned when a string is not an image reference.
var ErrInvalidReference = errors.New("invalid image reference")

const (
	domainExpr = `(?:(?P<domain>(?:[a-zA-Z0-9]|[a-zA-Z0-9][a-zA-Z0-9-]*[a-zA-Z0-9])` +
		`(?:(?:\.(?:[a-zA-Z0-9]|[a-zA-Z0-9][a-zA-Z0-9-]*[a-zA-Z0-9]))+)?(?::[0-9]+)?)/)?`
	nameExpr = `(?P<name>[a-z0-9]+(?:(?:(?:[._]|__|[-]*)[a-z0-9]+)+)?` +
		`(?:(?:/[a-z0-9]+(?:(?:(?:[._]|__|[-]*)[a-z0-9]+)+)?)+)?)`
	tagExpr = `(?::(?P<tag>[\w][\w.-]{0,127}))?`
)

var (
	referenceRegexp = regexp.MustCompile(`^` + domainExpr + nameExpr + tagExpr + `$`)
	// domainRegexp splits "<repository>.<host>[:port]"; it is searched, not anchored at the start.
	domainRegexp = regexp.MustCompile(`(?P<repository>[a-zA-Z0-9-]*)\.(?P<domain>[a-zA-Z0-9-.]*)[:0-9]*$`)
)

// Reference is a parsed `[domain/]name[:tag]` string.
type Reference struct {
	// Domain is empty when the reference has none.
	Domain string
	Name   string
	Tag    string
}

// Parse parses raw, defaulting the tag to "latest".
func Parse(raw string) (Reference, error) {
	match := referenceRegexp.FindStringSubmatch(raw)
	if match == nil {
		return Reference{}, fmt.Errorf("%w: %q", ErrInvalidReference, raw)
	}

	ref := Reference{
		Domain: match[referenceRegexp.SubexpIndex("domain")],
		Name:   match[referenceRegexp.SubexpIndex("name")],
		Tag:    match[referenceRegexp.SubexpIndex("tag")],
	}
	if ref.Tag == "" {
		ref.Tag = DefaultTag
	}

	return ref, nil
}

func (r Reference) String() string {
	s := r.Name + ":" + r.Tag
	if r.Domain != "" {
		s = r.Domain + "/" + s
	}

	return s
}

// Resolution says which registry a reference is served from, and under
// which name.
type Resolution struct {
	// Domain is the registry domain, DockerHubDomain for the public registry.
	Domain string
	// Configured is true when Domain is one of the known registries.
	Configured bool
	// Name is the repository path requested from the registry.
	Name string
	// Repository is the per-image scope used by multi-tenant registries
	// (artifactory style `<repository>.<host>` domains).
	Repository string
	Tag        string
}

// Resolve picks the registry for ref, given the set of configured registry
// domains.
//
// The order matters and is relied upon by registry configurations:
//  1. no domain: Docker Hub with the implicit "library/" namespace;
//  2. a domain with neither "." nor ":" is a Docker Hub namespace;
//  3. `<repository>.<host>` where host is configured;
//  4. the whole domain is configured;
//  5. an ad-hoc registry for the literal domain.
func Resolve(ref Reference, configured func(domain string) bool) Resolution {
	res := Resolution{Domain: DockerHubDomain, Name: ref.Name, Tag: ref.Tag}

	if ref.Domain == "" {
		res.Name = "library/" + ref.Name

		return res
	}

	if !strings.ContainsAny(ref.Domain, ".:") {
		res.Name = ref.Domain + "/" + ref.Name

		return res
	}

	if match := domainRegexp.FindStringSubmatch(ref.Domain); match != nil {
		host := match[domainRegexp.SubexpIndex("domain")]
		if configured(host) {
			res.Domain = host
			res.Configured = true
			res.Repository = match[domainRegexp.SubexpIndex("repository")]

			return res
		}
	}

	res.Domain = ref.Domain
	res.Configured = configured(ref.Domain)

	return res
}
