package plugins

import (
	"context"
	"sync"

	"github.com/paclair/paclair/internal/ancestry"
	"github.com/paclair/paclair/internal/config"
	"github.com/paclair/paclair/internal/reference"
	"github.com/paclair/paclair/internal/registry"
)

// Docker analyses container images pulled from Docker registries.
type Docker struct {
	Base

	registries map[string]*registry.Registry
	hub        *registry.Registry

	mu    sync.Mutex
	adhoc map[string]*registry.Registry
}

// NewDocker returns a Docker plugin knowing the given registries, keyed by
// domain, in addition to Docker Hub.
func NewDocker(scanner Scanner, registries map[string]registry.Config, deleteBeforePush bool) *Docker {
	d := &Docker{
		registries: make(map[string]*registry.Registry, len(registries)),
		hub:        registry.New(reference.DockerHubDomain, registry.Config{TokenURL: registry.DockerHubTokenURL}),
		adhoc:      make(map[string]*registry.Registry),
	}
	for domain, cfg := range registries {
		d.registries[domain] = registry.New(domain, cfg)
	}
	d.Base = Base{Clair: scanner, Format: ancestry.DockerFormat, DeleteBeforePush: deleteBeforePush, builder: d}

	return d
}

// RegistryConfig converts a configured registry.
func RegistryConfig(r config.Registry) registry.Config {
	user, password := r.Credentials()

	return registry.Config{
		TokenURL:  r.TokenURL,
		APIPrefix: r.APIPrefix,
		Protocol:  r.Protocol,
		Username:  user,
		Password:  password,
		Insecure:  !config.Enabled(r.Verify),
		Token:     r.Token,
		TokenType: r.TokenType,
	}
}

func (d *Docker) registry(res reference.Resolution) *registry.Registry {
	if res.Configured {
		return d.registries[res.Domain]
	}
	if res.Domain == reference.DockerHubDomain {
		return d.hub
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	reg, ok := d.adhoc[res.Domain]
	if !ok {
		reg = registry.New(res.Domain, registry.Config{})
		d.adhoc[res.Domain] = reg
	}

	return reg
}

// Image resolves name to an image of one of the known registries.
func (d *Docker) Image(name string) (*registry.Image, error) {
	ref, err := reference.Parse(name)
	if err != nil {
		return nil, err
	}

	res := reference.Resolve(ref, func(domain string) bool {
		_, ok := d.registries[domain]
		return ok
	})

	return registry.NewImage(d.registry(res), res.Name, res.Repository, res.Tag), nil
}

func (d *Docker) Ancestry(ctx context.Context, name string) (*ancestry.Ancestry, error) {
	img, err := d.Image(name)
	if err != nil {
		return nil, err
	}

	return ancestry.FromImage(ctx, img)
}

// AncestryName is the name of the head layer, which depends on the manifest.
func (d *Docker) AncestryName(ctx context.Context, name string) (string, error) {
	a, err := d.Ancestry(ctx, name)
	if err != nil {
		return "", err
	}

	return a.Name, nil
}

// Artifact is the package url of the image, or name itself when it is not a
// valid reference.
func (d *Docker) Artifact(name string) string {
	img, err := d.Image(name)
	if err != nil {
		return name
	}

	return img.PackageURL()
}
