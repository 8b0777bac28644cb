package registry

import (
	"context"
	"strings"
	"sync"

	"github.com/opencontainers/go-digest"
	"github.com/package-url/packageurl-go"
)

const shortIdentityLength = 12

// Image is one tagged repository of a registry. Its manifest, layers,
// authorization and identity are fetched or computed at most once.
type Image struct {
	Name string
	// Repository is the multi-tenant scope, empty for most registries.
	Repository string
	Tag        string
	Registry   *Registry

	authOnce      sync.Once
	authorization string
	authErr       error

	manifestOnce sync.Once
	manifest     *Manifest
	layers       []string
	manifestErr  error

	identityOnce sync.Once
	identity     digest.Digest
}

func NewImage(reg *Registry, name, repository, tag string) *Image {
	return &Image{
		Name:       name,
		Repository: repository,
		Tag:        tag,
		Registry:   reg,
	}
}

func (i *Image) String() string {
	return i.Registry.Domain + "/" + i.Name + ":" + i.Tag
}

// Authorization returns the Authorization header value used for this image.
func (i *Image) Authorization(ctx context.Context) (string, error) {
	i.authOnce.Do(func() {
		i.authorization, i.authErr = i.Registry.Authorization(ctx, i)
	})

	return i.authorization, i.authErr
}

// Manifest fetches the image manifest once.
func (i *Image) Manifest(ctx context.Context) (*Manifest, error) {
	i.manifestOnce.Do(func() {
		i.manifest, i.manifestErr = i.Registry.Manifest(ctx, i)
		if i.manifestErr == nil {
			i.layers = i.manifest.Digests()
		}
	})

	return i.manifest, i.manifestErr
}

// Layers returns the image layer digests ordered from root to head.
func (i *Image) Layers(ctx context.Context) ([]string, error) {
	if _, err := i.Manifest(ctx); err != nil {
		return nil, err
	}

	return i.layers, nil
}

// Sha is the hex encoded sha256 of the concatenated layer digests.
func (i *Image) Sha(ctx context.Context) (string, error) {
	layers, err := i.Layers(ctx)
	if err != nil {
		return "", err
	}

	i.identityOnce.Do(func() {
		i.identity = digest.FromString(strings.Join(layers, ""))
	})

	return i.identity.Encoded(), nil
}

// ShortSha is the first twelve characters of Sha.
func (i *Image) ShortSha(ctx context.Context) (string, error) {
	sha, err := i.Sha(ctx)
	if err != nil {
		return "", err
	}

	return sha[:shortIdentityLength], nil
}

// BlobURL is the URL the scanner fetches a layer from.
func (i *Image) BlobURL(digest string) string {
	return i.Registry.BlobURL(i, digest)
}

// PackageURL identifies the image as a `pkg:docker` package URL.
func (i *Image) PackageURL() string {
	namespace, name := "", i.Name
	if idx := strings.LastIndex(i.Name, "/"); idx >= 0 {
		namespace, name = i.Name[:idx], i.Name[idx+1:]
	}

	return packageurl.NewPackageURL(
		packageurl.TypeDocker,
		namespace,
		name,
		i.Tag,
		packageurl.QualifiersFromMap(map[string]string{"repository_url": i.Registry.Domain}),
		"",
	).ToString()
}
