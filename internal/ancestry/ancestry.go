// Package ancestry builds the chain of layers submitted to Clair for one
// scannable artifact.
package ancestry

import (
	"context"
	"errors"
	"fmt"

	"github.com/paclair/paclair/internal/cmdlogger"
	"github.com/paclair/paclair/internal/registry"
)

// DockerFormat is the Clair format of container image layers.
const DockerFormat = "Docker"

var ErrEmptyAncestry = errors.New("ancestry has no layers")

// Layer is one element of an ancestry. Parent is the name of the previous
// layer, empty for the root.
type Layer struct {
	Name string
	Hash string
	Path string
	// Headers are sent by Clair when it fetches Path; nil means none.
	Headers map[string]string
	Parent  string
}

// Ancestry is an ordered chain of layers, root first.
type Ancestry struct {
	Name   string
	Format string
	Layers []Layer
}

// Head returns the last layer of the chain.
func (a *Ancestry) Head() Layer {
	return a.Layers[len(a.Layers)-1]
}

// FromLayers chains digests from root to head. Every layer is named
// `<digest>_<shortIdentity>` so the same digest shared by two images yields
// two distinct Clair layers; the ancestry is named after its head.
func FromLayers(shortIdentity, format string, digests []string, blobURL func(digest string) string, headers map[string]string) (*Ancestry, error) {
	if len(digests) == 0 {
		return nil, ErrEmptyAncestry
	}

	a := &Ancestry{Format: format, Layers: make([]Layer, 0, len(digests))}
	parent := ""
	for _, d := range digests {
		l := Layer{
			Name:    d + "_" + shortIdentity,
			Hash:    d,
			Path:    blobURL(d),
			Headers: headers,
			Parent:  parent,
		}
		a.Layers = append(a.Layers, l)
		parent = l.Name
	}
	a.Name = a.Head().Name

	return a, nil
}

// FromImage builds the ancestry of a container image, giving Clair the
// image authorization so it can download the blobs.
func FromImage(ctx context.Context, img *registry.Image) (*Ancestry, error) {
	digests, err := img.Layers(ctx)
	if err != nil {
		return nil, err
	}

	short, err := img.ShortSha(ctx)
	if err != nil {
		return nil, err
	}

	authorization, err := img.Authorization(ctx)
	if err != nil {
		return nil, err
	}

	var headers map[string]string
	if authorization != "" {
		headers = map[string]string{"Authorization": authorization}
	}

	a, err := FromLayers(short, DockerFormat, digests, img.BlobURL, headers)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", img, err)
	}
	cmdlogger.Debugf("Created ancestry %s (%d layers)", a.Name, len(a.Layers))

	return a, nil
}

// Single builds a one layer ancestry for an artifact that is not a
// container image.
func Single(name, format, path string, headers map[string]string) *Ancestry {
	cmdlogger.Debugf("Creating %s ancestry", name)

	return &Ancestry{
		Name:   name,
		Format: format,
		Layers: []Layer{{Name: name, Hash: name, Path: path, Headers: headers}},
	}
}
