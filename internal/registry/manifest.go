package registry

import (
	"slices"

	"github.com/opencontainers/go-digest"
	"github.com/paclair/paclair/internal/cmdlogger"
)

// Media types accepted when fetching a manifest; only single image manifests
// are requested so the registry resolves manifest lists for us.
var acceptedManifestTypes = []string{
	"application/vnd.docker.distribution.manifest.v2+json",
	"application/vnd.oci.image.manifest.v1+json",
	"application/vnd.docker.distribution.manifest.v1+prettyjws",
	"application/json",
}

// Manifest holds the parts of a schema 1 or schema 2 image manifest needed
// to list its layers.
type Manifest struct {
	SchemaVersion int    `json:"schemaVersion"`
	MediaType     string `json:"mediaType,omitempty"`

	// schema 2, root layer first
	Layers []Descriptor `json:"layers,omitempty"`

	// schema 1, head layer first
	FSLayers []FSLayer `json:"fsLayers,omitempty"`
}

type Descriptor struct {
	MediaType string `json:"mediaType,omitempty"`
	Size      int64  `json:"size,omitempty"`
	Digest    string `json:"digest"`
}

type FSLayer struct {
	BlobSum string `json:"blobSum"`
}

// Digests returns the layer digests from root to head, keeping only the
// first occurrence of a repeated digest.
func (m *Manifest) Digests() []string {
	var ordered []string
	if m.SchemaVersion == 2 {
		ordered = make([]string, 0, len(m.Layers))
		for _, l := range m.Layers {
			ordered = append(ordered, l.Digest)
		}
	} else {
		ordered = make([]string, 0, len(m.FSLayers))
		for _, l := range m.FSLayers {
			ordered = append(ordered, l.BlobSum)
		}
		slices.Reverse(ordered)
	}

	layers := make([]string, 0, len(ordered))
	seen := make(map[string]struct{}, len(ordered))
	for _, d := range ordered {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}

		if err := digest.Digest(d).Validate(); err != nil {
			cmdlogger.Warnf("Layer digest %q does not look like a content digest: %v", d, err)
		}

		layers = append(layers, d)
	}

	return layers
}
