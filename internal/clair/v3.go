package clair

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/paclair/paclair/internal/ancestry"
)

const v3AncestryURI = "/ancestry"

// v3 is the ancestry API: the whole chain is posted in one document.
type v3 struct{}

type v3Layer struct {
	Hash    string            `json:"hash"`
	Path    string            `json:"path"`
	Headers map[string]string `json:"headers"`
}

type v3Ancestry struct {
	AncestryName string    `json:"ancestry_name"`
	Format       string    `json:"format"`
	Layers       []v3Layer `json:"layers"`
}

// v3Name makes name acceptable as a Clair v3 ancestry name.
func v3Name(name string) string {
	return strings.ReplaceAll(name, ":", "_")
}

func (v3) post(ctx context.Context, c *Client, a *ancestry.Ancestry) error {
	body := v3Ancestry{
		AncestryName: v3Name(a.Name),
		Format:       a.Format,
		Layers:       make([]v3Layer, 0, len(a.Layers)),
	}
	for _, l := range a.Layers {
		body.Layers = append(body.Layers, v3Layer{Hash: l.Hash, Path: l.Path, Headers: l.Headers})
	}

	_, err := c.request(ctx, http.MethodPost, v3AncestryURI, body)

	return err
}

func (v3) delete(_ context.Context, _ *Client, a *ancestry.Ancestry) error {
	return fmt.Errorf("deleting ancestry %s: %w", a.Name, ErrUnsupportedOperation)
}

func (v3) ancestryURI(name string) string {
	return v3AncestryURI + "/" + url.PathEscape(v3Name(name)) + "?with_vulnerabilities=1&with_features=1"
}

func (v3) findings(doc CIMap) []Finding {
	var out []Finding
	for _, layer := range doc.Map("ancestry").Slice("layers") {
		hash := layer.Map("layer").String("hash")
		if hash == "" {
			hash = layer.String("hash")
		}

		for _, feature := range layer.Slice("detected_features") {
			for _, vuln := range feature.Slice("vulnerabilities") {
				out = append(out, newFinding(vuln, feature, "fixed_by", hash))
			}
		}
	}

	return out
}
