package clair

import (
	"context"
	"net/http"
	"net/url"

	"github.com/paclair/paclair/internal/ancestry"
)

const v1LayersURI = "/v1/layers"

// v1 is the legacy layer API: a layer is posted at a time and points to its
// parent by name.
type v1 struct{}

type v1Layer struct {
	Name       string            `json:"Name"`
	Path       string            `json:"Path"`
	Format     string            `json:"Format"`
	Headers    map[string]string `json:"Headers,omitempty"`
	ParentName string            `json:"ParentName,omitempty"`
}

type v1LayerEnvelope struct {
	Layer v1Layer `json:"Layer"`
}

// post sends the layers root first so every parent is known to Clair before
// its children.
func (v1) post(ctx context.Context, c *Client, a *ancestry.Ancestry) error {
	parent := ""
	for _, l := range a.Layers {
		body := v1LayerEnvelope{Layer: v1Layer{
			Name:       l.Name,
			Path:       l.Path,
			Format:     a.Format,
			Headers:    l.Headers,
			ParentName: parent,
		}}
		if _, err := c.request(ctx, http.MethodPost, v1LayersURI, body); err != nil {
			return err
		}
		parent = l.Name
	}

	return nil
}

// delete removes the layers head first: Clair refuses to delete a layer
// that still has children.
func (v1) delete(ctx context.Context, c *Client, a *ancestry.Ancestry) error {
	for i := len(a.Layers) - 1; i >= 0; i-- {
		uri := v1LayersURI + "/" + url.PathEscape(a.Layers[i].Name)
		if _, err := c.request(ctx, http.MethodDelete, uri, nil); err != nil {
			return err
		}
	}

	return nil
}

func (v1) ancestryURI(name string) string {
	return v1LayersURI + "/" + url.PathEscape(name) + "?features&vulnerabilities"
}

func (v1) findings(doc CIMap) []Finding {
	var out []Finding
	for _, feature := range doc.Map("Layer").Slice("Features") {
		for _, vuln := range feature.Slice("Vulnerabilities") {
			out = append(out, newFinding(vuln, feature, "FixedBy", feature.String("AddedBy")))
		}
	}

	return out
}
