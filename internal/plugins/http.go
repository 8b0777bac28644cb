package plugins

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"

	"github.com/paclair/paclair/internal/ancestry"
	"github.com/paclair/paclair/internal/clair"
	"github.com/paclair/paclair/internal/cmdlogger"
)

// CFFormat is the Clair format of Cloud Foundry root filesystems.
const CFFormat = "cflinuxfs"

// HTTP analyses archives served below a base url. Each archive is a single
// layer ancestry.
type HTTP struct {
	Base

	BaseURL    string
	HTTPClient *http.Client
}

func NewHTTP(scanner Scanner, format, baseURL string, verify, deleteBeforePush bool) *HTTP {
	client := http.DefaultClient
	if !verify {
		client = &http.Client{
			Transport: &http.Transport{
				// #nosec G402 -- opted into by configuration
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		}
	}

	h := &HTTP{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: client,
	}
	h.Base = Base{Clair: scanner, Format: format, DeleteBeforePush: deleteBeforePush, builder: h}

	return h
}

// NewCF returns an HTTP plugin for Cloud Foundry root filesystems.
func NewCF(scanner Scanner, baseURL string, verify, deleteBeforePush bool) *HTTP {
	return NewHTTP(scanner, CFFormat, baseURL, verify, deleteBeforePush)
}

// CleanName drops the archive extension and directories of name.
func CleanName(name string) string {
	switch {
	case strings.HasSuffix(name, ".tar.gz"):
		name = strings.TrimSuffix(name, ".tar.gz")
	case strings.HasSuffix(name, ".tgz"):
		name = strings.TrimSuffix(name, ".tgz")
	}

	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}

	return name
}

// Ancestry checks the archive exists before pointing Clair at it.
func (h *HTTP) Ancestry(ctx context.Context, name string) (*ancestry.Ancestry, error) {
	path := h.Artifact(name)
	cmdlogger.Debugf("Checking %s", path)

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := h.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("checking %s: %w", path, err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s not found (%s): %w", name, resp.Status, clair.ErrResourceNotFound)
	}

	return ancestry.Single(CleanName(name), h.Format, path, nil), nil
}

func (h *HTTP) AncestryName(_ context.Context, name string) (string, error) {
	return CleanName(name), nil
}

// Artifact is the url of the archive.
func (h *HTTP) Artifact(name string) string {
	return h.BaseURL + "/" + name
}
