// Package clair pushes ancestries to a Clair server and reads back the
// vulnerabilities it found, for both the v1 layer API and the v3 ancestry
// API.
package clair

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/paclair/paclair/internal/ancestry"
	"github.com/paclair/paclair/internal/cmdlogger"
)

const (
	APIV1 = "v1"
	APIV3 = "v3"
)

var ErrUnknownAPI = errors.New("unknown Clair api")

// protocol is what differs between the Clair APIs.
type protocol interface {
	post(ctx context.Context, c *Client, a *ancestry.Ancestry) error
	delete(ctx context.Context, c *Client, a *ancestry.Ancestry) error
	ancestryURI(name string) string
	findings(doc CIMap) []Finding
}

// Options are the Clair settings shared by both APIs.
type Options struct {
	// Insecure disables TLS certificate verification.
	Insecure bool
	// Whitelist lists the CVEs left out of statistics and reports.
	Whitelist []string
	// HTMLTemplate is a file replacing the built-in html report template.
	HTMLTemplate string
	HTTPClient   *http.Client
}

// Client talks to one Clair server with one API version.
type Client struct {
	URL     string
	Version string

	protocol   protocol
	httpClient *http.Client
	whitelist  map[string]struct{}
	template   *template.Template
}

// New returns a client for the api version ("v1" when empty) of the Clair
// server at url.
func New(api, url string, opts Options) (*Client, error) {
	var p protocol
	switch api {
	case "", APIV1:
		api, p = APIV1, v1{}
	case APIV3:
		p = v3{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAPI, api)
	}

	tmpl, err := loadTemplate(opts.HTMLTemplate)
	if err != nil {
		return nil, err
	}

	client := opts.HTTPClient
	switch {
	case client != nil:
	case opts.Insecure:
		client = &http.Client{
			Transport: &http.Transport{
				// #nosec G402 -- opted into by configuration
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		}
	default:
		client = http.DefaultClient
	}

	whitelist := make(map[string]struct{}, len(opts.Whitelist))
	for _, cve := range opts.Whitelist {
		whitelist[cve] = struct{}{}
	}

	return &Client{
		URL:        strings.TrimSuffix(url, "/"),
		Version:    api,
		protocol:   p,
		httpClient: client,
		whitelist:  whitelist,
		template:   tmpl,
	}, nil
}

// Whitelisted reports whether cve is left out of statistics and reports.
func (c *Client) Whitelisted(cve string) bool {
	_, ok := c.whitelist[cve]
	return ok
}

// request sends body, if any, as JSON and returns the response body.
func (c *Client) request(ctx context.Context, method, uri string, body any) ([]byte, error) {
	url := c.URL + uri
	cmdlogger.Debugf("Requesting %s on %s", method, url)

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		cmdlogger.Debugf("Sending to Clair: %s", data)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting Clair on %s: %w", url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading Clair response from %s: %w", url, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		cmdlogger.Debugf("Bad http code %d requesting Clair", resp.StatusCode)
		if reason(resp) == "Not Found" {
			return nil, fmt.Errorf("%s: %w", url, ErrResourceNotFound)
		}

		return nil, &ConnectionError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Header:     resp.Header,
			Body:       data,
		}
	}

	return data, nil
}

// reason is the text following the code in the status line.
func reason(resp *http.Response) string {
	return strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
}

// PostAncestry submits a for analysis.
func (c *Client) PostAncestry(ctx context.Context, a *ancestry.Ancestry) error {
	return c.protocol.post(ctx, c, a)
}

// DeleteAncestry removes a from Clair.
func (c *Client) DeleteAncestry(ctx context.Context, a *ancestry.Ancestry) error {
	return c.protocol.delete(ctx, c, a)
}

// AncestryJSON returns the analysis document of the named ancestry as
// Clair sent it.
func (c *Client) AncestryJSON(ctx context.Context, name string) ([]byte, error) {
	return c.request(ctx, http.MethodGet, c.protocol.ancestryURI(name), nil)
}

// Findings returns every vulnerability of the named ancestry, whitelisted
// or not.
func (c *Client) Findings(ctx context.Context, name string) ([]Finding, error) {
	data, err := c.AncestryJSON(ctx, name)
	if err != nil {
		return nil, err
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding analysis of %s: %w", name, err)
	}

	return c.protocol.findings(NewCIMap(doc)), nil
}

// Statistics counts the fixable, non whitelisted vulnerabilities of the
// named ancestry by severity.
func (c *Client) Statistics(ctx context.Context, name string) (map[string]int, error) {
	findings, err := c.Findings(ctx, name)
	if err != nil {
		return nil, err
	}

	return Statistics(findings, c.Whitelisted), nil
}

// Rows flattens the non whitelisted vulnerabilities of the named ancestry
// into report rows.
func (c *Client) Rows(ctx context.Context, name string) ([]Row, error) {
	findings, err := c.Findings(ctx, name)
	if err != nil {
		return nil, err
	}

	return BuildRows(findings, c.Whitelisted), nil
}
