// Package registry talks to Docker registry v2 APIs: it discovers how to
// authenticate, fetches image manifests and lists their layers.
package registry

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/paclair/paclair/internal/cmdlogger"
	"golang.org/x/sync/singleflight"
)

const (
	// ClientID is sent as client_id to token endpoints.
	ClientID = "paclair"

	// DockerHubTokenURL is the token endpoint template of Docker Hub.
	DockerHubTokenURL = "https://auth.docker.io/token?client_id=" + ClientID +
		"&service=registry.docker.io&scope=repository:{image.name}:pull"

	defaultProtocol  = "https"
	defaultTokenType = "Bearer"
)

// Config describes how to reach and authenticate against a registry.
//
// TokenURL and APIPrefix are templates: `{registry.domain}`,
// `{image.name}`, `{image.repository}` and `{image.tag}` are substituted.
type Config struct {
	TokenURL  string
	APIPrefix string
	// Protocol defaults to https.
	Protocol string
	Username string
	Password string
	// Insecure disables TLS certificate verification.
	Insecure bool
	// Token is a fixed credential that bypasses token discovery.
	Token string
	// TokenType defaults to Bearer.
	TokenType string
}

// Registry is a Docker registry shared by every image resolved against its
// domain. The token endpoint is discovered once and cached.
type Registry struct {
	Domain     string
	Config     Config
	HTTPClient *http.Client

	group    singleflight.Group
	mu       sync.Mutex
	tokenURL string
	basic    bool
}

// New returns a registry for domain, filling in Config defaults.
func New(domain string, cfg Config) *Registry {
	if cfg.Protocol == "" {
		cfg.Protocol = defaultProtocol
	}
	if cfg.TokenType == "" {
		cfg.TokenType = defaultTokenType
	}

	client := http.DefaultClient
	if cfg.Insecure {
		client = &http.Client{
			Transport: &http.Transport{
				// #nosec G402 -- opted into by configuration
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		}
	}

	return &Registry{
		Domain:     domain,
		Config:     cfg,
		HTTPClient: client,
		tokenURL:   cfg.TokenURL,
	}
}

func (r *Registry) replacer(img *Image) *strings.Replacer {
	pairs := []string{
		"{registry.domain}", r.Domain,
		"{registry.protocol}", r.Config.Protocol,
	}
	if img != nil {
		pairs = append(pairs,
			"{image.name}", img.Name,
			"{image.repository}", img.Repository,
			"{image.tag}", img.Tag,
		)
	}

	return strings.NewReplacer(pairs...)
}

// BaseURL is `{protocol}://{domain}{api_prefix}` for img.
func (r *Registry) BaseURL(img *Image) string {
	return r.replacer(img).Replace(r.Config.Protocol + "://" + r.Domain + r.Config.APIPrefix)
}

// ManifestURL is the URL of img's manifest.
func (r *Registry) ManifestURL(img *Image) string {
	return r.BaseURL(img) + "/v2/" + img.Name + "/manifests/" + img.Tag
}

// BlobURL is the URL of one of img's layers.
func (r *Registry) BlobURL(img *Image, digest string) string {
	return r.BaseURL(img) + "/v2/" + img.Name + "/blobs/" + digest
}

func (r *Registry) hasCredentials() bool {
	return r.Config.Username != "" || r.Config.Password != ""
}

func (r *Registry) do(req *http.Request) (*http.Response, error) {
	if r.hasCredentials() && req.Header.Get("Authorization") == "" {
		req.SetBasicAuth(r.Config.Username, r.Config.Password)
	}

	return r.HTTPClient.Do(req)
}

type tokenEndpoint struct {
	url   string
	basic bool
}

// TokenURL returns the token endpoint template, querying the registry the
// first time. An empty URL with a nil error means the registry uses Basic
// authentication.
func (r *Registry) TokenURL(ctx context.Context) (string, error) {
	r.mu.Lock()
	if r.tokenURL != "" || r.basic {
		defer r.mu.Unlock()
		return r.tokenURL, nil
	}
	r.mu.Unlock()

	v, err, _ := r.group.Do("token-url", func() (any, error) {
		return r.discover(ctx)
	})
	if err != nil {
		return "", err
	}
	endpoint := v.(tokenEndpoint)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokenURL = endpoint.url
	r.basic = endpoint.basic

	return r.tokenURL, nil
}

func (r *Registry) discover(ctx context.Context) (tokenEndpoint, error) {
	url := r.BaseURL(nil) + "/v2/"
	cmdlogger.Debugf("Discovering the token endpoint of %s", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return tokenEndpoint{}, err
	}

	// unauthenticated, so that basic registries answer with their challenge
	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return tokenEndpoint{}, &AccessError{URL: url, Reason: err.Error()}
	}
	defer resp.Body.Close()

	header := resp.Header.Get("Www-Authenticate")
	if header == "" {
		return tokenEndpoint{}, &AccessError{URL: url, StatusCode: resp.StatusCode}
	}

	ch, ok := parseChallenge(header)
	if !ok {
		return tokenEndpoint{}, &AccessError{URL: url, Reason: "can't find token url in " + header}
	}

	if ch.Scheme == "basic" {
		cmdlogger.Debugf("Registry %s uses basic authentication (realm %q)", r.Domain, ch.Realm)
		return tokenEndpoint{basic: true}, nil
	}

	endpoint := fmt.Sprintf("%s?client_id=%s&service=%s&scope=repository:{image.name}:pull", ch.Realm, ClientID, ch.Service)
	cmdlogger.Debugf("Token url for %s: %s", r.Domain, endpoint)

	return tokenEndpoint{url: endpoint}, nil
}

type tokenResponse struct {
	Token       string `json:"token"`
	AccessToken string `json:"access_token"`
}

// Token returns a credential for img. It is empty when the registry uses
// Basic authentication.
func (r *Registry) Token(ctx context.Context, img *Image) (string, error) {
	if r.Config.Token != "" {
		return r.Config.Token, nil
	}

	tmpl, err := r.TokenURL(ctx)
	if err != nil {
		return "", err
	}
	if tmpl == "" {
		return "", nil
	}

	url := r.replacer(img).Replace(tmpl)
	cmdlogger.Debugf("Requesting token on %s", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := r.do(req)
	if err != nil {
		return "", &AccessError{URL: url, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &AccessError{URL: url, StatusCode: resp.StatusCode}
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", &AccessError{URL: url, Reason: fmt.Sprintf("invalid token response: %v", err)}
	}
	if token.Token == "" {
		token.Token = token.AccessToken
	}
	if token.Token == "" {
		return "", &AccessError{URL: url, Reason: "no token in response"}
	}

	return token.Token, nil
}

// Authorization returns the Authorization header value for img, or "" when
// requests should not carry one.
func (r *Registry) Authorization(ctx context.Context, img *Image) (string, error) {
	token, err := r.Token(ctx, img)
	if err != nil {
		return "", err
	}

	if token != "" {
		return r.Config.TokenType + " " + token, nil
	}

	if r.hasCredentials() {
		creds := r.Config.Username + ":" + r.Config.Password
		return "Basic " + base64.StdEncoding.EncodeToString([]byte(creds)), nil
	}

	return "", nil
}

// Manifest fetches img's manifest.
func (r *Registry) Manifest(ctx context.Context, img *Image) (*Manifest, error) {
	url := r.ManifestURL(img)

	authorization, err := img.Authorization(ctx)
	if err != nil {
		return nil, err
	}

	cmdlogger.Debugf("Requesting manifest on %s", url)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", strings.Join(acceptedManifestTypes, ", "))
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	resp, err := r.do(req)
	if err != nil {
		return nil, &AccessError{URL: url, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &AccessError{URL: url, StatusCode: resp.StatusCode}
	}

	var manifest Manifest
	if err := json.NewDecoder(resp.Body).Decode(&manifest); err != nil {
		return nil, &AccessError{URL: url, Reason: fmt.Sprintf("invalid manifest: %v", err)}
	}

	return &manifest, nil
}
