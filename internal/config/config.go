// Package config reads the paclair configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the configuration is read from when no path is given.
const DefaultPath = "/etc/paclair.conf"

// Plugin kinds.
const (
	KindDocker = "docker"
	KindHTTP   = "http"
	KindCF     = "cf"
)

var knownKinds = []string{KindDocker, KindHTTP, KindCF}

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	General General           `yaml:"General"`
	Plugins map[string]Plugin `yaml:"Plugins"`

	// The path to config file that this config was loaded from
	LoadPath string `yaml:"-"`
}

type General struct {
	ClairURL string `yaml:"clair_url"`
	// Verify defaults to true.
	Verify *bool `yaml:"verify"`
	// API is the Clair api version, v1 or v3.
	API          string   `yaml:"api"`
	CVEWhitelist []string `yaml:"cve_whitelist"`
	// IgnoreFile is a TOML file of ignored vulnerabilities, relative to the
	// configuration file.
	IgnoreFile   string `yaml:"ignore_file"`
	HTMLTemplate string `yaml:"html_template"`
}

type Plugin struct {
	// Class is the historical way of naming the plugin implementation, for
	// example `paclair.plugins.docker_plugin.DockerPlugin`.
	Class string `yaml:"class"`
	Type  string `yaml:"type"`

	DeleteBeforePush bool `yaml:"delete_before_push"`

	// docker
	Registries map[string]Registry `yaml:"registries"`

	// http and cf
	BaseURL     string `yaml:"base_url"`
	ClairFormat string `yaml:"clair_format"`
	Verify      *bool  `yaml:"verify"`
}

type Registry struct {
	TokenURL  string `yaml:"token_url"`
	APIPrefix string `yaml:"api_prefix"`
	Protocol  string `yaml:"protocol"`
	// Auth is a [user, password] pair.
	Auth      []string `yaml:"auth"`
	Verify    *bool    `yaml:"verify"`
	Token     string   `yaml:"token"`
	TokenType string   `yaml:"token_type"`
}

// Enabled reads an optional boolean that defaults to true.
func Enabled(b *bool) bool {
	return b == nil || *b
}

// Kind returns the plugin kind, from Type or else from Class.
func (p Plugin) Kind() string {
	if p.Type != "" {
		return strings.ToLower(p.Type)
	}

	class := p.Class
	if i := strings.LastIndex(class, "."); i >= 0 {
		class = class[i+1:]
	}

	return strings.ToLower(strings.TrimSuffix(class, "Plugin"))
}

// Credentials returns the user and password of r, if any.
func (r Registry) Credentials() (string, string) {
	switch len(r.Auth) {
	case 0:
		return "", ""
	case 1:
		return r.Auth[0], ""
	default:
		return r.Auth[0], r.Auth[1]
	}
}

// Load reads and validates the configuration file at path.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	defer f.Close()

	var config Config
	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&config); err != nil {
		return Config{}, fmt.Errorf("%w %s: %w", ErrInvalidConfig, path, err)
	}
	config.LoadPath = path

	if err := config.validate(); err != nil {
		return Config{}, fmt.Errorf("%w %s: %w", ErrInvalidConfig, path, err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.General.ClairURL == "" {
		return errors.New("General.clair_url is required")
	}

	switch c.General.API {
	case "", "v1", "v3":
	default:
		return fmt.Errorf("unknown Clair api %q, expected v1 or v3", c.General.API)
	}

	for name, p := range c.Plugins {
		if !slices.Contains(knownKinds, p.Kind()) {
			return fmt.Errorf("plugin %s: unknown plugin kind %q (class %q)", name, p.Kind(), p.Class)
		}
		if p.Kind() != KindDocker && p.BaseURL == "" {
			return fmt.Errorf("plugin %s: base_url is required", name)
		}
		if p.Kind() == KindHTTP && p.ClairFormat == "" {
			return fmt.Errorf("plugin %s: clair_format is required", name)
		}
	}

	return nil
}

// Whitelist returns the CVEs to leave out of reports: the configured
// whitelist followed by the active entries of the ignore file.
func (c *Config) Whitelist() ([]string, error) {
	whitelist := slices.Clone(c.General.CVEWhitelist)
	if c.General.IgnoreFile == "" {
		return whitelist, nil
	}

	path := c.General.IgnoreFile
	if !filepath.IsAbs(path) && c.LoadPath != "" {
		path = filepath.Join(filepath.Dir(c.LoadPath), path)
	}

	ignores, err := LoadIgnoreFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return append(whitelist, ignores.Active()...), nil
}
