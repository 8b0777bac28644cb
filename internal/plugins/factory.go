package plugins

import (
	"fmt"

	"github.com/paclair/paclair/internal/config"
	"github.com/paclair/paclair/internal/registry"
)

// New builds the plugin described by cfg.
func New(name string, cfg config.Plugin, scanner Scanner) (Plugin, error) {
	switch cfg.Kind() {
	case config.KindDocker:
		registries := make(map[string]registry.Config, len(cfg.Registries))
		for domain, r := range cfg.Registries {
			registries[domain] = RegistryConfig(r)
		}

		return NewDocker(scanner, registries, cfg.DeleteBeforePush), nil
	case config.KindHTTP:
		return NewHTTP(scanner, cfg.ClairFormat, cfg.BaseURL, config.Enabled(cfg.Verify), cfg.DeleteBeforePush), nil
	case config.KindCF:
		return NewCF(scanner, cfg.BaseURL, config.Enabled(cfg.Verify), cfg.DeleteBeforePush), nil
	}

	return nil, fmt.Errorf("%w: %s has unknown kind %q", ErrPluginNotFound, name, cfg.Kind())
}

// FromConfig builds every configured plugin, keyed by plugin name.
func FromConfig(cfg config.Config, scanner Scanner) (map[string]Plugin, error) {
	result := make(map[string]Plugin, len(cfg.Plugins))
	for name, p := range cfg.Plugins {
		plugin, err := New(name, p, scanner)
		if err != nil {
			return nil, err
		}
		result[name] = plugin
	}

	return result, nil
}
