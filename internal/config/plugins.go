package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// PluginSettings are the per-plugin values collaborators read when building
// their gates and schedules.
type PluginSettings struct {
	Enabled  *bool             `yaml:"enabled"`
	Channels []string          `yaml:"channels"`
	Roles    []string          `yaml:"roles"`
	Users    []string          `yaml:"users"`
	Schedule string            `yaml:"schedule"`
	Options  map[string]string `yaml:"options"`
}

// IsEnabled defaults to true when the file does not say otherwise.
func (s PluginSettings) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// Option returns a free-form option or the fallback.
func (s PluginSettings) Option(key, fallback string) string {
	if v, ok := s.Options[key]; ok && v != "" {
		return v
	}
	return fallback
}

type pluginFile struct {
	Plugins map[string]PluginSettings `yaml:"plugins"`
}

// PluginConfig is the accessor handed to collaborators. It is safe for
// concurrent use and can be reloaded at run time.
type PluginConfig struct {
	path string

	mu       sync.RWMutex
	settings map[string]PluginSettings
}

// LoadPluginConfig reads the YAML file at path. A missing file yields an
// empty configuration so every plugin runs with its defaults.
func LoadPluginConfig(path string) (*PluginConfig, error) {
	pc := &PluginConfig{path: path, settings: map[string]PluginSettings{}}
	if err := pc.Reload(); err != nil {
		return nil, err
	}
	return pc, nil
}

// NewPluginConfig builds an in-memory configuration.
func NewPluginConfig(settings map[string]PluginSettings) *PluginConfig {
	if settings == nil {
		settings = map[string]PluginSettings{}
	}
	return &PluginConfig{settings: settings}
}

func (pc *PluginConfig) Reload() error {
	if pc.path == "" {
		return nil
	}
	data, err := os.ReadFile(pc.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read plugin config: %w", err)
	}

	var file pluginFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse plugin config %s: %w", pc.path, err)
	}
	if err := file.validate(); err != nil {
		return fmt.Errorf("invalid plugin config %s: %w", pc.path, err)
	}
	if file.Plugins == nil {
		file.Plugins = map[string]PluginSettings{}
	}

	pc.mu.Lock()
	pc.settings = file.Plugins
	pc.mu.Unlock()
	return nil
}

// Plugin returns the settings for name, or zero settings when absent.
func (pc *PluginConfig) Plugin(name string) PluginSettings {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.settings[name]
}

func (f pluginFile) validate() error {
	for name, s := range f.Plugins {
		for field, ids := range map[string][]string{"channels": s.Channels, "roles": s.Roles, "users": s.Users} {
			for _, id := range ids {
				if strings.TrimSpace(id) == "" {
					return fmt.Errorf("plugins.%s.%s contains a blank id", name, field)
				}
			}
		}
	}
	return nil
}
