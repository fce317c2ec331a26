package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const DefaultCacheDir = "repos"

var DefaultRemoteHosts = []string{"github.com", "gitlab.com", "bitbucket.org"}

type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

type Config struct {
	CacheDir    string    `yaml:"cache_dir" toml:"cache_dir"`
	RemoteHosts []string  `yaml:"remote_hosts,omitempty" toml:"remote_hosts,omitempty"`
	Exclude     []string  `yaml:"exclude,omitempty" toml:"exclude,omitempty"`
	Refresh     bool      `yaml:"refresh,omitempty" toml:"refresh,omitempty"`
	Log         LogConfig `yaml:"log" toml:"log"`
}

func DefaultConfig() *Config {
	return &Config{
		CacheDir:    DefaultCacheDir,
		RemoteHosts: append([]string(nil), DefaultRemoteHosts...),
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// ConfigCandidates lists config files in lookup order: project files in dir
// first, then the per-user file under home.
func ConfigCandidates(dir, home string) []string {
	candidates := []string{
		filepath.Join(dir, ".gitwalk.yaml"),
		filepath.Join(dir, ".gitwalk.toml"),
	}
	if home != "" {
		candidates = append(candidates, filepath.Join(home, ".gitwalk", "config.yaml"))
	}
	return candidates
}

// FindConfig returns the first existing candidate, or "" when none exist.
func FindConfig(candidates []string) string {
	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// LoadConfig reads path as YAML or TOML depending on its extension. An empty
// or missing path yields the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", filepath.Ext(path))
	}

	if cfg.CacheDir == "" {
		cfg.CacheDir = DefaultCacheDir
	}
	if cfg.RemoteHosts == nil {
		cfg.RemoteHosts = append([]string(nil), DefaultRemoteHosts...)
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	defer f.Close()

	if strings.ToLower(filepath.Ext(path)) == ".toml" {
		if err := toml.NewEncoder(f).Encode(cfg); err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		return nil
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}
