package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Arxiv       Arxiv       `yaml:"arxiv"`
	Output      Output      `yaml:"output"`
	Server      Server      `yaml:"server"`
	ReadingList ReadingList `yaml:"reading_list"`
}

type Arxiv struct {
	Query      string `yaml:"query"`
	MaxResults int    `yaml:"max_results"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

// ReadingList holds the default-view settings written into a fresh
// reading list document.
type ReadingList struct {
	DefaultSort   string `yaml:"default_sort"`
	DefaultFilter string `yaml:"default_filter"`
	ItemsPerPage  int    `yaml:"items_per_page"`
}

// ConfigDir returns the XDG config directory for papertrend.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "papertrend")
}

// DataDir returns the XDG data directory for papertrend.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "papertrend")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/papertrend/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'papertrend init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Arxiv: Arxiv{
			Query:      `cat:cs.CL OR cat:cs.LG OR all:"large language model"`,
			MaxResults: 200,
		},
		Server: Server{Port: 8000},
		ReadingList: ReadingList{
			DefaultSort:   "addedAt",
			DefaultFilter: "all",
			ItemsPerPage:  20,
		},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
