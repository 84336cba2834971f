// Package config manages cocokit project configuration and the .cocokit
// directory structure. It handles loading, saving, and initializing the
// project configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

const (
	ProjectDir = ".cocokit"
	ConfigFile = "config"
	RunLogFile = "runs.db"
	IndexFile  = "index.db"
)

// ErrNoProject is returned when no .cocokit directory is found.
var ErrNoProject = errors.New("not a cocokit project (or any parent up to root)")

// Config represents the cocokit project configuration
type Config struct {
	ImageDir   string `toml:"image_dir"`
	LabelDir   string `toml:"label_dir"`
	Catalog    string `toml:"catalog"`
	OutputName string `toml:"output_name"`
	LogLevel   string `toml:"log_level"`
	LogFormat  string `toml:"log_format"` // "text" or "json"
	Workers    int    `toml:"workers"`
	ServerAddr string `toml:"server_addr"`

	path string // path to .cocokit directory, empty for defaults
}

// Default returns the configuration used outside a project.
func Default() *Config {
	return &Config{
		ImageDir:   "images",
		LabelDir:   "labels",
		Catalog:    "classes.yaml",
		OutputName: "annotation.json",
		LogLevel:   "info",
		LogFormat:  "text",
		Workers:    4,
		ServerAddr: "127.0.0.1:8720",
	}
}

// FindRoot finds the .cocokit directory by walking up from the current
// directory.
func FindRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return FindRootFrom(dir)
}

// FindRootFrom walks up from dir looking for a .cocokit directory.
func FindRootFrom(dir string) (string, error) {
	for {
		p := filepath.Join(dir, ProjectDir)
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			return p, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNoProject
		}
		dir = parent
	}
}

// Load loads the configuration of the project containing the current
// directory.
func Load() (*Config, error) {
	root, err := FindRoot()
	if err != nil {
		return nil, err
	}
	return LoadFrom(root)
}

// LoadFrom loads the configuration stored in the given .cocokit directory.
// Keys missing from the file keep their defaults.
func LoadFrom(root string) (*Config, error) {
	data, err := os.ReadFile(filepath.Join(root, ConfigFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.path = root
	return cfg, nil
}

// Save saves the configuration to disk
func (c *Config) Save() error {
	if c.path == "" {
		return ErrNoProject
	}
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(filepath.Join(c.path, ConfigFile), data, 0644)
}

// Path returns the path to the .cocokit directory, or "" outside a project.
func (c *Config) Path() string {
	return c.path
}

// InProject reports whether the configuration was loaded from a project.
func (c *Config) InProject() bool {
	return c.path != ""
}

// Root returns the directory holding .cocokit.
func (c *Config) Root() string {
	if c.path == "" {
		return ""
	}
	return filepath.Dir(c.path)
}

// RunLogPath returns the path to the bbolt run log.
func (c *Config) RunLogPath() string {
	return filepath.Join(c.path, RunLogFile)
}

// IndexPath returns the default path of the SQLite index.
func (c *Config) IndexPath() string {
	return filepath.Join(c.path, IndexFile)
}

// Resolve makes a configured relative path absolute against the project
// root. Outside a project it is returned unchanged.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.path == "" {
		return p
	}
	return filepath.Join(c.Root(), p)
}

// Initialize creates a new .cocokit directory in dir with the default
// configuration.
func Initialize(dir string) (*Config, error) {
	root := filepath.Join(dir, ProjectDir)

	// Check if already initialized
	if _, err := os.Stat(root); err == nil {
		return nil, fmt.Errorf("cocokit project already exists in %s", dir)
	}

	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s directory: %w", ProjectDir, err)
	}

	cfg := Default()
	cfg.path = root

	if err := cfg.Save(); err != nil {
		// Cleanup on failure
		os.RemoveAll(root)
		return nil, err
	}

	return cfg, nil
}
