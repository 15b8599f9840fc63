package optimizer

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/pakstream/packlink/redirect"
)

// Config is the YAML build manifest consumed by the command line front end.
type Config struct {
	// Target names the platform the container is built for.
	Target string `yaml:"target"`

	// Workers caps parse and graph parallelism. Zero means GOMAXPROCS.
	Workers int `yaml:"workers"`

	// Redirects maps superseded package names to their replacements.
	Redirects map[string]string `yaml:"redirects"`

	Packages []PackageConfig `yaml:"packages"`

	// OutputDir receives the optimized buffers and the container manifest.
	OutputDir string `yaml:"output_dir"`
}

// PackageConfig points at one cooked package buffer on disk.
type PackageConfig struct {
	Path string `yaml:"path"`

	// Name overrides the package name for stubs when the buffer cannot be
	// parsed. Optional for well-formed inputs.
	Name string `yaml:"name"`

	// RedirectedFrom declares the package this one supersedes.
	RedirectedFrom string `yaml:"redirected_from"`
}

// LoadConfig reads and validates a build manifest. Relative package paths are
// resolved against the manifest's directory.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read build manifest: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse build manifest %s: %w", path, err)
	}

	base := filepath.Dir(path)
	for i := range cfg.Packages {
		p := &cfg.Packages[i]
		if p.Path == "" {
			return nil, fmt.Errorf("build manifest %s: package %d has no path", path, i)
		}
		if !filepath.IsAbs(p.Path) {
			p.Path = filepath.Join(base, p.Path)
		}
	}
	if cfg.OutputDir != "" && !filepath.IsAbs(cfg.OutputDir) {
		cfg.OutputDir = filepath.Join(base, cfg.OutputDir)
	}
	if cfg.Target == "" {
		cfg.Target = "default"
	}
	return &cfg, nil
}

// Inputs loads every package buffer named by the manifest.
func (c *Config) Inputs() ([]Input, error) {
	inputs := make([]Input, 0, len(c.Packages))
	for _, p := range c.Packages {
		data, err := os.ReadFile(p.Path)
		if err != nil {
			return nil, fmt.Errorf("read package buffer: %w", err)
		}
		inputs = append(inputs, Input{
			Name:           p.Name,
			RedirectedFrom: p.RedirectedFrom,
			Data:           data,
		})
	}
	return inputs, nil
}

// RedirectMap converts the manifest's redirect section.
func (c *Config) RedirectMap() redirect.Map {
	if len(c.Redirects) == 0 {
		return nil
	}
	m := make(redirect.Map, len(c.Redirects))
	for from, to := range c.Redirects {
		m[from] = to
	}
	return m
}
