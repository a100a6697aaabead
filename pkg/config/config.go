// Package config handles intcode.toml run configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/akhildatla/intcode/pkg/loader"
)

// FileName is the configuration file looked up by FindAndLoad.
const FileName = "intcode.toml"

// Config represents an intcode.toml file.
type Config struct {
	Program Program `toml:"program"`
	Run     Run     `toml:"run"`
	Pokes   []Poke  `toml:"poke"`
	Log     Log     `toml:"log"`

	// Dir is the directory containing the config file (set at load time).
	Dir string `toml:"-"`

	timeout time.Duration
}

// Program locates the program to run.
type Program struct {
	Path   string `toml:"path"`
	Column string `toml:"column"`
}

// Run configures a single execution.
type Run struct {
	Inputs   []int64 `toml:"inputs"`
	ASCII    bool    `toml:"ascii"`
	MaxSteps int64   `toml:"max_steps"`
	Timeout  string  `toml:"timeout"`
	Stats    bool    `toml:"stats"`
}

// Poke patches one cell before the run.
type Poke struct {
	Address uint64 `toml:"address"`
	Value   int64  `toml:"value"`
}

// Log configures logging.
type Log struct {
	Verbosity int `toml:"verbosity"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Program: Program{Column: loader.DefaultColumn},
	}
}

// Load parses the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	if _, err := toml.Decode(string(data), c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}

	// Defaults
	if c.Program.Column == "" {
		c.Program.Column = loader.DefaultColumn
	}
	if c.Run.Timeout != "" {
		c.timeout, err = time.ParseDuration(c.Run.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout in %s: %w", path, err)
		}
	}
	if c.Run.MaxSteps < 0 {
		return nil, fmt.Errorf("invalid max_steps in %s: %d", path, c.Run.MaxSteps)
	}

	return c, nil
}

// FindAndLoad walks up from startDir to find an intcode.toml file,
// then loads and returns it. Returns nil if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Timeout returns the parsed run timeout. Zero means none.
func (c *Config) Timeout() time.Duration {
	return c.timeout
}

// SetTimeout overrides the run timeout.
func (c *Config) SetTimeout(d time.Duration) {
	c.timeout = d
	c.Run.Timeout = d.String()
}

// ProgramPath returns the program path, resolved against Dir when relative.
func (c *Config) ProgramPath() string {
	p := c.Program.Path
	if p == "" || filepath.IsAbs(p) || c.Dir == "" {
		return p
	}
	return filepath.Join(c.Dir, p)
}
