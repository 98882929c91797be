// Package houndcfg is a reference bulk-init config loader. Like the
// schema loader, it's explicitly not the only legal implementation, but
// scenario tests exercise bulk init against a real file.
package houndcfg

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/shlex"
)

// DriverConfig is one entry in a Config's drivers list. Args is a single
// shell-style string (for humans hand-editing the file) and gets tokenized
// with shlex before being passed to InitDriver; a JSON array is not
// accepted.
type DriverConfig struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	SchemaFile string `json:"schema_file"`
	Args       string `json:"args"`
}

// Config is the top-level bulk-init document.
type Config struct {
	SchemaBaseDir string         `json:"schema_base_dir"`
	Drivers       []DriverConfig `json:"drivers"`
}

// Load reads and parses a bulk-init config file from path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// ArgsTokens tokenizes DriverConfig.Args the way a shell would, so config
// authors can write "--baud 9600 --device /dev/ttyUSB0" instead of a JSON
// array.
func (d DriverConfig) ArgsTokens() ([]string, error) {
	if d.Args == "" {
		return nil, nil
	}
	tokens, err := shlex.Split(d.Args)
	if err != nil {
		return nil, fmt.Errorf("driver %s: split args: %w", d.Name, err)
	}
	return tokens, nil
}
