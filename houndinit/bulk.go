// Package houndinit is the reference bulk-init path: it drives a
// *hound.Hound through a batch of InitDriver calls described by a single
// JSON config file, one InitDriver call per configured driver entry.
//
// It lives outside the core hound package (rather than as a *Hound
// method) because the config loader it depends on has no reason to be
// part of the core's own import graph — InitDriver itself already loads
// each driver's schema file directly (see schemaload.go), so the only
// thing left for this package to own is turning one config file into a
// batch of calls.
package houndinit

import (
	"fmt"

	"hound"
	"hound/internal/houndcfg"
)

// Bulk loads a config file from configPath and calls h.InitDriver once
// per entry, resolving each entry's schema file against schemaBaseDir
// (falling back to the config's own schema_base_dir when empty).
func Bulk(h *hound.Hound, configPath, schemaBaseDir string) error {
	cfg, err := houndcfg.Load(configPath)
	if err != nil {
		return err
	}
	baseDir := schemaBaseDir
	if baseDir == "" {
		baseDir = cfg.SchemaBaseDir
	}

	for _, d := range cfg.Drivers {
		args, err := d.ArgsTokens()
		if err != nil {
			return err
		}
		if err := h.InitDriver(d.Name, d.Path, baseDir, d.SchemaFile, args); err != nil {
			return fmt.Errorf("driver %s: %w", d.Name, err)
		}
	}
	return nil
}
