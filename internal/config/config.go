// Package config persists the optional settings of spec.md §6 ("an
// optional config file at a platform-dependent path stores codepage,
// workers, and selected per-operation defaults") as TOML, via the
// teacher's own BurntSushi/toml dependency (see DESIGN.md /
// SPEC_FULL.md §A.4/§B — the teacher's real config layer,
// fs/config/configfile, survived retrieval only as tests, so the wire
// format is chosen fresh against the one marshalling library the pack
// actually provides a real dependency for).
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/stsaz/fcom/internal/ferr"
)

// Config is the persisted settings record of spec.md §6.
type Config struct {
	Codepage string         `toml:"codepage"`
	Workers  int            `toml:"workers"`
	Defaults map[string]Default `toml:"defaults"`
}

// Default holds one operation's persisted default flag values, keyed by
// operation name in Config.Defaults.
type Default struct {
	Overwrite  bool `toml:"overwrite"`
	Recursive  bool `toml:"recursive"`
	BufferSize uint `toml:"buffer_size"`
}

const fileName = "fcom.toml"

// Dir returns the platform config directory fcom uses, creating it if
// needed.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", ferr.Wrap(ferr.System, "config.dir", err, "resolve user config dir")
	}
	dir := filepath.Join(base, "fcom")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", ferr.Wrap(ferr.System, "config.dir", err, "create %s", dir)
	}
	return dir, nil
}

// Path returns the full path to the persisted config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// DefaultConfig returns a Config with the spec's built-in defaults (empty
// codepage meaning "system default", one worker).
func DefaultConfig() Config {
	return Config{Workers: 1, Defaults: map[string]Default{}}
}

// Load reads the config file at Path(), returning DefaultConfig() (not
// an error) if it does not exist yet.
func Load() (Config, error) {
	path, err := Path()
	if err != nil {
		return Config{}, err
	}
	c := DefaultConfig()
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		return c, nil
	}
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return Config{}, ferr.Wrap(ferr.Format, "config.load", err, "parse %s", path)
	}
	if c.Defaults == nil {
		c.Defaults = map[string]Default{}
	}
	return c, nil
}

// Save writes c to Path(), overwriting any existing file.
func Save(c Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return ferr.Wrap(ferr.System, "config.save", err, "create %s", path)
	}
	defer f.Close()
	enc := toml.NewEncoder(f)
	if err := enc.Encode(c); err != nil {
		return ferr.Wrap(ferr.Format, "config.save", err, "encode %s", path)
	}
	return nil
}

// OperationDefaults returns name's persisted defaults, or the zero
// value if none are recorded.
func (c Config) OperationDefaults(name string) Default {
	return c.Defaults[name]
}

// SetOperationDefaults records d as name's persisted defaults, mutating
// c in place.
func (c *Config) SetOperationDefaults(name string, d Default) {
	if c.Defaults == nil {
		c.Defaults = map[string]Default{}
	}
	c.Defaults[name] = d
}
