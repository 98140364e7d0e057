package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the optional run-control file of the interpreter. Everything
// here has a default; CLI flags override file values.
type Config struct {
	Log struct {
		// Verbosity is a logrus level name (PANIC..TRACE).
		Verbosity string `toml:"verbosity"`
	} `toml:"log"`

	Dump struct {
		// Disassemble dumps a script's compiled chunk instead of running it.
		// It has no effect in REPL mode.
		Disassemble bool `toml:"disassemble"`
	} `toml:"dump"`

	REPL struct {
		Prompt string `toml:"prompt"`
	} `toml:"repl"`
}

func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Log.Verbosity = "INFO"
	cfg.Dump.Disassemble = false
	cfg.REPL.Prompt = ">> "
	return cfg
}

// Load reads the TOML file at path on top of the defaults. An empty path
// falls back to the search path; no file found is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = findConfigFile()
		if path == "" {
			return cfg, nil
		}
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findConfigFile looks for grox.toml next to the working directory, then
// under the user config dir.
func findConfigFile() string {
	candidates := []string{"grox.toml"}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "grox", "config.toml"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
