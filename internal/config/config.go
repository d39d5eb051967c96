// Package config loads the JSON configuration file of §6: the
// encoding/json route used directly because the spec's own external
// interface names JSON as the configuration format, the same way
// wut4's own tools read small JSON sidecar files with the standard
// library rather than a config-file library.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tricore-tools/tcasm/internal/diag"
)

// Architecture holds the §6 architecture.* keys.
type Architecture struct {
	Endianness string `json:"endianness"` // "little" or "big"
	WordSize   int    `json:"word_size"`  // 16 or 32
}

// Paths holds the §6 paths.* keys.
type Paths struct {
	InstructionSet string `json:"instruction_set"`
	OutputDir      string `json:"output_dir"`
}

// OutputConfig holds the §6 output.* keys.
type OutputConfig struct {
	GenerateLst   bool `json:"generate_lst"`
	GenerateBin   bool `json:"generate_bin"`
	GenerateHex   bool `json:"generate_hex"`
	GenerateMap   bool `json:"generate_map"`
	EnableMacros  bool `json:"enable_macros"`
}

// Config is the full configuration document.
type Config struct {
	Architecture Architecture `json:"architecture"`
	Paths        Paths        `json:"paths"`
	Output       OutputConfig `json:"output"`
}

// Default returns the configuration in effect when no file is
// supplied: little-endian, 32-bit native word, binary, listing and map
// output enabled, Intel HEX output disabled, and macros enabled (they
// are disabled explicitly via --no-macros at the CLI layer).
func Default() Config {
	return Config{
		Architecture: Architecture{Endianness: "little", WordSize: 32},
		Output: OutputConfig{
			GenerateLst:  true,
			GenerateBin:  true,
			GenerateHex:  false,
			GenerateMap:  true,
			EnableMacros: true,
		},
	}
}

// Load reads and validates the configuration file at path, reporting
// malformed JSON or an invalid key value as a ConfigError in bag. The
// returned Config starts from Default() so a partial file only
// overrides the keys it mentions.
func Load(path string, bag *diag.Bag) Config {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		bag.Errorf(diag.ConfigError, diag.Location{File: path}, "reading config: %v", err)
		return cfg
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		bag.Errorf(diag.ConfigError, diag.Location{File: path}, "parsing config: %v", err)
		return cfg
	}
	if cfg.Architecture.Endianness != "little" && cfg.Architecture.Endianness != "big" {
		bag.Errorf(diag.ConfigError, diag.Location{File: path}, "architecture.endianness must be \"little\" or \"big\", got %q", cfg.Architecture.Endianness)
		cfg.Architecture.Endianness = "little"
	}
	if cfg.Architecture.WordSize != 16 && cfg.Architecture.WordSize != 32 {
		bag.Errorf(diag.ConfigError, diag.Location{File: path}, "architecture.word_size must be 16 or 32, got %d", cfg.Architecture.WordSize)
		cfg.Architecture.WordSize = 32
	}
	return cfg
}

// String renders a one-line human summary of the effective
// configuration, used by --debug output.
func (c Config) String() string {
	return fmt.Sprintf("endianness=%s word_size=%d instruction_set=%q output_dir=%q lst=%v bin=%v hex=%v map=%v macros=%v",
		c.Architecture.Endianness, c.Architecture.WordSize, c.Paths.InstructionSet, c.Paths.OutputDir,
		c.Output.GenerateLst, c.Output.GenerateBin, c.Output.GenerateHex, c.Output.GenerateMap, c.Output.EnableMacros)
}
