// Package config loads device profiles: which generation to open and how
// the engine waits for it.
//
// Profiles are CUE (validated against an embedded schema) or TOML, chosen
// by file extension. Fields left out keep their defaults.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/BurntSushi/toml"

	"github.com/roach88/blitcore/internal/device"
	"github.com/roach88/blitcore/internal/engine"
)

//go:embed schema.cue
var schemaCUE string

// Profile configures one accelerator.
type Profile struct {
	// Generation names the device generation (see device.Names).
	Generation string
	// Timeout bounds the wait for a completion signal.
	Timeout time.Duration
	// Latency is the emulated transfer time. Zero keeps the device default.
	Latency time.Duration
	// TraceDB is the trace database path. Empty disables tracing.
	TraceDB string
}

// Default returns the built-in profile.
func Default() Profile {
	return Profile{
		Generation: "g2d4x",
		Timeout:    engine.DefaultTimeout,
	}
}

// ErrUnknownFormat is returned for a profile file that is neither CUE nor TOML.
var ErrUnknownFormat = errors.New("unknown profile format")

// fileConfig is the on-disk shape shared by both formats.
type fileConfig struct {
	Generation string `json:"generation" toml:"generation"`
	Timeout    string `json:"timeout,omitempty" toml:"timeout"`
	Latency    string `json:"latency,omitempty" toml:"latency"`
	TraceDB    string `json:"trace_db,omitempty" toml:"trace_db"`
}

// Load reads the profile at path. ".cue" and ".toml" are supported.
func Load(path string) (Profile, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return loadCUE(path)
	case ".toml":
		return loadTOML(path)
	}
	return Profile{}, fmt.Errorf("load profile %s: %w", path, ErrUnknownFormat)
}

func loadCUE(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("load profile: %w", err)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Profile{}, fmt.Errorf("compile profile schema: %w", err)
	}

	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return Profile{}, fmt.Errorf("parse profile %s: %w", path, err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Profile")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return Profile{}, fmt.Errorf("validate profile %s: %w", path, err)
	}

	var raw fileConfig
	if err := unified.Decode(&raw); err != nil {
		return Profile{}, fmt.Errorf("decode profile %s: %w", path, err)
	}

	cfg := Default()
	cfg.Generation = raw.Generation
	if raw.TraceDB != "" {
		cfg.TraceDB = raw.TraceDB
	}
	if err := applyDurations(&cfg, raw, raw.Timeout != "", raw.Latency != ""); err != nil {
		return Profile{}, fmt.Errorf("load profile %s: %w", path, err)
	}
	return cfg, nil
}

func loadTOML(path string) (Profile, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Profile{}, fmt.Errorf("load profile: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Profile{}, fmt.Errorf("load profile %s: unknown field %q", path, undecoded[0].String())
	}

	if meta.IsDefined("generation") {
		gen := strings.TrimSpace(raw.Generation)
		if !slices.Contains(device.Names(), gen) {
			return Profile{}, fmt.Errorf("load profile %s: unknown generation %q", path, gen)
		}
		cfg.Generation = gen
	}

	if meta.IsDefined("trace_db") {
		cfg.TraceDB = strings.TrimSpace(raw.TraceDB)
	}

	if err := applyDurations(&cfg, raw, meta.IsDefined("timeout"), meta.IsDefined("latency")); err != nil {
		return Profile{}, fmt.Errorf("load profile %s: %w", path, err)
	}
	return cfg, nil
}

func applyDurations(cfg *Profile, raw fileConfig, timeout, latency bool) error {
	if timeout {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Timeout))
		if err != nil {
			return fmt.Errorf("parse timeout: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %s", d)
		}
		cfg.Timeout = d
	}

	if latency {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Latency))
		if err != nil {
			return fmt.Errorf("parse latency: %w", err)
		}
		if d < 0 {
			return fmt.Errorf("latency must not be negative, got %s", d)
		}
		cfg.Latency = d
	}
	return nil
}

// DeviceConfig returns the device.Config for this profile.
func (p Profile) DeviceConfig() device.Config {
	return device.Config{Latency: p.Latency}
}
