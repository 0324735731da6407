// Copyright © 2024 dWallet Labs
//
// This file is part of mpc-core. The full mpc-core copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package config loads the core's runtime tunables from YAML (spec §1:
// "configuration ... CLI flag parsing itself stays out of scope").
// Ground: teacher go.mod's indirect gopkg.in/yaml.v3 dependency,
// promoted to direct use here the way keygen/params.go groups its
// thresholds into one plain struct.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/dwallet-labs/mpc-core/protocol"
)

// defaultEventReorderBuffer bounds how many consensus messages the
// manager buffers per not-yet-admitted session before dropping further
// ones as unroutable (SPEC_FULL.md §9's open-question resolution).
const defaultEventReorderBuffer = 16

// Config holds the Session Manager's and Round Scheduler's tunables.
type Config struct {
	// MaxActiveUserSessions bounds concurrently active user-initiated
	// sessions (spec §4.4's MAX_ACTIVE); system sessions are unbounded.
	MaxActiveUserSessions uint64 `yaml:"max_active_user_sessions"`

	// DefaultDelay is the fallback delay policy D (spec §4.2) for any
	// protocol.Kind not present in Delays.
	DefaultDelay uint64 `yaml:"default_delay"`

	// Delays overrides DefaultDelay per protocol.Kind, keyed by the
	// Kind's String() (e.g. "Sign", "Presign").
	Delays map[string]uint64 `yaml:"delays"`

	// EventReorderBuffer bounds buffered consensus messages per unseen
	// SessionID (SPEC_FULL.md §9).
	EventReorderBuffer int `yaml:"event_reorder_buffer"`
}

// Default returns the configuration this engine ships with absent any
// YAML override.
func Default() Config {
	return Config{
		MaxActiveUserSessions: 64,
		DefaultDelay:          0,
		Delays:                map[string]uint64{},
		EventReorderBuffer:    defaultEventReorderBuffer,
	}
}

// DelayFor returns the configured delay for kind, falling back to
// DefaultDelay when kind has no specific entry.
func (c Config) DelayFor(kind protocol.Kind) uint64 {
	if d, ok := c.Delays[kind.String()]; ok {
		return d
	}
	return c.DefaultDelay
}

// Load reads and validates a Config from a YAML file at path, starting
// from Default() so a partial file only overrides what it names.
func Load(path string) (Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "config: opening file")
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "config: decoding yaml")
	}
	if cfg.EventReorderBuffer <= 0 {
		return Config{}, errors.New("config: event_reorder_buffer must be positive")
	}
	return cfg, nil
}
