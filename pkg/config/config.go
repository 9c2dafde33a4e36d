// Mutelight
// Copyright (c) 2026 The Mutelight Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Mutelight.
//
// Mutelight is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Mutelight is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Mutelight.  If not, see <http://www.gnu.org/licenses/>.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mutelight/mutelight/pkg/helpers/syncutil"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const (
	SchemaVersion = 1
	CfgEnv        = "MUTELIGHT_CFG"
)

var ErrSchemaMismatch = errors.New("schema version mismatch")

type Values struct {
	Host         Host      `toml:"host"`
	Indicator    Indicator `toml:"indicator"`
	Button       Button    `toml:"button"`
	ConfigSchema int       `toml:"config_schema"`
	DebugLogging bool      `toml:"debug_logging"`
}

type Indicator struct {
	Source         string `toml:"source"`
	Port           string `toml:"port"`
	HandshakeDelay string `toml:"handshake_delay" validate:"duration"`
	Baud           int    `toml:"baud" validate:"oneof=115200 57600 38400 31250 28800 19200 14400 9600 4800 2400 1200 600 300"`
	BlinkInterval  int    `toml:"blink_interval" validate:"oneof=2000 1000 500 200 0"`
}

type Button struct {
	PollInterval  string `toml:"poll_interval" validate:"duration"`
	FlushInterval string `toml:"flush_interval" validate:"duration"`
	Enabled       bool   `toml:"enabled"`
}

type Host struct {
	Driver         string `toml:"driver" validate:"oneof=obs mqtt"`
	URL            string `toml:"url" validate:"required"`
	Password       string `toml:"password,omitempty"`
	TopicPrefix    string `toml:"topic_prefix,omitempty"`
	RequestTimeout string `toml:"request_timeout" validate:"duration"`
}

var BaseDefaults = Values{
	ConfigSchema: SchemaVersion,
	Indicator: Indicator{
		Port:           "Disconnected",
		Baud:           115200,
		BlinkInterval:  500,
		HandshakeDelay: "1600ms",
	},
	Button: Button{
		Enabled:       true,
		PollInterval:  "250ms",
		FlushInterval: "1s",
	},
	Host: Host{
		Driver:         DriverOBS,
		URL:            "ws://localhost:4455",
		TopicPrefix:    "mutelight",
		RequestTimeout: "2s",
	},
}

type Instance struct {
	fs       afero.Fs
	cfgPath  string
	vals     Values
	defaults Values
	mu       syncutil.RWMutex
}

// NewConfig loads the config file from configDir, or from the path in
// MUTELIGHT_CFG, writing the defaults to disk first if it doesn't exist.
//
//nolint:gocritic // config struct copied for immutability
func NewConfig(fs afero.Fs, configDir string, defaults Values) (*Instance, error) {
	cfgPath := os.Getenv(CfgEnv)
	log.Debug().Msgf("env config path: %s", cfgPath)

	if cfgPath == "" {
		cfgPath = filepath.Join(configDir, CfgFile)
	}

	cfg := Instance{
		fs:       fs,
		cfgPath:  cfgPath,
		vals:     defaults,
		defaults: defaults,
	}

	if _, err := fs.Stat(cfgPath); os.IsNotExist(err) {
		log.Info().Msg("saving new default config to disk")

		err := fs.MkdirAll(filepath.Dir(cfgPath), 0o750)
		if err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}

		err = cfg.Save()
		if err != nil {
			return nil, err
		}
	}

	err := cfg.Load()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Load reads the config file over the defaults. The current values are kept
// if the file can't be read, parsed or validated.
func (c *Instance) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	data, err := afero.ReadFile(c.fs, c.cfgPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	newVals := c.defaults
	err = toml.Unmarshal(data, &newVals)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if newVals.ConfigSchema != SchemaVersion {
		log.Error().Msgf(
			"schema version mismatch: got %d, expecting %d",
			newVals.ConfigSchema,
			SchemaVersion,
		)
		return ErrSchemaMismatch
	}

	if err := Validate(&newVals); err != nil {
		return err
	}

	c.vals = newVals
	return nil
}

func (c *Instance) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	c.vals.ConfigSchema = SchemaVersion

	data, err := toml.Marshal(&c.vals)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := afero.WriteFile(c.fs, c.cfgPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Instance) Path() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfgPath
}

// Values returns a copy of the current values.
func (c *Instance) Values() Values {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals
}

func (c *Instance) DebugLogging() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DebugLogging
}

func (c *Instance) SetDebugLogging(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.DebugLogging = enabled
	if enabled {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
