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

package helpers

import (
	"fmt"
	"path/filepath"

	"github.com/mutelight/mutelight/pkg/config"
	"github.com/spf13/afero"
)

// TestConfigDir is the config directory used on in-memory filesystems.
const TestConfigDir = "/home/user/.config/mutelight"

// FSHelper provides utilities for filesystem mocking in tests
type FSHelper struct {
	Fs afero.Fs
}

// NewMemoryFS creates a new in-memory filesystem for testing
func NewMemoryFS() *FSHelper {
	return &FSHelper{
		Fs: afero.NewMemMapFs(),
	}
}

// ConfigPath is the config file inside TestConfigDir.
func (*FSHelper) ConfigPath() string {
	return filepath.Join(TestConfigDir, config.CfgFile)
}

// WriteConfig replaces the config file with body.
func (h *FSHelper) WriteConfig(body string) error {
	if err := h.Fs.MkdirAll(TestConfigDir, 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := afero.WriteFile(h.Fs, h.ConfigPath(), []byte(body), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// NewTestConfig loads a config instance from body. An empty body lets
// NewConfig write the defaults instead.
func NewTestConfig(fs *FSHelper, body string) (*config.Instance, error) {
	if body != "" {
		if err := fs.WriteConfig(body); err != nil {
			return nil, err
		}
	}
	cfg, err := config.NewConfig(fs.Fs, TestConfigDir, config.BaseDefaults)
	if err != nil {
		return nil, fmt.Errorf("failed to create test config: %w", err)
	}
	return cfg, nil
}
