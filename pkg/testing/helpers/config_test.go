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
	"testing"

	"github.com/mutelight/mutelight/pkg/config"
	"github.com/mutelight/mutelight/pkg/indicator"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTestConfig(t *testing.T) {
	t.Parallel()

	fs := NewMemoryFS()
	cfg, err := NewTestConfig(fs, "")
	require.NoError(t, err)
	assert.Equal(t, indicator.DisconnectedPort, cfg.IndicatorPort())
	assert.Equal(t, fs.ConfigPath(), cfg.Path())

	exists, err := afero.Exists(fs.Fs, fs.ConfigPath())
	require.NoError(t, err)
	assert.True(t, exists, "defaults written")
}

func TestNewTestConfig_Body(t *testing.T) {
	t.Parallel()

	fs := NewMemoryFS()
	cfg, err := NewTestConfig(fs, "config_schema = 1\n[indicator]\nsource = \"Mic\"\n")
	require.NoError(t, err)
	assert.Equal(t, "Mic", cfg.IndicatorSource())
	assert.Equal(t, config.DriverOBS, cfg.HostDriver())

	_, err = NewTestConfig(NewMemoryFS(), "config_schema = 7\n")
	require.ErrorIs(t, err, config.ErrSchemaMismatch)
}
