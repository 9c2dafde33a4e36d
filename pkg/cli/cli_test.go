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

package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/mutelight/mutelight/pkg/config"
	"github.com/mutelight/mutelight/pkg/helpers"
	"github.com/mutelight/mutelight/pkg/indicator"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDir = "/home/user/.config/mutelight"

func TestPrintPorts(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	PrintPorts(&buf, []helpers.SerialPort{
		{Path: "/dev/ttyACM0", USB: true, VID: "2341", PID: "0043"},
		{Path: "/dev/ttyS0"},
	})
	assert.Equal(t, "Disconnected\n/dev/ttyACM0 (USB 2341:0043)\n/dev/ttyS0\n", buf.String())
}

func TestPrintSources(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		want    string
		sources []string
	}{
		{name: "empty", sources: nil, want: "no audio sources found\n"},
		{name: "several", sources: []string{"Desktop Audio", "Mic/Aux"}, want: "Desktop Audio\nMic/Aux\n"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			PrintSources(&buf, tt.sources)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestSaveSelection(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	cfg, err := config.NewConfig(fs, testDir, config.BaseDefaults)
	require.NoError(t, err)

	port := "/dev/ttyUSB0"
	require.NoError(t, SaveSelection(cfg, Selection{Port: &port}))

	reloaded, err := config.NewConfig(fs, testDir, config.BaseDefaults)
	require.NoError(t, err)
	assert.Equal(t, port, reloaded.IndicatorPort())
	assert.Empty(t, reloaded.IndicatorSource(), "source untouched")

	source := "Mic/Aux"
	empty := ""
	require.NoError(t, SaveSelection(cfg, Selection{Port: &empty, Source: &source}))
	require.NoError(t, reloaded.Load())
	assert.Equal(t, indicator.DisconnectedPort, reloaded.IndicatorPort())
	assert.Equal(t, source, reloaded.IndicatorSource())

	data, err := afero.ReadFile(fs, filepath.Join(testDir, config.CfgFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Mic/Aux")
}
