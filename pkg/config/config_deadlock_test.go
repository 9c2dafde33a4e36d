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
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestIndicatorSettings_NoRecursiveLock guards against an accessor taking
// the read lock while IndicatorSettings already holds it. go-deadlock
// panics on that when built with -tags=deadlock.
func TestIndicatorSettings_NoRecursiveLock(t *testing.T) {
	t.Parallel()

	cfg := &Instance{vals: BaseDefaults}

	done := make(chan struct{})
	go func() {
		_ = cfg.IndicatorSettings()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("IndicatorSettings() deadlocked")
	}
}

// TestConfig_ConcurrentReloadAndRead reads settings while the file is
// reloaded and saved from other goroutines.
func TestConfig_ConcurrentReloadAndRead(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	cfg, err := NewConfig(fs, testDir, BaseDefaults)
	require.NoError(t, err)

	done := make(chan error, 30)
	for i := 0; i < 10; i++ {
		i := i
		go func() {
			for iter := 0; iter < 50; iter++ {
				_ = cfg.IndicatorSettings()
				_ = cfg.HostURL()
			}
			done <- nil
		}()
		go func() {
			var err error
			for iter := 0; iter < 20; iter++ {
				if err = cfg.Load(); err != nil {
					break
				}
			}
			done <- err
		}()
		go func() {
			cfg.SetDebugLogging(i%2 == 0)
			done <- nil
		}()
	}

	for iter := 0; iter < 30; iter++ {
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("concurrent access deadlocked")
		}
	}
}

// TestIndicatorSettings_ConsistentSnapshot swaps the whole value set the way
// Load does and checks every snapshot comes from a single set.
func TestIndicatorSettings_ConsistentSnapshot(t *testing.T) {
	t.Parallel()

	a := BaseDefaults
	a.Indicator.Port = "/dev/ttyUSB0"
	a.Indicator.Baud = 9600
	a.Button.PollInterval = "100ms"
	b := BaseDefaults
	b.Indicator.Port = "/dev/ttyACM0"
	b.Indicator.Baud = 115200
	b.Button.PollInterval = "400ms"

	cfg := &Instance{vals: a}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			next := a
			if i%2 == 0 {
				next = b
			}
			cfg.mu.Lock()
			cfg.vals = next
			cfg.mu.Unlock()
		}
	}()

	for iter := 0; iter < 2000; iter++ {
		s := cfg.IndicatorSettings()
		switch s.Port {
		case a.Indicator.Port:
			assert.Equal(t, a.Indicator.Baud, s.Baud)
			assert.Equal(t, 100*time.Millisecond, s.PollInterval)
		case b.Indicator.Port:
			assert.Equal(t, b.Indicator.Baud, s.Baud)
			assert.Equal(t, 400*time.Millisecond, s.PollInterval)
		default:
			t.Fatalf("unexpected port %q", s.Port)
		}
	}

	close(stop)
	wg.Wait()
}
