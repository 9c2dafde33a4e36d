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
	"time"

	"github.com/mutelight/mutelight/pkg/host"
	"github.com/mutelight/mutelight/pkg/indicator"
)

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func (c *Instance) IndicatorSource() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Indicator.Source
}

func (c *Instance) SetIndicatorSource(source string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Indicator.Source = source
}

func (c *Instance) IndicatorPort() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Indicator.Port
}

// SetIndicatorPort selects a serial port. An empty path selects the
// disconnected sentinel.
func (c *Instance) SetIndicatorPort(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if path == "" {
		path = indicator.DisconnectedPort
	}
	c.vals.Indicator.Port = path
}

func (c *Instance) IndicatorBaud() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Indicator.Baud
}

func (c *Instance) BlinkInterval() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Indicator.BlinkInterval
}

func (c *Instance) HandshakeDelay() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return parseDuration(c.vals.Indicator.HandshakeDelay, indicator.DefaultHandshakeDelay)
}

func (c *Instance) ButtonEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Button.Enabled
}

func (c *Instance) PollInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return parseDuration(c.vals.Button.PollInterval, indicator.DefaultPollInterval)
}

func (c *Instance) FlushInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return parseDuration(c.vals.Button.FlushInterval, indicator.DefaultFlushInterval)
}

func (c *Instance) HostDriver() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Host.Driver
}

func (c *Instance) HostURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Host.URL
}

func (c *Instance) HostPassword() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Host.Password
}

func (c *Instance) TopicPrefix() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Host.TopicPrefix
}

func (c *Instance) RequestTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return parseDuration(c.vals.Host.RequestTimeout, host.DefaultRequestTimeout)
}

// IndicatorSettings converts the current values into bridge settings. All
// fields come from the same load.
func (c *Instance) IndicatorSettings() indicator.Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ind := c.vals.Indicator
	btn := c.vals.Button
	s := indicator.DefaultSettings()
	s.Source = ind.Source
	s.Port = ind.Port
	s.Baud = ind.Baud
	s.BlinkInterval = ind.BlinkInterval
	s.HandshakeDelay = parseDuration(ind.HandshakeDelay, indicator.DefaultHandshakeDelay)
	s.ButtonEnabled = btn.Enabled
	s.PollInterval = parseDuration(btn.PollInterval, indicator.DefaultPollInterval)
	s.FlushInterval = parseDuration(btn.FlushInterval, indicator.DefaultFlushInterval)
	return s
}
