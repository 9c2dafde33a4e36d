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
	"slices"
	"testing"

	"github.com/mutelight/mutelight/pkg/indicator"
	"pgregory.net/rapid"
)

// ============================================================================
// Validate Property Tests
// ============================================================================

// TestPropertyValidateAcceptsListedRates verifies every offered baud rate and
// blink interval passes validation.
func TestPropertyValidateAcceptsListedRates(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		vals := BaseDefaults
		vals.Indicator.Baud = rapid.SampledFrom(indicator.BaudRates).Draw(t, "baud")
		vals.Indicator.BlinkInterval = rapid.SampledFrom(indicator.BlinkIntervals).Draw(t, "blink")

		if err := Validate(&vals); err != nil {
			t.Fatalf("baud %d blink %d rejected: %v",
				vals.Indicator.Baud, vals.Indicator.BlinkInterval, err)
		}
	})
}

// TestPropertyValidateRejectsOtherBauds verifies baud rates outside the list
// never validate.
func TestPropertyValidateRejectsOtherBauds(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		baud := rapid.IntRange(-1000, 500000).
			Filter(func(b int) bool { return !slices.Contains(indicator.BaudRates, b) }).
			Draw(t, "baud")

		vals := BaseDefaults
		vals.Indicator.Baud = baud
		if err := Validate(&vals); err == nil {
			t.Fatalf("baud %d should be rejected", baud)
		}
	})
}

// TestPropertyTopicPrefixWildcards verifies MQTT prefixes containing
// wildcards are rejected and plain ones accepted.
func TestPropertyTopicPrefixWildcards(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		plain := rapid.StringMatching(`[a-z][a-z0-9/]{0,12}`).Draw(t, "prefix")
		wildcard := rapid.SampledFrom([]string{"+", "#"}).Draw(t, "wildcard")

		vals := BaseDefaults
		vals.Host.Driver = DriverMQTT
		vals.Host.URL = "mqtt://localhost:1883"

		vals.Host.TopicPrefix = plain
		if err := Validate(&vals); err != nil {
			t.Fatalf("prefix %q rejected: %v", plain, err)
		}

		vals.Host.TopicPrefix = plain + wildcard
		if err := Validate(&vals); err == nil {
			t.Fatalf("prefix %q should be rejected", vals.Host.TopicPrefix)
		}
	})
}
