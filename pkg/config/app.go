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

import "time"

// AppVersion is set at build time with -ldflags.
var AppVersion = "DEVELOPMENT"

const (
	AppName = "mutelight"
	CfgFile = "config.toml"
	LogFile = "mutelight.log"

	// DefaultWatchDebounce groups the several write events editors emit for
	// one save into a single reload.
	DefaultWatchDebounce = 250 * time.Millisecond
)

const (
	DriverOBS  = "obs"
	DriverMQTT = "mqtt"
)
