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

package indicator

import (
	"github.com/rs/zerolog/log"
)

// poll consumes at most one byte per tick. Reading a single byte per tick
// throttles how fast button presses are acted on, which doubles as the
// button's debounce.
func (b *Bridge) poll() {
	if !b.conn.IsOpen() {
		return
	}

	c, ok := b.conn.ReadOne()
	if !ok {
		return
	}

	muted, err := DecodeButton(c)
	if err != nil {
		log.Trace().Err(err).Msg("indicator: ignoring serial input")
		return
	}

	if b.binding == nil {
		log.Debug().Msg("indicator: button report with no source bound")
		return
	}

	ctx, cancel := b.hostContext()
	defer cancel()

	log.Debug().Str("source", b.binding.source.Name).Bool("muted", muted).Msg("indicator: button pressed")
	if err := b.host.SetMuted(ctx, b.binding.source, muted); err != nil {
		log.Debug().Err(err).Msg("indicator: could not set mute state")
	}
}

// flush drops unread input so the buffer never holds more than one flush
// interval's worth of button spam.
func (b *Bridge) flush() {
	b.conn.ResetInput()
}
