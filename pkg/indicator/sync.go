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
	"fmt"

	"github.com/rs/zerolog/log"
)

// tryBind resolves name on the host and subscribes to its mute changes.
// Failures are only logged once a source has been bound before, so the
// startup wait for the host to load its sources stays quiet.
func (b *Bridge) tryBind(name string) bool {
	ctx, cancel := b.hostContext()
	defer cancel()

	src, ok, err := b.host.Resolve(ctx, name)
	if err != nil || !ok {
		if b.sourcesLoaded {
			if err == nil {
				err = fmt.Errorf("%w: %s", ErrSourceUnresolved, name)
			}
			log.Debug().Err(err).Msgf("indicator: could not create callback for %q", name)
		} else {
			log.Trace().Str("source", name).Msg("indicator: waiting to load sources")
		}
		return false
	}

	b.bindGen++
	gen := b.bindGen
	sub, err := b.host.Subscribe(ctx, src, func(muted bool) {
		b.sched.Post(func() {
			b.handleMuteChanged(gen, muted)
		})
	})
	if err != nil {
		log.Debug().Err(err).Msgf("indicator: could not subscribe to %q", name)
		return false
	}

	b.binding = &binding{
		sub:    sub,
		source: src,
		gen:    gen,
	}
	b.sourcesLoaded = true
	b.muted = MuteUnknown
	log.Info().Str("source", src.Name).Msg("indicator: added mute callback")

	if b.conn.IsOpen() {
		b.scheduleHandshake()
	}
	b.startButtonSchedules()

	return true
}

func (b *Bridge) unbind() {
	if b.binding == nil {
		return
	}

	name := b.binding.source.Name
	if err := b.binding.sub.Unsubscribe(); err != nil {
		log.Debug().Err(err).Msgf("indicator: could not remove callback for %q", name)
	} else {
		log.Info().Str("source", name).Msg("indicator: removed mute callback")
	}

	b.binding = nil
	b.muted = MuteUnknown
	b.cancelPendingHandshake()
	if b.conn.IsOpen() {
		b.sm.set(StateOpen)
	}
}

// scheduleHandshake arms the one-shot resend of the current state, giving
// the device time to boot after the port opens.
func (b *Bridge) scheduleHandshake() {
	b.cancelPendingHandshake()
	if !b.sm.set(StateAwaitingHandshake) {
		return
	}

	delay := b.settings.HandshakeDelay
	b.cancelHandshake = b.sched.AfterFunc(delay, b.fireHandshake)
	log.Debug().Dur("delay", delay).Msg("indicator: initial state scheduled")
}

func (b *Bridge) cancelPendingHandshake() {
	if b.cancelHandshake != nil {
		b.cancelHandshake()
		b.cancelHandshake = nil
	}
}

func (b *Bridge) fireHandshake() {
	b.cancelHandshake = nil
	if b.sm.get() != StateAwaitingHandshake || b.binding == nil || !b.conn.IsOpen() {
		return
	}

	b.muted = b.queryMuted()
	b.sm.set(StateSynced)

	if b.muted == MuteUnknown {
		log.Debug().Msg("indicator: mute state unknown, skipping initial state")
		return
	}

	log.Debug().
		Dur("delay", b.settings.HandshakeDelay).
		Msg("indicator: sending initial state")
	b.writeState(b.muted == MuteMuted)
}

func (b *Bridge) queryMuted() MuteState {
	ctx, cancel := b.hostContext()
	defer cancel()

	muted, err := b.host.Muted(ctx, b.binding.source)
	if err != nil {
		log.Debug().Err(err).Msg("indicator: could not read mute state")
		return MuteUnknown
	}
	return MuteStateOf(muted)
}

// handleMuteChanged forwards a host notification to the device. gen ties
// the notification to the binding it was registered under; late
// notifications from a replaced binding are dropped.
func (b *Bridge) handleMuteChanged(gen uint64, muted bool) {
	if b.binding == nil || b.binding.gen != gen {
		log.Trace().Msg("indicator: dropping notification from stale binding")
		return
	}

	b.muted = MuteStateOf(muted)
	if !b.conn.IsOpen() {
		return
	}

	if b.cancelHandshake != nil {
		log.Debug().Msg("indicator: initial state superseded by mute change")
		b.cancelPendingHandshake()
	}
	b.sm.set(StateSynced)
	b.writeState(muted)
}

func (b *Bridge) writeState(muted bool) {
	if !b.conn.IsOpen() {
		return
	}
	b.write(EncodeState(muted, b.settings.BlinkInterval))
}

func (b *Bridge) writeReset() {
	if !b.conn.IsOpen() {
		return
	}
	b.write(EncodeReset())
}

func (b *Bridge) write(frame []byte) {
	if err := b.conn.Write(frame); err != nil {
		log.Debug().Err(err).Msg("indicator: dropped frame")
		return
	}
	log.Debug().
		Str("port", b.conn.Path()).
		Int("baud", b.conn.Baud()).
		Msgf("indicator: wrote %q", frame)
}
