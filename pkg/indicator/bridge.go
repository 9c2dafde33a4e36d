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
	"context"
	"time"

	"github.com/mutelight/mutelight/pkg/host"
	"github.com/mutelight/mutelight/pkg/scheduler"
	"github.com/rs/zerolog/log"
)

// Settings is the bridge's view of the configuration.
type Settings struct {
	Source             string
	Port               string
	Baud               int
	BlinkInterval      int
	HandshakeDelay     time.Duration
	PollInterval       time.Duration
	FlushInterval      time.Duration
	SourceWaitInterval time.Duration
	ButtonEnabled      bool
}

// DefaultSettings returns settings with every timing parameter at its
// default and no port or source selected.
func DefaultSettings() Settings {
	return Settings{
		Port:               DisconnectedPort,
		Baud:               DefaultBaud,
		BlinkInterval:      DefaultBlinkInterval,
		HandshakeDelay:     DefaultHandshakeDelay,
		PollInterval:       DefaultPollInterval,
		FlushInterval:      DefaultFlushInterval,
		SourceWaitInterval: DefaultSourceWait,
		ButtonEnabled:      true,
	}
}

func (s Settings) withDefaults() Settings {
	if s.Baud <= 0 {
		s.Baud = DefaultBaud
	}
	if s.BlinkInterval < 0 {
		s.BlinkInterval = 0
	}
	if s.HandshakeDelay <= 0 {
		s.HandshakeDelay = DefaultHandshakeDelay
	}
	if s.PollInterval <= 0 {
		s.PollInterval = DefaultPollInterval
	}
	if s.FlushInterval <= 0 {
		s.FlushInterval = DefaultFlushInterval
	}
	if s.SourceWaitInterval <= 0 {
		s.SourceWaitInterval = DefaultSourceWait
	}
	return s
}

// Status is a snapshot of the bridge for diagnostics.
type Status struct {
	Source           string
	Port             string
	State            SyncState
	Muted            MuteState
	Baud             int
	Started          bool
	Bound            bool
	WaitingForSource bool
}

type binding struct {
	sub    host.Subscription
	source host.Source
	gen    uint64
}

// Bridge ties the serial indicator to a host audio source. All methods must
// be called from the scheduler's goroutine, which is also where every timer
// and host notification is delivered.
type Bridge struct {
	host            host.Host
	sched           scheduler.Scheduler
	conn            *Conn
	binding         *binding
	cancelWait      scheduler.Cancel
	cancelPoll      scheduler.Cancel
	cancelFlush     scheduler.Cancel
	cancelHandshake scheduler.Cancel
	settings        Settings
	sm              stateMachine
	requestTimeout  time.Duration
	bindGen         uint64
	muted           MuteState
	started         bool
	sourcesLoaded   bool
	buttonsArmed    bool
}

type Option func(*Bridge)

// WithPortFactory replaces the serial port opener.
func WithPortFactory(f PortFactory) Option {
	return func(b *Bridge) {
		b.conn = NewConn(f)
	}
}

// WithRequestTimeout bounds each call into the host.
func WithRequestTimeout(d time.Duration) Option {
	return func(b *Bridge) {
		if d > 0 {
			b.requestTimeout = d
		}
	}
}

func NewBridge(h host.Host, sched scheduler.Scheduler, opts ...Option) *Bridge {
	b := &Bridge{
		host:           h,
		sched:          sched,
		conn:           NewConn(nil),
		settings:       DefaultSettings(),
		requestTimeout: host.DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bridge) hostContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), b.requestTimeout)
}

// Start applies settings, opens the port and begins binding the source.
func (b *Bridge) Start(s Settings) {
	if b.started {
		b.Reconfigure(s)
		return
	}

	b.started = true
	b.settings = s.withDefaults()
	log.Info().
		Str("source", b.settings.Source).
		Str("port", b.settings.Port).
		Int("baud", b.settings.Baud).
		Msg("indicator: starting bridge")

	b.openPort()
	b.bindSource()
}

// Reconfigure applies changed settings. The port is only reopened when the
// path or baud changed, or when it is not open but should be. The source is
// rebound when its name changed. A new blink interval is used from the next
// frame on.
func (b *Bridge) Reconfigure(s Settings) {
	if !b.started {
		b.Start(s)
		return
	}

	prev := b.settings
	next := s.withDefaults()
	b.settings = next

	reopen := prev.Port != next.Port || prev.Baud != next.Baud
	if !reopen && !b.conn.IsOpen() && !IsDisconnectedPort(next.Port) {
		log.Debug().Str("port", next.Port).Msg("indicator: retrying closed serial port")
		reopen = true
	}
	if reopen {
		b.openPort()
	}

	if prev.ButtonEnabled != next.ButtonEnabled ||
		prev.PollInterval != next.PollInterval ||
		prev.FlushInterval != next.FlushInterval {
		b.stopButtonSchedules()
		if b.buttonsArmed {
			b.startButtonSchedules()
		}
	}

	if prev.BlinkInterval != next.BlinkInterval {
		log.Debug().Int("interval", next.BlinkInterval).Msg("indicator: blink interval changed")
	}

	switch {
	case prev.Source != next.Source:
		b.bindSource()
	case prev.SourceWaitInterval != next.SourceWaitInterval && b.cancelWait != nil:
		b.bindSource()
	}
}

// Stop resets the device, stops every schedule, removes the binding and
// closes the port, in that order.
func (b *Bridge) Stop() {
	if !b.started {
		return
	}

	b.writeReset()
	b.stopButtonSchedules()
	b.stopSourceWait()
	b.cancelPendingHandshake()
	b.unbind()
	b.closePort()

	b.started = false
	b.buttonsArmed = false
	log.Info().Msg("indicator: bridge stopped")
}

// Reconnect closes and reopens the port with the current settings.
func (b *Bridge) Reconnect() {
	if !b.started {
		return
	}
	log.Info().Str("port", b.settings.Port).Msg("indicator: reconnecting")
	b.openPort()
}

// TestFrame writes a mute or unmute frame without consulting the host.
func (b *Bridge) TestFrame(muted bool) {
	b.writeState(muted)
}

func (b *Bridge) Status() Status {
	st := Status{
		Source:           b.settings.Source,
		Port:             b.conn.Path(),
		Baud:             b.conn.Baud(),
		State:            b.sm.get(),
		Muted:            b.muted,
		Started:          b.started,
		Bound:            b.binding != nil,
		WaitingForSource: b.cancelWait != nil,
	}
	return st
}

func (b *Bridge) openPort() {
	b.closePort()

	err := b.conn.Open(b.settings.Port, b.settings.Baud)
	if err != nil {
		log.Debug().Err(err).Msg("indicator: could not open serial port")
		return
	}
	if !b.conn.IsOpen() {
		return
	}

	if b.binding != nil {
		b.scheduleHandshake()
	} else {
		b.sm.set(StateOpen)
	}
}

func (b *Bridge) closePort() {
	b.cancelPendingHandshake()
	b.conn.Close()
	b.sm.set(StateDisconnected)
}

func (b *Bridge) startButtonSchedules() {
	b.buttonsArmed = true
	if !b.settings.ButtonEnabled {
		return
	}
	if b.cancelPoll == nil {
		b.cancelPoll = b.sched.Every(b.settings.PollInterval, b.poll)
	}
	if b.cancelFlush == nil {
		b.cancelFlush = b.sched.Every(b.settings.FlushInterval, b.flush)
	}
}

func (b *Bridge) stopButtonSchedules() {
	if b.cancelPoll != nil {
		b.cancelPoll()
		b.cancelPoll = nil
	}
	if b.cancelFlush != nil {
		b.cancelFlush()
		b.cancelFlush = nil
	}
}

// bindSource drops any existing binding or wait phase and binds the
// configured source, falling back to polling the host until it appears.
func (b *Bridge) bindSource() {
	b.stopSourceWait()

	name := b.settings.Source
	if name == "" {
		b.unbind()
		return
	}
	if b.binding != nil && b.binding.source.Name == name {
		return
	}

	b.unbind()
	if b.tryBind(name) {
		return
	}

	log.Debug().Str("source", name).Msg("indicator: waiting for source to load")
	b.cancelWait = b.sched.Every(b.settings.SourceWaitInterval, func() {
		if b.settings.Source != name {
			b.stopSourceWait()
			return
		}
		if b.tryBind(name) {
			b.stopSourceWait()
		}
	})
}

func (b *Bridge) stopSourceWait() {
	if b.cancelWait != nil {
		b.cancelWait()
		b.cancelWait = nil
	}
}
