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
	"errors"

	"github.com/rs/zerolog/log"
)

var (
	// ErrPortUnavailable means the serial device could not be opened.
	ErrPortUnavailable = errors.New("serial port unavailable")
	// ErrDeviceNotResponding means I/O failed on an open port.
	ErrDeviceNotResponding = errors.New("device not responding")
	// ErrSourceUnresolved means the host does not know the monitored source.
	ErrSourceUnresolved = errors.New("source unresolved")
	// ErrMalformedFrame means an inbound byte was not a button report.
	ErrMalformedFrame = errors.New("malformed frame")
)

// MuteState is the last known mute flag of the monitored source.
type MuteState int

const (
	MuteUnknown MuteState = iota
	MuteMuted
	MuteUnmuted
)

func MuteStateOf(muted bool) MuteState {
	if muted {
		return MuteMuted
	}
	return MuteUnmuted
}

func (m MuteState) String() string {
	switch m {
	case MuteMuted:
		return "Muted"
	case MuteUnmuted:
		return "Unmuted"
	default:
		return "Unknown"
	}
}

// SyncState tracks whether the device has been told the current mute state.
type SyncState int

const (
	// StateDisconnected indicates no serial port is open
	StateDisconnected SyncState = iota
	// StateOpen indicates the port is open but no source is bound
	StateOpen
	// StateAwaitingHandshake indicates the initial state resend is pending
	StateAwaitingHandshake
	// StateSynced indicates the device has been sent the current state
	StateSynced
)

func (s SyncState) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateOpen:
		return "Open"
	case StateAwaitingHandshake:
		return "AwaitingHandshake"
	case StateSynced:
		return "Synced"
	default:
		return "Unknown"
	}
}

// IsValidTransition checks if moving from one sync state to another is valid
func IsValidTransition(from, to SyncState) bool {
	switch from {
	case StateDisconnected:
		// port opened, with or without a bound source
		return to == StateOpen || to == StateAwaitingHandshake
	case StateOpen:
		// source bound, or port closed
		return to == StateAwaitingHandshake || to == StateDisconnected
	case StateAwaitingHandshake:
		// handshake fired or was superseded by a notification, source
		// unbound, or port closed
		return to == StateSynced || to == StateOpen || to == StateDisconnected
	case StateSynced:
		// rebound to another source, unbound, or port closed
		return to == StateAwaitingHandshake || to == StateOpen || to == StateDisconnected
	default:
		return false
	}
}

// stateMachine holds the current SyncState. It is only touched from the
// scheduler goroutine.
type stateMachine struct {
	state SyncState
}

func (sm *stateMachine) get() SyncState {
	return sm.state
}

// set moves to next if the transition is valid. Setting the current state
// again is a no-op that reports true.
func (sm *stateMachine) set(next SyncState) bool {
	if sm.state == next {
		return true
	}
	if !IsValidTransition(sm.state, next) {
		log.Warn().
			Stringer("from", sm.state).
			Stringer("to", next).
			Msg("indicator: invalid state transition")
		return false
	}
	log.Debug().
		Stringer("from", sm.state).
		Stringer("to", next).
		Msg("indicator: state changed")
	sm.state = next
	return true
}
