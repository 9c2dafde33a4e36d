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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestEncodeState(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		want     string
		interval int
		muted    bool
	}{
		{name: "muted blinking", muted: true, interval: 500, want: "m500\n"},
		{name: "unmuted blinking", muted: false, interval: 500, want: "u500\n"},
		{name: "muted solid", muted: true, interval: 0, want: "m0\n"},
		{name: "unmuted slow", muted: false, interval: 2000, want: "u2000\n"},
		{name: "negative interval clamped", muted: true, interval: -10, want: "m0\n"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, string(EncodeState(tt.muted, tt.interval)))
		})
	}
}

func TestEncodeReset(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "r\n", string(EncodeReset()))
}

func TestDecodeButton(t *testing.T) {
	t.Parallel()

	muted, err := DecodeButton('m')
	require.NoError(t, err)
	assert.True(t, muted)

	muted, err = DecodeButton('u')
	require.NoError(t, err)
	assert.False(t, muted)

	for _, b := range []byte{'r', 'M', 'U', '\n', 0x00, 0xff, '5'} {
		_, err := DecodeButton(b)
		require.ErrorIs(t, err, ErrMalformedFrame, "byte %q", b)
	}
}

func TestIsDisconnectedPort(t *testing.T) {
	t.Parallel()

	assert.True(t, IsDisconnectedPort(""))
	assert.True(t, IsDisconnectedPort(DisconnectedPort))
	assert.False(t, IsDisconnectedPort("/dev/ttyACM0"))
	assert.False(t, IsDisconnectedPort("COM3"))
}

// TestPropertyOpCodeRoundTrip verifies the op byte of an encoded frame decodes
// back to the mute state it was built from.
func TestPropertyOpCodeRoundTrip(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		muted := rapid.Bool().Draw(t, "muted")
		interval := rapid.IntRange(0, 1<<20).Draw(t, "interval")

		frame := EncodeState(muted, interval)
		got, err := DecodeButton(frame[0])
		if err != nil {
			t.Fatalf("op byte %q did not decode: %v", frame[0], err)
		}
		if got != muted {
			t.Fatalf("round trip mismatch: encoded %v, decoded %v", muted, got)
		}
	})
}

// TestPropertyFrameShape verifies every frame is an op, decimal digits and a
// single terminator.
func TestPropertyFrameShape(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		muted := rapid.Bool().Draw(t, "muted")
		interval := rapid.Int().Draw(t, "interval")

		frame := EncodeState(muted, interval)
		if len(frame) < 3 {
			t.Fatalf("frame too short: %q", frame)
		}
		if frame[len(frame)-1] != FrameTerminator {
			t.Fatalf("frame not terminated: %q", frame)
		}
		for _, c := range frame[1 : len(frame)-1] {
			if c < '0' || c > '9' {
				t.Fatalf("non-digit %q in interval: %q", c, frame)
			}
		}
	})
}

func FuzzDecodeButton(f *testing.F) {
	f.Add(byte('m'))
	f.Add(byte('u'))
	f.Add(byte('r'))
	f.Add(byte('\n'))
	f.Add(byte(0))
	f.Add(byte(0xff))

	f.Fuzz(func(t *testing.T, b byte) {
		muted, err := DecodeButton(b)
		switch b {
		case 'm':
			if err != nil || !muted {
				t.Errorf("'m' should decode to muted, got %v, %v", muted, err)
			}
		case 'u':
			if err != nil || muted {
				t.Errorf("'u' should decode to unmuted, got %v, %v", muted, err)
			}
		default:
			if !errors.Is(err, ErrMalformedFrame) {
				t.Errorf("byte %q should be malformed, got %v", b, err)
			}
		}
	})
}

func TestIsValidTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from  SyncState
		to    SyncState
		valid bool
	}{
		{StateDisconnected, StateOpen, true},
		{StateDisconnected, StateAwaitingHandshake, true},
		{StateDisconnected, StateSynced, false},
		{StateOpen, StateAwaitingHandshake, true},
		{StateOpen, StateDisconnected, true},
		{StateOpen, StateSynced, false},
		{StateAwaitingHandshake, StateSynced, true},
		{StateAwaitingHandshake, StateOpen, true},
		{StateAwaitingHandshake, StateDisconnected, true},
		{StateSynced, StateAwaitingHandshake, true},
		{StateSynced, StateOpen, true},
		{StateSynced, StateDisconnected, true},
		{SyncState(99), StateDisconnected, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.valid, IsValidTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestStateMachine_RejectsInvalid(t *testing.T) {
	t.Parallel()

	var sm stateMachine
	assert.False(t, sm.set(StateSynced))
	assert.Equal(t, StateDisconnected, sm.get())

	assert.True(t, sm.set(StateAwaitingHandshake))
	assert.True(t, sm.set(StateAwaitingHandshake), "same state is a no-op")
	assert.True(t, sm.set(StateSynced))
	assert.Equal(t, StateSynced, sm.get())
}

func TestStrings(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "AwaitingHandshake", StateAwaitingHandshake.String())
	assert.Equal(t, "Unknown", SyncState(42).String())
	assert.Equal(t, "Muted", MuteStateOf(true).String())
	assert.Equal(t, "Unmuted", MuteStateOf(false).String())
	assert.Equal(t, "Unknown", MuteUnknown.String())
}
