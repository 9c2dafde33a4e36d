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
	"strconv"
	"time"
)

// Indicator protocol frames
const (
	OpMuted   = 'm' // m<interval>\n
	OpUnmuted = 'u' // u<interval>\n
	OpReset   = 'r' // r\n

	FrameTerminator = '\n'
)

// Protocol and timing parameters
const (
	// DisconnectedPort is the reserved port value meaning "no device".
	DisconnectedPort = "Disconnected"

	DefaultBaud           = 115200
	DefaultBlinkInterval  = 500
	ReadTimeout           = 100 * time.Millisecond
	DefaultHandshakeDelay = 1600 * time.Millisecond // device boot time
	DefaultPollInterval   = 250 * time.Millisecond
	DefaultFlushInterval  = 1000 * time.Millisecond
	DefaultSourceWait     = 10 * time.Millisecond
)

// BaudRates lists the baud rates offered for the indicator port.
var BaudRates = []int{115200, 57600, 38400, 31250, 28800, 19200, 14400, 9600, 4800, 2400, 1200, 600, 300}

// BlinkIntervals lists the blink periods in milliseconds; 0 is solid.
var BlinkIntervals = []int{2000, 1000, 500, 200, 0}

// OpCode returns the frame op for a mute state.
func OpCode(muted bool) byte {
	if muted {
		return OpMuted
	}
	return OpUnmuted
}

// EncodeState builds a mute or unmute frame. Negative intervals are sent as
// 0.
func EncodeState(muted bool, interval int) []byte {
	if interval < 0 {
		interval = 0
	}
	frame := make([]byte, 0, 8)
	frame = append(frame, OpCode(muted))
	frame = strconv.AppendInt(frame, int64(interval), 10)
	return append(frame, FrameTerminator)
}

// EncodeReset builds the frame returning the device to idle.
func EncodeReset() []byte {
	return []byte{OpReset, FrameTerminator}
}

// DecodeButton maps a single byte button report to the requested mute
// state. Anything other than 'm' or 'u' is ErrMalformedFrame.
func DecodeButton(b byte) (bool, error) {
	switch b {
	case OpMuted:
		return true, nil
	case OpUnmuted:
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrMalformedFrame, b)
	}
}

// IsDisconnectedPort reports whether path means "no device selected".
func IsDisconnectedPort(path string) bool {
	return path == "" || path == DisconnectedPort
}
