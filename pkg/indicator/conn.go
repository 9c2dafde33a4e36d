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
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

// Port is the subset of serial.Port the connection uses.
type Port interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Close() error
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
}

// PortFactory opens a serial port.
type PortFactory func(path string, mode *serial.Mode) (Port, error)

// DefaultPortFactory opens real serial ports.
func DefaultPortFactory(path string, mode *serial.Mode) (Port, error) {
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	return port, nil
}

// Conn owns the serial handle to the indicator. At most one port is open at
// a time. Conn is not safe for concurrent use; the bridge only touches it
// from the scheduler goroutine.
type Conn struct {
	port    Port
	factory PortFactory
	path    string
	baud    int
}

func NewConn(factory PortFactory) *Conn {
	if factory == nil {
		factory = DefaultPortFactory
	}
	return &Conn{factory: factory}
}

// Open closes any open port and opens path at baud. The disconnected
// sentinel leaves the connection closed and is not an error.
func (c *Conn) Open(path string, baud int) error {
	c.Close()

	if IsDisconnectedPort(path) {
		log.Debug().Msg("indicator: no serial port selected")
		return nil
	}
	if baud <= 0 {
		return fmt.Errorf("%w: invalid baud rate %d", ErrPortUnavailable, baud)
	}

	port, err := c.factory(path, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPortUnavailable, path, err)
	}

	if err := port.SetReadTimeout(ReadTimeout); err != nil {
		_ = port.Close()
		return fmt.Errorf("%w: failed to set read timeout: %w", ErrPortUnavailable, err)
	}

	c.port = port
	c.path = path
	c.baud = baud
	log.Info().Str("port", path).Int("baud", baud).Msg("indicator: opened serial port")

	return nil
}

// Close closes the port if one is open. Errors are logged, never returned.
func (c *Conn) Close() {
	if c.port == nil {
		return
	}

	if err := c.port.Close(); err != nil {
		log.Debug().Err(err).Str("port", c.path).Msg("indicator: error closing serial port")
	} else {
		log.Info().Str("port", c.path).Msg("indicator: closed serial port")
	}

	c.port = nil
	c.path = ""
	c.baud = 0
}

func (c *Conn) IsOpen() bool {
	return c.port != nil
}

// Path returns the open port's path, or "" when closed.
func (c *Conn) Path() string {
	return c.path
}

// Baud returns the open port's baud rate, or 0 when closed.
func (c *Conn) Baud() int {
	return c.baud
}

// Write sends a frame. Failures are not retried and leave the port open.
func (c *Conn) Write(frame []byte) error {
	if c.port == nil {
		return fmt.Errorf("%w: port not open", ErrDeviceNotResponding)
	}

	n, err := c.port.Write(frame)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDeviceNotResponding, c.path, err)
	}
	if n != len(frame) {
		return fmt.Errorf("%w: %s: short write %d of %d bytes", ErrDeviceNotResponding, c.path, n, len(frame))
	}

	return nil
}

// ReadOne reads at most one byte, waiting no longer than ReadTimeout. ok is
// false when nothing was read for any reason.
func (c *Conn) ReadOne() (b byte, ok bool) {
	if c.port == nil {
		return 0, false
	}

	var buf [1]byte
	n, err := c.port.Read(buf[:])
	if err != nil {
		var portErr *serial.PortError
		if errors.As(err, &portErr) {
			log.Debug().Str("port", c.path).Msgf("indicator: serial read failed: %s", portErr.EncodedErrorString())
		} else {
			log.Debug().Err(err).Str("port", c.path).Msg("indicator: serial read failed")
		}
		return 0, false
	}
	if n == 0 {
		return 0, false
	}

	return buf[0], true
}

// ResetInput discards any unread input.
func (c *Conn) ResetInput() {
	if c.port == nil {
		return
	}
	if err := c.port.ResetInputBuffer(); err != nil {
		log.Debug().Err(err).Str("port", c.path).Msg("indicator: failed to flush serial input")
	}
}
