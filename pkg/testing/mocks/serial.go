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

package mocks

import (
	"errors"
	"slices"
	"time"

	"github.com/mutelight/mutelight/pkg/helpers/syncutil"
	"github.com/mutelight/mutelight/pkg/indicator"
	"go.bug.st/serial"
)

// MockSerialPort is an in-memory serial port. Bytes fed with Feed are read
// back one Read call at a time; writes are recorded per call.
type MockSerialPort struct {
	ReadError   error
	WriteError  error
	CloseError  error
	TimeoutErr  error
	ResetError  error
	Written     [][]byte
	pending     []byte
	ReadTimeout time.Duration
	Resets      int
	Reads       int
	mu          syncutil.Mutex
	Closed      bool
}

// NewMockSerialPort creates a new mock serial port for testing.
func NewMockSerialPort() *MockSerialPort {
	return &MockSerialPort{}
}

// Feed appends bytes as if the device had sent them.
func (m *MockSerialPort) Feed(data ...byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, data...)
}

// Buffered returns the number of unread bytes.
func (m *MockSerialPort) Buffered() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

func (m *MockSerialPort) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Reads++
	if m.Closed {
		return 0, errors.New("port closed")
	}
	if m.ReadError != nil {
		return 0, m.ReadError
	}
	// read timeout elapsed with nothing to read
	if len(m.pending) == 0 {
		return 0, nil
	}

	n := copy(p, m.pending)
	m.pending = m.pending[n:]
	return n, nil
}

func (m *MockSerialPort) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Closed {
		return 0, errors.New("port closed")
	}
	if m.WriteError != nil {
		return 0, m.WriteError
	}

	frame := make([]byte, len(p))
	copy(frame, p)
	m.Written = append(m.Written, frame)
	return len(p), nil
}

func (m *MockSerialPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return m.CloseError
}

func (m *MockSerialPort) SetReadTimeout(t time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadTimeout = t
	return m.TimeoutErr
}

func (m *MockSerialPort) ResetInputBuffer() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Resets++
	if m.ResetError != nil {
		return m.ResetError
	}
	m.pending = nil
	return nil
}

// Frames returns every written frame as a string.
func (m *MockSerialPort) Frames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	frames := make([]string, 0, len(m.Written))
	for _, f := range m.Written {
		frames = append(frames, string(f))
	}
	return frames
}

// IsClosed returns true if the port has been closed (thread-safe).
func (m *MockSerialPort) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Closed
}

// PortOpen records one call to a MockPortFactory.
type PortOpen struct {
	Port *MockSerialPort
	Path string
	Baud int
}

// MockPortFactory hands out a fresh MockSerialPort for every open and keeps
// track of them. Paths listed in Missing fail to open.
type MockPortFactory struct {
	Missing map[string]bool
	Opens   []PortOpen
	mu      syncutil.Mutex
}

func NewMockPortFactory() *MockPortFactory {
	return &MockPortFactory{
		Missing: make(map[string]bool),
	}
}

func (f *MockPortFactory) Open(path string, mode *serial.Mode) (indicator.Port, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Missing[path] {
		return nil, &serial.PortError{}
	}

	port := NewMockSerialPort()
	f.Opens = append(f.Opens, PortOpen{
		Port: port,
		Path: path,
		Baud: mode.BaudRate,
	})
	return port, nil
}

// Last returns the most recently opened port, or nil.
func (f *MockPortFactory) Last() *MockSerialPort {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Opens) == 0 {
		return nil
	}
	return f.Opens[len(f.Opens)-1].Port
}

// Count returns the number of successful opens.
func (f *MockPortFactory) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Opens)
}

// History returns a copy of every successful open.
func (f *MockPortFactory) History() []PortOpen {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.Opens)
}
