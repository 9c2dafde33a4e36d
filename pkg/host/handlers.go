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

package host

import (
	"github.com/mutelight/mutelight/pkg/helpers/syncutil"
)

// Handlers is a registry of mute handlers keyed by source name, shared by
// the host implementations.
type Handlers struct {
	byName map[string]map[uint64]func(bool)
	nextID uint64
	mu     syncutil.Mutex
}

func NewHandlers() *Handlers {
	return &Handlers{
		byName: make(map[string]map[uint64]func(bool)),
	}
}

// Add registers fn for name and returns a Subscription removing it again.
func (h *Handlers) Add(name string, fn func(bool)) Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	if h.byName[name] == nil {
		h.byName[name] = make(map[uint64]func(bool))
	}
	h.byName[name][id] = fn

	return SubscriptionFunc(func() error {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.byName[name], id)
		if len(h.byName[name]) == 0 {
			delete(h.byName, name)
		}
		return nil
	})
}

// Dispatch calls every handler registered for name. Handlers run outside the
// registry lock so they may add or remove subscriptions.
func (h *Handlers) Dispatch(name string, muted bool) int {
	h.mu.Lock()
	fns := make([]func(bool), 0, len(h.byName[name]))
	for _, fn := range h.byName[name] {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(muted)
	}
	return len(fns)
}

// Len returns the number of handlers registered for name.
func (h *Handlers) Len(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.byName[name])
}
