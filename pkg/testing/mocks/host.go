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
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/mutelight/mutelight/pkg/helpers/syncutil"
	"github.com/mutelight/mutelight/pkg/host"
)

// SetMutedCall records one SetMuted request.
type SetMutedCall struct {
	Source string
	Muted  bool
}

// FakeHost is an in-memory host.Host. Sources are added with AddSource;
// SetMuted updates the flag and notifies subscribers synchronously, like an
// audio application echoing the change back as a mute event, unless NoEcho
// is set.
type FakeHost struct {
	ResolveError   error
	MutedError     error
	SetMutedError  error
	SubscribeError error
	handlers       *host.Handlers
	sources        map[string]bool
	SetMutedCalls  []SetMutedCall
	ResolveCalls   int
	mu             syncutil.Mutex
	NoEcho         bool
}

func NewFakeHost() *FakeHost {
	return &FakeHost{
		handlers: host.NewHandlers(),
		sources:  make(map[string]bool),
	}
}

// AddSource makes a source resolvable with the given mute flag.
func (h *FakeHost) AddSource(name string, muted bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sources[name] = muted
}

// RemoveSource makes a source unresolvable.
func (h *FakeHost) RemoveSource(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sources, name)
}

// SetSourceMuted changes a source's flag from the host side and notifies
// subscribers.
func (h *FakeHost) SetSourceMuted(name string, muted bool) {
	h.mu.Lock()
	h.sources[name] = muted
	h.mu.Unlock()
	h.handlers.Dispatch(name, muted)
}

// SetSourceMutedSilently changes a source's flag without a notification.
func (h *FakeHost) SetSourceMutedSilently(name string, muted bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sources[name] = muted
}

// Subscribers returns the number of handlers registered for name.
func (h *FakeHost) Subscribers(name string) int {
	return h.handlers.Len(name)
}

// Calls returns a copy of the recorded SetMuted calls.
func (h *FakeHost) Calls() []SetMutedCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.SetMutedCalls)
}

func (h *FakeHost) Resolve(_ context.Context, name string) (host.Source, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.ResolveCalls++
	if h.ResolveError != nil {
		return host.Source{}, false, h.ResolveError
	}
	if _, ok := h.sources[name]; !ok {
		return host.Source{}, false, nil
	}
	return host.Source{Name: name, ID: "fake-" + name}, true, nil
}

func (h *FakeHost) Muted(_ context.Context, src host.Source) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.MutedError != nil {
		return false, h.MutedError
	}
	muted, ok := h.sources[src.Name]
	if !ok {
		return false, fmt.Errorf("%w: %s", host.ErrSourceNotFound, src.Name)
	}
	return muted, nil
}

func (h *FakeHost) SetMuted(_ context.Context, src host.Source, muted bool) error {
	h.mu.Lock()
	h.SetMutedCalls = append(h.SetMutedCalls, SetMutedCall{Source: src.Name, Muted: muted})
	if h.SetMutedError != nil {
		err := h.SetMutedError
		h.mu.Unlock()
		return err
	}
	if _, ok := h.sources[src.Name]; !ok {
		h.mu.Unlock()
		return fmt.Errorf("%w: %s", host.ErrSourceNotFound, src.Name)
	}
	h.sources[src.Name] = muted
	echo := !h.NoEcho
	h.mu.Unlock()

	if echo {
		h.handlers.Dispatch(src.Name, muted)
	}
	return nil
}

func (h *FakeHost) Subscribe(_ context.Context, src host.Source, fn func(bool)) (host.Subscription, error) {
	h.mu.Lock()
	err := h.SubscribeError
	h.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, errors.New("nil handler")
	}
	return h.handlers.Add(src.Name, fn), nil
}

func (h *FakeHost) ListAudioSources(_ context.Context) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	names := make([]string, 0, len(h.sources))
	for name := range h.sources {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}
