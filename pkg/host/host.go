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

// Package host defines the boundary to the audio application that owns the
// monitored source and its mute flag.
package host

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotConnected   = errors.New("host not connected")
	ErrSourceNotFound = errors.New("source not found")
)

// DefaultRequestTimeout bounds every call the bridge makes into a host.
const DefaultRequestTimeout = 2 * time.Second

// Source is a resolved handle to an audio source.
type Source struct {
	Name string
	ID   string
}

// Subscription is an active mute notification binding.
type Subscription interface {
	Unsubscribe() error
}

// SubscriptionFunc adapts a plain function to Subscription.
type SubscriptionFunc func() error

func (f SubscriptionFunc) Unsubscribe() error {
	return f()
}

// Host is the audio application as seen by the bridge. Implementations may
// invoke subscription handlers from any goroutine.
type Host interface {
	// Resolve looks up a source by name. ok is false when the host is
	// reachable but does not (yet) know the source.
	Resolve(ctx context.Context, name string) (src Source, ok bool, err error)
	Muted(ctx context.Context, src Source) (bool, error)
	SetMuted(ctx context.Context, src Source, muted bool) error
	Subscribe(ctx context.Context, src Source, fn func(muted bool)) (Subscription, error)
	// ListAudioSources returns the names of sources that carry audio.
	ListAudioSources(ctx context.Context) ([]string, error)
}
