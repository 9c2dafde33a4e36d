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

// Package scheduler runs callbacks one at a time on a single goroutine.
//
// Everything that touches bridge state (timer callbacks, host notifications,
// configuration changes) is funnelled through a Scheduler so that no two
// callbacks ever run concurrently and the bridge needs no locks of its own.
package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mutelight/mutelight/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

var (
	ErrLoopStopped = errors.New("scheduler loop stopped")
	ErrLoopRunning = errors.New("scheduler loop already running")
)

// DefaultQueueSize is the number of callbacks that can wait in the queue
// before Post starts blocking.
const DefaultQueueSize = 64

// Cancel stops a scheduled callback. Calling it from a callback running on
// the loop guarantees the cancelled callback will not run afterwards, even if
// its timer already fired and the call is sitting in the queue.
type Cancel func()

// Scheduler is the timer and dispatch surface the bridge depends on.
type Scheduler interface {
	// Post queues fn to run on the loop.
	Post(fn func())
	// AfterFunc runs fn once on the loop after d.
	AfterFunc(d time.Duration, fn func()) Cancel
	// Every runs fn on the loop every d until cancelled.
	Every(d time.Duration, fn func()) Cancel
}

// Loop is the production Scheduler. Timers come from a clockwork.Clock so
// tests can drive it with a fake clock.
type Loop struct {
	clock   clockwork.Clock
	queue   chan func()
	stopped chan struct{}
	running atomic.Bool
	mu      syncutil.Mutex // protects closed
	closed  bool
}

func NewLoop(clock clockwork.Clock, queueSize int) *Loop {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Loop{
		clock:   clock,
		queue:   make(chan func(), queueSize),
		stopped: make(chan struct{}),
	}
}

// Run executes queued callbacks until ctx is done. A Loop can only be run
// once; callbacks posted after Run returns are dropped.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrLoopRunning
	}
	defer l.stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-l.queue:
			l.exec(fn)
		}
	}
}

func (*Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Msgf("scheduler: recovered from panic in callback: %v", r)
		}
	}()
	fn()
}

func (l *Loop) stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		l.closed = true
		close(l.stopped)
	}
}

// Done is closed once the loop has stopped.
func (l *Loop) Done() <-chan struct{} {
	return l.stopped
}

func (l *Loop) Post(fn func()) {
	select {
	case <-l.stopped:
		log.Debug().Msg("scheduler: dropping callback, loop stopped")
	case l.queue <- fn:
	}
}

// Call runs fn on the loop and waits for it to finish. It must not be called
// from a callback already running on the loop.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case <-l.stopped:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	case l.queue <- func() {
		defer close(done)
		fn()
	}:
	}

	select {
	case <-done:
		return nil
	case <-l.stopped:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) AfterFunc(d time.Duration, fn func()) Cancel {
	var cancelled atomic.Bool
	timer := l.clock.AfterFunc(d, func() {
		l.Post(func() {
			if cancelled.Load() {
				return
			}
			fn()
		})
	})
	return func() {
		cancelled.Store(true)
		timer.Stop()
	}
}

func (l *Loop) Every(d time.Duration, fn func()) Cancel {
	var cancelled atomic.Bool
	// at most one tick waits in the queue, a slow loop skips ticks instead
	// of piling them up
	var queued atomic.Bool
	quit := make(chan struct{})
	ticker := l.clock.NewTicker(d)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-quit:
				return
			case <-l.stopped:
				return
			case <-ticker.Chan():
				if !queued.CompareAndSwap(false, true) {
					continue
				}
				l.Post(func() {
					queued.Store(false)
					if cancelled.Load() {
						return
					}
					fn()
				})
			}
		}
	}()

	var once atomic.Bool
	return func() {
		cancelled.Store(true)
		if once.CompareAndSwap(false, true) {
			close(quit)
		}
	}
}
