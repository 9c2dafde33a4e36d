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

package scheduler

import (
	"slices"
	"time"
)

// Manual is a Scheduler driven by hand. Nothing runs until RunPending or
// Advance is called, and everything runs synchronously on the caller's
// goroutine. It is not safe for concurrent use.
type Manual struct {
	queue  []func()
	timers []*manualTimer
	now    time.Duration
	seq    int
}

type manualTimer struct {
	fn        func()
	at        time.Duration
	period    time.Duration
	seq       int
	cancelled bool
}

func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) Post(fn func()) {
	m.queue = append(m.queue, fn)
}

func (m *Manual) AfterFunc(d time.Duration, fn func()) Cancel {
	return m.add(d, 0, fn)
}

func (m *Manual) Every(d time.Duration, fn func()) Cancel {
	if d <= 0 {
		d = time.Millisecond
	}
	return m.add(d, d, fn)
}

func (m *Manual) add(d, period time.Duration, fn func()) Cancel {
	m.seq++
	t := &manualTimer{
		fn:     fn,
		at:     m.now + d,
		period: period,
		seq:    m.seq,
	}
	m.timers = append(m.timers, t)
	return func() {
		t.cancelled = true
	}
}

// RunPending runs every posted callback, including ones posted by the
// callbacks it runs.
func (m *Manual) RunPending() {
	for len(m.queue) > 0 {
		fn := m.queue[0]
		m.queue = m.queue[1:]
		fn()
	}
}

// Advance moves the virtual clock forward by d, firing timers in due order
// and draining posted callbacks after each one.
func (m *Manual) Advance(d time.Duration) {
	m.RunPending()
	target := m.now + d

	for {
		t := m.next(target)
		if t == nil {
			break
		}
		m.now = t.at
		if t.period > 0 {
			t.at += t.period
		} else {
			t.cancelled = true
		}
		t.fn()
		m.RunPending()
	}

	m.now = target
	m.timers = slices.DeleteFunc(m.timers, func(t *manualTimer) bool {
		return t.cancelled
	})
}

func (m *Manual) next(limit time.Duration) *manualTimer {
	var due *manualTimer
	for _, t := range m.timers {
		if t.cancelled || t.at > limit {
			continue
		}
		if due == nil || t.at < due.at || (t.at == due.at && t.seq < due.seq) {
			due = t
		}
	}
	return due
}

// Now returns the virtual time elapsed since the Manual was created.
func (m *Manual) Now() time.Duration {
	return m.now
}

// ActiveTimers returns the number of timers that have not fired or been
// cancelled.
func (m *Manual) ActiveTimers() int {
	n := 0
	for _, t := range m.timers {
		if !t.cancelled {
			n++
		}
	}
	return n
}

// Queued returns the number of posted callbacks waiting to run.
func (m *Manual) Queued() int {
	return len(m.queue)
}
