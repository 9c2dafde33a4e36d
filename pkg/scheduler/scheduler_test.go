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
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func startLoop(t *testing.T, clock clockwork.Clock) *Loop {
	t.Helper()

	l := NewLoop(clock, 0)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- l.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-errCh)
	})

	return l
}

func TestLoop_PostRunsInOrder(t *testing.T) {
	t.Parallel()

	l := startLoop(t, clockwork.NewFakeClock())

	var got []int
	for i := 0; i < 5; i++ {
		i := i
		l.Post(func() {
			got = append(got, i)
		})
	}
	require.NoError(t, l.Call(context.Background(), func() {}))

	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestLoop_RunTwice(t *testing.T) {
	t.Parallel()

	l := startLoop(t, clockwork.NewFakeClock())
	require.NoError(t, l.Call(context.Background(), func() {}))

	err := l.Run(context.Background())
	assert.ErrorIs(t, err, ErrLoopRunning)
}

func TestLoop_CallAfterStop(t *testing.T) {
	t.Parallel()

	l := NewLoop(clockwork.NewFakeClock(), 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, l.Run(ctx))

	<-l.Done()
	err := l.Call(context.Background(), func() {})
	require.ErrorIs(t, err, ErrLoopStopped)

	// dropped, must not block
	l.Post(func() {})
}

func TestLoop_RecoversFromPanic(t *testing.T) {
	t.Parallel()

	l := startLoop(t, clockwork.NewFakeClock())
	l.Post(func() {
		panic("boom")
	})

	var ran atomic.Bool
	require.NoError(t, l.Call(context.Background(), func() {
		ran.Store(true)
	}))
	assert.True(t, ran.Load())
}

func TestLoop_AfterFunc(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	l := startLoop(t, clock)

	fired := make(chan struct{})
	l.AfterFunc(time.Second, func() {
		close(fired)
	})

	clock.Advance(999 * time.Millisecond)
	select {
	case <-fired:
		t.Fatal("timer fired early")
	case <-time.After(20 * time.Millisecond):
	}

	clock.Advance(time.Millisecond)
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestLoop_CancelDropsQueuedCallback(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	l := startLoop(t, clock)

	gate := make(chan struct{})
	var ran atomic.Bool
	var cancel Cancel

	// keep the loop busy so the timer's callback has to wait in the queue
	l.Post(func() {
		<-gate
		cancel()
	})
	cancel = l.AfterFunc(time.Second, func() {
		ran.Store(true)
	})

	clock.Advance(time.Second)
	require.Eventually(t, func() bool {
		return len(l.queue) == 1
	}, time.Second, time.Millisecond)

	close(gate)
	require.NoError(t, l.Call(context.Background(), func() {}))

	assert.False(t, ran.Load(), "cancelled callback must not run")
}

func TestLoop_Every(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	l := startLoop(t, clock)

	var count atomic.Int32
	stop := l.Every(250*time.Millisecond, func() {
		count.Add(1)
	})

	for i := 0; i < 3; i++ {
		want := int32(i + 1)
		clock.Advance(250 * time.Millisecond)
		require.Eventually(t, func() bool {
			return count.Load() == want
		}, time.Second, time.Millisecond)
	}

	require.NoError(t, l.Call(context.Background(), stop))
	clock.Advance(time.Second)
	require.NoError(t, l.Call(context.Background(), func() {}))

	assert.Equal(t, int32(3), count.Load())
}

func TestManual_OrdersTimers(t *testing.T) {
	t.Parallel()

	m := NewManual()
	var got []string

	m.AfterFunc(300*time.Millisecond, func() { got = append(got, "once") })
	m.Every(250*time.Millisecond, func() { got = append(got, "poll") })
	m.Every(time.Second, func() { got = append(got, "flush") })

	m.Advance(time.Second)

	assert.Equal(t, []string{"poll", "once", "poll", "poll", "poll", "flush"}, got)
	assert.Equal(t, time.Second, m.Now())
	assert.Equal(t, 2, m.ActiveTimers())
}

func TestManual_CancelAndPost(t *testing.T) {
	t.Parallel()

	m := NewManual()
	var fired, posted int

	cancel := m.AfterFunc(time.Second, func() { fired++ })
	m.Post(func() {
		posted++
		cancel()
	})
	assert.Equal(t, 1, m.Queued())

	m.Advance(2 * time.Second)

	assert.Equal(t, 1, posted)
	assert.Equal(t, 0, fired)
	assert.Equal(t, 0, m.ActiveTimers())
}

func TestManual_TimerPostsAreDrained(t *testing.T) {
	t.Parallel()

	m := NewManual()
	var order []string

	m.AfterFunc(time.Second, func() {
		order = append(order, "timer")
		m.Post(func() { order = append(order, "posted") })
	})
	m.AfterFunc(time.Second, func() { order = append(order, "second") })

	m.Advance(time.Second)

	assert.Equal(t, []string{"timer", "posted", "second"}, order)
}
