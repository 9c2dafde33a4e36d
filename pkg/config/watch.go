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

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Watch calls onChange after the config file is written or replaced, once
// per burst of events closer together than debounce. It blocks until ctx is
// cancelled. The parent directory is watched so editors that save by
// renaming a temp file over the original are seen too.
func (c *Instance) Watch(
	ctx context.Context,
	clock clockwork.Clock,
	debounce time.Duration,
	onChange func(),
) error {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}

	path := filepath.Clean(c.Path())

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			log.Debug().Err(err).Msg("error closing config watcher")
		}
	}()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch config directory (%s): %w", dir, err)
	}
	log.Debug().Msgf("watching config file: %s", path)

	var timer clockwork.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			log.Trace().Msgf("config file event: %s", event)
			if timer == nil {
				timer = clock.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.Chan()
		case <-fire:
			fire = nil
			log.Info().Msg("config file changed")
			onChange()
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error().Msgf("error in config watcher: %s", watchErr)
		}
	}
}
