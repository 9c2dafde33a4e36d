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

package service

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/mutelight/mutelight/pkg/config"
	"github.com/mutelight/mutelight/pkg/indicator"
	"github.com/rs/zerolog/log"
)

// ListSources connects to h once and returns the names of its audio
// sources.
func ListSources(ctx context.Context, cfg *config.Instance, h Runner) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout())
	defer cancel()

	if err := h.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to host: %w", err)
	}
	defer func() {
		if err := h.Close(); err != nil {
			log.Debug().Err(err).Msg("error closing host connection")
		}
	}()

	sources, err := h.ListAudioSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list audio sources: %w", err)
	}
	return sources, nil
}

// SendTestFrame opens the configured port, waits out the device boot time
// and writes a single mute or unmute frame.
func SendTestFrame(
	ctx context.Context,
	cfg *config.Instance,
	clock clockwork.Clock,
	factory indicator.PortFactory,
	muted bool,
) error {
	port := cfg.IndicatorPort()
	if indicator.IsDisconnectedPort(port) {
		return fmt.Errorf("%w: no port configured", indicator.ErrPortUnavailable)
	}

	conn := indicator.NewConn(factory)
	if err := conn.Open(port, cfg.IndicatorBaud()); err != nil {
		return fmt.Errorf("failed to open indicator: %w", err)
	}
	defer conn.Close()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-clock.After(cfg.HandshakeDelay()):
	}

	if err := conn.Write(indicator.EncodeState(muted, cfg.BlinkInterval())); err != nil {
		return fmt.Errorf("failed to write test frame: %w", err)
	}
	return nil
}
