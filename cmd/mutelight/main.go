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

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mutelight/mutelight/pkg/cli"
	"github.com/mutelight/mutelight/pkg/config"
	"github.com/mutelight/mutelight/pkg/helpers"
	"github.com/mutelight/mutelight/pkg/service"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := cli.SetupFlags()
	flags.Pre()

	var logWriters []io.Writer
	if *flags.Daemon {
		logWriters = []io.Writer{helpers.ConsoleWriter()}
	}

	cfg := cli.Setup(config.BaseDefaults, logWriters)

	defer func() {
		if err := recover(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Panic: %s\n", err)
			log.Fatal().Msgf("panic: %v", err)
		}
	}()

	flags.Post(cfg)

	svc, err := service.New(cfg)
	if err != nil {
		log.Error().Err(err).Msg("error creating service")
		return fmt.Errorf("error creating service: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *flags.Daemon {
		log.Info().Msg("started in daemon mode")
	}

	if err := svc.Run(ctx); err != nil {
		log.Error().Err(err).Msg("service exited with error")
		return fmt.Errorf("service exited with error: %w", err)
	}
	return nil
}
