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

package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/mutelight/mutelight/pkg/config"
	"github.com/mutelight/mutelight/pkg/helpers"
	"github.com/mutelight/mutelight/pkg/service"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

type Flags struct {
	Version     *bool
	ListPorts   *bool
	ListSources *bool
	TestMute    *bool
	TestUnmute  *bool
	Daemon      *bool
	SetPort     *string
	SetSource   *string
}

// SetupFlags defines all CLI flags.
func SetupFlags() *Flags {
	return &Flags{
		Version: flag.Bool(
			"version",
			false,
			"print version and exit",
		),
		ListPorts: flag.Bool(
			"list-ports",
			false,
			"list serial ports usable as indicator.port",
		),
		ListSources: flag.Bool(
			"list-sources",
			false,
			"list the host's audio sources",
		),
		TestMute: flag.Bool(
			"test-mute",
			false,
			"send a mute frame to the indicator and exit",
		),
		TestUnmute: flag.Bool(
			"test-unmute",
			false,
			"send an unmute frame to the indicator and exit",
		),
		Daemon: flag.Bool(
			"daemon",
			false,
			"log to stderr as well as the log file",
		),
		SetPort: flag.String(
			"set-port",
			"",
			"save the indicator serial port to the config file",
		),
		SetSource: flag.String(
			"set-source",
			"",
			"save the monitored audio source to the config file",
		),
	}
}

func isFlagPassed(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func finish(err error, msg string) {
	if err == nil {
		os.Exit(0)
	}
	log.Error().Err(err).Msg(msg)
	_, _ = fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	os.Exit(1)
}

// Pre parses flags and actions the ones that need no config or logging.
func (f *Flags) Pre() {
	flag.Parse()

	switch {
	case *f.Version:
		_, _ = fmt.Printf("Mutelight v%s\n", config.AppVersion)
		os.Exit(0)
	case *f.ListPorts:
		ports, err := helpers.GetSerialDeviceList()
		if err == nil {
			PrintPorts(os.Stdout, ports)
		}
		finish(err, "error listing serial ports")
	}
}

// Post actions the flags that need the config. Logging is set up.
func (f *Flags) Post(cfg *config.Instance) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *f.ListSources:
		h, err := service.NewHost(cfg)
		if err != nil {
			finish(err, "error creating host client")
		}
		sources, err := service.ListSources(ctx, cfg, h)
		if err == nil {
			PrintSources(os.Stdout, sources)
		}
		finish(err, "error listing audio sources")
	case *f.TestMute, *f.TestUnmute:
		err := service.SendTestFrame(ctx, cfg, clockwork.NewRealClock(), nil, *f.TestMute)
		finish(err, "error sending test frame")
	case isFlagPassed("set-port"), isFlagPassed("set-source"):
		err := SaveSelection(cfg, f.selection())
		if err == nil {
			_, _ = fmt.Printf("Saved %s\n", cfg.Path())
		}
		finish(err, "error saving config")
	}
}

func (f *Flags) selection() Selection {
	var sel Selection
	if isFlagPassed("set-port") {
		sel.Port = f.SetPort
	}
	if isFlagPassed("set-source") {
		sel.Source = f.SetSource
	}
	return sel
}

// Selection holds the config values changed from the command line. Nil
// fields are left alone.
type Selection struct {
	Port   *string
	Source *string
}

// SaveSelection applies sel to cfg and writes the config file.
func SaveSelection(cfg *config.Instance, sel Selection) error {
	if sel.Port != nil {
		cfg.SetIndicatorPort(*sel.Port)
	}
	if sel.Source != nil {
		cfg.SetIndicatorSource(*sel.Source)
	}
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

func PrintPorts(w io.Writer, ports []helpers.SerialPort) {
	choices := helpers.PortChoices(ports)
	_, _ = fmt.Fprintln(w, choices[0])
	for _, p := range ports {
		_, _ = fmt.Fprintln(w, p.String())
	}
}

func PrintSources(w io.Writer, sources []string) {
	if len(sources) == 0 {
		_, _ = fmt.Fprintln(w, "no audio sources found")
		return
	}
	for _, s := range sources {
		_, _ = fmt.Fprintln(w, s)
	}
}

// Setup initializes logging and the user config. Returns a user config
// object.
//
//nolint:gocritic // config struct copied for immutability
func Setup(defaultConfig config.Values, writers []io.Writer) *config.Instance {
	err := helpers.InitLogging(helpers.DataDir(), writers)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.NewConfig(afero.NewOsFs(), helpers.ConfigDir(), defaultConfig)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	cfg.SetDebugLogging(cfg.DebugLogging())
	return cfg
}
