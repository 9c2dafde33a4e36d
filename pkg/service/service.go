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
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mutelight/mutelight/pkg/config"
	"github.com/mutelight/mutelight/pkg/host"
	"github.com/mutelight/mutelight/pkg/host/mqtthost"
	"github.com/mutelight/mutelight/pkg/host/obsws"
	"github.com/mutelight/mutelight/pkg/indicator"
	"github.com/mutelight/mutelight/pkg/scheduler"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// StopTimeout bounds how long shutdown waits for the bridge to reset the
// device.
const StopTimeout = 5 * time.Second

var ErrUnknownDriver = errors.New("unknown host driver")

// Runner is a host that owns a long-lived connection.
type Runner interface {
	host.Host
	Connect(ctx context.Context) error
	Run(ctx context.Context) error
	Close() error
}

// NewHost builds the host client selected by host.driver.
func NewHost(cfg *config.Instance) (Runner, error) {
	switch driver := cfg.HostDriver(); driver {
	case config.DriverOBS:
		return obsws.NewClient(cfg.HostURL(), obsws.WithPassword(cfg.HostPassword())), nil
	case config.DriverMQTT:
		return mqtthost.NewClient(cfg.HostURL(), cfg.TopicPrefix()), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

type options struct {
	host        Runner
	clock       clockwork.Clock
	portFactory indicator.PortFactory
	watchConfig bool
}

type Option func(*options)

// WithHost uses h instead of the host named in the config.
func WithHost(h Runner) Option {
	return func(o *options) {
		o.host = h
	}
}

func WithClock(clock clockwork.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

func WithPortFactory(f indicator.PortFactory) Option {
	return func(o *options) {
		o.portFactory = f
	}
}

// WithoutConfigWatch disables reloading when config.toml changes on disk.
func WithoutConfigWatch() Option {
	return func(o *options) {
		o.watchConfig = false
	}
}

// Service runs the bridge, its host connection and the config watcher.
type Service struct {
	cfg    *config.Instance
	host   Runner
	loop   *scheduler.Loop
	bridge *indicator.Bridge
	clock  clockwork.Clock
	driver string
	watch  bool
}

func New(cfg *config.Instance, opts ...Option) (*Service, error) {
	o := options{
		clock:       clockwork.NewRealClock(),
		watchConfig: true,
	}
	for _, opt := range opts {
		opt(&o)
	}

	h := o.host
	if h == nil {
		var err error
		h, err = NewHost(cfg)
		if err != nil {
			return nil, err
		}
	}

	loop := scheduler.NewLoop(o.clock, 0)
	bridgeOpts := []indicator.Option{indicator.WithRequestTimeout(cfg.RequestTimeout())}
	if o.portFactory != nil {
		bridgeOpts = append(bridgeOpts, indicator.WithPortFactory(o.portFactory))
	}

	return &Service{
		cfg:    cfg,
		host:   h,
		loop:   loop,
		bridge: indicator.NewBridge(h, loop, bridgeOpts...),
		clock:  o.clock,
		driver: cfg.HostDriver(),
		watch:  o.watchConfig,
	}, nil
}

// Run starts the bridge and blocks until ctx is cancelled. On the way out
// the bridge resets the device before the scheduler stops.
func (s *Service) Run(ctx context.Context) error {
	log.Info().Msgf("version: %s", config.AppVersion)

	loopCtx, stopLoop := context.WithCancel(context.WithoutCancel(ctx))
	defer stopLoop()
	loopDone := make(chan error, 1)
	go func() {
		loopDone <- s.loop.Run(loopCtx)
	}()

	settings := s.cfg.IndicatorSettings()
	s.loop.Post(func() {
		s.bridge.Start(settings)
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("driver", s.driver).Msg("starting host connection")
		if err := s.host.Run(gctx); err != nil {
			return fmt.Errorf("host connection failed: %w", err)
		}
		return nil
	})
	if s.watch {
		g.Go(func() error {
			err := s.cfg.Watch(gctx, s.clock, config.DefaultWatchDebounce, s.Reload)
			if err != nil {
				log.Warn().Err(err).Msg("config watcher stopped, changes need a restart")
			}
			return nil
		})
	}
	g.Go(func() error {
		s.handleSignals(gctx)
		return nil
	})

	err := g.Wait()

	log.Info().Msg("service stopping, resetting indicator")
	stopCtx, cancel := context.WithTimeout(context.Background(), StopTimeout)
	if callErr := s.loop.Call(stopCtx, s.bridge.Stop); callErr != nil {
		log.Error().Err(callErr).Msg("error stopping bridge")
	}
	cancel()

	stopLoop()
	if loopErr := <-loopDone; loopErr != nil {
		log.Error().Err(loopErr).Msg("scheduler exited with error")
	}
	log.Info().Msg("service stopped")

	return err
}

// Reload re-reads the config file and applies it to the running bridge.
// An invalid file is logged and the current settings stay in effect.
func (s *Service) Reload() {
	if err := s.cfg.Load(); err != nil {
		log.Error().Err(err).Msg("config reload failed, keeping current settings")
		return
	}

	s.cfg.SetDebugLogging(s.cfg.DebugLogging())
	if driver := s.cfg.HostDriver(); driver != s.driver {
		log.Warn().Msgf("host driver changed to %s, restart to apply", driver)
	}

	settings := s.cfg.IndicatorSettings()
	s.loop.Post(func() {
		s.bridge.Reconfigure(settings)
	})
}

// Reconnect reopens the serial port with the current settings.
func (s *Service) Reconnect() {
	s.loop.Post(s.bridge.Reconnect)
}

// TestFrame sends a mute or unmute frame to the device without touching
// the host.
func (s *Service) TestFrame(muted bool) {
	s.loop.Post(func() {
		s.bridge.TestFrame(muted)
	})
}

// Status returns a snapshot of the bridge taken on the scheduler.
func (s *Service) Status(ctx context.Context) (indicator.Status, error) {
	var st indicator.Status
	err := s.loop.Call(ctx, func() {
		st = s.bridge.Status()
	})
	if err != nil {
		return st, fmt.Errorf("failed to read bridge status: %w", err)
	}
	return st, nil
}
