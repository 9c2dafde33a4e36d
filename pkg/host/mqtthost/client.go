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

// Package mqtthost implements host.Host over MQTT. Each source S publishes
// its mute flag, retained, on <prefix>/S/muted and accepts changes on
// <prefix>/S/set. Payloads are "true" or "false".
package mqtthost

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/mutelight/mutelight/pkg/helpers/syncutil"
	"github.com/mutelight/mutelight/pkg/host"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	DefaultTopicPrefix = "mutelight"

	DefaultReconnectInterval = 5 * time.Second

	stateSuffix   = "/muted"
	commandSuffix = "/set"
	qos           = 1
)

var ErrInvalidPayload = errors.New("invalid mute payload")

func StateTopic(prefix, source string) string {
	return prefix + "/" + source + stateSuffix
}

func CommandTopic(prefix, source string) string {
	return prefix + "/" + source + commandSuffix
}

// SourceFromTopic extracts the source name from a state topic. Source names
// may contain slashes.
func SourceFromTopic(prefix, topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, prefix+"/")
	if !ok {
		return "", false
	}
	source, ok := strings.CutSuffix(rest, stateSuffix)
	if !ok || source == "" {
		return "", false
	}
	return source, true
}

// ParseState decodes a state payload.
func ParseState(payload []byte) (bool, error) {
	muted, err := strconv.ParseBool(strings.TrimSpace(string(payload)))
	if err != nil {
		return false, fmt.Errorf("%w: %q", ErrInvalidPayload, payload)
	}
	return muted, nil
}

type Client struct {
	client   mqtt.Client
	factory  ClientFactory
	handlers *host.Handlers
	limiter  *rate.Limiter
	states   map[string]bool
	broker   string
	prefix   string
	mu       syncutil.Mutex
}

var _ host.Host = (*Client)(nil)

type Option func(*Client)

func WithClientFactory(f ClientFactory) Option {
	return func(c *Client) {
		c.factory = f
	}
}

// WithReconnectInterval spaces the initial connection attempts made by Run.
func WithReconnectInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

func NewClient(broker, prefix string, opts ...Option) *Client {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	c := &Client{
		factory:  DefaultClientFactory,
		handlers: host.NewHandlers(),
		limiter:  rate.NewLimiter(rate.Every(DefaultReconnectInterval), 1),
		states:   make(map[string]bool),
		broker:   broker,
		prefix:   strings.TrimSuffix(prefix, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect connects to the broker. paho reconnects on its own afterwards and
// the state subscription is renewed on every connect.
func (c *Client) Connect(ctx context.Context) error {
	info, err := ParseBroker(c.broker)
	if err != nil {
		return err
	}

	opts := NewClientOptions(info, "mutelight-")
	opts.OnConnect = func(client mqtt.Client) {
		topic := c.prefix + "/#"
		token := client.Subscribe(topic, qos, c.handleState)
		if token.Wait() && token.Error() != nil {
			log.Error().Err(token.Error()).Msgf("mqtthost: failed to subscribe to %s", topic)
			return
		}
		log.Info().Msgf("mqtthost: subscribed to %s", topic)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Msg("mqtthost: connection lost")
	}

	client := c.factory(opts)
	if err := wait(ctx, client.Connect()); err != nil {
		client.Disconnect(0)
		return fmt.Errorf("%w: %s: %w", host.ErrNotConnected, info.Address, err)
	}

	c.mu.Lock()
	c.client = client
	c.mu.Unlock()

	log.Info().Msgf("mqtthost: connected to %s", info.Address)
	return nil
}

// Run connects, retrying until the broker accepts, then holds the
// connection until ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil
		}
		err := c.Connect(ctx)
		if err == nil {
			break
		}
		if errors.Is(err, ErrInvalidBroker) {
			return err
		}
		log.Debug().Err(err).Str("broker", c.broker).Msg("mqtthost: connect failed")
	}

	<-ctx.Done()
	return c.Close()
}

func (c *Client) Close() error {
	c.mu.Lock()
	client := c.client
	c.client = nil
	c.mu.Unlock()

	if client != nil {
		log.Debug().Msg("mqtthost: disconnecting")
		client.Disconnect(250)
	}
	return nil
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client != nil && c.client.IsConnected()
}

func wait(ctx context.Context, token mqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) handleState(_ mqtt.Client, msg mqtt.Message) {
	source, ok := SourceFromTopic(c.prefix, msg.Topic())
	if !ok {
		return
	}

	muted, err := ParseState(msg.Payload())
	if err != nil {
		log.Debug().Err(err).Str("source", source).Msg("mqtthost: ignoring state")
		return
	}

	c.mu.Lock()
	prev, seen := c.states[source]
	c.states[source] = muted
	c.mu.Unlock()

	if seen && prev == muted {
		return
	}
	n := c.handlers.Dispatch(source, muted)
	log.Trace().Str("source", source).Bool("muted", muted).Int("handlers", n).Msg("mqtthost: mute state changed")
}

func (c *Client) connected() (mqtt.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil || !c.client.IsConnected() {
		return nil, host.ErrNotConnected
	}
	return c.client, nil
}

func (c *Client) Resolve(_ context.Context, name string) (host.Source, bool, error) {
	if _, err := c.connected(); err != nil {
		return host.Source{}, false, err
	}

	c.mu.Lock()
	_, ok := c.states[name]
	c.mu.Unlock()
	if !ok {
		return host.Source{}, false, nil
	}
	return host.Source{Name: name, ID: StateTopic(c.prefix, name)}, true, nil
}

func (c *Client) Muted(_ context.Context, src host.Source) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	muted, ok := c.states[src.Name]
	if !ok {
		return false, fmt.Errorf("%w: %s", host.ErrSourceNotFound, src.Name)
	}
	return muted, nil
}

// SetMuted publishes a command. The new state is only seen once the source
// publishes it back on its state topic.
func (c *Client) SetMuted(ctx context.Context, src host.Source, muted bool) error {
	client, err := c.connected()
	if err != nil {
		return err
	}

	topic := CommandTopic(c.prefix, src.Name)
	if err := wait(ctx, client.Publish(topic, qos, false, strconv.FormatBool(muted))); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

func (c *Client) Subscribe(_ context.Context, src host.Source, fn func(bool)) (host.Subscription, error) {
	if fn == nil {
		return nil, errors.New("nil mute handler")
	}
	return c.handlers.Add(src.Name, fn), nil
}

// ListAudioSources returns every source seen on the broker, sorted.
func (c *Client) ListAudioSources(_ context.Context) ([]string, error) {
	if _, err := c.connected(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	names := make([]string, 0, len(c.states))
	for name := range c.states {
		names = append(names, name)
	}
	c.mu.Unlock()

	slices.Sort(names)
	return names, nil
}
