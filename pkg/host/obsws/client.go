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

// Package obsws implements host.Host on top of obs-websocket protocol v5.
package obsws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mutelight/mutelight/pkg/helpers/syncutil"
	"github.com/mutelight/mutelight/pkg/host"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

var (
	ErrAuthRequired = errors.New("server requires a password")
	ErrHandshake    = errors.New("handshake failed")
)

const (
	DefaultURL               = "ws://localhost:4455"
	DefaultReconnectInterval = 2 * time.Second
	HandshakeTimeout         = 5 * time.Second
)

// Client is a long-lived obs-websocket connection. Subscriptions are kept
// across reconnects since they are keyed by input name.
type Client struct {
	dialer   *websocket.Dialer
	conn     *websocket.Conn
	done     chan struct{}
	handlers *host.Handlers
	pending  map[string]chan RequestResponse
	limiter  *rate.Limiter
	url      string
	password string
	mu       syncutil.Mutex
	writeMu  syncutil.Mutex
}

var _ host.Host = (*Client)(nil)

type Option func(*Client)

func WithPassword(password string) Option {
	return func(c *Client) {
		c.password = password
	}
}

// WithReconnectInterval sets the minimum time between connection attempts
// made by Run.
func WithReconnectInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

func NewClient(url string, opts ...Option) *Client {
	if url == "" {
		url = DefaultURL
	}
	c := &Client{
		dialer: &websocket.Dialer{
			HandshakeTimeout: HandshakeTimeout,
		},
		handlers: host.NewHandlers(),
		pending:  make(map[string]chan RequestResponse),
		limiter:  rate.NewLimiter(rate.Every(DefaultReconnectInterval), 1),
		url:      url,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Connect opens the connection and completes the Identify handshake. It is
// a no-op when already connected.
func (c *Client) Connect(ctx context.Context) error {
	_, err := c.connect(ctx)
	return err
}

// Run keeps the client connected until ctx is cancelled. Attempts are
// spaced by the reconnect interval.
func (c *Client) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		_ = c.Close()
	})
	defer stop()

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil
		}

		done, err := c.connect(ctx)
		if err != nil {
			if errors.Is(err, ErrAuthRequired) {
				log.Warn().Err(err).Str("url", c.url).Msg("obsws: cannot connect")
			} else {
				log.Debug().Err(err).Str("url", c.url).Msg("obsws: connect failed")
			}
			continue
		}

		select {
		case <-done:
			log.Warn().Str("url", c.url).Msg("obsws: connection lost")
		case <-ctx.Done():
			_ = c.Close()
			return nil
		}
	}
}

// Close drops the current connection, failing any in-flight requests, and
// waits for the read loop to exit.
func (c *Client) Close() error {
	c.mu.Lock()
	conn, done := c.conn, c.done
	c.mu.Unlock()
	if conn == nil {
		return nil
	}

	err := conn.Close()
	<-done
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	return nil
}

func (c *Client) connect(ctx context.Context) (<-chan struct{}, error) {
	c.mu.Lock()
	if c.conn != nil {
		done := c.done
		c.mu.Unlock()
		return done, nil
	}
	c.mu.Unlock()

	conn, resp, err := c.dialer.DialContext(ctx, c.url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", host.ErrNotConnected, err)
	}

	if err := c.identify(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}

	done := make(chan struct{})
	c.mu.Lock()
	c.conn = conn
	c.done = done
	c.mu.Unlock()

	go c.readLoop(conn, done)
	log.Info().Str("url", c.url).Msg("obsws: connected")

	return done, nil
}

func (c *Client) identify(conn *websocket.Conn) error {
	if err := conn.SetReadDeadline(time.Now().Add(HandshakeTimeout)); err != nil {
		return fmt.Errorf("%w: %w", ErrHandshake, err)
	}

	var hello Hello
	if err := readPayload(conn, OpHello, &hello); err != nil {
		return fmt.Errorf("%w: %w", ErrHandshake, err)
	}

	id := Identify{
		RPCVersion:         RPCVersion,
		EventSubscriptions: EventSubInputs,
	}
	if hello.Authentication != nil {
		if c.password == "" {
			return ErrAuthRequired
		}
		id.Authentication = AuthString(c.password, hello.Authentication.Salt, hello.Authentication.Challenge)
	}

	msg, err := Encode(OpIdentify, id)
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		return fmt.Errorf("%w: %w", ErrHandshake, err)
	}

	var identified Identified
	if err := readPayload(conn, OpIdentified, &identified); err != nil {
		return fmt.Errorf("%w: %w", ErrHandshake, err)
	}
	log.Debug().
		Str("version", hello.OBSWebSocketVersion).
		Int("rpc", identified.NegotiatedRPCVersion).
		Msg("obsws: identified")

	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		return fmt.Errorf("%w: %w", ErrHandshake, err)
	}
	return nil
}

func readPayload(conn *websocket.Conn, op int, v any) error {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return err
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}
	if msg.Op != op {
		return fmt.Errorf("expected op %d, got %d", op, msg.Op)
	}
	if err := json.Unmarshal(msg.D, v); err != nil {
		return fmt.Errorf("invalid op %d payload: %w", op, err)
	}
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	defer c.drop(conn)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Debug().Err(err).Msg("obsws: read loop ended")
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Debug().Err(err).Msg("obsws: ignoring invalid message")
			continue
		}

		switch msg.Op {
		case OpRequestResponse:
			c.handleResponse(msg.D)
		case OpEvent:
			c.handleEvent(msg.D)
		default:
			log.Trace().Int("op", msg.Op).Msg("obsws: ignoring message")
		}
	}
}

func (c *Client) drop(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.mu.Unlock()

	_ = conn.Close()
}

func (c *Client) handleResponse(d json.RawMessage) {
	var resp RequestResponse
	if err := json.Unmarshal(d, &resp); err != nil {
		log.Debug().Err(err).Msg("obsws: invalid request response")
		return
	}

	c.mu.Lock()
	ch, ok := c.pending[resp.RequestID]
	delete(c.pending, resp.RequestID)
	c.mu.Unlock()

	if !ok {
		log.Trace().Str("id", resp.RequestID).Msg("obsws: response for unknown request")
		return
	}
	ch <- resp
}

func (c *Client) handleEvent(d json.RawMessage) {
	var ev Event
	if err := json.Unmarshal(d, &ev); err != nil {
		log.Debug().Err(err).Msg("obsws: invalid event")
		return
	}
	if ev.EventType != EventInputMuteStateChanged {
		return
	}

	var data InputMute
	if err := json.Unmarshal(ev.EventData, &data); err != nil {
		log.Debug().Err(err).Msg("obsws: invalid mute event")
		return
	}
	n := c.handlers.Dispatch(data.InputName, data.InputMuted)
	log.Trace().
		Str("input", data.InputName).
		Bool("muted", data.InputMuted).
		Int("handlers", n).
		Msg("obsws: mute state changed")
}

func (c *Client) write(conn *websocket.Conn, msg []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, msg)
}

func (c *Client) request(ctx context.Context, requestType string, data, out any) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", requestType, err)
	}

	id := uuid.NewString()
	ch := make(chan RequestResponse, 1)

	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return host.ErrNotConnected
	}
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	msg, err := Encode(OpRequest, Request{
		RequestType: requestType,
		RequestID:   id,
		RequestData: data,
	})
	if err != nil {
		return err
	}
	if err := c.write(conn, msg); err != nil {
		return fmt.Errorf("%w: %w", host.ErrNotConnected, err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return fmt.Errorf("%w: connection lost during %s", host.ErrNotConnected, requestType)
		}
		if !resp.RequestStatus.Result {
			return &RequestError{
				RequestType: requestType,
				Code:        resp.RequestStatus.Code,
				Comment:     resp.RequestStatus.Comment,
			}
		}
		if out != nil && len(resp.ResponseData) > 0 {
			if err := json.Unmarshal(resp.ResponseData, out); err != nil {
				return fmt.Errorf("invalid %s response: %w", requestType, err)
			}
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", requestType, ctx.Err())
	}
}

func notFound(err error, name string) error {
	var reqErr *RequestError
	if errors.As(err, &reqErr) && reqErr.Code == StatusResourceNotFound {
		return fmt.Errorf("%w: %s: %w", host.ErrSourceNotFound, name, err)
	}
	return err
}

func (c *Client) inputs(ctx context.Context) ([]Input, error) {
	var list InputList
	if err := c.request(ctx, RequestGetInputList, nil, &list); err != nil {
		return nil, err
	}
	return list.Inputs, nil
}

func (c *Client) Resolve(ctx context.Context, name string) (host.Source, bool, error) {
	inputs, err := c.inputs(ctx)
	if err != nil {
		return host.Source{}, false, err
	}
	for _, in := range inputs {
		if in.InputName == name {
			return host.Source{Name: in.InputName, ID: in.InputUUID}, true, nil
		}
	}
	return host.Source{}, false, nil
}

func (c *Client) Muted(ctx context.Context, src host.Source) (bool, error) {
	var resp InputMute
	err := c.request(ctx, RequestGetInputMute, InputRef{InputName: src.Name}, &resp)
	if err != nil {
		return false, notFound(err, src.Name)
	}
	return resp.InputMuted, nil
}

func (c *Client) SetMuted(ctx context.Context, src host.Source, muted bool) error {
	err := c.request(ctx, RequestSetInputMute, InputMute{
		InputName:  src.Name,
		InputMuted: muted,
	}, nil)
	if err != nil {
		return notFound(err, src.Name)
	}
	return nil
}

func (c *Client) Subscribe(_ context.Context, src host.Source, fn func(bool)) (host.Subscription, error) {
	if fn == nil {
		return nil, errors.New("nil mute handler")
	}
	return c.handlers.Add(src.Name, fn), nil
}

// ListAudioSources returns the inputs that have a mute state, in the order
// the server lists them.
func (c *Client) ListAudioSources(ctx context.Context) ([]string, error) {
	inputs, err := c.inputs(ctx)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(inputs))
	for _, in := range inputs {
		_, err := c.Muted(ctx, host.Source{Name: in.InputName, ID: in.InputUUID})
		var reqErr *RequestError
		switch {
		case err == nil:
			names = append(names, in.InputName)
		case errors.As(err, &reqErr):
			log.Trace().Str("input", in.InputName).Int("code", reqErr.Code).Msg("obsws: input has no audio")
		default:
			return nil, err
		}
	}
	return names, nil
}
