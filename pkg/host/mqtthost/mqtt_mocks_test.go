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

package mqtthost

import (
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type published struct {
	payload  any
	topic    string
	retained bool
}

// mockMQTTClient implements mqtt.Client for testing
type mockMQTTClient struct {
	connectError    error
	subscribeError  error
	publishError    error
	opts            *mqtt.ClientOptions
	messageHandler  mqtt.MessageHandler
	subscribed      []string
	published       []published
	disconnectCalls int
	connected       bool
}

func newMockMQTTClient() *mockMQTTClient {
	return &mockMQTTClient{}
}

func (m *mockMQTTClient) factory(opts *mqtt.ClientOptions) mqtt.Client {
	m.opts = opts
	return m
}

// deliver hands a message to the subscription handler as the broker would.
func (m *mockMQTTClient) deliver(topic, payload string) {
	if m.messageHandler != nil {
		m.messageHandler(m, &mockMessage{topic: topic, payload: []byte(payload)})
	}
}

func (m *mockMQTTClient) IsConnected() bool {
	return m.connected
}

func (m *mockMQTTClient) IsConnectionOpen() bool {
	return m.connected
}

func (m *mockMQTTClient) Connect() mqtt.Token {
	if m.connectError != nil {
		return &mockToken{err: m.connectError}
	}
	m.connected = true
	if m.opts != nil && m.opts.OnConnect != nil {
		m.opts.OnConnect(m)
	}
	return &mockToken{complete: true}
}

func (m *mockMQTTClient) Disconnect(_ uint) {
	m.connected = false
	m.disconnectCalls++
}

func (m *mockMQTTClient) Publish(topic string, _ byte, retained bool, payload any) mqtt.Token {
	if m.publishError != nil {
		return &mockToken{err: m.publishError}
	}
	m.published = append(m.published, published{topic: topic, retained: retained, payload: payload})
	return &mockToken{complete: true}
}

func (m *mockMQTTClient) Subscribe(topic string, _ byte, callback mqtt.MessageHandler) mqtt.Token {
	if m.subscribeError != nil {
		return &mockToken{err: m.subscribeError}
	}
	m.subscribed = append(m.subscribed, topic)
	m.messageHandler = callback
	return &mockToken{complete: true}
}

func (*mockMQTTClient) SubscribeMultiple(_ map[string]byte, _ mqtt.MessageHandler) mqtt.Token {
	return &mockToken{complete: true}
}

func (*mockMQTTClient) Unsubscribe(_ ...string) mqtt.Token {
	return &mockToken{complete: true}
}

func (m *mockMQTTClient) AddRoute(_ string, callback mqtt.MessageHandler) {
	m.messageHandler = callback
}

func (*mockMQTTClient) OptionsReader() mqtt.ClientOptionsReader {
	return mqtt.ClientOptionsReader{}
}

// mockToken implements mqtt.Token for testing
type mockToken struct {
	err      error
	complete bool
}

func (*mockToken) Wait() bool {
	return true
}

func (t *mockToken) WaitTimeout(_ time.Duration) bool {
	return t.complete
}

func (*mockToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (t *mockToken) Error() error {
	return t.err
}

// mockMessage implements mqtt.Message for testing
type mockMessage struct {
	topic   string
	payload []byte
}

func (*mockMessage) Duplicate() bool   { return false }
func (*mockMessage) Qos() byte         { return qos }
func (*mockMessage) Retained() bool    { return true }
func (m *mockMessage) Topic() string   { return m.topic }
func (*mockMessage) MessageID() uint16 { return 1 }
func (m *mockMessage) Payload() []byte { return m.payload }
func (*mockMessage) Ack()              {}

