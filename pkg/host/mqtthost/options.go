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
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ClientFactory builds a paho client from options. Tests swap it for a mock.
type ClientFactory func(opts *mqtt.ClientOptions) mqtt.Client

var DefaultClientFactory ClientFactory = mqtt.NewClient

var ErrInvalidBroker = errors.New("invalid broker address")

// BrokerInfo is a broker URL split into what paho needs.
type BrokerInfo struct {
	Protocol string
	Address  string
	Username string
	Password string
	UseTLS   bool
}

// ParseBroker accepts "host:port", "mqtt://", "mqtts://", "tcp://" and
// "ssl://" URLs, with optional user info for credentials.
//
// Examples:
//   - "localhost:1883" -> tcp, "localhost:1883"
//   - "mqtts://user:pw@broker:8883" -> ssl, "broker:8883", TLS, user/pw
func ParseBroker(broker string) (BrokerInfo, error) {
	if broker == "" {
		return BrokerInfo{}, fmt.Errorf("%w: address cannot be empty", ErrInvalidBroker)
	}

	raw := broker
	if !strings.Contains(raw, "://") {
		raw = "mqtt://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return BrokerInfo{}, fmt.Errorf("%w: %w", ErrInvalidBroker, err)
	}
	if u.Host == "" {
		return BrokerInfo{}, fmt.Errorf("%w: host:port is required", ErrInvalidBroker)
	}

	info := BrokerInfo{
		Protocol: "tcp",
		Address:  u.Host,
	}
	switch u.Scheme {
	case "mqtts", "ssl", "tls":
		info.Protocol = "ssl"
		info.UseTLS = true
	case "mqtt", "tcp":
	default:
		return BrokerInfo{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidBroker, u.Scheme)
	}

	if u.User != nil {
		info.Username = u.User.Username()
		info.Password, _ = u.User.Password()
	}

	return info, nil
}

// NewClientOptions configures paho for a broker. clientIDPrefix gets a short
// random suffix so several instances can share a broker.
func NewClientOptions(info BrokerInfo, clientIDPrefix string) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("%s://%s", info.Protocol, info.Address))
	opts.SetClientID(clientIDPrefix + uuid.New().String()[:8])
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(false)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetOrderMatters(false)

	if info.Username != "" {
		opts.SetUsername(info.Username)
		opts.SetPassword(info.Password)
		log.Debug().Msgf("mqtthost: using authentication for %s", info.Address)
	}

	if info.UseTLS {
		opts.SetTLSConfig(&tls.Config{
			MinVersion: tls.VersionTLS12,
		})
		log.Debug().Msgf("mqtthost: using TLS for %s", info.Address)
	}

	return opts
}
