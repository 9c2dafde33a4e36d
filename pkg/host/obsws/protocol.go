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

package obsws

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Op codes of the obs-websocket v5 protocol.
const (
	OpHello           = 0
	OpIdentify        = 1
	OpIdentified      = 2
	OpEvent           = 5
	OpRequest         = 6
	OpRequestResponse = 7
)

// RPCVersion is the only RPC version spoken by the client.
const RPCVersion = 1

// EventSubInputs subscribes to the Inputs event category, which carries
// InputMuteStateChanged.
const EventSubInputs = 1 << 3

// Request status codes the client cares about.
const (
	StatusSuccess              = 100
	StatusResourceNotFound     = 600
	StatusInvalidResourceState = 604
)

const (
	RequestGetInputList = "GetInputList"
	RequestGetInputMute = "GetInputMute"
	RequestSetInputMute = "SetInputMute"

	EventInputMuteStateChanged = "InputMuteStateChanged"
)

// Message is the envelope of every frame on the socket.
type Message struct {
	D  json.RawMessage `json:"d"`
	Op int             `json:"op"`
}

type Authentication struct {
	Challenge string `json:"challenge"`
	Salt      string `json:"salt"`
}

type Hello struct {
	Authentication      *Authentication `json:"authentication,omitempty"`
	OBSWebSocketVersion string          `json:"obsWebSocketVersion"`
	RPCVersion          int             `json:"rpcVersion"`
}

type Identify struct {
	Authentication     string `json:"authentication,omitempty"`
	RPCVersion         int    `json:"rpcVersion"`
	EventSubscriptions int    `json:"eventSubscriptions"`
}

type Identified struct {
	NegotiatedRPCVersion int `json:"negotiatedRpcVersion"`
}

type Request struct {
	RequestData any    `json:"requestData,omitempty"`
	RequestType string `json:"requestType"`
	RequestID   string `json:"requestId"`
}

type RequestStatus struct {
	Comment string `json:"comment,omitempty"`
	Code    int    `json:"code"`
	Result  bool   `json:"result"`
}

type RequestResponse struct {
	ResponseData  json.RawMessage `json:"responseData,omitempty"`
	RequestType   string          `json:"requestType"`
	RequestID     string          `json:"requestId"`
	RequestStatus RequestStatus   `json:"requestStatus"`
}

type Event struct {
	EventData json.RawMessage `json:"eventData,omitempty"`
	EventType string          `json:"eventType"`
}

type Input struct {
	InputName string `json:"inputName"`
	InputUUID string `json:"inputUuid,omitempty"`
	InputKind string `json:"inputKind"`
}

type InputList struct {
	Inputs []Input `json:"inputs"`
}

type InputRef struct {
	InputName string `json:"inputName,omitempty"`
	InputUUID string `json:"inputUuid,omitempty"`
}

type InputMute struct {
	InputName  string `json:"inputName,omitempty"`
	InputUUID  string `json:"inputUuid,omitempty"`
	InputMuted bool   `json:"inputMuted"`
}

// RequestError is a request the server answered with a failure status.
type RequestError struct {
	RequestType string
	Comment     string
	Code        int
}

func (e *RequestError) Error() string {
	if e.Comment == "" {
		return fmt.Sprintf("%s failed with code %d", e.RequestType, e.Code)
	}
	return fmt.Sprintf("%s failed with code %d: %s", e.RequestType, e.Code, e.Comment)
}

// AuthString computes the Identify authentication string from the password
// and the salt and challenge sent in Hello.
func AuthString(password, salt, challenge string) string {
	secret := sha256.Sum256([]byte(password + salt))
	encoded := base64.StdEncoding.EncodeToString(secret[:])
	auth := sha256.Sum256([]byte(encoded + challenge))
	return base64.StdEncoding.EncodeToString(auth[:])
}

// Encode wraps a payload in a Message.
func Encode(op int, payload any) ([]byte, error) {
	d, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal op %d payload: %w", op, err)
	}
	b, err := json.Marshal(Message{Op: op, D: d})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal op %d message: %w", op, err)
	}
	return b, nil
}
