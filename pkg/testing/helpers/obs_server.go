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

// Package helpers provides fake servers for testing host adapters without a
// running audio application.
package helpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/mutelight/mutelight/pkg/helpers/syncutil"
	"github.com/mutelight/mutelight/pkg/host/obsws"
	"github.com/olahol/melody"
)

const (
	testSalt      = "lM1GncleQOaCu9lT1yeUZhFYnqhsLLP1G5lAGo3ixaI="
	testChallenge = "+IxH4CnCiqpX1rM9scsNynZzbOe4KhDeYcTNS3PDaeY="

	closeAuthenticationFailed = 4009
	keyIdentified             = "identified"
)

type mockInput struct {
	input obsws.Input
	audio bool
	muted bool
}

// MockOBSServer speaks enough obs-websocket v5 to serve input listing,
// mute queries, mute changes and mute events.
type MockOBSServer struct {
	Server   *httptest.Server
	Melody   *melody.Melody
	sessions map[*melody.Session]struct{}
	password string
	inputs   []*mockInput
	requests   []obsws.Request
	identified int
	mu         syncutil.Mutex
}

// NewMockOBSServer starts a fake server. A non-empty password turns on
// authentication.
func NewMockOBSServer(t *testing.T, password string) *MockOBSServer {
	t.Helper()

	m := melody.New()
	s := &MockOBSServer{
		Melody:   m,
		sessions: make(map[*melody.Session]struct{}),
		password: password,
	}

	m.HandleConnect(s.handleConnect)
	m.HandleDisconnect(func(session *melody.Session) {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.sessions, session)
	})
	m.HandleMessage(s.handleMessage)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_ = m.HandleRequest(w, r)
	})
	s.Server = httptest.NewServer(mux)

	t.Cleanup(s.Close)
	return s
}

// URL returns the ws:// address of the server.
func (s *MockOBSServer) URL() string {
	return "ws" + strings.TrimPrefix(s.Server.URL, "http")
}

func (s *MockOBSServer) Close() {
	s.Server.Close()
	_ = s.Melody.Close()
}

// AddInput registers an input. Inputs without audio reject mute requests.
func (s *MockOBSServer) AddInput(name, kind string, audio, muted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputs = append(s.inputs, &mockInput{
		input: obsws.Input{
			InputName: name,
			InputUUID: "uuid-" + name,
			InputKind: kind,
		},
		audio: audio,
		muted: muted,
	})
}

// SetMuted changes an input's mute flag from the server side and emits
// InputMuteStateChanged.
func (s *MockOBSServer) SetMuted(name string, muted bool) {
	s.mu.Lock()
	in := s.find(name)
	if in != nil {
		in.muted = muted
	}
	s.mu.Unlock()

	if in != nil {
		s.emitMute(name, muted)
	}
}

// Muted reports an input's mute flag.
func (s *MockOBSServer) Muted(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if in := s.find(name); in != nil {
		return in.muted
	}
	return false
}

// Requests returns every request received so far.
func (s *MockOBSServer) Requests() []obsws.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

// Sessions returns the number of identified clients.
func (s *MockOBSServer) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for session := range s.sessions {
		if _, ok := session.Get(keyIdentified); ok {
			n++
		}
	}
	return n
}

// Identified counts the sessions that completed Identify since the server
// started, including closed ones.
func (s *MockOBSServer) Identified() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identified
}

// DropSessions closes every client connection while leaving the server up.
func (s *MockOBSServer) DropSessions() {
	s.mu.Lock()
	sessions := make([]*melody.Session, 0, len(s.sessions))
	for session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.mu.Unlock()

	for _, session := range sessions {
		_ = session.Close()
	}
}

func (s *MockOBSServer) find(name string) *mockInput {
	for _, in := range s.inputs {
		if in.input.InputName == name {
			return in
		}
	}
	return nil
}

func (s *MockOBSServer) handleConnect(session *melody.Session) {
	s.mu.Lock()
	s.sessions[session] = struct{}{}
	s.mu.Unlock()

	hello := obsws.Hello{
		OBSWebSocketVersion: "5.5.0",
		RPCVersion:          obsws.RPCVersion,
	}
	if s.password != "" {
		hello.Authentication = &obsws.Authentication{
			Challenge: testChallenge,
			Salt:      testSalt,
		}
	}
	s.send(session, obsws.OpHello, hello)
}

func (s *MockOBSServer) handleMessage(session *melody.Session, data []byte) {
	var msg obsws.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}

	switch msg.Op {
	case obsws.OpIdentify:
		var id obsws.Identify
		if err := json.Unmarshal(msg.D, &id); err != nil {
			return
		}
		if s.password != "" && id.Authentication != obsws.AuthString(s.password, testSalt, testChallenge) {
			_ = session.CloseWithMsg(melody.FormatCloseMessage(closeAuthenticationFailed, "Authentication failed."))
			return
		}
		session.Set(keyIdentified, true)
		s.mu.Lock()
		s.identified++
		s.mu.Unlock()
		s.send(session, obsws.OpIdentified, obsws.Identified{NegotiatedRPCVersion: obsws.RPCVersion})
	case obsws.OpRequest:
		if _, ok := session.Get(keyIdentified); !ok {
			return
		}
		var raw struct {
			RequestData json.RawMessage `json:"requestData"`
			RequestType string          `json:"requestType"`
			RequestID   string          `json:"requestId"`
		}
		if err := json.Unmarshal(msg.D, &raw); err != nil {
			return
		}
		s.handleRequest(session, raw.RequestType, raw.RequestID, raw.RequestData)
	}
}

func (s *MockOBSServer) handleRequest(session *melody.Session, requestType, id string, data json.RawMessage) {
	s.mu.Lock()
	s.requests = append(s.requests, obsws.Request{RequestType: requestType, RequestID: id, RequestData: data})
	s.mu.Unlock()

	resp := obsws.RequestResponse{
		RequestType:   requestType,
		RequestID:     id,
		RequestStatus: obsws.RequestStatus{Result: true, Code: obsws.StatusSuccess},
	}

	fail := func(code int, comment string) {
		resp.RequestStatus = obsws.RequestStatus{Code: code, Comment: comment}
	}

	var emit *obsws.InputMute
	switch requestType {
	case obsws.RequestGetInputList:
		s.mu.Lock()
		list := obsws.InputList{Inputs: make([]obsws.Input, 0, len(s.inputs))}
		for _, in := range s.inputs {
			list.Inputs = append(list.Inputs, in.input)
		}
		s.mu.Unlock()
		resp.ResponseData, _ = json.Marshal(list)
	case obsws.RequestGetInputMute, obsws.RequestSetInputMute:
		var req obsws.InputMute
		_ = json.Unmarshal(data, &req)

		s.mu.Lock()
		in := s.find(req.InputName)
		switch {
		case in == nil:
			fail(obsws.StatusResourceNotFound, "No source was found by the name of `"+req.InputName+"`.")
		case !in.audio:
			fail(obsws.StatusInvalidResourceState, "The specified input does not support audio.")
		case requestType == obsws.RequestGetInputMute:
			resp.ResponseData, _ = json.Marshal(obsws.InputMute{InputMuted: in.muted})
		default:
			if in.muted != req.InputMuted {
				in.muted = req.InputMuted
				emit = &obsws.InputMute{InputName: req.InputName, InputMuted: req.InputMuted}
			}
		}
		s.mu.Unlock()
	default:
		fail(204, "Your request type is not valid.")
	}

	s.send(session, obsws.OpRequestResponse, resp)
	if emit != nil {
		s.emitMute(emit.InputName, emit.InputMuted)
	}
}

func (s *MockOBSServer) emitMute(name string, muted bool) {
	eventData, _ := json.Marshal(obsws.InputMute{
		InputName:  name,
		InputUUID:  "uuid-" + name,
		InputMuted: muted,
	})
	msg, err := obsws.Encode(obsws.OpEvent, obsws.Event{
		EventType: obsws.EventInputMuteStateChanged,
		EventData: eventData,
	})
	if err != nil {
		return
	}
	_ = s.Melody.BroadcastFilter(msg, func(session *melody.Session) bool {
		_, ok := session.Get(keyIdentified)
		return ok
	})
}

func (*MockOBSServer) send(session *melody.Session, op int, payload any) {
	msg, err := obsws.Encode(op, payload)
	if err != nil {
		return
	}
	_ = session.Write(msg)
}
