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
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeIdentify(t *testing.T) {
	t.Parallel()

	b, err := Encode(OpIdentify, Identify{
		RPCVersion:         RPCVersion,
		EventSubscriptions: EventSubInputs,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"op":1,"d":{"rpcVersion":1,"eventSubscriptions":8}}`, string(b))
}

func TestDecodeRequestResponse(t *testing.T) {
	t.Parallel()

	raw := `{"op":7,"d":{"requestType":"GetInputMute","requestId":"abc",` +
		`"requestStatus":{"result":true,"code":100},"responseData":{"inputMuted":true}}}`

	var msg Message
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))
	assert.Equal(t, OpRequestResponse, msg.Op)

	var resp RequestResponse
	require.NoError(t, json.Unmarshal(msg.D, &resp))
	assert.Equal(t, "abc", resp.RequestID)
	assert.True(t, resp.RequestStatus.Result)

	var mute InputMute
	require.NoError(t, json.Unmarshal(resp.ResponseData, &mute))
	assert.True(t, mute.InputMuted)
}

func TestRequestError(t *testing.T) {
	t.Parallel()

	err := &RequestError{RequestType: RequestGetInputMute, Code: StatusResourceNotFound}
	assert.Equal(t, "GetInputMute failed with code 600", err.Error())

	err.Comment = "No source was found"
	assert.Equal(t, "GetInputMute failed with code 600: No source was found", err.Error())
}
