// Copyright 2024 The liquid-hww-api-go Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package apdu

import (
	"bytes"
	"errors"
	"testing"
	"testing/quick"

	"github.com/liquidhww/liquid-hww-api-go/api/common"
	"github.com/stretchr/testify/require"
)

type querierFunc func([]byte) ([]byte, error)

func (f querierFunc) Query(request []byte) ([]byte, error) { return f(request) }

func TestEncodeDecode(t *testing.T) {
	command := &Command{CLA: 0xe1, INS: 0x00, P1: 0x00, P2: 0x00, Data: []byte{0x01, 0x02}}
	raw, err := command.Encode()
	require.NoError(t, err)
	require.Equal(t, []byte{0xe1, 0x00, 0x00, 0x00, 0x02, 0x01, 0x02}, raw)

	decoded, err := DecodeCommand(raw)
	require.NoError(t, err)
	require.Equal(t, command, decoded)

	_, err = (&Command{Data: make([]byte, 256)}).Encode()
	require.Error(t, err)

	for _, invalid := range [][]byte{{}, {0xe1, 0x00, 0x00, 0x00}, {0xe1, 0x00, 0x00, 0x00, 0x02, 0x01}} {
		_, err := DecodeCommand(invalid)
		require.True(t, errors.Is(err, &common.Error{Status: common.StatusWrongDataLength}))
	}
}

func TestSplitChunks(t *testing.T) {
	tests := []struct {
		size      int
		numChunks int
	}{
		{size: 0, numChunks: 1},
		{size: 1, numChunks: 1},
		{size: 255, numChunks: 1},
		{size: 256, numChunks: 2},
		{size: 510, numChunks: 2},
		{size: 600, numChunks: 3},
	}
	for _, test := range tests {
		data := bytes.Repeat([]byte{0xab}, test.size)
		chunks := SplitChunks(0xe1, 0x02, data)
		require.Len(t, chunks, test.numChunks)
		for i, chunk := range chunks {
			require.Equal(t, byte(0xe1), chunk.CLA)
			require.Equal(t, byte(0x02), chunk.INS)
			if i == 0 {
				require.Equal(t, byte(P1First), chunk.P1)
			} else {
				require.Equal(t, byte(P1Continuation), chunk.P1)
			}
			if i == len(chunks)-1 {
				require.Equal(t, byte(P2Last), chunk.P2)
			} else {
				require.Equal(t, byte(P2More), chunk.P2)
				require.Len(t, chunk.Data, MaxChunkSize)
			}
		}
	}
}

func TestResponse(t *testing.T) {
	raw := EncodeResponse([]byte("tpub"), common.StatusOK)
	require.Equal(t, []byte{'t', 'p', 'u', 'b', 0x90, 0x00}, raw)
	data, status, err := ParseResponse(raw)
	require.NoError(t, err)
	require.Equal(t, []byte("tpub"), data)
	require.Equal(t, common.StatusOK, status)

	require.Equal(t, []byte{0x69, 0x85}, EncodeResponse([]byte("ignored"), common.StatusDeny))

	_, _, err = ParseResponse([]byte{0x90})
	require.Error(t, err)
}

// echoDevice reassembles chunks and echoes the payload reversed.
func echoDevice(t *testing.T) (Querier, *int) {
	t.Helper()
	assembler := &Assembler{}
	calls := 0
	return querierFunc(func(request []byte) ([]byte, error) {
		calls++
		command, err := DecodeCommand(request)
		if err != nil {
			return nil, err
		}
		payload, err := assembler.Add(command)
		if err != nil {
			status, _ := common.StatusOf(err)
			return EncodeResponse(nil, status), nil
		}
		if payload == nil {
			return EncodeResponse(nil, common.StatusOK), nil
		}
		reversed := make([]byte, len(payload))
		for i := range payload {
			reversed[len(payload)-1-i] = payload[i]
		}
		return EncodeResponse(reversed, common.StatusOK), nil
	}), &calls
}

func TestExchange(t *testing.T) {
	device, calls := echoDevice(t)
	payload := make([]byte, 700)
	for i := range payload {
		payload[i] = byte(i)
	}
	response, err := Exchange(device, 0xe1, 0x02, payload)
	require.NoError(t, err)
	require.Len(t, response, len(payload))
	require.Equal(t, payload[0], response[len(response)-1])
	require.Equal(t, 3, *calls)

	empty, err := Exchange(device, 0xe1, 0x05, nil)
	require.NoError(t, err)
	require.Empty(t, empty)

	t.Run("device error", func(t *testing.T) {
		deny := querierFunc(func([]byte) ([]byte, error) {
			return []byte{0x69, 0x85}, nil
		})
		_, err := Exchange(deny, 0xe1, 0x00, []byte{0})
		require.True(t, errors.Is(err, common.ErrDeny))
		var deviceErr *common.Error
		require.True(t, errors.As(err, &deviceErr))
		require.Empty(t, deviceErr.Data)
	})

	t.Run("transport error", func(t *testing.T) {
		transportErr := errors.New("unplugged")
		broken := querierFunc(func([]byte) ([]byte, error) { return nil, transportErr })
		_, err := Exchange(broken, 0xe1, 0x00, nil)
		require.Equal(t, transportErr, err)
	})

	t.Run("data on intermediate chunk", func(t *testing.T) {
		chatty := querierFunc(func([]byte) ([]byte, error) { return []byte{0x01, 0x90, 0x00}, nil })
		_, err := Exchange(chatty, 0xe1, 0x02, make([]byte, 300))
		require.Error(t, err)
	})
}

func TestAssembler(t *testing.T) {
	assembler := &Assembler{}
	_, err := assembler.Add(&Command{INS: 0x02, P1: P1Continuation, P2: P2Last})
	require.True(t, errors.Is(err, &common.Error{Status: common.StatusWrongP1P2}))

	payload, err := assembler.Add(&Command{INS: 0x02, P1: P1First, P2: P2More, Data: []byte{1}})
	require.NoError(t, err)
	require.Nil(t, payload)
	_, err = assembler.Add(&Command{INS: 0x03, P1: P1Continuation, P2: P2Last, Data: []byte{2}})
	require.True(t, errors.Is(err, &common.Error{Status: common.StatusWrongP1P2}))

	_, err = assembler.Add(&Command{INS: 0x02, P1: 0x01, P2: P2Last})
	require.True(t, errors.Is(err, &common.Error{Status: common.StatusWrongP1P2}))
	_, err = assembler.Add(&Command{INS: 0x02, P1: P1First, P2: 0x02})
	require.True(t, errors.Is(err, &common.Error{Status: common.StatusWrongP1P2}))

	for i := 0; ; i++ {
		payload, err = assembler.Add(&Command{
			INS: 0x02, P1: map[bool]byte{true: P1First, false: P1Continuation}[i == 0], P2: P2More,
			Data: make([]byte, MaxChunkSize),
		})
		if err != nil {
			break
		}
		require.Nil(t, payload)
	}
	require.True(t, errors.Is(err, &common.Error{Status: common.StatusWrongDataLength}))
}

func TestChunkRoundTrip(t *testing.T) {
	roundTrip := func(data []byte) bool {
		if len(data) > MaxPayloadSize {
			data = data[:MaxPayloadSize]
		}
		assembler := &Assembler{}
		var result []byte
		for _, chunk := range SplitChunks(0xe1, 0x02, data) {
			raw, err := chunk.Encode()
			if err != nil {
				return false
			}
			decoded, err := DecodeCommand(raw)
			if err != nil {
				return false
			}
			result, err = assembler.Add(decoded)
			if err != nil {
				return false
			}
		}
		return result != nil && bytes.Equal(data, result)
	}
	require.NoError(t, quick.Check(roundTrip, nil))
}
