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

// Package apdu implements the command/response encoding of the application, including the
// chunking of payloads which do not fit into a single command.
package apdu

import (
	"bytes"
	"encoding/binary"

	"github.com/liquidhww/liquid-hww-api-go/api/common"
	"github.com/liquidhww/liquid-hww-api-go/util/errp"
)

const (
	// MaxChunkSize is the maximum payload of a single command.
	MaxChunkSize = 255
	// MaxPayloadSize is the maximum size of a reassembled payload.
	MaxPayloadSize = 4096

	headerSize = 5

	// P1First marks the first chunk of a payload.
	P1First = 0x00
	// P1Continuation marks every following chunk.
	P1Continuation = 0x80
	// P2More is set if more chunks follow.
	P2More = 0x01
	// P2Last is set on the final (or only) chunk.
	P2Last = 0x00
)

// Command is a command APDU.
type Command struct {
	CLA  byte
	INS  byte
	P1   byte
	P2   byte
	Data []byte
}

// Encode serializes the command as CLA | INS | P1 | P2 | Lc | data.
func (command *Command) Encode() ([]byte, error) {
	if len(command.Data) > MaxChunkSize {
		return nil, errp.Newf("apdu data too long: %d > %d", len(command.Data), MaxChunkSize)
	}
	buf := bytes.NewBuffer(make([]byte, 0, headerSize+len(command.Data)))
	buf.Write([]byte{command.CLA, command.INS, command.P1, command.P2, byte(len(command.Data))})
	buf.Write(command.Data)
	return buf.Bytes(), nil
}

// DecodeCommand parses a raw command. A length byte which does not match the payload yields
// common.StatusWrongDataLength.
func DecodeCommand(raw []byte) (*Command, error) {
	if len(raw) < headerSize {
		return nil, common.NewError(common.StatusWrongDataLength, "apdu shorter than its header")
	}
	if int(raw[4]) != len(raw)-headerSize {
		return nil, common.NewError(common.StatusWrongDataLength,
			"apdu length byte %d, but %d bytes of data", raw[4], len(raw)-headerSize)
	}
	return &Command{
		CLA:  raw[0],
		INS:  raw[1],
		P1:   raw[2],
		P2:   raw[3],
		Data: append([]byte{}, raw[headerSize:]...),
	}, nil
}

// SplitChunks splits a payload into as many commands as needed.
func SplitChunks(cla byte, ins byte, data []byte) []*Command {
	commands := []*Command{}
	for offset := 0; ; offset += MaxChunkSize {
		end := offset + MaxChunkSize
		p2 := byte(P2More)
		if end >= len(data) {
			end = len(data)
			p2 = P2Last
		}
		p1 := byte(P1Continuation)
		if offset == 0 {
			p1 = P1First
		}
		commands = append(commands, &Command{CLA: cla, INS: ins, P1: p1, P2: p2, Data: data[offset:end]})
		if p2 == P2Last {
			return commands
		}
	}
}

// EncodeResponse appends the status word to the response data. Error statuses never carry
// data.
func EncodeResponse(data []byte, status common.Status) []byte {
	if status != common.StatusOK {
		data = nil
	}
	response := make([]byte, len(data)+2)
	copy(response, data)
	binary.BigEndian.PutUint16(response[len(data):], uint16(status))
	return response
}

// ParseResponse splits a raw response into data and status word.
func ParseResponse(raw []byte) ([]byte, common.Status, error) {
	if len(raw) < 2 {
		return nil, 0, errp.Newf("response too short: %d bytes", len(raw))
	}
	split := len(raw) - 2
	return raw[:split], common.Status(binary.BigEndian.Uint16(raw[split:])), nil
}

// Querier sends one raw command and returns the raw response.
type Querier interface {
	Query([]byte) ([]byte, error)
}

// Exchange sends the payload in as many chunks as needed and returns the data of the final
// response. A status other than common.StatusOK is returned as *common.Error.
func Exchange(querier Querier, cla byte, ins byte, data []byte) ([]byte, error) {
	commands := SplitChunks(cla, ins, data)
	for i, command := range commands {
		raw, err := command.Encode()
		if err != nil {
			return nil, err
		}
		rawResponse, err := querier.Query(raw)
		if err != nil {
			return nil, err
		}
		responseData, status, err := ParseResponse(rawResponse)
		if err != nil {
			return nil, err
		}
		if status != common.StatusOK {
			return nil, &common.Error{Status: status, Data: responseData}
		}
		if i == len(commands)-1 {
			return responseData, nil
		}
		if len(responseData) != 0 {
			return nil, errp.Newf("unexpected data in response to chunk %d", i)
		}
	}
	panic("unreachable")
}

// Assembler reassembles chunked payloads on the device side.
type Assembler struct {
	pending bool
	ins     byte
	buf     bytes.Buffer
}

// Add adds one chunk. It returns the full payload once the final chunk arrived, nil otherwise.
func (assembler *Assembler) Add(command *Command) ([]byte, error) {
	switch command.P1 {
	case P1First:
		assembler.buf.Reset()
		assembler.pending = true
		assembler.ins = command.INS
	case P1Continuation:
		if !assembler.pending || assembler.ins != command.INS {
			assembler.Reset()
			return nil, common.NewError(common.StatusWrongP1P2, "continuation without a first chunk")
		}
	default:
		assembler.Reset()
		return nil, common.NewError(common.StatusWrongP1P2, "invalid P1 0x%02x", command.P1)
	}
	if command.P2 != P2More && command.P2 != P2Last {
		assembler.Reset()
		return nil, common.NewError(common.StatusWrongP1P2, "invalid P2 0x%02x", command.P2)
	}
	if assembler.buf.Len()+len(command.Data) > MaxPayloadSize {
		assembler.Reset()
		return nil, common.NewError(common.StatusWrongDataLength, "payload exceeds %d bytes", MaxPayloadSize)
	}
	assembler.buf.Write(command.Data)
	if command.P2 == P2More {
		return nil, nil
	}
	payload := append([]byte{}, assembler.buf.Bytes()...)
	assembler.Reset()
	return payload, nil
}

// Reset drops a partially received payload.
func (assembler *Assembler) Reset() {
	assembler.pending = false
	assembler.buf.Reset()
}
