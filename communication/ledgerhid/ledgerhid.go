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

// Package ledgerhid implements the framing protocol used to exchange APDUs over USB HID.
package ledgerhid

import (
	"bytes"
	"encoding/binary"
	"io"
	"sync"

	"github.com/liquidhww/liquid-hww-api-go/util/errp"
)

const (
	packetSize = 64
	// Channel is the fixed HID channel of the application.
	Channel uint16 = 0x0101
	tagAPDU byte   = 0x05

	// channel (2) | tag (1) | sequence (2)
	packetHeaderSize = 5
	// the first packet also carries the total length (2)
	firstPacketDataSize = packetSize - packetHeaderSize - 2
	packetDataSize      = packetSize - packetHeaderSize

	maxMessageSize = 0xffff
)

func newBuffer() *bytes.Buffer {
	return bytes.NewBuffer([]byte{})
}

// Communication frames messages into 64 byte HID reports.
type Communication struct {
	device io.ReadWriteCloser
	mutex  sync.Mutex
}

// NewCommunication creates a new Communication.
func NewCommunication(device io.ReadWriteCloser) *Communication {
	return &Communication{
		device: device,
		mutex:  sync.Mutex{},
	}
}

// encodeFrames splits msg into zero padded reports.
func encodeFrames(msg []byte) ([]byte, error) {
	if len(msg) > maxMessageSize {
		return nil, errp.Newf("message too long: %d bytes", len(msg))
	}
	buf := newBuffer()
	remaining := msg
	for seq := uint16(0); seq == 0 || len(remaining) > 0; seq++ {
		packet := newBuffer()
		_ = binary.Write(packet, binary.BigEndian, Channel)
		packet.WriteByte(tagAPDU)
		_ = binary.Write(packet, binary.BigEndian, seq)
		size := packetDataSize
		if seq == 0 {
			_ = binary.Write(packet, binary.BigEndian, uint16(len(msg)))
			size = firstPacketDataSize
		}
		if size > len(remaining) {
			size = len(remaining)
		}
		packet.Write(remaining[:size])
		remaining = remaining[size:]
		packet.Write(make([]byte, packetSize-packet.Len()))
		buf.Write(packet.Bytes())
	}
	return buf.Bytes(), nil
}

// SendFrame sends one message.
func (communication *Communication) SendFrame(msg []byte) error {
	communication.mutex.Lock()
	defer communication.mutex.Unlock()
	return communication.sendFrame(msg)
}

func (communication *Communication) sendFrame(msg []byte) error {
	frames, err := encodeFrames(msg)
	if err != nil {
		return err
	}
	for len(frames) > 0 {
		written, err := communication.device.Write(frames)
		if err != nil {
			return errp.WithMessage(errp.WithStack(err), "failed to send message")
		}
		frames = frames[written:]
	}
	return nil
}

// ReadFrame reads one message.
func (communication *Communication) ReadFrame() ([]byte, error) {
	communication.mutex.Lock()
	defer communication.mutex.Unlock()
	return communication.readFrame()
}

func (communication *Communication) readFrame() ([]byte, error) {
	packet := make([]byte, packetSize)
	var result *bytes.Buffer
	length := 0
	for seq := uint16(0); result == nil || result.Len() < length; seq++ {
		if _, err := io.ReadFull(communication.device, packet); err != nil {
			return nil, errp.WithStack(err)
		}
		if channel := binary.BigEndian.Uint16(packet[0:2]); channel != Channel {
			return nil, &FrameError{Field: "channel", Expected: uint32(Channel), Got: uint32(channel)}
		}
		if packet[2] != tagAPDU {
			return nil, &FrameError{Field: "tag", Expected: uint32(tagAPDU), Got: uint32(packet[2])}
		}
		if got := binary.BigEndian.Uint16(packet[3:5]); got != seq {
			return nil, &FrameError{Field: "sequence", Expected: uint32(seq), Got: uint32(got)}
		}
		data := packet[packetHeaderSize:]
		if seq == 0 {
			length = int(binary.BigEndian.Uint16(data[:2]))
			data = data[2:]
			result = newBuffer()
		}
		if missing := length - result.Len(); missing < len(data) {
			data = data[:missing]
		}
		result.Write(data)
	}
	return result.Bytes(), nil
}

// Close closes the underlying device. A failure to close is not reported, the handle is
// unusable afterwards either way.
func (communication *Communication) Close() {
	_ = communication.device.Close()
}

// Query sends a request and waits for the response. Blocking.
func (communication *Communication) Query(request []byte) ([]byte, error) {
	communication.mutex.Lock()
	defer communication.mutex.Unlock()
	if err := communication.sendFrame(request); err != nil {
		return nil, err
	}
	return communication.readFrame()
}
