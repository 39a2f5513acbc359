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

// Package speculos talks to the Speculos emulator: raw APDUs over its TCP port and screen
// events and buttons over its REST API.
package speculos

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/liquidhww/liquid-hww-api-go/util/errp"
)

const (
	// DefaultAPDUAddress is the default APDU port of Speculos.
	DefaultAPDUAddress = "127.0.0.1:9999"

	statusSize = 2
	// maxResponseSize bounds the length announced by the emulator.
	maxResponseSize = 1 << 16
)

// Logger is the logging interface of the package.
type Logger interface {
	Error(msg string, err error)
	Info(msg string)
	Debug(msg string)
}

// Transport exchanges APDUs with Speculos. Each message is prefixed with its length as a 4 byte
// big endian integer. The length of a response does not count the 2 status bytes which follow
// the data.
type Transport struct {
	conn  net.Conn
	mutex sync.Mutex
}

// NewTransport wraps an established connection.
func NewTransport(conn net.Conn) *Transport {
	return &Transport{conn: conn}
}

// Dial connects to the APDU port, retrying with exponential backoff while the emulator is
// starting up, until ctx is done.
func Dial(ctx context.Context, address string, logger Logger) (*Transport, error) {
	var dialer net.Dialer
	var conn net.Conn
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	policy.MaxInterval = 2 * time.Second
	policy.MaxElapsedTime = 0
	err := backoff.RetryNotify(
		func() error {
			var err error
			conn, err = dialer.DialContext(ctx, "tcp", address)
			if err != nil && ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		},
		backoff.WithContext(policy, ctx),
		func(err error, wait time.Duration) {
			logger.Debug("speculos not reachable, retrying in " + wait.String() + ": " + err.Error())
		},
	)
	if err != nil {
		return nil, errp.WithMessage(errp.WithStack(err), "could not connect to speculos at "+address)
	}
	logger.Info("connected to speculos at " + address)
	return NewTransport(conn), nil
}

// Query sends one APDU and returns the raw response including the status word.
func (transport *Transport) Query(msg []byte) ([]byte, error) {
	transport.mutex.Lock()
	defer transport.mutex.Unlock()

	frame := make([]byte, 4+len(msg))
	binary.BigEndian.PutUint32(frame, uint32(len(msg)))
	copy(frame[4:], msg)
	if _, err := transport.conn.Write(frame); err != nil {
		return nil, errp.WithStack(err)
	}

	var header [4]byte
	if _, err := io.ReadFull(transport.conn, header[:]); err != nil {
		return nil, errp.WithStack(err)
	}
	size := binary.BigEndian.Uint32(header[:])
	if size > maxResponseSize {
		return nil, errp.Newf("speculos announced a response of %d bytes", size)
	}
	response := make([]byte, int(size)+statusSize)
	if _, err := io.ReadFull(transport.conn, response); err != nil {
		return nil, errp.WithStack(err)
	}
	return response, nil
}

// Close closes the connection.
func (transport *Transport) Close() {
	_ = transport.conn.Close()
}
