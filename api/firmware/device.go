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

// Package firmware contains the API to the Liquid application running on the device.
package firmware

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/blang/semver/v4"
	"github.com/liquidhww/liquid-hww-api-go/api/common"
	"github.com/liquidhww/liquid-hww-api-go/communication/apdu"
	"github.com/liquidhww/liquid-hww-api-go/util/errp"
)

// Communication contains functions needed to communicate with the device.
type Communication interface {
	Query([]byte) ([]byte, error)
	Close()
}

// Logger contains the logging functions needed by the device.
type Logger interface {
	Error(msg string, err error)
	Info(msg string)
	Debug(msg string)
}

// Device provides the API to communicate with the application.
type Device struct {
	chain         common.Chain
	communication Communication
	logger        Logger

	// mutex makes sure only one request is in flight.
	mutex sync.Mutex

	appName string
	version *semver.Version
}

// NewDevice creates a new instance of Device.
func NewDevice(
	chain common.Chain,
	communication Communication,
	logger Logger,
) *Device {
	return &Device{
		chain:         chain,
		communication: communication,
		logger:        logger,
	}
}

// Chain returns the chain the device was created for.
func (device *Device) Chain() common.Chain {
	return device.chain
}

// Init queries the running application and checks that it matches the chain.
func (device *Device) Init() error {
	name, version, err := device.AppAndVersion()
	if err != nil {
		return err
	}
	if name != device.chain.AppName() {
		return errp.Newf("expected app %q, but %q is running", device.chain.AppName(), name)
	}
	device.appName = name
	device.version = version
	device.logger.Info(fmt.Sprintf("connected to %s %s", name, version))
	return nil
}

// Version returns the version of the application, as queried by Init(). Nil before Init().
func (device *Device) Version() *semver.Version {
	return device.version
}

// Close closes the communication.
func (device *Device) Close() {
	device.communication.Close()
}

func (device *Device) query(cla byte, ins byte, payload []byte) ([]byte, error) {
	device.mutex.Lock()
	defer device.mutex.Unlock()
	device.logger.Debug(fmt.Sprintf("sending INS 0x%02x, %d bytes", ins, len(payload)))
	response, err := apdu.Exchange(device.communication, cla, ins, payload)
	if err != nil {
		if status, ok := common.StatusOf(err); ok {
			device.logger.Debug(fmt.Sprintf("INS 0x%02x failed: %s", ins, status))
		}
		return nil, err
	}
	return response, nil
}

func readLengthPrefixed(reader *bytes.Reader) (string, error) {
	length, err := reader.ReadByte()
	if err != nil {
		return "", errp.WithStack(err)
	}
	value := make([]byte, length)
	if _, err := io.ReadFull(reader, value); err != nil {
		return "", errp.WithStack(err)
	}
	return string(value), nil
}

// AppAndVersion returns the name and version of the running application.
func (device *Device) AppAndVersion() (string, *semver.Version, error) {
	response, err := device.query(common.CLADashboard, common.INSGetAppAndVersion, nil)
	if err != nil {
		return "", nil, err
	}
	reader := bytes.NewReader(response)
	format, err := reader.ReadByte()
	if err != nil || format != 0x01 {
		return "", nil, errp.New("unexpected app and version format")
	}
	name, err := readLengthPrefixed(reader)
	if err != nil {
		return "", nil, errp.WithMessage(err, "app name")
	}
	versionString, err := readLengthPrefixed(reader)
	if err != nil {
		return "", nil, errp.WithMessage(err, "app version")
	}
	version, err := semver.Parse(versionString)
	if err != nil {
		return "", nil, errp.WithMessage(errp.WithStack(err), "app version")
	}
	return name, &version, nil
}
