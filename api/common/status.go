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

package common

import (
	"errors"
	"fmt"
)

// Status is the two byte status word terminating every device response.
type Status uint16

// Status words returned by the application.
const (
	StatusOK                   Status = 0x9000
	StatusDeny                 Status = 0x6985
	StatusIncorrectData        Status = 0x6A80
	StatusNotSupported         Status = 0x6A82
	StatusWrongP1P2            Status = 0x6A86
	StatusWrongDataLength      Status = 0x6A87
	StatusInsNotSupported      Status = 0x6D00
	StatusClaNotSupported      Status = 0x6E00
	StatusBadState             Status = 0xB007
	StatusSignatureFail        Status = 0xB008
	StatusInterruptedExecution Status = 0xE000
)

var statusNames = map[Status]string{
	StatusOK:                   "ok",
	StatusDeny:                 "denied by the user",
	StatusIncorrectData:        "incorrect data",
	StatusNotSupported:         "not supported",
	StatusWrongP1P2:            "wrong P1/P2",
	StatusWrongDataLength:      "wrong data length",
	StatusInsNotSupported:      "instruction not supported",
	StatusClaNotSupported:      "class not supported",
	StatusBadState:             "bad state",
	StatusSignatureFail:        "signature failure",
	StatusInterruptedExecution: "interrupted execution",
}

func (status Status) String() string {
	if name, ok := statusNames[status]; ok {
		return name
	}
	return fmt.Sprintf("unknown status 0x%04x", uint16(status))
}

// Error is returned when the device (or the client on its behalf) terminates a request with a
// status word other than StatusOK. Data is the payload which accompanied the status word and is
// always empty for the statuses defined above.
type Error struct {
	Status  Status
	Data    []byte
	Message string
}

// Error implements error.
func (err *Error) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("device error 0x%04x: %s", uint16(err.Status), err.Status)
	}
	return fmt.Sprintf("device error 0x%04x: %s: %s", uint16(err.Status), err.Status, err.Message)
}

// Is makes errors.Is(err, ErrDeny) and friends match on the status word only.
func (err *Error) Is(target error) bool {
	targetErr, ok := target.(*Error)
	return ok && targetErr.Status == err.Status
}

// NewError creates an Error with an empty payload.
func NewError(status Status, format string, args ...interface{}) *Error {
	return &Error{
		Status:  status,
		Data:    []byte{},
		Message: fmt.Sprintf(format, args...),
	}
}

// Sentinels to be used with errors.Is().
var (
	ErrDeny          = &Error{Status: StatusDeny}
	ErrIncorrectData = &Error{Status: StatusIncorrectData}
	ErrNotSupported  = &Error{Status: StatusNotSupported}
	ErrBadState      = &Error{Status: StatusBadState}
)

// StatusOf returns the status word carried by err, if any.
func StatusOf(err error) (Status, bool) {
	var deviceErr *Error
	if errors.As(err, &deviceErr) {
		return deviceErr.Status, true
	}
	return 0, false
}
