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

// Package ux drives the on-device confirmation screens while a request is pending.
package ux

import (
	"context"

	"github.com/liquidhww/liquid-hww-api-go/util/errp"
	"golang.org/x/sync/errgroup"
)

// Button is a physical button of the device.
type Button string

// Buttons.
const (
	ButtonLeft  Button = "left"
	ButtonRight Button = "right"
	ButtonBoth  Button = "both"
)

// Event is one line of text rendered on the device screen.
type Event struct {
	Text string
}

// Automation gives access to the screen events and buttons of a device.
type Automation interface {
	// NextEvent blocks until the next event arrives.
	NextEvent(ctx context.Context) (Event, error)
	// WaitForTextEvent discards events until one contains text.
	WaitForTextEvent(ctx context.Context, text string) (Event, error)
	PressAndRelease(ctx context.Context, button Button) error
	// PendingEvents returns the events received but not consumed yet, without consuming them.
	PendingEvents() []Event
}

// ErrDesync is returned by Confirm when the flow could not be completed against the screens
// the device shows.
var ErrDesync = errp.New("ux: confirmation flow out of sync with the device")

func desync(cause error) error {
	return errp.WithMessage(ErrDesync, cause.Error())
}

// Confirm runs call, which blocks until the user confirms on the device, while flow navigates
// the screens. The driver is always joined before Confirm returns. Errors of call (e.g.
// common.ErrDeny) are returned as is. If the driver fails while call is still pending, the
// call is abandoned and ErrDesync is returned. The caller is responsible for closing the device
// in that case.
func Confirm(ctx context.Context, automation Automation, flow Flow, call func() error) error {
	driverCtx, cancelDriver := context.WithCancel(ctx)
	defer cancelDriver()
	group, groupCtx := errgroup.WithContext(driverCtx)
	group.Go(func() error {
		return flow(groupCtx, automation)
	})
	driverDone := make(chan error, 1)
	go func() {
		driverDone <- group.Wait()
	}()

	callDone := make(chan error, 1)
	go func() {
		callDone <- call()
	}()

	select {
	case err := <-callDone:
		if err != nil {
			// The device answered without completing the flow, the driver is not needed anymore.
			cancelDriver()
			<-driverDone
			return err
		}
		if driverErr := <-driverDone; driverErr != nil {
			return desync(driverErr)
		}
		return nil
	case driverErr := <-driverDone:
		if driverErr != nil {
			return desync(driverErr)
		}
		select {
		case err := <-callDone:
			return err
		case <-ctx.Done():
			return desync(ctx.Err())
		}
	}
}
