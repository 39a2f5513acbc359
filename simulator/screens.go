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

package simulator

import (
	"context"

	"github.com/liquidhww/liquid-hww-api-go/api/common"
	"github.com/liquidhww/liquid-hww-api-go/util/errp"
	"github.com/liquidhww/liquid-hww-api-go/ux"
)

type screenKind int

const (
	screenInfo screenKind = iota
	screenAccept
	screenReject
	// screenWarning is the "Reject if you're not sure" screen, confirming it rejects.
	screenWarning
)

type screen struct {
	kind  screenKind
	lines []string
}

func info(lines ...string) screen {
	return screen{kind: screenInfo, lines: lines}
}

var (
	screenIdle          = info("Application", "is ready")
	screenAcceptRequest = screen{kind: screenAccept, lines: []string{ux.TextAccept}}
	screenRejectRequest = screen{kind: screenReject, lines: []string{ux.TextReject}}
	screenNotSure       = screen{kind: screenWarning, lines: []string{"Reject if you're", "not sure"}}
)

// confirm shows the screens followed by Accept/Reject and blocks until the user decides.
// Returns nil if approved and common.ErrDeny-compatible errors if rejected.
func (simulator *Simulator) confirm(screens ...screen) error {
	screens = append(screens, screenAcceptRequest, screenRejectRequest)
	decision := make(chan bool, 1)

	simulator.mutex.Lock()
	simulator.screens = screens
	simulator.position = 0
	simulator.decision = decision
	simulator.events.Push(screens[0].lines...)
	simulator.mutex.Unlock()

	select {
	case approved := <-decision:
		if !approved {
			return common.NewError(common.StatusDeny, "rejected on the device")
		}
		return nil
	case <-simulator.closed:
		return ErrClosed
	}
}

// showScreen must be called with the mutex held.
func (simulator *Simulator) showScreen(position int) {
	if position < 0 || position >= len(simulator.screens) || position == simulator.position {
		return
	}
	simulator.position = position
	simulator.events.Push(simulator.screens[position].lines...)
}

// finish delivers the decision and returns to the idle screen. Must be called with the mutex
// held.
func (simulator *Simulator) finish(approved bool) {
	simulator.screens = nil
	simulator.position = 0
	simulator.events.Push(screenIdle.lines...)
	simulator.decision <- approved
	simulator.decision = nil
}

// PressAndRelease implements ux.Automation. Buttons pressed while no confirmation is pending
// are ignored.
func (simulator *Simulator) PressAndRelease(ctx context.Context, button ux.Button) error {
	select {
	case <-simulator.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	simulator.mutex.Lock()
	defer simulator.mutex.Unlock()
	if simulator.screens == nil {
		return nil
	}
	switch button {
	case ux.ButtonRight:
		simulator.showScreen(simulator.position + 1)
	case ux.ButtonLeft:
		simulator.showScreen(simulator.position - 1)
	case ux.ButtonBoth:
		switch simulator.screens[simulator.position].kind {
		case screenAccept:
			simulator.finish(true)
		case screenReject, screenWarning:
			simulator.finish(false)
		}
	default:
		return errp.Newf("unknown button %q", button)
	}
	return nil
}

// NextEvent implements ux.Automation.
func (simulator *Simulator) NextEvent(ctx context.Context) (ux.Event, error) {
	return simulator.events.Next(ctx)
}

// WaitForTextEvent implements ux.Automation.
func (simulator *Simulator) WaitForTextEvent(ctx context.Context, text string) (ux.Event, error) {
	return simulator.events.WaitForText(ctx, text)
}

// PendingEvents implements ux.Automation.
func (simulator *Simulator) PendingEvents() []ux.Event {
	return simulator.events.Pending()
}
