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

package ux

import (
	"context"

	"github.com/liquidhww/liquid-hww-api-go/util/errp"
)

// Screen texts shared by all confirmation flows.
const (
	TextAccept = "Accept"
	TextReject = "Reject"
)

// Flow navigates the confirmation screens of one request.
type Flow func(ctx context.Context, automation Automation) error

// Step is one action of a Sequence.
type Step func(ctx context.Context, automation Automation) error

// WaitFor waits for an event containing text.
func WaitFor(text string) Step {
	return func(ctx context.Context, automation Automation) error {
		_, err := automation.WaitForTextEvent(ctx, text)
		return err
	}
}

// Press presses and releases a button.
func Press(button Button) Step {
	return func(ctx context.Context, automation Automation) error {
		return automation.PressAndRelease(ctx, button)
	}
}

// Sequence runs the steps in order.
func Sequence(steps ...Step) Flow {
	return func(ctx context.Context, automation Automation) error {
		for i, step := range steps {
			if err := step(ctx, automation); err != nil {
				return errp.WithMessagef(err, "step %d", i)
			}
		}
		return nil
	}
}

// skipPending consumes the events which are already queued.
func skipPending(ctx context.Context, automation Automation) ([]Event, error) {
	pending := automation.PendingEvents()
	for range pending {
		if _, err := automation.NextEvent(ctx); err != nil {
			return nil, err
		}
	}
	return pending, nil
}

// scrollToReject waits for the first screen and presses right until the final Reject screen
// is shown. Pressing right on the last screen does not emit anything, so every press is
// answered by at least one event unless the Reject event is already on its way.
func scrollToReject(ctx context.Context, automation Automation, first string) error {
	event, err := automation.WaitForTextEvent(ctx, first)
	if err != nil {
		return err
	}
	for event.Text != TextReject {
		pending, err := skipPending(ctx, automation)
		if err != nil {
			return err
		}
		if containsText(pending, TextReject) {
			return nil
		}
		if err := automation.PressAndRelease(ctx, ButtonRight); err != nil {
			return err
		}
		if event, err = automation.NextEvent(ctx); err != nil {
			return err
		}
	}
	return skipRest(ctx, automation)
}

func skipRest(ctx context.Context, automation Automation) error {
	_, err := skipPending(ctx, automation)
	return err
}

func containsText(events []Event, text string) bool {
	for _, event := range events {
		if event.Text == text {
			return true
		}
	}
	return false
}

// AcceptAtEnd waits for the first screen, scrolls through all screens and approves.
func AcceptAtEnd(first string) Flow {
	return func(ctx context.Context, automation Automation) error {
		if err := scrollToReject(ctx, automation, first); err != nil {
			return err
		}
		if err := automation.PressAndRelease(ctx, ButtonLeft); err != nil {
			return err
		}
		for {
			event, err := automation.NextEvent(ctx)
			if err != nil {
				return err
			}
			if event.Text == TextAccept {
				break
			}
		}
		return automation.PressAndRelease(ctx, ButtonBoth)
	}
}

// RejectAtEnd waits for the first screen, scrolls through all screens and rejects.
func RejectAtEnd(first string) Flow {
	return func(ctx context.Context, automation Automation) error {
		if err := scrollToReject(ctx, automation, first); err != nil {
			return err
		}
		return automation.PressAndRelease(ctx, ButtonBoth)
	}
}
