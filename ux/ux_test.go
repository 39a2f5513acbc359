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
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errDenied = errors.New("denied")

// screens is a minimal device: a list of screens, clamped navigation and a pending decision.
type screens struct {
	mutex    sync.Mutex
	queue    *EventQueue
	screens  [][]string
	position int
	decision chan error
	presses  []Button
}

func newScreens(lines ...[]string) *screens {
	s := &screens{
		queue:    NewEventQueue(),
		screens:  lines,
		decision: make(chan error, 1),
	}
	s.queue.Push(lines[0]...)
	return s
}

func (s *screens) NextEvent(ctx context.Context) (Event, error) { return s.queue.Next(ctx) }
func (s *screens) WaitForTextEvent(ctx context.Context, text string) (Event, error) {
	return s.queue.WaitForText(ctx, text)
}
func (s *screens) PendingEvents() []Event { return s.queue.Pending() }

func (s *screens) PressAndRelease(ctx context.Context, button Button) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.presses = append(s.presses, button)
	switch button {
	case ButtonRight:
		if s.position < len(s.screens)-1 {
			s.position++
			s.queue.Push(s.screens[s.position]...)
		}
	case ButtonLeft:
		if s.position > 0 {
			s.position--
			s.queue.Push(s.screens[s.position]...)
		}
	case ButtonBoth:
		switch s.screens[s.position][0] {
		case TextAccept:
			s.decision <- nil
		case TextReject, "Reject if you're":
			s.decision <- errDenied
		}
	}
	return nil
}

func (s *screens) call() error {
	return <-s.decision
}

func registerScreens() *screens {
	return newScreens(
		[]string{"Register wallet", "Cold storage"},
		[]string{"Policy map", "wsh(sortedmulti(2,@0,@1))"},
		[]string{"Key @0", "[f5acc2fd/48'/1'/0'/2']tpub/**"},
		[]string{"Key @1", "[76223a6e/48'/1'/0'/2']tpub/**"},
		[]string{TextAccept},
		[]string{TextReject},
	)
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestConfirmAccept(t *testing.T) {
	device := registerScreens()
	require.NoError(t, Confirm(testContext(t), device, AcceptAtEnd("Register wallet"), device.call))
	require.Equal(t, ButtonBoth, device.presses[len(device.presses)-1])
	require.Equal(t, ButtonLeft, device.presses[len(device.presses)-2])
}

func TestConfirmReject(t *testing.T) {
	device := registerScreens()
	err := Confirm(testContext(t), device, RejectAtEnd("Register wallet"), device.call)
	require.Equal(t, errDenied, err)
	require.Equal(t, 5, device.position)
}

func TestConfirmSequence(t *testing.T) {
	device := newScreens(
		[]string{"The derivation", "path is unusual"},
		[]string{"Confirm public key"},
		[]string{"Path", "m/111'/222'/333'"},
		[]string{"Reject if you're", "not sure"},
		[]string{"Public key", "tpub"},
		[]string{TextAccept},
		[]string{TextReject},
	)
	flow := Sequence(
		WaitFor("path is unusual"),
		Press(ButtonRight),
		WaitFor("Confirm public key"),
		Press(ButtonRight),
		WaitFor("Path"),
		Press(ButtonRight),
		WaitFor("Reject if you're"),
		Press(ButtonBoth),
	)
	require.Equal(t, errDenied, Confirm(testContext(t), device, flow, device.call))
}

func TestConfirmCallFailsFirst(t *testing.T) {
	// The request is rejected before any screen is shown.
	device := &screens{queue: NewEventQueue()}
	expectedErr := errors.New("not supported")
	err := Confirm(testContext(t), device, AcceptAtEnd("Confirm public key"), func() error {
		return expectedErr
	})
	require.Equal(t, expectedErr, err)
	require.Empty(t, device.presses)
}

func TestConfirmDesync(t *testing.T) {
	device := registerScreens()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	abandoned := make(chan struct{})
	err := Confirm(ctx, device, AcceptAtEnd("Sign transaction"), func() error {
		defer close(abandoned)
		return device.call()
	})
	require.True(t, errors.Is(err, ErrDesync))

	// Unblock the abandoned call.
	device.decision <- errDenied
	<-abandoned
}

func TestConfirmFlowError(t *testing.T) {
	device := registerScreens()
	flowErr := errors.New("button stuck")
	err := Confirm(testContext(t), device,
		func(context.Context, Automation) error { return flowErr },
		device.call)
	require.True(t, errors.Is(err, ErrDesync))
	require.Contains(t, err.Error(), "button stuck")
	device.decision <- nil
}

func TestEventQueue(t *testing.T) {
	queue := NewEventQueue()
	queue.Push("Application", "is ready")
	require.Equal(t, []Event{{Text: "Application"}, {Text: "is ready"}}, queue.Pending())

	ctx := testContext(t)
	event, err := queue.WaitForText(ctx, "ready")
	require.NoError(t, err)
	require.Equal(t, "is ready", event.Text)
	require.Empty(t, queue.Pending())

	go func() {
		time.Sleep(10 * time.Millisecond)
		queue.Push("Accept")
	}()
	event, err = queue.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, "Accept", event.Text)

	queue.Push("a", "b")
	require.Len(t, queue.Drain(), 2)
	require.Empty(t, queue.Pending())

	shortCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, err = queue.Next(shortCtx)
	require.True(t, errors.Is(err, context.DeadlineExceeded))

	queue.Push("last")
	queue.Close()
	queue.Push("dropped")
	event, err = queue.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, "last", event.Text)
	_, err = queue.Next(ctx)
	require.Equal(t, ErrClosed, err)
}
