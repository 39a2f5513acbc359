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
	"strings"
	"sync"

	"github.com/liquidhww/liquid-hww-api-go/util/errp"
)

// ErrClosed is returned by a closed EventQueue once all events are consumed.
var ErrClosed = errp.New("ux: event queue closed")

// EventQueue is an unbounded FIFO of events with blocking reads.
type EventQueue struct {
	mutex  sync.Mutex
	events []Event
	// notify is closed and replaced on every push.
	notify chan struct{}
	closed bool
}

// NewEventQueue creates an empty queue.
func NewEventQueue() *EventQueue {
	return &EventQueue{notify: make(chan struct{})}
}

// Push appends one event per text line.
func (queue *EventQueue) Push(texts ...string) {
	queue.mutex.Lock()
	defer queue.mutex.Unlock()
	if queue.closed {
		return
	}
	for _, text := range texts {
		queue.events = append(queue.events, Event{Text: text})
	}
	close(queue.notify)
	queue.notify = make(chan struct{})
}

// Next pops the oldest event, blocking until there is one.
func (queue *EventQueue) Next(ctx context.Context) (Event, error) {
	for {
		queue.mutex.Lock()
		if len(queue.events) > 0 {
			event := queue.events[0]
			queue.events = queue.events[1:]
			queue.mutex.Unlock()
			return event, nil
		}
		if queue.closed {
			queue.mutex.Unlock()
			return Event{}, ErrClosed
		}
		notify := queue.notify
		queue.mutex.Unlock()

		select {
		case <-ctx.Done():
			return Event{}, errp.WithStack(ctx.Err())
		case <-notify:
		}
	}
}

// WaitForText pops events until one contains text.
func (queue *EventQueue) WaitForText(ctx context.Context, text string) (Event, error) {
	for {
		event, err := queue.Next(ctx)
		if err != nil {
			return Event{}, errp.WithMessage(err, "waiting for "+text)
		}
		if strings.Contains(event.Text, text) {
			return event, nil
		}
	}
}

// Pending returns a copy of the queued events.
func (queue *EventQueue) Pending() []Event {
	queue.mutex.Lock()
	defer queue.mutex.Unlock()
	return append([]Event{}, queue.events...)
}

// Drain removes and returns all queued events.
func (queue *EventQueue) Drain() []Event {
	queue.mutex.Lock()
	defer queue.mutex.Unlock()
	events := queue.events
	queue.events = nil
	return events
}

// Close wakes up all readers. Events pushed before are still delivered.
func (queue *EventQueue) Close() {
	queue.mutex.Lock()
	defer queue.mutex.Unlock()
	if queue.closed {
		return
	}
	queue.closed = true
	close(queue.notify)
}
