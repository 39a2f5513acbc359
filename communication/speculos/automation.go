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

package speculos

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/liquidhww/liquid-hww-api-go/util/errp"
	"github.com/liquidhww/liquid-hww-api-go/ux"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// DefaultAPIURL is the default address of the Speculos REST API.
const DefaultAPIURL = "http://127.0.0.1:5000"

const eventPrefix = "data:"

// Automation implements ux.Automation with the Speculos REST API. Screen events are read
// from the event stream in the background.
type Automation struct {
	baseURL string
	client  *http.Client
	logger  Logger

	events *ux.EventQueue
	cancel context.CancelFunc
	done   chan struct{}
}

// NewAutomation opens the event stream of the emulator at baseURL. Events emitted before are
// not replayed.
func NewAutomation(ctx context.Context, baseURL string, logger Logger) (*Automation, error) {
	baseURL = strings.TrimSuffix(baseURL, "/")
	streamCtx, cancel := context.WithCancel(context.Background())
	request, err := http.NewRequestWithContext(streamCtx, http.MethodGet, baseURL+"/events?stream=true", nil)
	if err != nil {
		cancel()
		return nil, errp.WithStack(err)
	}
	request.Header.Set("Accept", "text/event-stream")

	// The stream outlives ctx, which only bounds the connection attempt.
	stop := context.AfterFunc(ctx, cancel)
	response, err := http.DefaultClient.Do(request)
	stop()
	if err != nil {
		cancel()
		return nil, errp.WithMessage(errp.WithStack(err), "could not open the speculos event stream")
	}
	if response.StatusCode != http.StatusOK {
		_ = response.Body.Close()
		cancel()
		return nil, errp.Newf("speculos event stream: unexpected status %s", response.Status)
	}

	automation := &Automation{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
		events:  ux.NewEventQueue(),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go automation.readEvents(response.Body)
	return automation, nil
}

// parseEvent extracts the text of one line of the event stream. ok is false for lines which
// do not carry an event.
func parseEvent(line string) (text string, ok bool) {
	if !strings.HasPrefix(line, eventPrefix) {
		return "", false
	}
	payload := strings.TrimSpace(strings.TrimPrefix(line, eventPrefix))
	if !gjson.Valid(payload) {
		return "", false
	}
	result := gjson.Get(payload, "text")
	if !result.Exists() {
		return "", false
	}
	return result.String(), true
}

func (automation *Automation) readEvents(body io.ReadCloser) {
	defer close(automation.done)
	defer automation.events.Close()
	defer func() { _ = body.Close() }()

	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		text, ok := parseEvent(scanner.Text())
		if !ok {
			continue
		}
		automation.logger.Debug(fmt.Sprintf("speculos: screen %q", text))
		automation.events.Push(text)
	}
	if err := scanner.Err(); err != nil && !errp.Is(err, context.Canceled) {
		automation.logger.Error("speculos event stream interrupted", err)
	}
}

// NextEvent implements ux.Automation.
func (automation *Automation) NextEvent(ctx context.Context) (ux.Event, error) {
	return automation.events.Next(ctx)
}

// WaitForTextEvent implements ux.Automation.
func (automation *Automation) WaitForTextEvent(ctx context.Context, text string) (ux.Event, error) {
	return automation.events.WaitForText(ctx, text)
}

// PendingEvents implements ux.Automation.
func (automation *Automation) PendingEvents() []ux.Event {
	return automation.events.Pending()
}

// PressAndRelease implements ux.Automation.
func (automation *Automation) PressAndRelease(ctx context.Context, button ux.Button) error {
	switch button {
	case ux.ButtonLeft, ux.ButtonRight, ux.ButtonBoth:
	default:
		return errp.Newf("unknown button %q", button)
	}
	body, err := sjson.Set("", "action", "press-and-release")
	if err != nil {
		return errp.WithStack(err)
	}
	request, err := http.NewRequestWithContext(
		ctx, http.MethodPost, automation.baseURL+"/button/"+string(button), strings.NewReader(body))
	if err != nil {
		return errp.WithStack(err)
	}
	request.Header.Set("Content-Type", "application/json")
	response, err := automation.client.Do(request)
	if err != nil {
		return errp.WithStack(err)
	}
	defer func() { _ = response.Body.Close() }()
	_, _ = io.Copy(io.Discard, response.Body)
	if response.StatusCode/100 != 2 {
		return errp.Newf("speculos: pressing %s failed: %s", button, response.Status)
	}
	return nil
}

// Close stops the event stream.
func (automation *Automation) Close() {
	automation.cancel()
	<-automation.done
}
