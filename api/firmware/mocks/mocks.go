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

// Package mocks contains the mock implementations to be used in testing.
package mocks

import (
	"sync"
)

// Communication is a mock implementation of firmware.Communication.
type Communication struct {
	MockQuery func([]byte) ([]byte, error)
	MockClose func()
}

// Query implements firmware.Communication.
func (communication *Communication) Query(msg []byte) ([]byte, error) {
	return communication.MockQuery(msg)
}

// Close implements firmware.Communication.
func (communication *Communication) Close() {
	communication.MockClose()
}

// Logger is a firmware.Logger which records the messages.
type Logger struct {
	mutex    sync.Mutex
	Messages []string
}

func (logger *Logger) record(msg string) {
	logger.mutex.Lock()
	defer logger.mutex.Unlock()
	logger.Messages = append(logger.Messages, msg)
}

// Error implements firmware.Logger.
func (logger *Logger) Error(msg string, err error) {
	logger.record(msg + ": " + err.Error())
}

// Info implements firmware.Logger.
func (logger *Logger) Info(msg string) {
	logger.record(msg)
}

// Debug implements firmware.Logger.
func (logger *Logger) Debug(msg string) {
	logger.record(msg)
}
