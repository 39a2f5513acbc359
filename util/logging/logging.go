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

// Package logging provides the logrus backed implementation of the Logger interface expected
// by the device client and the simulator.
package logging

import (
	log "github.com/sirupsen/logrus"
)

// Logger implements firmware.Logger and simulator.Logger on top of a logrus entry.
type Logger struct {
	entry *log.Entry
}

// New returns a Logger tagging every line with the given component name.
func New(component string) *Logger {
	return &Logger{entry: log.WithField("component", component)}
}

// NewWithEntry wraps an existing logrus entry.
func NewWithEntry(entry *log.Entry) *Logger {
	return &Logger{entry: entry}
}

// Error implements Logger.
func (logger *Logger) Error(msg string, err error) {
	logger.entry.WithError(err).Error(msg)
}

// Info implements Logger.
func (logger *Logger) Info(msg string) {
	logger.entry.Info(msg)
}

// Debug implements Logger.
func (logger *Logger) Debug(msg string) {
	logger.entry.Debug(msg)
}
