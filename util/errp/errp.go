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

// Package errp wraps github.com/pkg/errors so that all errors created in this module carry a
// stack trace.
package errp

import "github.com/pkg/errors"

var (
	// New returns an error with the supplied message and a stack trace.
	New = errors.New
	// Newf formats according to a format specifier and returns an error with a stack trace.
	Newf = errors.Errorf
	// WithStack annotates err with a stack trace. Returns nil if err is nil.
	WithStack = errors.WithStack
	// WithMessage annotates err with a new message. Returns nil if err is nil.
	WithMessage = errors.WithMessage
	// WithMessagef is WithMessage with a format specifier.
	WithMessagef = errors.WithMessagef
	// Wrap annotates err with a stack trace and a message. Returns nil if err is nil.
	Wrap = errors.Wrap
	// Cause returns the underlying cause of the error.
	Cause = errors.Cause
	// Is reports whether any error in err's chain matches target.
	Is = errors.Is
)
