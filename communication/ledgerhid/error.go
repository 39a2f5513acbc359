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

package ledgerhid

import "fmt"

// FrameError is returned when a report read from the device has an unexpected header.
type FrameError struct {
	Field    string
	Expected uint32
	Got      uint32
}

// Error implements error.
func (e *FrameError) Error() string {
	return fmt.Sprintf("frame error: unexpected %s 0x%x, expected 0x%x", e.Field, e.Got, e.Expected)
}

// IsOutOfSequence returns true if a report was lost or duplicated.
func (e *FrameError) IsOutOfSequence() bool {
	return e.Field == "sequence"
}
