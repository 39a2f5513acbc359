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

package common

import (
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
)

const (
	// HARDENED is the offset of hardened path elements.
	HARDENED = hdkeychain.HardenedKeyStart

	// MaxPathSteps is the maximum number of derivation steps the device accepts.
	MaxPathSteps = 10

	maxRecommendedAccount      = 100
	maxRecommendedAddressIndex = 50000
)

// Path is a BIP32 keypath. The root path "m" is the empty path.
type Path []uint32

// ParsePath parses "m/48'/1'/0'/2'". The hardened marker can be ', h or H and the leading "m/"
// is optional.
func ParsePath(str string) (Path, error) {
	str = strings.TrimSpace(str)
	if str == "m" || str == "" {
		return Path{}, nil
	}
	str = strings.TrimPrefix(str, "m/")
	elements := strings.Split(str, "/")
	if len(elements) > MaxPathSteps {
		return nil, NewError(StatusIncorrectData, "path %q has more than %d steps", str, MaxPathSteps)
	}
	path := make(Path, 0, len(elements))
	for _, element := range elements {
		index, err := ParsePathElement(element)
		if err != nil {
			return nil, err
		}
		path = append(path, index)
	}
	return path, nil
}

// ParsePathElement parses a single path step such as "48'" or "7".
func ParsePathElement(element string) (uint32, error) {
	var offset uint32
	for _, marker := range []string{"'", "h", "H"} {
		if strings.HasSuffix(element, marker) {
			element = strings.TrimSuffix(element, marker)
			offset = HARDENED
			break
		}
	}
	index, err := strconv.ParseUint(element, 10, 32)
	if err != nil || index >= HARDENED {
		return 0, NewError(StatusIncorrectData, "invalid path element %q", element)
	}
	return uint32(index) + offset, nil
}

// String renders the path as "m/44'/1'/0'".
func (path Path) String() string {
	builder := new(strings.Builder)
	builder.WriteString("m")
	for _, element := range path {
		builder.WriteByte('/')
		builder.WriteString(FormatPathElement(element))
	}
	return builder.String()
}

// Suffix renders the path without the leading "m", e.g. "/48'/1'/0'/2'". Used inside key
// origins.
func (path Path) Suffix() string {
	return strings.TrimPrefix(path.String(), "m")
}

// FormatPathElement renders a single step, hardened steps with a trailing '.
func FormatPathElement(element uint32) string {
	if element >= HARDENED {
		return strconv.FormatUint(uint64(element-HARDENED), 10) + "'"
	}
	return strconv.FormatUint(uint64(element), 10)
}

func isHardened(element uint32) bool {
	return element >= HARDENED
}

// IsStandardPath reports whether the keypath matches one of the BIP44, BIP48, BIP49, BIP84 or
// BIP86 templates for the given coin type. Only standard paths can be exported without an
// on-device confirmation.
func IsStandardPath(path Path, coinType uint32) bool {
	if len(path) == 0 {
		return false
	}
	var accountLen int
	switch path[0] {
	case 44 + HARDENED, 49 + HARDENED, 84 + HARDENED, 86 + HARDENED:
		accountLen = 3
	case 48 + HARDENED:
		accountLen = 4
	default:
		return false
	}
	if len(path) != accountLen && len(path) != accountLen+2 {
		return false
	}
	for _, element := range path[:accountLen] {
		if !isHardened(element) {
			return false
		}
	}
	if path[1] != coinType+HARDENED {
		return false
	}
	if path[2]-HARDENED > maxRecommendedAccount {
		return false
	}
	if accountLen == 4 {
		if scriptType := path[3]; scriptType != 1+HARDENED && scriptType != 2+HARDENED {
			return false
		}
	}
	if len(path) == accountLen {
		return true
	}
	change, addressIndex := path[accountLen], path[accountLen+1]
	return (change == 0 || change == 1) && addressIndex <= maxRecommendedAddressIndex
}
