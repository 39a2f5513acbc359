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

package wallet

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/benma/miniscript-go"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/liquidhww/liquid-hww-api-go/api/common"
)

type fragment int

const (
	fragmentBlinded fragment = iota
	fragmentSlip77
	fragmentSh
	fragmentWsh
	fragmentPkh
	fragmentWpkh
	fragmentTr
	fragmentMulti
	fragmentSortedMulti
	fragmentPlaceholder
	// fragmentMiniscript is any other well formed miniscript expression. It is recognized but
	// cannot be registered.
	fragmentMiniscript
)

var fragmentNames = map[string]fragment{
	"blinded":     fragmentBlinded,
	"slip77":      fragmentSlip77,
	"sh":          fragmentSh,
	"wsh":         fragmentWsh,
	"pkh":         fragmentPkh,
	"wpkh":        fragmentWpkh,
	"tr":          fragmentTr,
	"multi":       fragmentMulti,
	"sortedmulti": fragmentSortedMulti,
}

// node of a parsed policy map.
type node struct {
	fragment fragment
	name     string
	children []*node
	// threshold of multi/sortedmulti.
	threshold int
	// keyIndex of a placeholder @i.
	keyIndex int
	// raw is the argument of slip77() or the text of a miniscript expression.
	raw string
}

func (n *node) String() string {
	switch n.fragment {
	case fragmentPlaceholder:
		return "@" + strconv.Itoa(n.keyIndex)
	case fragmentSlip77:
		return "slip77(" + n.raw + ")"
	case fragmentMiniscript:
		return n.raw
	}
	args := make([]string, 0, len(n.children)+1)
	if n.fragment == fragmentMulti || n.fragment == fragmentSortedMulti {
		args = append(args, strconv.Itoa(n.threshold))
	}
	for _, child := range n.children {
		args = append(args, child.String())
	}
	return n.name + "(" + strings.Join(args, ",") + ")"
}

func incorrectPolicy(format string, args ...interface{}) error {
	return common.NewError(common.StatusIncorrectData, "policy map: "+format, args...)
}

// splitArgs splits "a,b(c,d),e" at the top level commas.
func splitArgs(str string) ([]string, error) {
	var args []string
	depth, start := 0, 0
	for i, c := range str {
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, incorrectPolicy("unbalanced parentheses")
			}
		case ',':
			if depth == 0 {
				args = append(args, str[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, incorrectPolicy("unbalanced parentheses")
	}
	return append(args, str[start:]), nil
}

func parsePlaceholder(str string) (*node, error) {
	if !strings.HasPrefix(str, "@") {
		return nil, incorrectPolicy("expected a key placeholder, got %q", str)
	}
	index, err := strconv.ParseUint(str[1:], 10, 8)
	if err != nil || (len(str) > 2 && str[1] == '0') {
		return nil, incorrectPolicy("invalid key placeholder %q", str)
	}
	return &node{fragment: fragmentPlaceholder, keyIndex: int(index)}, nil
}

// parseNode parses one expression. topLevel is true for the outermost expression, the only
// place where blinded() may appear.
func parseNode(str string, topLevel bool) (*node, error) {
	if strings.HasPrefix(str, "@") {
		return parsePlaceholder(str)
	}
	open := strings.IndexByte(str, '(')
	if open <= 0 || !strings.HasSuffix(str, ")") {
		return nil, incorrectPolicy("malformed expression %q", str)
	}
	name := str[:open]
	fragment, known := fragmentNames[name]
	if !known {
		if _, err := miniscript.Parse(str); err != nil {
			return nil, incorrectPolicy("unknown expression %q: %v", str, err)
		}
		return &node{fragment: fragmentMiniscript, name: name, raw: str}, nil
	}
	args, err := splitArgs(str[open+1 : len(str)-1])
	if err != nil {
		return nil, err
	}
	result := &node{fragment: fragment, name: name}
	switch fragment {
	case fragmentBlinded:
		if !topLevel {
			return nil, incorrectPolicy("blinded() must be the outermost expression")
		}
		if len(args) != 2 {
			return nil, incorrectPolicy("blinded() takes two arguments")
		}
		for _, arg := range args {
			child, err := parseNode(arg, false)
			if err != nil {
				return nil, err
			}
			result.children = append(result.children, child)
		}
	case fragmentSlip77:
		if len(args) != 1 || args[0] == "" {
			return nil, incorrectPolicy("slip77() takes one argument")
		}
		result.raw = args[0]
	case fragmentMulti, fragmentSortedMulti:
		if len(args) < 2 {
			return nil, incorrectPolicy("%s() needs a threshold and at least one key", name)
		}
		threshold, err := strconv.ParseUint(args[0], 10, 8)
		if err != nil {
			return nil, incorrectPolicy("invalid threshold %q", args[0])
		}
		result.threshold = int(threshold)
		for _, arg := range args[1:] {
			child, err := parsePlaceholder(arg)
			if err != nil {
				return nil, err
			}
			result.children = append(result.children, child)
		}
	case fragmentTr:
		if len(args) < 1 || len(args) > 2 {
			return nil, incorrectPolicy("tr() takes one or two arguments")
		}
		child, err := parsePlaceholder(args[0])
		if err != nil {
			return nil, err
		}
		result.children = append(result.children, child)
		if len(args) == 2 {
			// Script trees are not parsed any further.
			result.children = append(result.children, &node{fragment: fragmentMiniscript, raw: args[1]})
		}
	case fragmentPkh, fragmentWpkh:
		if len(args) != 1 {
			return nil, incorrectPolicy("%s() takes one argument", name)
		}
		child, err := parsePlaceholder(args[0])
		if err != nil {
			return nil, err
		}
		result.children = append(result.children, child)
	case fragmentSh, fragmentWsh:
		if len(args) != 1 {
			return nil, incorrectPolicy("%s() takes one argument", name)
		}
		child, err := parseNode(args[0], false)
		if err != nil {
			return nil, err
		}
		if child.fragment == fragmentPlaceholder {
			return nil, incorrectPolicy("%s() expects a script", name)
		}
		// sh() never appears inside a script, wsh() only directly inside sh().
		if child.fragment == fragmentSh || (fragment == fragmentWsh && child.fragment == fragmentWsh) {
			return nil, incorrectPolicy("%s() cannot be nested in %s()", child.name, name)
		}
		result.children = append(result.children, child)
	}
	return result, nil
}

// parsePolicyMap parses the policy map after stripping all whitespace.
func parsePolicyMap(policyMap string) (*node, error) {
	compact := strings.Join(strings.Fields(policyMap), "")
	if compact == "" {
		return nil, incorrectPolicy("empty policy map")
	}
	if len(compact) > MaxPolicyMapLength {
		return nil, incorrectPolicy("longer than %d characters", MaxPolicyMapLength)
	}
	root, err := parseNode(compact, true)
	if err != nil {
		return nil, err
	}
	if root.fragment == fragmentPlaceholder {
		return nil, incorrectPolicy("a key placeholder is not a script")
	}
	return root, nil
}

// CanonicalPolicyMap returns the policy map with whitespace removed. Malformed policy maps are
// rejected with common.StatusIncorrectData.
func CanonicalPolicyMap(policyMap string) (string, error) {
	root, err := parsePolicyMap(policyMap)
	if err != nil {
		return "", err
	}
	return root.String(), nil
}

// template is the supported shape of a policy map: an optionally blinded multisig.
type template struct {
	blinded     bool
	blindingKey string
	addressType AddressType
	sorted      bool
	threshold   int
	keyIndexes  []int
}

func notSupported(format string, args ...interface{}) error {
	return common.NewError(common.StatusNotSupported, "policy map: "+format, args...)
}

// classify matches the parsed policy map against the allowed templates. Valid but unsupported
// policies yield common.StatusNotSupported.
func classify(root *node) (*template, error) {
	result := &template{}
	script := root
	if root.fragment == fragmentBlinded {
		blinding := root.children[0]
		if blinding.fragment != fragmentSlip77 {
			return nil, notSupported("only slip77() blinding keys are supported")
		}
		result.blinded = true
		result.blindingKey = blinding.raw
		script = root.children[1]
	}
	if script.fragment == fragmentSlip77 || script.fragment == fragmentBlinded {
		return nil, incorrectPolicy("%s() is not a script", script.name)
	}
	var multi *node
	switch {
	case script.fragment == fragmentSh && isMulti(script.children[0]):
		result.addressType = AddressTypeLegacy
		multi = script.children[0]
	case script.fragment == fragmentWsh && isMulti(script.children[0]):
		result.addressType = AddressTypeWit
		multi = script.children[0]
	case script.fragment == fragmentSh && script.children[0].fragment == fragmentWsh &&
		isMulti(script.children[0].children[0]):
		result.addressType = AddressTypeShWit
		multi = script.children[0].children[0]
	default:
		if containsSlip77(script) {
			return nil, incorrectPolicy("slip77() is only allowed inside blinded()")
		}
		return nil, notSupported("%q is not a supported multisig policy", script.String())
	}
	result.sorted = multi.fragment == fragmentSortedMulti
	result.threshold = multi.threshold
	for _, child := range multi.children {
		result.keyIndexes = append(result.keyIndexes, child.keyIndex)
	}
	return result, nil
}

func isMulti(n *node) bool {
	return n.fragment == fragmentMulti || n.fragment == fragmentSortedMulti
}

func containsSlip77(n *node) bool {
	if n.fragment == fragmentSlip77 {
		return true
	}
	for _, child := range n.children {
		if containsSlip77(child) {
			return true
		}
	}
	return false
}

// validateMultisig checks the threshold and the key placeholders against the number of keys.
func (t *template) validateMultisig(numKeys int) error {
	n := len(t.keyIndexes)
	if n > MaxCosigners {
		return incorrectPolicy("at most %d cosigners are supported, got %d", MaxCosigners, n)
	}
	if t.threshold < 1 || t.threshold > n {
		return incorrectPolicy("threshold %d out of range 1..%d", t.threshold, n)
	}
	if n != numKeys {
		return incorrectPolicy("policy has %d placeholders, but %d keys were given", n, numKeys)
	}
	for i, keyIndex := range t.keyIndexes {
		if keyIndex != i {
			return incorrectPolicy("placeholder @%d at position %d, expected @%d", keyIndex, i, i)
		}
	}
	return nil
}

// MasterBlindingKey decodes the slip77 master blinding key, given either as WIF or as 64 hex
// characters. The key must be a valid secp256k1 private key.
func MasterBlindingKey(str string) ([]byte, error) {
	if len(str) == 64 {
		if decoded, err := hex.DecodeString(str); err == nil {
			var scalar btcec.ModNScalar
			if overflow := scalar.SetByteSlice(decoded); overflow || scalar.IsZero() {
				return nil, common.NewError(common.StatusIncorrectData, "blinding key out of range")
			}
			return decoded, nil
		}
	}
	wif, err := btcutil.DecodeWIF(str)
	if err != nil {
		return nil, common.NewError(common.StatusIncorrectData, "invalid blinding key: %v", err)
	}
	return wif.PrivKey.Serialize(), nil
}
