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

// Package wallet models the wallet policies which can be registered on the device: a name, a
// policy map with key placeholders and the list of cosigner keys.
package wallet

import (
	"bytes"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/liquidhww/liquid-hww-api-go/api/common"
	"github.com/liquidhww/liquid-hww-api-go/util/errp"
)

const (
	// WalletTypePolicyMap is the only serialization version.
	WalletTypePolicyMap = 0x01
	// MaxNameLength is the maximum length of a wallet name.
	MaxNameLength = 16
	// MaxCosigners is the maximum number of keys of a multisig policy.
	MaxCosigners = 15
	// MaxPolicyMapLength is the maximum length of a policy map string.
	MaxPolicyMapLength = 72 + 74
	// MaxKeyInfoLength is the maximum length of a serialized key info.
	MaxKeyInfoLength = 46 + 113 + 3
)

// AddressType is the script type of a multisig wallet.
type AddressType int

// Address types.
const (
	// AddressTypeLegacy is sh(multi).
	AddressTypeLegacy AddressType = 1
	// AddressTypeWit is wsh(multi).
	AddressTypeWit AddressType = 2
	// AddressTypeShWit is sh(wsh(multi)).
	AddressTypeShWit AddressType = 3
)

func (addressType AddressType) String() string {
	switch addressType {
	case AddressTypeLegacy:
		return "legacy"
	case AddressTypeWit:
		return "wit"
	case AddressTypeShWit:
		return "sh_wit"
	}
	return fmt.Sprintf("address type %d", int(addressType))
}

// AddressTypeFromString is the inverse of AddressType.String().
func AddressTypeFromString(str string) (AddressType, error) {
	for _, addressType := range []AddressType{AddressTypeLegacy, AddressTypeWit, AddressTypeShWit} {
		if addressType.String() == str {
			return addressType, nil
		}
	}
	return 0, errp.Newf("unknown address type %q", str)
}

// Policy is a wallet policy.
type Policy struct {
	Name      string
	PolicyMap string
	Keys      []*KeyInfo
}

// NewPolicy creates a policy from the textual key infos. Malformed keys are rejected with
// common.StatusIncorrectData, everything else is checked by Validate.
func NewPolicy(name string, policyMap string, keys []string) (*Policy, error) {
	keyInfos := make([]*KeyInfo, len(keys))
	for i, key := range keys {
		keyInfo, err := ParseKeyInfo(key)
		if err != nil {
			return nil, err
		}
		keyInfos[i] = keyInfo
	}
	return &Policy{Name: name, PolicyMap: policyMap, Keys: keyInfos}, nil
}

func multisigPolicyMap(addressType AddressType, threshold int, numKeys int, sorted bool) (string, error) {
	multi := "multi"
	if sorted {
		multi = "sortedmulti"
	}
	expression := fmt.Sprintf("%s(%d", multi, threshold)
	for i := 0; i < numKeys; i++ {
		expression += fmt.Sprintf(",@%d", i)
	}
	expression += ")"
	switch addressType {
	case AddressTypeLegacy:
		return "sh(" + expression + ")", nil
	case AddressTypeWit:
		return "wsh(" + expression + ")", nil
	case AddressTypeShWit:
		return "sh(wsh(" + expression + "))", nil
	}
	return "", common.NewError(common.StatusNotSupported, "unsupported address type %d", int(addressType))
}

// NewMultisigWallet creates an unblinded threshold-of-len(keys) multisig policy.
func NewMultisigWallet(
	name string, addressType AddressType, threshold int, keys []string, sorted bool,
) (*Policy, error) {
	policyMap, err := multisigPolicyMap(addressType, threshold, len(keys), sorted)
	if err != nil {
		return nil, err
	}
	return NewPolicy(name, policyMap, keys)
}

// NewBlindedMultisigWallet creates a multisig policy wrapped in blinded(slip77(blindingKey),.).
func NewBlindedMultisigWallet(
	name string, blindingKey string, addressType AddressType, threshold int, keys []string, sorted bool,
) (*Policy, error) {
	policyMap, err := multisigPolicyMap(addressType, threshold, len(keys), sorted)
	if err != nil {
		return nil, err
	}
	return NewBlindedWallet(name, blindingKey, policyMap, keys)
}

// NewBlindedWallet wraps an arbitrary policy map in blinded(slip77(blindingKey),.).
func NewBlindedWallet(name string, blindingKey string, policyMap string, keys []string) (*Policy, error) {
	return NewPolicy(name, fmt.Sprintf("blinded(slip77(%s),%s)", blindingKey, policyMap), keys)
}

// ValidateName checks the wallet name: 1 to 16 printable ASCII characters, no leading or
// trailing space.
func ValidateName(name string) error {
	if len(name) == 0 || len(name) > MaxNameLength {
		return common.NewError(common.StatusIncorrectData,
			"wallet name must have between 1 and %d characters", MaxNameLength)
	}
	for i := 0; i < len(name); i++ {
		if name[i] < 0x20 || name[i] > 0x7e {
			return common.NewError(common.StatusIncorrectData, "wallet name contains invalid characters")
		}
	}
	if name[0] == ' ' || name[len(name)-1] == ' ' {
		return common.NewError(common.StatusIncorrectData, "wallet name can't start or end with a space")
	}
	return nil
}

// Validate runs all the checks the device performs on registration. Errors carry
// common.StatusIncorrectData for malformed input and common.StatusNotSupported for well formed
// policies outside of the supported set.
func (policy *Policy) Validate(chain common.Chain) error {
	if err := ValidateName(policy.Name); err != nil {
		return err
	}
	_, err := policy.template(chain)
	return err
}

// template parses and validates the policy, returning the multisig template it matches.
func (policy *Policy) template(chain common.Chain) (*template, error) {
	root, err := parsePolicyMap(policy.PolicyMap)
	if err != nil {
		return nil, err
	}
	tmpl, err := classify(root)
	if err != nil {
		return nil, err
	}
	if err := tmpl.validateMultisig(len(policy.Keys)); err != nil {
		return nil, err
	}
	if tmpl.blinded {
		if _, err := MasterBlindingKey(tmpl.blindingKey); err != nil {
			return nil, err
		}
	}
	for i, keyInfo := range policy.Keys {
		if !keyInfo.HasOrigin {
			return nil, common.NewError(common.StatusNotSupported, "key @%d has no origin information", i)
		}
		if !keyInfo.Wildcard {
			return nil, common.NewError(common.StatusNotSupported, "key @%d must end with /**", i)
		}
		if _, err := keyInfo.ExtendedKey(chain.Params()); err != nil {
			return nil, err
		}
	}
	return tmpl, nil
}

// KeyStrings returns the canonical key infos.
func (policy *Policy) KeyStrings() []string {
	keys := make([]string, len(policy.Keys))
	for i, keyInfo := range policy.Keys {
		keys[i] = keyInfo.String()
	}
	return keys
}

// Serialize returns the canonical serialization the wallet ID commits to:
// type | len(name) | name | varint(len(policy map)) | policy map | varint(len(keys)) | merkle root.
func (policy *Policy) Serialize() ([]byte, error) {
	if len(policy.Name) > MaxNameLength {
		return nil, common.NewError(common.StatusIncorrectData, "wallet name too long")
	}
	policyMap, err := CanonicalPolicyMap(policy.PolicyMap)
	if err != nil {
		return nil, err
	}
	root := MerkleRoot(policy.KeyStrings())
	buf := new(bytes.Buffer)
	buf.WriteByte(WalletTypePolicyMap)
	buf.WriteByte(byte(len(policy.Name)))
	buf.WriteString(policy.Name)
	if err := wire.WriteVarInt(buf, 0, uint64(len(policyMap))); err != nil {
		return nil, err
	}
	buf.WriteString(policyMap)
	if err := wire.WriteVarInt(buf, 0, uint64(len(policy.Keys))); err != nil {
		return nil, err
	}
	buf.Write(root[:])
	return buf.Bytes(), nil
}

// ID is the sha256 of the serialized policy.
func (policy *Policy) ID() ([32]byte, error) {
	serialized, err := policy.Serialize()
	if err != nil {
		return [32]byte{}, err
	}
	return chainhash.HashH(serialized), nil
}

func merkleHash(prefix byte, data ...[]byte) [32]byte {
	return chainhash.HashH(bytes.Join(append([][]byte{{prefix}}, data...), nil))
}

// MerkleRoot computes the root of the merkle tree over the given elements. Leaves are
// sha256(0x00 || element) and inner nodes sha256(0x01 || left || right), with the left subtree
// holding the largest power of two strictly smaller than the number of elements.
func MerkleRoot(elements []string) [32]byte {
	hashes := make([][32]byte, len(elements))
	for i, element := range elements {
		hashes[i] = merkleHash(0x00, []byte(element))
	}
	return merkleRoot(hashes)
}

func merkleRoot(hashes [][32]byte) [32]byte {
	switch len(hashes) {
	case 0:
		return [32]byte{}
	case 1:
		return hashes[0]
	}
	split := 1
	for split*2 < len(hashes) {
		split *= 2
	}
	left, right := merkleRoot(hashes[:split]), merkleRoot(hashes[split:])
	return merkleHash(0x01, left[:], right[:])
}

// Encode serializes the policy for the device:
// varint(len(header)) | header | varint(len(keys)) | (varint(len(key)) | key)*.
func (policy *Policy) Encode() ([]byte, error) {
	header, err := policy.Serialize()
	if err != nil {
		return nil, err
	}
	buf := new(bytes.Buffer)
	if err := wire.WriteVarBytes(buf, 0, header); err != nil {
		return nil, err
	}
	if err := wire.WriteVarInt(buf, 0, uint64(len(policy.Keys))); err != nil {
		return nil, err
	}
	for _, key := range policy.KeyStrings() {
		if err := wire.WriteVarString(buf, 0, key); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func truncated(err error) error {
	return common.NewError(common.StatusIncorrectData, "wallet: %v", err)
}

// Decode is the inverse of Encode. It reads one policy from reader and verifies that the keys
// match the merkle root committed to in the header.
func Decode(reader io.Reader) (*Policy, error) {
	header, err := wire.ReadVarBytes(reader, 0, 1+1+MaxNameLength+9+MaxPolicyMapLength+9+32, "header")
	if err != nil {
		return nil, truncated(err)
	}
	headerReader := bytes.NewReader(header)
	walletType, err := headerReader.ReadByte()
	if err != nil {
		return nil, truncated(err)
	}
	if walletType != WalletTypePolicyMap {
		return nil, common.NewError(common.StatusIncorrectData, "wallet: unknown type %d", walletType)
	}
	nameLen, err := headerReader.ReadByte()
	if err != nil {
		return nil, truncated(err)
	}
	if nameLen > MaxNameLength {
		return nil, common.NewError(common.StatusIncorrectData, "wallet: name too long")
	}
	name := make([]byte, nameLen)
	if _, err := io.ReadFull(headerReader, name); err != nil {
		return nil, truncated(err)
	}
	policyMap, err := wire.ReadVarBytes(headerReader, 0, MaxPolicyMapLength, "policy map")
	if err != nil {
		return nil, truncated(err)
	}
	numKeys, err := wire.ReadVarInt(headerReader, 0)
	if err != nil {
		return nil, truncated(err)
	}
	if numKeys > MaxCosigners {
		return nil, common.NewError(common.StatusIncorrectData, "wallet: too many keys")
	}
	var root [32]byte
	if _, err := io.ReadFull(headerReader, root[:]); err != nil {
		return nil, truncated(err)
	}
	if headerReader.Len() != 0 {
		return nil, common.NewError(common.StatusIncorrectData, "wallet: trailing header bytes")
	}

	count, err := wire.ReadVarInt(reader, 0)
	if err != nil {
		return nil, truncated(err)
	}
	if count != numKeys {
		return nil, common.NewError(common.StatusIncorrectData,
			"wallet: header announces %d keys, got %d", numKeys, count)
	}
	keys := make([]string, count)
	for i := range keys {
		key, err := wire.ReadVarBytes(reader, 0, MaxKeyInfoLength, "key info")
		if err != nil {
			return nil, truncated(err)
		}
		keys[i] = string(key)
	}
	if MerkleRoot(keys) != root {
		return nil, common.NewError(common.StatusIncorrectData, "wallet: keys do not match the merkle root")
	}
	return NewPolicy(string(name), string(policyMap), keys)
}
