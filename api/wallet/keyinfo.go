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
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/liquidhww/liquid-hww-api-go/api/common"
)

const wildcardSuffix = "/**"

// KeyInfo is a cosigner key of a policy, e.g.
// "[f5acc2fd/48'/1'/0'/2']tpubDFAqEGNyad35aBCKUAXbQGDjdVhNueno5ZZVEn3sQbW5ci457gLR7HyTmHBg93oourBssgUxuWz1jX5uhc1qaqFo9VsybY1J5FuedLfm4dK/**".
type KeyInfo struct {
	// HasOrigin is false if the key was given without the "[fingerprint/path]" prefix.
	HasOrigin   bool
	Fingerprint [4]byte
	OriginPath  common.Path
	XPub        string
	// Wildcard is true if the key ends with "/**", i.e. receive and change addresses are
	// derived below it.
	Wildcard bool
}

// ParseKeyInfo parses the textual key info. Only the syntax is checked here, the extended key
// itself is validated by Validate.
func ParseKeyInfo(str string) (*KeyInfo, error) {
	keyInfo := &KeyInfo{}
	rest := strings.TrimSpace(str)
	if strings.HasPrefix(rest, "[") {
		end := strings.Index(rest, "]")
		if end == -1 {
			return nil, common.NewError(common.StatusIncorrectData, "key info: missing ']' in %q", str)
		}
		origin := rest[1:end]
		rest = rest[end+1:]
		fingerprint, path, _ := strings.Cut(origin, "/")
		decoded, err := hex.DecodeString(fingerprint)
		if err != nil || len(decoded) != 4 {
			return nil, common.NewError(common.StatusIncorrectData, "key info: invalid fingerprint %q", fingerprint)
		}
		copy(keyInfo.Fingerprint[:], decoded)
		originPath := common.Path{}
		if path != "" {
			originPath, err = common.ParsePath(path)
			if err != nil {
				return nil, err
			}
		}
		keyInfo.HasOrigin = true
		keyInfo.OriginPath = originPath
	}
	if strings.HasSuffix(rest, wildcardSuffix) {
		keyInfo.Wildcard = true
		rest = strings.TrimSuffix(rest, wildcardSuffix)
	}
	if rest == "" || strings.ContainsAny(rest, "/[]()*,@ ") {
		return nil, common.NewError(common.StatusIncorrectData, "key info: invalid extended key in %q", str)
	}
	keyInfo.XPub = rest
	return keyInfo, nil
}

// String renders the canonical form: lowercase fingerprint, ' as hardened marker.
func (keyInfo *KeyInfo) String() string {
	builder := new(strings.Builder)
	if keyInfo.HasOrigin {
		builder.WriteByte('[')
		builder.WriteString(hex.EncodeToString(keyInfo.Fingerprint[:]))
		builder.WriteString(keyInfo.OriginPath.Suffix())
		builder.WriteByte(']')
	}
	builder.WriteString(keyInfo.XPub)
	if keyInfo.Wildcard {
		builder.WriteString(wildcardSuffix)
	}
	return builder.String()
}

// ExtendedKey decodes the extended public key and checks it is serialized for the given
// network.
func (keyInfo *KeyInfo) ExtendedKey(params *chaincfg.Params) (*hdkeychain.ExtendedKey, error) {
	key, err := hdkeychain.NewKeyFromString(keyInfo.XPub)
	if err != nil {
		return nil, common.NewError(common.StatusIncorrectData, "key info: %v", err)
	}
	if key.IsPrivate() {
		return nil, common.NewError(common.StatusIncorrectData, "key info: private keys are not accepted")
	}
	if !key.IsForNet(params) {
		return nil, common.NewError(common.StatusIncorrectData, "key info: extended key is for another network")
	}
	return key, nil
}
