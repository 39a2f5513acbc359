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
	"crypto/hmac"
	"crypto/sha256"
)

// RegistrationKeyLength is the length of the device secret used to authenticate registrations.
const RegistrationKeyLength = 32

// ComputeHMAC returns the proof of registration HMAC-SHA256(registrationKey, walletID).
func ComputeHMAC(registrationKey []byte, walletID [32]byte) [32]byte {
	mac := hmac.New(sha256.New, registrationKey)
	mac.Write(walletID[:])
	var result [32]byte
	copy(result[:], mac.Sum(nil))
	return result
}

// VerifyHMAC checks a proof of registration in constant time.
func VerifyHMAC(registrationKey []byte, walletID [32]byte, proof []byte) bool {
	expected := ComputeHMAC(registrationKey, walletID)
	return hmac.Equal(expected[:], proof)
}

// Registration is the result of a successful wallet registration.
type Registration struct {
	ID   [32]byte
	HMAC [32]byte
}
