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

package firmware

import (
	"encoding/binary"
	"fmt"

	"github.com/liquidhww/liquid-hww-api-go/api/common"
	"github.com/liquidhww/liquid-hww-api-go/api/wallet"
	"github.com/liquidhww/liquid-hww-api-go/util/errp"
)

// RegisterWallet registers a wallet policy on the device, which asks the user to review it.
// The policy is validated first, invalid or unsupported policies never reach the device. The
// returned HMAC proves the registration when the wallet is used later.
func (device *Device) RegisterWallet(policy *wallet.Policy) (*wallet.Registration, error) {
	if err := policy.Validate(device.chain); err != nil {
		return nil, err
	}
	expectedID, err := policy.ID()
	if err != nil {
		return nil, err
	}
	payload, err := policy.Encode()
	if err != nil {
		return nil, err
	}
	response, err := device.query(common.CLAApplication, common.INSRegisterWallet, payload)
	if err != nil {
		return nil, err
	}
	if len(response) != 64 {
		return nil, errp.Newf("unexpected response: %d bytes", len(response))
	}
	registration := &wallet.Registration{}
	copy(registration.ID[:], response[:32])
	copy(registration.HMAC[:], response[32:])
	if registration.ID != expectedID {
		return nil, common.NewError(common.StatusBadState,
			"device computed wallet id %x, expected %x", registration.ID, expectedID)
	}
	device.logger.Info(fmt.Sprintf("registered wallet %q (%x)", policy.Name, registration.ID))
	return registration, nil
}

// GetWalletAddress returns the receive (change=false) or change address at index of a
// registered wallet. The address returned by the device is checked against the locally
// derived one.
func (device *Device) GetWalletAddress(
	policy *wallet.Policy,
	hmac [32]byte,
	change bool,
	index uint32,
	display bool,
) (string, error) {
	expected, err := policy.Address(device.chain, change, index)
	if err != nil {
		return "", err
	}
	encodedPolicy, err := policy.Encode()
	if err != nil {
		return "", err
	}
	payload := make([]byte, 0, 1+32+1+4+len(encodedPolicy))
	payload = append(payload, boolByte(display))
	payload = append(payload, hmac[:]...)
	payload = append(payload, boolByte(change))
	payload = binary.BigEndian.AppendUint32(payload, index)
	payload = append(payload, encodedPolicy...)

	response, err := device.query(common.CLAApplication, common.INSGetWalletAddress, payload)
	if err != nil {
		return "", err
	}
	if address := string(response); address != expected {
		return "", common.NewError(common.StatusBadState,
			"device returned address %s, expected %s", address, expected)
	}
	return expected, nil
}

func boolByte(value bool) byte {
	if value {
		return 1
	}
	return 0
}
