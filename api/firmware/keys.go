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

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/liquidhww/liquid-hww-api-go/api/common"
	"github.com/liquidhww/liquid-hww-api-go/util/errp"
)

// GetExtendedPubkey returns the extended public key at the given keypath. Without display, only
// standard paths can be exported: other paths fail with common.ErrNotSupported without
// contacting the device. With display, the user has to confirm on the device.
func (device *Device) GetExtendedPubkey(path common.Path, display bool) (string, error) {
	if len(path) > common.MaxPathSteps {
		return "", common.NewError(common.StatusIncorrectData, "path longer than %d steps", common.MaxPathSteps)
	}
	if !display && !common.IsStandardPath(path, device.chain.CoinType()) {
		device.logger.Info(fmt.Sprintf("refusing to export %s without confirmation", path))
		return "", common.NewError(common.StatusNotSupported, "%s is not a standard path", path)
	}
	payload := make([]byte, 2+4*len(path))
	if display {
		payload[0] = 1
	}
	payload[1] = byte(len(path))
	for i, step := range path {
		binary.BigEndian.PutUint32(payload[2+4*i:], step)
	}
	response, err := device.query(common.CLAApplication, common.INSGetExtendedPubkey, payload)
	if err != nil {
		return "", err
	}
	xpub := string(response)
	key, err := hdkeychain.NewKeyFromString(xpub)
	if err != nil {
		return "", errp.WithMessage(errp.WithStack(err), "unexpected response")
	}
	if key.IsPrivate() || !key.IsForNet(device.chain.Params()) {
		return "", errp.New("unexpected response: not a public key of the chain")
	}
	return xpub, nil
}

// RootFingerprint returns the fingerprint of the master public key.
func (device *Device) RootFingerprint() ([]byte, error) {
	response, err := device.query(common.CLAApplication, common.INSGetMasterFingerprint, nil)
	if err != nil {
		return nil, err
	}
	if len(response) != 4 {
		return nil, errp.Newf("unexpected response: fingerprint of %d bytes", len(response))
	}
	return response, nil
}
