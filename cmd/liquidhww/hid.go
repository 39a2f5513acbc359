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

package main

import (
	"github.com/karalabe/hid"
	"github.com/liquidhww/liquid-hww-api-go/communication/ledgerhid"
	"github.com/liquidhww/liquid-hww-api-go/util/errp"
)

const ledgerVendorID = 0x2c97

// isLedger matches the generic HID interface of a Ledger. Other interfaces (U2F, keyboard
// emulation) use different usage pages.
func isLedger(deviceInfo *hid.DeviceInfo) bool {
	return deviceInfo.VendorID == ledgerVendorID &&
		(deviceInfo.UsagePage == 0xffa0 || deviceInfo.Interface == 0)
}

func openHID() (*ledgerhid.Communication, error) {
	infos, err := hid.Enumerate(ledgerVendorID, 0)
	if err != nil {
		return nil, errp.WithStack(err)
	}
	for idx := range infos {
		deviceInfo := &infos[idx]
		if !isLedger(deviceInfo) {
			continue
		}
		hidDevice, err := deviceInfo.Open()
		if err != nil {
			return nil, errp.WithMessage(errp.WithStack(err), "could not open "+deviceInfo.Product)
		}
		return ledgerhid.NewCommunication(hidDevice), nil
	}
	return nil, errp.New("could not find a Ledger device")
}
