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

// Command classes.
const (
	CLAApplication byte = 0xe1
	// CLADashboard is answered by the OS, independently of the application.
	CLADashboard byte = 0xb0
)

// Instructions of CLAApplication.
const (
	INSGetExtendedPubkey    byte = 0x00
	INSRegisterWallet       byte = 0x02
	INSGetWalletAddress     byte = 0x03
	INSGetMasterFingerprint byte = 0x05
)

// INSGetAppAndVersion is the only instruction of CLADashboard.
const INSGetAppAndVersion byte = 0x01

// Application names reported by INSGetAppAndVersion.
const (
	AppNameLiquid     = "Liquid"
	AppNameLiquidTest = "Liquid Regtest"
)
