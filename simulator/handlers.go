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

package simulator

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/liquidhww/liquid-hww-api-go/api/common"
	"github.com/liquidhww/liquid-hww-api-go/api/wallet"
	"github.com/liquidhww/liquid-hww-api-go/communication/apdu"
	"github.com/liquidhww/liquid-hww-api-go/util/errp"
)

// AppVersion is the version reported by the simulated application.
const AppVersion = "1.0.3"

func (simulator *Simulator) handle(request []byte) ([]byte, error) {
	command, err := apdu.DecodeCommand(request)
	if err != nil {
		return nil, err
	}
	simulator.logger.Debug(fmt.Sprintf("simulator: CLA 0x%02x INS 0x%02x P1 0x%02x P2 0x%02x, %d bytes",
		command.CLA, command.INS, command.P1, command.P2, len(command.Data)))
	switch command.CLA {
	case common.CLADashboard:
		if command.INS != common.INSGetAppAndVersion {
			return nil, common.NewError(common.StatusInsNotSupported, "INS 0x%02x", command.INS)
		}
		return simulator.handleGetAppAndVersion()
	case common.CLAApplication:
	default:
		return nil, common.NewError(common.StatusClaNotSupported, "CLA 0x%02x", command.CLA)
	}

	var handler func([]byte) ([]byte, error)
	switch command.INS {
	case common.INSGetExtendedPubkey:
		handler = simulator.handleGetExtendedPubkey
	case common.INSRegisterWallet:
		handler = simulator.handleRegisterWallet
	case common.INSGetWalletAddress:
		handler = simulator.handleGetWalletAddress
	case common.INSGetMasterFingerprint:
		handler = simulator.handleGetMasterFingerprint
	default:
		simulator.assembler.Reset()
		return nil, common.NewError(common.StatusInsNotSupported, "INS 0x%02x", command.INS)
	}
	payload, err := simulator.assembler.Add(command)
	if err != nil || payload == nil {
		return nil, err
	}
	return handler(payload)
}

func (simulator *Simulator) handleGetAppAndVersion() ([]byte, error) {
	name := simulator.chain.AppName()
	buf := new(bytes.Buffer)
	buf.WriteByte(0x01)
	buf.WriteByte(byte(len(name)))
	buf.WriteString(name)
	buf.WriteByte(byte(len(AppVersion)))
	buf.WriteString(AppVersion)
	buf.Write([]byte{0x01, 0x00})
	return buf.Bytes(), nil
}

func (simulator *Simulator) handleGetMasterFingerprint(payload []byte) ([]byte, error) {
	if len(payload) != 0 {
		return nil, common.NewError(common.StatusWrongDataLength, "unexpected payload")
	}
	return simulator.Fingerprint(), nil
}

func readFlag(reader *bytes.Reader, name string) (bool, error) {
	flag, err := reader.ReadByte()
	if err != nil {
		return false, common.NewError(common.StatusWrongDataLength, "missing %s", name)
	}
	if flag > 1 {
		return false, common.NewError(common.StatusIncorrectData, "invalid %s 0x%02x", name, flag)
	}
	return flag == 1, nil
}

func readUint32(reader *bytes.Reader, name string) (uint32, error) {
	var value uint32
	if err := binary.Read(reader, binary.BigEndian, &value); err != nil {
		return 0, common.NewError(common.StatusWrongDataLength, "missing %s", name)
	}
	return value, nil
}

func (simulator *Simulator) handleGetExtendedPubkey(payload []byte) ([]byte, error) {
	reader := bytes.NewReader(payload)
	display, err := readFlag(reader, "display flag")
	if err != nil {
		return nil, err
	}
	numSteps, err := reader.ReadByte()
	if err != nil {
		return nil, common.NewError(common.StatusWrongDataLength, "missing path length")
	}
	if numSteps > common.MaxPathSteps {
		return nil, common.NewError(common.StatusIncorrectData, "path longer than %d steps", common.MaxPathSteps)
	}
	if reader.Len() != 4*int(numSteps) {
		return nil, common.NewError(common.StatusWrongDataLength, "expected %d path steps", numSteps)
	}
	path := make(common.Path, numSteps)
	for i := range path {
		if path[i], err = readUint32(reader, "path step"); err != nil {
			return nil, err
		}
	}

	standard := common.IsStandardPath(path, simulator.chain.CoinType())
	if !display && !standard {
		return nil, common.NewError(common.StatusNotSupported, "%s is not a standard path", path)
	}
	key := simulator.master
	for _, step := range path {
		if key, err = key.Derive(step); err != nil {
			return nil, errp.WithStack(err)
		}
	}
	xpub, err := key.Neuter()
	if err != nil {
		return nil, errp.WithStack(err)
	}
	encoded := xpub.String()

	if display {
		screens := []screen{
			info("Confirm public key"),
			info("Path", path.String()),
			info("Public key", encoded),
		}
		if !standard {
			screens = []screen{
				info("The derivation", "path is unusual"),
				screens[0],
				screens[1],
				screenNotSure,
				screens[2],
			}
		}
		if err := simulator.confirm(screens...); err != nil {
			return nil, err
		}
	}
	return []byte(encoded), nil
}

// decodeWallet decodes and validates a policy as sent in REGISTER_WALLET and
// GET_WALLET_ADDRESS.
func (simulator *Simulator) decodeWallet(reader *bytes.Reader) (*wallet.Policy, [32]byte, error) {
	policy, err := wallet.Decode(reader)
	if err != nil {
		return nil, [32]byte{}, err
	}
	if reader.Len() != 0 {
		return nil, [32]byte{}, common.NewError(common.StatusWrongDataLength, "trailing bytes after the wallet")
	}
	if err := policy.Validate(simulator.chain); err != nil {
		return nil, [32]byte{}, err
	}
	id, err := policy.ID()
	if err != nil {
		return nil, [32]byte{}, err
	}
	return policy, id, nil
}

func (simulator *Simulator) handleRegisterWallet(payload []byte) ([]byte, error) {
	policy, id, err := simulator.decodeWallet(bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	policyMap, err := wallet.CanonicalPolicyMap(policy.PolicyMap)
	if err != nil {
		return nil, err
	}
	screens := []screen{
		info("Register wallet", policy.Name),
		info("Policy map", policyMap),
	}
	for i, key := range policy.KeyStrings() {
		screens = append(screens, info(fmt.Sprintf("Key @%d", i), key))
	}
	if err := simulator.confirm(screens...); err != nil {
		return nil, err
	}
	proof := wallet.ComputeHMAC(simulator.registrationKey, id)
	simulator.logger.Info(fmt.Sprintf("simulator: registered wallet %q", policy.Name))
	return append(id[:], proof[:]...), nil
}

func (simulator *Simulator) handleGetWalletAddress(payload []byte) ([]byte, error) {
	reader := bytes.NewReader(payload)
	display, err := readFlag(reader, "display flag")
	if err != nil {
		return nil, err
	}
	proof := make([]byte, 32)
	if _, err := io.ReadFull(reader, proof); err != nil {
		return nil, common.NewError(common.StatusWrongDataLength, "missing registration proof")
	}
	change, err := readFlag(reader, "change flag")
	if err != nil {
		return nil, err
	}
	index, err := readUint32(reader, "address index")
	if err != nil {
		return nil, err
	}
	policy, id, err := simulator.decodeWallet(reader)
	if err != nil {
		return nil, err
	}
	if !wallet.VerifyHMAC(simulator.registrationKey, id, proof) {
		return nil, common.NewError(common.StatusIncorrectData, "wallet is not registered")
	}
	address, err := policy.Address(simulator.chain, change, index)
	if err != nil {
		return nil, err
	}
	if display {
		if err := simulator.confirm(info("Receive address", policy.Name), info("Address", address)); err != nil {
			return nil, err
		}
	}
	return []byte(address), nil
}
