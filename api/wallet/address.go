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
	"bytes"
	"sort"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/liquidhww/liquid-hww-api-go/api/common"
	"github.com/liquidhww/liquid-hww-api-go/util/errp"
	"github.com/vulpemventures/go-elements/payment"
	"github.com/vulpemventures/go-elements/slip77"
)

// Scripts of the address at change/index of a multisig policy.
type Scripts struct {
	// RedeemScript is the multisig script itself (witness script for segwit address types).
	RedeemScript []byte
	// OutputScript is the scriptPubKey.
	OutputScript []byte
}

func (policy *Policy) pubKeys(chain common.Chain, change bool, index uint32) ([][]byte, error) {
	var changeStep uint32
	if change {
		changeStep = 1
	}
	pubKeys := make([][]byte, len(policy.Keys))
	for i, keyInfo := range policy.Keys {
		xpub, err := keyInfo.ExtendedKey(chain.Params())
		if err != nil {
			return nil, err
		}
		childKey, err := xpub.Derive(changeStep)
		if err != nil {
			return nil, errp.WithStack(err)
		}
		childKey, err = childKey.Derive(index)
		if err != nil {
			return nil, errp.WithStack(err)
		}
		pubKey, err := childKey.ECPubKey()
		if err != nil {
			return nil, errp.WithStack(err)
		}
		pubKeys[i] = pubKey.SerializeCompressed()
	}
	return pubKeys, nil
}

// Scripts derives the multisig and output scripts at the given change/index.
func (policy *Policy) Scripts(chain common.Chain, change bool, index uint32) (*Scripts, error) {
	if index >= common.HARDENED {
		return nil, common.NewError(common.StatusIncorrectData, "address index must not be hardened")
	}
	tmpl, err := policy.template(chain)
	if err != nil {
		return nil, err
	}
	return policy.scripts(tmpl, chain, change, index)
}

func (policy *Policy) scripts(tmpl *template, chain common.Chain, change bool, index uint32) (*Scripts, error) {
	pubKeys, err := policy.pubKeys(chain, change, index)
	if err != nil {
		return nil, err
	}
	if tmpl.sorted {
		sort.Slice(pubKeys, func(i, j int) bool { return bytes.Compare(pubKeys[i], pubKeys[j]) < 0 })
	}
	builder := txscript.NewScriptBuilder().AddInt64(int64(tmpl.threshold))
	for _, pubKey := range pubKeys {
		builder.AddData(pubKey)
	}
	redeemScript, err := builder.
		AddInt64(int64(len(pubKeys))).
		AddOp(txscript.OP_CHECKMULTISIG).
		Script()
	if err != nil {
		return nil, errp.WithStack(err)
	}
	var outputScript []byte
	switch tmpl.addressType {
	case AddressTypeLegacy:
		outputScript, err = p2sh(redeemScript)
	case AddressTypeWit:
		outputScript, err = p2wsh(redeemScript)
	case AddressTypeShWit:
		outputScript, err = p2wsh(redeemScript)
		if err == nil {
			outputScript, err = p2sh(outputScript)
		}
	}
	if err != nil {
		return nil, errp.WithStack(err)
	}
	return &Scripts{RedeemScript: redeemScript, OutputScript: outputScript}, nil
}

func p2wsh(script []byte) ([]byte, error) {
	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_0).
		AddData(chainhash.HashB(script)).
		Script()
}

func p2sh(script []byte) ([]byte, error) {
	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_HASH160).
		AddData(btcutil.Hash160(script)).
		AddOp(txscript.OP_EQUAL).
		Script()
}

// Address derives the receive (change=false) or change address at the given index. Blinded
// policies yield confidential addresses whose blinding key is derived with SLIP-77 from the
// output script.
func (policy *Policy) Address(chain common.Chain, change bool, index uint32) (string, error) {
	if index >= common.HARDENED {
		return "", common.NewError(common.StatusIncorrectData, "address index must not be hardened")
	}
	tmpl, err := policy.template(chain)
	if err != nil {
		return "", err
	}
	scripts, err := policy.scripts(tmpl, chain, change, index)
	if err != nil {
		return "", err
	}
	pay, err := payment.FromScript(scripts.OutputScript, chain.Network(), nil)
	if err != nil {
		return "", errp.WithStack(err)
	}
	if !tmpl.blinded {
		if tmpl.addressType == AddressTypeWit {
			return pay.WitnessScriptHash()
		}
		return pay.ScriptHash()
	}

	masterBlindingKey, err := MasterBlindingKey(tmpl.blindingKey)
	if err != nil {
		return "", err
	}
	slip77Node, err := slip77.FromMasterKey(masterBlindingKey)
	if err != nil {
		return "", errp.WithStack(err)
	}
	_, blindingPubKey, err := slip77Node.DeriveKey(scripts.OutputScript)
	if err != nil {
		return "", errp.WithStack(err)
	}
	pay, err = payment.FromScript(scripts.OutputScript, chain.Network(), blindingPubKey)
	if err != nil {
		return "", errp.WithStack(err)
	}
	if tmpl.addressType == AddressTypeWit {
		return pay.ConfidentialWitnessScriptHash()
	}
	return pay.ConfidentialScriptHash()
}
