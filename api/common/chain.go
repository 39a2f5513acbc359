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

// Package common contains the types shared by the client, the wallet model and the simulator.
package common

import (
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/liquidhww/liquid-hww-api-go/util/errp"
	"github.com/vulpemventures/go-elements/network"
)

// Chain is the network the application is built for.
type Chain int

const (
	// ChainLiquid is Liquid mainnet.
	ChainLiquid Chain = iota
	// ChainLiquidTestnet is the public Liquid testnet.
	ChainLiquidTestnet
	// ChainLiquidRegtest is a local Elements regtest network.
	ChainLiquidRegtest
)

const liquidCoinType = 1776

func (chain Chain) String() string {
	return chain.Network().Name
}

// ChainFromString parses the network name as used by go-elements ("liquid", "testnet",
// "regtest").
func ChainFromString(name string) (Chain, error) {
	for _, chain := range []Chain{ChainLiquid, ChainLiquidTestnet, ChainLiquidRegtest} {
		if chain.String() == name {
			return chain, nil
		}
	}
	return 0, errp.Newf("unknown chain %q", name)
}

// CoinType is the BIP44 coin type the application accepts in standard paths.
func (chain Chain) CoinType() uint32 {
	if chain == ChainLiquid {
		return liquidCoinType
	}
	return 1
}

// Params returns the BIP32 serialization parameters. Liquid uses xpub/xprv, the test networks
// tpub/tprv.
func (chain Chain) Params() *chaincfg.Params {
	if chain == ChainLiquid {
		return &chaincfg.MainNetParams
	}
	return &chaincfg.TestNet3Params
}

// Network returns the go-elements network used to encode addresses.
func (chain Chain) Network() *network.Network {
	switch chain {
	case ChainLiquidTestnet:
		return &network.Testnet
	case ChainLiquidRegtest:
		return &network.Regtest
	default:
		return &network.Liquid
	}
}

// AppName is the name the application reports for the chain.
func (chain Chain) AppName() string {
	if chain == ChainLiquid {
		return AppNameLiquid
	}
	return AppNameLiquidTest
}
