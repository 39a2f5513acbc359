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

import (
	"errors"
	"fmt"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/liquidhww/liquid-hww-api-go/util/errp"
	"github.com/stretchr/testify/require"
)

func TestParsePath(t *testing.T) {
	path, err := ParsePath("m/48'/1'/4'/1'/0/7")
	require.NoError(t, err)
	require.Equal(t, Path{48 + HARDENED, 1 + HARDENED, 4 + HARDENED, 1 + HARDENED, 0, 7}, path)
	require.Equal(t, "m/48'/1'/4'/1'/0/7", path.String())
	require.Equal(t, "/48'/1'/4'/1'/0/7", path.Suffix())

	root, err := ParsePath("m")
	require.NoError(t, err)
	require.Empty(t, root)
	require.Equal(t, "m", root.String())

	hMarker, err := ParsePath("84h/1H/0'")
	require.NoError(t, err)
	require.Equal(t, Path{84 + HARDENED, 1 + HARDENED, HARDENED}, hMarker)

	for _, invalid := range []string{
		"m/",
		"m/x",
		"m/-1",
		"m/2147483648",
		"m/1''",
		"m/1/2/3/4/5/6/7/8/9/10/11",
	} {
		_, err := ParsePath(invalid)
		require.Error(t, err, invalid)
		require.True(t, errors.Is(err, ErrIncorrectData), invalid)
	}
}

func TestIsStandardPath(t *testing.T) {
	standard := []string{
		"m/44'/1'/0'",
		"m/44'/1'/10'",
		"m/44'/1'/2'/1/42",
		"m/48'/1'/4'/1'/0/7",
		"m/48'/1'/0'/2'",
		"m/49'/1'/1'/1/3",
		"m/84'/1'/2'/0/10",
		"m/86'/1'/4'/1/12",
	}
	for _, str := range standard {
		path, err := ParsePath(str)
		require.NoError(t, err)
		require.True(t, IsStandardPath(path, 1), str)
	}

	nonStandard := []string{
		"m",
		"m/44'",
		"m/44'/1'",
		"m/44'/10'/0'",
		"m/44'/1'/0",
		"m/44'/1/0'",
		"m/44/1'/0'",
		"m/48'/1'/0'/0'",
		"m/48'/1'/0'/3'",
		"m/999'/1'/0'",
		"m/44'/1'/101'",
		"m/44'/1'/0'/2/0",
		"m/44'/1'/0'/0/50001",
		"m/44'/1'/0'/0'/0",
		"m/84'/1'/0'/0",
		"m/111'/222'/333'",
	}
	for _, str := range nonStandard {
		path, err := ParsePath(str)
		require.NoError(t, err)
		require.False(t, IsStandardPath(path, 1), str)
	}

	path, err := ParsePath("m/84'/1776'/0'/0/1")
	require.NoError(t, err)
	require.True(t, IsStandardPath(path, ChainLiquid.CoinType()))
	require.False(t, IsStandardPath(path, ChainLiquidTestnet.CoinType()))
}

func TestError(t *testing.T) {
	err := NewError(StatusDeny, "rejected on screen %d", 3)
	require.Empty(t, err.Data)
	require.True(t, errors.Is(err, ErrDeny))
	require.False(t, errors.Is(err, ErrNotSupported))
	require.Equal(t, "device error 0x6985: denied by the user: rejected on screen 3", err.Error())

	wrapped := errp.WithMessage(err, "register wallet")
	require.True(t, errors.Is(wrapped, ErrDeny))
	status, ok := StatusOf(wrapped)
	require.True(t, ok)
	require.Equal(t, StatusDeny, status)

	_, ok = StatusOf(fmt.Errorf("plain"))
	require.False(t, ok)

	require.Equal(t, "unknown status 0x1234", Status(0x1234).String())
}

func TestChain(t *testing.T) {
	for _, chain := range []Chain{ChainLiquid, ChainLiquidTestnet, ChainLiquidRegtest} {
		parsed, err := ChainFromString(chain.String())
		require.NoError(t, err)
		require.Equal(t, chain, parsed)
	}
	_, err := ChainFromString("bitcoin")
	require.Error(t, err)
	require.Equal(t, uint32(1776), ChainLiquid.CoinType())
	require.Equal(t, uint32(1), ChainLiquidTestnet.CoinType())
	require.Equal(t, chaincfg.TestNet3Params.HDPublicKeyID, ChainLiquidRegtest.Params().HDPublicKeyID)
	require.Equal(t, chaincfg.MainNetParams.HDPublicKeyID, ChainLiquid.Params().HDPublicKeyID)
	require.Equal(t, "tlq", ChainLiquidTestnet.Network().Blech32)
}
