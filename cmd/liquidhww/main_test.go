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
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/liquidhww/liquid-hww-api-go/api/common"
	"github.com/liquidhww/liquid-hww-api-go/api/wallet"
	"github.com/stretchr/testify/require"
)

const (
	testBlindingKey = "L1XvKmnKWuC4a5sbz3Ez6LCfMCbaXMBCcQk7C62ziN5NjoEgjN5N"
	keyOwn          = "[f5acc2fd/48'/1'/0'/2']tpubDFAqEGNyad35aBCKUAXbQGDjdVhNueno5ZZVEn3sQbW5ci457gLR7HyTmHBg93oourBssgUxuWz1jX5uhc1qaqFo9VsybY1J5FuedLfm4dK/**"
	keyCosigner1    = "[42b01983/48'/1'/0'/2']tpubDFjEjEPeyFun6FHqS248kK51SwLVx3hVzWdAFwsDXza1Lfjy1KASoBhMiiJMqtJTUAPdM7zbrx3BNgYMQNyGNVwkyNS1Wi82bb2Hwij7K9L/**"
	testPolicyMap   = "blinded(slip77(" + testBlindingKey + "),wsh(sortedmulti(2,@0,@1)))"
)

// run runs the tool with the simulator and returns what it printed.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	reader, writer, err := os.Pipe()
	require.NoError(t, err)
	stdout := os.Stdout
	os.Stdout = writer
	runErr := newApp().Run(append([]string{"liquidhww", "--transport", "simulator", "--chain", "regtest"}, args...))
	require.NoError(t, writer.Close())
	os.Stdout = stdout
	out, err := io.ReadAll(reader)
	require.NoError(t, err)
	return strings.TrimSpace(string(out)), runErr
}

func setup(t *testing.T) {
	t.Helper()
	t.Setenv("LIQUIDHWW_DATA_DIR", t.TempDir())
	t.Setenv("LIQUIDHWW_REGISTRATION_KEY", strings.Repeat("42", 32))
	t.Setenv("LIQUIDHWW_LOG_LEVEL", "error")
}

func TestInfo(t *testing.T) {
	setup(t)
	out, err := run(t, "version")
	require.NoError(t, err)
	require.Equal(t, "Liquid Regtest 1.0.3", out)

	out, err = run(t, "fingerprint")
	require.NoError(t, err)
	require.Equal(t, "f5acc2fd", out)
}

func TestXPub(t *testing.T) {
	setup(t)
	out, err := run(t, "xpub", "--path", "m/44'/1'/0'")
	require.NoError(t, err)
	require.Equal(t,
		"tpubDCwYjpDhUdPGP5rS3wgNg13mTrrjBuG8V9VpWbyptX6TRPbNoZVXsoVUSkCjmQ8jJycjuDKBb9eataSymXakTTaGifxR6kmVsfFehH1ZgJT",
		out)

	_, err = run(t, "xpub", "--path", "m")
	require.ErrorIs(t, err, common.ErrNotSupported)

	out, err = run(t, "xpub", "--path", "m", "--display")
	require.NoError(t, err)
	require.Equal(t,
		"tpubD6NzVbkrYhZ4YgUx2ZLNt2rLYAMTdYysCRzKoLu2BeSHKvzqPaBDvf17GeBPnExUVPkuBpx4kniP964e2MxyzzazcXLptxLXModSVCVEV1T",
		out)

	_, err = run(t, "xpub", "--path", "m/44'/x")
	require.Error(t, err)
}

func TestRegisterAndAddress(t *testing.T) {
	setup(t)
	out, err := run(t, "register", "--name", "Cold storage", "--policy", testPolicyMap,
		"--key", keyOwn, "--key", keyCosigner1)
	require.NoError(t, err)
	require.Contains(t, out, "id:")

	policy, err := wallet.NewPolicy("Cold storage", testPolicyMap, []string{keyOwn, keyCosigner1})
	require.NoError(t, err)
	expected, err := policy.Address(common.ChainLiquidRegtest, false, 3)
	require.NoError(t, err)

	out, err = run(t, "address", "--name", "Cold storage", "--index", "3")
	require.NoError(t, err)
	require.Equal(t, expected, out)

	id, err := policy.ID()
	require.NoError(t, err)
	expected, err = policy.Address(common.ChainLiquidRegtest, true, 0)
	require.NoError(t, err)
	out, err = run(t, "address", "--id", hex.EncodeToString(id[:]), "--change", "--display")
	require.NoError(t, err)
	require.Equal(t, expected, out)

	_, err = run(t, "address", "--name", "Unknown")
	require.Error(t, err)
	_, err = run(t, "address")
	require.Error(t, err)
	_, err = run(t, "address", "--name", "Cold storage", "--index", "4294967296")
	require.Error(t, err)
	_, err = run(t, "address", "--name", "Cold storage", "--index", "4294967295")
	require.ErrorIs(t, err, common.ErrIncorrectData)

	out, err = run(t, "wallets")
	require.NoError(t, err)
	var listed struct {
		Chain   string `json:"chain"`
		Wallets []struct {
			Name string `json:"name"`
		} `json:"wallets"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Equal(t, "regtest", listed.Chain)
	require.Len(t, listed.Wallets, 1)
	require.Equal(t, "Cold storage", listed.Wallets[0].Name)
}

func TestRegisterFromAddressType(t *testing.T) {
	setup(t)
	out, err := run(t, "register", "--name", "Cold storage", "--address-type", "wit", "--threshold", "2",
		"--blinding-key", testBlindingKey, "--sorted", "--key", keyOwn, "--key", keyCosigner1)
	require.NoError(t, err)

	// Same wallet as an explicit policy map, so the same id.
	policy, err := wallet.NewPolicy("Cold storage", testPolicyMap, []string{keyOwn, keyCosigner1})
	require.NoError(t, err)
	id, err := policy.ID()
	require.NoError(t, err)
	require.Contains(t, out, hex.EncodeToString(id[:]))

	_, err = run(t, "register", "--name", "Cold", "--address-type", "taproot", "--threshold", "1",
		"--key", keyOwn)
	require.Error(t, err)
	_, err = run(t, "register", "--name", "Cold", "--address-type", "wit", "--policy", testPolicyMap,
		"--key", keyOwn, "--key", keyCosigner1)
	require.Error(t, err)
	_, err = run(t, "register", "--name", "Cold", "--key", keyOwn)
	require.Error(t, err)
}

func TestForget(t *testing.T) {
	setup(t)
	_, err := run(t, "register", "--name", "Cold storage", "--policy", testPolicyMap,
		"--key", keyOwn, "--key", keyCosigner1)
	require.NoError(t, err)
	policy, err := wallet.NewPolicy("Cold storage", testPolicyMap, []string{keyOwn, keyCosigner1})
	require.NoError(t, err)
	id, err := policy.ID()
	require.NoError(t, err)

	out, err := run(t, "forget", "--name", "Cold storage")
	require.NoError(t, err)
	require.Equal(t, hex.EncodeToString(id[:]), out)

	_, err = run(t, "address", "--name", "Cold storage")
	require.Error(t, err)
	_, err = run(t, "forget", "--id", hex.EncodeToString(id[:]))
	require.Error(t, err)
}

func TestRegisterInvalid(t *testing.T) {
	setup(t)
	_, err := run(t, "register", "--name", " Cold", "--policy", testPolicyMap,
		"--key", keyOwn, "--key", keyCosigner1)
	require.ErrorIs(t, err, common.ErrIncorrectData)

	_, err = run(t, "register", "--name", "Cold", "--policy", "blinded(slip77("+testBlindingKey+"),sh(pkh(@0)))",
		"--key", keyOwn)
	require.ErrorIs(t, err, common.ErrNotSupported)
}

func TestHIDAutoConfirm(t *testing.T) {
	setup(t)
	err := newApp().Run([]string{"liquidhww", "--transport", "hid", "--auto-confirm", "fingerprint"})
	require.Error(t, err)
}
