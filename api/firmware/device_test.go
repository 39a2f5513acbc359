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

package firmware_test

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/liquidhww/liquid-hww-api-go/api/common"
	"github.com/liquidhww/liquid-hww-api-go/api/firmware"
	"github.com/liquidhww/liquid-hww-api-go/api/firmware/mocks"
	"github.com/liquidhww/liquid-hww-api-go/communication/apdu"
	"github.com/stretchr/testify/require"
)

const testAppVersion = "1.0.3"

func appAndVersionResponse(name string, version string) []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(0x01)
	buf.WriteByte(byte(len(name)))
	buf.WriteString(name)
	buf.WriteByte(byte(len(version)))
	buf.WriteString(version)
	buf.Write([]byte{0x01, 0x00})
	return buf.Bytes()
}

// newDevice creates a device to test with, with Init() already processed. Chunked requests are
// reassembled before they are passed to onRequest.
func newDevice(
	t *testing.T,
	chain common.Chain,
	communication *mocks.Communication,
	onRequest func(*apdu.Command) ([]byte, common.Status),
) *firmware.Device {
	t.Helper()
	device := firmware.NewDevice(chain, communication, &mocks.Logger{})

	assembler := &apdu.Assembler{}
	communication.MockQuery = func(msg []byte) ([]byte, error) {
		command, err := apdu.DecodeCommand(msg)
		require.NoError(t, err)
		if command.CLA == common.CLADashboard {
			require.Equal(t, common.INSGetAppAndVersion, command.INS)
			return apdu.EncodeResponse(appAndVersionResponse(chain.AppName(), testAppVersion), common.StatusOK), nil
		}
		require.Equal(t, common.CLAApplication, command.CLA)
		payload, err := assembler.Add(command)
		require.NoError(t, err)
		if payload == nil {
			return apdu.EncodeResponse(nil, common.StatusOK), nil
		}
		return apdu.EncodeResponse(onRequest(&apdu.Command{
			CLA:  command.CLA,
			INS:  command.INS,
			Data: payload,
		})), nil
	}
	require.NoError(t, device.Init())
	return device
}

type testEnv struct {
	chain         common.Chain
	communication *mocks.Communication
	device        *firmware.Device
	onRequest     func(*apdu.Command) ([]byte, common.Status)
	// queries counts the reassembled requests.
	queries int
}

func testConfigurations(t *testing.T, run func(*testEnv, *testing.T)) {
	t.Helper()
	chains := []common.Chain{
		common.ChainLiquidTestnet,
		common.ChainLiquidRegtest,
	}
	for _, chain := range chains {
		var env testEnv
		env.chain = chain
		env.communication = &mocks.Communication{}
		env.device = newDevice(
			t,
			chain,
			env.communication,
			func(command *apdu.Command) ([]byte, common.Status) {
				env.queries++
				return env.onRequest(command)
			},
		)
		t.Run(fmt.Sprintf("%v", chain), func(t *testing.T) {
			run(&env, t)
		})
	}
}

func TestVersion(t *testing.T) {
	testConfigurations(t, func(env *testEnv, t *testing.T) {
		require.Equal(t, testAppVersion, env.device.Version().String())
		require.Equal(t, env.chain, env.device.Chain())

		name, version, err := env.device.AppAndVersion()
		require.NoError(t, err)
		require.Equal(t, env.chain.AppName(), name)
		require.Equal(t, uint64(1), version.Major)
		require.Equal(t, uint64(3), version.Patch)
	})
}

func TestInitWrongApp(t *testing.T) {
	communication := &mocks.Communication{
		MockQuery: func(msg []byte) ([]byte, error) {
			return apdu.EncodeResponse(appAndVersionResponse("Bitcoin", "2.1.0"), common.StatusOK), nil
		},
	}
	device := firmware.NewDevice(common.ChainLiquidTestnet, communication, &mocks.Logger{})
	require.Error(t, device.Init())
	require.Nil(t, device.Version())

	communication.MockQuery = func(msg []byte) ([]byte, error) {
		return apdu.EncodeResponse(appAndVersionResponse(common.AppNameLiquidTest, "not-a-version"), common.StatusOK), nil
	}
	require.Error(t, device.Init())

	communication.MockQuery = func(msg []byte) ([]byte, error) {
		return apdu.EncodeResponse([]byte{0x01, 0x10}, common.StatusOK), nil
	}
	require.Error(t, device.Init())

	// The dashboard is running.
	communication.MockQuery = func(msg []byte) ([]byte, error) {
		return apdu.EncodeResponse(nil, common.StatusClaNotSupported), nil
	}
	err := device.Init()
	status, ok := common.StatusOf(err)
	require.True(t, ok)
	require.Equal(t, common.StatusClaNotSupported, status)
}

func TestClose(t *testing.T) {
	testConfigurations(t, func(env *testEnv, t *testing.T) {
		called := false
		env.communication.MockClose = func() { called = true }
		env.device.Close()
		require.True(t, called)
	})
}

func TestRootFingerprint(t *testing.T) {
	testConfigurations(t, func(env *testEnv, t *testing.T) {
		expected := []byte{0xf5, 0xac, 0xc2, 0xfd}
		env.onRequest = func(command *apdu.Command) ([]byte, common.Status) {
			require.Equal(t, common.INSGetMasterFingerprint, command.INS)
			require.Empty(t, command.Data)
			return expected, common.StatusOK
		}
		fingerprint, err := env.device.RootFingerprint()
		require.NoError(t, err)
		require.Equal(t, expected, fingerprint)

		// Wrong response.
		env.onRequest = func(*apdu.Command) ([]byte, common.Status) {
			return []byte{1, 2, 3}, common.StatusOK
		}
		_, err = env.device.RootFingerprint()
		require.Error(t, err)

		// Query error.
		expectedErr := errors.New("error")
		env.communication.MockQuery = func(msg []byte) ([]byte, error) {
			return nil, expectedErr
		}
		_, err = env.device.RootFingerprint()
		require.Equal(t, expectedErr, err)
	})
}
