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

// Package simulator emulates the firmware side of the application: it answers raw APDUs and
// renders the confirmation screens as text events which can be navigated with the buttons.
package simulator

import (
	"crypto/rand"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/liquidhww/liquid-hww-api-go/api/common"
	"github.com/liquidhww/liquid-hww-api-go/api/wallet"
	"github.com/liquidhww/liquid-hww-api-go/communication/apdu"
	"github.com/liquidhww/liquid-hww-api-go/util/errp"
	"github.com/liquidhww/liquid-hww-api-go/ux"
	"github.com/tyler-smith/go-bip39"
)

// DefaultMnemonic is the seed of the Speculos emulator.
const DefaultMnemonic = "glory promote mansion idle axis finger extra february uncover one trip resource lawn " +
	"turtle enact monster seven myth punch hobby comfort wild raise skin"

// ErrClosed is returned by Query after Close, including for a request which was waiting for a
// confirmation.
var ErrClosed = errp.New("simulator closed")

// Logger is the logging interface of the simulator.
type Logger interface {
	Error(msg string, err error)
	Info(msg string)
	Debug(msg string)
}

// Simulator is an in-process device. It implements the Query/Close communication interface of
// the client and ux.Automation.
type Simulator struct {
	chain           common.Chain
	master          *hdkeychain.ExtendedKey
	fingerprint     []byte
	registrationKey []byte
	logger          Logger

	// queryMutex serializes requests, only one can be in flight.
	queryMutex sync.Mutex
	assembler  apdu.Assembler

	// mutex protects the screen state below.
	mutex    sync.Mutex
	screens  []screen
	position int
	decision chan bool

	events    *ux.EventQueue
	closed    chan struct{}
	closeOnce sync.Once
}

// Config configures a Simulator.
type Config struct {
	Chain common.Chain
	// Mnemonic defaults to DefaultMnemonic.
	Mnemonic string
	// RegistrationKey is the secret authenticating wallet registrations. A random key is
	// generated if empty.
	RegistrationKey []byte
}

// New creates a simulator.
func New(config Config, logger Logger) (*Simulator, error) {
	mnemonic := config.Mnemonic
	if mnemonic == "" {
		mnemonic = DefaultMnemonic
	}
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	if err != nil {
		return nil, errp.WithMessage(errp.WithStack(err), "invalid mnemonic")
	}
	master, err := hdkeychain.NewMaster(seed, config.Chain.Params())
	if err != nil {
		return nil, errp.WithStack(err)
	}
	masterPubKey, err := master.ECPubKey()
	if err != nil {
		return nil, errp.WithStack(err)
	}
	registrationKey := config.RegistrationKey
	if len(registrationKey) == 0 {
		registrationKey = make([]byte, wallet.RegistrationKeyLength)
		if _, err := rand.Read(registrationKey); err != nil {
			return nil, errp.WithStack(err)
		}
	}
	if len(registrationKey) != wallet.RegistrationKeyLength {
		return nil, errp.Newf("registration key must be %d bytes", wallet.RegistrationKeyLength)
	}
	return &Simulator{
		chain:           config.Chain,
		master:          master,
		fingerprint:     btcutil.Hash160(masterPubKey.SerializeCompressed())[:4],
		registrationKey: registrationKey,
		logger:          logger,
		events:          ux.NewEventQueue(),
		closed:          make(chan struct{}),
	}, nil
}

// RegistrationKey returns the secret used to authenticate registered wallets.
func (simulator *Simulator) RegistrationKey() []byte {
	return append([]byte{}, simulator.registrationKey...)
}

// Fingerprint returns the master key fingerprint.
func (simulator *Simulator) Fingerprint() []byte {
	return append([]byte{}, simulator.fingerprint...)
}

// Query processes one raw command APDU and returns the raw response. It blocks while a
// confirmation is pending. Device errors are encoded in the status word, an error is only
// returned once the simulator is closed.
func (simulator *Simulator) Query(request []byte) ([]byte, error) {
	simulator.queryMutex.Lock()
	defer simulator.queryMutex.Unlock()
	select {
	case <-simulator.closed:
		return nil, ErrClosed
	default:
	}
	data, err := simulator.handle(request)
	if errp.Cause(err) == ErrClosed {
		return nil, ErrClosed
	}
	if err != nil {
		status, ok := common.StatusOf(err)
		if !ok {
			simulator.logger.Error("unexpected simulator error", err)
			status = common.StatusBadState
		} else {
			simulator.logger.Debug(fmt.Sprintf("simulator: responding 0x%04x (%v)", uint16(status), err))
		}
		return apdu.EncodeResponse(nil, status), nil
	}
	return apdu.EncodeResponse(data, common.StatusOK), nil
}

// Close aborts a pending confirmation and makes all further queries fail.
func (simulator *Simulator) Close() {
	simulator.closeOnce.Do(func() {
		close(simulator.closed)
		simulator.events.Close()
	})
}
