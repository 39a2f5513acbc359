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

// Package config loads the settings of the command line tool from LIQUIDHWW_* environment
// variables, overridable by flags.
package config

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/liquidhww/liquid-hww-api-go/api/common"
	"github.com/liquidhww/liquid-hww-api-go/api/wallet"
	"github.com/liquidhww/liquid-hww-api-go/communication/speculos"
	"github.com/liquidhww/liquid-hww-api-go/util/errp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/tyler-smith/go-bip39"
)

const (
	// TransportKey selects how to reach the device: simulator, speculos or hid.
	TransportKey = "TRANSPORT"
	// ChainKey is the network of the application: liquid, testnet or regtest.
	ChainKey = "CHAIN"
	// SpeculosAPDUAddrKey is the host:port of the Speculos APDU server.
	SpeculosAPDUAddrKey = "SPECULOS_APDU_ADDR"
	// SpeculosAPIURLKey is the base URL of the Speculos REST API.
	SpeculosAPIURLKey = "SPECULOS_API_URL"
	// DataDirKey is where registered wallets are stored.
	DataDirKey = "DATA_DIR"
	// LogLevelKey is a logrus level name.
	LogLevelKey = "LOG_LEVEL"
	// UXTimeoutKey bounds the automated navigation of a confirmation flow.
	UXTimeoutKey = "UX_TIMEOUT"
	// SimulatorMnemonicKey seeds the simulator.
	SimulatorMnemonicKey = "SIMULATOR_MNEMONIC"
	// RegistrationKeyKey is the hex encoded registration secret of the simulator.
	RegistrationKeyKey = "REGISTRATION_KEY"

	// EnvPrefix prefixes all environment variables.
	EnvPrefix = "LIQUIDHWW"

	dbLocation = "db"
)

// Transports.
const (
	TransportSimulator = "simulator"
	TransportSpeculos  = "speculos"
	TransportHID       = "hid"
)

var defaultDataDir = btcutil.AppDataDir("liquidhww", false)

// Config is the validated configuration.
type Config struct {
	Transport         string
	Chain             common.Chain
	SpeculosAPDUAddr  string
	SpeculosAPIURL    string
	DataDir           string
	LogLevel          log.Level
	UXTimeout         time.Duration
	SimulatorMnemonic string
	// RegistrationKey is nil if the simulator should generate one.
	RegistrationKey []byte
}

func newViper() *viper.Viper {
	vip := viper.New()
	vip.SetEnvPrefix(EnvPrefix)
	vip.AutomaticEnv()

	vip.SetDefault(TransportKey, TransportSimulator)
	vip.SetDefault(ChainKey, common.ChainLiquidTestnet.String())
	vip.SetDefault(SpeculosAPDUAddrKey, speculos.DefaultAPDUAddress)
	vip.SetDefault(SpeculosAPIURLKey, speculos.DefaultAPIURL)
	vip.SetDefault(DataDirKey, defaultDataDir)
	vip.SetDefault(LogLevelKey, log.InfoLevel.String())
	vip.SetDefault(UXTimeoutKey, 30*time.Second)
	vip.SetDefault(SimulatorMnemonicKey, "")
	vip.SetDefault(RegistrationKeyKey, "")
	return vip
}

// Load reads the environment. overrides, keyed like the environment variables without
// prefix, take precedence. Empty overrides are ignored.
func Load(overrides map[string]string) (*Config, error) {
	vip := newViper()
	for key, value := range overrides {
		if value != "" {
			vip.Set(key, value)
		}
	}
	return fromViper(vip)
}

func fromViper(vip *viper.Viper) (*Config, error) {
	config := &Config{
		Transport:         strings.ToLower(vip.GetString(TransportKey)),
		SpeculosAPDUAddr:  vip.GetString(SpeculosAPDUAddrKey),
		SpeculosAPIURL:    vip.GetString(SpeculosAPIURLKey),
		DataDir:           vip.GetString(DataDirKey),
		UXTimeout:         vip.GetDuration(UXTimeoutKey),
		SimulatorMnemonic: strings.TrimSpace(vip.GetString(SimulatorMnemonicKey)),
	}

	switch config.Transport {
	case TransportSimulator, TransportSpeculos, TransportHID:
	default:
		return nil, errp.Newf("%s must be one of %s, %s or %s, got %q",
			TransportKey, TransportSimulator, TransportSpeculos, TransportHID, config.Transport)
	}

	chain, err := common.ChainFromString(vip.GetString(ChainKey))
	if err != nil {
		return nil, errp.WithMessage(err, ChainKey)
	}
	config.Chain = chain

	if config.DataDir == "" {
		return nil, errp.Newf("%s must not be empty", DataDirKey)
	}

	level, err := log.ParseLevel(vip.GetString(LogLevelKey))
	if err != nil {
		return nil, errp.WithMessage(errp.WithStack(err), LogLevelKey)
	}
	config.LogLevel = level

	if config.UXTimeout <= 0 {
		return nil, errp.Newf("%s must be a positive duration", UXTimeoutKey)
	}

	if config.Transport == TransportSpeculos {
		if config.SpeculosAPDUAddr == "" {
			return nil, errp.Newf("%s must not be empty", SpeculosAPDUAddrKey)
		}
		parsed, err := url.Parse(config.SpeculosAPIURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return nil, errp.Newf("%s is not a valid url: %q", SpeculosAPIURLKey, config.SpeculosAPIURL)
		}
	}

	if config.SimulatorMnemonic != "" && !bip39.IsMnemonicValid(config.SimulatorMnemonic) {
		return nil, errp.Newf("%s is not a valid BIP39 mnemonic", SimulatorMnemonicKey)
	}

	if encoded := vip.GetString(RegistrationKeyKey); encoded != "" {
		key, err := hex.DecodeString(encoded)
		if err != nil || len(key) != wallet.RegistrationKeyLength {
			return nil, errp.Newf("%s must be %d hex encoded bytes", RegistrationKeyKey, wallet.RegistrationKeyLength)
		}
		config.RegistrationKey = key
	}
	return config, nil
}

// DbDir is the registration database of the configured chain.
func (config *Config) DbDir() string {
	return filepath.Join(config.DataDir, dbLocation, config.Chain.String())
}

// String describes the configuration without secrets.
func (config *Config) String() string {
	return fmt.Sprintf("transport=%s chain=%s datadir=%s", config.Transport, config.Chain, config.DataDir)
}
