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
	"fmt"

	"github.com/liquidhww/liquid-hww-api-go/api/wallet"
	"github.com/liquidhww/liquid-hww-api-go/util/errp"
	"github.com/liquidhww/liquid-hww-api-go/ux"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var register = cli.Command{
	Name:  "register",
	Usage: "register a wallet policy on the device and store the proof",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "name",
			Usage:    "wallet name, 1 to 16 printable ASCII characters",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "policy",
			Usage: "policy map, e.g. blinded(slip77(<key>),wsh(sortedmulti(2,@0,@1)))",
		},
		&cli.StringSliceFlag{
			Name:     "key",
			Usage:    "key information [fingerprint/path]xpub/**, once per placeholder in order",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "address-type",
			Usage: "legacy, sh_wit or wit; builds the multisig policy map instead of --policy",
		},
		&cli.IntFlag{
			Name:  "threshold",
			Usage: "number of signatures required, with --address-type",
		},
		&cli.StringFlag{
			Name:  "blinding-key",
			Usage: "SLIP-77 master blinding key (WIF or hex), with --address-type",
		},
		&cli.BoolFlag{
			Name:  "sorted",
			Usage: "use sortedmulti, with --address-type",
		},
	},
	Action: registerAction,
}

// policyFromFlags takes either an explicit --policy or builds a multisig from --address-type.
func policyFromFlags(ctx *cli.Context) (*wallet.Policy, error) {
	name, keys := ctx.String("name"), ctx.StringSlice("key")
	policyMap, addressTypeName := ctx.String("policy"), ctx.String("address-type")
	switch {
	case policyMap != "" && addressTypeName != "":
		return nil, errp.New("--policy and --address-type are mutually exclusive")
	case policyMap != "":
		return wallet.NewPolicy(name, policyMap, keys)
	case addressTypeName == "":
		return nil, errp.New("either --policy or --address-type is required")
	}
	addressType, err := wallet.AddressTypeFromString(addressTypeName)
	if err != nil {
		return nil, err
	}
	threshold, sorted := ctx.Int("threshold"), ctx.Bool("sorted")
	if blindingKey := ctx.String("blinding-key"); blindingKey != "" {
		return wallet.NewBlindedMultisigWallet(name, blindingKey, addressType, threshold, keys, sorted)
	}
	return wallet.NewMultisigWallet(name, addressType, threshold, keys, sorted)
}

func registerAction(ctx *cli.Context) error {
	policy, err := policyFromFlags(ctx)
	if err != nil {
		return err
	}
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()
	if err := policy.Validate(s.config.Chain); err != nil {
		return err
	}

	db, err := s.openStore()
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.WithError(err).Warn("closing the registration db")
		}
	}()

	var registration *wallet.Registration
	err = s.confirm(ctx.Context, ux.AcceptAtEnd("Register wallet"), func() error {
		var err error
		registration, err = s.device.RegisterWallet(policy)
		return err
	})
	if err != nil {
		return err
	}
	if err := db.Save(s.config.Chain, policy, registration); err != nil {
		return err
	}
	fmt.Printf("id:   %s\nhmac: %s\n",
		hex.EncodeToString(registration.ID[:]), hex.EncodeToString(registration.HMAC[:]))
	return nil
}
