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
	"math"

	"github.com/liquidhww/liquid-hww-api-go/api/common"
	"github.com/liquidhww/liquid-hww-api-go/store"
	"github.com/liquidhww/liquid-hww-api-go/util/errp"
	"github.com/liquidhww/liquid-hww-api-go/ux"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var address = cli.Command{
	Name:  "address",
	Usage: "derive a receive or change address of a registered wallet",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "name",
			Usage: "name of the registered wallet",
		},
		&cli.StringFlag{
			Name:  "id",
			Usage: "hex encoded id of the registered wallet, instead of --name",
		},
		&cli.BoolFlag{
			Name:  "change",
			Usage: "derive a change address",
		},
		&cli.Uint64Flag{
			Name:  "index",
			Usage: "address index",
		},
		&cli.BoolFlag{
			Name:  "display",
			Usage: "show the address on the device",
		},
	},
	Action: addressAction,
}

func findRecord(db *store.Store, chain common.Chain, name string, id string) (*store.Record, error) {
	switch {
	case id != "":
		decoded, err := hex.DecodeString(id)
		if err != nil || len(decoded) != 32 {
			return nil, errp.Newf("invalid wallet id %q", id)
		}
		var walletID [32]byte
		copy(walletID[:], decoded)
		return db.Get(walletID)
	case name != "":
		return db.GetByName(chain, name)
	}
	return nil, errp.New("either --name or --id is required")
}

func addressAction(ctx *cli.Context) error {
	index := ctx.Uint64("index")
	if index > math.MaxUint32 {
		return errp.Newf("address index %d out of range", index)
	}
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	db, err := s.openStore()
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.WithError(err).Warn("closing the registration db")
		}
	}()

	record, err := findRecord(db, s.config.Chain, ctx.String("name"), ctx.String("id"))
	if err != nil {
		return err
	}
	policy, err := record.Policy()
	if err != nil {
		return err
	}
	registration, err := record.Registration()
	if err != nil {
		return err
	}

	change, display := ctx.Bool("change"), ctx.Bool("display")
	var result string
	call := func() error {
		var err error
		result, err = s.device.GetWalletAddress(policy, registration.HMAC, change, uint32(index), display)
		return err
	}
	if display {
		err = s.confirm(ctx.Context, ux.AcceptAtEnd("Receive address"), call)
	} else {
		err = call()
	}
	if err != nil {
		return err
	}
	fmt.Println(result)
	return nil
}
