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
	"encoding/json"
	"fmt"
	"time"

	"github.com/liquidhww/liquid-hww-api-go/config"
	"github.com/liquidhww/liquid-hww-api-go/store"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var wallets = cli.Command{
	Name:   "wallets",
	Usage:  "list the wallets registered on the configured chain",
	Action: walletsAction,
}

type walletJSON struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	PolicyMap    string   `json:"policy_map"`
	Keys         []string `json:"keys"`
	HMAC         string   `json:"hmac"`
	RegisteredAt string   `json:"registered_at"`
}

var forget = cli.Command{
	Name:  "forget",
	Usage: "remove a registered wallet from the local database",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "name",
			Usage: "name of the registered wallet",
		},
		&cli.StringFlag{
			Name:  "id",
			Usage: "hex encoded id of the registered wallet, instead of --name",
		},
	},
	Action: forgetAction,
}

// withLocalStore runs f on the registration database, no device is needed.
func withLocalStore(ctx *cli.Context, f func(*config.Config, *store.Store) error) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	db, err := store.Open(cfg.DbDir(), log.WithField("component", "store"))
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.WithError(err).Warn("closing the registration db")
		}
	}()
	return f(cfg, db)
}

func walletsAction(ctx *cli.Context) error {
	return withLocalStore(ctx, func(cfg *config.Config, db *store.Store) error {
		records, err := db.List(cfg.Chain)
		if err != nil {
			return err
		}
		return printWallets(cfg, records)
	})
}

// forgetAction only drops the local proof; the device keeps no state about registrations.
func forgetAction(ctx *cli.Context) error {
	return withLocalStore(ctx, func(cfg *config.Config, db *store.Store) error {
		record, err := findRecord(db, cfg.Chain, ctx.String("name"), ctx.String("id"))
		if err != nil {
			return err
		}
		registration, err := record.Registration()
		if err != nil {
			return err
		}
		if err := db.Delete(registration.ID); err != nil {
			return err
		}
		fmt.Println(record.ID)
		return nil
	})
}

func printWallets(cfg *config.Config, records []store.Record) error {
	list := make([]walletJSON, 0, len(records))
	for _, record := range records {
		list = append(list, walletJSON{
			ID:           record.ID,
			Name:         record.Name,
			PolicyMap:    record.PolicyMap,
			Keys:         record.Keys,
			HMAC:         record.HMAC,
			RegisteredAt: record.RegisteredAt.Format(time.RFC3339),
		})
	}
	out, err := json.MarshalIndent(map[string]interface{}{
		"chain":   cfg.Chain.String(),
		"wallets": list,
	}, "", "\t")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
