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
	"fmt"

	"github.com/liquidhww/liquid-hww-api-go/api/common"
	"github.com/liquidhww/liquid-hww-api-go/ux"
	"github.com/urfave/cli/v2"
)

var xpub = cli.Command{
	Name:  "xpub",
	Usage: "get the extended public key at a derivation path",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "path",
			Usage:    "derivation path, e.g. m/84'/1'/0'",
			Required: true,
		},
		&cli.BoolFlag{
			Name:  "display",
			Usage: "show the key on the device; required for non-standard paths",
		},
	},
	Action: xpubAction,
}

// xpubFlow approves the xpub confirmation, which starts with a warning for unusual paths.
func xpubFlow(path common.Path, chain common.Chain) ux.Flow {
	if common.IsStandardPath(path, chain.CoinType()) {
		return ux.AcceptAtEnd("Confirm public key")
	}
	return ux.AcceptAtEnd("path is unusual")
}

func xpubAction(ctx *cli.Context) error {
	path, err := common.ParsePath(ctx.String("path"))
	if err != nil {
		return err
	}
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	display := ctx.Bool("display")
	var result string
	call := func() error {
		var err error
		result, err = s.device.GetExtendedPubkey(path, display)
		return err
	}
	if display {
		err = s.confirm(ctx.Context, xpubFlow(path, s.config.Chain), call)
	} else {
		err = call()
	}
	if err != nil {
		return err
	}
	fmt.Println(result)
	return nil
}
