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

// Package main is a command line tool talking to the Liquid application on a Ledger device,
// on Speculos or on the built-in simulator.
package main

import (
	"fmt"
	"os"

	"github.com/liquidhww/liquid-hww-api-go/config"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var (
	transportFlag = &cli.StringFlag{
		Name:  "transport",
		Usage: "simulator, speculos or hid",
	}
	chainFlag = &cli.StringFlag{
		Name:  "chain",
		Usage: "liquid, testnet or regtest",
	}
	datadirFlag = &cli.StringFlag{
		Name:  "datadir",
		Usage: "directory of the registered wallets",
	}
	logLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "logrus level",
	}
	autoConfirmFlag = &cli.BoolFlag{
		Name:  "auto-confirm",
		Usage: "approve the confirmation screens automatically (simulator and speculos only)",
	}
)

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "liquidhww"
	app.Usage = "Command line interface for the Liquid application of Ledger hardware wallets"
	app.Flags = []cli.Flag{transportFlag, chainFlag, datadirFlag, logLevelFlag, autoConfirmFlag}
	app.Commands = append(
		app.Commands,
		&version,
		&fingerprint,
		&xpub,
		&register,
		&address,
		&wallets,
		&forget,
	)
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	log.Debugf("%+v", err)
	fmt.Fprintf(os.Stderr, "[liquidhww] %v\n", err)
	os.Exit(1)
}

// loadConfig loads the environment, overridden by the global flags, and applies the log
// level.
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(map[string]string{
		config.TransportKey: ctx.String(transportFlag.Name),
		config.ChainKey:     ctx.String(chainFlag.Name),
		config.DataDirKey:   ctx.String(datadirFlag.Name),
		config.LogLevelKey:  ctx.String(logLevelFlag.Name),
	})
	if err != nil {
		return nil, err
	}
	log.SetLevel(cfg.LogLevel)
	log.Debugf("config: %s", cfg)
	return cfg, nil
}
