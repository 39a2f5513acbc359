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

	"github.com/urfave/cli/v2"
)

var version = cli.Command{
	Name:   "version",
	Usage:  "print the name and version of the running application",
	Action: versionAction,
}

var fingerprint = cli.Command{
	Name:   "fingerprint",
	Usage:  "print the master key fingerprint",
	Action: fingerprintAction,
}

func versionAction(ctx *cli.Context) error {
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	name, appVersion, err := s.device.AppAndVersion()
	if err != nil {
		return err
	}
	fmt.Printf("%s %s\n", name, appVersion)
	return nil
}

func fingerprintAction(ctx *cli.Context) error {
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	fp, err := s.device.RootFingerprint()
	if err != nil {
		return err
	}
	fmt.Println(hex.EncodeToString(fp))
	return nil
}
