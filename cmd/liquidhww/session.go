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
	"context"

	"github.com/liquidhww/liquid-hww-api-go/api/firmware"
	"github.com/liquidhww/liquid-hww-api-go/communication/speculos"
	"github.com/liquidhww/liquid-hww-api-go/config"
	"github.com/liquidhww/liquid-hww-api-go/simulator"
	"github.com/liquidhww/liquid-hww-api-go/store"
	"github.com/liquidhww/liquid-hww-api-go/util/errp"
	"github.com/liquidhww/liquid-hww-api-go/util/logging"
	"github.com/liquidhww/liquid-hww-api-go/ux"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// session is an initialized device plus, for emulated devices, the screen automation.
type session struct {
	config      *config.Config
	device      *firmware.Device
	automation  ux.Automation
	autoConfirm bool
	cleanups    []func()
}

func openSession(ctx *cli.Context) (*session, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	s := &session{config: cfg, autoConfirm: ctx.Bool(autoConfirmFlag.Name)}

	var communication firmware.Communication
	switch cfg.Transport {
	case config.TransportSimulator:
		sim, err := simulator.New(simulator.Config{
			Chain:           cfg.Chain,
			Mnemonic:        cfg.SimulatorMnemonic,
			RegistrationKey: cfg.RegistrationKey,
		}, logging.New("simulator"))
		if err != nil {
			return nil, err
		}
		if cfg.RegistrationKey == nil {
			log.Warn("simulator: no registration key configured, registrations will not survive this run")
		}
		communication = sim
		s.automation = sim
		// Nobody can press the buttons of the in-process simulator otherwise.
		s.autoConfirm = true
	case config.TransportSpeculos:
		dialCtx, cancel := context.WithTimeout(ctx.Context, cfg.UXTimeout)
		defer cancel()
		transport, err := speculos.Dial(dialCtx, cfg.SpeculosAPDUAddr, logging.New("speculos"))
		if err != nil {
			return nil, err
		}
		communication = transport
		if s.autoConfirm {
			automation, err := speculos.NewAutomation(dialCtx, cfg.SpeculosAPIURL, logging.New("speculos"))
			if err != nil {
				transport.Close()
				return nil, err
			}
			s.automation = automation
			s.cleanups = append(s.cleanups, automation.Close)
		}
	case config.TransportHID:
		if s.autoConfirm {
			return nil, errp.New("--auto-confirm is not available for physical devices")
		}
		communication, err = openHID()
		if err != nil {
			return nil, err
		}
	}

	s.device = firmware.NewDevice(cfg.Chain, communication, logging.New("device"))
	if err := s.device.Init(); err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

func (s *session) close() {
	for i := len(s.cleanups) - 1; i >= 0; i-- {
		s.cleanups[i]()
	}
	if s.device != nil {
		s.device.Close()
	}
}

// confirm runs call, driving the screens with flow if they are automated. Otherwise the user
// confirms on the device.
func (s *session) confirm(ctx context.Context, flow ux.Flow, call func() error) error {
	if !s.autoConfirm || s.automation == nil {
		log.Info("please confirm on the device")
		return call()
	}
	ctx, cancel := context.WithTimeout(ctx, s.config.UXTimeout)
	defer cancel()
	return ux.Confirm(ctx, s.automation, flow, call)
}

func (s *session) openStore() (*store.Store, error) {
	return store.Open(s.config.DbDir(), log.WithField("component", "store"))
}
