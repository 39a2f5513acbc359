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

// Package store persists the wallet registrations returned by the device, so that addresses
// can be requested later without registering the wallet again.
package store

import (
	"encoding/hex"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"
	"github.com/liquidhww/liquid-hww-api-go/api/common"
	"github.com/liquidhww/liquid-hww-api-go/api/wallet"
	"github.com/liquidhww/liquid-hww-api-go/util/errp"
	"github.com/timshannon/badgerhold/v4"
)

// ErrNotFound is returned when no registration matches.
var ErrNotFound = errp.New("registration not found")

// Record is a registered wallet.
type Record struct {
	// ID is the hex encoded wallet id.
	ID        string `badgerhold:"key"`
	Name      string `badgerhold:"index"`
	Chain     string `badgerhold:"index"`
	PolicyMap string
	Keys      []string
	// HMAC is the hex encoded registration proof.
	HMAC         string
	RegisteredAt time.Time
}

// Policy rebuilds the wallet policy.
func (record *Record) Policy() (*wallet.Policy, error) {
	return wallet.NewPolicy(record.Name, record.PolicyMap, record.Keys)
}

// Registration decodes the id and proof.
func (record *Record) Registration() (*wallet.Registration, error) {
	var registration wallet.Registration
	if err := decodeHex32(record.ID, &registration.ID); err != nil {
		return nil, errp.WithMessage(err, "invalid id")
	}
	if err := decodeHex32(record.HMAC, &registration.HMAC); err != nil {
		return nil, errp.WithMessage(err, "invalid hmac")
	}
	return &registration, nil
}

func decodeHex32(str string, out *[32]byte) error {
	decoded, err := hex.DecodeString(str)
	if err != nil {
		return errp.WithStack(err)
	}
	if len(decoded) != len(out) {
		return errp.Newf("expected %d bytes, got %d", len(out), len(decoded))
	}
	copy(out[:], decoded)
	return nil
}

// Store keeps registrations in a badger database.
type Store struct {
	db *badgerhold.Store
}

// Open opens or creates the database in dir. logger may be nil to silence badger.
func Open(dir string, logger badger.Logger) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = logger
	opts.Compression = options.ZSTD

	db, err := badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
	if err != nil {
		return nil, errp.WithMessage(errp.WithStack(err), "opening registration db")
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (store *Store) Close() error {
	return store.db.Close()
}

// Save stores the registration of policy on chain. Registering the same wallet again
// replaces the previous record.
func (store *Store) Save(chain common.Chain, policy *wallet.Policy, registration *wallet.Registration) error {
	id, err := policy.ID()
	if err != nil {
		return err
	}
	if id != registration.ID {
		return errp.New("registration does not belong to the policy")
	}
	record := Record{
		ID:           hex.EncodeToString(id[:]),
		Name:         policy.Name,
		Chain:        chain.String(),
		PolicyMap:    policy.PolicyMap,
		Keys:         policy.KeyStrings(),
		HMAC:         hex.EncodeToString(registration.HMAC[:]),
		RegisteredAt: time.Now().UTC(),
	}
	return errp.WithStack(store.db.Upsert(record.ID, record))
}

// Get returns the registration with the given wallet id.
func (store *Store) Get(id [32]byte) (*Record, error) {
	var record Record
	err := store.db.Get(hex.EncodeToString(id[:]), &record)
	if err == badgerhold.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errp.WithStack(err)
	}
	return &record, nil
}

// GetByName returns the registration named name on chain. Several wallets may share a name,
// the most recent registration wins.
func (store *Store) GetByName(chain common.Chain, name string) (*Record, error) {
	var records []Record
	query := badgerhold.Where("Name").Eq(name).Index("Name").
		And("Chain").Eq(chain.String())
	if err := store.db.Find(&records, query); err != nil {
		return nil, errp.WithStack(err)
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	latest := records[0]
	for _, record := range records[1:] {
		if record.RegisteredAt.After(latest.RegisteredAt) {
			latest = record
		}
	}
	return &latest, nil
}

// List returns the registrations on chain sorted by name.
func (store *Store) List(chain common.Chain) ([]Record, error) {
	var records []Record
	query := badgerhold.Where("Chain").Eq(chain.String()).Index("Chain")
	if err := store.db.Find(&records, query); err != nil {
		return nil, errp.WithStack(err)
	}
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Name != records[j].Name {
			return records[i].Name < records[j].Name
		}
		return records[i].ID < records[j].ID
	})
	return records, nil
}

// Delete removes a registration.
func (store *Store) Delete(id [32]byte) error {
	err := store.db.Delete(hex.EncodeToString(id[:]), Record{})
	if err == badgerhold.ErrNotFound {
		return ErrNotFound
	}
	return errp.WithStack(err)
}
