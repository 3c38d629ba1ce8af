// Copyright 2025 PolyCrypt GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package store

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
	pchannel "perun.network/go-perun/channel"

	"perun.network/perun-assetholder/wire"
)

var (
	bucketHoldings       = []byte("holdings")
	bucketOutcomes       = []byte("outcomes")
	bucketSettledFunding = []byte("settled_funding")
)

type (
	EncodeFn func(v any) ([]byte, error)
	DecodeFn func(data []byte, v any) error

	// Bolt is a Store backed by a bbolt database file. Values are cbor
	// encoded.
	Bolt struct {
		db      *bolt.DB
		encoder EncodeFn
		decoder DecodeFn
	}

	outcomeRecord struct {
		_            struct{} `cbor:",toarray"`
		Participants [][]byte
		FundingIDs   [][]byte
		Balances     [][]byte
		Payouts      [][]byte
	}
)

var _ Store = (*Bolt)(nil)

// OpenBolt opens or creates the bbolt database at path.
func OpenBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 3 * time.Second}) //nolint:gomnd
	if err != nil {
		return nil, errors.WithMessagef(err, "opening bolt db %s", path)
	}
	s := &Bolt{
		db:      db,
		encoder: cbor.Marshal,
		decoder: cbor.Unmarshal,
	}
	if err := s.createBuckets(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the path of the database file.
func (s *Bolt) Path() string {
	return s.db.Path()
}

func (s *Bolt) createBuckets() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketHoldings, bucketOutcomes, bucketSettledFunding} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return errors.WithMessagef(err, "creating bucket %s", b)
			}
		}
		return nil
	})
}

func (s *Bolt) Holding(fid wire.FundingID) (a *big.Int, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		a, err = s.tx(tx).Holding(fid)
		return err
	})
	return
}

func (s *Bolt) Settled(cid pchannel.ID) (settled bool, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		settled, err = s.tx(tx).Settled(cid)
		return err
	})
	return
}

func (s *Bolt) FundingSettled(fid wire.FundingID) (settled bool, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		settled, err = s.tx(tx).FundingSettled(fid)
		return err
	})
	return
}

func (s *Bolt) Outcome(cid pchannel.ID) (o *Outcome, ok bool, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		o, ok, err = s.tx(tx).Outcome(cid)
		return err
	})
	return
}

func (s *Bolt) Update(fn func(Tx) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return fn(s.tx(tx))
	})
}

func (s *Bolt) ForEachHolding(fn func(wire.FundingID, *big.Int) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketHoldings).ForEach(func(k, v []byte) error {
			var fid wire.FundingID
			copy(fid[:], k)
			a, err := s.decodeAmount(v)
			if err != nil {
				return err
			}
			return fn(fid, a)
		})
	})
}

func (s *Bolt) ForEachOutcome(fn func(pchannel.ID, *Outcome) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketOutcomes).ForEach(func(k, v []byte) error {
			var cid pchannel.ID
			copy(cid[:], k)
			o, err := s.decodeOutcome(v)
			if err != nil {
				return err
			}
			return fn(cid, o)
		})
	})
}

// Close closes the database file.
func (s *Bolt) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Bolt) tx(tx *bolt.Tx) *boltTx {
	return &boltTx{s: s, tx: tx}
}

func (s *Bolt) decodeAmount(data []byte) (*big.Int, error) {
	var b []byte
	if err := s.decoder(data, &b); err != nil {
		return nil, errors.WithMessage(err, "decoding holding")
	}
	return new(big.Int).SetBytes(b), nil
}

func (s *Bolt) decodeOutcome(data []byte) (*Outcome, error) {
	var r outcomeRecord
	if err := s.decoder(data, &r); err != nil {
		return nil, errors.WithMessage(err, "decoding outcome")
	}
	o := &Outcome{
		Participants: make([]common.Address, len(r.Participants)),
		FundingIDs:   make([]wire.FundingID, len(r.FundingIDs)),
		Balances:     make([]*big.Int, len(r.Balances)),
		Payouts:      make([]*big.Int, len(r.Payouts)),
	}
	for i, p := range r.Participants {
		o.Participants[i] = common.BytesToAddress(p)
	}
	for i, fid := range r.FundingIDs {
		copy(o.FundingIDs[i][:], fid)
	}
	for i, b := range r.Balances {
		o.Balances[i] = new(big.Int).SetBytes(b)
	}
	for i, p := range r.Payouts {
		o.Payouts[i] = new(big.Int).SetBytes(p)
	}
	return o, nil
}

func (s *Bolt) encodeOutcome(o *Outcome) ([]byte, error) {
	r := outcomeRecord{
		Participants: make([][]byte, len(o.Participants)),
		FundingIDs:   make([][]byte, len(o.FundingIDs)),
		Balances:     make([][]byte, len(o.Balances)),
		Payouts:      make([][]byte, len(o.Payouts)),
	}
	for i, p := range o.Participants {
		r.Participants[i] = p.Bytes()
	}
	for i := range o.FundingIDs {
		r.FundingIDs[i] = o.FundingIDs[i][:]
	}
	for i, b := range o.Balances {
		r.Balances[i] = b.Bytes()
	}
	for i, p := range o.Payouts {
		r.Payouts[i] = p.Bytes()
	}
	return s.encoder(r)
}

type boltTx struct {
	s  *Bolt
	tx *bolt.Tx
}

func (t *boltTx) Holding(fid wire.FundingID) (*big.Int, error) {
	data := t.tx.Bucket(bucketHoldings).Get(fid[:])
	if data == nil {
		return new(big.Int), nil
	}
	return t.s.decodeAmount(data)
}

func (t *boltTx) Settled(cid pchannel.ID) (bool, error) {
	return t.tx.Bucket(bucketOutcomes).Get(cid[:]) != nil, nil
}

func (t *boltTx) FundingSettled(fid wire.FundingID) (bool, error) {
	return t.tx.Bucket(bucketSettledFunding).Get(fid[:]) != nil, nil
}

func (t *boltTx) Outcome(cid pchannel.ID) (*Outcome, bool, error) {
	data := t.tx.Bucket(bucketOutcomes).Get(cid[:])
	if data == nil {
		return nil, false, nil
	}
	o, err := t.s.decodeOutcome(data)
	return o, err == nil, err
}

func (t *boltTx) SetHolding(fid wire.FundingID, amount *big.Int) error {
	if err := wire.CheckAmount(amount); err != nil {
		return err
	}
	b := t.tx.Bucket(bucketHoldings)
	if amount.Sign() == 0 {
		return b.Delete(fid[:])
	}
	data, err := t.s.encoder(amount.Bytes())
	if err != nil {
		return errors.WithMessage(err, "encoding holding")
	}
	return b.Put(fid[:], data)
}

func (t *boltTx) SetSettled(cid pchannel.ID, o *Outcome) error {
	if settled, _ := t.Settled(cid); settled {
		return ErrAlreadySettled
	}
	data, err := t.s.encodeOutcome(o)
	if err != nil {
		return errors.WithMessage(err, "encoding outcome")
	}
	if err := t.tx.Bucket(bucketOutcomes).Put(cid[:], data); err != nil {
		return err
	}
	funding := t.tx.Bucket(bucketSettledFunding)
	for i := range o.FundingIDs {
		if err := funding.Put(o.FundingIDs[i][:], cid[:]); err != nil {
			return err
		}
	}
	return nil
}
