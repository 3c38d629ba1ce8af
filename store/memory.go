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

	pchannel "perun.network/go-perun/channel"
	"polycry.pt/poly-go/sync"

	"perun.network/perun-assetholder/wire"
)

// Memory is a Store that keeps all state in memory.
type Memory struct {
	mu             sync.Mutex
	holdings       map[wire.FundingID]*big.Int
	outcomes       map[pchannel.ID]*Outcome
	settledFunding map[wire.FundingID]pchannel.ID
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty memory store.
func NewMemory() *Memory {
	return &Memory{
		holdings:       make(map[wire.FundingID]*big.Int),
		outcomes:       make(map[pchannel.ID]*Outcome),
		settledFunding: make(map[wire.FundingID]pchannel.ID),
	}
}

func (m *Memory) Holding(fid wire.FundingID) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.holding(fid), nil
}

func (m *Memory) Settled(cid pchannel.ID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.outcomes[cid]
	return ok, nil
}

func (m *Memory) FundingSettled(fid wire.FundingID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.settledFunding[fid]
	return ok, nil
}

func (m *Memory) Outcome(cid pchannel.ID) (*Outcome, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.outcomes[cid]
	if !ok {
		return nil, false, nil
	}
	return o.Clone(), true, nil
}

func (m *Memory) Update(fn func(Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memTx{
		m:              m,
		holdings:       make(map[wire.FundingID]*big.Int),
		outcomes:       make(map[pchannel.ID]*Outcome),
		settledFunding: make(map[wire.FundingID]pchannel.ID),
	}
	if err := fn(tx); err != nil {
		return err
	}
	for fid, a := range tx.holdings {
		if a.Sign() == 0 {
			delete(m.holdings, fid)
		} else {
			m.holdings[fid] = a
		}
	}
	for cid, o := range tx.outcomes {
		m.outcomes[cid] = o
	}
	for fid, cid := range tx.settledFunding {
		m.settledFunding[fid] = cid
	}
	return nil
}

func (m *Memory) ForEachHolding(fn func(wire.FundingID, *big.Int) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for fid, a := range m.holdings {
		if err := fn(fid, new(big.Int).Set(a)); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) ForEachOutcome(fn func(pchannel.ID, *Outcome) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for cid, o := range m.outcomes {
		if err := fn(cid, o.Clone()); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

func (m *Memory) holding(fid wire.FundingID) *big.Int {
	if a, ok := m.holdings[fid]; ok {
		return new(big.Int).Set(a)
	}
	return new(big.Int)
}

// memTx stages writes until Update commits them. The store lock is held for
// the lifetime of the transaction.
type memTx struct {
	m              *Memory
	holdings       map[wire.FundingID]*big.Int
	outcomes       map[pchannel.ID]*Outcome
	settledFunding map[wire.FundingID]pchannel.ID
}

func (tx *memTx) Holding(fid wire.FundingID) (*big.Int, error) {
	if a, ok := tx.holdings[fid]; ok {
		return new(big.Int).Set(a), nil
	}
	return tx.m.holding(fid), nil
}

func (tx *memTx) Settled(cid pchannel.ID) (bool, error) {
	if _, ok := tx.outcomes[cid]; ok {
		return true, nil
	}
	_, ok := tx.m.outcomes[cid]
	return ok, nil
}

func (tx *memTx) FundingSettled(fid wire.FundingID) (bool, error) {
	if _, ok := tx.settledFunding[fid]; ok {
		return true, nil
	}
	_, ok := tx.m.settledFunding[fid]
	return ok, nil
}

func (tx *memTx) Outcome(cid pchannel.ID) (*Outcome, bool, error) {
	if o, ok := tx.outcomes[cid]; ok {
		return o.Clone(), true, nil
	}
	if o, ok := tx.m.outcomes[cid]; ok {
		return o.Clone(), true, nil
	}
	return nil, false, nil
}

func (tx *memTx) SetHolding(fid wire.FundingID, amount *big.Int) error {
	if err := wire.CheckAmount(amount); err != nil {
		return err
	}
	tx.holdings[fid] = new(big.Int).Set(amount)
	return nil
}

func (tx *memTx) SetSettled(cid pchannel.ID, o *Outcome) error {
	if settled, _ := tx.Settled(cid); settled {
		return ErrAlreadySettled
	}
	tx.outcomes[cid] = o.Clone()
	for _, fid := range o.FundingIDs {
		tx.settledFunding[fid] = cid
	}
	return nil
}
