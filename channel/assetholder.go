// Copyright 2025 PolyCrypt GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package channel

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	pchannel "perun.network/go-perun/channel"
	"perun.network/go-perun/log"
	"polycry.pt/poly-go/sync"

	"perun.network/perun-assetholder/event"
	"perun.network/perun-assetholder/store"
	"perun.network/perun-assetholder/wire"
)

// AssetHolder holds the deposits of payment channel participants for one
// asset. All state transitions are serialized.
type AssetHolder struct {
	mu          sync.Mutex
	pending     map[wire.FundingID]*big.Int // debited, payout in flight
	adjudicator common.Address
	backend     TransferBackend
	store       store.Store
	feed        *event.Feed
	log         log.Embedding
}

// Option configures an AssetHolder.
type Option func(*AssetHolder)

// WithStore makes the asset holder keep its state in s. The default is an
// empty memory store.
func WithStore(s store.Store) Option {
	return func(a *AssetHolder) { a.store = s }
}

// WithFeed makes the asset holder emit its events to f.
func WithFeed(f *event.Feed) Option {
	return func(a *AssetHolder) { a.feed = f }
}

// NewAssetHolder creates an asset holder that accepts outcomes only from
// adjudicator and moves value through backend.
func NewAssetHolder(adjudicator common.Address, backend TransferBackend, opts ...Option) *AssetHolder {
	a := &AssetHolder{
		pending:     make(map[wire.FundingID]*big.Int),
		adjudicator: adjudicator,
		backend:     backend,
		log:         log.MakeEmbedding(log.WithField("adjudicator", adjudicator.Hex())),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.store == nil {
		a.store = store.NewMemory()
	}
	if a.feed == nil {
		a.feed = event.NewFeed()
	}
	return a
}

// Deposit credits amount to the holdings of fid. The backend must transfer
// exactly amount from the caller.
func (a *AssetHolder) Deposit(ctx context.Context, call Call, fid wire.FundingID, amount *big.Int) error {
	if _, err := toUint256(amount); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	settled, err := a.store.FundingSettled(fid)
	if err != nil {
		return errors.WithMessage(err, "reading settlement")
	}
	if settled {
		return errors.WithMessagef(ErrAlreadySettled, "depositing into %v", fid)
	}
	held, err := a.store.Holding(fid)
	if err != nil {
		return errors.WithMessage(err, "reading holdings")
	}
	sum, err := addAmounts(held, amount)
	if err != nil {
		return err
	}

	if err := a.backend.Credit(ctx, call, amount); err != nil {
		return errors.WithMessage(err, "crediting deposit")
	}
	if err := a.store.Update(func(tx store.Tx) error {
		return tx.SetHolding(fid, sum)
	}); err != nil {
		if rerr := a.backend.Pay(ctx, call.From, amount); rerr != nil {
			a.log.Log().Errorf("Refunding failed deposit of %v to %v: %v", amount, call.From.Hex(), rerr)
		}
		return errors.WithMessage(err, "storing holdings")
	}

	a.log.Log().WithField("fid", fid.String()).Debugf("Deposited %v", amount)
	a.feed.Emit(&event.DepositedEvent{FundingID: fid, Amount: new(big.Int).Set(amount)})
	return nil
}

// Holdings returns the amount held for fid.
func (a *AssetHolder) Holdings(fid wire.FundingID) (*big.Int, error) {
	return a.store.Holding(fid)
}

// Settled reports whether the outcome of cid has been set.
func (a *AssetHolder) Settled(cid pchannel.ID) (bool, error) {
	return a.store.Settled(cid)
}

// Outcome returns the settlement record of cid. The boolean is false if cid
// is not settled.
func (a *AssetHolder) Outcome(cid pchannel.ID) (*store.Outcome, bool, error) {
	return a.store.Outcome(cid)
}

// Adjudicator returns the identity allowed to set outcomes.
func (a *AssetHolder) Adjudicator() common.Address {
	return a.adjudicator
}

// Events returns all events emitted so far.
func (a *AssetHolder) Events() []event.Event {
	return a.feed.Events()
}

// Subscribe returns a subscription to all future events.
func (a *AssetHolder) Subscribe() *event.Subscription {
	return a.feed.Subscribe()
}

// Store returns the underlying store.
func (a *AssetHolder) Store() store.Store {
	return a.store
}

// Close closes all subscriptions and the store.
func (a *AssetHolder) Close() error {
	a.feed.Close()
	return a.store.Close()
}
