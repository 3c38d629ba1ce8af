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

// Package store persists the state of an asset holder: holdings per funding
// ID and the outcomes of settled channels.
package store

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	pchannel "perun.network/go-perun/channel"

	"perun.network/perun-assetholder/wire"
)

// ErrAlreadySettled is returned by Tx.SetSettled for a channel that already
// has an outcome.
var ErrAlreadySettled = errors.New("channel already settled")

type (
	// Outcome is the settlement record of a channel. FundingIDs[i] belongs
	// to Participants[i], Balances are the claimed and Payouts the granted
	// final balances.
	Outcome struct {
		Participants []common.Address
		FundingIDs   []wire.FundingID
		Balances     []*big.Int
		Payouts      []*big.Int
	}

	// Reader reads asset holder state. Unknown funding IDs hold zero.
	Reader interface {
		Holding(fid wire.FundingID) (*big.Int, error)
		Settled(cid pchannel.ID) (bool, error)
		// FundingSettled reports whether fid was written by a settlement.
		FundingSettled(fid wire.FundingID) (bool, error)
		// Outcome returns the settlement record of cid, or false if cid is
		// not settled.
		Outcome(cid pchannel.ID) (*Outcome, bool, error)
	}

	// Tx is a read-write transaction.
	Tx interface {
		Reader
		SetHolding(fid wire.FundingID, amount *big.Int) error
		// SetSettled stores the outcome of cid and marks all of its
		// funding IDs as settled.
		SetSettled(cid pchannel.ID, o *Outcome) error
	}

	// Store is the persistent state of an asset holder.
	Store interface {
		Reader
		// Update runs fn in a transaction. All writes of fn are applied
		// atomically if it returns nil and discarded otherwise.
		Update(fn func(Tx) error) error
		// ForEachHolding calls fn for every non-zero holding.
		ForEachHolding(fn func(wire.FundingID, *big.Int) error) error
		// ForEachOutcome calls fn for every settled channel.
		ForEachOutcome(fn func(pchannel.ID, *Outcome) error) error
		Close() error
	}
)

// Clone returns a deep copy of o.
func (o *Outcome) Clone() *Outcome {
	c := &Outcome{
		Participants: append([]common.Address(nil), o.Participants...),
		FundingIDs:   append([]wire.FundingID(nil), o.FundingIDs...),
		Balances:     cloneAmounts(o.Balances),
		Payouts:      cloneAmounts(o.Payouts),
	}
	return c
}

func cloneAmounts(as []*big.Int) []*big.Int {
	if as == nil {
		return nil
	}
	c := make([]*big.Int, len(as))
	for i, a := range as {
		c[i] = new(big.Int).Set(a)
	}
	return c
}
