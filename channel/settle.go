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

	"perun.network/perun-assetholder/event"
	"perun.network/perun-assetholder/store"
	"perun.network/perun-assetholder/wire"
)

// SetOutcome settles the channel cid. Only the adjudicator may call it and
// only once per channel. The holdings of each participant are replaced by its
// final balance. If the channel holds less than the claimed total, the held
// funds are handed out first-come-first-served in participant order.
// Settlement is refused with ErrWithdrawalPending while a withdrawal from one
// of the participants' funding IDs waits for its payout.
func (a *AssetHolder) SetOutcome(ctx context.Context, caller common.Address, cid pchannel.ID, parts []common.Address, balances []*big.Int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if caller != a.adjudicator {
		return errors.WithMessagef(ErrUnauthorized, "caller %v", caller.Hex())
	}

	var outcome *store.Outcome
	err := a.store.Update(func(tx store.Tx) error {
		settled, err := tx.Settled(cid)
		if err != nil {
			return err
		}
		if settled {
			return ErrAlreadySettled
		}
		if len(parts) != len(balances) {
			return errors.WithMessagef(ErrLengthMismatch, "%d participants, %d balances", len(parts), len(balances))
		}

		fids := make([]wire.FundingID, len(parts))
		held := make(map[wire.FundingID]*big.Int, len(parts))
		heldTotal := new(big.Int)
		for i, p := range parts {
			fids[i] = wire.CalcFundingID(cid, p)
			if amount, ok := a.pending[fids[i]]; ok {
				return errors.WithMessagef(ErrWithdrawalPending, "%v from %v", amount, fids[i])
			}
			if _, ok := held[fids[i]]; ok {
				continue
			}
			h, err := tx.Holding(fids[i])
			if err != nil {
				return err
			}
			held[fids[i]] = h
			if heldTotal, err = addAmounts(heldTotal, h); err != nil {
				return err
			}
		}
		claimed, err := sumAmounts(balances)
		if err != nil {
			return err
		}

		payouts := distribute(heldTotal, balances)
		final := make(map[wire.FundingID]*big.Int, len(held))
		for fid := range held {
			final[fid] = new(big.Int)
		}
		for i, fid := range fids {
			final[fid].Add(final[fid], payouts[i])
		}
		for fid, amount := range final {
			if err := tx.SetHolding(fid, amount); err != nil {
				return err
			}
		}

		outcome = &store.Outcome{
			Participants: append([]common.Address(nil), parts...),
			FundingIDs:   fids,
			Balances:     cloneBalances(balances),
			Payouts:      payouts,
		}
		if heldTotal.Cmp(claimed) < 0 {
			a.log.Log().Warnf("Channel 0x%x underfunded: holding %v of claimed %v", cid, heldTotal, claimed)
		}
		return tx.SetSettled(cid, outcome)
	})
	if err != nil {
		return errors.WithMessagef(err, "setting outcome of 0x%x", cid)
	}

	a.log.Log().Infof("Outcome of channel 0x%x set", cid)
	a.feed.Emit(&event.OutcomeSetEvent{ChannelID: cid})
	return nil
}

// distribute hands out total to the claims in order. Each claim receives the
// minimum of its balance and what is left, so a fully funded channel pays
// every balance and an underfunded one pays first-come-first-served.
func distribute(total *big.Int, balances []*big.Int) []*big.Int {
	remaining := new(big.Int).Set(total)
	payouts := make([]*big.Int, len(balances))
	for i, bal := range balances {
		payouts[i] = minAmount(bal, remaining)
		remaining.Sub(remaining, payouts[i])
	}
	return payouts
}

func cloneBalances(bals []*big.Int) []*big.Int {
	c := make([]*big.Int, len(bals))
	for i, b := range bals {
		c[i] = new(big.Int).Set(b)
	}
	return c
}
