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

	"github.com/pkg/errors"
	pwallet "perun.network/go-perun/wallet"

	"perun.network/perun-assetholder/event"
	"perun.network/perun-assetholder/store"
	"perun.network/perun-assetholder/wallet"
	"perun.network/perun-assetholder/wire"
)

// Withdraw pays auth.Amount from the holdings of auth.Participant in
// auth.ChannelID to auth.Receiver. sig must be the participant's signature on
// the authorization digest. Anyone may submit the withdrawal.
//
// The holdings are debited before the backend pays out, so a backend that
// calls back into Withdraw sees the reduced holdings. Until the payout
// returns the amount is pending and the channel cannot be settled. If the
// payout fails the debit is reverted.
func (a *AssetHolder) Withdraw(ctx context.Context, auth wire.Authorization, sig pwallet.Sig) error {
	digest, err := auth.Digest()
	if err != nil {
		return errors.WithMessage(ErrOverflow, err.Error())
	}
	ok, err := wallet.VerifySignature(digest, sig, auth.Participant)
	if err != nil {
		return errors.WithMessage(err, "verifying withdrawal")
	}
	if !ok {
		return errors.WithMessagef(ErrInvalidSignature, "not signed by %v", auth.Participant.Hex())
	}

	fid := auth.FundingID()
	if err := a.debit(fid, auth.Amount); err != nil {
		return err
	}

	if err := a.backend.Pay(ctx, auth.Receiver, auth.Amount); err != nil {
		a.revertDebit(fid, auth.Amount)
		return errors.WithMessage(err, "paying withdrawal")
	}
	a.completeDebit(fid, auth)
	return nil
}

// debit subtracts amount from the holdings of fid and marks it pending.
func (a *AssetHolder) debit(fid wire.FundingID, amount *big.Int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	err := a.store.Update(func(tx store.Tx) error {
		held, err := tx.Holding(fid)
		if err != nil {
			return err
		}
		if held.Cmp(amount) < 0 {
			return errors.WithMessagef(ErrInsufficientFunds, "holding %v, requested %v", held, amount)
		}
		return tx.SetHolding(fid, held.Sub(held, amount))
	})
	if err != nil {
		return err
	}
	p, ok := a.pending[fid]
	if !ok {
		p = new(big.Int)
		a.pending[fid] = p
	}
	p.Add(p, amount)
	return nil
}

// revertDebit credits a pending amount back to fid.
func (a *AssetHolder) revertDebit(fid wire.FundingID, amount *big.Int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.releasePending(fid, amount)
	err := a.store.Update(func(tx store.Tx) error {
		held, err := tx.Holding(fid)
		if err != nil {
			return err
		}
		sum, err := addAmounts(held, amount)
		if err != nil {
			return err
		}
		return tx.SetHolding(fid, sum)
	})
	if err != nil {
		a.log.Log().Errorf("Reverting debit of %v from %v: %v", amount, fid, err)
	}
}

// completeDebit releases a paid out amount and records the withdrawal.
func (a *AssetHolder) completeDebit(fid wire.FundingID, auth wire.Authorization) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.releasePending(fid, auth.Amount)
	a.log.Log().WithField("fid", fid.String()).Debugf("Withdrew %v to %v", auth.Amount, auth.Receiver.Hex())
	a.feed.Emit(&event.WithdrawnEvent{
		FundingID: fid,
		Amount:    new(big.Int).Set(auth.Amount),
		Receiver:  auth.Receiver,
	})
}

func (a *AssetHolder) releasePending(fid wire.FundingID, amount *big.Int) {
	p, ok := a.pending[fid]
	if !ok {
		return
	}
	if p.Sub(p, amount).Sign() <= 0 {
		delete(a.pending, fid)
	}
}
