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

	"perun.network/perun-assetholder/wire"
)

// ErrAssetNotFound is returned if a channel state does not contain the asset
// of a Funder or Adjudicator.
var ErrAssetNotFound = errors.New("asset not part of channel state")

var _ pchannel.Funder = (*Funder)(nil)

// Funder deposits the balance of one participant into an asset holder.
type Funder struct {
	holder      *AssetHolder
	asset       *Asset
	participant common.Address
	log         log.Embedding
}

// NewFunder creates a funder that deposits on behalf of participant.
func NewFunder(holder *AssetHolder, asset *Asset, participant common.Address) *Funder {
	return &Funder{
		holder:      holder,
		asset:       asset,
		participant: participant,
		log:         log.MakeEmbedding(log.WithField("participant", participant.Hex())),
	}
}

// Fund tops up the holdings of the funder's participant in req.State.ID to
// its balance in req.State. Nothing is deposited if the balance is zero or
// already held.
func (f *Funder) Fund(ctx context.Context, req pchannel.FundingReq) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	idx := assetIndex(req.State.Assets, f.asset)
	if idx < 0 {
		return errors.WithMessagef(ErrAssetNotFound, "%v", f.asset)
	}
	if int(req.Idx) >= len(req.State.Balances[idx]) {
		return errors.Errorf("participant index %d out of range", req.Idx)
	}
	bal := req.State.Balances[idx][req.Idx]
	if bal.Sign() == 0 {
		f.log.Log().Debug("Nothing to fund")
		return nil
	}

	fid := wire.CalcFundingID(req.State.ID, f.participant)
	held, err := f.holder.Holdings(fid)
	if err != nil {
		return err
	}
	if held.Cmp(bal) >= 0 {
		f.log.Log().Debugf("Channel 0x%x already funded", req.State.ID)
		return nil
	}

	amount := new(big.Int).Sub(bal, held)
	value := new(big.Int)
	if f.asset.IsNative() {
		value.Set(amount)
	}
	f.log.Log().Infof("Funding channel 0x%x with %v", req.State.ID, amount)
	return f.holder.Deposit(ctx, Call{From: f.participant, Value: value}, fid, amount)
}
