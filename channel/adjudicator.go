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

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	pchannel "perun.network/go-perun/channel"
	"perun.network/go-perun/log"
)

// ErrNotFinal is returned when concluding a non-final state.
var ErrNotFinal = errors.New("state is not final")

// Adjudicator concludes channels on an asset holder. It acts with the
// identity configured as the asset holder's adjudicator.
type Adjudicator struct {
	holder   *AssetHolder
	asset    *Asset
	identity common.Address
	log      log.Embedding
}

// NewAdjudicator creates an adjudicator acting as identity.
func NewAdjudicator(holder *AssetHolder, asset *Asset, identity common.Address) *Adjudicator {
	return &Adjudicator{
		holder:   holder,
		asset:    asset,
		identity: identity,
		log:      log.MakeEmbedding(log.Default()),
	}
}

// Conclude sets the outcome of the final state on the asset holder. parts
// are the identities of the channel participants in state order.
func (a *Adjudicator) Conclude(ctx context.Context, parts []common.Address, state *pchannel.State) error {
	if !state.IsFinal {
		return errors.WithMessagef(ErrNotFinal, "channel 0x%x version %d", state.ID, state.Version)
	}
	idx := assetIndex(state.Assets, a.asset)
	if idx < 0 {
		return errors.WithMessagef(ErrAssetNotFound, "%v", a.asset)
	}
	a.log.Log().Infof("Concluding channel 0x%x at version %d", state.ID, state.Version)
	return a.holder.SetOutcome(ctx, a.identity, state.ID, parts, state.Balances[idx])
}
