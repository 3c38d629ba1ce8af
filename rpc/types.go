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
package rpc

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	pchannel "perun.network/go-perun/channel"

	"perun.network/perun-assetholder/event"
	"perun.network/perun-assetholder/store"
	"perun.network/perun-assetholder/wire"
)

// Amounts are encoded as JSON numbers.
type (
	InfoResponse struct {
		Adjudicator common.Address `json:"adjudicator"`
	}

	HoldingResponse struct {
		FundingID common.Hash `json:"funding_id"`
		Amount    *big.Int    `json:"amount"`
	}

	FundingResponse struct {
		ChannelID   common.Hash    `json:"channel_id"`
		Participant common.Address `json:"participant"`
		FundingID   common.Hash    `json:"funding_id"`
		Amount      *big.Int       `json:"amount"`
	}

	OutcomeResponse struct {
		Participants []common.Address `json:"participants"`
		FundingIDs   []common.Hash    `json:"funding_ids"`
		Balances     []*big.Int       `json:"balances"`
		Payouts      []*big.Int       `json:"payouts"`
	}

	ChannelResponse struct {
		ChannelID common.Hash      `json:"channel_id"`
		Settled   bool             `json:"settled"`
		Outcome   *OutcomeResponse `json:"outcome,omitempty"`
	}

	// EventResponse is the JSON form of an asset holder event. Index is the
	// position of the event in the journal.
	EventResponse struct {
		Index     int             `json:"index"`
		Type      string          `json:"type"`
		FundingID *common.Hash    `json:"funding_id,omitempty"`
		ChannelID *common.Hash    `json:"channel_id,omitempty"`
		Amount    *big.Int        `json:"amount,omitempty"`
		Receiver  *common.Address `json:"receiver,omitempty"`
	}

	AuthorizationJSON struct {
		ChannelID   common.Hash    `json:"channel_id"`
		Participant common.Address `json:"participant"`
		Receiver    common.Address `json:"receiver"`
		Amount      *big.Int       `json:"amount"`
	}

	// WithdrawRequest carries a signed authorization either as JSON fields
	// or ABI encoded in Encoded. Exactly one of both must be set.
	WithdrawRequest struct {
		Authorization *AuthorizationJSON `json:"authorization,omitempty"`
		Encoded       hexutil.Bytes      `json:"encoded,omitempty"`
		Signature     hexutil.Bytes      `json:"signature"`
	}

	ErrorResponse struct {
		Message string `json:"message"`
	}
)

// NewAuthorizationJSON converts auth into its JSON form.
func NewAuthorizationJSON(auth wire.Authorization) *AuthorizationJSON {
	return &AuthorizationJSON{
		ChannelID:   common.Hash(auth.ChannelID),
		Participant: auth.Participant,
		Receiver:    auth.Receiver,
		Amount:      auth.Amount,
	}
}

// Authorization converts a back into an authorization.
func (a AuthorizationJSON) Authorization() wire.Authorization {
	return wire.Authorization{
		ChannelID:   pchannel.ID(a.ChannelID),
		Participant: a.Participant,
		Receiver:    a.Receiver,
		Amount:      a.Amount,
	}
}

// NewEncodedWithdrawRequest returns a request carrying the ABI encoding of
// auth.
func NewEncodedWithdrawRequest(auth wire.Authorization, sig []byte) (WithdrawRequest, error) {
	enc, err := auth.Encode()
	if err != nil {
		return WithdrawRequest{}, err
	}
	return WithdrawRequest{Encoded: enc, Signature: sig}, nil
}

// DecodeAuthorization returns the authorization of the request.
func (r WithdrawRequest) DecodeAuthorization() (wire.Authorization, error) {
	switch {
	case r.Authorization != nil && len(r.Encoded) > 0:
		return wire.Authorization{}, errors.New("both authorization and encoded set")
	case len(r.Encoded) > 0:
		return wire.DecodeAuthorization(r.Encoded)
	case r.Authorization != nil:
		return r.Authorization.Authorization(), nil
	default:
		return wire.Authorization{}, errors.New("missing authorization")
	}
}

func newOutcomeResponse(o *store.Outcome) *OutcomeResponse {
	fids := make([]common.Hash, len(o.FundingIDs))
	for i, fid := range o.FundingIDs {
		fids[i] = common.Hash(fid)
	}
	return &OutcomeResponse{
		Participants: o.Participants,
		FundingIDs:   fids,
		Balances:     o.Balances,
		Payouts:      o.Payouts,
	}
}

// NewEventResponse converts the event at position index of the journal.
func NewEventResponse(index int, ev event.Event) EventResponse {
	resp := EventResponse{Index: index, Type: ev.Type().String()}
	switch e := ev.(type) {
	case *event.DepositedEvent:
		fid := common.Hash(e.FundingID)
		resp.FundingID, resp.Amount = &fid, e.Amount
	case *event.OutcomeSetEvent:
		cid := common.Hash(e.ChannelID)
		resp.ChannelID = &cid
	case *event.WithdrawnEvent:
		fid, recv := common.Hash(e.FundingID), e.Receiver
		resp.FundingID, resp.Amount, resp.Receiver = &fid, e.Amount, &recv
	}
	return resp
}

// Event converts r back into an event.
func (r EventResponse) Event() (event.Event, error) {
	switch r.Type {
	case event.TypeDeposited.String():
		if r.FundingID == nil {
			return nil, event.ErrEventDecode
		}
		return &event.DepositedEvent{FundingID: wire.FundingID(*r.FundingID), Amount: r.Amount}, nil
	case event.TypeOutcomeSet.String():
		if r.ChannelID == nil {
			return nil, event.ErrEventDecode
		}
		return &event.OutcomeSetEvent{ChannelID: pchannel.ID(*r.ChannelID)}, nil
	case event.TypeWithdrawn.String():
		if r.FundingID == nil || r.Receiver == nil {
			return nil, event.ErrEventDecode
		}
		return &event.WithdrawnEvent{FundingID: wire.FundingID(*r.FundingID), Amount: r.Amount, Receiver: *r.Receiver}, nil
	default:
		return nil, event.ErrEventUnsupported
	}
}
