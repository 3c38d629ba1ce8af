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

package event

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stellar/go/xdr"
	pchannel "perun.network/go-perun/channel"

	"perun.network/perun-assetholder/wire"
)

// Type enumerates the events emitted by an asset holder.
type Type int

const (
	TypeDeposited  Type = iota // holdings of a funding ID were increased
	TypeOutcomeSet             // channel was settled by the adjudicator
	TypeWithdrawn              // holdings were paid out to a receiver
)

// AssetHolderSymbol is the first topic of every asset holder event.
const AssetHolderSymbol = "perun"

var (
	typeTopics = map[Type]xdr.ScSymbol{
		TypeDeposited:  "deposit",
		TypeOutcomeSet: "outcome",
		TypeWithdrawn:  "withdraw",
	}
	topicTypes = map[xdr.ScSymbol]Type{
		"deposit":  TypeDeposited,
		"outcome":  TypeOutcomeSet,
		"withdraw": TypeWithdrawn,
	}

	ErrNotAssetHolderEvent = errors.New("event was not emitted by an asset holder")
	ErrEventUnsupported    = errors.New("this type of event is unsupported")
	ErrEventDecode         = errors.New("error while decoding event")
)

func (t Type) String() string {
	if s, ok := typeTopics[t]; ok {
		return string(s)
	}
	return fmt.Sprintf("unknown(%d)", int(t))
}

type (
	// Event is an event emitted by an asset holder.
	Event interface {
		Type() Type
	}

	// DepositedEvent is emitted when Amount is credited to FundingID.
	DepositedEvent struct {
		FundingID wire.FundingID
		Amount    *big.Int
	}

	// OutcomeSetEvent is emitted when the channel ChannelID is settled.
	OutcomeSetEvent struct {
		ChannelID pchannel.ID
	}

	// WithdrawnEvent is emitted when Amount of FundingID is paid to Receiver.
	WithdrawnEvent struct {
		FundingID wire.FundingID
		Amount    *big.Int
		Receiver  common.Address
	}
)

func (*DepositedEvent) Type() Type  { return TypeDeposited }
func (*OutcomeSetEvent) Type() Type { return TypeOutcomeSet }
func (*WithdrawnEvent) Type() Type  { return TypeWithdrawn }

func (e *DepositedEvent) String() string {
	return fmt.Sprintf("Deposited(%v, %v)", e.FundingID, e.Amount)
}

func (e *OutcomeSetEvent) String() string {
	return fmt.Sprintf("OutcomeSet(0x%x)", e.ChannelID)
}

func (e *WithdrawnEvent) String() string {
	return fmt.Sprintf("Withdrawn(%v, %v, %v)", e.FundingID, e.Amount, e.Receiver)
}
