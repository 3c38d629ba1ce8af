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
	"bytes"
	"encoding/base64"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	perrors "github.com/pkg/errors"
	xdr3 "github.com/stellar/go-xdr/xdr3"
	"github.com/stellar/go/xdr"

	"perun.network/perun-assetholder/wire"
	"perun.network/perun-assetholder/wire/scval"
)

const (
	SymbolFundingID xdr.ScSymbol = "fid"
	SymbolChannelID xdr.ScSymbol = "cid"
	SymbolAmount    xdr.ScSymbol = "amount"
	SymbolReceiver  xdr.ScSymbol = "receiver"
)

// MarshalEvent encodes ev as a contract event with topics
// [AssetHolderSymbol, <type>] and an ScMap body.
func MarshalEvent(ev Event) (xdr.ContractEvent, error) {
	topic, ok := typeTopics[ev.Type()]
	if !ok {
		return xdr.ContractEvent{}, ErrEventUnsupported
	}

	var (
		keys   []xdr.ScSymbol
		values []xdr.ScVal
	)
	switch e := ev.(type) {
	case *DepositedEvent:
		amount, err := wrapAmount(e.Amount)
		if err != nil {
			return xdr.ContractEvent{}, err
		}
		keys = []xdr.ScSymbol{SymbolFundingID, SymbolAmount}
		values = []xdr.ScVal{scval.MustWrapScBytes(e.FundingID[:]), amount}
	case *OutcomeSetEvent:
		keys = []xdr.ScSymbol{SymbolChannelID}
		values = []xdr.ScVal{scval.MustWrapScBytes(e.ChannelID[:])}
	case *WithdrawnEvent:
		amount, err := wrapAmount(e.Amount)
		if err != nil {
			return xdr.ContractEvent{}, err
		}
		keys = []xdr.ScSymbol{SymbolFundingID, SymbolAmount, SymbolReceiver}
		values = []xdr.ScVal{scval.MustWrapScBytes(e.FundingID[:]), amount, scval.MustWrapScBytes(e.Receiver[:])}
	default:
		return xdr.ContractEvent{}, ErrEventUnsupported
	}

	m, err := wire.MakeSymbolScMap(keys, values)
	if err != nil {
		return xdr.ContractEvent{}, err
	}
	data, err := scval.WrapScMap(m)
	if err != nil {
		return xdr.ContractEvent{}, err
	}
	return xdr.ContractEvent{
		Type: xdr.ContractEventTypeContract,
		Body: xdr.ContractEventBody{
			V: 0,
			V0: &xdr.ContractEventV0{
				Topics: []xdr.ScVal{
					scval.MustWrapScSymbol(AssetHolderSymbol),
					scval.MustWrapScSymbol(topic),
				},
				Data: data,
			},
		},
	}, nil
}

// UnmarshalEvent decodes a contract event produced by MarshalEvent.
func UnmarshalEvent(ce xdr.ContractEvent) (Event, error) {
	if ce.Body.V0 == nil {
		return nil, ErrNotAssetHolderEvent
	}
	topics := ce.Body.V0.Topics
	if len(topics) < 2 { //nolint:gomnd
		return nil, ErrNotAssetHolderEvent
	}
	if sym, ok := topics[0].GetSym(); !ok || sym != AssetHolderSymbol {
		return nil, ErrNotAssetHolderEvent
	}
	fn, ok := topics[1].GetSym()
	if !ok {
		return nil, ErrNotAssetHolderEvent
	}
	typ, found := topicTypes[fn]
	if !found {
		return nil, ErrEventUnsupported
	}

	mp, ok := ce.Body.V0.Data.GetMap()
	if !ok || mp == nil {
		return nil, perrors.WithMessage(ErrEventDecode, "expected map")
	}
	m := *mp

	switch typ {
	case TypeDeposited:
		fid, amount, err := decodeFunding(m)
		if err != nil {
			return nil, err
		}
		return &DepositedEvent{FundingID: fid, Amount: amount}, nil
	case TypeOutcomeSet:
		cid, err := wire.GetBytes32FromSymbol(SymbolChannelID, m)
		if err != nil {
			return nil, perrors.WithMessage(ErrEventDecode, err.Error())
		}
		return &OutcomeSetEvent{ChannelID: cid}, nil
	case TypeWithdrawn:
		fid, amount, err := decodeFunding(m)
		if err != nil {
			return nil, err
		}
		recv, err := wire.GetBytes20FromSymbol(SymbolReceiver, m)
		if err != nil {
			return nil, perrors.WithMessage(ErrEventDecode, err.Error())
		}
		return &WithdrawnEvent{FundingID: fid, Amount: amount, Receiver: common.Address(recv)}, nil
	}
	return nil, ErrEventUnsupported
}

// MarshalBinary returns the XDR encoding of ev as a contract event.
func MarshalBinary(ev Event) ([]byte, error) {
	ce, err := MarshalEvent(ev)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := ce.EncodeTo(xdr3.NewEncoder(&buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes an event encoded with MarshalBinary.
func UnmarshalBinary(data []byte) (Event, error) {
	var ce xdr.ContractEvent
	n, err := xdr3.NewDecoder(bytes.NewReader(data)).Decode(&ce)
	if err != nil {
		return nil, perrors.WithMessage(ErrEventDecode, err.Error())
	}
	if n != len(data) {
		return nil, perrors.WithMessagef(ErrEventDecode, "%d trailing bytes", len(data)-n)
	}
	return UnmarshalEvent(ce)
}

// EncodeBase64 returns the base64 XDR encoding of ev.
func EncodeBase64(ev Event) (string, error) {
	data, err := MarshalBinary(ev)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodeBase64 decodes an event encoded with EncodeBase64.
func DecodeBase64(s string) (Event, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, perrors.WithMessage(ErrEventDecode, err.Error())
	}
	return UnmarshalBinary(data)
}

func wrapAmount(amount *big.Int) (xdr.ScVal, error) {
	parts, err := wire.MakeUInt256Parts(amount)
	if err != nil {
		return xdr.ScVal{}, err
	}
	return scval.WrapUInt256Parts(parts)
}

func decodeFunding(m xdr.ScMap) (wire.FundingID, *big.Int, error) {
	fid, err := wire.GetBytes32FromSymbol(SymbolFundingID, m)
	if err != nil {
		return wire.FundingID{}, nil, perrors.WithMessage(ErrEventDecode, err.Error())
	}
	v, err := wire.GetScMapValueFromSymbol(SymbolAmount, m)
	if err != nil {
		return wire.FundingID{}, nil, perrors.WithMessage(ErrEventDecode, err.Error())
	}
	parts, ok := v.GetU256()
	if !ok {
		return wire.FundingID{}, nil, perrors.WithMessage(ErrEventDecode, "expected u256 amount")
	}
	return fid, wire.UInt256PartsToBig(parts), nil
}
