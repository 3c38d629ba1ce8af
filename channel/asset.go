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
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	pchannel "perun.network/go-perun/channel"
)

// AssetLen is the length of a binary encoded Asset.
const AssetLen = 2 * common.AddressLength

var _ pchannel.Asset = (*Asset)(nil)

// Asset identifies the asset managed by an asset holder. Holder is the
// identity of the asset holder, Token the token contract or the zero address
// for the native currency.
type Asset struct {
	Holder common.Address
	Token  common.Address
}

// NewNativeAsset returns the native currency asset held by holder.
func NewNativeAsset(holder common.Address) *Asset {
	return &Asset{Holder: holder}
}

// NewTokenAsset returns the token asset held by holder.
func NewTokenAsset(holder, token common.Address) *Asset {
	return &Asset{Holder: holder, Token: token}
}

// IsNative reports whether deposits of the asset carry native value.
func (a Asset) IsNative() bool {
	return a.Token == common.Address{}
}

// MarshalBinary encodes the asset as Holder ‖ Token.
func (a Asset) MarshalBinary() ([]byte, error) {
	data := make([]byte, 0, AssetLen)
	data = append(data, a.Holder[:]...)
	return append(data, a.Token[:]...), nil
}

// UnmarshalBinary decodes an asset encoded with MarshalBinary.
func (a *Asset) UnmarshalBinary(data []byte) error {
	if len(data) != AssetLen {
		return fmt.Errorf("asset has length %d, want %d", len(data), AssetLen)
	}
	copy(a.Holder[:], data[:common.AddressLength])
	copy(a.Token[:], data[common.AddressLength:])
	return nil
}

// Equal returns true if asset is an *Asset with the same holder and token.
func (a Asset) Equal(asset pchannel.Asset) bool {
	other, ok := asset.(*Asset)
	return ok && other != nil && a == *other
}

func (a Asset) String() string {
	if a.IsNative() {
		return fmt.Sprintf("native@%s", a.Holder.Hex())
	}
	return fmt.Sprintf("%s@%s", a.Token.Hex(), a.Holder.Hex())
}

// assetIndex returns the index of asset in assets or -1.
func assetIndex(assets []pchannel.Asset, asset *Asset) int {
	for i, as := range assets {
		if asset.Equal(as) {
			return i
		}
	}
	return -1
}
