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

package wire

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/stellar/go/xdr"
)

// MakeUInt256Parts converts an amount to xdr.UInt256Parts.
// It returns ErrAmountRange if the amount is negative or too large.
func MakeUInt256Parts(i *big.Int) (xdr.UInt256Parts, error) {
	if err := CheckAmount(i); err != nil {
		return xdr.UInt256Parts{}, err
	}
	u, _ := uint256.FromBig(i)
	return xdr.UInt256Parts{
		HiHi: xdr.Uint64(u[3]),
		HiLo: xdr.Uint64(u[2]),
		LoHi: xdr.Uint64(u[1]),
		LoLo: xdr.Uint64(u[0]),
	}, nil
}

// UInt256PartsToBig converts xdr.UInt256Parts to a big.Int.
func UInt256PartsToBig(p xdr.UInt256Parts) *big.Int {
	u := uint256.Int{uint64(p.LoLo), uint64(p.LoHi), uint64(p.HiLo), uint64(p.HiHi)}
	return u.ToBig()
}
