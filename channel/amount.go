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
	"math/big"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

func toUint256(x *big.Int) (*uint256.Int, error) {
	if x == nil || x.Sign() < 0 {
		return nil, errors.WithMessage(ErrOverflow, "negative or missing amount")
	}
	u, overflow := uint256.FromBig(x)
	if overflow {
		return nil, errors.WithMessagef(ErrOverflow, "amount %v", x)
	}
	return u, nil
}

// addAmounts returns x+y and fails with ErrOverflow if the sum does not fit
// into 256 bits.
func addAmounts(x, y *big.Int) (*big.Int, error) {
	ux, err := toUint256(x)
	if err != nil {
		return nil, err
	}
	uy, err := toUint256(y)
	if err != nil {
		return nil, err
	}
	sum, overflow := new(uint256.Int).AddOverflow(ux, uy)
	if overflow {
		return nil, errors.WithMessagef(ErrOverflow, "%v + %v", x, y)
	}
	return sum.ToBig(), nil
}

func sumAmounts(xs []*big.Int) (*big.Int, error) {
	sum := new(big.Int)
	for _, x := range xs {
		var err error
		if sum, err = addAmounts(sum, x); err != nil {
			return nil, err
		}
	}
	return sum, nil
}

func minAmount(x, y *big.Int) *big.Int {
	if x.Cmp(y) <= 0 {
		return new(big.Int).Set(x)
	}
	return new(big.Int).Set(y)
}
