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
)

type (
	// Call describes the invocation of a payable operation: the calling
	// identity and the native value it attached.
	Call struct {
		From  common.Address
		Value *big.Int
	}

	// TransferBackend moves value into and out of the asset holder.
	TransferBackend interface {
		// Credit pulls amount from call.From into the asset holder. It fails
		// with ErrAmountMismatch if the transferred value is not amount.
		Credit(ctx context.Context, call Call, amount *big.Int) error
		// Pay transfers amount from the asset holder to receiver.
		Pay(ctx context.Context, receiver common.Address, amount *big.Int) error
	}
)

// NewCall returns a call from the given identity carrying value. A nil value
// is treated as zero.
func NewCall(from common.Address, value *big.Int) Call {
	if value == nil {
		value = new(big.Int)
	}
	return Call{From: from, Value: value}
}

// ValueOrZero returns the attached value, zero if none.
func (c Call) ValueOrZero() *big.Int {
	if c.Value == nil {
		return new(big.Int)
	}
	return c.Value
}
