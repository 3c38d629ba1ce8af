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
	"errors"

	"perun.network/perun-assetholder/wallet"
)

var (
	// ErrUnauthorized is returned if a privileged operation is called by
	// someone other than the adjudicator.
	ErrUnauthorized = errors.New("can only be called by the adjudicator")
	// ErrAlreadySettled is returned on attempts to settle a channel twice or
	// to deposit into a settled funding ID.
	ErrAlreadySettled = errors.New("trying to set already settled channel")
	// ErrLengthMismatch is returned if the numbers of participants and
	// balances of an outcome differ.
	ErrLengthMismatch = errors.New("participants and balances length mismatch")
	// ErrAmountMismatch is returned if the value transferred with a deposit
	// differs from the declared amount.
	ErrAmountMismatch = errors.New("transferred value does not match deposit amount")
	// ErrInsufficientFunds is returned if a withdrawal exceeds the holdings.
	ErrInsufficientFunds = errors.New("insufficient holdings")
	// ErrInvalidSignature is returned for malformed withdrawal signatures and
	// for signatures not made by the participant.
	ErrInvalidSignature = wallet.ErrInvalidSignature
	// ErrOverflow is returned for amounts that do not fit into 256 bits.
	ErrOverflow = errors.New("amount overflows uint256")
	// ErrWithdrawalPending is returned by SetOutcome while a payout from one
	// of the channel's funding IDs is in flight. The call may be retried.
	ErrWithdrawalPending = errors.New("withdrawal in progress")
)
