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

// Package channel implements the asset holder of Perun payment channels: a
// ledger that collects deposits per channel participant, applies the final
// outcome declared by the adjudicator and pays out settled balances against
// signed withdrawal authorizations.
// The Funder and Adjudicator types connect the asset holder to go-perun
// channel clients.
package channel
