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

	"github.com/ethereum/go-ethereum/common/hexutil"
	pchannel "perun.network/go-perun/channel"
	"perun.network/go-perun/log"
	pkgsync "polycry.pt/poly-go/sync"

	"perun.network/perun-assetholder/event"
)

var _ pchannel.AdjudicatorSubscription = (*AdjEventSub)(nil)

// AdjEventSub reports the conclusion of one channel on an asset holder. Its
// single event is a pchannel.ConcludedEvent.
type AdjEventSub struct {
	cid    pchannel.ID
	sub    *event.Subscription
	events chan pchannel.AdjudicatorEvent
	mu     pkgsync.Mutex
	err    error
	cancel context.CancelFunc
	closer *pkgsync.Closer
	log    log.Embedding
}

// Subscribe returns a subscription to the conclusion of cid. If cid is
// already settled the event is available immediately.
func (a *Adjudicator) Subscribe(ctx context.Context, cid pchannel.ID) (pchannel.AdjudicatorSubscription, error) {
	return newAdjEventSub(ctx, a.holder, cid)
}

func newAdjEventSub(ctx context.Context, holder *AssetHolder, cid pchannel.ID) (*AdjEventSub, error) {
	// Subscribe before checking the store so no settlement is missed.
	sub := holder.Subscribe()
	settled, err := holder.Settled(cid)
	if err != nil {
		_ = sub.Close()
		return nil, err
	}
	s := &AdjEventSub{
		cid:    cid,
		sub:    sub,
		events: make(chan pchannel.AdjudicatorEvent, 1),
		closer: new(pkgsync.Closer),
		log:    log.MakeEmbedding(log.WithField("channel", hexutil.Encode(cid[:]))),
	}
	ctx, s.cancel = context.WithCancel(ctx)
	go s.run(ctx, settled)
	return s, nil
}

func (s *AdjEventSub) run(ctx context.Context, settled bool) {
	defer close(s.events)
	for !settled {
		ev := s.sub.Next(ctx)
		if ev == nil {
			s.mu.Lock()
			s.err = s.sub.Err()
			s.mu.Unlock()
			return
		}
		if e, ok := ev.(*event.OutcomeSetEvent); ok && e.ChannelID == s.cid {
			settled = true
		}
	}
	s.log.Log().Debug("Channel concluded")
	s.events <- &pchannel.ConcludedEvent{
		AdjudicatorEventBase: pchannel.AdjudicatorEventBase{
			IDV:      s.cid,
			TimeoutV: &pchannel.ElapsedTimeout{},
		},
	}
}

// Next blocks until the channel is concluded and returns the conclusion
// event. It returns nil once the event was consumed or the subscription is
// closed.
func (s *AdjEventSub) Next() pchannel.AdjudicatorEvent {
	if s.closer.IsClosed() {
		return nil
	}
	select {
	case ev := <-s.events:
		return ev
	case <-s.closer.Closed():
		return nil
	}
}

func (s *AdjEventSub) Close() error {
	if err := s.closer.Close(); err != nil {
		return err
	}
	s.cancel()
	// The feed closes subscriptions that overflow.
	_ = s.sub.Close()
	return nil
}

// Err returns the error the subscription ended with. It is only valid after
// Next returned nil.
func (s *AdjEventSub) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
