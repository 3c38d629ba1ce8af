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
	"context"
	"errors"

	"perun.network/go-perun/log"
	pkgsync "polycry.pt/poly-go/sync"
)

// DefaultBufferSize is the number of events a subscription buffers before it
// is dropped.
const DefaultBufferSize = 1024

// ErrSubscriptionOverflow is the error of a subscription that was dropped
// because its consumer fell behind.
var ErrSubscriptionOverflow = errors.New("subscription buffer overflow")

// Feed keeps the journal of all emitted events and fans them out to
// subscriptions.
type Feed struct {
	mu         pkgsync.Mutex
	journal    []Event
	subs       map[*Subscription]struct{}
	bufferSize int
	log        log.Embedding
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{
		subs:       make(map[*Subscription]struct{}),
		bufferSize: DefaultBufferSize,
		log:        log.MakeEmbedding(log.Default()),
	}
}

// SetBufferSize sets the buffer size of subscriptions created afterwards.
func (f *Feed) SetBufferSize(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bufferSize = n
}

// Emit appends ev to the journal and delivers it to all subscriptions.
// Emit never blocks: a subscription whose buffer is full is closed with
// ErrSubscriptionOverflow.
func (f *Feed) Emit(ev Event) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.journal = append(f.journal, ev)
	for sub := range f.subs {
		if sub.closer.IsClosed() {
			delete(f.subs, sub)
			continue
		}
		select {
		case sub.events <- ev:
		default:
			f.log.Log().Warnf("Dropping subscription after %d undelivered events", cap(sub.events))
			delete(f.subs, sub)
			sub.closeWithErr(ErrSubscriptionOverflow)
		}
	}
}

// Events returns a copy of the journal in emission order.
func (f *Feed) Events() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	evs := make([]Event, len(f.journal))
	copy(evs, f.journal)
	return evs
}

// Subscribe returns a subscription receiving all events emitted from now on.
func (f *Feed) Subscribe() *Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub := &Subscription{
		events: make(chan Event, f.bufferSize),
		closer: new(pkgsync.Closer),
	}
	f.subs[sub] = struct{}{}
	return sub
}

// Close closes all subscriptions.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for sub := range f.subs {
		sub.closeWithErr(nil)
	}
	f.subs = make(map[*Subscription]struct{})
}

// Subscription receives the events of a Feed.
type Subscription struct {
	events chan Event
	closer *pkgsync.Closer

	mu  pkgsync.Mutex
	err error
}

// Next blocks until the next event is available and returns it. It returns
// nil once the subscription is closed or ctx is done.
func (s *Subscription) Next(ctx context.Context) Event {
	if s.closer.IsClosed() {
		return nil
	}
	select {
	case ev := <-s.events:
		return ev
	case <-s.closer.Closed():
		return nil
	case <-ctx.Done():
		return nil
	}
}

// Close closes the subscription.
func (s *Subscription) Close() error {
	return s.closer.Close()
}

// Err returns the reason the subscription was closed by its feed, if any.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Subscription) closeWithErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.closer.Close() //nolint:errcheck
}
