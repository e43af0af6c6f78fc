// Package datasource tracks live queries by cache tag and re-runs them
// when a write invalidates one of their tags.
//
// Each subscription owns a generation counter. Starting a fetch bumps the
// generation and cancels the previous in-flight fetch; a result is only
// delivered if its generation is still current, so a slow, superseded
// response can never overwrite a newer one.
package datasource

import (
	"context"
	"slices"
	"sync"

	"github.com/rs/zerolog"
)

// Tag names a group of cached reads.
type Tag string

// Fetch performs one read. It must honour ctx cancellation.
type Fetch func(ctx context.Context) (any, error)

// Result is what a subscriber receives after a fetch completes.
type Result struct {
	Generation uint64
	Value      any
	Err        error
}

// Source owns the set of live subscriptions.
type Source struct {
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	subs   map[*Subscription]struct{}
	log    zerolog.Logger
}

// New creates an empty Source.
func New(log zerolog.Logger) *Source {
	ctx, cancel := context.WithCancel(context.Background())
	return &Source{
		ctx:    ctx,
		cancel: cancel,
		subs:   make(map[*Subscription]struct{}),
		log:    log,
	}
}

// Subscription is one live read. Its fetch is re-run on Refresh, Reset,
// or when any of its tags is invalidated.
type Subscription struct {
	src    *Source
	tags   []Tag
	notify func(Result)

	// guarded by src.mu
	fetch    Fetch
	gen      uint64
	inFlight context.CancelFunc
	closed   bool

	// serializes deliveries so generations arrive in order
	deliver sync.Mutex
}

// Subscribe registers a read under tags and starts its first fetch.
// notify is called from a background goroutine.
func (s *Source) Subscribe(tags []Tag, fetch Fetch, notify func(Result)) *Subscription {
	sub := &Subscription{
		src:    s,
		tags:   slices.Clone(tags),
		notify: notify,
		fetch:  fetch,
	}
	s.mu.Lock()
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	sub.start(nil)
	return sub
}

// Invalidate re-runs every open subscription carrying any of tags and
// returns how many were refreshed.
func (s *Source) Invalidate(tags ...Tag) int {
	s.mu.Lock()
	var stale []*Subscription
	for sub := range s.subs {
		if sub.hasAny(tags) {
			stale = append(stale, sub)
		}
	}
	s.mu.Unlock()

	for _, sub := range stale {
		sub.start(nil)
	}
	s.log.Debug().Strs("tags", tagStrings(tags)).Int("refetched", len(stale)).Msg("invalidated")
	return len(stale)
}

// Len returns the number of open subscriptions.
func (s *Source) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Close cancels all in-flight fetches and drops every subscription.
func (s *Source) Close() {
	s.mu.Lock()
	subs := make([]*Subscription, 0, len(s.subs))
	for sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
	s.cancel()
}

// Refresh re-runs the current fetch.
func (sub *Subscription) Refresh() {
	sub.start(nil)
}

// Reset replaces the fetch (new parameters) and runs it. Any fetch still
// in flight is cancelled and its result discarded.
func (sub *Subscription) Reset(fetch Fetch) {
	sub.start(fetch)
}

// Generation returns the generation of the most recently started fetch.
func (sub *Subscription) Generation() uint64 {
	sub.src.mu.Lock()
	defer sub.src.mu.Unlock()
	return sub.gen
}

// Close stops the subscription. No further results are delivered.
func (sub *Subscription) Close() {
	s := sub.src
	s.mu.Lock()
	if sub.closed {
		s.mu.Unlock()
		return
	}
	sub.closed = true
	if sub.inFlight != nil {
		sub.inFlight()
		sub.inFlight = nil
	}
	delete(s.subs, sub)
	s.mu.Unlock()
}

func (sub *Subscription) start(fetch Fetch) {
	s := sub.src
	s.mu.Lock()
	if sub.closed {
		s.mu.Unlock()
		return
	}
	if fetch != nil {
		sub.fetch = fetch
	}
	if sub.inFlight != nil {
		sub.inFlight()
	}
	sub.gen++
	gen := sub.gen
	run := sub.fetch
	ctx, cancel := context.WithCancel(s.ctx)
	sub.inFlight = cancel
	s.mu.Unlock()

	go func() {
		defer cancel()
		value, err := run(ctx)
		sub.finish(gen, value, err)
	}()
}

func (sub *Subscription) finish(gen uint64, value any, err error) {
	sub.deliver.Lock()
	defer sub.deliver.Unlock()

	s := sub.src
	s.mu.Lock()
	current := !sub.closed && gen == sub.gen
	if current {
		sub.inFlight = nil
	}
	s.mu.Unlock()

	if !current {
		s.log.Debug().Uint64("generation", gen).Msg("discarded superseded result")
		return
	}
	sub.notify(Result{Generation: gen, Value: value, Err: err})
}

func (sub *Subscription) hasAny(tags []Tag) bool {
	for _, t := range tags {
		if slices.Contains(sub.tags, t) {
			return true
		}
	}
	return false
}

func tagStrings(tags []Tag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = string(t)
	}
	return out
}
