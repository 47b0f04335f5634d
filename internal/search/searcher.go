// Package search implements search-as-you-type against the backend: input is
// debounced and responses that resolve after a newer request are dropped.
package search

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/posterminal/pkg/logger"
)

var (
	// ErrSuperseded is delivered to a query replaced by newer input before it was sent.
	ErrSuperseded = errors.New("search superseded by newer input")
	// ErrStale is delivered when a response arrives after a newer request was issued.
	ErrStale = errors.New("search response is stale")
)

type Kind string

const (
	KindItems     Kind = "items"
	KindDealers   Kind = "dealers"
	KindInventory Kind = "inventory"
	KindCustomers Kind = "customers"
)

func ParseKind(raw string) (Kind, bool) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(raw))); k {
	case KindItems, KindDealers, KindInventory, KindCustomers:
		return k, true
	default:
		return "", false
	}
}

// LookupFunc performs one remote search.
type LookupFunc[T any] func(ctx context.Context, query string) ([]T, error)

type Result[T any] struct {
	Query string
	Seq   uint64
	Items []T
	Err   error
}

// Searcher ties a Debouncer and a Sequencer to a lookup so only the freshest
// results are delivered.
type Searcher[T any] struct {
	kind      Kind
	lookup    LookupFunc[T]
	debouncer *Debouncer
	seq       Sequencer
	logger    *logger.Logger

	mu        sync.Mutex
	waiting   *pending[T]
	pendingID uint64
}

type pending[T any] struct {
	id      uint64
	query   string
	deliver func(Result[T])
}

func NewSearcher[T any](kind Kind, quiet time.Duration, lookup LookupFunc[T], logg *logger.Logger) *Searcher[T] {
	return &Searcher[T]{
		kind:      kind,
		lookup:    lookup,
		debouncer: NewDebouncer(quiet),
		logger:    logg,
	}
}

func (s *Searcher[T]) Kind() Kind {
	return s.kind
}

// Submit schedules query. deliver is called exactly once: with results, with
// ErrSuperseded if newer input replaces it during the quiet period, or with
// ErrStale if a newer request was issued while this one was in flight.
func (s *Searcher[T]) Submit(ctx context.Context, query string, deliver func(Result[T])) {
	query = strings.TrimSpace(query)

	s.mu.Lock()
	prev := s.waiting
	s.waiting = nil
	if query == "" {
		s.debouncer.Stop()
	} else {
		s.pendingID++
		id := s.pendingID
		s.waiting = &pending[T]{id: id, query: query, deliver: deliver}
		s.debouncer.Schedule(func() { s.fire(ctx, id) })
	}
	s.mu.Unlock()

	if prev != nil {
		prev.deliver(Result[T]{Query: prev.query, Err: ErrSuperseded})
	}
	if query == "" {
		// Clearing the box invalidates anything still in flight.
		deliver(Result[T]{Seq: s.seq.Next()})
	}
}

func (s *Searcher[T]) fire(ctx context.Context, id uint64) {
	s.mu.Lock()
	p := s.waiting
	if p == nil || p.id != id {
		s.mu.Unlock()
		return
	}
	s.waiting = nil
	s.mu.Unlock()
	s.run(ctx, p.query, p.deliver)
}

// Search is the blocking form of Submit.
func (s *Searcher[T]) Search(ctx context.Context, query string) (Result[T], error) {
	ch := make(chan Result[T], 1)
	s.Submit(ctx, query, func(r Result[T]) { ch <- r })
	select {
	case r := <-ch:
		return r, r.Err
	case <-ctx.Done():
		return Result[T]{Query: query}, ctx.Err()
	}
}

// Cancel drops any pending query.
func (s *Searcher[T]) Cancel() {
	s.mu.Lock()
	prev := s.waiting
	s.waiting = nil
	s.debouncer.Stop()
	s.mu.Unlock()
	if prev != nil {
		prev.deliver(Result[T]{Query: prev.query, Err: ErrSuperseded})
	}
}

func (s *Searcher[T]) run(ctx context.Context, query string, deliver func(Result[T])) {
	if err := ctx.Err(); err != nil {
		deliver(Result[T]{Query: query, Err: err})
		return
	}
	tag := s.seq.Next()
	items, err := s.lookup(ctx, query)
	if !s.seq.IsLatest(tag) {
		s.logger.Debug(s.logger.WithFields(ctx, map[string]any{"kind": string(s.kind), "seq": tag}), "discarding stale search response")
		deliver(Result[T]{Query: query, Seq: tag, Err: ErrStale})
		return
	}
	deliver(Result[T]{Query: query, Seq: tag, Items: items, Err: err})
}
