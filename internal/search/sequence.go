package search

import "sync/atomic"

// Sequencer hands out increasing request tags so a response can be checked
// against the newest request issued.
type Sequencer struct {
	latest atomic.Uint64
}

func (s *Sequencer) Next() uint64 {
	return s.latest.Add(1)
}

// IsLatest reports whether no request newer than tag has been issued.
func (s *Sequencer) IsLatest(tag uint64) bool {
	return s.latest.Load() == tag
}

func (s *Sequencer) Latest() uint64 {
	return s.latest.Load()
}
