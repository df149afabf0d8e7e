package tiling

import "sync/atomic"

// Stats accumulates the run-wide processed/accepted/rejected counters §7's
// final summary is built from: for every run, accepted+rejected=processed.
type Stats struct {
	processed atomic.Int64
	accepted  atomic.Int64
	rejected  atomic.Int64
}

func (s *Stats) AddProcessed(n int) { s.processed.Add(int64(n)) }
func (s *Stats) AddAccepted(n int)  { s.accepted.Add(int64(n)) }
func (s *Stats) AddRejected(n int)  { s.rejected.Add(int64(n)) }

func (s *Stats) Processed() int64 { return s.processed.Load() }
func (s *Stats) Accepted() int64  { return s.accepted.Load() }
func (s *Stats) Rejected() int64  { return s.rejected.Load() }
