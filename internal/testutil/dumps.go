package testutil

import (
	"sync"

	"github.com/roach88/blitcore/internal/device/hw"
)

// Dump is one recorded device dump.
type Dump struct {
	Seq  uint64
	Kind string
	Body string
}

// DumpSink keeps device dumps in memory.
type DumpSink struct {
	mu    sync.Mutex
	dumps []Dump
}

var _ hw.DumpSink = (*DumpSink)(nil)

// WriteDump implements hw.DumpSink.
func (s *DumpSink) WriteDump(seq uint64, kind, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dumps = append(s.dumps, Dump{Seq: seq, Kind: kind, Body: body})
	return nil
}

// Dumps returns every dump in write order.
func (s *DumpSink) Dumps() []Dump {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Dump(nil), s.dumps...)
}

// Kinds returns the kind of every dump in write order.
func (s *DumpSink) Kinds() []string {
	var kinds []string
	for _, d := range s.Dumps() {
		kinds = append(kinds, d.Kind)
	}
	return kinds
}

// ForSeq returns the dumps written for seq.
func (s *DumpSink) ForSeq(seq uint64) []Dump {
	var out []Dump
	for _, d := range s.Dumps() {
		if d.Seq == seq {
			out = append(out, d)
		}
	}
	return out
}
