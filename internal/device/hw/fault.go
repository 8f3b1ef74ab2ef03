package hw

import (
	"fmt"
	"strings"
	"sync"
)

// Fault is an injected completion failure.
type Fault int

const (
	FaultNone Fault = iota
	// FaultHang: the transfer never finishes. No status, no interrupt.
	FaultHang
	// FaultLostIRQ: the transfer finishes and sets its status bit, but the
	// completion interrupt is never delivered.
	FaultLostIRQ
)

var faultNames = []string{"none", "hang", "lost_irq"}

func (f Fault) String() string {
	if f < 0 || int(f) >= len(faultNames) {
		return fmt.Sprintf("Fault(%d)", int(f))
	}
	return faultNames[f]
}

// ParseFault parses a fault name.
func ParseFault(s string) (Fault, error) {
	n := strings.ToLower(strings.TrimSpace(s))
	for i, name := range faultNames {
		if name == n {
			return Fault(i), nil
		}
	}
	return FaultNone, fmt.Errorf("unknown fault %q", s)
}

func (f Fault) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

func (f *Fault) UnmarshalText(text []byte) error {
	v, err := ParseFault(string(text))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// FaultTable maps command sequence numbers to injected faults. Each entry
// fires once.
//
// Thread-safety: all methods are safe for concurrent use.
type FaultTable struct {
	mu sync.Mutex
	m  map[uint64]Fault
}

// Set arms f for the command with sequence number seq.
func (t *FaultTable) Set(seq uint64, f Fault) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.m == nil {
		t.m = make(map[uint64]Fault)
	}
	if f == FaultNone {
		delete(t.m, seq)
		return
	}
	t.m[seq] = f
}

// Take returns and disarms the fault for seq.
func (t *FaultTable) Take(seq uint64) Fault {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.m[seq]
	if !ok {
		return FaultNone
	}
	delete(t.m, seq)
	return f
}

// Len returns the number of armed faults.
func (t *FaultTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.m)
}
