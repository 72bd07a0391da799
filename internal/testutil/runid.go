package testutil

import (
	"fmt"
	"sync"
)

// SequentialRunIDs generates run ids "<prefix>-0001", "<prefix>-0002", ...
//
// This keeps run history deterministic in golden snapshots while still
// giving every run a distinct id.
//
// Thread-safety: SequentialRunIDs is safe for concurrent use.
type SequentialRunIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialRunIDs creates a generator. If prefix is empty, "run" is used.
func NewSequentialRunIDs(prefix string) *SequentialRunIDs {
	if prefix == "" {
		prefix = "run"
	}
	return &SequentialRunIDs{prefix: prefix}
}

// Generate returns the next id.
//
// Implements engine.RunIDGenerator.
func (g *SequentialRunIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
