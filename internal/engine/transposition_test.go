package engine

import (
	"testing"

	"github.com/grailchess/grail/internal/board"
)

func TestTranspositionRoundTrip(t *testing.T) {
	tt := NewTranspositionTable(1)
	pos, err := board.ParseFEN(board.StartFEN)
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := tt.Probe(pos.Hash, 0); ok {
		t.Fatal("expected miss on empty table")
	}

	moves := pos.GenerateLegalMoves()
	m := moves.Get(0)
	tt.Store(pos.Hash, m, 123, 45, 6, BoundExact, 0)

	probe, ok := tt.Probe(pos.Hash, 0)
	if !ok {
		t.Fatal("expected hit after store")
	}
	if probe.Move != m || probe.Score != 123 || probe.StaticEval != 45 || probe.Depth != 6 || probe.Bound != BoundExact {
		t.Fatalf("round trip mismatch: %+v", probe)
	}
}

func TestTranspositionMateScoreIsPlyRelative(t *testing.T) {
	tt := NewTranspositionTable(1)
	var hash uint64 = 0xdeadbeef

	// Store a mate score found three plies into the search (mate five
	// plies from the root, two beyond the storing node), then probe from a different ply: the stored value must
	// reconstruct a score relative to the new path, per invariant 4.
	tt.Store(hash, board.NoMove, MateIn(5), 0, 10, BoundExact, 3)

	probe, ok := tt.Probe(hash, 1)
	if !ok {
		t.Fatal("expected hit")
	}
	want := MateIn(5) + 3 - 1
	if probe.Score != want {
		t.Fatalf("expected path-relative mate score %d, got %d", want, probe.Score)
	}
}

func TestTranspositionClear(t *testing.T) {
	tt := NewTranspositionTable(1)
	tt.Store(1, board.NoMove, 10, 10, 4, BoundExact, 0)
	tt.Clear()
	if _, ok := tt.Probe(1, 0); ok {
		t.Fatal("expected miss after clear")
	}
	if hf := tt.HashFull(); hf != 0 {
		t.Fatalf("expected hashfull 0 after clear, got %d", hf)
	}
}

func TestTranspositionBucketReplacement(t *testing.T) {
	tt := NewTranspositionTable(1)
	// Fill one bucket with distinct keys that collide on the same index
	// by sharing the low bits used to select the bucket.
	base := uint64(7)
	for i := 0; i < entriesPerBucket; i++ {
		hash := base | (uint64(i+1) << 40)
		tt.Store(hash, board.NoMove, 1, 1, 1, BoundExact, 0)
	}
	// A fifth distinct key hashing to the same bucket must evict the
	// shallowest entry rather than grow the bucket.
	hash := base | (uint64(99) << 40)
	tt.Store(hash, board.NoMove, 1, 1, 20, BoundExact, 0)
	if _, ok := tt.Probe(hash, 0); !ok {
		t.Fatal("expected the new deep entry to have been stored")
	}
}
