package engine

import (
	"testing"

	"github.com/grailchess/grail/internal/board"
)

func TestCorrectionHistoryZeroByDefault(t *testing.T) {
	ch := NewCorrectionHistory()
	pos, err := board.ParseFEN(board.StartFEN)
	if err != nil {
		t.Fatal(err)
	}
	if got := ch.Get(pos); got != 0 {
		t.Fatalf("expected zero correction before any update, got %d", got)
	}
}

func TestCorrectionHistoryMovesTowardObservedError(t *testing.T) {
	ch := NewCorrectionHistory()
	pos, err := board.ParseFEN(board.StartFEN)
	if err != nil {
		t.Fatal(err)
	}

	// The search consistently finds positions like this one 200cp better
	// than the static eval claims; the correction should drift positive.
	for i := 0; i < 200; i++ {
		ch.Update(pos, 200, 0, 8)
	}
	if got := ch.Get(pos); got <= 0 {
		t.Fatalf("expected positive correction after repeated positive error, got %d", got)
	}
}

func TestCorrectionHistoryIgnoresShallowDepth(t *testing.T) {
	ch := NewCorrectionHistory()
	pos, err := board.ParseFEN(board.StartFEN)
	if err != nil {
		t.Fatal(err)
	}
	ch.Update(pos, 500, 0, 0)
	if got := ch.Get(pos); got != 0 {
		t.Fatalf("expected depth-0 update to be ignored, got %d", got)
	}
}

func TestCorrectionHistoryClear(t *testing.T) {
	ch := NewCorrectionHistory()
	pos, err := board.ParseFEN(board.StartFEN)
	if err != nil {
		t.Fatal(err)
	}
	ch.Update(pos, 200, 0, 8)
	ch.Clear()
	if got := ch.Get(pos); got != 0 {
		t.Fatalf("expected zero correction after clear, got %d", got)
	}
}
