package eval

import (
	"testing"

	"github.com/grailchess/grail/internal/board"
)

func findMove(t *testing.T, pos *board.Position, from, to board.Square) board.Move {
	t.Helper()
	moves := pos.GenerateLegalMoves()
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		if m.From() == from && m.To() == to {
			return m
		}
	}
	t.Fatalf("no legal move %v->%v in position", from, to)
	return board.Move(0)
}

func TestSEEWinningCapture(t *testing.T) {
	// White rook takes a hanging black queen on d5; no recapture.
	pos, err := board.ParseFEN("4k3/8/8/3q4/8/8/8/3RK3 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	m := findMove(t, pos, board.D1, board.D5)
	if got := SEE(pos, m); got != QueenValue {
		t.Fatalf("expected SEE = %d, got %d", QueenValue, got)
	}
}

func TestSEELosingCapture(t *testing.T) {
	// White queen takes a pawn defended by a black rook: loses the queen
	// for a pawn.
	pos, err := board.ParseFEN("3rk3/8/8/3p4/8/8/8/3QK3 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	m := findMove(t, pos, board.D1, board.D5)
	want := PawnValue - QueenValue
	if got := SEE(pos, m); got != want {
		t.Fatalf("expected SEE = %d, got %d", want, got)
	}
}

func TestSEEGEThreshold(t *testing.T) {
	pos, err := board.ParseFEN("4k3/8/8/3q4/8/8/8/3RK3 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	m := findMove(t, pos, board.D1, board.D5)
	if !SEEGE(pos, m, PawnValue) {
		t.Fatal("winning a hanging queen should clear a pawn-sized threshold")
	}
	if SEEGE(pos, m, QueenValue+1) {
		t.Fatal("SEE should not clear a threshold above the actual gain")
	}
}
