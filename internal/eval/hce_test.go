package eval

import (
	"testing"

	"github.com/grailchess/grail/internal/board"
)

func TestEvalSymmetry(t *testing.T) {
	h := NewHCE(1)
	cases := []struct{ white, black string }{
		{
			"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
			"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR b KQkq - 0 1",
		},
		{
			"r1bqk2r/ppp2ppp/2n1pn2/3p4/2PP4/2N1PN2/PP3PPP/R1BQK2R w KQkq - 0 1",
			"r1bqk2r/pp3ppp/2n1pn2/2pp4/3P4/2N1PN2/PPP2PPP/R1BQK2R b KQkq - 0 1",
		},
	}
	for _, c := range cases {
		wPos, err := board.ParseFEN(c.white)
		if err != nil {
			t.Fatal(err)
		}
		bPos, err := board.ParseFEN(c.black)
		if err != nil {
			t.Fatal(err)
		}
		wScore := h.Eval(wPos)
		bScore := h.Eval(bPos)
		if wScore != bScore {
			t.Fatalf("expected mirrored positions to score equally from side to move, got %d vs %d", wScore, bScore)
		}
	}
}

func TestEvalStartingPositionIsBalanced(t *testing.T) {
	h := NewHCE(1)
	pos, err := board.ParseFEN(board.StartFEN)
	if err != nil {
		t.Fatal(err)
	}
	score := h.Eval(pos)
	if score < -tempoBonus-5 || score > tempoBonus+5 {
		t.Fatalf("starting position should be near-zero, got %d", score)
	}
}

func TestPhaseAndTaper(t *testing.T) {
	pos, err := board.ParseFEN(board.StartFEN)
	if err != nil {
		t.Fatal(err)
	}
	if Phase(pos) != MaxPhase {
		t.Fatalf("starting position should be at max phase, got %d", Phase(pos))
	}
	if got := Taper(100, 0, MaxPhase); got != 100 {
		t.Fatalf("taper at max phase should equal mg value, got %d", got)
	}
	if got := Taper(100, 0, 0); got != 0 {
		t.Fatalf("taper at zero phase should equal eg value, got %d", got)
	}
}
