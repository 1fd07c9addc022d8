package engine

import (
	"testing"

	"github.com/grailchess/grail/internal/board"
)

func TestMoveOrdererTTMoveRanksFirst(t *testing.T) {
	pos, err := board.ParseFEN(board.StartFEN)
	if err != nil {
		t.Fatal(err)
	}
	moves := pos.GenerateLegalMoves()
	ttMove := moves.Get(moves.Len() - 1)

	mo := NewMoveOrderer()
	scores := mo.ScoreMoves(pos, moves, 0, ttMove, ContKey{}, ContKey{}, ContKey{})
	SortMoves(moves, scores)

	if moves.Get(0) != ttMove {
		t.Fatalf("expected TT move to sort first, got %v", moves.Get(0))
	}
}

func TestMoveOrdererWinningCaptureOutranksQuiet(t *testing.T) {
	// White to move: Nxd5 wins a hanging knight; Ne4 is a quiet knight
	// move. The capture must outrank the quiet under identical history.
	pos, err := board.ParseFEN("4k3/8/8/3n4/8/2N5/8/4K3 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	moves := pos.GenerateLegalMoves()

	mo := NewMoveOrderer()
	scores := mo.ScoreMoves(pos, moves, 0, board.NoMove, ContKey{}, ContKey{}, ContKey{})

	var capScore, quietScore int
	foundCap, foundQuiet := false, false
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		if m.IsCapture(pos) {
			capScore, foundCap = scores[i], true
		} else {
			quietScore, foundQuiet = scores[i], true
		}
	}
	if !foundCap || !foundQuiet {
		t.Fatal("expected both a capture and a quiet move in this position")
	}
	if capScore <= quietScore {
		t.Fatalf("expected winning capture (%d) to outrank quiet move (%d)", capScore, quietScore)
	}
}

func TestMoveOrdererKillerPromotedAboveQuiets(t *testing.T) {
	pos, err := board.ParseFEN(board.StartFEN)
	if err != nil {
		t.Fatal(err)
	}
	moves := pos.GenerateLegalMoves()

	var killer board.Move
	for i := 0; i < moves.Len(); i++ {
		if m := moves.Get(i); !m.IsCapture(pos) {
			killer = m
			break
		}
	}

	mo := NewMoveOrderer()
	mo.killers[0][0] = killer
	scores := mo.ScoreMoves(pos, moves, 0, board.NoMove, ContKey{}, ContKey{}, ContKey{})

	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		if m == killer || m.IsCapture(pos) {
			continue
		}
		if scores[i] >= KillerScore1 {
			t.Fatalf("non-killer quiet move scored as high as a killer: %d", scores[i])
		}
	}
}

func TestMoveOrdererHistoryBoundedAfterRepeatedCutoffs(t *testing.T) {
	pos, err := board.ParseFEN(board.StartFEN)
	if err != nil {
		t.Fatal(err)
	}
	moves := pos.GenerateLegalMoves()
	m := moves.Get(0)

	mo := NewMoveOrderer()
	for i := 0; i < 10_000; i++ {
		mo.OnQuietCutoff(pos, m, 0, 64, nil, ContKey{}, ContKey{}, ContKey{})
	}
	if !mo.HistoryBound() {
		t.Fatal("expected history magnitudes to stay within HistMax under repeated saturation")
	}
}

func TestMoveOrdererCounterMoveRoundTrip(t *testing.T) {
	mo := NewMoveOrderer()
	prevKey := ContKey{Piece: board.WhiteKnight, To: board.F3}
	reply := board.NewMove(board.E7, board.E5)

	if mo.GetCounterMove(prevKey) != board.NoMove {
		t.Fatal("expected no counter move before any update")
	}
	mo.UpdateCounterMove(prevKey, reply)
	if got := mo.GetCounterMove(prevKey); got != reply {
		t.Fatalf("expected counter move %v, got %v", reply, got)
	}
}

func TestMoveOrdererClearResetsKillersAndCounters(t *testing.T) {
	mo := NewMoveOrderer()
	prevKey := ContKey{Piece: board.WhiteKnight, To: board.F3}
	reply := board.NewMove(board.E7, board.E5)
	mo.UpdateCounterMove(prevKey, reply)
	mo.killers[0][0] = reply

	mo.Clear()

	if mo.GetCounterMove(prevKey) != board.NoMove {
		t.Fatal("expected counter move cleared")
	}
	if mo.killers[0][0] != board.NoMove {
		t.Fatal("expected killer cleared")
	}
}
