package engine

import (
	"sync/atomic"
	"testing"

	"github.com/grailchess/grail/internal/board"
	"github.com/grailchess/grail/internal/eval"
)

func newTestSearcher(t *testing.T, fen string) (*Searcher, *board.Position) {
	t.Helper()
	pos, err := board.ParseFEN(fen)
	if err != nil {
		t.Fatal(err)
	}
	orderer := NewMoveOrderer()
	tt := NewTranspositionTable(1)
	corrHist := NewCorrectionHistory()
	hce := eval.NewHCE(1)
	var stopping atomic.Bool
	s := NewSearcher(pos, orderer, tt, corrHist, hce, &stopping, []uint64{pos.Hash})
	return s, pos
}

// TestSearchFindsMateInOne checks the engine finds and reports a forced
// mate in one (§8 property 8): back-rank mate, Ra8#.
func TestSearchFindsMateInOne(t *testing.T) {
	s, _ := newTestSearcher(t, "6k1/5ppp/8/8/8/8/8/R3K3 w - - 0 1")
	tm := NewTimeManager()
	tm.Init(UCILimits{Depth: 4}, board.White, 0)

	var lastInfo SearchInfo
	s.OnInfo = func(info SearchInfo) { lastInfo = info }

	best := s.IterativeDeepen(tm, 4)
	if best == board.NoMove {
		t.Fatal("expected a best move")
	}
	if !lastInfo.Mate || lastInfo.MateIn != 1 {
		t.Fatalf("expected mate in 1 reported, got mate=%v mateIn=%d score=%d", lastInfo.Mate, lastInfo.MateIn, lastInfo.Score)
	}
}

// TestSearchAvoidsStalemate verifies the search never hands back a move
// that stalemates itself when a winning continuation exists.
func TestSearchAvoidsStalemate(t *testing.T) {
	// White to move, up a queen; KQvK endings have many stalemate traps
	// for a careless move generator/search.
	s, pos := newTestSearcher(t, "7k/8/8/8/8/8/5Q2/6K1 w - - 0 1")
	tm := NewTimeManager()
	tm.Init(UCILimits{Depth: 3}, board.White, 0)

	best := s.IterativeDeepen(tm, 3)
	if best == board.NoMove {
		t.Fatal("expected a best move")
	}
	undo := pos.MakeMove(best)
	defer pos.UnmakeMove(best, undo)
	if pos.IsStalemate() {
		t.Fatal("search chose a move that stalemates the opponent instead of mating")
	}
}

// TestSearchScoreIsSideToMoveRelative is a coarse sanity check that
// material advantage reports as positive for the side ahead.
func TestSearchScoreIsSideToMoveRelative(t *testing.T) {
	s, _ := newTestSearcher(t, "4k3/8/8/8/8/8/8/Q3K3 w - - 0 1")
	tm := NewTimeManager()
	tm.Init(UCILimits{Depth: 2}, board.White, 0)

	var lastInfo SearchInfo
	s.OnInfo = func(info SearchInfo) { lastInfo = info }
	s.IterativeDeepen(tm, 2)

	if !lastInfo.Mate && lastInfo.Score <= 0 {
		t.Fatalf("expected a material-ahead side to report a positive score, got %d", lastInfo.Score)
	}
}

func TestMateDistanceHelpers(t *testing.T) {
	if !IsMateScore(MateIn(3)) {
		t.Fatal("expected MateIn to be classified as a mate score")
	}
	if !IsMateScore(MatedIn(3)) {
		t.Fatal("expected MatedIn to be classified as a mate score")
	}
	if IsMateScore(150) {
		t.Fatal("expected an ordinary centipawn score not to be classified as mate")
	}
}

// TestSearchRespectsNodeLimit checks "go nodes N" (§6) actually bounds
// the search instead of running to the time/depth limit.
func TestSearchRespectsNodeLimit(t *testing.T) {
	s, _ := newTestSearcher(t, board.StartFEN)
	s.SetNodeLimit(3000)
	tm := NewTimeManager()
	tm.Init(UCILimits{Infinite: true}, board.White, 0)

	best := s.IterativeDeepen(tm, MaxPly-1)
	if best == board.NoMove {
		t.Fatal("expected a best move even when node-limited")
	}
	if s.nodes < 3000 {
		t.Fatalf("search stopped before reaching its node limit: %d nodes", s.nodes)
	}
	if s.nodes > 3000+nodeCheckInterval {
		t.Fatalf("search overran its node limit by more than one poll interval: %d nodes", s.nodes)
	}
}
