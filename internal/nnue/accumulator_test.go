package nnue

import (
	"testing"

	"github.com/grailchess/grail/internal/board"
)

func randomNet() *Network {
	n := NewNetwork()
	n.InitRandom(42)
	return n
}

// TestIncrementalMatchesFullRecompute walks a handful of plies from the
// starting position, applying moves incrementally, and checks the result
// matches a from-scratch ComputeFull at every step (§4.C incremental
// update invariant).
func TestIncrementalMatchesFullRecompute(t *testing.T) {
	net := randomNet()
	pos, err := board.ParseFEN(board.StartFEN)
	if err != nil {
		t.Fatal(err)
	}

	stack := NewAccumulatorStack()
	stack.Current().ComputeFull(pos, net)

	moves := pos.GenerateLegalMoves()
	played := 0
	for i := 0; i < moves.Len() && played < 6; i++ {
		m := moves.Get(i)
		moved := pos.PieceAt(m.From())
		captured := pos.PieceAt(m.To())
		if m.IsEnPassant() {
			captured = board.NewPiece(board.Pawn, pos.SideToMove.Other())
		}

		stack.Push()
		pos.MakeMove(m)
		stack.Current().ApplyMove(pos, m, moved, captured, net)

		var full Accumulator
		full.ComputeFull(pos, net)

		if full.White != stack.Current().White {
			t.Fatalf("move %v: White accumulator diverged from full recompute", m)
		}
		if full.Black != stack.Current().Black {
			t.Fatalf("move %v: Black accumulator diverged from full recompute", m)
		}

		played++
		moves = pos.GenerateLegalMoves()
	}
}

// TestCastlingUpdatesRookFeature checks that castling moves the rook's
// feature as well as the king's, since changedFeatures must emit two
// diffs for a move that relocates two pieces.
func TestCastlingUpdatesRookFeature(t *testing.T) {
	net := randomNet()
	pos, err := board.ParseFEN("r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")
	if err != nil {
		t.Fatal(err)
	}

	stack := NewAccumulatorStack()
	stack.Current().ComputeFull(pos, net)

	moves := pos.GenerateLegalMoves()
	var castle board.Move
	found := false
	for i := 0; i < moves.Len(); i++ {
		if moves.Get(i).IsCastling() {
			castle = moves.Get(i)
			found = true
			break
		}
	}
	if !found {
		t.Fatal("expected a legal castling move in this position")
	}

	moved := pos.PieceAt(castle.From())
	stack.Push()
	pos.MakeMove(castle)
	stack.Current().ApplyMove(pos, castle, moved, board.NoPiece, net)

	var full Accumulator
	full.ComputeFull(pos, net)

	if full.White != stack.Current().White || full.Black != stack.Current().Black {
		t.Fatalf("castling accumulator diverged from full recompute")
	}
}

func TestForwardIsSymmetricUnderColorFlip(t *testing.T) {
	net := randomNet()
	white, err := board.ParseFEN("4k3/8/8/8/8/8/8/4KQ2 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	black, err := board.ParseFEN("4kq2/8/8/8/8/8/8/4K3 b - - 0 1")
	if err != nil {
		t.Fatal(err)
	}

	var accW, accB Accumulator
	accW.ComputeFull(white, net)
	accB.ComputeFull(black, net)

	scoreW := net.Forward(&accW, board.White)
	scoreB := net.Forward(&accB, board.Black)

	if scoreW != scoreB {
		t.Fatalf("mirrored positions should score identically from the side to move's perspective: got %d vs %d", scoreW, scoreB)
	}
}
