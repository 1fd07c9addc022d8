// Package eval implements Grail's hand-crafted evaluation (HCE) backend
// and the static-exchange evaluator shared by move ordering and search
// pruning. The NNUE backend lives in a sibling package; both satisfy the
// engine.Evaluator interface.
package eval

import "github.com/grailchess/grail/internal/board"

// Piece values in centipawns, indexed by board.PieceType.
const (
	PawnValue   = 100
	KnightValue = 320
	BishopValue = 330
	RookValue   = 500
	QueenValue  = 900
	KingValue   = 20000
)

var pieceValue = [7]int{PawnValue, KnightValue, BishopValue, RookValue, QueenValue, KingValue, 0}

// PieceValue returns the material value of a piece type in centipawns.
func PieceValue(pt board.PieceType) int {
	return pieceValue[pt]
}

// phaseWeight is the tapered-eval contribution of one piece of this type.
var phaseWeight = [6]int{0, 1, 1, 2, 4, 0}

// MaxPhase is the phase value of a full set of non-pawn, non-king material.
const MaxPhase = 24

// Phase returns a value in [0, MaxPhase] interpolating between the
// endgame (0) and middlegame (MaxPhase) piece-square/weight tables based
// on remaining non-pawn material.
func Phase(pos *board.Position) int {
	phase := 0
	for c := board.White; c <= board.Black; c++ {
		for pt := board.Knight; pt <= board.Queen; pt++ {
			phase += phaseWeight[pt] * pos.Pieces[c][pt].PopCount()
		}
	}
	if phase > MaxPhase {
		phase = MaxPhase
	}
	return phase
}

// Taper interpolates a middlegame/endgame pair by phase (phase=MaxPhase is
// pure middlegame, phase=0 is pure endgame).
func Taper(mg, eg, phase int) int {
	return (mg*phase + eg*(MaxPhase-phase)) / MaxPhase
}
