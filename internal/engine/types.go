// Package engine implements Grail's search core: the transposition
// table, move-ordering state, the iterative-deepening PVS search, the
// time manager, and the driver gluing them to a UCI front end.
package engine

import "github.com/grailchess/grail/internal/board"

// Score constants (§3). All search scores live in [-Infinite, +Infinite].
const (
	Draw     = 0
	Mate     = 32000
	Infinite = 32001

	// MaxPly bounds recursion depth and the fixed-size tables indexed by
	// ply (killers, PV, move stack).
	MaxPly = 256
)

// MateIn returns the score representing a forced mate in ply plies.
func MateIn(ply int) int {
	return Mate - ply
}

// MatedIn returns the score representing being mated in ply plies.
func MatedIn(ply int) int {
	return -Mate + ply
}

// IsMateScore reports whether score represents a forced mate (for either
// side), as opposed to a material evaluation.
func IsMateScore(score int) bool {
	return score > Mate-MaxPly || score < -Mate+MaxPly
}

// Evaluator is the static-evaluation backend contract shared by HCE and
// NNUE (§9 "dynamic dispatch": a sum type with two variants). Single
// dispatch site per search.
type Evaluator interface {
	// StaticEval returns the side-to-move-relative centipawn score of pos.
	StaticEval(pos *board.Position) int
	// OnMake is called immediately after pos.MakeMove(m), with moved and
	// captured as they stood before the move was applied.
	OnMake(pos *board.Position, m board.Move, moved, captured board.Piece)
	// OnUnmake undoes the bookkeeping pushed by the matching OnMake.
	OnUnmake()
	// Refresh forces a full recomputation of any cached state.
	Refresh(pos *board.Position)
}

// Debug is set by the UCI "debug" option (§7.4). Off by default. No code
// reads it: the engine has no debug-mode assertions.
var Debug = false
