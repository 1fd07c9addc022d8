// Package nnue implements Grail's efficiently-updatable neural network
// evaluator: a small dual-perspective feed-forward net whose input layer
// is maintained incrementally as the board changes, per §4.C.
package nnue

import "github.com/grailchess/grail/internal/board"

// Network architecture constants (§4.C).
const (
	NumPieceTypes = 12 // (color, piece type) pairs, king included
	NumSquares    = 64
	InputSize     = NumPieceTypes * NumSquares // 768 features per perspective

	H1 = 256 // embedding width per perspective
	H2 = 32  // first hidden layer
	H3 = 32  // second hidden layer

	// QA is the clipped-ReLU saturation bound applied to the
	// concatenated accumulator before the first hidden layer.
	QA = 127
	// QB is the saturation bound applied between the two hidden layers.
	QB = 127

	outputScale = 400
)

// Evaluator is the NNUE backend. It owns the loaded network and an
// accumulator stack mirroring the search's make/unmake stack.
type Evaluator struct {
	net   *Network
	stack *AccumulatorStack
}

// NewEvaluator loads weights from path (optionally zstd-compressed) and
// returns a ready-to-use evaluator with a reset accumulator stack.
func NewEvaluator(path string) (*Evaluator, error) {
	net, err := LoadNetwork(path)
	if err != nil {
		return nil, err
	}
	return &Evaluator{net: net, stack: NewAccumulatorStack()}, nil
}

// Refresh fully recomputes both accumulators from pos, discarding any
// lazy-update stack (root position, position set, or a diff too large to
// apply incrementally).
func (e *Evaluator) Refresh(pos *board.Position) {
	e.stack.Reset()
	e.stack.Current().ComputeFull(pos, e.net)
}

// OnMake pushes a new accumulator, derived incrementally from the
// feature diff implied by move m (§4.C incremental update). moved and
// captured are the pieces as they stood immediately before the move was
// made on pos.
func (e *Evaluator) OnMake(pos *board.Position, m board.Move, moved, captured board.Piece) {
	e.stack.Push()
	e.stack.Current().ApplyMove(pos, m, moved, captured, e.net)
}

// OnUnmake pops the accumulator pushed by the matching OnMake.
func (e *Evaluator) OnUnmake() {
	e.stack.Pop()
}

// StaticEval returns the side-to-move-relative static score in
// centipawns, satisfying engine.Evaluator.
func (e *Evaluator) StaticEval(pos *board.Position) int {
	acc := e.stack.Current()
	if !acc.computed {
		e.Refresh(pos)
		acc = e.stack.Current()
	}
	return e.net.Forward(acc, pos.SideToMove)
}
