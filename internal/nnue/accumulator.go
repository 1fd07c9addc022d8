package nnue

import "github.com/grailchess/grail/internal/board"

// Accumulator holds the two perspective vectors — "White" and "Black"
// are the side they are computed for, not whose move it is (§3).
type Accumulator struct {
	White    [H1]int16
	Black    [H1]int16
	computed bool
}

// maxStackPly bounds the accumulator stack at the search's maximum ply
// depth (engine.MaxPly, §5, §9); the stack holds one more slot for the root.
const maxStackPly = 256

// AccumulatorStack mirrors the search's ply stack: one accumulator per
// ply so make/unmake is O(diff) in both directions (§3, §9).
type AccumulatorStack struct {
	stack [maxStackPly + 1]Accumulator
	top   int
}

// NewAccumulatorStack returns an empty stack ready for Reset/ComputeFull.
func NewAccumulatorStack() *AccumulatorStack {
	return &AccumulatorStack{}
}

// Push duplicates the current accumulator onto a new stack slot, to be
// mutated in place by ApplyMove.
func (s *AccumulatorStack) Push() {
	if s.top < len(s.stack)-1 {
		s.stack[s.top+1] = s.stack[s.top]
		s.top++
	}
}

// Pop discards the top accumulator, restoring the parent.
func (s *AccumulatorStack) Pop() {
	if s.top > 0 {
		s.top--
	}
}

// Current returns the accumulator for the position at the top of the
// stack.
func (s *AccumulatorStack) Current() *Accumulator {
	return &s.stack[s.top]
}

// Reset drops back to ply 0 and marks it stale, forcing a ComputeFull on
// next use.
func (s *AccumulatorStack) Reset() {
	s.top = 0
	s.stack[0].computed = false
}

// ComputeFull recomputes both perspectives from scratch (a "refresh",
// §4.C): bias plus the sum of active feature columns.
func (acc *Accumulator) ComputeFull(pos *board.Position, net *Network) {
	white, black := activeFeatures(pos)

	copy(acc.White[:], net.FeatureBias[:])
	copy(acc.Black[:], net.FeatureBias[:])

	for _, idx := range white {
		addColumn(&acc.White, net.FeatureWeights[idx][:])
	}
	for _, idx := range black {
		addColumn(&acc.Black, net.FeatureWeights[idx][:])
	}
	acc.computed = true
}

// ApplyMove derives this (already-pushed) accumulator from its parent by
// applying the feature diff for move m in O(|diff|), per §3's lazy
// update stack and §4.C's incremental-update contract.
func (acc *Accumulator) ApplyMove(pos *board.Position, m board.Move, moved, captured board.Piece, net *Network) {
	if !acc.computed {
		acc.ComputeFull(pos, net)
		return
	}
	add, rem := changedFeatures(pos, m, moved, captured)
	for _, d := range rem {
		subColumn(&acc.White, net.FeatureWeights[d.white][:])
		subColumn(&acc.Black, net.FeatureWeights[d.black][:])
	}
	for _, d := range add {
		addColumn(&acc.White, net.FeatureWeights[d.white][:])
		addColumn(&acc.Black, net.FeatureWeights[d.black][:])
	}
}

func addColumn(dst *[H1]int16, col []int16) {
	for i := range dst {
		dst[i] += col[i]
	}
}

func subColumn(dst *[H1]int16, col []int16) {
	for i := range dst {
		dst[i] -= col[i]
	}
}
