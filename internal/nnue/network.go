package nnue

import "github.com/grailchess/grail/internal/board"

// Network holds NNUE weights for the architecture described in §4.C:
// a 768-wide per-perspective feature layer feeding a concatenated
// ClippedReLU, then two quantized hidden layers down to a scalar output.
//
// Tensor names match the container format loaded by LoadNetwork:
// feature_weights, feature_bias, l1_weights, l1_bias, l2_weights,
// l2_bias, output_weights, output_bias.
type Network struct {
	FeatureWeights [InputSize][H1]int16
	FeatureBias    [H1]int16

	// L1Weights maps the concatenated, clipped accumulator (2*H1 wide:
	// side-to-move perspective first, then the opponent's) to H2.
	L1Weights [2 * H1][H2]int8
	L1Bias    [H2]int32

	L2Weights [H2][H3]int8
	L2Bias    [H3]int32

	OutputWeights [H3]int8
	OutputBias    int32
}

// NewNetwork returns a zero-valued network, useful only as a load target.
func NewNetwork() *Network {
	return &Network{}
}

// clampedReLU quantizes x into [0, QA] for the first layer.
func clampedReLU(x int32, bound int32) int8 {
	if x < 0 {
		return 0
	}
	if x > bound {
		return int8(bound)
	}
	return int8(x)
}

// Forward runs the network on acc, returning a centipawn score relative
// to sideToMove.
func (n *Network) Forward(acc *Accumulator, sideToMove board.Color) int {
	var stmAcc, nstmAcc *[H1]int16
	if sideToMove == board.White {
		stmAcc, nstmAcc = &acc.White, &acc.Black
	} else {
		stmAcc, nstmAcc = &acc.Black, &acc.White
	}

	var l0 [2 * H1]int8
	for i := 0; i < H1; i++ {
		l0[i] = clampedReLU(int32(stmAcc[i]), QA)
		l0[H1+i] = clampedReLU(int32(nstmAcc[i]), QA)
	}

	var l1 [H2]int8
	for i := 0; i < H2; i++ {
		sum := n.L1Bias[i]
		for j := 0; j < 2*H1; j++ {
			sum += int32(l0[j]) * int32(n.L1Weights[j][i])
		}
		l1[i] = clampedReLU(sum>>6, QB)
	}

	var l2 [H3]int8
	for i := 0; i < H3; i++ {
		sum := n.L2Bias[i]
		for j := 0; j < H2; j++ {
			sum += int32(l1[j]) * int32(n.L2Weights[j][i])
		}
		l2[i] = clampedReLU(sum>>6, QB)
	}

	output := n.OutputBias
	for i := 0; i < H3; i++ {
		output += int32(l2[i]) * int32(n.OutputWeights[i])
	}

	return int(output * outputScale / (int32(QA) * int32(QB)))
}

// InitRandom fills the network with small reproducible pseudo-random
// weights, used by tests that need a network without a weight file.
func (n *Network) InitRandom(seed int64) {
	state := uint64(seed)
	next := func() int32 {
		state = state*6364136223846793005 + 1442695040888963407
		return int32(int16(state >> 48))
	}

	for i := 0; i < InputSize; i++ {
		for j := 0; j < H1; j++ {
			n.FeatureWeights[i][j] = int16(next() >> 5)
		}
	}
	for i := 0; i < H1; i++ {
		n.FeatureBias[i] = int16(next() >> 3)
	}
	for i := 0; i < 2*H1; i++ {
		for j := 0; j < H2; j++ {
			n.L1Weights[i][j] = clampedToInt8(next() >> 6)
		}
	}
	for i := 0; i < H2; i++ {
		n.L1Bias[i] = next()
	}
	for i := 0; i < H2; i++ {
		for j := 0; j < H3; j++ {
			n.L2Weights[i][j] = clampedToInt8(next() >> 6)
		}
	}
	for i := 0; i < H3; i++ {
		n.L2Bias[i] = next()
	}
	for i := 0; i < H3; i++ {
		n.OutputWeights[i] = clampedToInt8(next() >> 6)
	}
	n.OutputBias = next() * 100
}

func clampedToInt8(v int32) int8 {
	if v > 127 {
		return 127
	}
	if v < -128 {
		return -128
	}
	return int8(v)
}
