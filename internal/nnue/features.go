package nnue

import "github.com/grailchess/grail/internal/board"

// featureIndex computes the input index of a piece from a perspective.
// Own pieces (relative to perspective) occupy indices 0-5 by piece type,
// enemy pieces 6-11; the king is included like any other piece (§4.C —
// unlike HalfKP, there is no king-square bucketing). Black's perspective
// mirrors the square vertically so both perspectives "see" their own
// back rank the same way.
func featureIndex(perspective board.Color, pt board.PieceType, pc board.Color, sq board.Square) int {
	base := int(pt)
	if pc != perspective {
		base += 6
	}
	if perspective == board.Black {
		sq ^= 0x38
	}
	return base*NumSquares + int(sq)
}

// activeFeatures returns the active feature indices for both
// perspectives for the current position.
func activeFeatures(pos *board.Position) (white, black []int) {
	white = make([]int, 0, 32)
	black = make([]int, 0, 32)
	for c := board.White; c <= board.Black; c++ {
		for pt := board.Pawn; pt <= board.King; pt++ {
			bb := pos.Pieces[c][pt]
			for bb != 0 {
				sq := bb.PopLSB()
				white = append(white, featureIndex(board.White, pt, c, sq))
				black = append(black, featureIndex(board.Black, pt, c, sq))
			}
		}
	}
	return white, black
}

// featureDiff is a single (white index, black index) pair changed by a
// move, used to drive incremental accumulator updates.
type featureDiff struct {
	white, black int
}

// changedFeatures returns the features to remove and add for move m,
// given moved/captured as they stood immediately before the move was
// applied to pos (which already reflects the move having been made).
func changedFeatures(pos *board.Position, m board.Move, moved, captured board.Piece) (add, rem []featureDiff) {
	from := m.From()
	to := m.To()
	movingPT := moved.Type()
	movingColor := moved.Color()

	rem = append(rem, featureDiff{
		white: featureIndex(board.White, movingPT, movingColor, from),
		black: featureIndex(board.Black, movingPT, movingColor, from),
	})

	addPT := movingPT
	if m.IsPromotion() {
		addPT = m.Promotion()
	}
	add = append(add, featureDiff{
		white: featureIndex(board.White, addPT, movingColor, to),
		black: featureIndex(board.Black, addPT, movingColor, to),
	})

	if captured != board.NoPiece {
		capturedPT := captured.Type()
		capturedColor := captured.Color()
		capturedSq := to
		if m.IsEnPassant() {
			if movingColor == board.White {
				capturedSq = to - 8
			} else {
				capturedSq = to + 8
			}
		}
		rem = append(rem, featureDiff{
			white: featureIndex(board.White, capturedPT, capturedColor, capturedSq),
			black: featureIndex(board.Black, capturedPT, capturedColor, capturedSq),
		})
	}

	if m.IsCastling() {
		// The king's own from/to features are already handled above; the
		// rook's relocation needs its own diff since two pieces move.
		rookFrom, rookTo := castlingRookSquares(to, movingColor)
		rem = append(rem, featureDiff{
			white: featureIndex(board.White, board.Rook, movingColor, rookFrom),
			black: featureIndex(board.Black, board.Rook, movingColor, rookFrom),
		})
		add = append(add, featureDiff{
			white: featureIndex(board.White, board.Rook, movingColor, rookTo),
			black: featureIndex(board.Black, board.Rook, movingColor, rookTo),
		})
	}

	return add, rem
}

// castlingRookSquares returns the rook's (from, to) squares for a
// castling move, identified by the king's destination square.
func castlingRookSquares(kingTo board.Square, c board.Color) (from, to board.Square) {
	switch kingTo {
	case board.G1:
		return board.H1, board.F1
	case board.C1:
		return board.A1, board.D1
	case board.G8:
		return board.H8, board.F8
	case board.C8:
		return board.A8, board.D8
	}
	return kingTo, kingTo
}
