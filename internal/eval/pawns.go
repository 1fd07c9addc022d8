package eval

import "github.com/grailchess/grail/internal/board"

var passedPawnBonusMg = [8]int{0, 10, 15, 25, 45, 80, 130, 0}
var passedPawnBonusEg = [8]int{0, 15, 25, 45, 75, 130, 200, 0}

const (
	doubledPawnMg  = -12
	doubledPawnEg  = -22
	isolatedPawnMg = -14
	isolatedPawnEg = -18
	backwardMg     = -10
	backwardEg     = -8
)

// pawnScore evaluates pawn-structure features for one color, returning
// White-relative (mg, eg) contributions. Results are cacheable by pawn
// key via PawnTable.
func pawnScore(pos *board.Position, us board.Color) (mg, eg int) {
	them := us.Other()
	ownPawns := pos.Pieces[us][board.Pawn]
	enemyPawns := pos.Pieces[them][board.Pawn]
	sign := 1
	if us == board.Black {
		sign = -1
	}

	bb := ownPawns
	for bb != 0 {
		sq := bb.PopLSB()
		file := sq.File()
		rank := sq.RelativeRank(us)

		fileBB := board.FileMask[file]
		adjacent := board.Bitboard(0)
		if file > 0 {
			adjacent |= board.FileMask[file-1]
		}
		if file < 7 {
			adjacent |= board.FileMask[file+1]
		}

		// Doubled: another own pawn ahead on the same file.
		aheadMask := fileAheadMask(rank, us)
		if (fileBB & aheadMask & ownPawns) != 0 {
			mg += sign * doubledPawnMg
			eg += sign * doubledPawnEg
		}

		// Isolated: no own pawn on adjacent files at all.
		if (adjacent & ownPawns) == 0 {
			mg += sign * isolatedPawnMg
			eg += sign * isolatedPawnEg
		} else if (adjacent &^ aheadMask & ownPawns) == 0 {
			// Backward: no own pawn beside/behind on adjacent files and
			// cannot be defended by one advancing, and the stop square is
			// controlled by an enemy pawn.
			stop := board.PawnPushes(sq, us) &^ pos.AllOccupied
			if stop != 0 {
				stopSq := stop.LSB()
				if pos.AttackersByColor(stopSq, them, pos.AllOccupied)&enemyPawns != 0 {
					mg += sign * backwardMg
					eg += sign * backwardEg
				}
			}
		}

		// Passed: no enemy pawn on this file or adjacent files ahead of it.
		blockMask := (fileBB | adjacent) & aheadMask
		if (blockMask & enemyPawns) == 0 {
			mg += sign * passedPawnBonusMg[rank]
			eg += sign * passedPawnBonusEg[rank]
		}
	}

	return mg, eg
}

// fileAheadMask returns every rank strictly ahead of relRank (relative to
// us); callers AND the result with a file mask.
func fileAheadMask(relRank int, us board.Color) board.Bitboard {
	var m board.Bitboard
	for r := relRank + 1; r <= 7; r++ {
		absRank := r
		if us == board.Black {
			absRank = 7 - r
		}
		m |= board.RankMask[absRank]
	}
	return m
}
