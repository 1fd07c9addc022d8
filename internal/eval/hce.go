package eval

import "github.com/grailchess/grail/internal/board"

// Mobility weights per piece type, indexed by legal-destination count.
var mobilityMg = [6]int{0, 4, 5, 2, 1, 0}
var mobilityEg = [6]int{0, 3, 4, 4, 2, 0}

// King-zone attacker weights, roughly proportional to how dangerous an
// attacking piece of that type is near the enemy king.
var attackerWeight = [6]int{0, 20, 20, 40, 80, 0}

const (
	pawnShieldBonus  = 10
	pawnShieldMiss   = -15
	openFileNearKing = -20
	semiOpenNearKing = -10
	bishopPairMg     = 25
	bishopPairEg     = 50
	tempoBonus       = 10
)

// HCE is Grail's hand-crafted static evaluator. Its only state is a
// pawn-structure cache; the accumulator/board-diff hooks required by engine.Evaluator are no-ops,
// because unlike NNUE, HCE has no incrementally-maintained state.
type HCE struct {
	pawns *PawnTable
}

// NewHCE constructs an HCE evaluator with its own pawn hash table.
func NewHCE(pawnHashMB int) *HCE {
	if pawnHashMB < 1 {
		pawnHashMB = 1
	}
	return &HCE{pawns: NewPawnTable(pawnHashMB)}
}

// StaticEval satisfies engine.Evaluator. HCE recomputes from scratch
// every call; it has no incremental state to invalidate.
func (h *HCE) StaticEval(pos *board.Position) int {
	return h.Eval(pos)
}

// OnMake is a no-op: HCE carries no incremental state.
func (h *HCE) OnMake(pos *board.Position, m board.Move, moved, captured board.Piece) {}

// OnUnmake is a no-op: HCE carries no incremental state.
func (h *HCE) OnUnmake() {}

// Refresh is a no-op: HCE carries no incremental state.
func (h *HCE) Refresh(pos *board.Position) {}

// Eval returns the static score of pos in centipawns, side-to-move relative.
func (h *HCE) Eval(pos *board.Position) int {
	phase := Phase(pos)
	mg, eg := 0, 0

	material := materialScore(pos)
	mg += material
	eg += material

	for c := board.White; c <= board.Black; c++ {
		for pt := board.Pawn; pt <= board.King; pt++ {
			bb := pos.Pieces[c][pt]
			for bb != 0 {
				sq := bb.PopLSB()
				pmg, peg := pstScore(pt, c, sq)
				mg += pmg
				eg += peg
			}
		}
	}

	wmg, weg := h.pawnStructure(pos, board.White)
	bmg, beg := h.pawnStructure(pos, board.Black)
	mg += wmg - bmg
	eg += weg - beg

	mmg, meg := mobilityAndKingSafety(pos, board.White)
	nmg, neg := mobilityAndKingSafety(pos, board.Black)
	mg += mmg + nmg
	eg += meg + neg

	if pos.Pieces[board.White][board.Bishop].PopCount() >= 2 {
		mg += bishopPairMg
		eg += bishopPairEg
	}
	if pos.Pieces[board.Black][board.Bishop].PopCount() >= 2 {
		mg -= bishopPairMg
		eg -= bishopPairEg
	}

	score := Taper(mg, eg, phase)

	if pos.SideToMove == board.White {
		score += tempoBonus
	} else {
		score -= tempoBonus
	}

	if pos.SideToMove == board.Black {
		score = -score
	}
	return score
}

// pawnStructure returns (mg, eg) pawn-structure contributions for one
// side, from the cache when the pawn key is unchanged.
func (h *HCE) pawnStructure(pos *board.Position, us board.Color) (int, int) {
	key := pos.PawnKey ^ (uint64(us) << 1)
	if mg, eg, ok := h.pawns.Probe(key); ok {
		return mg, eg
	}
	mg, eg := pawnScore(pos, us)
	if us == board.Black {
		mg, eg = -mg, -eg
	}
	h.pawns.Store(key, mg, eg)
	return mg, eg
}

func materialScore(pos *board.Position) int {
	score := 0
	for pt := board.Pawn; pt < board.King; pt++ {
		score += pieceValue[pt] * pos.Pieces[board.White][pt].PopCount()
		score -= pieceValue[pt] * pos.Pieces[board.Black][pt].PopCount()
	}
	return score
}

// mobilityAndKingSafety returns White-relative (mg, eg) contributions
// from legal-ish mobility and king-zone pressure for color us.
func mobilityAndKingSafety(pos *board.Position, us board.Color) (mg, eg int) {
	them := us.Other()
	enemyKingSq := pos.KingSquare[them]
	kingZone := board.KingAttacks(enemyKingSq) | board.SquareBB(enemyKingSq)
	occupied := pos.AllOccupied
	ownOcc := pos.Occupied[us]

	attackUnits := 0
	attackerCount := 0

	for pt := board.Knight; pt <= board.Queen; pt++ {
		bb := pos.Pieces[us][pt]
		for bb != 0 {
			sq := bb.PopLSB()
			var attacks board.Bitboard
			switch pt {
			case board.Knight:
				attacks = board.KnightAttacks(sq)
			case board.Bishop:
				attacks = board.BishopAttacks(sq, occupied)
			case board.Rook:
				attacks = board.RookAttacks(sq, occupied)
			case board.Queen:
				attacks = board.QueenAttacks(sq, occupied)
			}
			mobility := (attacks &^ ownOcc).PopCount()
			mg += mobilityMg[pt] * mobility
			eg += mobilityEg[pt] * mobility

			if attacks&kingZone != 0 {
				attackUnits += attackerWeight[pt]
				attackerCount++
			}

			if pt == board.Rook {
				file := sq.File()
				ownPawnsOnFile := pos.Pieces[us][board.Pawn] & board.FileMask[file]
				enemyPawnsOnFile := pos.Pieces[them][board.Pawn] & board.FileMask[file]
				if ownPawnsOnFile == 0 && enemyPawnsOnFile == 0 {
					mg += 20
					eg += 25
				} else if ownPawnsOnFile == 0 {
					mg += 10
					eg += 15
				}
			}
		}
	}

	if attackerCount >= 2 {
		mg += attackUnits / 2
		eg += attackUnits / 4
	}

	// Pawn shield in front of the king, for the side owning that king.
	ownKingSq := pos.KingSquare[us]
	shield := board.KingAttacks(ownKingSq) & forwardRanks(ownKingSq, us)
	shielded := (shield & pos.Pieces[us][board.Pawn]).PopCount()
	missing := shield.PopCount() - shielded
	mg += pawnShieldBonus*shielded + pawnShieldMiss*missing

	sign := 1
	if us == board.Black {
		sign = -1
	}
	return sign * mg, sign * eg
}

// forwardRanks returns the rank(s) immediately in front of sq for color c.
func forwardRanks(sq board.Square, c board.Color) board.Bitboard {
	rank := sq.Rank()
	var next int
	if c == board.White {
		next = rank + 1
	} else {
		next = rank - 1
	}
	if next < 0 || next > 7 {
		return 0
	}
	return board.RankMask[next]
}
