package engine

import (
	"github.com/grailchess/grail/internal/board"
	"github.com/grailchess/grail/internal/eval"
)

// HistMax bounds history-table magnitudes (§3 invariant 2).
const HistMax = 16384

// Move-ordering tier bases (§4.E). TTMoveScore must outrank everything;
// LosingCapturePenalty pushes bad captures below all quiets.
const (
	TTMoveScore          = 1 << 30
	WinningCaptureBase   = 1_000_000
	KillerScore1         = 900_000
	KillerScore2         = 800_000
	CounterMoveScore     = 700_000
	LosingCapturePenalty = 2_000_000
)

// ContKey identifies the (piece, destination) of a move played at some
// earlier ply, used to index continuation history.
type ContKey struct {
	Piece board.Piece
	To    board.Square
}

// MoveOrderer holds all move-ordering state (§3, §4.E): killers, history,
// capture history, continuation history (1/2/4 plies back), and counter
// moves.
type MoveOrderer struct {
	killers [MaxPly][2]board.Move

	history [2][64][64]int32 // [side][from][to]

	captureHistory [12][64][6]int32 // [attacker][to][victimType]

	// contHist[i] is the table consulted i plies back: index 0 -> 1 ply,
	// index 1 -> 2 plies, index 2 -> 4 plies (§3).
	contHist [3][12][64][12][64]int32

	counterMoves [12][64]board.Move
}

func NewMoveOrderer() *MoveOrderer {
	return &MoveOrderer{}
}

// Clear resets killers and counter moves and ages every history table
// (halves magnitudes) for a new game (§3 lifecycle).
func (mo *MoveOrderer) Clear() {
	for i := range mo.killers {
		mo.killers[i][0] = board.NoMove
		mo.killers[i][1] = board.NoMove
	}
	for i := range mo.counterMoves {
		for j := range mo.counterMoves[i] {
			mo.counterMoves[i][j] = board.NoMove
		}
	}
	mo.Age()
}

// Age halves every history-style table without touching killers/counters.
func (mo *MoveOrderer) Age() {
	for s := range mo.history {
		for f := range mo.history[s] {
			for t := range mo.history[s][f] {
				mo.history[s][f][t] /= 2
			}
		}
	}
	for a := range mo.captureHistory {
		for t := range mo.captureHistory[a] {
			for v := range mo.captureHistory[a][t] {
				mo.captureHistory[a][t][v] /= 2
			}
		}
	}
	for k := range mo.contHist {
		for p := range mo.contHist[k] {
			for t := range mo.contHist[k][p] {
				for p2 := range mo.contHist[k][p][t] {
					for t2 := range mo.contHist[k][p][t][p2] {
						mo.contHist[k][p][t][p2][t2] /= 2
					}
				}
			}
		}
	}
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

func clampHist(v int32) int32 {
	if v > HistMax {
		return HistMax
	}
	if v < -HistMax {
		return -HistMax
	}
	return v
}

// gravity applies the spec's gravity update: h += bonus - h*|bonus|/HIST_MAX.
func gravity(h *int32, bonus int32) {
	*h += bonus - (*h)*abs32(bonus)/HistMax
	*h = clampHist(*h)
}

const historyBonusCap = 2000

func historyBonus(depth int) int32 {
	b := int32(depth * depth)
	if b > historyBonusCap {
		b = historyBonusCap
	}
	return b
}

// ScoreMoves assigns a tiered ordering score to every move in moves,
// following §4.E exactly: TT move, winning/equal captures, killers,
// counter move, remaining quiets, losing captures. cont1 identifies the
// move played at the previous ply (used both for continuation history
// and counter-move lookup).
func (mo *MoveOrderer) ScoreMoves(pos *board.Position, moves *board.MoveList, ply int, ttMove board.Move, cont1, cont2, cont4 ContKey) []int {
	scores := make([]int, moves.Len())
	counterMove := mo.GetCounterMove(cont1)
	us := pos.SideToMove

	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		scores[i] = mo.scoreMove(pos, m, ply, ttMove, counterMove, us, cont1, cont2, cont4)
	}
	return scores
}

func (mo *MoveOrderer) scoreMove(pos *board.Position, m board.Move, ply int, ttMove, counterMove board.Move, us board.Color, cont1, cont2, cont4 ContKey) int {
	if m == ttMove {
		return TTMoveScore
	}

	if m.IsCapture(pos) {
		attacker := pos.PieceAt(m.From())
		var victimType board.PieceType
		if m.IsEnPassant() {
			victimType = board.Pawn
		} else {
			victimType = pos.PieceAt(m.To()).Type()
		}
		mvvLva := int(victimType)*16 - int(attacker.Type())
		capHist := int(mo.captureHistory[attacker][m.To()][victimType])

		if eval.SEEGE(pos, m, 0) {
			return WinningCaptureBase + mvvLva*1000 + capHist
		}
		return -LosingCapturePenalty + mvvLva*1000 + capHist
	}

	if m == mo.killers[ply][0] {
		return KillerScore1
	}
	if m == mo.killers[ply][1] {
		return KillerScore2
	}
	if m == counterMove {
		return CounterMoveScore
	}

	from, to := m.From(), m.To()
	piece := pos.PieceAt(from)
	score := int(mo.history[us][from][to])
	score += mo.contHistScore(0, cont1, piece, to)
	score += mo.contHistScore(1, cont2, piece, to)
	score += mo.contHistScore(2, cont4, piece, to)
	return score
}

func (mo *MoveOrderer) contHistScore(table int, key ContKey, piece board.Piece, to board.Square) int {
	if key.Piece == board.NoPiece {
		return 0
	}
	return int(mo.contHist[table][key.Piece][key.To][piece][to])
}

// SortMoves orders moves descending by scores.
func SortMoves(moves *board.MoveList, scores []int) {
	n := moves.Len()
	for i := 0; i < n-1; i++ {
		best := i
		for j := i + 1; j < n; j++ {
			if scores[j] > scores[best] {
				best = j
			}
		}
		if best != i {
			moves.Swap(i, best)
			scores[i], scores[best] = scores[best], scores[i]
		}
	}
}

// PickMove moves the highest-scoring move from [index, len) into index,
// enabling lazy (partial) sorting.
func PickMove(moves *board.MoveList, scores []int, index int) {
	best := index
	for j := index + 1; j < moves.Len(); j++ {
		if scores[j] > scores[best] {
			best = j
		}
	}
	if best != index {
		moves.Swap(index, best)
		scores[index], scores[best] = scores[best], scores[index]
	}
}

// OnQuietCutoff updates killers, history, counter move, and continuation
// history after a beta cutoff by quiet move m at ply (§4.E). tried holds
// the quiet moves searched before m at this node, which receive the
// equal-magnitude malus. cont1 identifies the move played at the
// previous ply, which becomes m's counter move.
func (mo *MoveOrderer) OnQuietCutoff(pos *board.Position, m board.Move, ply, depth int, tried []board.Move, cont1, cont2, cont4 ContKey) {
	if m != mo.killers[ply][0] {
		mo.killers[ply][1] = mo.killers[ply][0]
		mo.killers[ply][0] = m
	}

	us := pos.SideToMove
	bonus := historyBonus(depth)
	piece := pos.PieceAt(m.From())

	gravity(&mo.history[us][m.From()][m.To()], bonus)
	mo.updateContHist(0, cont1, piece, m.To(), bonus)
	mo.updateContHist(1, cont2, piece, m.To(), bonus)
	mo.updateContHist(2, cont4, piece, m.To(), bonus)

	for _, q := range tried {
		qp := pos.PieceAt(q.From())
		gravity(&mo.history[us][q.From()][q.To()], -bonus)
		mo.updateContHist(0, cont1, qp, q.To(), -bonus)
		mo.updateContHist(1, cont2, qp, q.To(), -bonus)
		mo.updateContHist(2, cont4, qp, q.To(), -bonus)
	}

	mo.UpdateCounterMove(cont1, m)
}

func (mo *MoveOrderer) updateContHist(table int, key ContKey, piece board.Piece, to board.Square, bonus int32) {
	if key.Piece == board.NoPiece {
		return
	}
	gravity(&mo.contHist[table][key.Piece][key.To][piece][to], bonus)
}

// OnCaptureCutoff updates capture history after a beta cutoff by capture
// move m; tried holds the captures searched before m at this node.
func (mo *MoveOrderer) OnCaptureCutoff(pos *board.Position, m board.Move, depth int, tried []board.Move) {
	bonus := historyBonus(depth)
	mo.bumpCaptureHistory(pos, m, bonus)
	for _, c := range tried {
		mo.bumpCaptureHistory(pos, c, -bonus)
	}
}

func (mo *MoveOrderer) bumpCaptureHistory(pos *board.Position, m board.Move, bonus int32) {
	attacker := pos.PieceAt(m.From())
	var victimType board.PieceType
	if m.IsEnPassant() {
		victimType = board.Pawn
	} else {
		victimType = pos.PieceAt(m.To()).Type()
	}
	if victimType >= board.King {
		return
	}
	gravity(&mo.captureHistory[attacker][m.To()][victimType], bonus)
}

// UpdateCounterMove records counterMove as the reply to the move
// identified by prevKey (the piece that moved and its destination).
func (mo *MoveOrderer) UpdateCounterMove(prevKey ContKey, counterMove board.Move) {
	if prevKey.Piece == board.NoPiece {
		return
	}
	mo.counterMoves[prevKey.Piece][prevKey.To] = counterMove
}

// GetCounterMove returns the recorded reply to prevKey, or NoMove.
func (mo *MoveOrderer) GetCounterMove(prevKey ContKey) board.Move {
	if prevKey.Piece == board.NoPiece {
		return board.NoMove
	}
	return mo.counterMoves[prevKey.Piece][prevKey.To]
}

// HistoryBound reports whether every history table magnitude is within
// HistMax, for the testable property in §8.
func (mo *MoveOrderer) HistoryBound() bool {
	for s := range mo.history {
		for f := range mo.history[s] {
			for _, v := range mo.history[s][f] {
				if v > HistMax || v < -HistMax {
					return false
				}
			}
		}
	}
	return true
}
