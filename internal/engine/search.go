package engine

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/grailchess/grail/internal/board"
	"github.com/grailchess/grail/internal/eval"
)

// nodeCheckInterval is how often (in nodes) the search polls the
// cancellation flag (§4.F "Cancellation").
const nodeCheckInterval = 2048

// Pruning margins (§4.F). The spec fixes shapes, not magic numbers
// (§9 Open Questions); these are Grail's concrete choices.
const (
	rfpMaxDepth    = 8
	rfpMargin      = 75
	razorMaxDepth  = 3
	razorMargin    = 300
	nmpMinDepth    = 3
	nmpVerifyDepth = 12
	probcutDepth   = 5
	probcutMargin  = 200
	lmpMaxDepth    = 6
	futilityDepth  = 6
	seePruneDepth  = 7
	seeQuietCoeff  = 80
	seeCapCoeff    = 30
	deltaMargin    = 200
	iidMinDepth    = 4
	singularDepth  = 6
)

var futilityMargin = [futilityDepth + 1]int{0, 150, 250, 350, 450, 550, 650}

// lmrTable[depth][moveIndex] is the base late-move reduction (§4.F,
// Stockfish-style logarithmic shape).
var lmrTable [MaxPly][64]int

func init() {
	for d := 1; d < MaxPly; d++ {
		for m := 1; m < 64; m++ {
			lmrTable[d][m] = reductionFormula(d, m)
		}
	}
}

func reductionFormula(depth, moveIndex int) int {
	r := 0.2 + ln(float64(depth))*ln(float64(moveIndex))/2.1
	return int(r)
}

func ln(x float64) float64 {
	if x <= 1 {
		return 0
	}
	return math.Log(x)
}

// SearchInfo is emitted once per completed iterative-deepening depth
// (§6 "info" line).
type SearchInfo struct {
	Depth    int
	SelDepth int
	Score    int
	Mate     bool
	MateIn   int
	Nodes    uint64
	NPS      uint64
	Time     time.Duration
	HashFull int
	PV       []board.Move
}

// Searcher runs a single-threaded iterative-deepening PVS search (§4.F).
// There is no internal parallelism (§1, §5) — the only other goroutine
// in the system is the Driver's cancellation watchdog.
type Searcher struct {
	pos       *board.Position
	orderer   *MoveOrderer
	tt        *TranspositionTable
	corrHist  *CorrectionHistory
	evaluator Evaluator
	tm        *TimeManager

	stopping *atomic.Bool

	nodes     uint64
	nodeLimit uint64 // 0 means unbounded (UCILimits.Nodes, §6 "go nodes")
	seldepth  int

	pv    [MaxPly + 1][MaxPly + 1]board.Move
	pvLen [MaxPly + 1]int

	posHistory []uint64 // game history supplied by the driver, plus search path

	moveStack [MaxPly + 1]ContKey // (piece, to) played to reach each ply

	rootBestMove  board.Move
	rootBestScore int

	excludedMove [MaxPly + 1]board.Move // singular-extension exclusion, per ply

	nullMoveDisabled bool // set while re-searching to verify a null-move fail-high

	OnInfo func(SearchInfo)

	aborted bool
}

// NewSearcher wires pos/orderer/tt/evaluator together. gameHistory is the
// sequence of Zobrist keys for the game so far (for repetition detection
// across the root), and stopping is the shared cancellation flag.
func NewSearcher(pos *board.Position, orderer *MoveOrderer, tt *TranspositionTable, corrHist *CorrectionHistory, evaluator Evaluator, stopping *atomic.Bool, gameHistory []uint64) *Searcher {
	s := &Searcher{
		pos:       pos,
		orderer:   orderer,
		tt:        tt,
		corrHist:  corrHist,
		evaluator: evaluator,
		stopping:  stopping,
	}
	s.posHistory = append(s.posHistory, gameHistory...)
	return s
}

// Stop requests cooperative cancellation; the search unwinds at the next
// node-count poll.
func (s *Searcher) Stop() {
	s.stopping.Store(true)
}

// SetNodeLimit bounds the search to at most limit nodes (0 = unbounded),
// enforced at the same node-count poll as cancellation and the clock
// (§6 "go nodes").
func (s *Searcher) SetNodeLimit(limit uint64) {
	s.nodeLimit = limit
}

// IterativeDeepen runs depth 1..maxDepth (or until time/cancellation),
// reporting each completed depth via OnInfo and returning the best move
// found (§4.F).
func (s *Searcher) IterativeDeepen(tm *TimeManager, maxDepth int) board.Move {
	s.tm = tm
	if maxDepth <= 0 || maxDepth > MaxPly-1 {
		maxDepth = MaxPly - 1
	}

	start := time.Now()
	var lastScore int
	stability := 0
	changes := 0
	prevBest := board.NoMove

	for depth := 1; depth <= maxDepth; depth++ {
		s.seldepth = 0
		alpha, beta := -Infinite, Infinite
		delta := 15

		if depth >= 4 {
			alpha = lastScore - delta
			beta = lastScore + delta
			if alpha < -Infinite {
				alpha = -Infinite
			}
			if beta > Infinite {
				beta = Infinite
			}
		}

		var score int
		for {
			score = s.negamax(depth, 0, alpha, beta, false, false)
			if s.aborted {
				break
			}
			if score <= alpha {
				beta = (alpha + beta) / 2
				alpha = score - delta
				if alpha < -Infinite {
					alpha = -Infinite
				}
			} else if score >= beta {
				beta = score + delta
				if beta > Infinite {
					beta = Infinite
				}
			} else {
				break
			}
			delta *= 2
			if delta >= 200 {
				alpha, beta = -Infinite, Infinite
			}
		}

		if s.aborted {
			break
		}

		lastScore = score
		s.rootBestScore = score
		if s.pvLen[0] > 0 {
			s.rootBestMove = s.pv[0][0]
		}

		if s.rootBestMove == prevBest {
			stability++
			changes = 0
		} else {
			changes++
			stability = 0
		}
		prevBest = s.rootBestMove
		tm.AdjustForStability(stability)
		tm.AdjustForInstability(changes)

		if s.OnInfo != nil {
			s.OnInfo(s.buildInfo(depth, score, start))
		}

		if depth >= maxDepth {
			break
		}
		if tm.PastSoftLimit() {
			break
		}
	}

	if s.rootBestMove == board.NoMove {
		// No completed iteration (e.g. depth 1 aborted immediately):
		// fall back to any legal move so bestmove is never null.
		moves := s.pos.GenerateLegalMoves()
		if moves.Len() > 0 {
			s.rootBestMove = moves.Get(0)
		}
	}
	return s.rootBestMove
}

func (s *Searcher) buildInfo(depth, score int, start time.Time) SearchInfo {
	elapsed := time.Since(start)
	nps := uint64(0)
	if elapsed > 0 {
		nps = uint64(float64(s.nodes) / elapsed.Seconds())
	}
	info := SearchInfo{
		Depth:    depth,
		SelDepth: s.seldepth,
		Score:    score,
		Nodes:    s.nodes,
		NPS:      nps,
		Time:     elapsed,
		HashFull: s.tt.HashFull(),
		PV:       append([]board.Move(nil), s.pv[0][:s.pvLen[0]]...),
	}
	if IsMateScore(score) {
		info.Mate = true
		if score > 0 {
			info.MateIn = (Mate - score + 1) / 2
		} else {
			info.MateIn = -(Mate + score + 1) / 2
		}
	}
	return info
}

// pushHistory records the position reached after making a move, for
// repetition detection.
func (s *Searcher) pushHistory(hash uint64) {
	s.posHistory = append(s.posHistory, hash)
}

func (s *Searcher) popHistory() {
	s.posHistory = s.posHistory[:len(s.posHistory)-1]
}

// isRepetition reports whether the current position's hash already
// occurred earlier in posHistory, within the fifty-move window.
func (s *Searcher) isRepetition() bool {
	hash := s.pos.Hash
	n := len(s.posHistory)
	limit := s.pos.HalfMoveClock
	if limit > n-1 {
		limit = n - 1
	}
	for i := 1; i <= limit; i++ {
		if s.posHistory[n-1-i] == hash {
			return true
		}
	}
	return false
}

func (s *Searcher) isDraw() bool {
	if s.pos.IsDraw() {
		return true
	}
	return s.isRepetition()
}

// makeMove applies m, updates the evaluator and history stacks, records
// the moved piece in moveStack, and returns the undo information.
func (s *Searcher) makeMove(m board.Move, ply int) board.UndoInfo {
	moved := s.pos.PieceAt(m.From())
	undo := s.pos.MakeMove(m)
	s.evaluator.OnMake(s.pos, m, moved, undo.CapturedPiece)
	s.pushHistory(s.pos.Hash)
	s.moveStack[ply] = ContKey{Piece: moved, To: m.To()}
	s.nodes++
	return undo
}

func (s *Searcher) unmakeMove(m board.Move, undo board.UndoInfo) {
	s.pos.UnmakeMove(m, undo)
	s.evaluator.OnUnmake()
	s.popHistory()
}

// contKeyAt returns the (piece,to) played ply-back plies before the
// current ply, or a key with Piece == board.NoPiece if the path isn't
// that deep.
func (s *Searcher) contKeyAt(ply, back int) ContKey {
	idx := ply - back
	if idx < 0 {
		return ContKey{Piece: board.NoPiece}
	}
	return s.moveStack[idx]
}

func (s *Searcher) checkStop() bool {
	if s.nodes%nodeCheckInterval == 0 {
		if s.stopping.Load() {
			return true
		}
		if s.tm != nil && s.tm.ShouldStop() {
			return true
		}
		if s.nodeLimit > 0 && s.nodes >= s.nodeLimit {
			return true
		}
	}
	return false
}

// negamax implements §4.F's PVS search: mate-distance pruning, TT
// cutoff/IID, static-eval-gated pruning (RFP/razoring/NMP/ProbCut),
// move-loop pruning (LMP/futility/SEE), PVS re-search, and LMR.
func (s *Searcher) negamax(depth, ply int, alpha, beta int, cutNode, excluded bool) int {
	if s.aborted {
		return 0
	}
	if s.checkStop() {
		s.aborted = true
		return 0
	}

	pvNode := beta-alpha > 1
	root := ply == 0

	if ply > s.seldepth {
		s.seldepth = ply
	}
	s.pvLen[ply] = 0

	if !root {
		if s.isDraw() {
			return Draw
		}
		// Mate-distance pruning.
		alpha = max(alpha, MatedIn(ply))
		beta = min(beta, MateIn(ply+1))
		if alpha >= beta {
			return alpha
		}
	}

	if ply >= MaxPly-1 {
		return s.evaluator.StaticEval(s.pos)
	}

	if depth <= 0 {
		return s.quiescence(ply, alpha, beta)
	}

	inCheck := s.pos.InCheck()
	hash := s.pos.Hash

	var ttMove board.Move
	var ttHit bool
	var probe Probe
	if !excluded {
		probe, ttHit = s.tt.Probe(hash, ply)
		if ttHit {
			ttMove = probe.Move
			if !pvNode && probe.Depth >= depth {
				switch probe.Bound {
				case BoundExact:
					return probe.Score
				case BoundLower:
					if probe.Score >= beta {
						return probe.Score
					}
				case BoundUpper:
					if probe.Score <= alpha {
						return probe.Score
					}
				}
			}
		}
	}

	var staticEval int
	if inCheck {
		staticEval = -Infinite
	} else if ttHit {
		staticEval = probe.StaticEval
	} else {
		staticEval = s.evaluator.StaticEval(s.pos) + s.corrHist.Get(s.pos)
	}

	improving := false
	if !inCheck && ply >= 2 {
		improving = true // approximation: not derived from earlier static evals
	}

	if !root && !inCheck && !pvNode && !excluded {
		// Reverse futility pruning.
		if depth <= rfpMaxDepth && staticEval-rfpMargin*depth >= beta {
			return staticEval
		}

		// Razoring.
		if depth <= razorMaxDepth && staticEval+razorMargin*depth <= alpha {
			score := s.quiescence(ply, alpha, beta)
			if score <= alpha {
				return score
			}
		}

		// Null-move pruning.
		if depth >= nmpMinDepth && staticEval >= beta && s.pos.HasNonPawnMaterial() && !s.nullMoveDisabled {
			r := 3 + depth/4
			if d := (staticEval - beta) / 200; d < 3 {
				r += d
			} else {
				r += 3
			}
			undo := s.pos.MakeNullMove()
			s.pushHistory(s.pos.Hash)
			s.moveStack[ply] = ContKey{Piece: board.NoPiece}
			nd := depth - r
			if nd < 0 {
				nd = 0
			}
			score := -s.negamax(nd, ply+1, -beta, -beta+1, !cutNode, false)
			s.popHistory()
			s.pos.UnmakeNullMove(undo)
			if s.aborted {
				return 0
			}
			if score >= beta {
				if score > Mate-MaxPly {
					score = beta
				}
				// Fail-highs at high depth get a reduced-depth,
				// null-move-disabled verification search before being
				// trusted; shallower cutoffs are accepted directly.
				if depth >= nmpVerifyDepth {
					s.nullMoveDisabled = true
					verify := s.negamax(nd, ply, beta-1, beta, cutNode, false)
					s.nullMoveDisabled = false
					if s.aborted {
						return 0
					}
					if verify >= beta {
						return beta
					}
				} else {
					return beta
				}
			}
		}

		// ProbCut.
		if depth >= probcutDepth && !IsMateScore(beta) {
			probBeta := beta + probcutMargin
			if s.probcut(depth, ply, probBeta) {
				return probBeta
			}
		}
	}

	// Internal iterative deepening: no TT move on a PV node at enough depth.
	if pvNode && ttMove == board.NoMove && depth >= iidMinDepth {
		s.negamax(depth-2, ply, alpha, beta, cutNode, false)
		if pvEntry, ok := s.tt.Probe(hash, ply); ok {
			ttMove = pvEntry.Move
		}
	}

	moves := s.pos.GenerateLegalMoves()
	if moves.Len() == 0 {
		if inCheck {
			return MatedIn(ply)
		}
		return Draw
	}

	cont1 := s.contKeyAt(ply, 1)
	cont2 := s.contKeyAt(ply, 2)
	cont4 := s.contKeyAt(ply, 4)
	scores := s.orderer.ScoreMoves(s.pos, moves, ply, ttMove, cont1, cont2, cont4)

	bestScore := -Infinite
	bestMove := board.NoMove
	origAlpha := alpha
	movesSearched := 0
	quietsTried := make([]board.Move, 0, 8)
	capturesTried := make([]board.Move, 0, 8)

	for i := 0; i < moves.Len(); i++ {
		PickMove(moves, scores, i)
		m := moves.Get(i)
		if excluded && m == s.excludedMove[ply] {
			continue
		}

		isCapture := m.IsCapture(s.pos)
		isQuiet := !isCapture && !m.IsPromotion()
		givesCheck := s.moveGivesCheck(m)

		if !root && !pvNode && !inCheck && bestScore > -Mate+MaxPly {
			if isQuiet {
				if depth <= lmpMaxDepth && movesSearched >= lmpCount(depth, improving) {
					continue
				}
				if depth <= futilityDepth && staticEval+futilityMargin[depth] <= alpha && !givesCheck {
					continue
				}
			}
			if depth <= seePruneDepth {
				threshold := -seeCapCoeff * depth
				if isQuiet {
					threshold = -seeQuietCoeff * depth * depth
				}
				if !eval.SEEGE(s.pos, m, threshold) {
					continue
				}
			}
		}

		extension := 0
		if givesCheck {
			extension = 1
		}
		if !excluded && m == ttMove && depth >= singularDepth && ttHit &&
			probe.Depth >= depth-3 && probe.Bound != BoundUpper {
			margin := depth * 2
			sBeta := probe.Score - margin
			sDepth := (depth - 1) / 2
			sScore := s.negamaxExcluded(sDepth, ply, sBeta-1, sBeta, m)
			if sScore < sBeta {
				extension = 1
			} else if sBeta >= beta {
				return sBeta
			}
		}

		undo := s.makeMove(m, ply)

		newDepth := depth - 1 + extension
		var score int
		if movesSearched == 0 {
			score = -s.negamax(newDepth, ply+1, -beta, -alpha, false, false)
		} else {
			reduction := 0
			if depth >= 3 && movesSearched >= 2 && isQuiet {
				reduction = lmrTable[min(depth, MaxPly-1)][min(movesSearched, 63)]
				if pvNode {
					reduction--
				}
				if improving {
					reduction--
				}
				if cutNode {
					reduction++
				}
				if reduction < 0 {
					reduction = 0
				}
				if reduction > newDepth-1 {
					reduction = newDepth - 1
				}
			}
			score = -s.negamax(newDepth-reduction, ply+1, -alpha-1, -alpha, true, false)
			if score > alpha && reduction > 0 {
				score = -s.negamax(newDepth, ply+1, -alpha-1, -alpha, !cutNode, false)
			}
			if score > alpha && pvNode {
				score = -s.negamax(newDepth, ply+1, -beta, -alpha, false, false)
			}
		}

		s.unmakeMove(m, undo)
		movesSearched++

		if s.aborted {
			return 0
		}

		if score > bestScore {
			bestScore = score
			bestMove = m
			if score > alpha {
				alpha = score
				if pvNode {
					s.pv[ply][0] = m
					copy(s.pv[ply][1:], s.pv[ply+1][:s.pvLen[ply+1]])
					s.pvLen[ply] = s.pvLen[ply+1] + 1
				}
			}
		}

		if alpha >= beta {
			if isQuiet {
				s.orderer.OnQuietCutoff(s.pos, m, ply, depth, quietsTried, cont1, cont2, cont4)
			} else if isCapture {
				s.orderer.OnCaptureCutoff(s.pos, m, depth, capturesTried)
			}
			break
		}

		if isQuiet {
			quietsTried = append(quietsTried, m)
		} else if isCapture {
			capturesTried = append(capturesTried, m)
		}
	}

	var bound Bound
	switch {
	case bestScore >= beta:
		bound = BoundLower
	case bestScore > origAlpha:
		bound = BoundExact
	default:
		bound = BoundUpper
	}
	if !excluded {
		s.tt.Store(hash, bestMove, bestScore, staticEval, depth, bound, ply)
		if !inCheck && bestMove != board.NoMove && !bestMove.IsCapture(s.pos) {
			s.corrHist.Update(s.pos, bestScore, staticEval, depth)
		}
	}

	return bestScore
}

// negamaxExcluded runs a reduced-depth, reduced-window search excluding
// singularMove at ply, for the singular-extension test (§4.F).
func (s *Searcher) negamaxExcluded(depth, ply, alpha, beta int, singularMove board.Move) int {
	s.excludedMove[ply] = singularMove
	score := s.negamax(depth, ply, alpha, beta, true, true)
	s.excludedMove[ply] = board.NoMove
	return score
}

func (s *Searcher) probcut(depth, ply, probBeta int) bool {
	moves := s.pos.GenerateCaptures()
	scores := s.orderer.ScoreMoves(s.pos, moves, ply, board.NoMove, ContKey{Piece: board.NoPiece}, ContKey{Piece: board.NoPiece}, ContKey{Piece: board.NoPiece})
	for i := 0; i < moves.Len(); i++ {
		PickMove(moves, scores, i)
		m := moves.Get(i)
		if !eval.SEEGE(s.pos, m, probBeta) {
			continue
		}
		undo := s.makeMove(m, ply)
		score := -s.negamax(depth-probcutDepth+1, ply+1, -probBeta, -probBeta+1, true, false)
		s.unmakeMove(m, undo)
		if s.aborted {
			return false
		}
		if score >= probBeta {
			return true
		}
	}
	return false
}

func lmpCount(depth int, improving bool) int {
	base := 3 + depth*depth
	if !improving {
		base /= 2
	}
	return base
}

// quiescence searches captures (and, when in check, all evasions) to a
// quiet position (§4.F).
func (s *Searcher) quiescence(ply, alpha, beta int) int {
	if s.aborted {
		return 0
	}
	if s.checkStop() {
		s.aborted = true
		return 0
	}
	if ply > s.seldepth {
		s.seldepth = ply
	}
	s.pvLen[ply] = 0

	if s.isDraw() {
		return Draw
	}
	if ply >= MaxPly-1 {
		return s.evaluator.StaticEval(s.pos)
	}

	inCheck := s.pos.InCheck()
	var standPat int
	if !inCheck {
		standPat = s.evaluator.StaticEval(s.pos) + s.corrHist.Get(s.pos)
		if standPat >= beta {
			return standPat
		}
		if standPat > alpha {
			alpha = standPat
		}
	}

	var moves *board.MoveList
	if inCheck {
		moves = s.pos.GenerateLegalMoves()
	} else {
		moves = s.pos.GenerateCaptures()
	}
	if moves.Len() == 0 {
		if inCheck {
			return MatedIn(ply)
		}
		return standPat
	}

	scores := s.orderer.ScoreMoves(s.pos, moves, ply, board.NoMove, ContKey{Piece: board.NoPiece}, ContKey{Piece: board.NoPiece}, ContKey{Piece: board.NoPiece})
	best := standPat
	if inCheck {
		best = -Infinite
	}

	for i := 0; i < moves.Len(); i++ {
		PickMove(moves, scores, i)
		m := moves.Get(i)
		isCapture := m.IsCapture(s.pos)

		if !inCheck {
			if isCapture {
				victim := s.pos.PieceAt(m.To())
				victimValue := eval.PieceValue(board.Pawn)
				if victim != board.NoPiece {
					victimValue = eval.PieceValue(victim.Type())
				}
				if standPat+victimValue+deltaMargin < alpha {
					continue
				}
				if !eval.SEEGE(s.pos, m, 0) {
					continue
				}
			} else if !m.IsPromotion() {
				continue
			}
		}

		undo := s.makeMove(m, ply)
		score := -s.quiescence(ply+1, -beta, -alpha)
		s.unmakeMove(m, undo)

		if s.aborted {
			return 0
		}

		if score > best {
			best = score
			if score > alpha {
				alpha = score
				s.pv[ply][0] = m
				copy(s.pv[ply][1:], s.pv[ply+1][:s.pvLen[ply+1]])
				s.pvLen[ply] = s.pvLen[ply+1] + 1
			}
		}
		if alpha >= beta {
			break
		}
	}

	return best
}

func (s *Searcher) moveGivesCheck(m board.Move) bool {
	undo := s.pos.MakeMove(m)
	gives := s.pos.InCheck()
	s.pos.UnmakeMove(m, undo)
	return gives
}

