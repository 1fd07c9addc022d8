package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/grailchess/grail/internal/board"
	"github.com/grailchess/grail/internal/eval"
	"github.com/grailchess/grail/internal/nnue"
)

// defaultHashMB and defaultPawnHashMB size the tables Driver allocates
// when no setoption has overridden them yet (§6).
const (
	defaultHashMB     = 64
	defaultPawnHashMB = 4
)

// Driver owns the Board, transposition table, evaluator, and
// cancellation state, and exposes the operations a UCI front end needs
// (§4.H): NewGame, SetPosition, Go, Stop, SetHashSize, SetUseNNUE.
type Driver struct {
	mu sync.Mutex

	pos      *board.Position
	history  []uint64 // game-history Zobrist keys, root to current position
	tt       *TranspositionTable
	orderer  *MoveOrderer
	corrHist *CorrectionHistory

	hce     *eval.HCE
	nn      *nnue.Evaluator
	useNNUE bool

	hashMB     int
	pawnHashMB int

	stopping atomic.Bool
	running  bool
	wg       sync.WaitGroup

	OnInfo      func(SearchInfo)
	OnBestMove  func(best, ponder board.Move)
	OnDebugInfo func(string)
}

// NewDriver constructs a Driver at the standard starting position.
func NewDriver() *Driver {
	d := &Driver{
		hashMB:     defaultHashMB,
		pawnHashMB: defaultPawnHashMB,
	}
	d.tt = NewTranspositionTable(d.hashMB)
	d.orderer = NewMoveOrderer()
	d.corrHist = NewCorrectionHistory()
	d.hce = eval.NewHCE(d.pawnHashMB)
	pos, err := board.ParseFEN(board.StartFEN)
	if err != nil {
		panic(fmt.Sprintf("parse start FEN: %v", err))
	}
	d.pos = pos
	d.history = []uint64{pos.Hash}
	return d
}

// NewGame prepares learned search state for a new game (§3 lifecycle,
// §6 "ucinewgame"): it clears the TT, killers, counter moves and
// correction history, and halves the history tables.
func (d *Driver) NewGame() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tt.Clear()
	d.orderer.Clear()
	d.corrHist.Clear()
	if d.nn != nil {
		d.nn.Refresh(d.pos)
	}
}

// SetPosition replaces the current position and game history (§6
// "position").
func (d *Driver) SetPosition(pos *board.Position, history []uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pos = pos
	d.history = append([]uint64(nil), history...)
	if d.nn != nil {
		d.nn.Refresh(d.pos)
	}
}

// SetHashSize resizes the transposition table, discarding its contents
// (§6 "setoption Hash").
func (d *Driver) SetHashSize(sizeMB int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hashMB = sizeMB
	d.tt = NewTranspositionTable(sizeMB)
}

// LoadNNUE attempts to load a network from path and, on success, makes
// it available for SetUseNNUE. A load failure never crashes the running
// engine (§7): the caller decides whether to fall back or fail fast.
func (d *Driver) LoadNNUE(path string) error {
	ev, err := nnue.NewEvaluator(path)
	if err != nil {
		return fmt.Errorf("load nnue weights: %w", err)
	}
	d.mu.Lock()
	d.nn = ev
	d.nn.Refresh(d.pos)
	d.mu.Unlock()
	return nil
}

// SetUseNNUE switches the active evaluator. Requesting NNUE when none is
// loaded silently keeps HCE active and returns false (§7.3 fallback).
func (d *Driver) SetUseNNUE(use bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if use && d.nn == nil {
		d.useNNUE = false
		return false
	}
	d.useNNUE = use
	return true
}

func (d *Driver) evaluator() Evaluator {
	if d.useNNUE && d.nn != nil {
		return d.nn
	}
	return d.hce
}

// Stop requests cooperative cancellation of any running search.
func (d *Driver) Stop() {
	d.stopping.Store(true)
}

// IsRunning reports whether a search is currently in flight.
func (d *Driver) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Go launches a search under limits, returning immediately. The search
// and its hard-limit watchdog run as an errgroup.Group of two goroutines
// (§4.H, §5); OnBestMove fires exactly once when the search concludes,
// whether by depth exhaustion, soft-limit, hard-limit, or Stop.
func (d *Driver) Go(limits UCILimits) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	pos := d.pos.Copy()
	history := append([]uint64(nil), d.history...)
	evaluator := d.evaluator()
	tm := NewTimeManager()
	tm.Init(limits, pos.SideToMove, len(history))
	d.stopping.Store(false)
	d.tt.NewSearch()
	searcher := NewSearcher(pos, d.orderer, d.tt, d.corrHist, evaluator, &d.stopping, history)
	searcher.OnInfo = d.OnInfo
	searcher.SetNodeLimit(limits.Nodes)
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			d.mu.Lock()
			d.running = false
			d.mu.Unlock()
		}()

		ctx, cancel := context.WithCancel(context.Background())
		g, ctx := errgroup.WithContext(ctx)

		var best board.Move
		g.Go(func() error {
			defer cancel()
			best = searcher.IterativeDeepen(tm, limits.Depth)
			return nil
		})
		g.Go(func() error {
			timer := time.NewTimer(tm.HardLimit())
			defer timer.Stop()
			select {
			case <-timer.C:
				searcher.Stop()
			case <-ctx.Done():
			}
			return nil
		})
		_ = g.Wait()

		if d.OnBestMove != nil {
			d.OnBestMove(best, board.NoMove)
		}
	}()
}

// Wait blocks until any in-flight search has finished, for synchronous
// callers (e.g. tests, or uci's "stop" followed immediately by "quit").
func (d *Driver) Wait() {
	d.wg.Wait()
}
