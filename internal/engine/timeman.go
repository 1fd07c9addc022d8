package engine

import (
	"time"

	"github.com/grailchess/grail/internal/board"
)

// UCILimits contains UCI time control parameters (§4.G, §6).
type UCILimits struct {
	Time      [2]time.Duration // wtime, btime
	Inc       [2]time.Duration // winc, binc
	MovesToGo int
	MoveTime  time.Duration
	Depth     int
	Nodes     uint64
	Infinite  bool
	Ponder    bool
}

// TimeManager derives soft/hard deadlines from UCILimits (§4.G).
type TimeManager struct {
	softLimit time.Duration
	hardLimit time.Duration
	startTime time.Time
}

func NewTimeManager() *TimeManager {
	return &TimeManager{}
}

// Init computes the soft and hard limits for a move at game ply ply, for
// side us.
func (tm *TimeManager) Init(limits UCILimits, us board.Color, ply int) {
	tm.startTime = time.Now()

	if limits.MoveTime > 0 {
		overhead := 20 * time.Millisecond
		t := limits.MoveTime - overhead
		if t < 10*time.Millisecond {
			t = 10 * time.Millisecond
		}
		tm.softLimit = t
		tm.hardLimit = t
		return
	}

	if limits.Infinite || limits.Depth > 0 || limits.Time[us] == 0 {
		tm.softLimit = time.Hour
		tm.hardLimit = time.Hour
		return
	}

	timeLeft := limits.Time[us]
	inc := limits.Inc[us]

	mtg := limits.MovesToGo
	if mtg == 0 {
		mtg = 50 - ply/4
		if mtg < 10 {
			mtg = 10
		}
		if mtg > 50 {
			mtg = 50
		}
	}

	hard := timeLeft / 2
	if mtg > 0 {
		perMove := timeLeft/time.Duration(mtg) + inc*3
		if perMove < hard {
			hard = perMove
		}
	}
	soft := hard / 3

	safetyMargin := timeLeft * 95 / 100
	if hard > safetyMargin {
		hard = safetyMargin
	}
	if soft < 10*time.Millisecond {
		soft = 10 * time.Millisecond
	}
	if hard < 50*time.Millisecond {
		hard = 50 * time.Millisecond
	}

	tm.softLimit = soft
	tm.hardLimit = hard
}

func (tm *TimeManager) Elapsed() time.Duration {
	return time.Since(tm.startTime)
}

func (tm *TimeManager) SoftLimit() time.Duration {
	return tm.softLimit
}

func (tm *TimeManager) HardLimit() time.Duration {
	return tm.hardLimit
}

// ShouldStop reports whether the hard limit has been exceeded.
func (tm *TimeManager) ShouldStop() bool {
	return tm.Elapsed() >= tm.hardLimit
}

// PastSoftLimit reports whether the soft limit has been reached, in which
// case the search starts no new iterative-deepening iteration.
func (tm *TimeManager) PastSoftLimit() bool {
	return tm.Elapsed() >= tm.softLimit
}

// AdjustForStability scales the soft limit down when the best move has
// been stable across several depths, letting the search stop earlier.
func (tm *TimeManager) AdjustForStability(stability int) {
	switch {
	case stability >= 6:
		tm.softLimit = tm.softLimit * 40 / 100
	case stability >= 4:
		tm.softLimit = tm.softLimit * 60 / 100
	case stability >= 2:
		tm.softLimit = tm.softLimit * 80 / 100
	}
}

// AdjustForInstability scales the soft limit up (never past the hard
// limit) when the best move keeps changing across depths.
func (tm *TimeManager) AdjustForInstability(changes int) {
	switch {
	case changes >= 4:
		tm.softLimit = tm.softLimit * 200 / 100
	case changes >= 2:
		tm.softLimit = tm.softLimit * 150 / 100
	}
	if tm.softLimit > tm.hardLimit {
		tm.softLimit = tm.hardLimit
	}
}
