package engine

import (
	"testing"
	"time"

	"github.com/grailchess/grail/internal/board"
)

func TestTimeManagerMoveTimeIgnoresClock(t *testing.T) {
	tm := NewTimeManager()
	tm.Init(UCILimits{MoveTime: 500 * time.Millisecond}, board.White, 0)

	if tm.SoftLimit() != tm.HardLimit() {
		t.Fatalf("expected movetime to pin soft == hard, got soft=%v hard=%v", tm.SoftLimit(), tm.HardLimit())
	}
	if tm.HardLimit() <= 0 || tm.HardLimit() > 500*time.Millisecond {
		t.Fatalf("expected hard limit near 500ms minus overhead, got %v", tm.HardLimit())
	}
}

func TestTimeManagerInfiniteHasNoPracticalLimit(t *testing.T) {
	tm := NewTimeManager()
	tm.Init(UCILimits{Infinite: true, Time: [2]time.Duration{time.Second, time.Second}}, board.White, 0)
	if tm.HardLimit() < time.Hour {
		t.Fatalf("expected an effectively unbounded hard limit for infinite search, got %v", tm.HardLimit())
	}
}

func TestTimeManagerSoftNeverExceedsHard(t *testing.T) {
	tm := NewTimeManager()
	tm.Init(UCILimits{Time: [2]time.Duration{5 * time.Second, 5 * time.Second}}, board.White, 0)
	if tm.SoftLimit() > tm.HardLimit() {
		t.Fatalf("soft limit %v exceeds hard limit %v", tm.SoftLimit(), tm.HardLimit())
	}
}

func TestTimeManagerStabilityNeverExceedsHard(t *testing.T) {
	tm := NewTimeManager()
	tm.Init(UCILimits{Time: [2]time.Duration{5 * time.Second, 5 * time.Second}}, board.White, 0)
	hard := tm.HardLimit()

	tm.AdjustForInstability(10)
	if tm.SoftLimit() > hard {
		t.Fatalf("expected instability adjustment to stay clamped at hard limit, got soft=%v hard=%v", tm.SoftLimit(), hard)
	}

	before := tm.SoftLimit()
	tm.AdjustForStability(10)
	if tm.SoftLimit() >= before {
		t.Fatalf("expected high stability to shrink the soft limit, got %v >= %v", tm.SoftLimit(), before)
	}
}

func TestTimeManagerDepthLimitedIsUnbounded(t *testing.T) {
	tm := NewTimeManager()
	tm.Init(UCILimits{Depth: 10, Time: [2]time.Duration{time.Second, time.Second}}, board.White, 0)
	if tm.HardLimit() < time.Hour {
		t.Fatalf("expected depth-limited search to ignore the clock, got hard=%v", tm.HardLimit())
	}
}
