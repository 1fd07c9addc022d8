package engine

import (
	"testing"
	"time"

	"github.com/grailchess/grail/internal/board"
)

func TestDriverGoReturnsBestMoveOnDepthLimit(t *testing.T) {
	d := NewDriver()

	done := make(chan board.Move, 1)
	d.OnBestMove = func(best, ponder board.Move) {
		done <- best
	}

	d.Go(UCILimits{Depth: 4})

	select {
	case best := <-done:
		if best == board.NoMove {
			t.Fatal("expected a legal best move from the starting position")
		}
	case <-time.After(10 * time.Second):
		t.Fatal("search did not complete within the depth limit")
	}
	d.Wait()
}

func TestDriverStopCancelsInfiniteSearch(t *testing.T) {
	d := NewDriver()

	done := make(chan board.Move, 1)
	d.OnBestMove = func(best, ponder board.Move) {
		done <- best
	}

	d.Go(UCILimits{Infinite: true})
	time.Sleep(20 * time.Millisecond)
	d.Stop()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("expected Stop to cancel the infinite search promptly")
	}
	d.Wait()
}

func TestDriverRejectsConcurrentGo(t *testing.T) {
	d := NewDriver()
	d.OnBestMove = func(best, ponder board.Move) {}

	d.Go(UCILimits{Infinite: true})
	if !d.IsRunning() {
		t.Fatal("expected driver to report running immediately after Go")
	}
	// A second Go call while one is in flight must be a no-op, not a
	// second concurrent search.
	d.Go(UCILimits{Infinite: true})

	d.Stop()
	d.Wait()
}

func TestDriverSetUseNNUEWithoutLoadedNetworkFails(t *testing.T) {
	d := NewDriver()
	if d.SetUseNNUE(true) {
		t.Fatal("expected SetUseNNUE(true) to fail with no network loaded")
	}
}
