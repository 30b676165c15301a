package live

import (
	"testing"

	"github.com/rs/zerolog"
)

func newTestGate() *Gate {
	return NewGate("NIFTY251216C26050", 0, DefaultLockMs, zerolog.Nop())
}

func TestEntryOpportunityOpensOnPositivePnl(t *testing.T) {
	g := newTestGate()
	if got := g.OnPaperEntryOpportunity(1.5, 1_000, 61_000); got != OpenPosition {
		t.Fatalf("expected OPEN_POSITION, got %s", got)
	}
	if g.State() != InPosition || !g.Position().IsOpen {
		t.Fatalf("gate should hold a position: %s", g.State())
	}
	// A second edge while already in position keeps it.
	if got := g.OnPaperEntryOpportunity(2.0, 2_000, 62_000); got != None {
		t.Fatalf("expected NONE while already in position, got %s", got)
	}
}

func TestEntryOpportunityClosesAndLocksOnNonPositivePnl(t *testing.T) {
	g := newTestGate()
	g.OnPaperEntryOpportunity(1.0, 1_000, 61_000)

	if got := g.OnPaperEntryOpportunity(-0.5, 5_000, 65_000); got != ClosePosition {
		t.Fatalf("expected CLOSE_POSITION, got %s", got)
	}
	if g.State() != Locked {
		t.Fatalf("expected LOCKED, got %s", g.State())
	}
	if g.LockUntilTs() != 65_000 {
		t.Fatalf("lock should run to the paper window end, got %d", g.LockUntilTs())
	}
}

func TestNoLockWithoutAPositionToClose(t *testing.T) {
	g := newTestGate()
	if got := g.OnPaperEntryOpportunity(-1.0, 1_000, 61_000); got != None {
		t.Fatalf("expected NONE, got %s", got)
	}
	if g.State() != Idle || g.LockUntilTs() != 0 {
		t.Fatalf("no position means no new lock: %s %d", g.State(), g.LockUntilTs())
	}
}

func TestLockInvariantAndExpiry(t *testing.T) {
	g := newTestGate()
	g.OnPaperEntryOpportunity(1.0, 1_000, 61_000)
	g.OnPaperEntryOpportunity(-0.5, 5_000, 65_000)

	// state == LOCKED iff lockUntilTs is set.
	if g.State() != Locked || g.LockUntilTs() == 0 {
		t.Fatalf("lock invariant broken after close: %s %d", g.State(), g.LockUntilTs())
	}

	// While locked and unexpired, no open intent is possible.
	if got := g.OnPaperEntryOpportunity(5.0, 10_000, 70_000); got != None {
		t.Fatalf("locked gate must suppress entries, got %s", got)
	}
	if got := g.TryOpenFromPaperPosition(5.0, 10_000); got != None {
		t.Fatalf("locked gate must refuse catch-up opens, got %s", got)
	}

	// The very next tick at/after the deadline clears the lock.
	g.OnTick(64_999)
	if g.State() != Locked {
		t.Fatalf("lock cleared early")
	}
	g.OnTick(65_000)
	if g.State() != Idle || g.LockUntilTs() != 0 {
		t.Fatalf("lock not cleared: %s %d", g.State(), g.LockUntilTs())
	}
}

func TestForceExitLocksForFullPeriodFromNow(t *testing.T) {
	g := newTestGate()
	g.OnPaperEntryOpportunity(1.0, 1_000, 61_000)

	// cumPnl exactly zero counts as non-positive.
	if got := g.ForceExitIfNonPositive(0, 30_000); got != ClosePosition {
		t.Fatalf("expected CLOSE_POSITION at zero pnl, got %s", got)
	}
	if g.LockUntilTs() != 90_000 {
		t.Fatalf("expected lock until 90000, got %d", g.LockUntilTs())
	}
	// Flat gate: nothing to force-close.
	if got := g.ForceExitIfNonPositive(-3, 95_000); got != None {
		t.Fatalf("expected NONE when flat, got %s", got)
	}
}

func TestTryOpenFromPaperPosition(t *testing.T) {
	g := newTestGate()

	// Needs strictly positive pnl under the default threshold.
	if got := g.TryOpenFromPaperPosition(0, 1_000); got != None {
		t.Fatalf("zero pnl must not open, got %s", got)
	}
	if got := g.TryOpenFromPaperPosition(0.01, 1_000); got != OpenPosition {
		t.Fatalf("expected OPEN_POSITION, got %s", got)
	}
	// Already in position: refuse.
	if got := g.TryOpenFromPaperPosition(1.0, 2_000); got != None {
		t.Fatalf("expected NONE while in position, got %s", got)
	}
}

func TestTryOpenAfterLockExpiry(t *testing.T) {
	g := newTestGate()
	g.OnPaperEntryOpportunity(1.0, 1_000, 61_000)
	g.ForceExitIfNonPositive(-1, 10_000) // locked until 70000

	g.OnTick(70_000)
	if g.State() != Idle {
		t.Fatalf("expected IDLE after expiry, got %s", g.State())
	}
	if got := g.TryOpenFromPaperPosition(0.5, 70_500); got != OpenPosition {
		t.Fatalf("expected catch-up open, got %s", got)
	}
}

func TestConfigurableThreshold(t *testing.T) {
	// A negative threshold admits the non-negative gate variant.
	g := NewGate("SENSEX25D1885300CE", -0.001, DefaultLockMs, zerolog.Nop())
	if got := g.TryOpenFromPaperPosition(0, 1_000); got != OpenPosition {
		t.Fatalf("zero pnl should pass a negative threshold, got %s", got)
	}
}

func TestMarkOpenedRecordsFill(t *testing.T) {
	g := newTestGate()
	g.OnPaperEntryOpportunity(1.0, 1_000, 61_000)
	g.MarkOpened(100.6, 1_000)
	pos := g.Position()
	if pos.EntryPrice != 100.6 || pos.OpenedAt != 1_000 {
		t.Fatalf("fill not recorded: %+v", pos)
	}
}
