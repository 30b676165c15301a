// Package live implements the gate that decides whether real orders may
// mirror the paper machine. The gate never sees prices; it only reacts to the
// instrument's cumulative PnL and to time, and answers with intents that an
// external executor turns into broker orders.
package live

import "github.com/rs/zerolog"

// State is the gate's position/lock status.
type State string

const (
	// Idle means no live position and trading is allowed.
	Idle State = "IDLE"
	// InPosition means a live position is open.
	InPosition State = "POSITION"
	// Locked means live trading is blocked until LockUntilTs.
	Locked State = "LOCKED"
)

// Action is the intent handed to the order-execution collaborator.
type Action string

const (
	OpenPosition  Action = "OPEN_POSITION"
	ClosePosition Action = "CLOSE_POSITION"
	None          Action = "NONE"
)

// Position mirrors the paper position shape without trade history. The entry
// price is recorded by the orchestrator at the moment the order intent is
// acted on, not by the gate itself.
type Position struct {
	IsOpen     bool    `json:"isOpen"`
	EntryPrice float64 `json:"entryPrice,omitempty"`
	OpenedAt   int64   `json:"openedAt,omitempty"`
}

// DefaultLockMs is how long a forced exit locks the gate.
const DefaultLockMs int64 = 60_000

// Gate is the per-instrument live-trading state machine. Like the paper
// machine it is unlocked internally; the owning runtime serializes access.
type Gate struct {
	log    zerolog.Logger
	symbol string

	state       State
	position    Position
	lockUntilTs int64

	// minPnl is the gate threshold: live trading requires cumPnl > minPnl.
	// Zero gives the strictly-positive rule; a negative value admits the
	// non-negative variant.
	minPnl float64
	lockMs int64
}

// NewGate builds an idle gate for one instrument.
func NewGate(symbol string, minPnl float64, lockMs int64, log zerolog.Logger) *Gate {
	if lockMs <= 0 {
		lockMs = DefaultLockMs
	}
	g := &Gate{
		log:    log.With().Str("symbol", symbol).Logger(),
		symbol: symbol,
		state:  Idle,
		minPnl: minPnl,
		lockMs: lockMs,
	}
	g.log.Debug().Msg("live gate created")
	return g
}

// State returns the current gate state.
func (g *Gate) State() State { return g.state }

// Position returns a copy of the mirrored position.
func (g *Gate) Position() Position { return g.position }

// LockUntilTs returns the lock deadline, zero when unlocked. The lock
// invariant holds: it is non-zero exactly while the state is LOCKED.
func (g *Gate) LockUntilTs() int64 { return g.lockUntilTs }

// MarkOpened records the actual fill price once the orchestrator acts on an
// OPEN_POSITION intent.
func (g *Gate) MarkOpened(entryPrice float64, now int64) {
	g.position.EntryPrice = entryPrice
	g.position.OpenedAt = now
}

func (g *Gate) locked(now int64) bool {
	return g.state == Locked && g.lockUntilTs != 0 && now < g.lockUntilTs
}

func (g *Gate) allowed(cumPnl float64) bool {
	return cumPnl > g.minPnl
}

// OnPaperEntryOpportunity is called exactly once per paper position-open edge.
// With a healthy PnL it opens (or keeps) the live position; with a
// non-positive PnL it closes any open position and locks until the end of the
// paper window that produced the edge.
func (g *Gate) OnPaperEntryOpportunity(cumPnl float64, now, paperWindowEndTs int64) Action {
	if g.locked(now) {
		g.log.Debug().Float64("cumPnl", cumPnl).Int64("lockUntil", g.lockUntilTs).Msg("locked, entry opportunity suppressed")
		return None
	}

	if g.allowed(cumPnl) {
		if g.state == InPosition {
			return None
		}
		g.state = InPosition
		g.position = Position{IsOpen: true, OpenedAt: now}
		g.lockUntilTs = 0
		g.log.Info().Float64("cumPnl", cumPnl).Msg("live open on paper entry edge")
		return OpenPosition
	}

	// Non-positive PnL: only react if there is something to close. A lock
	// needs a reason; no position means no new lock.
	if g.state != InPosition || !g.position.IsOpen {
		return None
	}
	g.position = Position{}
	g.state = Locked
	g.lockUntilTs = paperWindowEndTs
	g.log.Info().Float64("cumPnl", cumPnl).Int64("lockUntil", g.lockUntilTs).Msg("live close and lock on paper entry edge")
	return ClosePosition
}

// OnTick clears an expired lock. It runs on every tick regardless of other
// activity.
func (g *Gate) OnTick(now int64) {
	if g.state == Locked && g.lockUntilTs != 0 && now >= g.lockUntilTs {
		g.state = Idle
		g.lockUntilTs = 0
		g.log.Info().Int64("now", now).Msg("live lock expired")
	}
}

// ForceExitIfNonPositive closes an open live position as soon as cumulative
// PnL stops being healthy, locking for a full lock period from now. It runs
// every tick so a deteriorating PnL never waits for the next paper edge.
func (g *Gate) ForceExitIfNonPositive(cumPnl float64, now int64) Action {
	if g.allowed(cumPnl) {
		return None
	}
	if g.state != InPosition || !g.position.IsOpen {
		return None
	}
	g.position = Position{}
	g.state = Locked
	g.lockUntilTs = now + g.lockMs
	g.log.Info().Float64("cumPnl", cumPnl).Int64("lockUntil", g.lockUntilTs).Msg("live force exit")
	return ClosePosition
}

// TryOpenFromPaperPosition opens a live position when paper is already open
// but the gate sat idle, typically right after a lock expired. It refuses
// while locked, while already in a position, or without a healthy PnL.
func (g *Gate) TryOpenFromPaperPosition(cumPnl float64, now int64) Action {
	if !g.allowed(cumPnl) {
		return None
	}
	if g.locked(now) {
		return None
	}
	if g.state == InPosition && g.position.IsOpen {
		return None
	}
	g.state = InPosition
	g.position = Position{IsOpen: true, OpenedAt: now}
	g.lockUntilTs = 0
	g.log.Info().Float64("cumPnl", cumPnl).Msg("live open from existing paper position")
	return OpenPosition
}

// ForceClose drops any open position without locking; used by the daily reset.
func (g *Gate) ForceClose() {
	if g.position.IsOpen {
		g.position = Position{}
	}
	if g.state == InPosition {
		g.state = Idle
	}
}
