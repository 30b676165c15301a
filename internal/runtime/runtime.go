// Package runtime binds one paper machine and one live gate per instrument,
// keeps the PnL books, and routes external signals and ticks. All state is
// reachable only through a Manager; there are no package-level trading
// contexts.
package runtime

import (
	"sync"

	"github.com/rs/zerolog"

	"gatebot-go/internal/history"
	"gatebot-go/internal/instrument"
	"gatebot-go/internal/live"
	"gatebot-go/internal/metrics"
	"gatebot-go/internal/paper"
	"gatebot-go/internal/pnl"
	"gatebot-go/internal/signal"
)

// Outcome reports how a TradingView signal was routed.
type Outcome string

const (
	// OutcomeIgnoredAlreadyOpen: ENTRY while a paper position is open.
	OutcomeIgnoredAlreadyOpen Outcome = "IGNORED_ALREADY_OPEN"
	// OutcomeBuySignal: ENTRY routed as a BUY signal.
	OutcomeBuySignal Outcome = "BUY_SIGNAL"
	// OutcomeExitConvertedToEntry: EXIT while flat becomes an ENTRY.
	OutcomeExitConvertedToEntry Outcome = "EXIT_CONVERTED_TO_ENTRY"
	// OutcomePendingExitNoPrice: EXIT deferred until the first tick arrives.
	OutcomePendingExitNoPrice Outcome = "PENDING_EXIT_NO_PRICE"
	// OutcomeClosedAndRearmed: EXIT closed the position and re-armed a BUY cycle.
	OutcomeClosedAndRearmed Outcome = "CLOSED_AND_REARMED"
)

// IntentSink receives live order intents. Implementations should return
// promptly; the tick path calls them inline.
type IntentSink interface {
	Submit(in instrument.Instrument, side signal.Side, refLTP float64)
}

// Options tunes every runtime a Manager creates.
type Options struct {
	WindowMs   int64
	GateMinPnl float64
	LockMs     int64
}

// Runtime is the per-instrument orchestrator. One mutex serializes every
// event for the instrument, so each signal or tick is processed run to
// completion with no half-updated state visible.
type Runtime struct {
	mu sync.Mutex

	log  zerolog.Logger
	inst instrument.Instrument
	opts Options

	rec  history.Recorder
	sink IntentSink

	machine *paper.Machine
	gate    *live.Gate

	lastPrice float64
	hasPrice  bool

	lastTradeCount int

	liveRealized   float64
	liveEntryPrice float64
	liveHasEntry   bool
	ledger         *history.Ledger

	pendingExit   bool
	pendingExitTs int64

	lastMinuteKey string
	minuteRow     *history.Row
}

func newRuntime(in instrument.Instrument, opts Options, rec history.Recorder, sink IntentSink, log zerolog.Logger) *Runtime {
	r := &Runtime{
		log:    log.With().Str("symbol", in.TradingView).Logger(),
		inst:   in,
		opts:   opts,
		rec:    rec,
		sink:   sink,
		ledger: history.NewLedger(50),
	}
	r.machine = paper.NewMachine(in.TradingView, opts.WindowMs, log)
	r.gate = live.NewGate(in.TradingView, opts.GateMinPnl, opts.LockMs, log)
	return r
}

// HandleSignal applies the signal-routing policy for one ENTRY/EXIT action.
func (r *Runtime) HandleSignal(action signal.TvAction, now int64) Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	metrics.SignalsTotal.WithLabelValues(r.inst.TradingView, string(action)).Inc()
	isOpen := r.machine.Position().IsOpen

	if action == signal.Entry {
		if isOpen {
			r.log.Info().Str("state", string(r.machine.State())).Msg("ENTRY ignored, paper position already open")
			return OutcomeIgnoredAlreadyOpen
		}
		r.machine.OnSignal(signal.Signal{Symbol: r.inst.TradingView, Side: signal.Buy, Ts: now})
		return OutcomeBuySignal
	}

	// EXIT. With no position there is nothing to exit; the source treats the
	// action as a fresh entry request instead of rejecting it.
	if !isOpen {
		r.machine.OnSignal(signal.Signal{Symbol: r.inst.TradingView, Side: signal.Buy, Ts: now})
		return OutcomeExitConvertedToEntry
	}

	if !r.hasPrice {
		r.log.Warn().Msg("EXIT received before any tick; deferring close")
		r.pendingExit = true
		r.pendingExitTs = now
		return OutcomePendingExitNoPrice
	}

	// Close at the last known price and immediately restart a BUY cycle
	// seeded with that same price. No wait window.
	r.machine.CloseAndRearm(r.lastPrice, now)
	return OutcomeClosedAndRearmed
}

// HandleTick runs the full per-tick pipeline for this instrument.
func (r *Runtime) HandleTick(ltp float64, now int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	metrics.TicksTotal.WithLabelValues(r.inst.TradingView).Inc()
	r.lastPrice = ltp
	r.hasPrice = true

	r.flushMinuteIfRolled(now)

	// An EXIT that arrived before the first price closes now.
	if r.pendingExit && r.machine.Position().IsOpen {
		r.log.Info().Int64("deferredAt", r.pendingExitTs).Float64("ltp", ltp).Msg("applying deferred exit")
		r.pendingExit = false
		r.pendingExitTs = 0
		r.machine.CloseAndRearm(ltp, now)
	}

	edge := r.machine.OnTick(signal.Tick{Symbol: r.inst.TradingView, LTP: ltp, Ts: now})

	r.gate.OnTick(now)

	// The gate runs on this instrument's own paper performance.
	paperPnl := r.machine.PnL(ltp, true)
	if r.gate.ForceExitIfNonPositive(paperPnl.Total, now) == live.ClosePosition {
		r.closeLive(ltp, now)
	}

	paperIsOpen := r.machine.Position().IsOpen
	if edge != nil {
		// One-shot notification on the closed->open transition. The live
		// position opens at the current tick price, not paper's entry, so a
		// stale paper fill can't fabricate an instant PnL jump.
		if r.gate.OnPaperEntryOpportunity(paperPnl.Total, now, edge.WindowEndTs) == live.OpenPosition {
			r.openLive(ltp, now)
		}
	} else if paperIsOpen {
		// Paper already open with no new edge; the gate may have just
		// unlocked and can catch up.
		if r.gate.TryOpenFromPaperPosition(paperPnl.Total, now) == live.OpenPosition {
			r.openLive(ltp, now)
		}
	}

	// Hold the latest sample for this minute; it is written when the minute
	// rolls over.
	r.minuteRow = &history.Row{
		Symbol: r.inst.TradingView,
		Ts:     now,
		Paper:  r.machine.PnL(ltp, true),
		Live:   r.livePnl(ltp),
	}

	r.persistNewTrades(ltp)
}

func (r *Runtime) flushMinuteIfRolled(now int64) {
	_, key := history.MinuteKey(now)
	if r.lastMinuteKey == "" {
		r.lastMinuteKey = key
		return
	}
	if key == r.lastMinuteKey {
		return
	}
	if r.minuteRow != nil {
		r.rec.Write(*r.minuteRow)
		r.minuteRow = nil
	}
	r.lastMinuteKey = key
}

// persistNewTrades diffs the trade count so every closed paper trade is
// written exactly once.
func (r *Runtime) persistNewTrades(ltp float64) {
	trades := r.machine.Trades()
	for i := r.lastTradeCount; i < len(trades); i++ {
		t := trades[i]
		metrics.PaperTradesTotal.WithLabelValues(r.inst.TradingView, string(t.Side)).Inc()
		r.rec.Write(history.Row{
			Symbol:     r.inst.TradingView,
			Ts:         t.ClosedAt,
			Paper:      r.machine.PnL(ltp, true),
			Live:       r.livePnl(ltp),
			PaperTrade: &t,
		})
	}
	r.lastTradeCount = len(trades)
}

func (r *Runtime) livePnl(price float64) pnl.Breakdown {
	unrealized := 0.0
	if r.liveHasEntry {
		unrealized = price - r.liveEntryPrice
	}
	return pnl.NewBreakdown(r.liveRealized, unrealized)
}

func (r *Runtime) openLive(entryPrice float64, now int64) {
	r.gate.MarkOpened(entryPrice, now)
	r.liveEntryPrice = entryPrice
	r.liveHasEntry = true

	r.ledger.Append(history.LiveEvent{
		Ts:         now,
		Action:     "OPEN",
		EntryPrice: entryPrice,
		OpenedAt:   now,
		CumAfter:   r.liveRealized,
	})
	r.log.Info().Float64("entry", entryPrice).Msg("live position opened")
	r.sink.Submit(r.inst, signal.Buy, entryPrice)
}

func (r *Runtime) closeLive(exitPrice float64, now int64) {
	entry := r.liveEntryPrice
	hadEntry := r.liveHasEntry
	var tradePnl float64
	if hadEntry {
		tradePnl = pnl.Round2(exitPrice - entry)
		r.liveRealized = pnl.Round2(r.liveRealized + tradePnl)
	}
	r.liveEntryPrice = 0
	r.liveHasEntry = false

	event := history.LiveEvent{
		Ts:        now,
		Action:    "CLOSE",
		ExitPrice: exitPrice,
		CumAfter:  r.liveRealized,
	}
	if hadEntry {
		event.EntryPrice = entry
		event.PnL = tradePnl
	}
	r.ledger.Append(event)

	if hadEntry {
		r.rec.Write(history.Row{
			Symbol:    r.inst.TradingView,
			Ts:        now,
			Paper:     r.machine.PnL(r.lastPrice, r.hasPrice),
			Live:      r.livePnl(r.lastPrice),
			LiveTrade: &event,
		})
	}
	r.log.Info().Float64("exit", exitPrice).Float64("pnl", tradePnl).Msg("live position closed")
	r.sink.Submit(r.inst, signal.Sell, exitPrice)
}

// Reset closes anything open at the last known price, flushes pending
// persistence, zeroes live books, and recreates fresh paper/live contexts.
// Safe to call with nothing open.
func (r *Runtime) Reset(now int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.machine.Position().IsOpen && r.hasPrice {
		r.machine.CloseAndHold(r.lastPrice, now)
	}
	if r.gate.Position().IsOpen && r.hasPrice {
		r.closeLive(r.lastPrice, now)
	}
	r.gate.ForceClose()

	// Trades closed by the reset itself still need their rows.
	if r.hasPrice {
		r.persistNewTrades(r.lastPrice)
	}
	if r.minuteRow != nil {
		r.rec.Write(*r.minuteRow)
		r.minuteRow = nil
	}

	r.machine = paper.NewMachine(r.inst.TradingView, r.opts.WindowMs, r.log)
	r.gate = live.NewGate(r.inst.TradingView, r.opts.GateMinPnl, r.opts.LockMs, r.log)
	r.liveRealized = 0
	r.liveEntryPrice = 0
	r.liveHasEntry = false
	r.ledger.Reset()
	r.pendingExit = false
	r.pendingExitTs = 0
	r.lastTradeCount = 0
	r.lastMinuteKey = ""
	r.log.Info().Msg("runtime reset")
}
