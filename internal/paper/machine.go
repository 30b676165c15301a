// Package paper implements the simulated-position state machine: trigger and
// stop derivation from the first post-signal tick, timed entry and profit
// windows, and the wait/re-arm cooldown cycle. All timing is lazy: the machine
// only moves when fed a signal or a tick, never on its own.
package paper

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"gatebot-go/internal/pnl"
	"gatebot-go/internal/signal"
	"gatebot-go/internal/window"
)

// DefaultWindowMs is the standard length of every timed window.
const DefaultWindowMs int64 = 60_000

// triggerOffset is added above (buy) or below (sell) the saved LTP to form the
// entry trigger, and subtracted to form the stop. Trigger and stop can never
// both match on one tick because they sit a full offset apart on each side.
const triggerOffset = 0.5

// Machine is the per-instrument paper FSM. It is not internally locked; the
// owning runtime serializes all access (single writer per instrument).
type Machine struct {
	log    zerolog.Logger
	symbol string

	state State

	savedBuyLTP  float64
	savedSellLTP float64

	buyEntryTrigger float64
	buyStop         float64
	hasBuyLevels    bool

	sellEntryTrigger float64
	sellStop         float64
	hasSellLevels    bool

	win        window.Countdown
	windowMs   int64
	waitSource State

	position Position
	trades   []Trade
}

// NewMachine creates a machine in WAIT_FOR_SIGNAL for one instrument.
func NewMachine(symbol string, windowMs int64, log zerolog.Logger) *Machine {
	if windowMs <= 0 {
		windowMs = DefaultWindowMs
	}
	m := &Machine{
		log:      log.With().Str("symbol", symbol).Logger(),
		symbol:   symbol,
		state:    WaitForSignal,
		windowMs: windowMs,
	}
	m.log.Debug().Str("state", string(m.state)).Msg("paper machine created")
	return m
}

// Symbol returns the instrument this machine belongs to.
func (m *Machine) Symbol() string { return m.symbol }

// State returns the current FSM state.
func (m *Machine) State() State { return m.state }

// Position returns a copy of the current position.
func (m *Machine) Position() Position { return m.position }

// Trades returns the closed-trade history. Callers must not mutate it.
func (m *Machine) Trades() []Trade { return m.trades }

// TradeCount returns how many paper trades have closed so far.
func (m *Machine) TradeCount() int { return len(m.trades) }

// WindowEndTs returns the absolute expiry of the active window, or now plus a
// full window when none is armed.
func (m *Machine) WindowEndTs(now int64) int64 {
	if m.win.Active() {
		return m.win.EndTs()
	}
	return now + m.windowMs
}

// Levels returns the derived trigger/stop values for snapshots.
func (m *Machine) Levels() Levels {
	return Levels{
		SavedBuyLTP:      m.savedBuyLTP,
		BuyEntryTrigger:  m.buyEntryTrigger,
		BuyStop:          m.buyStop,
		SavedSellLTP:     m.savedSellLTP,
		SellEntryTrigger: m.sellEntryTrigger,
		SellStop:         m.sellStop,
		HasBuy:           m.hasBuyLevels,
		HasSell:          m.hasSellLevels,
		WindowStartTs:    m.win.StartTs,
		WindowDurationMs: m.win.DurationMs,
		WaitSource:       m.waitSource,
	}
}

// RealizedPnL folds the closed-trade list, rounded to 2 decimals.
func (m *Machine) RealizedPnL() float64 {
	pnls := make([]float64, len(m.trades))
	for i, t := range m.trades {
		pnls[i] = t.PnL
	}
	return pnl.Realized(pnls)
}

// UnrealizedPnL returns the signed open-position PnL at the given price, zero
// when flat.
func (m *Machine) UnrealizedPnL(price float64) float64 {
	if !m.position.IsOpen {
		return 0
	}
	if m.position.Side == signal.Sell {
		return pnl.Round2(m.position.EntryPrice - price)
	}
	return pnl.Round2(price - m.position.EntryPrice)
}

// PnL combines realized and unrealized into the snapshot breakdown.
func (m *Machine) PnL(price float64, havePrice bool) pnl.Breakdown {
	unrealized := 0.0
	if havePrice {
		unrealized = m.UnrealizedPnL(price)
	}
	return pnl.NewBreakdown(m.RealizedPnL(), unrealized)
}

// OnSignal accepts or ignores an external BUY/SELL signal. Signals are only
// honored from WAIT_FOR_SIGNAL or from the matching wait-for-entry state
// (re-arm); anything else is a logged no-op.
func (m *Machine) OnSignal(sig signal.Signal) {
	if sig.Symbol != m.symbol {
		return
	}

	from := m.state
	switch {
	case sig.Side == signal.Buy && (from == WaitForSignal || from == WaitForBuyEntry):
		m.state = BuySignal
		m.win.Clear()
		m.log.Info().Str("from", string(from)).Int64("ts", sig.Ts).Msg("BUY signal accepted")
	case sig.Side == signal.Sell && (from == WaitForSignal || from == WaitForSellEntry):
		m.state = SellSignal
		m.win.Clear()
		m.log.Info().Str("from", string(from)).Int64("ts", sig.Ts).Msg("SELL signal accepted")
	default:
		m.log.Debug().Str("side", string(sig.Side)).Str("state", string(from)).Msg("signal ignored in state")
	}
}

// OnTick advances the machine with one price observation. The return value is
// non-nil exactly when this tick opened a position.
func (m *Machine) OnTick(tick signal.Tick) *EntryOpened {
	if tick.Symbol != m.symbol {
		return nil
	}

	switch m.state {
	case BuySignal, SellSignal:
		return m.onFirstTickAfterSignal(tick)
	case BuyEntryWindow, SellEntryWindow:
		return m.onEntryWindowTick(tick)
	case BuyProfitWindow, SellProfitWindow:
		m.onProfitWindowTick(tick)
	case WaitWindow:
		m.onWaitWindowTick(tick)
	case WaitForBuyEntry, WaitForSellEntry:
		return m.onWaitForEntryTick(tick)
	case WaitForSignal:
		// Pure waiting state; ticks carry no meaning here.
	default:
		m.log.Warn().Str("state", string(m.state)).Msg("tick in unknown state")
	}
	return nil
}

// close realizes the open position at exitPrice, appends the trade, and
// resets the position. Calling it with no open position is a no-op.
func (m *Machine) close(exitPrice float64, exitTs int64) *Trade {
	if !m.position.IsOpen {
		m.log.Warn().Msg("close requested with no open position")
		return nil
	}

	raw := exitPrice - m.position.EntryPrice
	if m.position.Side == signal.Sell {
		raw = m.position.EntryPrice - exitPrice
	}
	trade := Trade{
		ID:         uuid.NewString(),
		Symbol:     m.symbol,
		Side:       m.position.Side,
		EntryPrice: m.position.EntryPrice,
		ExitPrice:  exitPrice,
		OpenedAt:   m.position.OpenedAt,
		ClosedAt:   exitTs,
		PnL:        pnl.Round2(raw),
	}
	m.trades = append(m.trades, trade)
	m.position = Position{}

	m.log.Info().
		Str("side", string(trade.Side)).
		Float64("entry", trade.EntryPrice).
		Float64("exit", trade.ExitPrice).
		Float64("pnl", trade.PnL).
		Float64("cumPnl", m.RealizedPnL()).
		Msg("paper position closed")
	return &trade
}

// CloseAndHold closes any open position at price and parks the machine in
// WAIT_WINDOW for the remaining time of the interrupted window, falling back
// to WAIT_FOR_SIGNAL when no window is armed. Used for operator-driven exits
// and the daily reset.
func (m *Machine) CloseAndHold(price float64, now int64) *Trade {
	trade := m.close(price, now)

	remaining := m.win.Remaining(now)
	if remaining < 0 {
		m.state = WaitForSignal
		m.win.Clear()
		m.waitSource = ""
		return trade
	}
	m.waitSource = m.state
	m.win.Start(now, remaining)
	m.state = WaitWindow
	m.log.Info().Int64("remainingMs", remaining).Msg("manual exit, holding in wait window")
	return trade
}

// CloseAndRearm closes any open position at price, then immediately restarts a
// BUY cycle using the same price as the first post-signal tick. There is no
// cooldown: the entry window opens on the spot.
func (m *Machine) CloseAndRearm(price float64, now int64) *Trade {
	trade := m.close(price, now)

	m.state = WaitForSignal
	m.win.Clear()
	m.waitSource = ""

	m.OnSignal(signal.Signal{Symbol: m.symbol, Side: signal.Buy, Ts: now})
	m.OnTick(signal.Tick{Symbol: m.symbol, LTP: price, Ts: now})
	return trade
}
