package paper

import "gatebot-go/internal/signal"

// onFirstTickAfterSignal derives trigger and stop levels from the first price
// seen after a signal and opens the matching entry window.
func (m *Machine) onFirstTickAfterSignal(tick signal.Tick) *EntryOpened {
	if m.state == BuySignal {
		m.savedBuyLTP = tick.LTP
		m.buyEntryTrigger = m.savedBuyLTP + triggerOffset
		m.buyStop = m.savedBuyLTP - triggerOffset
		m.hasBuyLevels = true

		m.win.Start(tick.Ts, m.windowMs)
		m.state = BuyEntryWindow

		m.log.Info().
			Float64("savedLtp", m.savedBuyLTP).
			Float64("trigger", m.buyEntryTrigger).
			Float64("stop", m.buyStop).
			Msg("BUY_SIGNAL -> BUYENTRY_WINDOW")
		return nil
	}

	m.savedSellLTP = tick.LTP
	m.sellEntryTrigger = m.savedSellLTP - triggerOffset
	m.sellStop = m.savedSellLTP + triggerOffset
	m.hasSellLevels = true

	m.win.Start(tick.Ts, m.windowMs)
	m.state = SellEntryWindow

	m.log.Info().
		Float64("savedLtp", m.savedSellLTP).
		Float64("trigger", m.sellEntryTrigger).
		Float64("stop", m.sellStop).
		Msg("SELL_SIGNAL -> SELLENTRY_WINDOW")
	return nil
}

// onEntryWindowTick checks the stop first (cycle failure), then the entry
// trigger. A stop hit moves to WAIT_WINDOW carrying the remaining time.
func (m *Machine) onEntryWindowTick(tick signal.Tick) *EntryOpened {
	if m.state == BuyEntryWindow {
		if !m.hasBuyLevels {
			m.log.Warn().Msg("BUYENTRY_WINDOW without buy levels")
			return nil
		}
		if tick.LTP <= m.buyStop {
			m.log.Info().Float64("ltp", tick.LTP).Float64("stop", m.buyStop).Msg("entry window stop hit, cycle failed")
			m.moveToWaitWindow(tick.Ts)
			return nil
		}
		if !m.position.IsOpen && tick.LTP >= m.buyEntryTrigger {
			return m.open(signal.Buy, tick)
		}
		return nil
	}

	if !m.hasSellLevels {
		m.log.Warn().Msg("SELLENTRY_WINDOW without sell levels")
		return nil
	}
	if tick.LTP >= m.sellStop {
		m.log.Info().Float64("ltp", tick.LTP).Float64("stop", m.sellStop).Msg("entry window stop hit, cycle failed")
		m.moveToWaitWindow(tick.Ts)
		return nil
	}
	if !m.position.IsOpen && tick.LTP <= m.sellEntryTrigger {
		return m.open(signal.Sell, tick)
	}
	return nil
}

// open records the position, starts a fresh profit window, and reports the
// position-open edge to the caller.
func (m *Machine) open(side signal.Side, tick signal.Tick) *EntryOpened {
	m.position = Position{
		IsOpen:     true,
		Side:       side,
		EntryPrice: tick.LTP,
		OpenedAt:   tick.Ts,
	}

	from := m.state
	m.win.Start(tick.Ts, m.windowMs)
	if side == signal.Buy {
		m.state = BuyProfitWindow
	} else {
		m.state = SellProfitWindow
	}

	m.log.Info().
		Str("from", string(from)).
		Str("to", string(m.state)).
		Float64("entry", tick.LTP).
		Msg("paper position opened")

	return &EntryOpened{EntryPrice: tick.LTP, WindowEndTs: m.win.EndTs()}
}

// onProfitWindowTick closes on a stop hit and otherwise renews the window when
// it has fully elapsed. No trade and no transition happen on renewal.
func (m *Machine) onProfitWindowTick(tick signal.Tick) {
	if m.state == BuyProfitWindow {
		if !m.hasBuyLevels {
			m.log.Warn().Msg("BUYPROFIT_WINDOW without buy levels")
			return
		}
		if tick.LTP <= m.buyStop {
			m.close(tick.LTP, tick.Ts)
			m.moveToWaitWindow(tick.Ts)
			return
		}
	} else {
		if !m.hasSellLevels {
			m.log.Warn().Msg("SELLPROFIT_WINDOW without sell levels")
			return
		}
		if tick.LTP >= m.sellStop {
			m.close(tick.LTP, tick.Ts)
			m.moveToWaitWindow(tick.Ts)
			return
		}
	}

	if m.win.Expired(tick.Ts) {
		m.win.Start(tick.Ts, m.windowMs)
		m.log.Debug().Str("state", string(m.state)).Msg("profit window renewed")
	}
}

// moveToWaitWindow snapshots the remaining time of the current window and
// parks the machine in WAIT_WINDOW, remembering where it came from.
func (m *Machine) moveToWaitWindow(now int64) {
	remaining := m.win.Remaining(now)
	if remaining < 0 {
		remaining = 0
	}
	m.waitSource = m.state
	m.win.Start(now, remaining)
	m.state = WaitWindow
	m.log.Info().
		Str("from", string(m.waitSource)).
		Int64("remainingMs", remaining).
		Msg("entered wait window")
}

// onWaitWindowTick sits out the cooldown, then branches on which window sent
// us here. An unknown source falls back to WAIT_FOR_SIGNAL.
func (m *Machine) onWaitWindowTick(tick signal.Tick) {
	remaining := m.win.Remaining(tick.Ts)
	if remaining != 0 {
		return
	}

	switch m.waitSource {
	case BuyEntryWindow:
		m.state = BuyEntryWindow
		m.win.Start(tick.Ts, m.windowMs)
	case SellEntryWindow:
		m.state = SellEntryWindow
		m.win.Start(tick.Ts, m.windowMs)
	case BuyProfitWindow:
		m.state = WaitForBuyEntry
		m.win.Start(tick.Ts, m.windowMs)
	case SellProfitWindow:
		m.state = WaitForSellEntry
		m.win.Start(tick.Ts, m.windowMs)
	default:
		m.state = WaitForSignal
		m.win.Clear()
		m.log.Warn().Msg("wait window finished with unknown source, back to WAIT_FOR_SIGNAL")
		m.waitSource = ""
		return
	}
	m.log.Info().Str("from", string(m.waitSource)).Str("to", string(m.state)).Msg("wait window finished")
	m.waitSource = ""
}

// onWaitForEntryTick re-checks the saved trigger; the position can reopen
// directly into a profit window. The window renews itself on expiry.
func (m *Machine) onWaitForEntryTick(tick signal.Tick) *EntryOpened {
	if m.state == WaitForBuyEntry {
		if !m.hasBuyLevels {
			m.log.Warn().Msg("WAIT_FOR_BUYENTRY without buy levels")
			return nil
		}
		if !m.position.IsOpen && tick.LTP >= m.buyEntryTrigger {
			return m.open(signal.Buy, tick)
		}
	} else {
		if !m.hasSellLevels {
			m.log.Warn().Msg("WAIT_FOR_SELLENTRY without sell levels")
			return nil
		}
		if !m.position.IsOpen && tick.LTP <= m.sellEntryTrigger {
			return m.open(signal.Sell, tick)
		}
	}

	if m.win.Expired(tick.Ts) {
		m.win.Start(tick.Ts, m.windowMs)
		m.log.Debug().Str("state", string(m.state)).Msg("re-entry window renewed")
	}
	return nil
}
