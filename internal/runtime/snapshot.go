package runtime

import (
	"gatebot-go/internal/history"
	"gatebot-go/internal/live"
	"gatebot-go/internal/paper"
	"gatebot-go/internal/pnl"
)

// PaperView is the read-only paper side of a snapshot.
type PaperView struct {
	State        paper.State    `json:"state"`
	Position     paper.Position `json:"position"`
	Levels       paper.Levels   `json:"levels"`
	PnL          pnl.Breakdown  `json:"pnl"`
	TradesCount  int            `json:"tradesCount"`
	RecentTrades []paper.Trade  `json:"recentTrades"`
}

// LiveView is the read-only live side of a snapshot.
type LiveView struct {
	State        live.State          `json:"state"`
	Position     live.Position       `json:"position"`
	LockUntilTs  int64               `json:"lockUntilTs,omitempty"`
	PnL          pnl.Breakdown       `json:"pnl"`
	RecentEvents []history.LiveEvent `json:"recentEvents"`
}

// Snapshot is the externally visible state of one instrument runtime.
type Snapshot struct {
	Symbol    string    `json:"symbol"`
	Token     int64     `json:"token"`
	Lot       int       `json:"lot"`
	LastPrice float64   `json:"lastPrice"`
	HasPrice  bool      `json:"hasPrice"`
	Paper     PaperView `json:"paper"`
	Live      LiveView  `json:"live"`
}

const recentTradeLimit = 50

// Snapshot returns a consistent, side-effect-free view of the runtime.
func (r *Runtime) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	trades := r.machine.Trades()
	start := 0
	if len(trades) > recentTradeLimit {
		start = len(trades) - recentTradeLimit
	}
	recent := make([]paper.Trade, len(trades)-start)
	copy(recent, trades[start:])

	return Snapshot{
		Symbol:    r.inst.TradingView,
		Token:     r.inst.Token,
		Lot:       r.inst.Lot,
		LastPrice: r.lastPrice,
		HasPrice:  r.hasPrice,
		Paper: PaperView{
			State:        r.machine.State(),
			Position:     r.machine.Position(),
			Levels:       r.machine.Levels(),
			PnL:          r.machine.PnL(r.lastPrice, r.hasPrice),
			TradesCount:  len(trades),
			RecentTrades: recent,
		},
		Live: LiveView{
			State:        r.gate.State(),
			Position:     r.gate.Position(),
			LockUntilTs:  r.gate.LockUntilTs(),
			PnL:          r.livePnlLocked(),
			RecentEvents: r.ledger.Recent(20),
		},
	}
}

func (r *Runtime) livePnlLocked() pnl.Breakdown {
	if !r.hasPrice {
		return pnl.NewBreakdown(r.liveRealized, 0)
	}
	return r.livePnl(r.lastPrice)
}
