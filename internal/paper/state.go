package paper

import "gatebot-go/internal/signal"

// State identifies where an instrument sits in the entry/exit cycle.
type State string

const (
	// WaitForSignal is the initial state; only signals move the machine on.
	WaitForSignal State = "WAIT_FOR_SIGNAL"
	// BuySignal / SellSignal mean a signal was accepted and the machine is
	// waiting for the first tick to derive trigger and stop levels.
	BuySignal  State = "BUY_SIGNAL"
	SellSignal State = "SELL_SIGNAL"
	// BuyEntryWindow / SellEntryWindow are the timed windows during which the
	// entry trigger may fire.
	BuyEntryWindow  State = "BUYENTRY_WINDOW"
	SellEntryWindow State = "SELLENTRY_WINDOW"
	// BuyProfitWindow / SellProfitWindow hold an open position until the stop
	// is hit; they self-renew on expiry.
	BuyProfitWindow  State = "BUYPROFIT_WINDOW"
	SellProfitWindow State = "SELLPROFIT_WINDOW"
	// WaitWindow is the cooldown entered after a failed entry or a stopped-out
	// position; it preserves the remaining time of the window it interrupted.
	WaitWindow State = "WAIT_WINDOW"
	// WaitForBuyEntry / WaitForSellEntry re-arm the saved triggers after a
	// completed profit cycle.
	WaitForBuyEntry  State = "WAIT_FOR_BUYENTRY"
	WaitForSellEntry State = "WAIT_FOR_SELLENTRY"
)

// Position is the simulated open trade, if any. EntryPrice and OpenedAt are
// meaningful only while IsOpen is true.
type Position struct {
	IsOpen     bool        `json:"isOpen"`
	Side       signal.Side `json:"side,omitempty"`
	EntryPrice float64     `json:"entryPrice,omitempty"`
	OpenedAt   int64       `json:"openedAt,omitempty"`
}

// Trade is one closed paper position. Immutable once appended.
type Trade struct {
	ID         string      `json:"id"`
	Symbol     string      `json:"symbol"`
	Side       signal.Side `json:"side"`
	EntryPrice float64     `json:"entryPrice"`
	ExitPrice  float64     `json:"exitPrice"`
	OpenedAt   int64       `json:"openedAt"`
	ClosedAt   int64       `json:"closedAt"`
	PnL        float64     `json:"pnl"`
}

// EntryOpened is returned by OnTick on the single tick where a position goes
// from closed to open, so the orchestrator can consult the live gate without
// any callback registration.
type EntryOpened struct {
	EntryPrice  float64
	WindowEndTs int64
}

// Levels exposes the derived trigger/stop values for snapshots.
type Levels struct {
	SavedBuyLTP      float64 `json:"savedBuyLtp,omitempty"`
	BuyEntryTrigger  float64 `json:"buyEntryTrigger,omitempty"`
	BuyStop          float64 `json:"buyStop,omitempty"`
	SavedSellLTP     float64 `json:"savedSellLtp,omitempty"`
	SellEntryTrigger float64 `json:"sellEntryTrigger,omitempty"`
	SellStop         float64 `json:"sellStop,omitempty"`
	HasBuy           bool    `json:"hasBuy"`
	HasSell          bool    `json:"hasSell"`
	WindowStartTs    int64   `json:"windowStartTs,omitempty"`
	WindowDurationMs int64   `json:"windowDurationMs,omitempty"`
	WaitSource       State   `json:"waitSource,omitempty"`
}
