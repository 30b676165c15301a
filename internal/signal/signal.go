// Package signal standardizes payloads shared between ingestion, the paper
// machine, and the live gate.
package signal

// Side is the direction of a signal or position.
type Side string

const (
	// Buy is a long bias.
	Buy Side = "BUY"
	// Sell is a short bias.
	Sell Side = "SELL"
)

// TvAction is the two-valued command parsed from a TradingView webhook.
type TvAction string

const (
	// Entry requests a new paper cycle.
	Entry TvAction = "ENTRY"
	// Exit requests the current paper position be closed.
	Exit TvAction = "EXIT"
)

// Tick is one observed price for an instrument. Timestamps are Unix
// milliseconds as delivered by the feed.
type Tick struct {
	Symbol string  `json:"symbol"`
	LTP    float64 `json:"ltp"`
	Ts     int64   `json:"ts"`
}

// Signal is an external trading decision request routed into the paper machine.
type Signal struct {
	Symbol string `json:"symbol"`
	Side   Side   `json:"side"`
	Ts     int64  `json:"ts"`
}
