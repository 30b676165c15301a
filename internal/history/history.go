// Package history persists the per-day trading record: one CSV file per
// instrument per IST day, holding minute PnL rows plus a row for every closed
// paper trade and every live open/close. The schema is append-only so a
// restart mid-session keeps the earlier rows intact.
package history

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"gatebot-go/internal/paper"
	"gatebot-go/internal/pnl"
)

// LiveEvent is one live open or close, as handed to reporting collaborators.
type LiveEvent struct {
	Ts         int64   `json:"ts"`
	Action     string  `json:"action"` // OPEN | CLOSE
	EntryPrice float64 `json:"entryPrice,omitempty"`
	ExitPrice  float64 `json:"exitPrice,omitempty"`
	PnL        float64 `json:"pnl,omitempty"`
	OpenedAt   int64   `json:"openedAt,omitempty"`
	CumAfter   float64 `json:"cumPnlAfter"`
}

// Row is one CSV line. PaperTrade and LiveTrade are optional; a row with
// neither is a minute PnL sample.
type Row struct {
	Symbol     string
	Ts         int64
	Paper      pnl.Breakdown
	Live       pnl.Breakdown
	PaperTrade *paper.Trade
	LiveTrade  *LiveEvent
}

// Recorder receives rows for persistence. Implementations must be safe for
// concurrent use; rows for different instruments may arrive in parallel.
type Recorder interface {
	Write(Row)
}

// Nop discards everything; handy in tests.
type Nop struct{}

func (Nop) Write(Row) {}

const header = "timeIst,paperCumPnl,paperRealized,paperUnrealized,liveCumPnl,liveRealized,liveUnrealized," +
	"tradeSide,tradeOpenedAtMs,tradeEntry,tradeExit,tradePnl," +
	"liveTradeOpenedAtMs,liveTradeEntry,liveTradeExit,liveTradePnl,liveTradeCumAfter\n"

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// istOffset shifts UTC to Asia/Kolkata without depending on the host tzdata.
const istOffset = 5*time.Hour + 30*time.Minute

// MinuteKey returns the IST date (YYYY-MM-DD) and minute key
// (YYYY-MM-DD HH:MM) for a Unix-millisecond timestamp.
func MinuteKey(tsMs int64) (datePart, minuteKey string) {
	ist := time.UnixMilli(tsMs).UTC().Add(istOffset)
	datePart = ist.Format("2006-01-02")
	minuteKey = ist.Format("2006-01-02 15:04")
	return datePart, minuteKey
}

// CSVRecorder appends rows to logs/options-<symbol>-<date>.csv files.
type CSVRecorder struct {
	dir string
	log zerolog.Logger
	mu  sync.Mutex
}

// NewCSVRecorder creates the target directory up front so tick-path writes
// never have to.
func NewCSVRecorder(dir string, log zerolog.Logger) (*CSVRecorder, error) {
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	return &CSVRecorder{dir: dir, log: log}, nil
}

// Write appends one row, creating the day file with its header on first use.
// Persistence failures are logged, never propagated into event handling.
func (r *CSVRecorder) Write(row Row) {
	r.mu.Lock()
	defer r.mu.Unlock()

	datePart, minuteKey := MinuteKey(row.Ts)
	name := fmt.Sprintf("options-%s-%s.csv", unsafeFileChars.ReplaceAllString(row.Symbol, "_"), datePart)
	path := filepath.Join(r.dir, name)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte(header), 0o644); err != nil {
			r.log.Warn().Err(err).Str("path", path).Msg("failed to create history file")
			return
		}
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		r.log.Warn().Err(err).Str("path", path).Msg("failed to open history file")
		return
	}
	defer file.Close()

	var tradeSide, tradeOpenedAt, tradeEntry, tradeExit, tradePnl string
	if t := row.PaperTrade; t != nil {
		tradeSide = string(t.Side)
		tradeOpenedAt = fmt.Sprintf("%d", t.OpenedAt)
		tradeEntry = fmt.Sprintf("%.2f", t.EntryPrice)
		tradeExit = fmt.Sprintf("%.2f", t.ExitPrice)
		tradePnl = fmt.Sprintf("%.2f", t.PnL)
	}

	var liveOpenedAt, liveEntry, liveExit, livePnl, liveCumAfter string
	if e := row.LiveTrade; e != nil {
		liveOpenedAt = fmt.Sprintf("%d", e.OpenedAt)
		liveEntry = fmt.Sprintf("%.2f", e.EntryPrice)
		liveExit = fmt.Sprintf("%.2f", e.ExitPrice)
		livePnl = fmt.Sprintf("%.2f", e.PnL)
		liveCumAfter = fmt.Sprintf("%.2f", e.CumAfter)
	}

	line := fmt.Sprintf("%s,%.2f,%.2f,%.2f,%.2f,%.2f,%.2f,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s\n",
		minuteKey,
		row.Paper.Total, row.Paper.Realized, row.Paper.Unrealized,
		row.Live.Total, row.Live.Realized, row.Live.Unrealized,
		tradeSide, tradeOpenedAt, tradeEntry, tradeExit, tradePnl,
		liveOpenedAt, liveEntry, liveExit, livePnl, liveCumAfter,
	)
	if _, err := file.WriteString(line); err != nil {
		r.log.Warn().Err(err).Str("path", path).Msg("failed to append history row")
	}
}
