package runtime

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"gatebot-go/internal/history"
	"gatebot-go/internal/instrument"
	"gatebot-go/internal/signal"
)

// Manager owns the keyed collection of instrument runtimes. Runtimes are
// created lazily on first event and live until the process exits; a daily
// reset recreates their contexts in place rather than dropping map entries.
type Manager struct {
	mu       sync.RWMutex
	runtimes map[string]*Runtime

	table *instrument.Table
	opts  Options
	rec   history.Recorder
	sink  IntentSink
	log   zerolog.Logger
}

// NewManager wires the shared collaborators every runtime uses.
func NewManager(table *instrument.Table, opts Options, rec history.Recorder, sink IntentSink, log zerolog.Logger) *Manager {
	return &Manager{
		runtimes: make(map[string]*Runtime),
		table:    table,
		opts:     opts,
		rec:      rec,
		sink:     sink,
		log:      log,
	}
}

func (m *Manager) getOrCreate(symbol string) (*Runtime, error) {
	m.mu.RLock()
	rt, ok := m.runtimes[symbol]
	m.mu.RUnlock()
	if ok {
		return rt, nil
	}

	in, known := m.table.ByTradingView(symbol)
	if !known {
		return nil, fmt.Errorf("unknown instrument: %s", symbol)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if rt, ok := m.runtimes[symbol]; ok {
		return rt, nil
	}
	rt = newRuntime(in, m.opts, m.rec, m.sink, m.log)
	m.runtimes[symbol] = rt
	m.log.Info().Str("symbol", symbol).Msg("instrument runtime created")
	return rt, nil
}

// HandleSignal routes a TradingView ENTRY/EXIT to the owning runtime.
func (m *Manager) HandleSignal(symbol string, action signal.TvAction, now int64) (Outcome, error) {
	rt, err := m.getOrCreate(symbol)
	if err != nil {
		return "", err
	}
	return rt.HandleSignal(action, now), nil
}

// HandleTick routes one price observation to the owning runtime.
func (m *Manager) HandleTick(symbol string, ltp float64, now int64) error {
	rt, err := m.getOrCreate(symbol)
	if err != nil {
		return err
	}
	rt.HandleTick(ltp, now)
	return nil
}

// HandleTokenTick resolves a broker feed token before routing the tick.
func (m *Manager) HandleTokenTick(token int64, ltp float64, now int64) error {
	in, ok := m.table.ByToken(token)
	if !ok {
		return fmt.Errorf("unknown instrument token: %d", token)
	}
	return m.HandleTick(in.TradingView, ltp, now)
}

// Snapshots returns read-only views for every known runtime.
func (m *Manager) Snapshots() []Snapshot {
	m.mu.RLock()
	ordered := make([]*Runtime, 0, len(m.runtimes))
	for _, in := range m.table.All() {
		if rt, ok := m.runtimes[in.TradingView]; ok {
			ordered = append(ordered, rt)
		}
	}
	m.mu.RUnlock()

	out := make([]Snapshot, 0, len(ordered))
	for _, rt := range ordered {
		out = append(out, rt.Snapshot())
	}
	return out
}

// ResetAll applies the daily reset to every runtime. Idempotent.
func (m *Manager) ResetAll(now int64) {
	m.mu.RLock()
	rts := make([]*Runtime, 0, len(m.runtimes))
	for _, rt := range m.runtimes {
		rts = append(rts, rt)
	}
	m.mu.RUnlock()

	for _, rt := range rts {
		rt.Reset(now)
	}
	m.log.Info().Int("runtimes", len(rts)).Msg("daily reset applied")
}
