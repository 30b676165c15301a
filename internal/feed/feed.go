// Package feed hosts the pluggable tick sources that drive the engines.
package feed

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"gatebot-go/internal/instrument"
	"gatebot-go/internal/signal"
)

const (
	// ProviderStub emits deterministic synthetic ticks (useful for tests/offline work).
	ProviderStub = "stub"
	// ProviderPoll polls an HTTP tickers endpoint at a fixed cadence.
	ProviderPoll = "poll"
	// ProviderWebsocket consumes a broker push stream of token-keyed ticks.
	ProviderWebsocket = "websocket"
)

// Feed represents a pluggable market data stream implementation.
type Feed struct {
	provider     string
	symbols      []string
	log          zerolog.Logger
	pollInterval time.Duration
	baseURL      string
	wsURL        string
	table        *instrument.Table
	mu           sync.RWMutex
}

// Option configures Feed construction parameters.
type Option func(*Feed)

const (
	defaultPollInterval = time.Second
	defaultBaseURL      = "https://api.delta.exchange"
)

// WithPollInterval overrides the default polling cadence for HTTP-based feeds.
func WithPollInterval(d time.Duration) Option {
	return func(f *Feed) {
		if d > 0 {
			f.pollInterval = d
		}
	}
}

// WithBaseURL points the polling provider at a different tickers endpoint.
func WithBaseURL(url string) Option {
	return func(f *Feed) {
		if url != "" {
			f.baseURL = strings.TrimSuffix(url, "/")
		}
	}
}

// WithWebsocketURL sets the push stream endpoint for the websocket provider.
func WithWebsocketURL(url string) Option {
	return func(f *Feed) {
		f.wsURL = url
	}
}

// WithInstrumentTable lets the websocket provider resolve broker tokens to
// TradingView symbols. Ticks for unknown tokens are dropped.
func WithInstrumentTable(table *instrument.Table) Option {
	return func(f *Feed) {
		f.table = table
	}
}

// NewFeed constructs a feed backed by the requested provider.
func NewFeed(provider string, symbols []string, log zerolog.Logger, opts ...Option) *Feed {
	if provider == "" {
		provider = ProviderStub
	}
	f := &Feed{
		provider:     strings.ToLower(provider),
		log:          log,
		pollInterval: defaultPollInterval,
		baseURL:      defaultBaseURL,
	}
	f.setSymbols(symbols)
	for _, opt := range opts {
		opt(f)
	}
	if f.pollInterval <= 0 {
		f.pollInterval = defaultPollInterval
	}
	if f.baseURL == "" {
		f.baseURL = defaultBaseURL
	}
	return f
}

// SetSymbols replaces the tracked symbol list (deduplicated, sorted for determinism).
func (f *Feed) SetSymbols(symbols []string) {
	f.setSymbols(symbols)
}

func (f *Feed) setSymbols(symbols []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	unique := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		sym = strings.TrimSpace(sym)
		if sym == "" {
			continue
		}
		unique[sym] = struct{}{}
	}
	f.symbols = f.symbols[:0]
	for sym := range unique {
		f.symbols = append(f.symbols, sym)
	}
	sort.Strings(f.symbols)
}

func (f *Feed) snapshotSymbols() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, len(f.symbols))
	copy(out, f.symbols)
	return out
}

// Run pushes ticks onto the provided channel until the context is canceled.
func (f *Feed) Run(ctx context.Context, out chan<- signal.Tick) error {
	switch f.provider {
	case ProviderPoll:
		return f.runPoll(ctx, out)
	case ProviderWebsocket:
		return f.runWebsocket(ctx, out)
	default:
		return f.runStub(ctx, out)
	}
}

func (f *Feed) runStub(ctx context.Context, out chan<- signal.Tick) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	var px float64 = 100.0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ts := <-ticker.C:
			px += 0.1
			for _, s := range f.snapshotSymbols() {
				tick := signal.Tick{Symbol: s, LTP: px, Ts: ts.UnixMilli()}
				select {
				case out <- tick:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}
