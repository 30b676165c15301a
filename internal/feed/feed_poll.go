package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gatebot-go/internal/signal"
)

type tickersResponse struct {
	Result []tickerEntry `json:"result"`
}

type tickerEntry struct {
	Symbol    string      `json:"symbol"`
	MarkPrice json.Number `json:"mark_price"`
	LastPrice json.Number `json:"last_price"`
}

// price prefers the mark price and falls back to the last trade.
func (t tickerEntry) price() (float64, error) {
	if px, err := t.MarkPrice.Float64(); err == nil && px > 0 {
		return px, nil
	}
	if px, err := t.LastPrice.Float64(); err == nil && px > 0 {
		return px, nil
	}
	return 0, fmt.Errorf("ticker %s has no usable price", t.Symbol)
}

func (f *Feed) runPoll(ctx context.Context, out chan<- signal.Tick) error {
	client := &http.Client{Timeout: 10 * time.Second}
	if err := f.pollTickers(ctx, client, out); err != nil && !errors.Is(err, context.Canceled) {
		f.log.Warn().Err(err).Msg("initial ticker poll failed")
	}

	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := f.pollTickers(ctx, client, out); err != nil && !errors.Is(err, context.Canceled) {
				f.log.Warn().Err(err).Msg("ticker poll failed")
			}
		}
	}
}

func (f *Feed) pollTickers(ctx context.Context, client *http.Client, out chan<- signal.Tick) error {
	symbols := f.snapshotSymbols()
	if len(symbols) == 0 {
		return nil
	}

	url := fmt.Sprintf("%s/v2/tickers?symbol=%s", f.baseURL, strings.Join(symbols, ","))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var payload tickersResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	wanted := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		wanted[s] = struct{}{}
	}

	now := time.Now().UnixMilli()
	for _, entry := range payload.Result {
		if _, ok := wanted[entry.Symbol]; !ok {
			continue
		}
		px, err := entry.price()
		if err != nil {
			f.log.Warn().Err(err).Str("symbol", entry.Symbol).Msg("skipping ticker")
			continue
		}
		select {
		case out <- signal.Tick{Symbol: entry.Symbol, LTP: px, Ts: now}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
