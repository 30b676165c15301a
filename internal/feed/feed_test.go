package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"gatebot-go/internal/instrument"
	"gatebot-go/internal/signal"
)

func TestFeedRunEmitsTicks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := NewFeed(ProviderStub, []string{"NIFTY251216C26050"}, zerolog.Nop())
	ticks := make(chan signal.Tick, 1)

	go func() {
		_ = feed.Run(ctx, ticks)
	}()

	select {
	case tk := <-ticks:
		if tk.Symbol != "NIFTY251216C26050" {
			t.Fatalf("unexpected symbol %s", tk.Symbol)
		}
		if tk.LTP <= 0 || tk.Ts == 0 {
			t.Fatalf("incomplete tick: %+v", tk)
		}
		cancel()
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for tick")
	}
}

func TestRunPollEmitsTick(t *testing.T) {
	const body = `{"result":[{"symbol":"NIFTY251216C26050","mark_price":"101.35","last_price":"101.30"},{"symbol":"IGNORED","mark_price":"1"}]}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := NewFeed(
		ProviderPoll,
		[]string{"NIFTY251216C26050"},
		zerolog.Nop(),
		WithBaseURL(server.URL),
		WithPollInterval(50*time.Millisecond),
	)

	ticks := make(chan signal.Tick, 1)
	errCh := make(chan error, 1)
	go func() {
		if err := feed.Run(ctx, ticks); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case tk := <-ticks:
		if tk.Symbol != "NIFTY251216C26050" {
			t.Fatalf("unexpected symbol %s", tk.Symbol)
		}
		if tk.LTP != 101.35 {
			t.Fatalf("expected mark price 101.35, got %v", tk.LTP)
		}
		cancel()
	case <-time.After(2 * time.Second):
		cancel()
		t.Fatalf("timed out waiting for tick")
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("feed returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("feed did not stop after cancel")
	}
}

func TestTickerEntryPriceFallsBackToLast(t *testing.T) {
	entry := tickerEntry{Symbol: "X", MarkPrice: "", LastPrice: "99.5"}
	px, err := entry.price()
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if px != 99.5 {
		t.Fatalf("expected last price fallback, got %v", px)
	}

	empty := tickerEntry{Symbol: "X"}
	if _, err := empty.price(); err == nil {
		t.Fatalf("expected error for ticker without prices")
	}
}

func TestResolveTokenTick(t *testing.T) {
	f := NewFeed(ProviderWebsocket, nil, zerolog.Nop(),
		WithInstrumentTable(instrument.NewTable(instrument.Defaults())))

	tick, ok := f.resolveTokenTick(tokenTick{Token: 12345858, LTP: 100.5, Ts: 1_700_000_000_000})
	if !ok {
		t.Fatalf("known token not resolved")
	}
	if tick.Symbol != "NIFTY251216C26050" || tick.LTP != 100.5 || tick.Ts != 1_700_000_000_000 {
		t.Fatalf("unexpected tick: %+v", tick)
	}

	if _, ok := f.resolveTokenTick(tokenTick{Token: 1, LTP: 1}); ok {
		t.Fatalf("unknown token must be dropped")
	}

	stamped, _ := f.resolveTokenTick(tokenTick{Token: 12345858, LTP: 100.5})
	if stamped.Ts == 0 {
		t.Fatalf("missing timestamp should be filled with receive time")
	}
}

func TestWebsocketRequiresConfig(t *testing.T) {
	f := NewFeed(ProviderWebsocket, nil, zerolog.Nop())
	if err := f.Run(context.Background(), make(chan signal.Tick)); err == nil {
		t.Fatalf("expected configuration error")
	}
}
