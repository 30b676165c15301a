package execution

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"gatebot-go/internal/instrument"
	"gatebot-go/internal/signal"
)

var testInstrument = instrument.Instrument{
	TradingView: "NIFTY251216C26050",
	Exchange:    "NFO",
	Broker:      "NIFTY25D1626050CE",
	Token:       12345858,
	Lot:         75,
}

func TestSubmitDisabledDoesNotCallSidecar(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	s := NewSubmitter(srv.URL, "token", zerolog.Nop())
	s.Submit(testInstrument, signal.Buy, 100.5)
	if called {
		t.Fatalf("disabled submitter must not hit the sidecar")
	}
}

func TestSubmitPostsBandedLimitOrder(t *testing.T) {
	var got Order
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode order: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSubmitter(srv.URL, "secret", zerolog.Nop())
	s.SetEnabled(true)
	s.Submit(testInstrument, signal.Buy, 100.5)

	if auth != "Bearer secret" {
		t.Fatalf("missing bearer token, got %q", auth)
	}
	if got.TradingSymbol != "NIFTY25D1626050CE" || got.Exchange != "NFO" {
		t.Fatalf("wrong instrument routed: %+v", got)
	}
	if got.Quantity != 75 {
		t.Fatalf("expected lot-sized quantity, got %d", got.Quantity)
	}
	if got.Price != 101.5 {
		t.Fatalf("buy should band +1 over ref, got %v", got.Price)
	}

	s.Submit(testInstrument, signal.Sell, 100.5)
	if got.Price != 99.5 {
		t.Fatalf("sell should band -1 under ref, got %v", got.Price)
	}
}

func TestSubmitWithoutTokenSkips(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	s := NewSubmitter(srv.URL, "", zerolog.Nop())
	s.SetEnabled(true)
	s.Submit(testInstrument, signal.Buy, 100)
	if called {
		t.Fatalf("missing token must skip the order")
	}
}
