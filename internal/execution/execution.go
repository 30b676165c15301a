// Package execution forwards live order intents to the broker-execution
// sidecar. The core state machines never talk to a broker; they emit
// OPEN/CLOSE intents and this submitter turns them into HTTP calls when live
// execution is switched on.
package execution

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"gatebot-go/internal/instrument"
	"gatebot-go/internal/metrics"
	"gatebot-go/internal/signal"
)

// Order is one placement request for the sidecar.
type Order struct {
	Exchange        string      `json:"exchange"`
	TradingSymbol   string      `json:"tradingsymbol"`
	TransactionType signal.Side `json:"transaction_type"`
	Quantity        int         `json:"quantity"`
	Price           float64     `json:"price"`
}

// Submitter posts orders to the sidecar. Disabled by default; enabling is an
// explicit operator action.
type Submitter struct {
	log     zerolog.Logger
	client  *http.Client
	baseURL string
	token   string
	enabled atomic.Bool
}

// NewSubmitter builds a submitter against the given sidecar base URL.
func NewSubmitter(baseURL, token string, log zerolog.Logger) *Submitter {
	if baseURL == "" {
		baseURL = "http://127.0.0.1:3200"
	}
	return &Submitter{
		log:     log,
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
		token:   token,
	}
}

// SetEnabled flips live execution on or off.
func (s *Submitter) SetEnabled(v bool) { s.enabled.Store(v) }

// Enabled reports whether orders are actually sent.
func (s *Submitter) Enabled() bool { return s.enabled.Load() }

// Submit places a limit order one rupee through the reference price so it
// fills like a market order without crossing the band unprotected. It is
// called from the tick path in a goroutine and must never block trading, so
// all failures end as log lines.
func (s *Submitter) Submit(in instrument.Instrument, side signal.Side, refLTP float64) {
	metrics.LiveOrdersTotal.WithLabelValues(in.TradingView, string(side)).Inc()

	if !s.enabled.Load() {
		s.log.Info().
			Str("sym", in.Broker).
			Str("side", string(side)).
			Float64("refLtp", refLTP).
			Msg("live execution disabled, intent logged only")
		return
	}
	if s.token == "" {
		s.log.Warn().Str("sym", in.Broker).Msg("live execution enabled but exec token missing; skipping order")
		return
	}

	price := refLTP + 1
	if side == signal.Sell {
		price = refLTP - 1
	}
	order := Order{
		Exchange:        in.Exchange,
		TradingSymbol:   in.Broker,
		TransactionType: side,
		Quantity:        in.Lot,
		Price:           price,
	}

	body, err := json.Marshal(order)
	if err != nil {
		s.log.Error().Err(err).Msg("marshal order")
		return
	}
	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/order", s.baseURL), bytes.NewReader(body))
	if err != nil {
		s.log.Error().Err(err).Msg("build order request")
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Error().Err(err).Str("sym", in.Broker).Msg("order submit failed")
		return
	}
	defer resp.Body.Close()
	s.log.Info().
		Int("status", resp.StatusCode).
		Str("sym", in.Broker).
		Str("side", string(side)).
		Int("qty", in.Lot).
		Float64("px", price).
		Msg("order submitted")
}
