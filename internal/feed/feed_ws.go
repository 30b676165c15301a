package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/gorilla/websocket"

	"gatebot-go/internal/signal"
)

// tokenTick is the broker push message shape: numeric instrument token plus
// the last traded price.
type tokenTick struct {
	Token int64   `json:"token"`
	LTP   float64 `json:"ltp"`
	Ts    int64   `json:"ts"`
}

func (f *Feed) runWebsocket(ctx context.Context, out chan<- signal.Tick) error {
	if f.wsURL == "" {
		return fmt.Errorf("websocket feed requires a stream url")
	}
	if f.table == nil {
		return fmt.Errorf("websocket feed requires an instrument table")
	}

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := f.consumeStream(ctx, out); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.log.Warn().Err(err).Msg("tick stream disconnected, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
			continue
		}
		return nil
	}
}

func (f *Feed) consumeStream(ctx context.Context, out chan<- signal.Tick) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	f.log.Info().Str("provider", ProviderWebsocket).Str("url", f.wsURL).Msg("connected market data feed")

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	conn.SetPongHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					f.log.Warn().Err(err).Msg("feed ping failed")
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var raw tokenTick
		if err := json.Unmarshal(message, &raw); err != nil {
			f.log.Warn().Err(err).Msg("failed to decode tick message")
			continue
		}
		tick, ok := f.resolveTokenTick(raw)
		if !ok {
			f.log.Debug().Int64("token", raw.Token).Msg("tick for unknown token dropped")
			continue
		}

		select {
		case out <- tick:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// resolveTokenTick maps a broker token onto its TradingView symbol. Messages
// without a timestamp get the receive time.
func (f *Feed) resolveTokenTick(raw tokenTick) (signal.Tick, bool) {
	in, ok := f.table.ByToken(raw.Token)
	if !ok {
		return signal.Tick{}, false
	}
	ts := raw.Ts
	if ts == 0 {
		ts = time.Now().UnixMilli()
	}
	return signal.Tick{Symbol: in.TradingView, LTP: raw.LTP, Ts: ts}, true
}
