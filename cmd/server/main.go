package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"gatebot-go/internal/config"
	"gatebot-go/internal/execution"
	"gatebot-go/internal/feed"
	"gatebot-go/internal/history"
	"gatebot-go/internal/instrument"
	"gatebot-go/internal/metrics"
	"gatebot-go/internal/runtime"
	sig "gatebot-go/internal/signal"
	"gatebot-go/internal/util"
	"gatebot-go/internal/web"
)

// asyncSink decouples order submission from the tick path: intents are queued
// and posted from a single worker goroutine so a slow sidecar cannot stall
// tick processing. A full queue drops the intent with a log line rather than
// blocking.
type asyncSink struct {
	log zerolog.Logger
	sub *execution.Submitter
	ch  chan intent
}

type intent struct {
	in     instrument.Instrument
	side   sig.Side
	refLTP float64
}

func newAsyncSink(sub *execution.Submitter, log zerolog.Logger) *asyncSink {
	return &asyncSink{log: log, sub: sub, ch: make(chan intent, 256)}
}

func (a *asyncSink) Submit(in instrument.Instrument, side sig.Side, refLTP float64) {
	select {
	case a.ch <- intent{in: in, side: side, refLTP: refLTP}:
	default:
		a.log.Error().Str("sym", in.TradingView).Str("side", string(side)).Msg("order queue full, intent dropped")
	}
}

func (a *asyncSink) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case it := <-a.ch:
			a.sub.Submit(it.in, it.side, it.refLTP)
		}
	}
}

// dailyResetLoop applies the 05:30 IST reset once per IST day.
func dailyResetLoop(ctx context.Context, mgr *runtime.Manager, log zerolog.Logger) {
	ticker := time.NewTicker(20 * time.Second)
	defer ticker.Stop()

	var lastResetDate string
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			now := t.UnixMilli()
			ist := time.UnixMilli(now).UTC().Add(5*time.Hour + 30*time.Minute)
			dateKey, _ := history.MinuteKey(now)
			if ist.Hour() == 5 && ist.Minute() == 30 && lastResetDate != dateKey {
				lastResetDate = dateKey
				log.Info().Str("istDate", dateKey).Msg("daily reset at 05:30 IST")
				mgr.ResetAll(now)
			}
		}
	}
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			lg := util.NewLogger("info")
			lg.Fatal().Err(err).Msg("load config")
		}
		cfg = config.Default()
	}

	log := util.NewFileLogger(cfg.App.LogLevel, cfg.App.LogFile)
	log.Info().Str("name", cfg.App.Name).Str("env", cfg.App.Env).Msg("starting")

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rec, err := history.NewCSVRecorder(cfg.History.Dir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("init history recorder")
	}

	sub := execution.NewSubmitter(cfg.Execution.BaseURL, os.Getenv("EXEC_API_TOKEN"), log)
	sub.SetEnabled(cfg.Execution.Enabled)
	sink := newAsyncSink(sub, log)
	go sink.run(ctx)

	table := instrument.NewTable(cfg.InstrumentList())
	mgr := runtime.NewManager(table, runtime.Options{
		WindowMs:   cfg.Paper.WindowMs,
		GateMinPnl: cfg.Live.GateMinPnl,
		LockMs:     cfg.Live.LockMs,
	}, rec, sink, log)

	symbols := cfg.Feed.Symbols
	if len(symbols) == 0 {
		for _, in := range table.All() {
			symbols = append(symbols, in.TradingView)
		}
	}
	mkt := feed.NewFeed(cfg.Feed.Provider, symbols, log,
		feed.WithBaseURL(cfg.Feed.BaseURL),
		feed.WithWebsocketURL(cfg.Feed.WSURL),
		feed.WithPollInterval(time.Duration(cfg.Feed.PollIntervalMs)*time.Millisecond),
		feed.WithInstrumentTable(table),
	)
	ticks := make(chan sig.Tick, 1024)
	go func() {
		if err := mkt.Run(ctx, ticks); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("feed stopped")
			cancel()
		}
	}()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case tk := <-ticks:
				if err := mgr.HandleTick(tk.Symbol, tk.LTP, tk.Ts); err != nil {
					log.Debug().Err(err).Str("symbol", tk.Symbol).Msg("tick dropped")
				}
			}
		}
	}()

	go dailyResetLoop(ctx, mgr, log)

	api := web.NewServer(mgr, log)
	httpSrv := &http.Server{Addr: cfg.Server.Addr, Handler: api.Router()}
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("http server up")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server stopped")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = httpSrv.Shutdown(shutdownCtx)
}
