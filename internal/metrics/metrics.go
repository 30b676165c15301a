package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ticks_total", Help: "Count of price ticks ingested"},
		[]string{"symbol"},
	)
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_total", Help: "Webhook/manual signals routed"},
		[]string{"symbol", "action"},
	)
	PaperTradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "paper_trades_total", Help: "Paper trades closed"},
		[]string{"symbol", "side"},
	)
	LiveOrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "live_orders_total", Help: "Live order intents emitted"},
		[]string{"symbol", "action"},
	)
)

func init() {
	prometheus.MustRegister(TicksTotal, SignalsTotal, PaperTradesTotal, LiveOrdersTotal)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
