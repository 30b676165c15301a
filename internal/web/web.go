// Package web exposes the HTTP control surface: the TradingView webhook,
// manual signal and tick injection, snapshots, and the daily reset hook.
package web

import (
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"gatebot-go/internal/runtime"
	"gatebot-go/internal/signal"
)

const maxRecentSignals = 100

var (
	symPattern  = regexp.MustCompile(`sym=([A-Z0-9]+)`)
	stopPattern = regexp.MustCompile(`stopPx=([\d.]+)`)
)

// RecentSignal is one row of the incoming-signal ring buffer.
type RecentSignal struct {
	Ts       int64  `json:"ts"`
	Source   string `json:"source"`
	RawText  string `json:"rawText,omitempty"`
	Action   string `json:"action,omitempty"`
	Symbol   string `json:"symbol,omitempty"`
	StopPx   string `json:"stopPx,omitempty"`
	RoutedTo string `json:"routedTo"`
	Outcome  string `json:"outcome,omitempty"`
	Note     string `json:"note,omitempty"`
}

// Server routes HTTP requests into the runtime manager.
type Server struct {
	log zerolog.Logger
	mgr *runtime.Manager

	mu     sync.Mutex
	recent []RecentSignal
}

// NewServer builds the HTTP layer over a runtime manager.
func NewServer(mgr *runtime.Manager, log zerolog.Logger) *Server {
	return &Server{log: log, mgr: mgr}
}

// Router assembles the full route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/webhook", s.handleWebhook).Methods(http.MethodPost)
	r.HandleFunc("/signal", s.handleSignal).Methods(http.MethodPost)
	r.HandleFunc("/tick", s.handleTick).Methods(http.MethodPost)
	r.HandleFunc("/snapshots", s.handleSnapshots).Methods(http.MethodGet)
	r.HandleFunc("/reset", s.handleReset).Methods(http.MethodPost)
	r.HandleFunc("/signals/recent", s.handleRecentSignals).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	return r
}

func (s *Server) pushRecent(row RecentSignal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent = append(s.recent, row)
	if len(s.recent) > maxRecentSignals {
		s.recent = s.recent[len(s.recent)-maxRecentSignals:]
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// extractMessage pulls the alert text out of a webhook body. TradingView can
// send plain text, a JSON object with a message field, or a JSON string, and
// the content-type header is not reliable, so the raw bytes decide.
func extractMessage(body []byte) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return ""
	}
	if strings.HasPrefix(text, "{") || strings.HasPrefix(text, "\"") {
		var obj struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal([]byte(text), &obj); err == nil && obj.Message != "" {
			return obj.Message
		}
		var str string
		if err := json.Unmarshal([]byte(text), &str); err == nil && str != "" {
			return str
		}
	}
	return text
}

func parseAction(message string) (signal.TvAction, bool) {
	switch {
	case strings.Contains(message, "Accepted Entry"):
		return signal.Entry, true
	case strings.Contains(message, "Accepted Exit"):
		return signal.Exit, true
	default:
		return "", false
	}
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}
	message := extractMessage(body)
	if message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message must be a string"})
		return
	}

	now := time.Now().UnixMilli()
	action, ok := parseAction(message)
	symbol := ""
	if m := symPattern.FindStringSubmatch(message); m != nil {
		symbol = m[1]
	}
	stopPx := ""
	if m := stopPattern.FindStringSubmatch(message); m != nil {
		stopPx = m[1]
	}

	row := RecentSignal{
		Ts:      now,
		Source:  "TradingView",
		RawText: message,
		Symbol:  symbol,
		StopPx:  stopPx,
	}
	if ok {
		row.Action = string(action)
	}

	if !ok || symbol == "" {
		row.RoutedTo = "IGNORED"
		row.Note = "no condition matched"
		s.pushRecent(row)
		writeJSON(w, http.StatusOK, map[string]string{"message": "no condition matched"})
		return
	}

	outcome, err := s.mgr.HandleSignal(symbol, action, now)
	if err != nil {
		// Unknown symbols are expected; alerts fan out to every subscriber.
		row.RoutedTo = "IGNORED"
		row.Note = "unknown symbol"
		s.pushRecent(row)
		s.log.Debug().Str("symbol", symbol).Msg("webhook for unknown symbol ignored")
		writeJSON(w, http.StatusOK, map[string]string{"message": "ignored symbol", "symbol": symbol})
		return
	}

	row.RoutedTo = "ENGINE"
	row.Outcome = string(outcome)
	s.pushRecent(row)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "webhook processed",
		"symbol":  symbol,
		"outcome": outcome,
	})
}

type signalRequest struct {
	Symbol string `json:"symbol"`
	Action string `json:"action"`
}

func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	var req signalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}
	action := signal.TvAction(strings.ToUpper(strings.TrimSpace(req.Action)))
	if action != signal.Entry && action != signal.Exit {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "action must be ENTRY or EXIT"})
		return
	}
	if req.Symbol == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "symbol is required"})
		return
	}

	now := time.Now().UnixMilli()
	outcome, err := s.mgr.HandleSignal(req.Symbol, action, now)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	s.pushRecent(RecentSignal{
		Ts:       now,
		Source:   "Manual",
		Action:   string(action),
		Symbol:   req.Symbol,
		RoutedTo: "ENGINE",
		Outcome:  string(outcome),
	})
	writeJSON(w, http.StatusOK, map[string]any{"message": "signal processed", "outcome": outcome})
}

type tickRequest struct {
	Token int64   `json:"token"`
	LTP   float64 `json:"ltp"`
	Ts    int64   `json:"ts"`
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	var req tickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}
	if req.Token == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "token must be a number"})
		return
	}
	if req.LTP <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "ltp must be a positive number"})
		return
	}
	ts := req.Ts
	if ts == 0 {
		ts = time.Now().UnixMilli()
	}

	if err := s.mgr.HandleTokenTick(req.Token, req.LTP, ts); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "unknown token", "token": req.Token})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "token": req.Token, "ltp": req.LTP, "ts": ts})
}

func (s *Server) handleSnapshots(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"rows": s.mgr.Snapshots()})
}

func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request) {
	now := time.Now().UnixMilli()
	s.mgr.ResetAll(now)
	writeJSON(w, http.StatusOK, map[string]any{"message": "reset applied", "ts": now})
}

func (s *Server) handleRecentSignals(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	rows := make([]RecentSignal, len(s.recent))
	copy(rows, s.recent)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"count": len(rows), "rows": rows})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
