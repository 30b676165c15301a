package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"gatebot-go/internal/history"
	"gatebot-go/internal/instrument"
	"gatebot-go/internal/runtime"
	"gatebot-go/internal/signal"
)

type nopSink struct{}

func (nopSink) Submit(instrument.Instrument, signal.Side, float64) {}

func newTestServer() *Server {
	table := instrument.NewTable(instrument.Defaults())
	opts := runtime.Options{WindowMs: 60_000}
	mgr := runtime.NewManager(table, opts, history.Nop{}, nopSink{}, zerolog.Nop())
	return NewServer(mgr, zerolog.Nop())
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rr.Body.String())
	}
	return out
}

func TestWebhookPlainTextEntry(t *testing.T) {
	s := newTestServer()
	body := "Accepted Entry + priorRisePct= 0.00 | stopPx=101.25 | sym=NIFTY251216C26050"
	rr := doRequest(t, s, http.MethodPost, "/webhook", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}
	out := decodeBody(t, rr)
	if out["outcome"] != string(runtime.OutcomeBuySignal) {
		t.Fatalf("expected BUY_SIGNAL outcome, got %v", out["outcome"])
	}
}

func TestWebhookJSONMessageExit(t *testing.T) {
	s := newTestServer()
	body := `{"message":"Accepted Exit + priorRisePct= 0.00 | stopPx=100 | sym=NIFTY251216C26050"}`
	rr := doRequest(t, s, http.MethodPost, "/webhook", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}
	// EXIT with no open position converts to an entry.
	out := decodeBody(t, rr)
	if out["outcome"] != string(runtime.OutcomeExitConvertedToEntry) {
		t.Fatalf("expected conversion outcome, got %v", out["outcome"])
	}
}

func TestWebhookUnknownSymbolIgnoredWith200(t *testing.T) {
	s := newTestServer()
	rr := doRequest(t, s, http.MethodPost, "/webhook", "Accepted Entry | sym=UNKNOWN123")
	if rr.Code != http.StatusOK {
		t.Fatalf("unknown symbols must be ignored with 200, got %d", rr.Code)
	}
	out := decodeBody(t, rr)
	if out["message"] != "ignored symbol" {
		t.Fatalf("unexpected body: %v", out)
	}
}

func TestWebhookUnmatchedMessage(t *testing.T) {
	s := newTestServer()
	rr := doRequest(t, s, http.MethodPost, "/webhook", "hello there")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	out := decodeBody(t, rr)
	if out["message"] != "no condition matched" {
		t.Fatalf("unexpected body: %v", out)
	}
}

func TestManualSignalValidation(t *testing.T) {
	s := newTestServer()
	rr := doRequest(t, s, http.MethodPost, "/signal", `{"symbol":"NIFTY251216C26050","action":"HOLD"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("invalid action must 400, got %d", rr.Code)
	}
	rr = doRequest(t, s, http.MethodPost, "/signal", `{"symbol":"NIFTY251216C26050","action":"entry"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("lowercase action should be accepted, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestTickByTokenReachesEngine(t *testing.T) {
	s := newTestServer()
	doRequest(t, s, http.MethodPost, "/signal", `{"symbol":"NIFTY251216C26050","action":"ENTRY"}`)

	rr := doRequest(t, s, http.MethodPost, "/tick", `{"token":12345858,"ltp":100.5,"ts":1000}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}

	rr = doRequest(t, s, http.MethodGet, "/snapshots", "")
	var snaps struct {
		Rows []runtime.Snapshot `json:"rows"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &snaps); err != nil {
		t.Fatalf("decode snapshots: %v", err)
	}
	if len(snaps.Rows) != 1 {
		t.Fatalf("expected one runtime, got %d", len(snaps.Rows))
	}
	if snaps.Rows[0].LastPrice != 100.5 {
		t.Fatalf("tick did not reach the engine: %+v", snaps.Rows[0])
	}
}

func TestTickRejectsUnknownToken(t *testing.T) {
	s := newTestServer()
	rr := doRequest(t, s, http.MethodPost, "/tick", `{"token":42,"ltp":100.5}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown token must 404, got %d", rr.Code)
	}
}

func TestRecentSignalsRing(t *testing.T) {
	s := newTestServer()
	for i := 0; i < maxRecentSignals+10; i++ {
		doRequest(t, s, http.MethodPost, "/signal", `{"symbol":"NIFTY251216C26050","action":"ENTRY"}`)
	}
	rr := doRequest(t, s, http.MethodGet, "/signals/recent", "")
	var out struct {
		Count int            `json:"count"`
		Rows  []RecentSignal `json:"rows"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Count != maxRecentSignals {
		t.Fatalf("ring must cap at %d, got %d", maxRecentSignals, out.Count)
	}
}

func TestResetAndHealthz(t *testing.T) {
	s := newTestServer()
	if rr := doRequest(t, s, http.MethodPost, "/reset", ""); rr.Code != http.StatusOK {
		t.Fatalf("reset status %d", rr.Code)
	}
	if rr := doRequest(t, s, http.MethodGet, "/healthz", ""); rr.Code != http.StatusOK {
		t.Fatalf("healthz status %d", rr.Code)
	}
}

func TestExtractMessageVariants(t *testing.T) {
	cases := map[string]string{
		`plain text alert`:        "plain text alert",
		`{"message":"from json"}`: "from json",
		`"quoted string"`:         "quoted string",
	}
	for in, want := range cases {
		if got := extractMessage([]byte(in)); got != want {
			t.Fatalf("extractMessage(%q) = %q, want %q", in, got, want)
		}
	}
}
