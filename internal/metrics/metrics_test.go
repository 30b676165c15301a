package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(TicksTotal.WithLabelValues("NIFTY251216C26050"))
	TicksTotal.WithLabelValues("NIFTY251216C26050").Inc()
	after := testutil.ToFloat64(TicksTotal.WithLabelValues("NIFTY251216C26050"))
	if after != before+1 {
		t.Fatalf("ticks_total did not increment: before=%v after=%v", before, after)
	}

	SignalsTotal.WithLabelValues("NIFTY251216C26050", "ENTRY").Inc()
	if v := testutil.ToFloat64(SignalsTotal.WithLabelValues("NIFTY251216C26050", "ENTRY")); v < 1 {
		t.Fatalf("signals_total not counted: %v", v)
	}
}
