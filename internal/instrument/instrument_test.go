package instrument

import "testing"

func TestTableLookups(t *testing.T) {
	table := NewTable(Defaults())

	in, ok := table.ByTradingView("NIFTY251216C26050")
	if !ok {
		t.Fatalf("expected instrument for TradingView symbol")
	}
	if in.Broker != "NIFTY25D1626050CE" || in.Lot != 75 {
		t.Fatalf("unexpected instrument: %+v", in)
	}

	byTok, ok := table.ByToken(291220997)
	if !ok || byTok.TradingView != "BSX251218C85300" {
		t.Fatalf("token lookup failed: %+v ok=%v", byTok, ok)
	}

	if _, ok := table.ByTradingView("UNKNOWN"); ok {
		t.Fatalf("unknown symbol must not resolve")
	}
	if _, ok := table.ByToken(42); ok {
		t.Fatalf("unknown token must not resolve")
	}
}

func TestLaterDuplicateWins(t *testing.T) {
	table := NewTable([]Instrument{
		{TradingView: "X", Broker: "OLD", Token: 1, Lot: 10},
		{TradingView: "X", Broker: "NEW", Token: 1, Lot: 20},
	})
	in, _ := table.ByTradingView("X")
	if in.Broker != "NEW" || in.Lot != 20 {
		t.Fatalf("expected later entry to win: %+v", in)
	}
	if got := len(table.All()); got != 1 {
		t.Fatalf("expected one ordered entry, got %d", got)
	}
}
