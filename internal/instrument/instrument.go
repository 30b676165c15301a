// Package instrument maps between the symbol names TradingView sends, the
// broker's tradingsymbols, and the numeric tokens the broker tick feed uses.
package instrument

// Instrument describes one tradable option contract.
type Instrument struct {
	TradingView string `yaml:"tradingview" json:"tradingview"`
	Exchange    string `yaml:"exchange" json:"exchange"`
	Broker      string `yaml:"broker" json:"broker"`
	Token       int64  `yaml:"token" json:"token"`
	Lot         int    `yaml:"lot" json:"lot"`
}

// Table provides constant-time lookups over a fixed instrument universe.
type Table struct {
	byTradingView map[string]Instrument
	byToken       map[int64]Instrument
	ordered       []Instrument
}

// NewTable indexes the supplied instruments. Later duplicates win, matching
// how a reloaded config should behave.
func NewTable(instruments []Instrument) *Table {
	t := &Table{
		byTradingView: make(map[string]Instrument, len(instruments)),
		byToken:       make(map[int64]Instrument, len(instruments)),
		ordered:       make([]Instrument, 0, len(instruments)),
	}
	for _, in := range instruments {
		if _, seen := t.byTradingView[in.TradingView]; !seen {
			t.ordered = append(t.ordered, in)
		}
		t.byTradingView[in.TradingView] = in
		t.byToken[in.Token] = in
	}
	return t
}

// ByTradingView resolves a TradingView symbol.
func (t *Table) ByTradingView(symbol string) (Instrument, bool) {
	in, ok := t.byTradingView[symbol]
	return in, ok
}

// ByToken resolves a broker feed token.
func (t *Table) ByToken(token int64) (Instrument, bool) {
	in, ok := t.byToken[token]
	return in, ok
}

// All returns the instruments in registration order.
func (t *Table) All() []Instrument {
	out := make([]Instrument, len(t.ordered))
	copy(out, t.ordered)
	return out
}

// Defaults is the built-in contract universe used when the config lists none.
func Defaults() []Instrument {
	return []Instrument{
		{TradingView: "NIFTY251216C26050", Exchange: "NFO", Broker: "NIFTY25D1626050CE", Token: 12345858, Lot: 75},
		{TradingView: "NIFTY251216P26100", Exchange: "NFO", Broker: "NIFTY25D1626100PE", Token: 12346626, Lot: 75},
		{TradingView: "BANKNIFTY251230C59400", Exchange: "NFO", Broker: "BANKNIFTY25DEC59400CE", Token: 13173762, Lot: 35},
		{TradingView: "BANKNIFTY251230P59500", Exchange: "NFO", Broker: "BANKNIFTY25DEC59500PE", Token: 13177858, Lot: 35},
		{TradingView: "BSX251218C85300", Exchange: "BFO", Broker: "SENSEX25D1885300CE", Token: 291220997, Lot: 20},
		{TradingView: "BSX251218P85400", Exchange: "BFO", Broker: "SENSEX25D1885400PE", Token: 293306629, Lot: 20},
	}
}
