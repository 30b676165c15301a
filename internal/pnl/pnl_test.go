package pnl

import "testing"

func TestRound2(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{1.005, 1.01},
		{-1.2, -1.2},
		{99.4 - 100.6, -1.2},
		{0.125, 0.13},
		{-0.125, -0.13},
		{0, 0},
	}
	for _, c := range cases {
		if got := Round2(c.in); got != c.want {
			t.Fatalf("Round2(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestRealizedResumsExactly(t *testing.T) {
	pnls := []float64{-1.2, 0.5, 0.35, -0.05}
	total := Realized(pnls)
	if total != -0.4 {
		t.Fatalf("expected -0.40, got %v", total)
	}
	// A second fold over the same list must reproduce the value exactly.
	if again := Realized(pnls); again != total {
		t.Fatalf("re-summing diverged: %v vs %v", again, total)
	}
}

func TestBreakdownRoundsEveryLeg(t *testing.T) {
	b := NewBreakdown(1.5, 0.333)
	if b.Unrealized != 0.33 {
		t.Fatalf("unrealized not rounded: %v", b.Unrealized)
	}
	if b.Total != 1.83 {
		t.Fatalf("total mismatch: %v", b.Total)
	}
}
