package games

import (
	"errors"
	"testing"

	"github.com/meritmint/ledger-service/internal/domain"
	"github.com/meritmint/ledger-service/internal/fair"
)

func TestResolveCoinflip(t *testing.T) {
	tests := []struct {
		name       string
		draw       uint32
		prediction string
		wantResult string
		wantWon    bool
	}{
		{"even draw is heads, called heads", 42, "heads", "heads", true},
		{"even draw is heads, called tails", 42, "tails", "heads", false},
		{"odd draw is tails, called tails", 7, "tails", "tails", true},
		{"odd draw is tails, called heads", 7, "heads", "tails", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ResolveCoinflip(tt.draw, tt.prediction)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			outcome := res.Outcome.(CoinflipOutcome)
			if outcome.Result != tt.wantResult {
				t.Fatalf("expected result %q, got %q", tt.wantResult, outcome.Result)
			}
			if res.Won != tt.wantWon {
				t.Fatalf("expected won=%v, got %v", tt.wantWon, res.Won)
			}
			if res.FairMultiplierBps != 20000 {
				t.Fatalf("coinflip fair multiplier must be 2.0x, got %d bps", res.FairMultiplierBps)
			}
		})
	}
}

func TestResolveCoinflipRejectsBadPrediction(t *testing.T) {
	if _, err := ResolveCoinflip(1, "edge"); !errors.Is(err, ErrInvalidPrediction) {
		t.Fatalf("expected ErrInvalidPrediction, got %v", err)
	}
}

func TestResolveNumberPick(t *testing.T) {
	res, err := ResolveNumberPick(12, 6, 1) // 12 % 6 + 1 = 1
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Won {
		t.Fatal("expected a winning pick")
	}
	if res.FairMultiplierBps != 60000 {
		t.Fatalf("fair multiplier for 1-in-6 must be 6.0x, got %d bps", res.FairMultiplierBps)
	}

	res, err = ResolveNumberPick(12, 6, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Won {
		t.Fatal("expected a losing pick")
	}

	if _, err := ResolveNumberPick(12, 6, 7); !errors.Is(err, ErrInvalidPrediction) {
		t.Fatalf("expected ErrInvalidPrediction for out-of-range pick, got %v", err)
	}
	if _, err := ResolveNumberPick(12, 1, 1); !errors.Is(err, ErrBadGameConfig) {
		t.Fatalf("expected ErrBadGameConfig for degenerate range, got %v", err)
	}
}

func TestResolveHighLow(t *testing.T) {
	tests := []struct {
		name       string
		draw       uint32 // rolled = draw%100 + 1
		prediction string
		wantWon    bool
	}{
		{"roll 100 wins high", 99, "high", true},
		{"roll 100 loses low", 99, "low", false},
		{"roll 1 wins low", 0, "low", true},
		{"roll 1 loses high", 0, "high", false},
		{"exact midpoint loses high", 49, "high", false},
		{"exact midpoint loses low", 49, "low", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ResolveHighLow(tt.draw, tt.prediction)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Won != tt.wantWon {
				t.Fatalf("expected won=%v, got %v (rolled %d)", tt.wantWon, res.Won, res.Outcome.(HighLowOutcome).Rolled)
			}
		})
	}
}

func testSegments() []domain.WheelSegment {
	return []domain.WheelSegment{
		{Label: "bust", Weight: 60, MultiplierBps: 0},
		{Label: "1.5x", Weight: 40, MultiplierBps: 15000},
		{Label: "3x", Weight: 20, MultiplierBps: 30000},
		{Label: "10x", Weight: 10, MultiplierBps: 100000},
	}
}

func TestResolveWheelBucketBoundaries(t *testing.T) {
	// Total weight 130: buckets are [0,60) [60,100) [100,120) [120,130).
	tests := []struct {
		draw      uint32
		wantIndex int
	}{
		{0, 0}, {59, 0}, {60, 1}, {99, 1}, {100, 2}, {119, 2}, {120, 3}, {129, 3}, {130, 0},
	}
	for _, tt := range tests {
		res, err := ResolveWheel(tt.draw, testSegments())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		outcome := res.Outcome.(WheelOutcome)
		if outcome.SegmentIndex != tt.wantIndex {
			t.Fatalf("draw %d: expected segment %d, got %d", tt.draw, tt.wantIndex, outcome.SegmentIndex)
		}
		if res.Won != (outcome.MultiplierBps > 0) {
			t.Fatalf("draw %d: won flag inconsistent with multiplier", tt.draw)
		}
	}
}

// TestResolveWheelDistribution drives the wheel with real fair draws across
// many nonces and checks empirical segment frequency converges on
// weight/totalWeight.
func TestResolveWheelDistribution(t *testing.T) {
	segments := testSegments()
	const trials = 20000
	counts := make([]int, len(segments))

	for nonce := int64(0); nonce < trials; nonce++ {
		draw := fair.Draw("distribution-server-seed", "distribution-client-seed", nonce)
		res, err := ResolveWheel(draw, segments)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		counts[res.Outcome.(WheelOutcome).SegmentIndex]++
	}

	totalWeight := int64(0)
	for _, seg := range segments {
		totalWeight += seg.Weight
	}
	for i, seg := range segments {
		expected := float64(seg.Weight) / float64(totalWeight)
		got := float64(counts[i]) / float64(trials)
		if diff := got - expected; diff > 0.02 || diff < -0.02 {
			t.Fatalf("segment %q: empirical frequency %.4f too far from configured %.4f", seg.Label, got, expected)
		}
	}
}

func testSymbols() []domain.SlotSymbol {
	return []domain.SlotSymbol{
		{Symbol: "blank", Weight: 50, MultiplierBps: 0},
		{Symbol: "cherry", Weight: 30, MultiplierBps: 20000},
		{Symbol: "bell", Weight: 15, MultiplierBps: 50000},
		{Symbol: "seven", Weight: 5, MultiplierBps: 200000},
	}
}

func TestResolveSlotsPicksHighestLine(t *testing.T) {
	// Total weight 100: blank [0,50), cherry [50,80), bell [80,95), seven [95,100).
	const blank, cherry, bell = 0, 50, 80
	draws := [9]uint32{
		cherry, cherry, cherry, // top row: cherry triple
		bell, bell, bell, // middle row: bell triple, higher multiplier
		blank, blank, blank, // bottom row: blank triple must not win
	}
	res, err := ResolveSlots(draws, testSymbols())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Won {
		t.Fatal("expected a winning grid")
	}
	if res.FairMultiplierBps != 50000 {
		t.Fatalf("expected the bell line (5.0x) to win, got %d bps", res.FairMultiplierBps)
	}
	if res.Outcome.(SlotsOutcome).Symbol != "bell" {
		t.Fatalf("expected bell, got %q", res.Outcome.(SlotsOutcome).Symbol)
	}
}

func TestResolveSlotsDiagonalAndNoMatch(t *testing.T) {
	const blank, cherry, bell = 0, 50, 80
	diagonal := [9]uint32{
		cherry, blank, bell,
		blank, cherry, bell,
		bell, blank, cherry,
	}
	res, err := ResolveSlots(diagonal, testSymbols())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Won || res.FairMultiplierBps != 20000 {
		t.Fatalf("expected the cherry diagonal to win at 2.0x, got won=%v %d bps", res.Won, res.FairMultiplierBps)
	}

	noMatch := [9]uint32{
		cherry, bell, cherry,
		bell, blank, cherry,
		cherry, cherry, bell,
	}
	res, err = ResolveSlots(noMatch, testSymbols())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Won || res.FairMultiplierBps != 0 {
		t.Fatalf("expected no winning line, got won=%v %d bps", res.Won, res.FairMultiplierBps)
	}

	allBlank := [9]uint32{blank, blank, blank, blank, blank, blank, blank, blank, blank}
	res, err = ResolveSlots(allBlank, testSymbols())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Won {
		t.Fatal("a blank triple must never win")
	}
}

func TestResolveBonusPrize(t *testing.T) {
	prizes := []domain.BonusPrize{
		{Label: "small", Weight: 70, Amount: 500},
		{Label: "medium", Weight: 25, Amount: 2000},
		{Label: "large", Weight: 5, Amount: 10000},
	}

	prize, err := ResolveBonusPrize(0, prizes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prize.Label != "small" {
		t.Fatalf("draw 0 must land in the first bucket, got %q", prize.Label)
	}

	prize, err = ResolveBonusPrize(99, prizes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prize.Label != "large" {
		t.Fatalf("draw 99 must land in the last bucket, got %q", prize.Label)
	}

	if _, err := ResolveBonusPrize(1, nil); !errors.Is(err, ErrBadGameConfig) {
		t.Fatalf("expected ErrBadGameConfig for empty prize table, got %v", err)
	}
}
