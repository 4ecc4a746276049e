/**
 * @description
 * Pure wager resolvers: each maps one or more provably-fair draws onto an
 * outcome, a win flag, and a fair payout multiplier. Resolvers know nothing
 * about money movement and never apply house edge; the engine applies edge
 * once, centrally, so the fairness proof covers the raw outcome independent
 * of commercial terms.
 *
 * @notes
 * - Multipliers are in basis points (10000 = 1.0x).
 * - All functions are deterministic in their inputs so a player can replay a
 *   past game from its recorded seeds and nonce.
 */

package games

import (
	"errors"
	"fmt"

	"github.com/meritmint/ledger-service/internal/domain"
)

// ErrInvalidPrediction is returned when the player's call cannot be
// interpreted for the game being played. It is a caller fault.
var ErrInvalidPrediction = errors.New("invalid prediction")

// ErrBadGameConfig is returned when a game's configured payload cannot
// produce an outcome (e.g. no wheel segments). It is an operator defect.
var ErrBadGameConfig = errors.New("invalid game configuration")

// Resolution is the outcome of one resolved wager, before house edge.
type Resolution struct {
	Won               bool
	FairMultiplierBps int64
	Outcome           interface{}
}

// CoinflipOutcome records one coin toss.
type CoinflipOutcome struct {
	Result     string `json:"result"`
	Prediction string `json:"prediction"`
}

// ResolveCoinflip maps draw parity onto heads/tails. Two equiprobable
// outcomes make the fair multiplier exactly 2.0x.
func ResolveCoinflip(draw uint32, prediction string) (Resolution, error) {
	if prediction != "heads" && prediction != "tails" {
		return Resolution{}, fmt.Errorf("%w: want heads or tails, got %q", ErrInvalidPrediction, prediction)
	}
	result := "heads"
	if draw%2 == 1 {
		result = "tails"
	}
	return Resolution{
		Won:               result == prediction,
		FairMultiplierBps: 20000,
		Outcome:           CoinflipOutcome{Result: result, Prediction: prediction},
	}, nil
}

// NumberPickOutcome records one 1..N range pick.
type NumberPickOutcome struct {
	Rolled int64 `json:"rolled"`
	Picked int64 `json:"picked"`
	Range  int64 `json:"range"`
}

// ResolveNumberPick rolls 1..rangeMax and wins iff it equals the pick. The
// fair multiplier is rangeMax, the inverse of the true win probability.
func ResolveNumberPick(draw uint32, rangeMax int64, pick int64) (Resolution, error) {
	if rangeMax < 2 {
		return Resolution{}, fmt.Errorf("%w: range max %d", ErrBadGameConfig, rangeMax)
	}
	if pick < 1 || pick > rangeMax {
		return Resolution{}, fmt.Errorf("%w: pick %d outside 1..%d", ErrInvalidPrediction, pick, rangeMax)
	}
	rolled := int64(draw)%rangeMax + 1
	return Resolution{
		Won:               rolled == pick,
		FairMultiplierBps: rangeMax * 10000,
		Outcome:           NumberPickOutcome{Rolled: rolled, Picked: pick, Range: rangeMax},
	}, nil
}

// WheelOutcome records which segment the wheel stopped on.
type WheelOutcome struct {
	SegmentIndex  int    `json:"segment_index"`
	Label         string `json:"label"`
	MultiplierBps int64  `json:"multiplier_bps"`
}

// ResolveWheel partitions the draw space into contiguous buckets
// proportional to each segment's weight; the segment containing
// draw mod totalWeight is the result. A zero-multiplier segment is a loss.
func ResolveWheel(draw uint32, segments []domain.WheelSegment) (Resolution, error) {
	total := int64(0)
	for _, seg := range segments {
		if seg.Weight <= 0 {
			return Resolution{}, fmt.Errorf("%w: segment %q weight %d", ErrBadGameConfig, seg.Label, seg.Weight)
		}
		total += seg.Weight
	}
	if total == 0 {
		return Resolution{}, fmt.Errorf("%w: no wheel segments", ErrBadGameConfig)
	}

	target := int64(draw) % total
	cumulative := int64(0)
	for i, seg := range segments {
		cumulative += seg.Weight
		if target < cumulative {
			return Resolution{
				Won:               seg.MultiplierBps > 0,
				FairMultiplierBps: seg.MultiplierBps,
				Outcome: WheelOutcome{
					SegmentIndex:  i,
					Label:         seg.Label,
					MultiplierBps: seg.MultiplierBps,
				},
			}, nil
		}
	}
	// Unreachable: target < total and weights sum to total.
	return Resolution{}, fmt.Errorf("%w: wheel selection fell through", ErrBadGameConfig)
}

// HighLowOutcome records one over/under roll against the fixed midpoint.
type HighLowOutcome struct {
	Rolled     int64  `json:"rolled"`
	Prediction string `json:"prediction"`
	Midpoint   int64  `json:"midpoint"`
}

const highLowMidpoint = 50

// ResolveHighLow rolls 1..100 against the fixed midpoint of 50. "high" wins
// on 51..100, "low" on 1..49; landing exactly on the midpoint loses either
// way, which is where the house's structural edge in this game lives. The
// fair multiplier reflects the true 49-in-100 win chance.
func ResolveHighLow(draw uint32, prediction string) (Resolution, error) {
	if prediction != "high" && prediction != "low" {
		return Resolution{}, fmt.Errorf("%w: want high or low, got %q", ErrInvalidPrediction, prediction)
	}
	rolled := int64(draw)%100 + 1

	won := false
	switch {
	case rolled == highLowMidpoint:
		won = false
	case prediction == "high":
		won = rolled > highLowMidpoint
	default:
		won = rolled < highLowMidpoint
	}

	return Resolution{
		Won:               won,
		FairMultiplierBps: 10000 * 100 / 49,
		Outcome:           HighLowOutcome{Rolled: rolled, Prediction: prediction, Midpoint: highLowMidpoint},
	}, nil
}

// SlotsOutcome records the filled grid and the winning line, if any.
type SlotsOutcome struct {
	Grid        [9]string `json:"grid"`
	WinningLine []int     `json:"winning_line,omitempty"`
	Symbol      string    `json:"symbol,omitempty"`
}

// slotsLines enumerates all rows, columns, and both diagonals of the 3x3
// grid by cell index.
var slotsLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8}, // rows
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8}, // columns
	{0, 4, 8}, {2, 4, 6}, // diagonals
}

// ResolveSlots fills a 3x3 grid from nine independent weighted draws and
// pays the highest-multiplier matching triple across all lines. The blank
// symbol (multiplier zero) never wins; no matching triple pays zero.
func ResolveSlots(draws [9]uint32, symbols []domain.SlotSymbol) (Resolution, error) {
	total := int64(0)
	for _, sym := range symbols {
		if sym.Weight <= 0 {
			return Resolution{}, fmt.Errorf("%w: symbol %q weight %d", ErrBadGameConfig, sym.Symbol, sym.Weight)
		}
		total += sym.Weight
	}
	if total == 0 {
		return Resolution{}, fmt.Errorf("%w: no slot symbols", ErrBadGameConfig)
	}

	var grid [9]string
	multipliers := make(map[string]int64, len(symbols))
	for i, draw := range draws {
		target := int64(draw) % total
		cumulative := int64(0)
		for _, sym := range symbols {
			cumulative += sym.Weight
			if target < cumulative {
				grid[i] = sym.Symbol
				multipliers[sym.Symbol] = sym.MultiplierBps
				break
			}
		}
	}

	best := int64(0)
	var bestLine []int
	var bestSymbol string
	for _, line := range slotsLines {
		a, b, c := grid[line[0]], grid[line[1]], grid[line[2]]
		if a != b || b != c {
			continue
		}
		if m := multipliers[a]; m > best {
			best = m
			bestLine = []int{line[0], line[1], line[2]}
			bestSymbol = a
		}
	}

	return Resolution{
		Won:               best > 0,
		FairMultiplierBps: best,
		Outcome:           SlotsOutcome{Grid: grid, WinningLine: bestLine, Symbol: bestSymbol},
	}, nil
}

// BonusOutcome records the daily bonus prize that was drawn.
type BonusOutcome struct {
	Label  string `json:"label"`
	Amount int64  `json:"amount"`
}

// ResolveBonusPrize selects one fixed prize from a published weighted table.
// A bonus draw is always "won"; the prize amount is a fixed credit, not a
// multiplier, so house edge never applies to it.
func ResolveBonusPrize(draw uint32, prizes []domain.BonusPrize) (domain.BonusPrize, error) {
	total := int64(0)
	for _, prize := range prizes {
		if prize.Weight <= 0 {
			return domain.BonusPrize{}, fmt.Errorf("%w: prize %q weight %d", ErrBadGameConfig, prize.Label, prize.Weight)
		}
		total += prize.Weight
	}
	if total == 0 {
		return domain.BonusPrize{}, fmt.Errorf("%w: no bonus prizes", ErrBadGameConfig)
	}

	target := int64(draw) % total
	cumulative := int64(0)
	for _, prize := range prizes {
		cumulative += prize.Weight
		if target < cumulative {
			return prize, nil
		}
	}
	return domain.BonusPrize{}, fmt.Errorf("%w: bonus selection fell through", ErrBadGameConfig)
}
