package signal

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"oi-volume-alerts/internal/history"
)

// Category classifies an alert candidate.
type Category string

const (
	CategoryOpenInterestSurge Category = "oi_surge"
	CategoryVolumeSpike       Category = "volume_spike"
)

const minutesPerDay = 1440

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Candidate is one triggered rule for one symbol, ready for gating and
// delivery. Candidates are consumed immediately and never persisted.
type Candidate struct {
	Symbol    string
	Category  Category
	ChangePct decimal.Decimal
	Message   string
	At        time.Time
}

// Thresholds hold the rule trigger levels. Percentages are whole numbers
// (5 means 5%), volume is in quote-currency units.
type Thresholds struct {
	OISurgePct      decimal.Decimal
	PriceMovePct    decimal.Decimal
	MinMinuteVolume decimal.Decimal
}

// DefaultThresholds returns the stock rule levels: 5% open-interest growth,
// 2% price move, $50k estimated 1-minute turnover.
func DefaultThresholds() Thresholds {
	return Thresholds{
		OISurgePct:      decimal.NewFromInt(5),
		PriceMovePct:    decimal.NewFromInt(2),
		MinMinuteVolume: decimal.NewFromInt(50000),
	}
}

// Evaluator applies the alert rules to a symbol's reading window. It is
// stateless: all inputs arrive through Evaluate.
type Evaluator struct {
	thresholds Thresholds
}

// NewEvaluator constructs an Evaluator with the given thresholds.
func NewEvaluator(t Thresholds) *Evaluator {
	return &Evaluator{thresholds: t}
}

// Evaluate inspects the reading window (oldest first, current reading last)
// and returns zero or more alert candidates. A window with fewer than two
// readings only seeds history and never triggers. Zero baselines make a
// rule not evaluable and are skipped rather than failed.
func (e *Evaluator) Evaluate(symbol string, window []history.Reading) []Candidate {
	if len(window) < 2 {
		return nil
	}

	current := window[len(window)-1]

	var candidates []Candidate
	if c, ok := e.checkOpenInterest(symbol, current, window[:len(window)-1]); ok {
		candidates = append(candidates, c)
	}
	if c, ok := e.checkVolumeSpike(symbol, current, window[len(window)-2]); ok {
		candidates = append(candidates, c)
	}
	return candidates
}

// checkOpenInterest triggers when the current open interest exceeds the
// previous recorded one by more than the surge threshold.
func (e *Evaluator) checkOpenInterest(symbol string, current history.Reading, earlier []history.Reading) (Candidate, bool) {
	if !current.OpenInterest.Valid {
		return Candidate{}, false
	}

	prev, ok := lastOpenInterest(earlier)
	if !ok || prev.IsZero() {
		return Candidate{}, false
	}

	oiNow := current.OpenInterest.Decimal
	limit := prev.Mul(one.Add(e.thresholds.OISurgePct.Div(hundred)))
	if !oiNow.GreaterThan(limit) {
		return Candidate{}, false
	}

	pct := oiNow.Div(prev).Sub(one).Mul(hundred)
	return Candidate{
		Symbol:    symbol,
		Category:  CategoryOpenInterestSurge,
		ChangePct: pct,
		At:        current.At,
		Message: fmt.Sprintf("⚠️ position surge %s\nposition increased %s%%\ncurrent %s\ntime %s",
			symbol, pct.StringFixed(2), oiNow.String(), formatTime(current.At)),
	}, true
}

// checkVolumeSpike triggers when the estimated 1-minute turnover exceeds the
// volume floor and the price moved more than the move threshold since the
// previous reading. Both comparisons are strict.
func (e *Evaluator) checkVolumeSpike(symbol string, current, previous history.Reading) (Candidate, bool) {
	if previous.Price.IsZero() {
		return Candidate{}, false
	}

	avgMinuteVolume := current.QuoteVolume.Div(decimal.NewFromInt(minutesPerDay))
	if !avgMinuteVolume.GreaterThan(e.thresholds.MinMinuteVolume) {
		return Candidate{}, false
	}

	pct := current.Price.Div(previous.Price).Sub(one).Mul(hundred)
	if !pct.Abs().GreaterThan(e.thresholds.PriceMovePct) {
		return Candidate{}, false
	}

	return Candidate{
		Symbol:    symbol,
		Category:  CategoryVolumeSpike,
		ChangePct: pct,
		At:        current.At,
		Message: fmt.Sprintf("🔥 spot volume spike %s\n1min turnover ≈ $%s\nprice move %s%%\ntime %s",
			symbol, avgMinuteVolume.StringFixed(0), pct.StringFixed(2), formatTime(current.At)),
	}, true
}

func lastOpenInterest(readings []history.Reading) (decimal.Decimal, bool) {
	for i := len(readings) - 1; i >= 0; i-- {
		if readings[i].OpenInterest.Valid {
			return readings[i].OpenInterest.Decimal, true
		}
	}
	return decimal.Decimal{}, false
}

func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05 MST")
}
