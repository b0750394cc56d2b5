package signal

import (
	"fmt"

	"oi-volume-alerts/internal/history"
)

// The composite strength score below is a heuristic scorecard: a weighted
// sum of a handful of indicator readings, clamped to [-100, 100]. It is not
// a statistically validated trading signal and must not be treated as one;
// it only ranks how many of the simple conditions line up.

// Action is the human-readable bucket a strength score falls into.
type Action string

const (
	ActionStrongBuy  Action = "strong buy"
	ActionBuy        Action = "buy"
	ActionLightBuy   Action = "light buy"
	ActionObserve    Action = "observe"
	ActionLightSell  Action = "light sell"
	ActionSell       Action = "sell"
	ActionStrongSell Action = "strong sell"
)

const (
	rsiPeriod      = 14
	fastMAPeriod   = 7
	slowMAPeriod   = 21
	momentumWindow = 5
	oiDeltaWindow  = 5

	// Falling open interest is a weaker signal than rising open interest
	// in the original scorecard; its contribution is dampened.
	oiFallDampening = 0.7
)

// Score is the result of the composite evaluation.
type Score struct {
	Strength float64
	Action   Action
	RSI      float64
	RSIValid bool
}

// Summary renders a one-line description for appending to alert messages.
func (s Score) Summary() string {
	if s.RSIValid {
		return fmt.Sprintf("strength %+.0f (%s), RSI %.1f", s.Strength, s.Action, s.RSI)
	}
	return fmt.Sprintf("strength %+.0f (%s), RSI unavailable", s.Strength, s.Action)
}

// ComputeScore builds the composite strength score from the reading window
// (oldest first). Components with too few samples contribute zero.
func ComputeScore(window []history.Reading) Score {
	prices := floatSeries(window, history.FieldPrice)
	ois := floatSeries(window, history.FieldOpenInterest)

	strength := 0.0

	rsi, rsiOK := relativeStrengthIndex(prices, rsiPeriod)
	if rsiOK {
		switch {
		case rsi < 30:
			strength += 30
		case rsi <= 40:
			strength += 15
		case rsi > 70:
			strength -= 30
		case rsi >= 60:
			strength -= 15
		}
	}

	if len(prices) >= slowMAPeriod {
		fast := simpleMovingAverage(prices, fastMAPeriod)
		slow := simpleMovingAverage(prices, slowMAPeriod)
		if fast > slow {
			strength += 25
		} else if fast < slow {
			strength -= 25
		}
	}

	if len(prices) >= momentumWindow {
		first := prices[len(prices)-momentumWindow]
		if first != 0 {
			movePct := (prices[len(prices)-1]/first - 1) * 100
			if movePct > 3 {
				strength += 20
			} else if movePct < -3 {
				strength -= 20
			}
		}
	}

	if len(ois) >= oiDeltaWindow {
		first := ois[len(ois)-oiDeltaWindow]
		if first != 0 {
			deltaPct := (ois[len(ois)-1]/first - 1) * 100
			switch {
			case deltaPct > 5:
				strength += 15
			case deltaPct > 2:
				strength += 10
			case deltaPct < -5:
				strength -= 15 * oiFallDampening
			case deltaPct < -2:
				strength -= 10 * oiFallDampening
			}
		}
	}

	if strength > 100 {
		strength = 100
	} else if strength < -100 {
		strength = -100
	}

	return Score{
		Strength: strength,
		Action:   bucket(strength),
		RSI:      rsi,
		RSIValid: rsiOK,
	}
}

func bucket(strength float64) Action {
	switch {
	case strength >= 40:
		return ActionStrongBuy
	case strength >= 20:
		return ActionBuy
	case strength >= 10:
		return ActionLightBuy
	case strength <= -40:
		return ActionStrongSell
	case strength <= -20:
		return ActionSell
	case strength <= -10:
		return ActionLightSell
	default:
		return ActionObserve
	}
}

// relativeStrengthIndex computes a plain-average RSI over the last period
// deltas. Needs period+1 samples; reports false below that.
func relativeStrengthIndex(values []float64, period int) (float64, bool) {
	if len(values) < period+1 {
		return 0, false
	}

	var gains, losses float64
	tail := values[len(values)-period-1:]
	for i := 1; i < len(tail); i++ {
		diff := tail[i] - tail[i-1]
		if diff > 0 {
			gains += diff
		} else {
			losses -= diff
		}
	}

	if losses == 0 {
		if gains == 0 {
			return 50, true
		}
		return 100, true
	}

	rs := (gains / float64(period)) / (losses / float64(period))
	return 100 - 100/(1+rs), true
}

func simpleMovingAverage(values []float64, period int) float64 {
	tail := values[len(values)-period:]
	var sum float64
	for _, v := range tail {
		sum += v
	}
	return sum / float64(period)
}

func floatSeries(window []history.Reading, field history.Field) []float64 {
	out := make([]float64, 0, len(window))
	for _, r := range window {
		switch field {
		case history.FieldPrice:
			out = append(out, r.Price.InexactFloat64())
		case history.FieldOpenInterest:
			if r.OpenInterest.Valid {
				out = append(out, r.OpenInterest.Decimal.InexactFloat64())
			}
		}
	}
	return out
}
