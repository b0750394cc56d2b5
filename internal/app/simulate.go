package app

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"oi-volume-alerts/internal/history"
	sig "oi-volume-alerts/internal/signal"
)

// SimulateAlert 通过给定的前后持仓量模拟一次完整的告警流程。
// It exercises the real evaluator and the configured notification channels
// without touching any exchange.
func (a *App) SimulateAlert(ctx context.Context, prevOI, currentOI decimal.Decimal) error {
	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("未配置任何告警通道")
	}

	const symbol = "SIMUSDT"
	price := decimal.NewFromInt(100)
	now := time.Now()

	hist := history.New(a.Config.Monitor.HistoryRetention)
	hist.Record(symbol, history.Reading{
		Price:        price,
		OpenInterest: decimal.NewNullDecimal(prevOI),
		At:           now.Add(-time.Minute),
	})
	hist.Record(symbol, history.Reading{
		Price:        price,
		OpenInterest: decimal.NewNullDecimal(currentOI),
		At:           now,
	})

	candidates := sig.NewEvaluator(a.thresholds()).Evaluate(symbol, hist.Snapshot(symbol))
	if len(candidates) == 0 {
		return errors.New("给定数值未越过任何阈值，未产生告警")
	}

	for _, c := range candidates {
		if err := notifier.Notify(ctx, c.Message); err != nil {
			return err
		}
		a.Logger.Info().Str("category", string(c.Category)).Msg("simulated alert delivered")
	}
	return nil
}
