package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"oi-volume-alerts/internal/alerting"
	"oi-volume-alerts/internal/config"
	"oi-volume-alerts/internal/history"
	"oi-volume-alerts/internal/market"
	"oi-volume-alerts/internal/scheduler"
	"oi-volume-alerts/internal/signal"
)

// Service orchestrates polling, rule evaluation, gating, and alert dispatch.
// It owns the rolling history and the cooldown state; symbols within one
// cycle are processed sequentially, so no locking is needed on either.
type Service struct {
	sched     *scheduler.Scheduler
	provider  market.Provider
	hist      *history.History
	evaluator *signal.Evaluator
	gate      *alerting.CooldownGate
	notifier  alerting.Notifier
	logger    zerolog.Logger

	requestGap      time.Duration
	symbolsLimit    int
	universeRefresh time.Duration
	notifyTimeout   time.Duration
	scoringOn       bool

	symbols          []string
	universeLoadedAt time.Time
}

// New constructs the monitoring service.
func New(cfg *config.Config, sched *scheduler.Scheduler, provider market.Provider, hist *history.History, evaluator *signal.Evaluator, gate *alerting.CooldownGate, notifier alerting.Notifier, logger zerolog.Logger) *Service {
	notifyTimeout := cfg.Alerting.NotifyTimeout
	if notifyTimeout <= 0 {
		notifyTimeout = 10 * time.Second
	}

	return &Service{
		sched:           sched,
		provider:        provider,
		hist:            hist,
		evaluator:       evaluator,
		gate:            gate,
		notifier:        notifier,
		logger:          logger.With().Str("component", "service").Logger(),
		requestGap:      cfg.Monitor.RequestGap,
		symbolsLimit:    cfg.Monitor.SymbolsLimit,
		universeRefresh: cfg.Monitor.UniverseRefresh,
		notifyTimeout:   notifyTimeout,
		scoringOn:       cfg.Signals.Scoring.Enabled,
	}
}

// Run loads the initial symbol universe and begins the polling loop. An
// unloadable or empty initial universe is fatal; there is no meaningful
// work on an empty set.
func (s *Service) Run(ctx context.Context) error {
	if s.sched == nil {
		return fmt.Errorf("scheduler not configured")
	}
	if err := s.LoadUniverse(ctx); err != nil {
		return fmt.Errorf("load initial symbol universe: %w", err)
	}

	s.logger.Info().Int("symbols", len(s.symbols)).Msg("starting monitor loop")
	return s.sched.Run(ctx, s.RunCycle)
}

// RunCycle executes one polling cycle over the symbol universe. Per-symbol
// failures are logged and skipped; only context cancellation stops the
// cycle early.
func (s *Service) RunCycle(ctx context.Context) error {
	s.maybeRefreshUniverse(ctx)

	for i, symbol := range s.symbols {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.processSymbol(ctx, symbol)

		if s.requestGap > 0 && i < len(s.symbols)-1 {
			if err := pause(ctx, s.requestGap); err != nil {
				return err
			}
		}
	}
	return nil
}

// LoadUniverse fetches the symbol universe. An empty set is an error: the
// loop would spin with nothing to do.
func (s *Service) LoadUniverse(ctx context.Context) error {
	if err := s.refreshUniverse(ctx); err != nil {
		return err
	}
	if len(s.symbols) == 0 {
		return errors.New("symbol universe is empty")
	}
	return nil
}

// maybeRefreshUniverse reloads the symbol list on its slower cadence. A
// failed refresh keeps the previous universe.
func (s *Service) maybeRefreshUniverse(ctx context.Context) {
	if s.universeRefresh <= 0 || time.Since(s.universeLoadedAt) < s.universeRefresh {
		return
	}
	if err := s.refreshUniverse(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("universe refresh failed, keeping previous set")
	}
}

func (s *Service) refreshUniverse(ctx context.Context) error {
	symbols, err := s.provider.ActiveSymbols(ctx)
	if err != nil {
		return err
	}
	if s.symbolsLimit > 0 && len(symbols) > s.symbolsLimit {
		symbols = symbols[:s.symbolsLimit]
	}
	s.symbols = symbols
	s.universeLoadedAt = time.Now()
	s.logger.Info().Int("symbols", len(symbols)).Msg("symbol universe loaded")
	return nil
}

// processSymbol runs the fetch→record→evaluate→gate→notify chain for one
// symbol. Fetch failures leave the symbol's history untouched.
func (s *Service) processSymbol(ctx context.Context, symbol string) {
	reading, err := s.fetchReading(ctx, symbol)
	if err != nil {
		s.logger.Debug().Err(err).Str("symbol", symbol).Msg("fetch failed, symbol skipped")
		return
	}

	s.hist.Record(symbol, reading)

	window := s.hist.Snapshot(symbol)
	candidates := s.evaluator.Evaluate(symbol, window)
	if len(candidates) == 0 {
		return
	}

	suffix := ""
	if s.scoringOn {
		suffix = "\n" + signal.ComputeScore(window).Summary()
	}

	for _, c := range candidates {
		if s.gate != nil && !s.gate.Allow(symbol, c.Category) {
			s.logger.Debug().Str("symbol", symbol).Str("category", string(c.Category)).Msg("alert suppressed by cooldown")
			continue
		}
		s.logger.Info().Str("symbol", symbol).
			Str("category", string(c.Category)).
			Str("change_pct", c.ChangePct.StringFixed(2)).
			Msg("alert triggered")
		s.dispatch(c.Message + suffix)
	}
}

// fetchReading builds one Reading from the provider. A ticker failure skips
// the symbol; a missing or failed open interest still yields a usable
// reading, since spot-only venues cannot report it.
func (s *Service) fetchReading(ctx context.Context, symbol string) (history.Reading, error) {
	ticker, err := s.provider.Ticker24h(ctx, symbol)
	if err != nil {
		return history.Reading{}, err
	}

	reading := history.Reading{
		Price:       ticker.LastPrice,
		QuoteVolume: ticker.QuoteVolume,
		At:          time.Now(),
	}

	oi, err := s.provider.OpenInterest(ctx, symbol)
	switch {
	case err == nil:
		reading.OpenInterest.Decimal = oi
		reading.OpenInterest.Valid = true
	case errors.Is(err, market.ErrNotSupported):
		// spot-only universe, nothing to record
	default:
		s.logger.Debug().Err(err).Str("symbol", symbol).Msg("open interest unavailable this tick")
	}

	return reading, nil
}

// dispatch delivers the message fire-and-forget with a bounded timeout. A
// lost alert is not retried; the next qualifying tick re-evaluates.
func (s *Service) dispatch(text string) {
	if s.notifier == nil {
		s.logger.Warn().Msg("no notifier configured, alert dropped")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()
		if err := s.notifier.Notify(ctx, text); err != nil {
			s.logger.Error().Err(err).Msg("failed to dispatch alert")
		}
	}()
}

func pause(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
