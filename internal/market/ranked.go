package market

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Ranked composes several venues behind the Provider interface. Ticker24h
// queries every venue and keeps the one with the highest 24h quote volume,
// ties broken by configuration order. Venues that error or lack the symbol
// are skipped. Open interest and symbol listing delegate to the first venue
// able to serve them.
type Ranked struct {
	venues []Provider
	logger zerolog.Logger
}

// NewRanked constructs a ranked provider over the given venues.
func NewRanked(logger zerolog.Logger, venues ...Provider) *Ranked {
	if len(venues) == 0 {
		panic("ranked provider needs at least one venue")
	}
	return &Ranked{
		venues: venues,
		logger: logger.With().Str("component", "ranked_provider").Logger(),
	}
}

func (r *Ranked) Name() string { return "ranked" }

// Ticker24h returns the ticker from the venue with the highest quote volume.
func (r *Ranked) Ticker24h(ctx context.Context, symbol string) (Ticker, error) {
	var (
		best     Ticker
		bestName string
		found    bool
	)

	for _, venue := range r.venues {
		t, err := venue.Ticker24h(ctx, symbol)
		if err != nil {
			if !errors.Is(err, ErrNotSupported) {
				r.logger.Debug().Err(err).Str("venue", venue.Name()).Str("symbol", symbol).Msg("venue ticker skipped")
			}
			continue
		}
		// strict greater keeps the first-seen venue on ties
		if !found || t.QuoteVolume.GreaterThan(best.QuoteVolume) {
			best = t
			bestName = venue.Name()
			found = true
		}
	}

	if !found {
		return Ticker{}, fmt.Errorf("ticker %s: %w", symbol, ErrNoVenue)
	}
	r.logger.Debug().Str("venue", bestName).Str("symbol", symbol).Str("quote_volume", best.QuoteVolume.String()).Msg("picked venue by volume")
	return best, nil
}

// OpenInterest returns the first venue's successful answer.
func (r *Ranked) OpenInterest(ctx context.Context, symbol string) (decimal.Decimal, error) {
	var lastErr error
	for _, venue := range r.venues {
		oi, err := venue.OpenInterest(ctx, symbol)
		if err == nil {
			return oi, nil
		}
		if !errors.Is(err, ErrNotSupported) {
			lastErr = err
		}
	}
	if lastErr != nil {
		return decimal.Decimal{}, lastErr
	}
	return decimal.Decimal{}, fmt.Errorf("open interest %s: %w", symbol, ErrNoVenue)
}

// ActiveSymbols returns the first venue's successful listing.
func (r *Ranked) ActiveSymbols(ctx context.Context) ([]string, error) {
	var lastErr error
	for _, venue := range r.venues {
		symbols, err := venue.ActiveSymbols(ctx)
		if err == nil {
			return symbols, nil
		}
		if !errors.Is(err, ErrNotSupported) {
			lastErr = err
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("active symbols: %w", ErrNoVenue)
}

var _ Provider = (*Ranked)(nil)
