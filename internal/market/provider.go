package market

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotSupported marks an operation a venue cannot serve (e.g. open
	// interest on a spot-only venue).
	ErrNotSupported = errors.New("operation not supported by venue")
	// ErrNoVenue is returned when no configured venue produced data.
	ErrNoVenue = errors.New("no venue returned data")
)

// Ticker is a 24h rolling-window snapshot for one symbol.
type Ticker struct {
	LastPrice   decimal.Decimal
	QuoteVolume decimal.Decimal
}

// Provider fetches current market readings for a symbol. Implementations
// wrap one venue; Ranked composes several.
type Provider interface {
	Name() string
	OpenInterest(ctx context.Context, symbol string) (decimal.Decimal, error)
	Ticker24h(ctx context.Context, symbol string) (Ticker, error)
	ActiveSymbols(ctx context.Context) ([]string, error)
}
