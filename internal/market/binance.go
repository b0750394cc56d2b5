package market

import (
	"context"
	"fmt"
	"sort"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Binance serves readings from Binance USDT-margined perpetual futures.
// Only public endpoints are used; no credentials required.
type Binance struct {
	cli    *futures.Client
	logger zerolog.Logger
}

// NewBinance constructs a Binance provider around a futures client.
func NewBinance(cli *futures.Client, logger zerolog.Logger) *Binance {
	return &Binance{
		cli:    cli,
		logger: logger.With().Str("component", "binance_provider").Logger(),
	}
}

func (b *Binance) Name() string { return "binance" }

// OpenInterest returns the current open interest for the symbol.
func (b *Binance) OpenInterest(ctx context.Context, symbol string) (decimal.Decimal, error) {
	res, err := b.cli.NewGetOpenInterestService().Symbol(symbol).Do(ctx)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("binance open interest %s: %w", symbol, err)
	}
	oi, err := decimal.NewFromString(res.OpenInterest)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("binance open interest %s: parse %q: %w", symbol, res.OpenInterest, err)
	}
	return oi, nil
}

// Ticker24h returns last price and 24h quote volume for the symbol.
func (b *Binance) Ticker24h(ctx context.Context, symbol string) (Ticker, error) {
	stats, err := b.cli.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
	if err != nil {
		return Ticker{}, fmt.Errorf("binance ticker %s: %w", symbol, err)
	}
	if len(stats) == 0 {
		return Ticker{}, fmt.Errorf("binance ticker %s: empty response", symbol)
	}

	last, err := decimal.NewFromString(stats[0].LastPrice)
	if err != nil {
		return Ticker{}, fmt.Errorf("binance ticker %s: parse last price %q: %w", symbol, stats[0].LastPrice, err)
	}
	quoteVolume, err := decimal.NewFromString(stats[0].QuoteVolume)
	if err != nil {
		return Ticker{}, fmt.Errorf("binance ticker %s: parse quote volume %q: %w", symbol, stats[0].QuoteVolume, err)
	}

	return Ticker{LastPrice: last, QuoteVolume: quoteVolume}, nil
}

// ActiveSymbols lists tradable USDT perpetual symbols, sorted.
func (b *Binance) ActiveSymbols(ctx context.Context) ([]string, error) {
	info, err := b.cli.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance exchange info: %w", err)
	}

	symbols := lo.FilterMap(info.Symbols, func(s futures.Symbol, _ int) (string, bool) {
		if s.Status != "TRADING" || s.QuoteAsset != "USDT" || s.ContractType != "PERPETUAL" {
			return "", false
		}
		return s.Symbol, true
	})
	sort.Strings(symbols)

	b.logger.Debug().Int("count", len(symbols)).Msg("loaded USDT perpetual symbols")
	return symbols, nil
}

var _ Provider = (*Binance)(nil)
