package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const bybitTickersPath = "/v5/market/tickers"

// BybitOptions parameterise the Bybit spot client.
type BybitOptions struct {
	BaseURL string
	Timeout time.Duration
}

// Bybit serves 24h spot tickers from the Bybit v5 REST API. It cannot list
// the futures universe or report open interest; those calls return
// ErrNotSupported so a ranked provider skips this venue.
type Bybit struct {
	client  *http.Client
	baseURL string
	logger  zerolog.Logger
}

// NewBybit constructs a Bybit spot ticker provider.
func NewBybit(opts BybitOptions, logger zerolog.Logger) *Bybit {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.bybit.com"
	}
	return &Bybit{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		logger:  logger.With().Str("component", "bybit_provider").Logger(),
	}
}

func (b *Bybit) Name() string { return "bybit" }

func (b *Bybit) OpenInterest(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return decimal.Decimal{}, ErrNotSupported
}

func (b *Bybit) ActiveSymbols(ctx context.Context) ([]string, error) {
	return nil, ErrNotSupported
}

type bybitTickerResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		List []struct {
			Symbol      string `json:"symbol"`
			LastPrice   string `json:"lastPrice"`
			Turnover24h string `json:"turnover24h"`
		} `json:"list"`
	} `json:"result"`
}

// Ticker24h fetches the 24h spot ticker for the symbol.
func (b *Bybit) Ticker24h(ctx context.Context, symbol string) (Ticker, error) {
	endpoint := fmt.Sprintf("%s%s?category=spot&symbol=%s", b.baseURL, bybitTickersPath, url.QueryEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Ticker{}, fmt.Errorf("create bybit request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return Ticker{}, fmt.Errorf("send bybit request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Ticker{}, fmt.Errorf("read bybit response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Ticker{}, fmt.Errorf("bybit api error (%d): %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var body bybitTickerResponse
	if err := json.Unmarshal(payload, &body); err != nil {
		return Ticker{}, fmt.Errorf("decode bybit response: %w", err)
	}
	if body.RetCode != 0 {
		return Ticker{}, fmt.Errorf("bybit api error: retCode=%d %s", body.RetCode, body.RetMsg)
	}
	if len(body.Result.List) == 0 {
		return Ticker{}, fmt.Errorf("bybit ticker %s: %w", symbol, ErrNoVenue)
	}

	entry := body.Result.List[0]
	last, err := decimal.NewFromString(entry.LastPrice)
	if err != nil {
		return Ticker{}, fmt.Errorf("bybit ticker %s: parse last price %q: %w", symbol, entry.LastPrice, err)
	}
	turnover, err := decimal.NewFromString(entry.Turnover24h)
	if err != nil {
		return Ticker{}, fmt.Errorf("bybit ticker %s: parse turnover %q: %w", symbol, entry.Turnover24h, err)
	}

	return Ticker{LastPrice: last, QuoteVolume: turnover}, nil
}

var _ Provider = (*Bybit)(nil)
