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

const okxTickerPath = "/api/v5/market/ticker"

// OKXOptions parameterise the OKX spot client.
type OKXOptions struct {
	BaseURL string
	Timeout time.Duration
}

// OKX serves 24h spot tickers from the OKX v5 REST API. Like Bybit it is a
// ticker-only venue for ranking purposes.
type OKX struct {
	client  *http.Client
	baseURL string
	logger  zerolog.Logger
}

// NewOKX constructs an OKX spot ticker provider.
func NewOKX(opts OKXOptions, logger zerolog.Logger) *OKX {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://www.okx.com"
	}
	return &OKX{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		logger:  logger.With().Str("component", "okx_provider").Logger(),
	}
}

func (o *OKX) Name() string { return "okx" }

func (o *OKX) OpenInterest(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return decimal.Decimal{}, ErrNotSupported
}

func (o *OKX) ActiveSymbols(ctx context.Context) ([]string, error) {
	return nil, ErrNotSupported
}

type okxTickerResponse struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data []struct {
		InstID    string `json:"instId"`
		Last      string `json:"last"`
		VolCcy24h string `json:"volCcy24h"`
	} `json:"data"`
}

// Ticker24h fetches the 24h spot ticker for the symbol. OKX instruments use
// a dashed id, so BTCUSDT maps to BTC-USDT; non-USDT symbols are not served.
func (o *OKX) Ticker24h(ctx context.Context, symbol string) (Ticker, error) {
	base, ok := strings.CutSuffix(symbol, "USDT")
	if !ok || base == "" {
		return Ticker{}, ErrNotSupported
	}
	instID := base + "-USDT"

	endpoint := fmt.Sprintf("%s%s?instId=%s", o.baseURL, okxTickerPath, url.QueryEscape(instID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Ticker{}, fmt.Errorf("create okx request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return Ticker{}, fmt.Errorf("send okx request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Ticker{}, fmt.Errorf("read okx response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Ticker{}, fmt.Errorf("okx api error (%d): %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var body okxTickerResponse
	if err := json.Unmarshal(payload, &body); err != nil {
		return Ticker{}, fmt.Errorf("decode okx response: %w", err)
	}
	if body.Code != "0" {
		return Ticker{}, fmt.Errorf("okx api error: code=%s %s", body.Code, body.Msg)
	}
	if len(body.Data) == 0 {
		return Ticker{}, fmt.Errorf("okx ticker %s: %w", instID, ErrNoVenue)
	}

	entry := body.Data[0]
	last, err := decimal.NewFromString(entry.Last)
	if err != nil {
		return Ticker{}, fmt.Errorf("okx ticker %s: parse last price %q: %w", instID, entry.Last, err)
	}
	volume, err := decimal.NewFromString(entry.VolCcy24h)
	if err != nil {
		return Ticker{}, fmt.Errorf("okx ticker %s: parse volume %q: %w", instID, entry.VolCcy24h, err)
	}

	return Ticker{LastPrice: last, QuoteVolume: volume}, nil
}

var _ Provider = (*OKX)(nil)
