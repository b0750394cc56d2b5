package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oi-volume-alerts/internal/alerting"
	"oi-volume-alerts/internal/config"
	"oi-volume-alerts/internal/history"
	"oi-volume-alerts/internal/market"
	"oi-volume-alerts/internal/signal"
)

type fakeProvider struct {
	symbols    []string
	symbolsErr error
	tickers    map[string]market.Ticker
	tickerErrs map[string]error
	ois        map[string]decimal.Decimal
	calls      int
	onTicker   func()
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) ActiveSymbols(ctx context.Context) ([]string, error) {
	return f.symbols, f.symbolsErr
}

func (f *fakeProvider) Ticker24h(ctx context.Context, symbol string) (market.Ticker, error) {
	f.calls++
	if f.onTicker != nil {
		f.onTicker()
	}
	if err := f.tickerErrs[symbol]; err != nil {
		return market.Ticker{}, err
	}
	return f.tickers[symbol], nil
}

func (f *fakeProvider) OpenInterest(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if oi, ok := f.ois[symbol]; ok {
		return oi, nil
	}
	return decimal.Decimal{}, market.ErrNotSupported
}

type chanNotifier struct {
	messages chan string
}

func newChanNotifier() *chanNotifier {
	return &chanNotifier{messages: make(chan string, 16)}
}

func (n *chanNotifier) Notify(ctx context.Context, text string) error {
	n.messages <- text
	return nil
}

func (n *chanNotifier) waitMessage(t *testing.T) string {
	t.Helper()
	select {
	case msg := <-n.messages:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("expected an alert message")
		return ""
	}
}

func (n *chanNotifier) assertSilent(t *testing.T) {
	t.Helper()
	select {
	case msg := <-n.messages:
		t.Fatalf("unexpected alert: %s", msg)
	case <-time.After(150 * time.Millisecond):
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Monitor: config.MonitorConfig{
			Interval:         time.Minute,
			MinSleep:         time.Second,
			HistoryRetention: 60,
		},
		Signals: config.SignalsConfig{
			OIThresholdPct:    5,
			PriceThresholdPct: 2,
			MinMinuteVolume:   50000,
		},
		Alerting: config.AlertingConfig{
			Cooldown:      5 * time.Minute,
			NotifyTimeout: time.Second,
		},
	}
}

func newTestService(cfg *config.Config, provider market.Provider, notifier alerting.Notifier) (*Service, *history.History) {
	hist := history.New(cfg.Monitor.HistoryRetention)
	evaluator := signal.NewEvaluator(signal.Thresholds{
		OISurgePct:      decimal.NewFromFloat(cfg.Signals.OIThresholdPct),
		PriceMovePct:    decimal.NewFromFloat(cfg.Signals.PriceThresholdPct),
		MinMinuteVolume: decimal.NewFromFloat(cfg.Signals.MinMinuteVolume),
	})
	gate := alerting.NewCooldownGate(cfg.Alerting.Cooldown)
	svc := New(cfg, nil, provider, hist, evaluator, gate, notifier, zerolog.Nop())
	return svc, hist
}

func TestEndToEndOpenInterestSurge(t *testing.T) {
	provider := &fakeProvider{
		symbols: []string{"BTCUSDT", "ETHUSDT"},
		tickers: map[string]market.Ticker{
			"BTCUSDT": {LastPrice: decimal.NewFromInt(100)},
			"ETHUSDT": {LastPrice: decimal.NewFromInt(100)},
		},
		ois: map[string]decimal.Decimal{
			"BTCUSDT": decimal.NewFromInt(1000),
			"ETHUSDT": decimal.NewFromInt(1000),
		},
	}
	notifier := newChanNotifier()
	svc, _ := newTestService(testConfig(), provider, notifier)

	ctx := context.Background()
	require.NoError(t, svc.LoadUniverse(ctx))

	// cycle 1 only seeds history
	require.NoError(t, svc.RunCycle(ctx))
	notifier.assertSilent(t)

	// cycle 2: BTC open interest grows 6%
	provider.ois["BTCUSDT"] = decimal.NewFromInt(1060)
	require.NoError(t, svc.RunCycle(ctx))

	msg := notifier.waitMessage(t)
	assert.Contains(t, msg, "position surge BTCUSDT")
	assert.Contains(t, msg, "6.00%")
	notifier.assertSilent(t)
}

func TestFetchFailureDoesNotAbortCycleOrCorruptHistory(t *testing.T) {
	provider := &fakeProvider{
		symbols: []string{"AUSDT", "BUSDT", "CUSDT"},
		tickers: map[string]market.Ticker{
			"AUSDT": {LastPrice: decimal.NewFromInt(10)},
			"BUSDT": {LastPrice: decimal.NewFromInt(20)},
			"CUSDT": {LastPrice: decimal.NewFromInt(30)},
		},
		tickerErrs: map[string]error{},
	}
	notifier := newChanNotifier()
	svc, hist := newTestService(testConfig(), provider, notifier)

	ctx := context.Background()
	require.NoError(t, svc.LoadUniverse(ctx))
	require.NoError(t, svc.RunCycle(ctx))

	// second cycle: B starts failing
	provider.tickerErrs["BUSDT"] = errors.New("http 502")
	require.NoError(t, svc.RunCycle(ctx))

	assert.Equal(t, 2, hist.Len("AUSDT"))
	assert.Equal(t, 2, hist.Len("CUSDT"))

	// B keeps its cycle-1 reading untouched
	require.Equal(t, 1, hist.Len("BUSDT"))
	latest, ok := hist.Latest("BUSDT")
	require.True(t, ok)
	assert.Equal(t, "20", latest.Price.String())
}

func TestCooldownSuppressesRepeatAlerts(t *testing.T) {
	provider := &fakeProvider{
		symbols: []string{"BTCUSDT"},
		tickers: map[string]market.Ticker{"BTCUSDT": {LastPrice: decimal.NewFromInt(100)}},
		ois:     map[string]decimal.Decimal{"BTCUSDT": decimal.NewFromInt(1000)},
	}
	notifier := newChanNotifier()
	svc, _ := newTestService(testConfig(), provider, notifier)

	ctx := context.Background()
	require.NoError(t, svc.LoadUniverse(ctx))
	require.NoError(t, svc.RunCycle(ctx))

	// condition holds for two consecutive cycles
	provider.ois["BTCUSDT"] = decimal.NewFromInt(1100)
	require.NoError(t, svc.RunCycle(ctx))
	notifier.waitMessage(t)

	provider.ois["BTCUSDT"] = decimal.NewFromInt(1210)
	require.NoError(t, svc.RunCycle(ctx))
	notifier.assertSilent(t)
}

func TestZeroCooldownAlertsEveryTick(t *testing.T) {
	cfg := testConfig()
	cfg.Alerting.Cooldown = 0

	provider := &fakeProvider{
		symbols: []string{"BTCUSDT"},
		tickers: map[string]market.Ticker{"BTCUSDT": {LastPrice: decimal.NewFromInt(100)}},
		ois:     map[string]decimal.Decimal{"BTCUSDT": decimal.NewFromInt(1000)},
	}
	notifier := newChanNotifier()
	svc, _ := newTestService(cfg, provider, notifier)

	ctx := context.Background()
	require.NoError(t, svc.LoadUniverse(ctx))
	require.NoError(t, svc.RunCycle(ctx))

	provider.ois["BTCUSDT"] = decimal.NewFromInt(1100)
	require.NoError(t, svc.RunCycle(ctx))
	notifier.waitMessage(t)

	provider.ois["BTCUSDT"] = decimal.NewFromInt(1210)
	require.NoError(t, svc.RunCycle(ctx))
	notifier.waitMessage(t)
}

func TestScoringSuffixAppended(t *testing.T) {
	cfg := testConfig()
	cfg.Signals.Scoring.Enabled = true

	provider := &fakeProvider{
		symbols: []string{"BTCUSDT"},
		tickers: map[string]market.Ticker{"BTCUSDT": {LastPrice: decimal.NewFromInt(100)}},
		ois:     map[string]decimal.Decimal{"BTCUSDT": decimal.NewFromInt(1000)},
	}
	notifier := newChanNotifier()
	svc, _ := newTestService(cfg, provider, notifier)

	ctx := context.Background()
	require.NoError(t, svc.LoadUniverse(ctx))
	require.NoError(t, svc.RunCycle(ctx))

	provider.ois["BTCUSDT"] = decimal.NewFromInt(1100)
	require.NoError(t, svc.RunCycle(ctx))

	msg := notifier.waitMessage(t)
	assert.Contains(t, msg, "strength")
	assert.Contains(t, msg, "RSI unavailable")
}

func TestEmptyUniverseIsFatal(t *testing.T) {
	provider := &fakeProvider{symbols: nil}
	svc, _ := newTestService(testConfig(), provider, newChanNotifier())

	err := svc.LoadUniverse(context.Background())
	assert.EqualError(t, err, "symbol universe is empty")
}

func TestUniverseLoadErrorIsFatal(t *testing.T) {
	provider := &fakeProvider{symbolsErr: errors.New("exchange info down")}
	svc, _ := newTestService(testConfig(), provider, newChanNotifier())

	err := svc.LoadUniverse(context.Background())
	assert.ErrorContains(t, err, "exchange info down")
}

func TestSymbolsLimitTruncatesUniverse(t *testing.T) {
	cfg := testConfig()
	cfg.Monitor.SymbolsLimit = 2

	provider := &fakeProvider{
		symbols: []string{"AUSDT", "BUSDT", "CUSDT"},
		tickers: map[string]market.Ticker{
			"AUSDT": {LastPrice: decimal.NewFromInt(1)},
			"BUSDT": {LastPrice: decimal.NewFromInt(1)},
			"CUSDT": {LastPrice: decimal.NewFromInt(1)},
		},
	}
	svc, hist := newTestService(cfg, provider, newChanNotifier())

	ctx := context.Background()
	require.NoError(t, svc.LoadUniverse(ctx))
	require.NoError(t, svc.RunCycle(ctx))

	assert.Equal(t, 1, hist.Len("AUSDT"))
	assert.Equal(t, 1, hist.Len("BUSDT"))
	assert.Equal(t, 0, hist.Len("CUSDT"))
}

func TestCancellationSkipsRemainingSymbols(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	provider := &fakeProvider{
		symbols: []string{"AUSDT", "BUSDT", "CUSDT"},
		tickers: map[string]market.Ticker{
			"AUSDT": {LastPrice: decimal.NewFromInt(1)},
			"BUSDT": {LastPrice: decimal.NewFromInt(1)},
			"CUSDT": {LastPrice: decimal.NewFromInt(1)},
		},
	}
	provider.onTicker = cancel

	svc, _ := newTestService(testConfig(), provider, newChanNotifier())
	require.NoError(t, svc.LoadUniverse(ctx))

	err := svc.RunCycle(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, provider.calls)
}

func TestMissingNotifierDoesNotPanic(t *testing.T) {
	provider := &fakeProvider{
		symbols: []string{"BTCUSDT"},
		tickers: map[string]market.Ticker{"BTCUSDT": {LastPrice: decimal.NewFromInt(100)}},
		ois:     map[string]decimal.Decimal{"BTCUSDT": decimal.NewFromInt(1000)},
	}
	svc, _ := newTestService(testConfig(), provider, nil)

	ctx := context.Background()
	require.NoError(t, svc.LoadUniverse(ctx))
	require.NoError(t, svc.RunCycle(ctx))

	provider.ois["BTCUSDT"] = decimal.NewFromInt(1100)
	require.NoError(t, svc.RunCycle(ctx))
}
