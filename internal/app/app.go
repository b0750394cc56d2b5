package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"oi-volume-alerts/internal/alerting"
	"oi-volume-alerts/internal/config"
	"oi-volume-alerts/internal/history"
	"oi-volume-alerts/internal/market"
	"oi-volume-alerts/internal/scheduler"
	"oi-volume-alerts/internal/service"
	sig "oi-volume-alerts/internal/signal"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newProvider() (market.Provider, error) {
	venues := make([]market.Provider, 0, len(a.Config.Market.Venues))
	for _, name := range a.Config.Market.Venues {
		switch name {
		case "binance":
			venues = append(venues, market.NewBinance(futures.NewClient("", ""), a.Logger))
		case "bybit":
			venues = append(venues, market.NewBybit(market.BybitOptions{
				BaseURL: a.Config.Market.BybitBaseURL,
				Timeout: a.Config.Market.RequestTimeout,
			}, a.Logger))
		case "okx":
			venues = append(venues, market.NewOKX(market.OKXOptions{
				BaseURL: a.Config.Market.OKXBaseURL,
				Timeout: a.Config.Market.RequestTimeout,
			}, a.Logger))
		default:
			return nil, fmt.Errorf("unknown market venue %q", name)
		}
	}
	return market.NewRanked(a.Logger, venues...), nil
}

func (a *App) newNotifier() alerting.Notifier {
	var sinks []alerting.Notifier

	if url := a.Config.Alerting.WeCom.WebhookURL; url != "" {
		sinks = append(sinks, alerting.NewWeComNotifier(url, a.Config.Alerting.NotifyTimeout, a.Logger))
	} else {
		a.Logger.Warn().Msg("alerting.wecom.webhook_url not configured; WeCom delivery disabled")
	}

	if tg := a.Config.Alerting.Telegram; tg.Enabled {
		sinks = append(sinks, alerting.NewTelegramNotifier(tg.BotToken, tg.ChatID, tg.APIBase, a.Config.Alerting.NotifyTimeout, a.Logger))
	}

	switch len(sinks) {
	case 0:
		a.Logger.Warn().Msg("no notification channel configured; alerts will only be logged")
		return nil
	case 1:
		return sinks[0]
	default:
		return alerting.NewMultiNotifier(a.Logger, sinks...)
	}
}

func (a *App) newService(sched *scheduler.Scheduler) (*service.Service, error) {
	provider, err := a.newProvider()
	if err != nil {
		return nil, err
	}

	svc := service.New(
		a.Config,
		sched,
		provider,
		history.New(a.Config.Monitor.HistoryRetention),
		sig.NewEvaluator(a.thresholds()),
		alerting.NewCooldownGate(a.Config.Alerting.Cooldown),
		a.newNotifier(),
		a.Logger,
	)
	return svc, nil
}

func (a *App) thresholds() sig.Thresholds {
	return sig.Thresholds{
		OISurgePct:      decimal.NewFromFloat(a.Config.Signals.OIThresholdPct),
		PriceMovePct:    decimal.NewFromFloat(a.Config.Signals.PriceThresholdPct),
		MinMinuteVolume: decimal.NewFromFloat(a.Config.Signals.MinMinuteVolume),
	}
}

// Run executes the long-running monitoring service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Monitor.Interval,
		MinSleep:     a.Config.Monitor.MinSleep,
		StartupDelay: a.Config.Monitor.StartupDelay,
	}, a.Logger)

	svc, err := a.newService(sched)
	if err != nil {
		return err
	}

	a.Logger.Info().
		Float64("oi_threshold_pct", a.Config.Signals.OIThresholdPct).
		Float64("price_threshold_pct", a.Config.Signals.PriceThresholdPct).
		Float64("min_minute_volume", a.Config.Signals.MinMinuteVolume).
		Dur("interval", a.Config.Monitor.Interval).
		Msg("starting monitoring service")

	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("monitoring service stopped")
	return nil
}

// Scan executes a single monitoring cycle and exits. Useful for cron-style
// invocation where the process does not stay resident.
func (a *App) Scan(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc, err := a.newService(scheduler.New(scheduler.Options{Interval: a.Config.Monitor.Interval}, a.Logger))
	if err != nil {
		return err
	}
	if err := svc.LoadUniverse(ctx); err != nil {
		return fmt.Errorf("load symbol universe: %w", err)
	}

	return svc.RunCycle(ctx)
}
