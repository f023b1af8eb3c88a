package copier

// engine.go — Copy trading engine.
//
// Each tick: fetch the target wallet's recent trades, claim each unseen one
// in the durable tracker, size our copy proportionally and submit it. The
// tracker claim is flushed to disk BEFORE any order leaves the process, so
// a crash can at worst lose an order, never duplicate one. Nothing is ever
// retried: a failed attempt stays failed.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/danielrs/polycopy/internal/domain"
	"github.com/danielrs/polycopy/internal/ports"
)

// Config holds configuration for the copy engine.
type Config struct {
	PollInterval time.Duration
	Sizing       domain.SizingConfig
	DryRun       bool
}

// TickResult contains everything produced by one copy cycle.
type TickResult struct {
	Observed  int
	Skipped   int // already attempted, or lost the claim
	Submitted int
	Succeeded int
	Failed    int
	Balance   float64
}

// Engine copies trades from the observed wallet onto our account.
type Engine struct {
	activity ports.ActivityProvider
	balances ports.BalanceProvider
	executor ports.OrderExecutor
	tracker  ports.ExecutionTracker
	copyLog  ports.CopyLog
	cfg      Config
}

// New creates a copy engine.
func New(
	activity ports.ActivityProvider,
	balances ports.BalanceProvider,
	executor ports.OrderExecutor,
	tracker ports.ExecutionTracker,
	copyLog ports.CopyLog,
	cfg Config,
) *Engine {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}
	if cfg.Sizing == (domain.SizingConfig{}) {
		cfg.Sizing = domain.DefaultSizingConfig()
	}
	return &Engine{
		activity: activity,
		balances: balances,
		executor: executor,
		tracker:  tracker,
		copyLog:  copyLog,
		cfg:      cfg,
	}
}

// Run polls until the context is cancelled. Transport failures skip the
// cycle; durability failures abort it. Neither stops the loop.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("copier starting",
		"interval", e.cfg.PollInterval,
		"dry_run", e.cfg.DryRun,
		"max_fraction", e.cfg.Sizing.MaxFraction,
	)

	if _, err := e.RunOnce(ctx); err != nil {
		slog.Error("copy cycle failed", "err", err)
	}

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("copier stopped")
			return nil
		case <-ticker.C:
			if _, err := e.RunOnce(ctx); err != nil {
				slog.Error("copy cycle failed", "err", err)
			}
		}
	}
}

// RunOnce executes one copy cycle.
func (e *Engine) RunOnce(ctx context.Context) (*TickResult, error) {
	result := &TickResult{}

	observations, err := e.activity.FetchObservations(ctx)
	if err != nil {
		return nil, fmt.Errorf("copier.RunOnce: fetch activity: %w", err)
	}
	result.Observed = len(observations)
	if len(observations) == 0 {
		return result, nil
	}

	// Un solo fetch de balance por ciclo, antes de reclamar nada: si falla
	// no se ha marcado ningún trade y el tick se reintenta limpio.
	balance, err := e.balances.FetchBalance(ctx)
	if err != nil {
		return nil, fmt.Errorf("copier.RunOnce: fetch balance: %w", err)
	}
	result.Balance = balance

	// La API devuelve más-reciente-primero; copiamos en orden cronológico.
	for i := len(observations) - 1; i >= 0; i-- {
		obs := observations[i]

		seen, err := e.tracker.AlreadyAttempted(ctx, obs.TxHash)
		if err != nil {
			return result, fmt.Errorf("copier.RunOnce: check attempted: %w", err)
		}
		if seen {
			result.Skipped++
			continue
		}

		// Claim durable ANTES de enviar nada. Si el claim no llega a disco,
		// abortamos el tick entero: mejor perder órdenes que duplicarlas.
		claimed, err := e.tracker.MarkAttempted(ctx, obs.TxHash)
		if err != nil {
			return result, fmt.Errorf("copier.RunOnce: mark attempted: %w", err)
		}
		if !claimed {
			result.Skipped++
			continue
		}

		outcome := e.copyOne(ctx, obs, balance, result)
		if outcome == domain.OutcomeSuccess {
			result.Succeeded++
		} else {
			result.Failed++
		}
	}

	slog.Info("copy cycle done",
		"observed", result.Observed,
		"skipped", result.Skipped,
		"submitted", result.Submitted,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
	)
	return result, nil
}

// copyOne sizes, submits and records a single claimed observation. The
// source id is already claimed: whatever happens here is terminal for it.
func (e *Engine) copyOne(ctx context.Context, obs domain.ObservedTrade, balance float64, result *TickResult) domain.Outcome {
	decision := domain.SizeCopyOrder(obs, balance, e.cfg.Sizing)

	order := domain.CopyOrder{
		ID:          uuid.NewString(),
		SourceID:    obs.TxHash,
		ConditionID: obs.ConditionID,
		TokenID:     obs.TokenID,
		Side:        obs.Side,
		Price:       obs.Price,
		TokenSize:   decision.TokenSize,
		USDSize:     decision.USDSize,
		Title:       obs.Title,
		PlacedAt:    time.Now().UTC(),
	}

	slog.Info("copying trade",
		"source", obs.TxHash,
		"market", obs.Title,
		"side", string(obs.Side),
		"price", obs.Price,
		"tokens", fmt.Sprintf("%.2f", decision.TokenSize),
		"usd", fmt.Sprintf("$%.2f", decision.USDSize),
		"fraction", fmt.Sprintf("%.4f", decision.PortfolioFraction),
		"capped", decision.Capped,
		"floor_bumped", decision.FloorBumped,
	)

	if e.cfg.DryRun {
		e.recordOutcome(ctx, order, domain.OutcomeSuccess, "dry-run: not submitted")
		return domain.OutcomeSuccess
	}

	result.Submitted++
	res, err := e.executor.SubmitOrder(ctx, order)
	if err != nil {
		// Sin reintentos: rechazo del venue o fallo de red, da igual.
		// El source id queda quemado.
		slog.Warn("copy order failed", "source", obs.TxHash, "err", err)
		e.recordOutcome(ctx, order, domain.OutcomeFailure, err.Error())
		return domain.OutcomeFailure
	}

	e.recordOutcome(ctx, order, domain.OutcomeSuccess, res.OrderID)

	fill := domain.Fill{
		SourceID:    obs.TxHash,
		ConditionID: order.ConditionID,
		TokenID:     order.TokenID,
		Side:        order.Side,
		Size:        order.TokenSize,
		Price:       order.Price,
		Title:       order.Title,
		Timestamp:   order.PlacedAt,
	}
	if err := e.copyLog.SaveCopiedFill(ctx, fill); err != nil {
		slog.Warn("save copied fill failed", "source", obs.TxHash, "err", err)
	}
	return domain.OutcomeSuccess
}

// recordOutcome is reporting only: a failure here never re-opens the claim.
func (e *Engine) recordOutcome(ctx context.Context, order domain.CopyOrder, outcome domain.Outcome, detail string) {
	rec := domain.ExecutionRecord{
		SourceID:    order.SourceID,
		AttemptedAt: order.PlacedAt,
		Outcome:     outcome,
		Order:       order,
		Result:      detail,
	}
	if err := e.tracker.RecordOutcome(ctx, rec); err != nil {
		slog.Warn("record outcome failed", "source", order.SourceID, "err", err)
	}
}
