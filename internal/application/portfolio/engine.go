package portfolio

// engine.go — Portfolio tracker.
//
// Cada refresco reconstruye el ledger completo desde los fills, valora cada
// posición al midpoint actual y presenta el snapshot. Si el fetch de fills
// falla se reutiliza el último snapshot bueno marcado como Stale: el
// dashboard degrada a datos viejos etiquetados, nunca a una pantalla vacía.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/danielrs/polycopy/internal/domain"
	"github.com/danielrs/polycopy/internal/ledger"
	"github.com/danielrs/polycopy/internal/ports"
)

// Config holds configuration for the portfolio tracker.
type Config struct {
	RefreshInterval time.Duration
}

// Engine valora el portfolio y lo presenta periódicamente.
type Engine struct {
	fills     ports.TradeProvider
	quotes    ports.QuoteProvider
	account   ports.PositionProvider // opcional: métricas del venue
	notifier  ports.Notifier
	snapshots ports.SnapshotStore
	cfg       Config

	lastSnapshot *domain.PortfolioSnapshot
}

// New crea el tracker. account y snapshots pueden ser nil.
func New(
	fills ports.TradeProvider,
	quotes ports.QuoteProvider,
	account ports.PositionProvider,
	notifier ports.Notifier,
	snapshots ports.SnapshotStore,
	cfg Config,
) *Engine {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = time.Minute
	}
	return &Engine{
		fills:     fills,
		quotes:    quotes,
		account:   account,
		notifier:  notifier,
		snapshots: snapshots,
		cfg:       cfg,
	}
}

// Run refresca hasta que el contexto se cancele.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("portfolio tracker starting", "interval", e.cfg.RefreshInterval)

	if _, err := e.RunOnce(ctx); err != nil {
		slog.Error("portfolio refresh failed", "err", err)
	}

	ticker := time.NewTicker(e.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("portfolio tracker stopped")
			return nil
		case <-ticker.C:
			if _, err := e.RunOnce(ctx); err != nil {
				slog.Error("portfolio refresh failed", "err", err)
			}
		}
	}
}

// RunOnce ejecuta un refresco completo y devuelve el snapshot presentado.
func (e *Engine) RunOnce(ctx context.Context) (domain.PortfolioSnapshot, error) {
	fills, err := e.fills.FetchFills(ctx)
	if err != nil {
		return e.degrade(ctx, err)
	}

	positions := ledger.Aggregate(fills)
	snap := domain.PortfolioSnapshot{TakenAt: time.Now().UTC()}

	for _, pos := range ledger.Sorted(positions) {
		quote, qerr := e.quotes.FetchMidpoint(ctx, pos.TokenID)
		if qerr != nil {
			// Sin cotización (mercado resuelto, sin libro, o fallo de red)
			// la posición se valora al precio medio de entrada.
			if !errors.Is(qerr, domain.ErrQuoteUnavailable) {
				slog.Warn("quote fetch failed, valuing at avg price",
					"market", pos.Title, "err", qerr)
			}
			quote = 0
		}

		pnl := pos.Valuate(quote)
		snap.Positions = append(snap.Positions, domain.PositionReport{Position: pos, PnL: pnl})
		snap.TotalCost += pos.TotalCost
		snap.TotalValue += pnl.Value
		snap.UnrealizedPnL += pnl.PnL
	}

	e.applyAccountMetrics(ctx, &snap)
	snap.TotalPnL = snap.UnrealizedPnL + snap.RealizedPnL

	saved := snap
	e.lastSnapshot = &saved

	if e.snapshots != nil {
		if err := e.snapshots.SavePortfolioSnapshot(ctx, snap); err != nil {
			slog.Warn("save snapshot failed", "err", err)
		}
	}
	if err := e.notifier.Notify(ctx, snap); err != nil {
		slog.Warn("notify failed", "err", err)
	}
	return snap, nil
}

// applyAccountMetrics añade las métricas que solo el venue conoce:
// realized PnL y win rate. Un fallo aquí deja las métricas a cero.
func (e *Engine) applyAccountMetrics(ctx context.Context, snap *domain.PortfolioSnapshot) {
	if e.account == nil {
		return
	}

	accountPositions, err := e.account.FetchAccountPositions(ctx)
	if err != nil {
		slog.Warn("account metrics unavailable", "err", err)
		return
	}
	if len(accountPositions) == 0 {
		return
	}

	wins := 0
	for _, p := range accountPositions {
		snap.RealizedPnL += p.RealizedPnL
		if p.CashPnL > 0 {
			wins++
		}
	}
	snap.WinRate = float64(wins) / float64(len(accountPositions)) * 100
}

// degrade reutiliza el último snapshot bueno tras un fallo de fetch.
func (e *Engine) degrade(ctx context.Context, cause error) (domain.PortfolioSnapshot, error) {
	if e.lastSnapshot == nil {
		return domain.PortfolioSnapshot{}, fmt.Errorf("portfolio.RunOnce: fetch fills: %w", cause)
	}

	slog.Warn("fills unavailable, showing stale snapshot",
		"taken_at", e.lastSnapshot.TakenAt, "err", cause)

	stale := *e.lastSnapshot
	stale.Stale = true
	if err := e.notifier.Notify(ctx, stale); err != nil {
		slog.Warn("notify failed", "err", err)
	}
	return stale, nil
}
