package copier

// closer.go — Manual position unwinding.
//
// Closes open positions with aggressive limit orders on the opposite side:
// a long is dumped with a SELL at 0.01, a short covered with a BUY at 0.99.
// The prices are deliberately terrible limits that cross the whole book, so
// the order fills immediately at the best available price.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/danielrs/polycopy/internal/domain"
	"github.com/danielrs/polycopy/internal/ledger"
	"github.com/danielrs/polycopy/internal/ports"
)

const (
	closeSellPrice = 0.01
	closeBuyPrice  = 0.99
)

// Closer unwinds the positions held by the account.
type Closer struct {
	fills    ports.TradeProvider
	executor ports.OrderExecutor
	copyLog  ports.CopyLog
}

// NewCloser creates a closer over the account's fill history.
func NewCloser(fills ports.TradeProvider, executor ports.OrderExecutor, copyLog ports.CopyLog) *Closer {
	return &Closer{fills: fills, executor: executor, copyLog: copyLog}
}

// CloseAll unwinds every open position. Returns how many close orders were
// accepted; individual rejections are logged and skipped, not fatal.
func (c *Closer) CloseAll(ctx context.Context) (int, error) {
	fills, err := c.fills.FetchFills(ctx)
	if err != nil {
		return 0, fmt.Errorf("copier.CloseAll: fetch fills: %w", err)
	}

	positions := ledger.Aggregate(fills)
	if len(positions) == 0 {
		slog.Info("no open positions to close")
		return 0, nil
	}

	closed := 0
	for _, pos := range ledger.Sorted(positions) {
		if err := c.closePosition(ctx, pos); err != nil {
			slog.Warn("close failed", "market", pos.Title, "err", err)
			continue
		}
		closed++
	}
	return closed, nil
}

// closePosition sends the opposite aggressive order for a single position.
func (c *Closer) closePosition(ctx context.Context, pos domain.Position) error {
	side := domain.SideSell
	price := closeSellPrice
	size := pos.NetSize
	if pos.NetSize < 0 {
		side = domain.SideBuy
		price = closeBuyPrice
		size = -pos.NetSize
	}

	order := domain.CopyOrder{
		ID:          uuid.NewString(),
		ConditionID: pos.ConditionID,
		TokenID:     pos.TokenID,
		Side:        side,
		Price:       price,
		TokenSize:   size,
		USDSize:     size * price,
		Title:       pos.Title,
		PlacedAt:    time.Now().UTC(),
	}
	order.SourceID = "close-" + order.ID

	slog.Info("closing position",
		"market", pos.Title,
		"direction", pos.Direction(),
		"tokens", fmt.Sprintf("%.2f", size),
		"side", string(side),
		"limit", price,
	)

	res, err := c.executor.SubmitOrder(ctx, order)
	if err != nil {
		return err
	}

	fill := domain.Fill{
		SourceID:    order.SourceID,
		ConditionID: order.ConditionID,
		TokenID:     order.TokenID,
		Side:        side,
		Size:        size,
		Price:       price,
		Title:       order.Title,
		Timestamp:   order.PlacedAt,
	}
	if err := c.copyLog.SaveCopiedFill(ctx, fill); err != nil {
		slog.Warn("save closure fill failed", "order", res.OrderID, "err", err)
	}
	return nil
}
