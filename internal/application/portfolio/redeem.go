package portfolio

// redeem.go — Redemption of resolved positions.
//
// The Data API flags positions in resolved markets as redeemable; each one
// is converted back to USDC.e with a single on-chain redeemPositions call.

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/danielrs/polycopy/internal/ports"
)

// RedeemService redime las posiciones de mercados ya resueltos.
type RedeemService struct {
	account  ports.PositionProvider
	redeemer ports.Redeemer
}

// NewRedeemService crea el servicio de redención.
func NewRedeemService(account ports.PositionProvider, redeemer ports.Redeemer) *RedeemService {
	return &RedeemService{account: account, redeemer: redeemer}
}

// RedeemAll redime todas las posiciones marcadas como redeemable con saldo.
// Devuelve cuántas se redimieron y el PnL total reportado por el venue para
// ellas; los fallos individuales se loguean y se saltan.
func (s *RedeemService) RedeemAll(ctx context.Context) (int, float64, error) {
	positions, err := s.account.FetchAccountPositions(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("portfolio.RedeemAll: fetch positions: %w", err)
	}

	redeemed := 0
	var totalPnL float64
	for _, pos := range positions {
		if !pos.Redeemable || pos.Size <= 0 {
			continue
		}

		txHash, err := s.redeemer.RedeemPosition(ctx, pos.ConditionID, pos.OutcomeIndex)
		if err != nil {
			slog.Warn("redeem failed", "market", pos.Title, "condition", pos.ConditionID, "err", err)
			continue
		}

		slog.Info("position redeemed",
			"market", pos.Title,
			"tokens", fmt.Sprintf("%.2f", pos.Size),
			"pnl", fmt.Sprintf("%+.2f$", pos.CashPnL),
			"tx", txHash,
		)
		redeemed++
		totalPnL += pos.CashPnL
	}

	if redeemed == 0 {
		slog.Info("no redeemable positions")
	}
	return redeemed, totalPnL, nil
}
