package ports

import (
	"context"

	"github.com/danielrs/polycopy/internal/domain"
)

// OrderExecutor submits real orders to the Polymarket CLOB.
//
// This is the single, statically-defined submission contract the copy
// engine depends on; any venue-side quirks live behind the adapter.
type OrderExecutor interface {
	// SubmitOrder signs and posts an order. A venue rejection comes back
	// as *domain.OrderRejectedError; network failures as *domain.TransportError.
	SubmitOrder(ctx context.Context, order domain.CopyOrder) (domain.OrderResult, error)
}

// Redeemer builds and sends the one-shot redeemPositions transaction for a
// resolved market. Outside the ledger/sizing core.
type Redeemer interface {
	RedeemPosition(ctx context.Context, conditionID string, outcomeIndex int) (txHash string, err error)
}
