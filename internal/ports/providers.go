package ports

import (
	"context"

	"github.com/danielrs/polycopy/internal/domain"
)

// TradeProvider obtiene los fills crudos que alimentan el ledger.
type TradeProvider interface {
	// FetchFills devuelve el historial completo de fills de la cuenta.
	// El ledger se reconstruye de cero con cada llamada.
	FetchFills(ctx context.Context) ([]domain.Fill, error)
}

// ActivityProvider observa los trades de la cuenta copiada.
type ActivityProvider interface {
	// FetchObservations devuelve los trades más recientes de la wallet
	// observada, ya enriquecidos con la estimación de portfolio de la
	// contraparte. La deduplicación es responsabilidad del ExecutionTracker.
	FetchObservations(ctx context.Context) ([]domain.ObservedTrade, error)
}

// QuoteProvider obtiene la cotización actual de un token.
type QuoteProvider interface {
	// FetchMidpoint devuelve el midpoint bid/ask del token.
	// Devuelve domain.ErrQuoteUnavailable si no hay libro.
	FetchMidpoint(ctx context.Context, tokenID string) (float64, error)
}

// BalanceProvider obtiene el balance USDC disponible de la cuenta.
type BalanceProvider interface {
	FetchBalance(ctx context.Context) (float64, error)
}

// PositionProvider obtiene las posiciones de cuenta de la Data API,
// usadas para métricas (realized PnL, win rate) y para el redeem.
type PositionProvider interface {
	FetchAccountPositions(ctx context.Context) ([]domain.AccountPosition, error)
}
