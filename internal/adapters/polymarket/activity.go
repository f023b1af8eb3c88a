package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/danielrs/polycopy/internal/domain"
)

const (
	activityLimit = 100

	// Estimación de portfolio: media del usdcSize de los últimos N trades × multiplier.
	portfolioSampleSize = 20
	portfolioMultiplier = 10.0
	portfolioFallback   = 1000.0
	portfolioCacheTTL   = 5 * time.Minute
)

type portfolioEstimate struct {
	value float64
	at    time.Time
}

// ActivityFeed implementa ports.ActivityProvider sobre la Data API.
// Observa los trades de una wallet objetivo y estima el tamaño de su
// portfolio a partir de su historial reciente.
type ActivityFeed struct {
	client *Client
	wallet string

	mu        sync.Mutex
	estimates map[string]portfolioEstimate
}

// NewActivityFeed crea un feed para la wallet objetivo (proxy wallet address).
func NewActivityFeed(client *Client, wallet string) *ActivityFeed {
	return &ActivityFeed{
		client:    client,
		wallet:    wallet,
		estimates: make(map[string]portfolioEstimate),
	}
}

// FetchObservations devuelve los trades más recientes de la wallet observada,
// enriquecidos con la estimación de portfolio. Orden: más reciente primero,
// tal como los devuelve la API.
func (f *ActivityFeed) FetchObservations(ctx context.Context) ([]domain.ObservedTrade, error) {
	url := fmt.Sprintf("%s/activity?user=%s&type=TRADE&limit=%d",
		f.client.dataBase, f.wallet, activityLimit)

	var resp []rawActivity
	if err := f.client.get(ctx, f.client.dataLimiter, url, &resp); err != nil {
		return nil, &domain.TransportError{Op: "polymarket.FetchObservations", Err: err}
	}

	obs := make([]domain.ObservedTrade, 0, len(resp))
	for _, a := range resp {
		o := activityToObservation(a)
		if o.TxHash == "" || o.TokenID == "" {
			continue
		}
		o.PortfolioValue = f.portfolioValue(ctx, o.ProxyWallet)
		obs = append(obs, o)
	}
	return obs, nil
}

// portfolioValue devuelve la estimación cacheada o la recalcula si expiró.
// Nunca falla: ante cualquier error usa el fallback.
func (f *ActivityFeed) portfolioValue(ctx context.Context, wallet string) float64 {
	if wallet == "" {
		wallet = f.wallet
	}

	f.mu.Lock()
	est, ok := f.estimates[wallet]
	f.mu.Unlock()
	if ok && time.Since(est.at) < portfolioCacheTTL {
		return est.value
	}

	value := f.estimatePortfolio(ctx, wallet)

	f.mu.Lock()
	f.estimates[wallet] = portfolioEstimate{value: value, at: time.Now()}
	f.mu.Unlock()
	return value
}

// estimatePortfolio aproxima el capital del trader observado como la media
// del usdcSize de sus últimos trades multiplicada por un factor fijo. Es una
// heurística burda pero estable: solo se usa para calcular la fracción que
// el trade representa sobre su portfolio.
func (f *ActivityFeed) estimatePortfolio(ctx context.Context, wallet string) float64 {
	url := fmt.Sprintf("%s/activity?user=%s&type=TRADE&limit=%d",
		f.client.dataBase, wallet, portfolioSampleSize)

	var resp []rawActivity
	if err := f.client.get(ctx, f.client.dataLimiter, url, &resp); err != nil {
		slog.Warn("portfolio estimate failed, using fallback",
			"wallet", wallet, "fallback", portfolioFallback, "error", err)
		return portfolioFallback
	}
	if len(resp) == 0 {
		return portfolioFallback
	}

	var sum float64
	for _, a := range resp {
		sum += numberToFloat(a.USDCSize)
	}
	mean := sum / float64(len(resp))
	if mean <= 0 {
		return portfolioFallback
	}
	return mean * portfolioMultiplier
}
