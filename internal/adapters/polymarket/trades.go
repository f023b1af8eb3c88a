package polymarket

import (
	"context"
	"fmt"

	"github.com/danielrs/polycopy/internal/domain"
)

const (
	tradesPerPage  = 500
	tradesMaxPages = 4

	positionsPerPage = 500
)

// AccountData implementa ports.TradeProvider y ports.PositionProvider
// sobre la Data API pública, para la wallet de la propia cuenta.
type AccountData struct {
	client *Client
	wallet string
}

// NewAccountData crea el proveedor de datos de cuenta para la wallet dada.
func NewAccountData(client *Client, wallet string) *AccountData {
	return &AccountData{client: client, wallet: wallet}
}

// FetchFills devuelve el historial de fills de la cuenta, paginado y en
// orden cronológico ascendente. El ledger se reconstruye entero a partir
// de esta lista, así que no se filtra nada aquí.
func (d *AccountData) FetchFills(ctx context.Context) ([]domain.Fill, error) {
	var all []domain.Fill

	for page := 0; page < tradesMaxPages; page++ {
		offset := page * tradesPerPage
		url := fmt.Sprintf("%s/trades?user=%s&limit=%d&offset=%d",
			d.client.dataBase, d.wallet, tradesPerPage, offset)

		var resp []rawDataTrade
		if err := d.client.get(ctx, d.client.dataLimiter, url, &resp); err != nil {
			return nil, &domain.TransportError{Op: "polymarket.FetchFills", Err: err}
		}
		if len(resp) == 0 {
			break
		}

		for _, rt := range resp {
			fill := dataTradeToFill(rt)
			if fill.TokenID == "" {
				continue
			}
			all = append(all, fill)
		}
		if len(resp) < tradesPerPage {
			break
		}
	}

	// La API devuelve más-reciente-primero; el ledger no depende del orden,
	// pero los reportes sí leen mejor en orden cronológico.
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	return all, nil
}

// FetchAccountPositions devuelve las posiciones abiertas de la cuenta según
// la Data API, con métricas ya calculadas por el venue (realized PnL,
// redeemable, etc.).
func (d *AccountData) FetchAccountPositions(ctx context.Context) ([]domain.AccountPosition, error) {
	url := fmt.Sprintf("%s/positions?user=%s&limit=%d",
		d.client.dataBase, d.wallet, positionsPerPage)

	var resp []rawAccountPosition
	if err := d.client.get(ctx, d.client.dataLimiter, url, &resp); err != nil {
		return nil, &domain.TransportError{Op: "polymarket.FetchAccountPositions", Err: err}
	}

	positions := make([]domain.AccountPosition, 0, len(resp))
	for _, p := range resp {
		positions = append(positions, accountPositionToDomain(p))
	}
	return positions, nil
}
