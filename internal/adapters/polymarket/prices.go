package polymarket

import (
	"context"
	"fmt"

	"github.com/danielrs/polycopy/internal/domain"
)

// FetchMidpoint devuelve el midpoint bid/ask del token desde el CLOB.
// Un midpoint ausente o cero significa que no hay libro para el token
// (mercado resuelto o sin liquidez) y se señala con ErrQuoteUnavailable.
func (c *Client) FetchMidpoint(ctx context.Context, tokenID string) (float64, error) {
	url := fmt.Sprintf("%s/midpoint?token_id=%s", c.clobBase, tokenID)

	var resp midpointResponse
	if err := c.get(ctx, c.pricesLimiter, url, &resp); err != nil {
		return 0, &domain.TransportError{Op: "polymarket.FetchMidpoint", Err: err}
	}

	mid := numberToFloat(resp.Mid)
	if mid <= 0 {
		return 0, fmt.Errorf("polymarket.FetchMidpoint: token %s: %w", tokenID, domain.ErrQuoteUnavailable)
	}
	return mid, nil
}
