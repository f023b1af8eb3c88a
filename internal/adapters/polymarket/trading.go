package polymarket

// trading.go — Real order execution via Polymarket CLOB API.
//
// Implements ports.OrderExecutor and ports.BalanceProvider using AuthClient
// for L1/L2 auth. Orders are placed as GTC (good-till-cancelled) limits.

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/danielrs/polycopy/internal/domain"
)

// clobOrderRequest is the JSON body sent to POST /order.
type clobOrderRequest struct {
	Order     clobOrderBody `json:"order"`
	Owner     string        `json:"owner"`
	OrderType string        `json:"orderType"`
}

type clobOrderBody struct {
	Salt          json.Number `json:"salt"`
	Maker         string      `json:"maker"`
	Signer        string      `json:"signer"`
	Taker         string      `json:"taker"`
	TokenID       string      `json:"tokenId"`
	MakerAmount   string      `json:"makerAmount"`
	TakerAmount   string      `json:"takerAmount"`
	Expiration    string      `json:"expiration"`
	Nonce         string      `json:"nonce"`
	FeeRateBps    string      `json:"feeRateBps"`
	Side          string      `json:"side"`
	SignatureType int         `json:"signatureType"`
	Signature     string      `json:"signature"`
}

type clobOrderResponse struct {
	ErrorMsg     string `json:"errorMsg"`
	OrderID      string `json:"orderID"`
	TakingAmount string `json:"takingAmount"`
	MakingAmount string `json:"makingAmount"`
	Status       string `json:"status"`
	Success      bool   `json:"success"`
}

type clobBalanceResponse struct {
	Balance string `json:"balance"`
}

type clobNegRiskResponse struct {
	NegRisk bool `json:"neg_risk"`
}

// TradingClient implements ports.OrderExecutor and ports.BalanceProvider.
type TradingClient struct {
	auth *AuthClient
}

// NewTradingClient creates a TradingClient over an authenticated client.
func NewTradingClient(auth *AuthClient) *TradingClient {
	return &TradingClient{auth: auth}
}

// SubmitOrder signs and submits a limit order to the CLOB. A venue rejection
// comes back as *domain.OrderRejectedError; any transport failure as
// *domain.TransportError. Either way the caller must not resubmit.
func (tc *TradingClient) SubmitOrder(ctx context.Context, order domain.CopyOrder) (domain.OrderResult, error) {
	if err := tc.auth.EnsureCreds(ctx); err != nil {
		return domain.OrderResult{}, &domain.TransportError{Op: "polymarket.SubmitOrder", Err: err}
	}

	negRisk, err := tc.isNegRisk(ctx, order.TokenID)
	if err != nil {
		return domain.OrderResult{}, &domain.TransportError{Op: "polymarket.SubmitOrder", Err: err}
	}

	signed, err := tc.auth.buildSignedOrder(order.TokenID, order.Side, order.Price, order.TokenSize, negRisk)
	if err != nil {
		return domain.OrderResult{}, &domain.OrderRejectedError{Reason: err.Error()}
	}

	body := clobOrderRequest{
		Order: clobOrderBody{
			Salt:          json.Number(signed.Order.Salt.String()),
			Maker:         signed.Order.Maker.Hex(),
			Signer:        signed.Order.Signer.Hex(),
			Taker:         signed.Order.Taker.Hex(),
			TokenID:       order.TokenID,
			MakerAmount:   signed.Order.MakerAmount.String(),
			TakerAmount:   signed.Order.TakerAmount.String(),
			Expiration:    signed.Order.Expiration.String(),
			Nonce:         signed.Order.Nonce.String(),
			FeeRateBps:    signed.Order.FeeRateBps.String(),
			Side:          string(order.Side),
			SignatureType: int(signed.Order.SignatureType.Int64()),
			Signature:     "0x" + hex.EncodeToString(signed.Signature),
		},
		Owner:     tc.auth.creds.APIKey,
		OrderType: "GTC",
	}

	var resp clobOrderResponse
	if err := tc.auth.doL2(ctx, http.MethodPost, "/order", body, &resp); err != nil {
		return domain.OrderResult{}, &domain.TransportError{Op: "polymarket.SubmitOrder", Err: err}
	}

	if !resp.Success || resp.ErrorMsg != "" {
		return domain.OrderResult{}, &domain.OrderRejectedError{Reason: resp.ErrorMsg}
	}

	return domain.OrderResult{
		OrderID: resp.OrderID,
		Status:  resp.Status,
	}, nil
}

// FetchBalance returns the USDC collateral balance the CLOB will trade against.
func (tc *TradingClient) FetchBalance(ctx context.Context) (float64, error) {
	if err := tc.auth.EnsureCreds(ctx); err != nil {
		return 0, &domain.TransportError{Op: "polymarket.FetchBalance", Err: err}
	}

	var resp clobBalanceResponse
	path := "/balance-allowance?asset_type=COLLATERAL&signature_type=0"
	if err := tc.auth.doL2(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return 0, &domain.TransportError{Op: "polymarket.FetchBalance", Err: err}
	}
	return parseUSDC(resp.Balance), nil
}

// isNegRisk queries the CLOB to determine if a token uses the NegRisk adapter.
func (tc *TradingClient) isNegRisk(ctx context.Context, tokenID string) (bool, error) {
	url := fmt.Sprintf("%s/neg-risk?token_id=%s", tc.auth.clobBase, tokenID)

	var resp clobNegRiskResponse
	if err := tc.auth.get(ctx, tc.auth.clobLimiter, url, &resp); err != nil {
		return false, fmt.Errorf("neg-risk check: %w", err)
	}
	return resp.NegRisk, nil
}
