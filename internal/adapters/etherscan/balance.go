// Package etherscan implementa ports.BalanceProvider contra la API v2 de
// Etherscan. Es el fallback cuando el CLOB no reporta balance (por ejemplo
// antes de derivar credenciales, o en modo dry-run sin private key).
package etherscan

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/danielrs/polycopy/internal/domain"
)

const (
	defaultBaseURL = "https://api.etherscan.io/v2/api"

	polygonChainID = "137"
	// USDC.e en Polygon, 6 decimales.
	usdcContract = "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"
)

type balanceResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  string `json:"result"`
}

// Client consulta balances de tokens ERC-20 vía Etherscan v2.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	wallet  string
}

// NewClient crea el cliente para la wallet dada. baseURL vacío usa producción.
func NewClient(baseURL, apiKey, wallet string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		http:    &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
		apiKey:  apiKey,
		wallet:  wallet,
	}
}

// FetchBalance devuelve el balance USDC de la wallet.
func (c *Client) FetchBalance(ctx context.Context) (float64, error) {
	params := url.Values{}
	params.Set("chainid", polygonChainID)
	params.Set("module", "account")
	params.Set("action", "tokenbalance")
	params.Set("contractaddress", usdcContract)
	params.Set("address", c.wallet)
	params.Set("tag", "latest")
	params.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return 0, &domain.TransportError{Op: "etherscan.FetchBalance", Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, &domain.TransportError{Op: "etherscan.FetchBalance", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, &domain.TransportError{Op: "etherscan.FetchBalance", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return 0, &domain.TransportError{
			Op:  "etherscan.FetchBalance",
			Err: fmt.Errorf("status %d: %s", resp.StatusCode, body),
		}
	}

	var br balanceResponse
	if err := json.Unmarshal(body, &br); err != nil {
		return 0, &domain.TransportError{Op: "etherscan.FetchBalance", Err: err}
	}
	if br.Status != "1" {
		return 0, &domain.TransportError{
			Op:  "etherscan.FetchBalance",
			Err: fmt.Errorf("api error: %s (%s)", br.Message, br.Result),
		}
	}

	micro, err := strconv.ParseInt(br.Result, 10, 64)
	if err != nil {
		return 0, &domain.TransportError{
			Op:  "etherscan.FetchBalance",
			Err: fmt.Errorf("parse result %q: %w", br.Result, err),
		}
	}
	return float64(micro) / 1e6, nil
}
