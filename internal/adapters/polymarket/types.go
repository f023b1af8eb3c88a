package polymarket

// DTOs raw de las APIs de Polymarket. Solo se usan dentro de este paquete.
// La conversión a domain entities se hace aquí mismo, junto a cada DTO.

import (
	"encoding/json"
	"math/big"
	"time"

	"github.com/danielrs/polycopy/internal/domain"
)

// --- Data API ---

// rawActivity es una entrada de GET /activity en la Data API.
type rawActivity struct {
	ProxyWallet     string      `json:"proxyWallet"`
	Timestamp       json.Number `json:"timestamp"`
	ConditionID     string      `json:"conditionId"`
	Type            string      `json:"type"`
	Asset           string      `json:"asset"`
	Side            string      `json:"side"`
	Size            json.Number `json:"size"`
	USDCSize        json.Number `json:"usdcSize"`
	Price           json.Number `json:"price"`
	Title           string      `json:"title"`
	TransactionHash string      `json:"transactionHash"`
}

// rawDataTrade es una entrada de GET /trades en la Data API.
type rawDataTrade struct {
	ProxyWallet     string      `json:"proxyWallet"`
	ConditionID     string      `json:"conditionId"`
	Asset           string      `json:"asset"`
	Side            string      `json:"side"`
	Size            json.Number `json:"size"`
	Price           json.Number `json:"price"`
	Title           string      `json:"title"`
	Timestamp       json.Number `json:"timestamp"`
	TransactionHash string      `json:"transactionHash"`
}

// rawAccountPosition es una entrada de GET /positions en la Data API.
type rawAccountPosition struct {
	Asset        string      `json:"asset"`
	ConditionID  string      `json:"conditionId"`
	Size         json.Number `json:"size"`
	AvgPrice     json.Number `json:"avgPrice"`
	CurPrice     json.Number `json:"curPrice"`
	InitialValue json.Number `json:"initialValue"`
	CurrentValue json.Number `json:"currentValue"`
	CashPnL      json.Number `json:"cashPnl"`
	RealizedPnL  json.Number `json:"realizedPnl"`
	PercentPnL   json.Number `json:"percentPnl"`
	Redeemable   bool        `json:"redeemable"`
	OutcomeIndex int         `json:"outcomeIndex"`
	Title        string      `json:"title"`
}

// --- CLOB API ---

// midpointResponse es la respuesta de GET /midpoint.
type midpointResponse struct {
	Mid json.Number `json:"mid"`
}

// --- Mapping ---

func activityToObservation(a rawActivity) domain.ObservedTrade {
	return domain.ObservedTrade{
		TxHash:      a.TransactionHash,
		ProxyWallet: a.ProxyWallet,
		ConditionID: a.ConditionID,
		TokenID:     a.Asset,
		Side:        domain.ParseSide(a.Side),
		Price:       numberToFloat(a.Price),
		Size:        numberToFloat(a.Size),
		USDSize:     numberToFloat(a.USDCSize),
		Title:       a.Title,
		Timestamp:   numberToTime(a.Timestamp),
	}
}

func dataTradeToFill(t rawDataTrade) domain.Fill {
	return domain.Fill{
		SourceID:    t.TransactionHash,
		ConditionID: t.ConditionID,
		TokenID:     t.Asset,
		Side:        domain.ParseSide(t.Side),
		Size:        numberToFloat(t.Size),
		Price:       numberToFloat(t.Price),
		Title:       t.Title,
		Timestamp:   numberToTime(t.Timestamp),
	}
}

func accountPositionToDomain(p rawAccountPosition) domain.AccountPosition {
	return domain.AccountPosition{
		ConditionID:  p.ConditionID,
		TokenID:      p.Asset,
		Title:        p.Title,
		Size:         numberToFloat(p.Size),
		AvgPrice:     numberToFloat(p.AvgPrice),
		CurPrice:     numberToFloat(p.CurPrice),
		InitialValue: numberToFloat(p.InitialValue),
		CurrentValue: numberToFloat(p.CurrentValue),
		CashPnL:      numberToFloat(p.CashPnL),
		RealizedPnL:  numberToFloat(p.RealizedPnL),
		PercentPnL:   numberToFloat(p.PercentPnL),
		Redeemable:   p.Redeemable,
		OutcomeIndex: p.OutcomeIndex,
	}
}

// numberToFloat convierte un json.Number tolerando vacíos y basura.
func numberToFloat(n json.Number) float64 {
	if n == "" {
		return 0
	}
	f, err := n.Float64()
	if err != nil {
		return 0
	}
	return f
}

// numberToTime convierte un timestamp Unix en segundos o milisegundos.
func numberToTime(n json.Number) time.Time {
	if n == "" {
		return time.Time{}
	}
	ts, err := n.Int64()
	if err != nil || ts <= 0 {
		return time.Time{}
	}
	if ts > 1e12 {
		return time.UnixMilli(ts).UTC()
	}
	return time.Unix(ts, 0).UTC()
}

// parseUSDC converts a micro-USDC string (e.g., "1000000") to USDC float.
func parseUSDC(s string) float64 {
	if s == "" {
		return 0
	}
	n := new(big.Int)
	n.SetString(s, 10)
	f, _ := new(big.Float).SetInt(n).Float64()
	return f / 1_000_000
}
