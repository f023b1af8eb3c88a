package domain

import "time"

// ObservedTrade es un trade de la cuenta observada, tal como llega de la
// Data API de activity. TxHash es la clave de idempotencia de todo el
// pipeline de copia: una observación se intenta como máximo una vez.
type ObservedTrade struct {
	TxHash         string // transaction hash, único por evento
	ProxyWallet    string // wallet de la cuenta observada
	ConditionID    string
	TokenID        string
	Side           Side
	Price          float64
	Size           float64 // tokens del trade original
	USDSize        float64 // notional USDC del trade original
	Title          string
	PortfolioValue float64 // estimación del portfolio de la contraparte (heurística del adapter)
	Timestamp      time.Time
}
