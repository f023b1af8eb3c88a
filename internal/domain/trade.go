package domain

import "time"

// Side es la dirección de un fill o de una orden.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide normaliza el string de la API a un Side conocido.
// Todo lo que no sea SELL se trata como BUY.
func ParseSide(s string) Side {
	switch s {
	case "SELL", "sell", "Sell":
		return SideSell
	default:
		return SideBuy
	}
}

// Fill es una ejecución de trade inmutable: una pata comprada o vendida
// a un precio y tamaño dados.
type Fill struct {
	SourceID    string // transaction hash o trade id que originó el fill
	ConditionID string
	TokenID     string
	Side        Side
	Size        float64 // tokens, nunca negativo
	Price       float64 // USDC por token, nunca negativo
	Title       string
	Timestamp   time.Time
}

// InstrumentKey identifica de forma única el par mercado+outcome token.
func (f Fill) InstrumentKey() string {
	return f.ConditionID + "_" + f.TokenID
}
