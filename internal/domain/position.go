package domain

import (
	"math"
	"time"
)

// Epsilon es el umbral por debajo del cual una posición se considera cerrada.
const Epsilon = 0.001

// Position es el agregado mutable por instrumento: tamaño neto firmado
// (positivo = long, negativo = short) y coste firmado con la misma convención.
type Position struct {
	ConditionID string
	TokenID     string
	Title       string
	NetSize     float64 // BUY suma, SELL resta
	TotalCost   float64 // BUY suma size*price, SELL resta size*price
}

// InstrumentKey identifica el par mercado+outcome de esta posición.
func (p Position) InstrumentKey() string {
	return p.ConditionID + "_" + p.TokenID
}

// Closed indica si la posición está cerrada (|NetSize| < Epsilon).
func (p Position) Closed() bool {
	return math.Abs(p.NetSize) < Epsilon
}

// AvgPrice es el precio medio de entrada ponderado por volumen.
// Devuelve 0 para posiciones cerradas.
func (p Position) AvgPrice() float64 {
	if p.NetSize == 0 {
		return 0
	}
	return math.Abs(p.TotalCost / p.NetSize)
}

// Direction devuelve "LONG" o "SHORT" según el signo de NetSize.
func (p Position) Direction() string {
	if p.NetSize < 0 {
		return "SHORT"
	}
	return "LONG"
}

// PnL es el resultado derivado de valorar una posición a un precio dado.
// No se persiste: se recalcula en cada refresco.
type PnL struct {
	CurrentPrice float64
	HasQuote     bool
	Value        float64 // valor de mercado: |net_size| * current
	PnL          float64
	PnLPct       float64
}

// Valuate valora la posición al precio actual dado.
//
// quote <= 0 significa "sin cotización": se usa AvgPrice como precio actual,
// lo que produce PnL 0 — el default conservador de "sin información", nunca
// un error. TotalCost == 0 produce PnLPct 0 en vez de dividir por cero.
func (p Position) Valuate(quote float64) PnL {
	avg := p.AvgPrice()

	current := quote
	hasQuote := quote > 0
	if !hasQuote {
		current = avg
	}

	var pnl float64
	if p.NetSize > 0 {
		pnl = p.NetSize * (current - avg)
	} else {
		pnl = math.Abs(p.NetSize) * (avg - current)
	}

	pct := 0.0
	if p.TotalCost != 0 {
		pct = pnl / math.Abs(p.TotalCost) * 100
	}

	return PnL{
		CurrentPrice: current,
		HasQuote:     hasQuote,
		Value:        math.Abs(p.NetSize) * current,
		PnL:          pnl,
		PnLPct:       pct,
	}
}

// PositionReport es una posición valorada lista para mostrar o persistir.
type PositionReport struct {
	Position Position
	PnL      PnL
}

// PortfolioSnapshot es la foto del portfolio en un refresco del tracker.
type PortfolioSnapshot struct {
	TakenAt       time.Time
	Positions     []PositionReport
	TotalValue    float64
	TotalCost     float64
	TotalPnL      float64
	RealizedPnL   float64 // de la Data API de positions, 0 si no disponible
	UnrealizedPnL float64
	WinRate       float64
	Stale         bool // true si este snapshot es el anterior reutilizado tras un fallo de fetch
}

// AccountPosition es una posición tal como la reporta la Data API de
// Polymarket, usada para métricas de cuenta y para localizar redimibles.
type AccountPosition struct {
	ConditionID  string
	TokenID      string
	OutcomeIndex int
	Size         float64
	AvgPrice     float64
	CurPrice     float64
	InitialValue float64
	CurrentValue float64
	CashPnL      float64
	RealizedPnL  float64
	PercentPnL   float64
	Redeemable   bool
	Title        string
}
