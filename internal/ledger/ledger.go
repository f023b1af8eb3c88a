package ledger

// ledger.go — Agregación de fills en posiciones netas.
//
// El ledger no tiene estado propio: se reconstruye de cero cada vez que se
// (re)carga el conjunto de fills. BUY suma tamaño y coste, SELL los resta;
// la suma es conmutativa, así que el orden de los fills no importa.

import (
	"sort"

	"github.com/danielrs/polycopy/internal/domain"
)

// Aggregate convierte una secuencia de fills en el mapa de posiciones
// abiertas por instrumento. Las posiciones con |NetSize| < Epsilon se
// descartan. Transformación pura: O(n) en fills, O(k) instrumentos.
//
// Campos numéricos ausentes o no parseables llegan aquí ya como cero
// (política de parsing tolerante de los adapters), así que un fill
// malformado simplemente no mueve la posición.
func Aggregate(fills []domain.Fill) map[string]domain.Position {
	positions := make(map[string]domain.Position)

	for _, f := range fills {
		key := f.InstrumentKey()
		pos, ok := positions[key]
		if !ok {
			pos = domain.Position{
				ConditionID: f.ConditionID,
				TokenID:     f.TokenID,
				Title:       f.Title,
			}
		}
		if pos.Title == "" {
			pos.Title = f.Title
		}

		switch f.Side {
		case domain.SideSell:
			pos.NetSize -= f.Size
			pos.TotalCost -= f.Size * f.Price
		default:
			pos.NetSize += f.Size
			pos.TotalCost += f.Size * f.Price
		}

		positions[key] = pos
	}

	for key, pos := range positions {
		if pos.Closed() {
			delete(positions, key)
		}
	}

	return positions
}

// Sorted devuelve las posiciones como slice ordenado por valor absoluto de
// coste descendente — las posiciones grandes primero, orden estable para
// el dashboard.
func Sorted(positions map[string]domain.Position) []domain.Position {
	out := make([]domain.Position, 0, len(positions))
	for _, pos := range positions {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool {
		ci, cj := abs(out[i].TotalCost), abs(out[j].TotalCost)
		if ci != cj {
			return ci > cj
		}
		return out[i].InstrumentKey() < out[j].InstrumentKey()
	})
	return out
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
