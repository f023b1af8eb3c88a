package ledger

import (
	"math/rand"
	"testing"

	"github.com/danielrs/polycopy/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fill(side domain.Side, size, price float64) domain.Fill {
	return domain.Fill{
		ConditionID: "0xcond",
		TokenID:     "tok1",
		Side:        side,
		Size:        size,
		Price:       price,
	}
}

func TestAggregate_ConcreteScenario(t *testing.T) {
	// BUY 10@0.50, BUY 5@0.60, SELL 8@0.70 → net 7, cost 2.4, avg ≈ 0.343
	fills := []domain.Fill{
		fill(domain.SideBuy, 10, 0.50),
		fill(domain.SideBuy, 5, 0.60),
		fill(domain.SideSell, 8, 0.70),
	}

	positions := Aggregate(fills)
	require.Len(t, positions, 1)

	pos := positions["0xcond_tok1"]
	assert.InDelta(t, 7.0, pos.NetSize, 1e-9)
	assert.InDelta(t, 2.4, pos.TotalCost, 1e-9)
	assert.InDelta(t, 0.3428, pos.AvgPrice(), 0.001)
	assert.Equal(t, "LONG", pos.Direction())
}

func TestAggregate_OrderIndependent(t *testing.T) {
	fills := []domain.Fill{
		fill(domain.SideBuy, 10, 0.50),
		fill(domain.SideBuy, 5, 0.60),
		fill(domain.SideSell, 8, 0.70),
		fill(domain.SideSell, 3, 0.40),
		fill(domain.SideBuy, 1.5, 0.25),
	}

	want := Aggregate(fills)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := make([]domain.Fill, len(fills))
		copy(shuffled, fills)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		got := Aggregate(shuffled)
		require.Len(t, got, len(want))
		for key, wp := range want {
			gp, ok := got[key]
			require.True(t, ok)
			assert.InDelta(t, wp.NetSize, gp.NetSize, 1e-9)
			assert.InDelta(t, wp.TotalCost, gp.TotalCost, 1e-9)
		}
	}
}

func TestAggregate_ClosedPositionExcluded(t *testing.T) {
	fills := []domain.Fill{
		fill(domain.SideBuy, 10, 0.50),
		fill(domain.SideSell, 10, 0.70),
	}

	positions := Aggregate(fills)
	assert.Empty(t, positions)
}

func TestAggregate_TinyResidualExcluded(t *testing.T) {
	// Residuo por debajo de Epsilon = cerrada
	fills := []domain.Fill{
		fill(domain.SideBuy, 10.0005, 0.50),
		fill(domain.SideSell, 10, 0.50),
	}

	positions := Aggregate(fills)
	assert.Empty(t, positions)
}

func TestAggregate_ShortPosition(t *testing.T) {
	fills := []domain.Fill{
		fill(domain.SideSell, 10, 0.60),
		fill(domain.SideBuy, 4, 0.50),
	}

	positions := Aggregate(fills)
	require.Len(t, positions, 1)

	pos := positions["0xcond_tok1"]
	assert.InDelta(t, -6.0, pos.NetSize, 1e-9)
	assert.InDelta(t, -4.0, pos.TotalCost, 1e-9)
	assert.Equal(t, "SHORT", pos.Direction())
	// avg = |-4.0 / -6.0|
	assert.InDelta(t, 0.6667, pos.AvgPrice(), 0.001)
}

func TestAggregate_MalformedFillIsNoop(t *testing.T) {
	// Campos numéricos ausentes llegan como cero: no mueven la posición.
	fills := []domain.Fill{
		fill(domain.SideBuy, 10, 0.50),
		fill(domain.SideBuy, 0, 0),
	}

	positions := Aggregate(fills)
	require.Len(t, positions, 1)
	pos := positions["0xcond_tok1"]
	assert.InDelta(t, 10.0, pos.NetSize, 1e-9)
	assert.InDelta(t, 5.0, pos.TotalCost, 1e-9)
}

func TestAggregate_MultipleInstruments(t *testing.T) {
	fills := []domain.Fill{
		fill(domain.SideBuy, 10, 0.50),
		{ConditionID: "0xother", TokenID: "tok2", Side: domain.SideBuy, Size: 3, Price: 0.20},
	}

	positions := Aggregate(fills)
	assert.Len(t, positions, 2)
}

func TestSorted_LargestCostFirst(t *testing.T) {
	positions := map[string]domain.Position{
		"a_1": {ConditionID: "a", TokenID: "1", NetSize: 2, TotalCost: 1.0},
		"b_2": {ConditionID: "b", TokenID: "2", NetSize: 9, TotalCost: 8.1},
		"c_3": {ConditionID: "c", TokenID: "3", NetSize: -5, TotalCost: -4.0},
	}

	sorted := Sorted(positions)
	require.Len(t, sorted, 3)
	assert.Equal(t, "b", sorted[0].ConditionID)
	assert.Equal(t, "c", sorted[1].ConditionID)
	assert.Equal(t, "a", sorted[2].ConditionID)
}
