package copier

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielrs/polycopy/internal/domain"
)

type fakeFills struct {
	fills []domain.Fill
}

func (f *fakeFills) FetchFills(context.Context) ([]domain.Fill, error) {
	return f.fills, nil
}

func fill(tokenID string, side domain.Side, size, price float64) domain.Fill {
	return domain.Fill{
		SourceID:    "0x" + tokenID,
		ConditionID: "0xcond",
		TokenID:     tokenID,
		Side:        side,
		Size:        size,
		Price:       price,
		Title:       "Market " + tokenID,
		Timestamp:   time.Now().UTC(),
	}
}

func TestCloseAllSendsOppositeAggressiveOrders(t *testing.T) {
	var journal []string
	executor := &fakeExecutor{journal: &journal}
	copyLog := &fakeCopyLog{}
	fills := &fakeFills{fills: []domain.Fill{
		fill("long", domain.SideBuy, 10, 0.40),
		fill("short", domain.SideSell, 4, 0.70),
	}}

	closer := NewCloser(fills, executor, copyLog)
	closed, err := closer.CloseAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, closed)
	require.Len(t, executor.submitted, 2)

	byToken := make(map[string]domain.CopyOrder)
	for _, o := range executor.submitted {
		byToken[o.TokenID] = o
	}

	long := byToken["long"]
	assert.Equal(t, domain.SideSell, long.Side)
	assert.InDelta(t, 0.01, long.Price, 1e-9)
	assert.InDelta(t, 10.0, long.TokenSize, 1e-9)

	short := byToken["short"]
	assert.Equal(t, domain.SideBuy, short.Side)
	assert.InDelta(t, 0.99, short.Price, 1e-9)
	assert.InDelta(t, 4.0, short.TokenSize, 1e-9)

	// Los cierres quedan en el copy log para que el ledger los refleje.
	assert.Len(t, copyLog.fills, 2)
}

func TestCloseAllSkipsFlatBook(t *testing.T) {
	var journal []string
	executor := &fakeExecutor{journal: &journal}
	fills := &fakeFills{fills: []domain.Fill{
		fill("flat", domain.SideBuy, 5, 0.50),
		fill("flat", domain.SideSell, 5, 0.60),
	}}

	closer := NewCloser(fills, executor, &fakeCopyLog{})
	closed, err := closer.CloseAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, closed)
	assert.Empty(t, executor.submitted)
}
