package portfolio

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielrs/polycopy/internal/domain"
)

type fakeFills struct {
	fills []domain.Fill
	err   error
}

func (f *fakeFills) FetchFills(context.Context) ([]domain.Fill, error) {
	return f.fills, f.err
}

type fakeQuotes struct {
	quotes map[string]float64 // tokenID → midpoint; ausente = sin cotización
}

func (f *fakeQuotes) FetchMidpoint(_ context.Context, tokenID string) (float64, error) {
	q, ok := f.quotes[tokenID]
	if !ok {
		return 0, domain.ErrQuoteUnavailable
	}
	return q, nil
}

type fakeAccount struct {
	positions []domain.AccountPosition
	err       error
}

func (f *fakeAccount) FetchAccountPositions(context.Context) ([]domain.AccountPosition, error) {
	return f.positions, f.err
}

type captureNotifier struct {
	snaps []domain.PortfolioSnapshot
}

func (c *captureNotifier) Notify(_ context.Context, snap domain.PortfolioSnapshot) error {
	c.snaps = append(c.snaps, snap)
	return nil
}

type fakeSnapshots struct {
	saved []domain.PortfolioSnapshot
}

func (f *fakeSnapshots) SavePortfolioSnapshot(_ context.Context, snap domain.PortfolioSnapshot) error {
	f.saved = append(f.saved, snap)
	return nil
}

func buyFill(tokenID string, size, price float64) domain.Fill {
	return domain.Fill{
		SourceID:    "0x" + tokenID,
		ConditionID: "0xcond",
		TokenID:     tokenID,
		Side:        domain.SideBuy,
		Size:        size,
		Price:       price,
		Title:       "Market " + tokenID,
		Timestamp:   time.Now().UTC(),
	}
}

func TestRunOnceValuesPositionsAtMidpoint(t *testing.T) {
	fills := &fakeFills{fills: []domain.Fill{buyFill("aaa", 10, 0.40)}}
	quotes := &fakeQuotes{quotes: map[string]float64{"aaa": 0.65}}
	notifier := &captureNotifier{}
	store := &fakeSnapshots{}

	e := New(fills, quotes, nil, notifier, store, Config{})
	snap, err := e.RunOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, snap.Positions, 1)
	rep := snap.Positions[0]
	assert.True(t, rep.PnL.HasQuote)
	assert.InDelta(t, 0.65, rep.PnL.CurrentPrice, 1e-9)
	// 10 tokens comprados a 0.40, ahora a 0.65 → +2.50.
	assert.InDelta(t, 2.5, rep.PnL.PnL, 1e-9)
	assert.InDelta(t, 4.0, snap.TotalCost, 1e-9)
	assert.InDelta(t, 2.5, snap.UnrealizedPnL, 1e-9)
	assert.InDelta(t, 2.5, snap.TotalPnL, 1e-9)

	assert.Len(t, notifier.snaps, 1)
	assert.Len(t, store.saved, 1)
	assert.False(t, snap.Stale)
}

func TestRunOnceDegradesMissingQuoteToAvgPrice(t *testing.T) {
	fills := &fakeFills{fills: []domain.Fill{buyFill("aaa", 10, 0.40)}}
	quotes := &fakeQuotes{quotes: map[string]float64{}} // sin cotización

	e := New(fills, quotes, nil, &captureNotifier{}, nil, Config{})
	snap, err := e.RunOnce(context.Background())
	require.NoError(t, err)

	rep := snap.Positions[0]
	assert.False(t, rep.PnL.HasQuote)
	assert.InDelta(t, 0.40, rep.PnL.CurrentPrice, 1e-9)
	assert.InDelta(t, 0.0, rep.PnL.PnL, 1e-9)
}

func TestRunOnceAppliesAccountMetrics(t *testing.T) {
	fills := &fakeFills{fills: []domain.Fill{buyFill("aaa", 10, 0.40)}}
	quotes := &fakeQuotes{quotes: map[string]float64{"aaa": 0.40}}
	account := &fakeAccount{positions: []domain.AccountPosition{
		{ConditionID: "c1", TokenID: "aaa", CashPnL: 3.0, RealizedPnL: 1.5},
		{ConditionID: "c2", TokenID: "bbb", CashPnL: -1.0, RealizedPnL: 0.5},
	}}

	e := New(fills, quotes, account, &captureNotifier{}, nil, Config{})
	snap, err := e.RunOnce(context.Background())
	require.NoError(t, err)

	assert.InDelta(t, 2.0, snap.RealizedPnL, 1e-9)
	assert.InDelta(t, 50.0, snap.WinRate, 1e-9)
	assert.InDelta(t, snap.UnrealizedPnL+2.0, snap.TotalPnL, 1e-9)
}

func TestRunOnceReusesStaleSnapshotOnFetchFailure(t *testing.T) {
	fills := &fakeFills{fills: []domain.Fill{buyFill("aaa", 10, 0.40)}}
	quotes := &fakeQuotes{quotes: map[string]float64{"aaa": 0.65}}
	notifier := &captureNotifier{}
	store := &fakeSnapshots{}

	e := New(fills, quotes, nil, notifier, store, Config{})
	first, err := e.RunOnce(context.Background())
	require.NoError(t, err)

	fills.err = &domain.TransportError{Op: "polymarket.FetchFills", Err: errors.New("timeout")}
	stale, err := e.RunOnce(context.Background())
	require.NoError(t, err)

	assert.True(t, stale.Stale)
	assert.Equal(t, first.TakenAt, stale.TakenAt)
	assert.InDelta(t, first.TotalPnL, stale.TotalPnL, 1e-9)

	// El snapshot stale se muestra pero no se persiste de nuevo.
	assert.Len(t, notifier.snaps, 2)
	assert.True(t, notifier.snaps[1].Stale)
	assert.Len(t, store.saved, 1)
}

func TestRunOnceFailsWithoutPriorSnapshot(t *testing.T) {
	fills := &fakeFills{err: &domain.TransportError{Op: "polymarket.FetchFills", Err: errors.New("down")}}

	e := New(fills, &fakeQuotes{}, nil, &captureNotifier{}, nil, Config{})
	_, err := e.RunOnce(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsTransport(err))
}
