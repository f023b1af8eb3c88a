package copier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielrs/polycopy/internal/domain"
)

// --- fakes ---

type fakeActivity struct {
	obs []domain.ObservedTrade
	err error
}

func (f *fakeActivity) FetchObservations(context.Context) ([]domain.ObservedTrade, error) {
	return f.obs, f.err
}

type fakeBalance struct {
	balance float64
	err     error
}

func (f *fakeBalance) FetchBalance(context.Context) (float64, error) {
	return f.balance, f.err
}

// fakeTracker is an in-memory stand-in for the sqlite tracker. It appends
// "mark:<id>" events to the shared journal so tests can assert ordering
// against the executor's "submit:<id>" events.
type fakeTracker struct {
	attempted map[string]bool
	outcomes  map[string]domain.ExecutionRecord
	journal   *[]string
	markErr   error
}

func newFakeTracker(journal *[]string) *fakeTracker {
	return &fakeTracker{
		attempted: make(map[string]bool),
		outcomes:  make(map[string]domain.ExecutionRecord),
		journal:   journal,
	}
}

func (f *fakeTracker) AlreadyAttempted(_ context.Context, sourceID string) (bool, error) {
	return f.attempted[sourceID], nil
}

func (f *fakeTracker) MarkAttempted(_ context.Context, sourceID string) (bool, error) {
	if f.markErr != nil {
		return false, f.markErr
	}
	if f.attempted[sourceID] {
		return false, nil
	}
	f.attempted[sourceID] = true
	*f.journal = append(*f.journal, "mark:"+sourceID)
	return true, nil
}

func (f *fakeTracker) RecordOutcome(_ context.Context, rec domain.ExecutionRecord) error {
	f.outcomes[rec.SourceID] = rec
	return nil
}

func (f *fakeTracker) Executions(_ context.Context, outcome domain.Outcome) ([]domain.ExecutionRecord, error) {
	var out []domain.ExecutionRecord
	for _, rec := range f.outcomes {
		if outcome == "" || rec.Outcome == outcome {
			out = append(out, rec)
		}
	}
	return out, nil
}

type fakeExecutor struct {
	journal   *[]string
	submitted []domain.CopyOrder
	err       error
}

func (f *fakeExecutor) SubmitOrder(_ context.Context, order domain.CopyOrder) (domain.OrderResult, error) {
	*f.journal = append(*f.journal, "submit:"+order.SourceID)
	f.submitted = append(f.submitted, order)
	if f.err != nil {
		return domain.OrderResult{}, f.err
	}
	return domain.OrderResult{OrderID: "ord-" + order.SourceID, Status: "matched"}, nil
}

type fakeCopyLog struct {
	fills []domain.Fill
}

func (f *fakeCopyLog) SaveCopiedFill(_ context.Context, fill domain.Fill) error {
	f.fills = append(f.fills, fill)
	return nil
}

// --- helpers ---

func observation(tx string, usd, portfolio float64) domain.ObservedTrade {
	return domain.ObservedTrade{
		TxHash:         tx,
		ProxyWallet:    "0xtarget",
		ConditionID:    "0xcond",
		TokenID:        "123",
		Side:           domain.SideBuy,
		Price:          0.50,
		Size:           usd / 0.50,
		USDSize:        usd,
		Title:          "Some market",
		PortfolioValue: portfolio,
		Timestamp:      time.Now().UTC(),
	}
}

type harness struct {
	activity *fakeActivity
	balances *fakeBalance
	tracker  *fakeTracker
	executor *fakeExecutor
	copyLog  *fakeCopyLog
	journal  []string
	engine   *Engine
}

func newHarness(cfg Config, obs ...domain.ObservedTrade) *harness {
	h := &harness{
		activity: &fakeActivity{obs: obs},
		balances: &fakeBalance{balance: 2000},
		copyLog:  &fakeCopyLog{},
	}
	h.tracker = newFakeTracker(&h.journal)
	h.executor = &fakeExecutor{journal: &h.journal}
	h.engine = New(h.activity, h.balances, h.executor, h.tracker, h.copyLog, cfg)
	return h
}

// --- tests ---

func TestRunOnceCopiesNewObservations(t *testing.T) {
	h := newHarness(Config{}, observation("0xa", 100, 2000), observation("0xb", 50, 2000))

	result, err := h.engine.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Observed)
	assert.Equal(t, 2, result.Submitted)
	assert.Equal(t, 2, result.Succeeded)
	assert.Len(t, h.copyLog.fills, 2)

	succ, err := h.tracker.Executions(context.Background(), domain.OutcomeSuccess)
	require.NoError(t, err)
	assert.Len(t, succ, 2)
}

func TestRunOnceProcessesOldestFirst(t *testing.T) {
	// La API entrega más-reciente-primero: 0xnew antes que 0xold.
	h := newHarness(Config{}, observation("0xnew", 100, 2000), observation("0xold", 100, 2000))

	_, err := h.engine.RunOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, h.executor.submitted, 2)
	assert.Equal(t, "0xold", h.executor.submitted[0].SourceID)
	assert.Equal(t, "0xnew", h.executor.submitted[1].SourceID)
}

func TestIdempotencyAcrossTicks(t *testing.T) {
	h := newHarness(Config{}, observation("0xa", 100, 2000))

	_, err := h.engine.RunOnce(context.Background())
	require.NoError(t, err)

	// Segundo tick con la misma observación todavía en el feed.
	result, err := h.engine.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Skipped)
	assert.Len(t, h.executor.submitted, 1, "same source id must be submitted at most once")
}

func TestClaimFlushedBeforeSubmit(t *testing.T) {
	h := newHarness(Config{}, observation("0xa", 100, 2000))

	_, err := h.engine.RunOnce(context.Background())
	require.NoError(t, err)

	require.Equal(t, []string{"mark:0xa", "submit:0xa"}, h.journal)
}

func TestDurabilityFailureAbortsTick(t *testing.T) {
	h := newHarness(Config{}, observation("0xa", 100, 2000))
	h.tracker.markErr = errors.New("disk full")

	_, err := h.engine.RunOnce(context.Background())
	require.Error(t, err)
	assert.Empty(t, h.executor.submitted, "nothing may be submitted if the claim did not persist")
}

func TestTransportErrorSkipsCycle(t *testing.T) {
	h := newHarness(Config{}, observation("0xa", 100, 2000))
	h.activity.err = &domain.TransportError{Op: "polymarket.FetchObservations", Err: errors.New("timeout")}

	_, err := h.engine.RunOnce(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsTransport(err))
	assert.Empty(t, h.executor.submitted)

	// El tick siguiente sí copia: nada quedó quemado.
	h.activity.err = nil
	result, err := h.engine.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)
}

func TestRejectedOrderIsTerminalFailure(t *testing.T) {
	h := newHarness(Config{}, observation("0xa", 100, 2000))
	h.executor.err = &domain.OrderRejectedError{Reason: "not enough balance"}

	result, err := h.engine.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Empty(t, h.copyLog.fills)

	rec := h.tracker.outcomes["0xa"]
	assert.Equal(t, domain.OutcomeFailure, rec.Outcome)
	assert.Contains(t, rec.Result, "not enough balance")

	// Nunca se reintenta, ni aunque el venue ya funcione.
	h.executor.err = nil
	result, err = h.engine.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	assert.Len(t, h.executor.submitted, 1)
}

func TestDryRunDoesNotSubmit(t *testing.T) {
	h := newHarness(Config{DryRun: true}, observation("0xa", 100, 2000))

	result, err := h.engine.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, result.Submitted)
	assert.Equal(t, 1, result.Succeeded)
	assert.Empty(t, h.executor.submitted)

	rec := h.tracker.outcomes["0xa"]
	assert.Equal(t, domain.OutcomeSuccess, rec.Outcome)
	assert.Contains(t, rec.Result, "dry-run")
}

func TestProportionalSizingFlowsIntoOrder(t *testing.T) {
	// La contraparte usó el 5% de su portfolio de $2000: $100. Nuestro
	// balance es $2000 → copiamos $100 = 200 tokens a 0.50.
	h := newHarness(Config{}, observation("0xa", 100, 2000))

	_, err := h.engine.RunOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, h.executor.submitted, 1)
	order := h.executor.submitted[0]
	assert.InDelta(t, 100.0, order.USDSize, 1e-9)
	assert.InDelta(t, 200.0, order.TokenSize, 1e-9)
	assert.Equal(t, domain.SideBuy, order.Side)
	assert.NotEmpty(t, order.ID)
}
