package jobs

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitolsignal/backend/internal/contracts"
	"github.com/capitolsignal/backend/pkg/logger"
)

type fakeSignalStore struct {
	active  []*contracts.Signal
	listErr error
	updates map[string][3]float64
}

func (f *fakeSignalStore) ListActive(ctx context.Context, limit int) ([]*contracts.Signal, error) {
	return f.active, f.listErr
}

func (f *fakeSignalStore) UpdateTargets(ctx context.Context, signalID string, target, stop, take float64) error {
	if f.updates == nil {
		f.updates = make(map[string][3]float64)
	}
	f.updates[signalID] = [3]float64{target, stop, take}
	return nil
}

type fakePrices struct{ data map[string]float64 }

func (f *fakePrices) FetchPrices(ctx context.Context, tickers []string) map[string]float64 {
	return f.data
}

func TestTargetRefresh_UpdatesFromFreshPrices(t *testing.T) {
	store := &fakeSignalStore{active: []*contracts.Signal{
		{ID: "sig-1", Ticker: "AAPL", SignalType: contracts.Buy},
		{ID: "sig-2", Ticker: "XOM", SignalType: contracts.Sell},
		{ID: "sig-3", Ticker: "GONE", SignalType: contracts.Buy},
	}}
	prices := &fakePrices{data: map[string]float64{"AAPL": 100, "XOM": 100}}

	job := NewTargetRefreshJob(store, prices, logger.NewNop())
	require.NoError(t, job.Run(context.Background()))

	// buy at 100: one notch up.
	assert.Equal(t, [3]float64{105, 95, 108}, store.updates["sig-1"])
	// sell at 100: one notch down, stop above.
	assert.Equal(t, [3]float64{95, 105, 92}, store.updates["sig-2"])
	// no quote, previous targets kept.
	_, touched := store.updates["sig-3"]
	assert.False(t, touched)
}

func TestTargetRefresh_ListFailure(t *testing.T) {
	store := &fakeSignalStore{listErr: fmt.Errorf("db down")}
	job := NewTargetRefreshJob(store, &fakePrices{}, logger.NewNop())

	assert.Error(t, job.Run(context.Background()))
}

func TestTargetRefresh_EmptyActiveSet(t *testing.T) {
	job := NewTargetRefreshJob(&fakeSignalStore{}, &fakePrices{}, logger.NewNop())
	assert.NoError(t, job.Run(context.Background()))
}
