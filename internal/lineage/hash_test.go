package lineage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/capitolsignal/backend/internal/contracts"
)

func TestReproducibilityHash_StableWithinHour(t *testing.T) {
	features := contracts.SignalFeatures{Buys: 4, Sells: 1, PoliticianCount: 3}

	a := ReproducibilityHash(features, "model-1", time.Date(2026, 8, 20, 10, 5, 0, 0, time.UTC))
	b := ReproducibilityHash(features, "model-1", time.Date(2026, 8, 20, 10, 55, 0, 0, time.UTC))

	assert.NotEmpty(t, a)
	assert.Equal(t, a, b)
}

func TestReproducibilityHash_ChangesAcrossHours(t *testing.T) {
	features := contracts.SignalFeatures{Buys: 4, Sells: 1}

	a := ReproducibilityHash(features, "model-1", time.Date(2026, 8, 20, 10, 59, 0, 0, time.UTC))
	b := ReproducibilityHash(features, "model-1", time.Date(2026, 8, 20, 11, 0, 0, 0, time.UTC))

	assert.NotEqual(t, a, b)
}

func TestReproducibilityHash_SensitiveToInputs(t *testing.T) {
	at := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	base := contracts.SignalFeatures{Buys: 4, Sells: 1}

	changedFeatures := base
	changedFeatures.Buys = 5

	assert.NotEqual(t,
		ReproducibilityHash(base, "model-1", at),
		ReproducibilityHash(changedFeatures, "model-1", at),
	)
	assert.NotEqual(t,
		ReproducibilityHash(base, "model-1", at),
		ReproducibilityHash(base, "model-2", at),
	)
}

func TestTransitionEntry(t *testing.T) {
	at := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	entry, err := TransitionEntry("sig-1", contracts.StateGenerated, contracts.StateActive, "run complete", "scheduler", at)
	assert.NoError(t, err)
	assert.Equal(t, contracts.StateActive, entry.CurrentState)
	assert.Equal(t, contracts.StateGenerated, *entry.PreviousState)

	// Initial entry has no previous state.
	entry, err = TransitionEntry("sig-1", "", contracts.StateGenerated, "created", "scheduler", at)
	assert.NoError(t, err)
	assert.Nil(t, entry.PreviousState)

	// Terminal states cannot move.
	_, err = TransitionEntry("sig-1", contracts.StateFilled, contracts.StateActive, "x", "scheduler", at)
	assert.Error(t, err)
}
