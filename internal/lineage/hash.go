package lineage

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/capitolsignal/backend/internal/contracts"
)

// hashInput fixes the field order so the digest is stable across runs.
type hashInput struct {
	Features   contracts.SignalFeatures `json:"features"`
	ModelID    string                   `json:"model_id"`
	HourBucket int64                    `json:"hour_bucket"`
}

// ReproducibilityHash digests the inputs that produced a signal. Two runs in
// the same hour over the same features and model yield the same hash, which
// is how duplicate regenerations are detected downstream.
func ReproducibilityHash(features contracts.SignalFeatures, modelID string, at time.Time) string {
	payload, err := json.Marshal(hashInput{
		Features:   features,
		ModelID:    modelID,
		HourBucket: at.UTC().Truncate(time.Hour).Unix(),
	})
	if err != nil {
		// Marshaling a flat struct of scalars cannot fail.
		return ""
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
