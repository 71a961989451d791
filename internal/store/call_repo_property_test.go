package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/browser-bridge/backend/internal/db"
	"github.com/browser-bridge/backend/internal/model"
)

// generateID generates a unique ID for testing.
func generateID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// For any recorded call outcome, the stored row must be retrievable with
// the same action, success flag, error message and duration.
func TestCallRecordRoundTripProperty(t *testing.T) {
	testDB, err := db.NewTestDB()
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	defer testDB.Close()

	repo := NewCallRepository(testDB)
	ctx := context.Background()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	actionGen := gen.OneConstOf(
		"getDom", "getSelection", "getUrl", "screenshot",
		"executeScript", "modifyDom", "getConsoleLogs",
	)

	properties.Property("recorded calls persist and can be retrieved", prop.ForAll(
		func(action string, success bool, errMsg string, durationMS int64) bool {
			rec := &model.CallRecord{
				ID:         generateID(),
				Action:     action,
				Success:    success,
				Error:      errMsg,
				DurationMS: durationMS,
				CreatedAt:  time.Now(),
			}

			if err := repo.Record(ctx, rec); err != nil {
				t.Logf("failed to record call: %v", err)
				return false
			}

			retrieved, err := repo.GetByID(ctx, rec.ID)
			if err != nil {
				t.Logf("failed to retrieve call: %v", err)
				return false
			}

			return retrieved.ID == rec.ID &&
				retrieved.Action == rec.Action &&
				retrieved.Success == rec.Success &&
				retrieved.Error == rec.Error &&
				retrieved.DurationMS == rec.DurationMS
		},
		actionGen,
		gen.Bool(),
		gen.AlphaString(),
		gen.Int64Range(0, 30_000),
	))

	properties.TestingRun(t)
}
