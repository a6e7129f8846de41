package workflow

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/SaravananKiruba/boolapos-sub001/models"
	mysqlDriver "github.com/go-sql-driver/mysql"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	dup := &mysqlDriver.MySQLError{Number: 1062, Message: "Duplicate entry"}
	if !isDuplicateKeyErr(dup) {
		t.Fatal("error 1062 should be recognized as a duplicate key")
	}
	if !isDuplicateKeyErr(fmt.Errorf("create idempotency key: %w", dup)) {
		t.Fatal("wrapped error 1062 should be recognized as a duplicate key")
	}
	if isDuplicateKeyErr(&mysqlDriver.MySQLError{Number: 1213, Message: "Deadlock"}) {
		t.Fatal("error 1213 is not a duplicate key")
	}
	if isDuplicateKeyErr(errors.New("connection refused")) {
		t.Fatal("a plain error is not a duplicate key")
	}
}

func TestResolveIdempotencyConflict(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	orderId := 42

	cases := []struct {
		name       string
		existing   models.IdempotencyKey
		wantSkip   bool
		wantId     *int
		wantClaim  bool
		wantErr    error
	}{
		{
			name:     "succeeded replays the recorded result",
			existing: models.IdempotencyKey{Status: models.IdempotencyStatusSucceeded, ResourceId: &orderId},
			wantSkip: true,
			wantId:   &orderId,
		},
		{
			name:     "fresh started backs off",
			existing: models.IdempotencyKey{Status: models.IdempotencyStatusStarted, UpdatedAt: now.Add(-time.Minute)},
			wantErr:  ErrIdempotencyInProgress,
		},
		{
			name:      "stale started is reclaimed",
			existing:  models.IdempotencyKey{Status: models.IdempotencyStatusStarted, UpdatedAt: now.Add(-10 * time.Minute)},
			wantClaim: true,
		},
		{
			name:      "failed is reclaimed",
			existing:  models.IdempotencyKey{Status: models.IdempotencyStatusFailed, UpdatedAt: now.Add(-time.Second)},
			wantClaim: true,
		},
	}

	for _, c := range cases {
		skip, resourceId, reclaim, err := resolveIdempotencyConflict(&c.existing, now)
		if !errors.Is(err, c.wantErr) {
			t.Fatalf("%s: err = %v, want %v", c.name, err, c.wantErr)
		}
		if skip != c.wantSkip {
			t.Fatalf("%s: skip = %v, want %v", c.name, skip, c.wantSkip)
		}
		if reclaim != c.wantClaim {
			t.Fatalf("%s: reclaim = %v, want %v", c.name, reclaim, c.wantClaim)
		}
		if c.wantId == nil && resourceId != nil {
			t.Fatalf("%s: resourceId = %v, want nil", c.name, *resourceId)
		}
		if c.wantId != nil && (resourceId == nil || *resourceId != *c.wantId) {
			t.Fatalf("%s: resourceId = %v, want %d", c.name, resourceId, *c.wantId)
		}
	}
}
