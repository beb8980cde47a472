package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "uq_payment_events_dedup"}

	tests := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{"nil error", nil, "", false},
		{"pg unique any constraint", pgErr, "", true},
		{"pg unique matching constraint", pgErr, "uq_payment_events_dedup", true},
		{"pg unique other constraint", pgErr, "uq_orders_code", false},
		{"pg non-unique code", &pgconn.PgError{Code: "23503"}, "", false},
		{"wrapped pg error", fmt.Errorf("insert: %w", pgErr), "uq_payment_events_dedup", true},
		{"sqlite message", errors.New("UNIQUE constraint failed: payment_events.order_id"), "", true},
		{"unrelated error", errors.New("connection refused"), "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsUniqueViolation(tc.err, tc.constraint); got != tc.want {
				t.Fatalf("IsUniqueViolation() = %v, want %v", got, tc.want)
			}
		})
	}
}
