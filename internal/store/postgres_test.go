package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestPostgresErrorClassification(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505", ConstraintName: "roadmap_items_epic_exclusive"}
	exclusion := &pgconn.PgError{Code: "23P01", ConstraintName: "resource_assignments_no_overlap"}

	if !uniqueViolation(unique) {
		t.Error("expected 23505 to classify as a unique violation")
	}
	if uniqueViolation(exclusion) {
		t.Error("exclusion violation must not classify as unique")
	}
	if !exclusionViolation(exclusion) {
		t.Error("expected 23P01 to classify as an exclusion violation")
	}
	if exclusionViolation(unique) {
		t.Error("unique violation must not classify as exclusion")
	}

	// database/sql surfaces driver errors wrapped, so matching has to go
	// through the chain.
	wrapped := fmt.Errorf("insert assignment: %w", exclusion)
	if !exclusionViolation(wrapped) {
		t.Error("expected wrapped 23P01 to classify as an exclusion violation")
	}

	if uniqueViolation(errors.New("connection reset")) || exclusionViolation(nil) {
		t.Error("non-Postgres errors must not classify as constraint violations")
	}
}
