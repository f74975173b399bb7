package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505", ConstraintName: "uq_ontology_activity_version"}
	if !isUniqueViolation(unique) {
		t.Error("expected 23505 to be a unique violation")
	}
	if !isUniqueViolation(fmt.Errorf("insert failed: %w", unique)) {
		t.Error("expected wrapped 23505 to be detected")
	}

	if isUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Error("foreign key violation must not count")
	}
	if isUniqueViolation(errors.New("connection refused")) {
		t.Error("plain errors must not count")
	}
	if isUniqueViolation(nil) {
		t.Error("nil must not count")
	}
}
