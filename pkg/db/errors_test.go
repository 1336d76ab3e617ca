package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type uniqueModel struct {
	ID     int
	LoadID string `gorm:"uniqueIndex:uniq_unique_models_load_id"`
}

func TestIsUniqueViolationSQLite(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:unique_violation?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&uniqueModel{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := conn.Create(&uniqueModel{LoadID: "L1"}).Error; err != nil {
		t.Fatalf("first insert: %v", err)
	}
	err = conn.Create(&uniqueModel{LoadID: "L1"}).Error
	if err == nil {
		t.Fatal("expected unique violation")
	}
	if !IsUniqueViolation(err, "") {
		t.Fatalf("expected unique violation, got %v", err)
	}
	if !IsUniqueViolation(err, "load_id") {
		t.Fatalf("expected column name match, got %v", err)
	}
}

func TestIsUniqueViolationPostgresDrivers(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "uniq_invoices_load_id"}
	wrapped := fmt.Errorf("insert invoice: %w", pgErr)
	if !IsUniqueViolation(wrapped, "uniq_invoices_load_id") {
		t.Fatal("expected pgconn violation to match")
	}
	if IsUniqueViolation(wrapped, "uniq_other") {
		t.Fatal("constraint name must match")
	}

	pqErr := &pq.Error{Code: "23505", Constraint: "uniq_bids_accepted_per_load"}
	if !IsUniqueViolation(pqErr, "uniq_bids_accepted_per_load") {
		t.Fatal("expected pq violation to match")
	}

	if IsUniqueViolation(errors.New("connection reset"), "") {
		t.Fatal("unrelated errors are not unique violations")
	}
	if IsUniqueViolation(nil, "") {
		t.Fatal("nil is not a violation")
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(fmt.Errorf("load: %w", gorm.ErrRecordNotFound)) {
		t.Fatal("expected wrapped not found")
	}
	if IsNotFound(errors.New("other")) {
		t.Fatal("unexpected match")
	}
}
