package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/andresuchdata/autopar/backend-go/internal/config"
	"github.com/andresuchdata/autopar/backend-go/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{"serialization failure", &pq.Error{Code: "40001"}, true},
		{"deadlock", fmt.Errorf("wrapped: %w", &pq.Error{Code: "40P01"}), true},
		{"connection failure", &pq.Error{Code: "08006"}, true},
		{"pgx admin shutdown", &pgconn.PgError{Code: "57P01"}, true},
		{"bad conn", driver.ErrBadConn, true},
		{"deadline", context.DeadlineExceeded, true},
		{"unique violation", &pq.Error{Code: "23505"}, false},
		{"plain error", errors.New("syntax"), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := classify(tc.err)
			if got := errors.Is(err, domain.ErrTransient); got != tc.transient {
				t.Errorf("Expected transient=%v, got %v (%v)", tc.transient, got, err)
			}
		})
	}

	if classify(nil) != nil {
		t.Error("Expected nil for nil")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(&pgconn.PgError{Code: "23505"}) || !isUniqueViolation(&pq.Error{Code: "23505"}) {
		t.Error("Expected unique violations from both drivers")
	}
	if isUniqueViolation(errors.New("x")) {
		t.Error("Expected plain errors not to match")
	}
}

func TestDSN(t *testing.T) {
	cfg := &config.DatabaseConfig{Host: "db", Port: "5432", User: "app", Password: "p@ss", DBName: "autopar", SSLMode: "disable"}
	if got := DSN(cfg); got != "postgres://app:p%40ss@db:5432/autopar?sslmode=disable" {
		t.Errorf("Unexpected DSN %s", got)
	}

	cfg.URL = "postgres://override"
	if got := DSN(cfg); got != "postgres://override" {
		t.Errorf("Expected DATABASE_URL to win, got %s", got)
	}
}

func TestAttachObservations(t *testing.T) {
	counts := []domain.ApprovedCount{{SessionID: "s2"}, {SessionID: "s1"}}
	rows := []observationRow{
		{SessionID: "s1", ItemObservation: domain.ItemObservation{ItemName: "Beef", StockQuantity: 4}},
		{SessionID: "s2", ItemObservation: domain.ItemObservation{ItemName: "Beef", StockQuantity: 2}},
		{SessionID: "s2", ItemObservation: domain.ItemObservation{ItemName: "Milk", StockQuantity: 6}},
		{SessionID: "unknown", ItemObservation: domain.ItemObservation{ItemName: "Salt"}},
	}

	out := attachObservations(counts, rows)
	if len(out[0].Observations) != 2 || len(out[1].Observations) != 1 {
		t.Fatalf("Unexpected grouping: %+v", out)
	}
	if out[1].Observations[0].StockQuantity != 4 {
		t.Errorf("Expected s1 beef 4, got %v", out[1].Observations[0].StockQuantity)
	}
}
