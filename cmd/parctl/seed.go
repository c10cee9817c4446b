package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

var countColumns = []string{
	"session_id", "restaurant_id", "list_id", "approved_at",
	"item_name", "stock_quantity", "category", "unit", "par_level",
}

type seedRow struct {
	SessionID     string
	RestaurantID  string
	ListID        string
	ApprovedAt    *time.Time
	ItemName      string
	StockQuantity float64
	Category      string
	Unit          string
	ParLevel      *float64
}

// parseCountRows reads the counts CSV. Columns are matched by header name, so
// extra columns are ignored. An empty approved_at seeds a draft session.
func parseCountRows(r io.Reader) ([]seedRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range []string{"session_id", "restaurant_id", "item_name", "stock_quantity"} {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("missing required column %q", col)
		}
	}

	field := func(rec []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var rows []seedRow
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		row := seedRow{
			SessionID:    field(rec, "session_id"),
			RestaurantID: field(rec, "restaurant_id"),
			ListID:       field(rec, "list_id"),
			ItemName:     field(rec, "item_name"),
			Category:     field(rec, "category"),
			Unit:         field(rec, "unit"),
		}
		if row.SessionID == "" || row.RestaurantID == "" || row.ItemName == "" {
			return nil, fmt.Errorf("line %d: session_id, restaurant_id and item_name are required", line)
		}

		qty, err := strconv.ParseFloat(field(rec, "stock_quantity"), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid stock_quantity: %w", line, err)
		}
		row.StockQuantity = qty

		if v := field(rec, "approved_at"); v != "" {
			at, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid approved_at: %w", line, err)
			}
			row.ApprovedAt = &at
		}
		if v := field(rec, "par_level"); v != "" {
			par, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid par_level: %w", line, err)
			}
			row.ParLevel = &par
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func runSeed(c *cli.Context) error {
	filePath := c.String("file")
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	defer file.Close()

	rows, err := parseCountRows(file)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", filePath, err)
	}

	db := dbFrom(c)
	err = db.WithTx(c.Context, func(tx *sqlx.Tx) error {
		seen := make(map[string]bool)
		for _, row := range rows {
			if !seen[row.SessionID] {
				status := "draft"
				if row.ApprovedAt != nil {
					status = "approved"
				}
				if _, err := tx.ExecContext(c.Context, `
					INSERT INTO inventory_sessions (id, restaurant_id, list_id, status, approved_at)
					VALUES ($1, $2, $3, $4, $5)
					ON CONFLICT (id) DO UPDATE
					SET status = EXCLUDED.status, approved_at = EXCLUDED.approved_at
				`, row.SessionID, row.RestaurantID, row.ListID, status, row.ApprovedAt); err != nil {
					return fmt.Errorf("failed to upsert session %s: %w", row.SessionID, err)
				}
				if _, err := tx.ExecContext(c.Context,
					`DELETE FROM inventory_session_items WHERE session_id = $1`, row.SessionID); err != nil {
					return fmt.Errorf("failed to reset items of %s: %w", row.SessionID, err)
				}
				seen[row.SessionID] = true
			}

			if _, err := tx.ExecContext(c.Context, `
				INSERT INTO inventory_session_items (session_id, item_name, stock_quantity, category, unit, par_level)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, row.SessionID, row.ItemName, row.StockQuantity, row.Category, row.Unit, row.ParLevel); err != nil {
				return fmt.Errorf("failed to insert item %s: %w", row.ItemName, err)
			}
		}
		log.Info().Int("sessions", len(seen)).Int("items", len(rows)).Msg("counts seeded")
		return nil
	})
	return err
}
