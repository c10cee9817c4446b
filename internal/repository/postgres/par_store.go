package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/autopar/backend-go/internal/domain"
	"github.com/andresuchdata/autopar/backend-go/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type parStore struct {
	db *DB
}

func NewParStore(db *DB) *parStore {
	return &parStore{db: db}
}

var _ repository.ParStore = (*parStore)(nil)

type observationRow struct {
	SessionID string `db:"session_id"`
	domain.ItemObservation
}

func (r *parStore) LoadApprovedCounts(ctx context.Context, scope domain.Scope, limit int) ([]domain.ApprovedCount, error) {
	query := `
		SELECT id, list_id, approved_at
		FROM inventory_sessions
		WHERE restaurant_id = $1
			AND status = 'approved'
			AND approved_at IS NOT NULL
			AND ($2 = '' OR list_id = $2)
		ORDER BY approved_at DESC, id
		LIMIT $3
	`

	var counts []domain.ApprovedCount
	if err := sqlx.SelectContext(ctx, r.db, &counts, query, scope.RestaurantID, scope.ListID, limit); err != nil {
		return nil, classify(fmt.Errorf("failed to load approved sessions: %w", err))
	}
	if len(counts) == 0 {
		return counts, nil
	}

	ids := make([]string, len(counts))
	for i, c := range counts {
		ids[i] = c.SessionID
	}

	itemsQuery := `
		SELECT session_id, item_name, stock_quantity, category, unit, par_level
		FROM inventory_session_items
		WHERE session_id = ANY($1)
		ORDER BY session_id, id
	`

	var rows []observationRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, itemsQuery, pq.Array(ids)); err != nil {
		return nil, classify(fmt.Errorf("failed to load session items: %w", err))
	}

	return attachObservations(counts, rows), nil
}

func attachObservations(counts []domain.ApprovedCount, rows []observationRow) []domain.ApprovedCount {
	index := make(map[string]int, len(counts))
	for i, c := range counts {
		index[c.SessionID] = i
	}
	for _, row := range rows {
		if i, ok := index[row.SessionID]; ok {
			counts[i].Observations = append(counts[i].Observations, row.ItemObservation)
		}
	}
	return counts
}

func (r *parStore) ListGuides(ctx context.Context, restaurantID, listID string) ([]domain.Guide, error) {
	query := `
		SELECT id, restaurant_id, list_id, name, created_at
		FROM par_guides
		WHERE restaurant_id = $1 AND ($2 = '' OR list_id = $2)
		ORDER BY created_at, id
	`

	var guides []domain.Guide
	if err := sqlx.SelectContext(ctx, r.db, &guides, query, restaurantID, listID); err != nil {
		return nil, classify(fmt.Errorf("failed to list guides: %w", err))
	}
	return guides, nil
}

func (r *parStore) GetGuide(ctx context.Context, guideID string) (*domain.Guide, error) {
	query := `
		SELECT id, restaurant_id, list_id, name, created_at
		FROM par_guides
		WHERE id = $1
	`

	var g domain.Guide
	err := r.db.GetContext(ctx, &g, query, guideID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(fmt.Errorf("failed to get guide: %w", err))
	}
	return &g, nil
}

func (r *parStore) LoadGuideItems(ctx context.Context, guideIDs []string) ([]domain.GuideItem, error) {
	if len(guideIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, guide_id, item_name, category, unit, par_level, updated_at
		FROM par_guide_items
		WHERE guide_id = ANY($1)
		ORDER BY guide_id, item_name
	`

	var items []domain.GuideItem
	if err := sqlx.SelectContext(ctx, r.db, &items, query, pq.Array(guideIDs)); err != nil {
		return nil, classify(fmt.Errorf("failed to load guide items: %w", err))
	}
	return items, nil
}

func (r *parStore) FindGuideItem(ctx context.Context, guideID, itemName string) (*domain.GuideItem, error) {
	query := `
		SELECT id, guide_id, item_name, category, unit, par_level, updated_at
		FROM par_guide_items
		WHERE guide_id = $1 AND lower(btrim(item_name)) = $2
		LIMIT 1
	`

	var it domain.GuideItem
	err := r.db.GetContext(ctx, &it, query, guideID, domain.NormalizeItemKey(itemName))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(fmt.Errorf("failed to find guide item: %w", err))
	}
	return &it, nil
}

func (r *parStore) UpsertGuideItem(ctx context.Context, guideID string, item domain.GuideItem) (domain.GuideItem, error) {
	now := time.Now().UTC()

	if item.ID != "" {
		query := `
			UPDATE par_guide_items
			SET par_level = $1, updated_at = $2
			WHERE id = $3 AND guide_id = $4
			RETURNING id, guide_id, item_name, category, unit, par_level, updated_at
		`
		var out domain.GuideItem
		err := r.db.GetContext(ctx, &out, query, item.ParLevel, now, item.ID, guideID)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.GuideItem{}, domain.ErrNotFound
		}
		if err != nil {
			return domain.GuideItem{}, classify(fmt.Errorf("failed to update guide item: %w", err))
		}
		return out, nil
	}

	// A concurrent insert of the same name lands on the unique index and
	// degrades to a par_level update.
	query := `
		INSERT INTO par_guide_items (id, guide_id, item_name, category, unit, par_level, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (guide_id, (lower(btrim(item_name))))
		DO UPDATE SET par_level = EXCLUDED.par_level, updated_at = EXCLUDED.updated_at
		RETURNING id, guide_id, item_name, category, unit, par_level, updated_at
	`
	var out domain.GuideItem
	err := r.db.GetContext(ctx, &out, query,
		uuid.NewString(), guideID, item.ItemName, item.Category, item.Unit, item.ParLevel, now)
	if err != nil {
		return domain.GuideItem{}, classify(fmt.Errorf("failed to insert guide item: %w", err))
	}
	return out, nil
}

func (r *parStore) CreateGuide(ctx context.Context, scope domain.Scope, name string) (string, error) {
	id := uuid.NewString()
	query := `
		INSERT INTO par_guides (id, restaurant_id, list_id, name, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`
	if _, err := r.db.ExecContext(ctx, query, id, scope.RestaurantID, scope.ListID, name); err != nil {
		return "", classify(fmt.Errorf("failed to create guide: %w", err))
	}
	return id, nil
}

func (r *parStore) NotificationExistsToday(ctx context.Context, restaurantID, notificationType, day string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM notification_records
			WHERE restaurant_id = $1 AND type = $2 AND notified_on = $3::date
		)
	`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, restaurantID, notificationType, day); err != nil {
		return false, classify(fmt.Errorf("failed to check notification record: %w", err))
	}
	return exists, nil
}

func (r *parStore) InsertNotification(ctx context.Context, batch domain.NotificationBatch) error {
	payload, err := json.Marshal(batch.Payload)
	if err != nil {
		return fmt.Errorf("encode notification payload: %w", err)
	}

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		rec := batch.Record
		res, err := tx.ExecContext(ctx, `
			INSERT INTO notification_records (restaurant_id, type, notified_on, created_at)
			VALUES ($1, $2, $3::date, NOW())
			ON CONFLICT DO NOTHING
		`, rec.RestaurantID, rec.Type, rec.NotifiedOn)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrAlreadyNotified
			}
			return classify(fmt.Errorf("failed to insert notification record: %w", err))
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrAlreadyNotified
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO notifications (restaurant_id, user_id, type, title, message, severity, payload, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, recipient := range batch.Recipients {
			if _, err := stmt.ExecContext(ctx,
				rec.RestaurantID,
				recipient.UserID,
				rec.Type,
				batch.Payload.Title,
				batch.Payload.Message,
				string(batch.Payload.Severity),
				payload,
			); err != nil {
				return classify(fmt.Errorf("failed to insert notification: %w", err))
			}
		}
		return nil
	})
}

func (r *parStore) ResolveRecipients(ctx context.Context, restaurantID string, mode domain.RecipientMode, custom []string) ([]domain.Recipient, error) {
	var (
		query string
		args  []interface{}
	)
	if mode == domain.RecipientsCustom {
		query = `
			SELECT user_id, role FROM restaurant_members
			WHERE restaurant_id = $1 AND user_id = ANY($2)
			ORDER BY user_id
		`
		args = []interface{}{restaurantID, pq.Array(custom)}
	} else {
		query = `
			SELECT user_id, role FROM restaurant_members
			WHERE restaurant_id = $1 AND role = ANY($2)
			ORDER BY user_id
		`
		roles := []string{string(domain.RoleOwner), string(domain.RoleManager)}
		args = []interface{}{restaurantID, pq.Array(roles)}
	}

	var out []domain.Recipient
	if err := sqlx.SelectContext(ctx, r.db, &out, query, args...); err != nil {
		return nil, classify(fmt.Errorf("failed to resolve recipients: %w", err))
	}
	return out, nil
}

func (r *parStore) GetNotificationSettings(ctx context.Context, restaurantID string) (*domain.NotificationSettings, error) {
	query := `
		SELECT mode, custom_recipients, in_app_enabled, timezone
		FROM notification_settings
		WHERE restaurant_id = $1
	`

	var (
		s    domain.NotificationSettings
		mode string
	)
	err := r.db.QueryRowContext(ctx, query, restaurantID).
		Scan(&mode, pq.Array(&s.CustomRecipients), &s.InAppEnabled, &s.Timezone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(fmt.Errorf("failed to load notification settings: %w", err))
	}
	s.Mode = domain.ParseRecipientMode(mode)
	return &s, nil
}
