package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/adoptrack/internal/model"
)

type AlertStore struct {
	db *sql.DB
}

func NewAlertStore(db *sql.DB) *AlertStore {
	return &AlertStore{db: db}
}

const alertCols = `id, user_id, message, created_at, resolved_at`

func scanAlert(scanner interface{ Scan(...any) error }) (*model.VolunteerAlert, error) {
	var a model.VolunteerAlert
	var resolved sql.NullTime
	if err := scanner.Scan(&a.ID, &a.UserID, &a.Message, &a.CreatedAt, &resolved); err != nil {
		return nil, err
	}
	if resolved.Valid {
		a.ResolvedAt = &resolved.Time
	}
	return &a, nil
}

func (s *AlertStore) Create(ctx context.Context, userID int64, at time.Time, message string) (*model.VolunteerAlert, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO volunteer_alerts (user_id, message, created_at) VALUES (?, ?, ?)`,
		userID, message, at.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert volunteer alert: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *AlertStore) GetByID(ctx context.Context, id int64) (*model.VolunteerAlert, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+alertCols+` FROM volunteer_alerts WHERE id = ?`, id)
	a, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get volunteer alert: %w", err)
	}
	return a, nil
}

// List returns alerts newest first. With openOnly set, resolved alerts are skipped.
func (s *AlertStore) List(ctx context.Context, openOnly bool) ([]model.VolunteerAlert, error) {
	query := `SELECT ` + alertCols + ` FROM volunteer_alerts`
	if openOnly {
		query += ` WHERE resolved_at IS NULL`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list volunteer alerts: %w", err)
	}
	defer rows.Close()

	var alerts []model.VolunteerAlert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan volunteer alert: %w", err)
		}
		alerts = append(alerts, *a)
	}
	return alerts, rows.Err()
}

// Resolve marks an alert handled. Resolving twice keeps the first timestamp.
func (s *AlertStore) Resolve(ctx context.Context, id int64, at time.Time) (*model.VolunteerAlert, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE volunteer_alerts SET resolved_at = COALESCE(resolved_at, ?) WHERE id = ?`,
		at.UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("resolve volunteer alert: %w", err)
	}
	return s.GetByID(ctx, id)
}
