package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/adoptrack/internal/model"
	"github.com/dukerupert/adoptrack/internal/period"
)

// ReportStore answers report-presence questions for a single species.
type ReportStore struct {
	db      *sql.DB
	species model.Species
}

func NewReportStore(db *sql.DB, species model.Species) *ReportStore {
	return &ReportStore{db: db, species: species}
}

const reportCols = `id, species, adoption_id, report_date, photo, text, created_at`

func scanReport(scanner interface{ Scan(...any) error }) (*model.Report, error) {
	var r model.Report
	var species, date string
	var photo, text sql.NullString
	err := scanner.Scan(&r.ID, &species, &r.AdoptionID, &date, &photo, &text, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	r.Species = model.Species(species)
	if r.Date, err = period.ParseDate(date); err != nil {
		return nil, err
	}
	if photo.Valid {
		r.Photo = &photo.String
	}
	if text.Valid {
		r.Text = &text.String
	}
	return &r, nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

// Create records a report for an adoption of this species.
func (s *ReportStore) Create(ctx context.Context, adoptionID int64, date time.Time, photo, text *string) (*model.Report, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO reports (species, adoption_id, report_date, photo, text) VALUES (?, ?, ?, ?, ?)`,
		string(s.species), adoptionID, period.Format(date), nullString(photo), nullString(text),
	)
	if err != nil {
		return nil, fmt.Errorf("insert report: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+reportCols+` FROM reports WHERE id = ?`, id)
	r, err := scanReport(row)
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	return r, nil
}

// CompleteOn maps adoption ID to report date for every report filed on d
// that carries both a photo and a text.
func (s *ReportStore) CompleteOn(ctx context.Context, d time.Time) (map[int64]time.Time, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT adoption_id, report_date FROM reports
		 WHERE species = ? AND report_date = ?
		   AND photo IS NOT NULL AND photo != ''
		   AND text IS NOT NULL AND text != ''`,
		string(s.species), period.Format(d),
	)
	if err != nil {
		return nil, fmt.Errorf("list complete %s reports: %w", s.species, err)
	}
	defer rows.Close()

	out := make(map[int64]time.Time)
	for rows.Next() {
		var adoptionID int64
		var date string
		if err := rows.Scan(&adoptionID, &date); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		day, err := period.ParseDate(date)
		if err != nil {
			return nil, err
		}
		out[adoptionID] = day
	}
	return out, rows.Err()
}

// Latest returns the most recent report for the adoption regardless of
// completeness, or nil if none was ever filed.
func (s *ReportStore) Latest(ctx context.Context, adoptionID int64) (*model.Report, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+reportCols+` FROM reports WHERE species = ? AND adoption_id = ?
		 ORDER BY report_date DESC, id DESC LIMIT 1`,
		string(s.species), adoptionID,
	)
	r, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest report: %w", err)
	}
	return r, nil
}

func (s *ReportStore) ListByAdoption(ctx context.Context, adoptionID int64) ([]model.Report, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+reportCols+` FROM reports WHERE species = ? AND adoption_id = ? ORDER BY report_date ASC, id ASC`,
		string(s.species), adoptionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var reports []model.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, *r)
	}
	return reports, rows.Err()
}
