package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/adoptrack/internal/model"
	"github.com/dukerupert/adoptrack/internal/period"
)

// ErrOverlap is returned by the exclusive writes when the user or the pet
// already has an adoption whose window shares a day with the requested one.
var ErrOverlap = errors.New("overlapping adoption")

// ErrStale is returned by UpdateTrial when the stored trial end no longer
// matches the one the caller read.
var ErrStale = errors.New("trial end changed concurrently")

// Party selects which side of an adoption an overlap query is keyed on.
type Party int

const (
	PartyUser Party = iota
	PartyPet
)

func (p Party) column() string {
	if p == PartyPet {
		return "pet_id"
	}
	return "user_id"
}

func (p Party) String() string {
	if p == PartyPet {
		return "pet"
	}
	return "user"
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// AdoptionStore holds adoptions of a single species. One instance exists per
// shelter partition; all of them share the same table.
type AdoptionStore struct {
	db      *sql.DB
	species model.Species
	now     func() time.Time
}

func NewAdoptionStore(db *sql.DB, species model.Species) *AdoptionStore {
	return &AdoptionStore{db: db, species: species, now: time.Now}
}

const adoptionCols = `id, species, user_id, pet_id, adoption_date, trial_end_date, trial_extension_days, created_at, updated_at`

// overlapCond matches stored windows sharing a day with [start, end].
// Arguments are passed as (end, start).
const overlapCond = `adoption_date <= ? AND trial_end_date >= ?`

func scanAdoption(scanner interface{ Scan(...any) error }) (*model.Adoption, error) {
	var a model.Adoption
	var species, start, end string
	err := scanner.Scan(
		&a.ID, &species, &a.UserID, &a.PetID, &start, &end,
		&a.TrialExtensionDays, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Species = model.Species(species)
	if a.AdoptionDate, err = period.ParseDate(start); err != nil {
		return nil, err
	}
	if a.TrialEndDate, err = period.ParseDate(end); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *AdoptionStore) list(ctx context.Context, q querier, where string, args ...any) ([]model.Adoption, error) {
	query := `SELECT ` + adoptionCols + ` FROM adoptions WHERE species = ?`
	if where != "" {
		query += ` AND ` + where
	}
	query += ` ORDER BY id ASC`

	rows, err := q.QueryContext(ctx, query, append([]any{string(s.species)}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("list %s adoptions: %w", s.species, err)
	}
	defer rows.Close()

	var adoptions []model.Adoption
	for rows.Next() {
		a, err := scanAdoption(rows)
		if err != nil {
			return nil, fmt.Errorf("scan adoption: %w", err)
		}
		adoptions = append(adoptions, *a)
	}
	return adoptions, rows.Err()
}

func (s *AdoptionStore) get(ctx context.Context, q querier, id int64) (*model.Adoption, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+adoptionCols+` FROM adoptions WHERE id = ? AND species = ?`,
		id, string(s.species),
	)
	a, err := scanAdoption(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get adoption: %w", err)
	}
	return a, nil
}

func (s *AdoptionStore) GetByID(ctx context.Context, id int64) (*model.Adoption, error) {
	return s.get(ctx, s.db, id)
}

func (s *AdoptionStore) List(ctx context.Context) ([]model.Adoption, error) {
	return s.list(ctx, s.db, "")
}

// ListActiveOn returns adoptions whose window contains d.
func (s *AdoptionStore) ListActiveOn(ctx context.Context, d time.Time) ([]model.Adoption, error) {
	day := period.Format(d)
	return s.list(ctx, s.db, overlapCond, day, day)
}

// ListTrialEndingFrom returns adoptions with trial_end_date >= d.
func (s *AdoptionStore) ListTrialEndingFrom(ctx context.Context, d time.Time) ([]model.Adoption, error) {
	return s.list(ctx, s.db, `trial_end_date >= ?`, period.Format(d))
}

// ListTrialEndingOn returns adoptions whose trial ends exactly on d.
func (s *AdoptionStore) ListTrialEndingOn(ctx context.Context, d time.Time) ([]model.Adoption, error) {
	return s.list(ctx, s.db, `trial_end_date = ?`, period.Format(d))
}

// ListOverlapping returns adoptions of the given user or pet whose window
// shares a day with iv. excludeID (when non-zero) is left out of the result.
func (s *AdoptionStore) ListOverlapping(ctx context.Context, party Party, partyID int64, iv period.Interval, excludeID int64) ([]model.Adoption, error) {
	return s.listOverlapping(ctx, s.db, party, partyID, iv, excludeID)
}

func (s *AdoptionStore) listOverlapping(ctx context.Context, q querier, party Party, partyID int64, iv period.Interval, excludeID int64) ([]model.Adoption, error) {
	return s.list(ctx, q,
		party.column()+` = ? AND id != ? AND `+overlapCond,
		partyID, excludeID, period.Format(iv.End), period.Format(iv.Start),
	)
}

func (s *AdoptionStore) checkFree(ctx context.Context, q querier, userID, petID int64, iv period.Interval, excludeID int64) error {
	for _, p := range []struct {
		party Party
		id    int64
	}{{PartyUser, userID}, {PartyPet, petID}} {
		busy, err := s.listOverlapping(ctx, q, p.party, p.id, iv, excludeID)
		if err != nil {
			return err
		}
		if len(busy) > 0 {
			return fmt.Errorf("%w: %s %d has adoption %d in %s", ErrOverlap, p.party, p.id, busy[0].ID, busy[0].Window())
		}
	}
	return nil
}

// Create inserts an adoption for window iv unless the user or the pet is
// already busy during it. The check and the insert share one transaction.
func (s *AdoptionStore) Create(ctx context.Context, userID, petID int64, iv period.Interval) (*model.Adoption, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := s.checkFree(ctx, tx, userID, petID, iv, 0); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	result, err := tx.ExecContext(ctx,
		`INSERT INTO adoptions (species, user_id, pet_id, adoption_date, trial_end_date, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(s.species), userID, petID, period.Format(iv.Start), period.Format(iv.End), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert adoption: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	a, err := s.get(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit adoption: %w", err)
	}
	return a, nil
}

// UpdateTrial moves the trial end of adoption id from expectedEnd to
// trialEnd and adds the day difference to its extension counter. It fails
// with ErrStale when the stored trial end is no longer expectedEnd, and with
// ErrOverlap when the new window collides with another adoption of the same
// user or pet. Returns nil when the adoption does not exist.
func (s *AdoptionStore) UpdateTrial(ctx context.Context, id int64, expectedEnd, trialEnd time.Time) (*model.Adoption, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	cur, err := s.get(ctx, tx, id)
	if err != nil || cur == nil {
		return nil, err
	}
	if !period.Day(cur.TrialEndDate).Equal(period.Day(expectedEnd)) {
		return nil, fmt.Errorf("%w: adoption %d now ends %s", ErrStale, id, period.Format(cur.TrialEndDate))
	}

	iv, err := period.New(cur.AdoptionDate, trialEnd)
	if err != nil {
		return nil, err
	}
	if err := s.checkFree(ctx, tx, cur.UserID, cur.PetID, iv, id); err != nil {
		return nil, err
	}

	added := period.DaysBetween(cur.TrialEndDate, trialEnd)
	_, err = tx.ExecContext(ctx,
		`UPDATE adoptions SET trial_end_date = ?, trial_extension_days = trial_extension_days + ?, updated_at = ?
		 WHERE id = ? AND species = ? AND trial_end_date = ?`,
		period.Format(trialEnd), added, s.now().UTC(), id, string(s.species), period.Format(cur.TrialEndDate),
	)
	if err != nil {
		return nil, fmt.Errorf("update trial: %w", err)
	}

	a, err := s.get(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit trial update: %w", err)
	}
	return a, nil
}

func (s *AdoptionStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM adoptions WHERE id = ? AND species = ?`, id, string(s.species))
	if err != nil {
		return fmt.Errorf("delete adoption: %w", err)
	}
	return nil
}
