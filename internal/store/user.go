package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/adoptrack/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var shelter sql.NullString
	err := scanner.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &shelter, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	if shelter.Valid {
		u.Shelter = model.Species(shelter.String)
	}
	return &u, nil
}

const userCols = `id, name, email, role, shelter, created_at`

// Create inserts a user. An empty shelter leaves the affiliation unset.
func (s *UserStore) Create(ctx context.Context, name, email, role string, shelter model.Species) (*model.User, error) {
	var sh sql.NullString
	if shelter != "" {
		sh = sql.NullString{String: string(shelter), Valid: true}
	}
	if role == "" {
		role = model.RoleAdopter
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO users (name, email, role, shelter) VALUES (?, ?, ?, ?)`,
		name, email, role, sh,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *UserStore) GetByID(ctx context.Context, id int64) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) SetShelter(ctx context.Context, id int64, shelter model.Species) (*model.User, error) {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET shelter = ? WHERE id = ?`, string(shelter), id)
	if err != nil {
		return nil, fmt.Errorf("update user shelter: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *UserStore) List(ctx context.Context) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userCols+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}
