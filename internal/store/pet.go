package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/adoptrack/internal/model"
)

// PetStore reads and writes pets of a single species.
type PetStore struct {
	db      *sql.DB
	species model.Species
}

func NewPetStore(db *sql.DB, species model.Species) *PetStore {
	return &PetStore{db: db, species: species}
}

func (s *PetStore) Species() model.Species { return s.species }

func (s *PetStore) Create(ctx context.Context, name string) (*model.Pet, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO pets (species, name) VALUES (?, ?)`, string(s.species), name,
	)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", s.species, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID returns nil when the pet does not exist in this species partition.
func (s *PetStore) GetByID(ctx context.Context, id int64) (*model.Pet, error) {
	var p model.Pet
	var species string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, species, name, created_at FROM pets WHERE id = ? AND species = ?`,
		id, string(s.species),
	).Scan(&p.ID, &species, &p.Name, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", s.species, err)
	}
	p.Species = model.Species(species)
	return &p, nil
}
