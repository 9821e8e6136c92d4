package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/adoptrack/internal/database"
	"github.com/dukerupert/adoptrack/internal/model"
	"github.com/dukerupert/adoptrack/internal/period"
	"github.com/dukerupert/adoptrack/internal/store"

	"github.com/urfave/cli/v2"
)

var seedPets = map[model.Species][]string{
	model.SpeciesDog: {"Rex", "Bella", "Max"},
	model.SpeciesCat: {"Tom", "Luna", "Oliver"},
}

// seedAdopter describes one sample adoption relative to today.
type seedAdopter struct {
	startedDaysAgo int
	report         string // "complete", "partial" or ""
}

// One adopter per outcome of the compliance sweep: compliant, reminded,
// escalated.
var seedAdopters = []seedAdopter{
	{startedDaysAgo: 3, report: "complete"},
	{startedDaysAgo: 1, report: "partial"},
	{startedDaysAgo: 5},
}

const seedTrialDays = 30

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Seed the database with sample adopters, pets, adoptions and reports",
	Action: func(c *cli.Context) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		loc, err := cfg.Location()
		if err != nil {
			return err
		}
		db, err := database.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		return seed(context.Background(), db, period.Today(time.Now(), loc), logger)
	},
}

func seed(ctx context.Context, db *sql.DB, today time.Time, logger *slog.Logger) error {
	users := store.NewUserStore(db)
	if _, err := users.Create(ctx, "Volunteer", "volunteer@example.com", model.RoleVolunteer, ""); err != nil {
		return fmt.Errorf("seed volunteer: %w", err)
	}

	for _, sp := range model.AllSpecies {
		pets := store.NewPetStore(db, sp)
		adoptions := store.NewAdoptionStore(db, sp)
		reports := store.NewReportStore(db, sp)

		for i, name := range seedPets[sp] {
			pet, err := pets.Create(ctx, name)
			if err != nil {
				return fmt.Errorf("seed pet %s: %w", name, err)
			}
			if i >= len(seedAdopters) {
				continue
			}
			sa := seedAdopters[i]

			adopterName := fmt.Sprintf("%s adopter %d", sp, i+1)
			email := fmt.Sprintf("%s.adopter%d@example.com", sp, i+1)
			u, err := users.Create(ctx, adopterName, email, model.RoleAdopter, sp)
			if err != nil {
				return fmt.Errorf("seed %s: %w", adopterName, err)
			}

			start := period.AddDays(today, -sa.startedDaysAgo)
			iv, err := period.New(start, period.AddDays(start, seedTrialDays))
			if err != nil {
				return err
			}
			a, err := adoptions.Create(ctx, u.ID, pet.ID, iv)
			if err != nil {
				return fmt.Errorf("seed adoption of %s: %w", name, err)
			}

			text := fmt.Sprintf("%s is settling in.", name)
			photo := fmt.Sprintf("reports/%s/%d.jpg", sp, a.ID)
			switch sa.report {
			case "complete":
				_, err = reports.Create(ctx, a.ID, today, &photo, &text)
			case "partial":
				_, err = reports.Create(ctx, a.ID, today, nil, &text)
			}
			if err != nil {
				return fmt.Errorf("seed report for %s: %w", name, err)
			}
		}
		logger.Info("seeded shelter", "species", sp, "pets", len(seedPets[sp]), "adoptions", len(seedAdopters))
	}
	return nil
}
