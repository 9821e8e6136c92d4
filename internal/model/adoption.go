package model

import (
	"time"

	"github.com/dukerupert/adoptrack/internal/period"
)

type Adoption struct {
	ID                 int64     `json:"id"`
	Species            Species   `json:"species"`
	UserID             int64     `json:"user_id"`
	PetID              int64     `json:"pet_id"`
	AdoptionDate       time.Time `json:"adoption_date"`
	TrialEndDate       time.Time `json:"trial_end_date"`
	TrialExtensionDays int       `json:"trial_extension_days"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Window is the adoption's active period [AdoptionDate, TrialEndDate].
func (a Adoption) Window() period.Interval {
	return period.Interval{Start: period.Day(a.AdoptionDate), End: period.Day(a.TrialEndDate)}
}

// ActiveOn reports whether the trial window contains d.
func (a Adoption) ActiveOn(d time.Time) bool {
	return a.Window().Contains(d)
}
