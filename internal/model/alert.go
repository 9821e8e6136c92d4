package model

import "time"

// VolunteerAlert is a staff-facing escalation created by the compliance sweep.
type VolunteerAlert struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	Message    string     `json:"message"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}
