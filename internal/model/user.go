package model

import "time"

const (
	RoleAdopter   = "adopter"
	RoleVolunteer = "volunteer"
)

type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Shelter   Species   `json:"shelter,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
