package model

import "time"

type Pet struct {
	ID        int64     `json:"id"`
	Species   Species   `json:"species"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
