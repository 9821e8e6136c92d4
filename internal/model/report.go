package model

import "time"

// Report is one daily care submission for an adoption. Photo holds a storage
// key; ingestion of the file itself happens elsewhere.
type Report struct {
	ID         int64     `json:"id"`
	Species    Species   `json:"species"`
	AdoptionID int64     `json:"adoption_id"`
	Date       time.Time `json:"date"`
	Photo      *string   `json:"photo,omitempty"`
	Text       *string   `json:"text,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Complete is true when both a photo and a text are present and non-empty.
func (r Report) Complete() bool {
	return r.Photo != nil && *r.Photo != "" && r.Text != nil && *r.Text != ""
}
