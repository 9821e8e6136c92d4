package model

import (
	"fmt"
	"strings"
)

// Species identifies a shelter partition. Adoptions, pets and reports of
// different species never share uniqueness constraints.
type Species string

const (
	SpeciesDog Species = "dog"
	SpeciesCat Species = "cat"
)

// AllSpecies lists every partition in sweep order.
var AllSpecies = []Species{SpeciesDog, SpeciesCat}

func (s Species) Valid() bool {
	return s == SpeciesDog || s == SpeciesCat
}

// ParseSpecies accepts "dog"/"cat" in any case.
func ParseSpecies(s string) (Species, error) {
	sp := Species(strings.ToLower(strings.TrimSpace(s)))
	if !sp.Valid() {
		return "", fmt.Errorf("unknown shelter %q", s)
	}
	return sp, nil
}
