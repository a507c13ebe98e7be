package models

import "strings"

// Gender codes as stored by the community backend.
const (
	GenderMale   = "H"
	GenderFemale = "F"
)

// Person is a community member as seen by the genealogy view.
type Person struct {
	ID        int64   `json:"id" yaml:"id"`
	FirstName string  `json:"first_name" yaml:"first_name"`
	LastName  string  `json:"last_name" yaml:"last_name"`
	Gender    string  `json:"gender" yaml:"gender"`                             // 'H' or 'F'
	BirthYear *int    `json:"birth_year,omitempty" yaml:"birth_year,omitempty"` // plausibility checks only
	Photo     *string `json:"photo,omitempty" yaml:"photo,omitempty"`
}

// DisplayName returns the given name followed by the family name.
func (p Person) DisplayName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// IsValidGender checks if the given gender code is one of the two known values.
func IsValidGender(gender string) bool {
	return gender == GenderMale || gender == GenderFemale
}
