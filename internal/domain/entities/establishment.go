package entities

import (
	"strings"
	"time"
)

// Establishment identifies a queryable food establishment.
// The unique key is (ProgramIdentifier, City), compared case-insensitively.
type Establishment struct {
	ProgramIdentifier string    `json:"program_identifier" csv:"program_identifier" yaml:"program_identifier" db:"program_identifier"`
	Name              string    `json:"name" csv:"name" yaml:"name" db:"name"`
	City              string    `json:"city" csv:"city" yaml:"city" db:"city"`
	UpdatedAt         time.Time `json:"updated_at,omitempty" csv:"-" yaml:"-" db:"updated_at"`
}

// Key returns the normalized identity key, or "" when either part is blank.
func (e Establishment) Key() string {
	return EstablishmentKey(e.ProgramIdentifier, e.City)
}

// SameContent reports whether both entries carry identical descriptor fields.
// UpdatedAt is ignored.
func (e Establishment) SameContent(other Establishment) bool {
	return e.ProgramIdentifier == other.ProgramIdentifier &&
		e.Name == other.Name &&
		e.City == other.City
}

// Queryable reports whether both identifier and city are present.
func (e Establishment) Queryable() bool {
	return strings.TrimSpace(e.ProgramIdentifier) != "" && strings.TrimSpace(e.City) != ""
}

// EstablishmentKey builds the case-insensitive identity key.
func EstablishmentKey(programIdentifier, city string) string {
	pid := strings.ToUpper(strings.TrimSpace(programIdentifier))
	c := strings.ToUpper(strings.TrimSpace(city))
	if pid == "" || c == "" {
		return ""
	}
	return pid + "|" + c
}
