package domain

import "time"

// Municipality is the top-level administrative unit.
type Municipality struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// District belongs to exactly one municipality; every request is filed
// against a district.
type District struct {
	ID             string
	MunicipalityID string
	Name           string
	CreatedAt      time.Time
}
