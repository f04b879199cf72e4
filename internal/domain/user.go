package domain

import "time"

// UserRole enumerates account roles across the platform.
type UserRole string

const (
	RoleCitizen        UserRole = "citizen"
	RoleDistrictAdmin  UserRole = "district_admin"
	RoleMunicipalAdmin UserRole = "municipal_admin"
	RoleStaff          UserRole = "staff"
)

// User is an authenticated account. Citizens never log in to the admin
// surface; field staff are scoped to a single district.
type User struct {
	ID             string
	Email          string
	PasswordHash   string
	Role           UserRole
	MunicipalityID string
	DistrictID     *string
	Name           string
	CreatedAt      time.Time
}
