package domain

import "time"

// User is the identity record owned by the user-management side; the
// authentication core only reads it. Login lookup uses the natural key
// (name, site_id, department_id).
type User struct {
	ID                 int64
	Name               string
	Email              string // optional contact address for takeover passcodes
	PasswordHash       string
	RoleID             int64
	RoleName           string
	SiteID             int64
	DepartmentID       int64
	MustChangePassword bool
	DeletedAt          *time.Time
}

// Summary is the public projection returned to clients after login or
// validation. It never carries the password hash.
type Summary struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	Role               string `json:"role"`
	SiteID             int64  `json:"site_id"`
	DepartmentID       int64  `json:"department_id"`
	MustChangePassword bool   `json:"must_change_password"`
}

// Summary returns the public projection of u.
func (u *User) Summary() Summary {
	return Summary{
		ID:                 u.ID,
		Name:               u.Name,
		Role:               u.RoleName,
		SiteID:             u.SiteID,
		DepartmentID:       u.DepartmentID,
		MustChangePassword: u.MustChangePassword,
	}
}
