package models

const RoleAdmin = "admin"

// CurrentUser is the authenticated caller as established by the auth middleware.
type CurrentUser struct {
	ID    string
	Role  string
	Email string
}

func (u CurrentUser) IsAdmin() bool {
	return u.Role == RoleAdmin
}
