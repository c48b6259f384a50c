package models

const (
	UserFieldEmail = "email"
	UserFieldRole  = "role"
)

const RoleAdmin = "admin"

// IsAdmin reports whether a stored user holds the admin role. A nil
// document, a missing role or a non-string role are all non-admin.
func IsAdmin(user Document) bool {
	if user == nil {
		return false
	}
	role, ok := user[UserFieldRole].(string)
	return ok && role == RoleAdmin
}
