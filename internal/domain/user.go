package domain

// RoleAdmin grants access to the admin console.
const RoleAdmin = "ADMIN"

// Role is one granted authority.
type Role struct {
	Role string `json:"role"`
}

// User is the authenticated profile returned by /users/me and /auth/register.
type User struct {
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Email   string `json:"email"`
	Roles   []Role `json:"roles"`
}

// HasRole reports whether any of the user's roles equals role.
func (u User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r.Role == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the user holds the ADMIN role.
func (u User) IsAdmin() bool {
	return u.HasRole(RoleAdmin)
}

// FullName joins name and surname.
func (u User) FullName() string {
	switch {
	case u.Name == "":
		return u.Surname
	case u.Surname == "":
		return u.Name
	default:
		return u.Name + " " + u.Surname
	}
}

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the issued bearer token.
type LoginResponse struct {
	AccessToken string `json:"accessToken"`
}

// Registration is the sign-up request body.
type Registration struct {
	Name     string `json:"name" validate:"required,max=100"`
	Surname  string `json:"surname" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=4"`
}
