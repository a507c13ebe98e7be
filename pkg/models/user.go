package models

import "strings"

// User type constants returned by the backend on login.
const (
	UserTypeSuperAdmin = "super_admin"
	UserTypeAdmin      = "admin"
	UserTypeUser       = "user"
)

// ValidUserTypes contains all valid user type values.
var ValidUserTypes = []string{UserTypeSuperAdmin, UserTypeAdmin, UserTypeUser}

// IsValidUserType checks if the given user type is valid.
func IsValidUserType(userType string) bool {
	for _, t := range ValidUserTypes {
		if t == userType {
			return true
		}
	}
	return false
}

// Account is the authenticated identity returned by the backend login endpoint.
type Account struct {
	ID         int64  `json:"id"`
	UserType   string `json:"user_type"` // 'super_admin', 'admin', 'user'
	Email      string `json:"email"`
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name"`
	TragnobeID *int64 `json:"tragnobe_id,omitempty"` // clan the member belongs to
	Status     string `json:"status,omitempty"`      // 'en_attente', 'valide', 'rejete' for members
}

// DisplayName returns "First Last", or the e-mail when the backend sent no name.
func (a Account) DisplayName() string {
	if name := strings.TrimSpace(a.FirstName + " " + a.LastName); name != "" {
		return name
	}
	return a.Email
}

// LoginResult is the outcome of a successful backend login.
type LoginResult struct {
	AccessToken string
	Account     Account
}
