package models

// Admin is the identity stored in the session after an OIDC login.
type Admin struct {
	Sub     string `json:"sub"` // OIDC subject identifier
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// IsAuthorized reports whether the identity is the configured admin.
// An empty adminSub never matches.
func (a *Admin) IsAuthorized(adminSub string) bool {
	return a != nil && adminSub != "" && a.Sub == adminSub
}

// DisplayName prefers the name claim, then email, then the subject.
func (a *Admin) DisplayName() string {
	switch {
	case a.Name != "":
		return a.Name
	case a.Email != "":
		return a.Email
	default:
		return a.Sub
	}
}
