package models

// UserProfile is the user record returned by the content API on login
// and sign-up. It lives in the session only, never in the local database.
type UserProfile struct {
	ID       uint   `json:"id"`
	Nome     string `json:"nome"`
	Email    string `json:"email"`
	Telefone string `json:"telefone,omitempty"`
}
