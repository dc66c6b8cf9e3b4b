package models

import "time"

// Account is a registered user as stored by the credential store
type Account struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AccountSummary is the public projection of an account
type AccountSummary struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Summary drops everything but the public fields
func (a *Account) Summary() *AccountSummary {
	return &AccountSummary{
		ID:       a.ID,
		Username: a.Username,
		Email:    a.Email,
	}
}
