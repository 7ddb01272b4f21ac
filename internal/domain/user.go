package domain

import "time"

// User is the identity acting on tickets. Role and identifier never change
// once the account is registered.
type User struct {
	ID           string
	Username     string
	FirstName    string
	LastName     string
	PasswordHash string
	IsAdmin      bool
	IsActive     bool
	DateJoined   time.Time
}

// FullName returns "first last" when both names are set, otherwise the username.
func (u *User) FullName() string {
	if u.FirstName != "" && u.LastName != "" {
		return u.FirstName + " " + u.LastName
	}
	return u.Username
}
