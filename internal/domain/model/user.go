package model

import "strings"

// User is the profile of a badge recipient.
type User struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
}

// FullName joins first and last name, or returns "" when both are blank.
func (u User) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
}
