package domain

import "time"

// Profile holds optional contact details attached after registration.
type Profile struct {
	UserID     string
	Phone      string
	Address    string
	City       string
	PostalCode string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
