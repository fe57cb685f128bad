package models

import "time"

// User is the identity record consumed by the ledger. Accounts hang off users
// via user_id; the ledger never writes this table.
type User struct {
	ID          int        `json:"id" example:"1"`
	Email       string     `json:"email" example:"user@example.com"`
	FirstName   string     `json:"FirstName" example:"Ada"`
	LastName    string     `json:"LastName" example:"Obi"`
	PhoneNumber string     `json:"PhoneNumber" example:"+2348012345678"`
	Role        string     `json:"role"`
	IsActive    bool       `json:"is_active"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Property is the listing record a funding account is keyed on
type Property struct {
	ID            int       `json:"id" db:"id"`
	Title         string    `json:"title" db:"title"`
	FundingTarget float64   `json:"funding_target" db:"funding_target"`
	Status        string    `json:"status" db:"status"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
