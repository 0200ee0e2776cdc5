package models

import "time"

// Post is an announcement shown on the public site.
type Post struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title" db:"title"`
	Content   string     `json:"content" db:"content"`
	ImageURL  *string    `json:"image_url,omitempty" db:"image_url"`
	IsActive  bool       `json:"is_active" db:"is_active"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// DonationInfo is the single-row donation page content (bank details etc).
type DonationInfo struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title" db:"title"`
	Description   *string   `json:"description,omitempty" db:"description"`
	BankName      *string   `json:"bank_name,omitempty" db:"bank_name"`
	AccountName   *string   `json:"account_name,omitempty" db:"account_name"`
	AccountNumber *string   `json:"account_number,omitempty" db:"account_number"`
	IBAN          *string   `json:"iban,omitempty" db:"iban"`
	ContactEmail  *string   `json:"contact_email,omitempty" db:"contact_email"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
