package models

import "time"

// Copy statuses.
const (
	CopyStatusAvailable = "Available"
	CopyStatusNew       = "New"
	CopyStatusIssued    = "Issued"
	CopyStatusLost      = "Lost"
)

// Issue statuses.
const (
	IssueStatusIssued   = "Issued"
	IssueStatusReturned = "Returned"
	IssueStatusOverdue  = "Overdue"
)

// BookCopy is an individual physical copy tracked by barcode/serial.
type BookCopy struct {
	ID         int64      `json:"id"`
	BookID     int64      `json:"book_id" db:"book_id"`
	LocationID int64      `json:"location_id" db:"location_id"`
	Status     string     `json:"status" db:"status"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`

	Book     *Book     `json:"book,omitempty"`
	Location *Location `json:"location,omitempty"`
}

// IssuedBook records a copy being lent to a user.
type IssuedBook struct {
	ID               int64      `json:"id"`
	UserID           int64      `json:"user_id" db:"user_id"`
	CopyID           int64      `json:"copy_id" db:"copy_id"`
	IssueDate        time.Time  `json:"issue_date" db:"issue_date"`
	DueDate          *time.Time `json:"due_date,omitempty" db:"due_date"`
	ActualReturnDate *time.Time `json:"actual_return_date,omitempty" db:"actual_return_date"`
	Status           string     `json:"status" db:"status"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`

	User *User     `json:"user,omitempty"`
	Copy *BookCopy `json:"copy,omitempty"`
}
