package models

import "time"

// AccessRequest statuses (lowercase, the user-facing restricted-book flow).
const (
	AccessStatusPending  = "pending"
	AccessStatusApproved = "approved"
	AccessStatusRejected = "rejected"
)

// UploadRequest / BookRequest statuses (capitalized, the staff-facing flows).
const (
	ReviewStatusPending  = "Pending"
	ReviewStatusApproved = "Approved"
	ReviewStatusRejected = "Rejected"
)

// BookPermission is a direct grant: a (book, user) or (book, role) pair
// conferring unconditional access to a restricted book. Created
// administratively, never through the request workflow.
type BookPermission struct {
	ID        int64     `json:"id"`
	BookID    int64     `json:"book_id" db:"book_id"`
	UserID    *int64    `json:"user_id,omitempty" db:"user_id"`
	RoleID    *int64    `json:"role_id,omitempty" db:"role_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// AccessRequest tracks a user's application to unlock a restricted book.
// Absence of a row means "not requested"; approved and rejected are stable
// until the same user re-submits for the same book.
type AccessRequest struct {
	ID     int64 `json:"id"`
	UserID int64 `json:"user_id" db:"user_id"`
	BookID int64 `json:"book_id" db:"book_id"`

	// Applicant form data.
	Name          string  `json:"name" db:"name"`
	Age           *string `json:"age,omitempty" db:"age"`
	Location      *string `json:"location,omitempty" db:"location"`
	Whatsapp      string  `json:"whatsapp" db:"whatsapp"`
	Qualification *string `json:"qualification,omitempty" db:"qualification"`
	Institution   *string `json:"institution,omitempty" db:"institution"`
	Teachers      *string `json:"teachers,omitempty" db:"teachers"`
	Purpose       *string `json:"purpose,omitempty" db:"purpose"`
	PreviousWork  *string `json:"previous_work,omitempty" db:"previous_work"`

	Status          string     `json:"status" db:"status"`
	RejectionReason *string    `json:"rejection_reason,omitempty" db:"rejection_reason"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty" db:"updated_at"`

	// Presentation fields joined from the book row; deleted books keep the
	// request visible in history.
	BookTitle *string `json:"book_title,omitempty"`
	BookCover *string `json:"book_cover,omitempty"`
}

// BookRequest is the borrow/delivery request flavor of the access workflow,
// reviewed under the REQUEST_APPROVE permission rather than an admin check.
type BookRequest struct {
	ID              int64      `json:"id"`
	UserID          int64      `json:"user_id" db:"user_id"`
	BookID          int64      `json:"book_id" db:"book_id"`
	RequestReason   string     `json:"request_reason" db:"request_reason"`
	DeliveryAddress string     `json:"delivery_address" db:"delivery_address"`
	ContactNumber   *string    `json:"contact_number,omitempty" db:"contact_number"`
	RequestedDays   int64      `json:"requested_days" db:"requested_days"`
	Status          string     `json:"status" db:"status"`
	RejectionReason *string    `json:"rejection_reason,omitempty" db:"rejection_reason"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty" db:"updated_at"`

	Book *Book `json:"book,omitempty"`
	User *User `json:"user,omitempty"`
}

// UploadRequest is the staff content-approval state machine. One row per
// book; reviewing it flips the book's is_approved flag.
type UploadRequest struct {
	ID            int64      `json:"id"`
	BookID        int64      `json:"book_id" db:"book_id"`
	SubmittedByID *int64     `json:"submitted_by_id,omitempty" db:"submitted_by_id"`
	ReviewedByID  *int64     `json:"reviewed_by_id,omitempty" db:"reviewed_by_id"`
	Status        string     `json:"status" db:"status"`
	Remarks       *string    `json:"remarks,omitempty" db:"remarks"`
	SubmittedAt   time.Time  `json:"submitted_at" db:"submitted_at"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty" db:"reviewed_at"`

	Book        *Book `json:"book,omitempty"`
	SubmittedBy *User `json:"submitted_by,omitempty"`
	ReviewedBy  *User `json:"reviewed_by,omitempty"`
}
