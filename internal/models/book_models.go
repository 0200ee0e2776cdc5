package models

import "time"

// Book represents a catalog entry. Two independent gates control visibility:
// IsApproved (staff upload review passed) and IsRestricted (requires an
// explicit grant beyond approval).
type Book struct {
	ID             int64      `json:"id"`
	Title          string     `json:"title" db:"title"`
	Author         *string    `json:"author,omitempty" db:"author"`
	Publisher      *string    `json:"publisher,omitempty" db:"publisher"`
	Translator     *string    `json:"translator,omitempty" db:"translator"`
	ISBN           *string    `json:"isbn,omitempty" db:"isbn"`
	Edition        *string    `json:"edition,omitempty" db:"edition"`
	PartsOrVolumes *string    `json:"parts_or_volumes,omitempty" db:"parts_or_volumes"`
	SubjectNumber  *string    `json:"subject_number,omitempty" db:"subject_number"`
	SerialNumber   *string    `json:"serial_number,omitempty" db:"serial_number"`
	BookNumber     *string    `json:"book_number,omitempty" db:"book_number"`
	LanguageID     *int64     `json:"language_id,omitempty" db:"language_id"`
	LocationID     *int64     `json:"location_id,omitempty" db:"location_id"`
	PageCount      *int64     `json:"page_count,omitempty" db:"page_count"`
	Price          *float64   `json:"price,omitempty" db:"price"`
	PublishedDate  *time.Time `json:"published_date,omitempty" db:"published_date"`
	DateOfPurchase *time.Time `json:"date_of_purchase,omitempty" db:"date_of_purchase"`
	Description    *string    `json:"description,omitempty" db:"description"`
	Remarks        *string    `json:"remarks,omitempty" db:"remarks"`

	IsDigital     bool    `json:"is_digital" db:"is_digital"`
	CoverImageURL *string `json:"cover_image_url,omitempty" db:"cover_image_url"`
	PDFURL        *string `json:"pdf_url,omitempty" db:"pdf_url"`

	IsApproved   bool `json:"is_approved" db:"is_approved"`
	IsRestricted bool `json:"is_restricted" db:"is_restricted"`

	TotalCopies     int64 `json:"total_copies" db:"total_copies"`
	AvailableCopies int64 `json:"available_copies" db:"available_copies"`

	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`

	Language      *Language     `json:"language,omitempty"`
	Subcategories []Subcategory `json:"subcategories,omitempty"`

	// UserHasAccess is computed per caller by the visibility resolver and is
	// never persisted.
	UserHasAccess bool `json:"user_has_access"`
}

// Category groups subcategories.
type Category struct {
	ID            int64         `json:"id"`
	Name          string        `json:"name" db:"name"`
	Description   *string       `json:"description,omitempty" db:"description"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
	DeletedAt     *time.Time    `json:"deleted_at,omitempty" db:"deleted_at"`
	Subcategories []Subcategory `json:"subcategories,omitempty"`
}

// Subcategory belongs to a category; books link to subcategories many-to-many.
type Subcategory struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name" db:"name"`
	Description *string    `json:"description,omitempty" db:"description"`
	CategoryID  int64      `json:"category_id" db:"category_id"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	Category    *Category  `json:"category,omitempty"`
}

// Language of a book's text.
type Language struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name" db:"name"`
	Code      *string    `json:"code,omitempty" db:"code"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// Location is a physical shelf/room where copies live.
type Location struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name" db:"name"`
	Description *string    `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}
