package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"booknest_backend/internal/models"
	"booknest_backend/internal/repositories"
)

// --- Custom Service Errors ---
var (
	ErrBookNotFound     = errors.New("book not found")
	ErrBookAccessDenied = errors.New("access to this book is restricted")
	ErrDuplicateISBN    = errors.New("a book with this ISBN already exists")
	ErrTitleRequired    = errors.New("book title is required")
)

// --- Data Transfer Objects (DTOs) ---

// BookInput carries create/update payloads for catalog entries.
type BookInput struct {
	Title          string     `json:"title" binding:"required"`
	Author         *string    `json:"author"`
	Publisher      *string    `json:"publisher"`
	Translator     *string    `json:"translator"`
	ISBN           *string    `json:"isbn"`
	Edition        *string    `json:"edition"`
	PartsOrVolumes *string    `json:"parts_or_volumes"`
	SubjectNumber  *string    `json:"subject_number"`
	SerialNumber   *string    `json:"serial_number"`
	BookNumber     *string    `json:"book_number"`
	LanguageID     *int64     `json:"language_id"`
	LocationID     *int64     `json:"location_id"`
	PageCount      *int64     `json:"page_count"`
	Price          *float64   `json:"price"`
	PublishedDate  *time.Time `json:"published_date"`
	DateOfPurchase *time.Time `json:"date_of_purchase"`
	Description    *string    `json:"description"`
	Remarks        *string    `json:"remarks"`
	IsDigital      bool       `json:"is_digital"`
	CoverImageURL  *string    `json:"cover_image_url"`
	PDFURL         *string    `json:"pdf_url"`
	IsRestricted   bool       `json:"is_restricted"`
	SubcategoryIDs []int64    `json:"subcategory_ids"`
}

// --- BookService Interface ---

// BookService owns the catalog and the per-caller visibility resolution.
type BookService interface {
	// GetBook applies the visibility rules for the caller (nil for anonymous):
	// unapproved books are invisible to non-admins, restricted books require
	// an access path, everything else is open.
	GetBook(bookID int64, caller *models.User) (*models.Book, error)
	// ListBooks returns the visible catalog slice with UserHasAccess computed
	// per book. Access membership is resolved in two batched set lookups, not
	// per row.
	ListBooks(filter repositories.BookFilter, caller *models.User) ([]models.Book, error)
	CreateBook(input BookInput, actor *models.User) (*models.Book, error)
	UpdateBook(bookID int64, input BookInput, actor *models.User) (*models.Book, error)
	DeleteBook(bookID int64, actor *models.User) error
	GrantBookAccess(bookID, userID int64, actor *models.User) error
}

type bookService struct {
	bookRepo    repositories.BookRepository
	accessRepo  repositories.AccessRepository
	requestRepo repositories.RequestRepository
	userRepo    repositories.UserRepository
	authz       AuthzService
	logs        LogService
	db          *sql.DB
}

// NewBookService creates a new instance of BookService.
func NewBookService(
	bookRepo repositories.BookRepository,
	accessRepo repositories.AccessRepository,
	requestRepo repositories.RequestRepository,
	userRepo repositories.UserRepository,
	authz AuthzService,
	logs LogService,
	db *sql.DB,
) BookService {
	return &bookService{
		bookRepo:    bookRepo,
		accessRepo:  accessRepo,
		requestRepo: requestRepo,
		userRepo:    userRepo,
		authz:       authz,
		logs:        logs,
		db:          db,
	}
}

// hasAccessPath checks the per-book access chain for a restricted book:
// direct grant first, then an approved access request.
func (s *bookService) hasAccessPath(bookID int64, caller *models.User) (bool, error) {
	if caller == nil {
		return false, nil
	}
	granted, err := s.accessRepo.HasGrant(bookID, caller.ID)
	if err != nil {
		return false, err
	}
	if granted {
		return true, nil
	}
	return s.accessRepo.HasApprovedAccessRequest(caller.ID, bookID)
}

func (s *bookService) GetBook(bookID int64, caller *models.User) (*models.Book, error) {
	book, err := s.bookRepo.FindBookByID(bookID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}

	isAdmin := s.authz.IsContentAdmin(caller)

	// Unapproved books do not exist for non-admin callers. Not-found, not
	// forbidden, so their presence cannot be probed.
	if !book.IsApproved && !isAdmin {
		return nil, ErrBookNotFound
	}

	if !book.IsRestricted || isAdmin {
		book.UserHasAccess = true
		return book, nil
	}

	ok, err := s.hasAccessPath(bookID, caller)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrBookAccessDenied
	}
	book.UserHasAccess = true
	return book, nil
}

func (s *bookService) ListBooks(filter repositories.BookFilter, caller *models.User) ([]models.Book, error) {
	isAdmin := s.authz.IsContentAdmin(caller)
	if !isAdmin {
		filter.ApprovedOnly = true
	}

	books, err := s.bookRepo.ListBooks(filter)
	if err != nil {
		return nil, err
	}

	var granted, approved map[int64]bool
	if caller != nil && !isAdmin {
		if granted, err = s.accessRepo.GrantedBookIDs(caller.ID); err != nil {
			return nil, err
		}
		if approved, err = s.accessRepo.ApprovedBookIDs(caller.ID); err != nil {
			return nil, err
		}
	}

	for i := range books {
		b := &books[i]
		switch {
		case !b.IsRestricted, isAdmin:
			b.UserHasAccess = true
		case granted[b.ID], approved[b.ID]:
			b.UserHasAccess = true
		default:
			b.UserHasAccess = false
		}
	}
	return books, nil
}

func (s *bookService) applyInput(book *models.Book, input BookInput) {
	book.Title = input.Title
	book.Author = input.Author
	book.Publisher = input.Publisher
	book.Translator = input.Translator
	book.ISBN = input.ISBN
	book.Edition = input.Edition
	book.PartsOrVolumes = input.PartsOrVolumes
	book.SubjectNumber = input.SubjectNumber
	book.SerialNumber = input.SerialNumber
	book.BookNumber = input.BookNumber
	book.LanguageID = input.LanguageID
	book.LocationID = input.LocationID
	book.PageCount = input.PageCount
	book.Price = input.Price
	book.PublishedDate = input.PublishedDate
	book.DateOfPurchase = input.DateOfPurchase
	book.Description = input.Description
	book.Remarks = input.Remarks
	book.IsDigital = input.IsDigital
	book.CoverImageURL = input.CoverImageURL
	book.PDFURL = input.PDFURL
	book.IsRestricted = input.IsRestricted
}

func (s *bookService) checkISBN(input BookInput, excludeBookID int64) error {
	if input.ISBN == nil || *input.ISBN == "" {
		return nil
	}
	exists, err := s.bookRepo.ISBNExists(*input.ISBN, excludeBookID)
	if err != nil {
		return err
	}
	if exists {
		return ErrDuplicateISBN
	}
	return nil
}

// CreateBook inserts the book unapproved and queues a pending upload request
// for staff review, in one transaction.
func (s *bookService) CreateBook(input BookInput, actor *models.User) (*models.Book, error) {
	if input.Title == "" {
		return nil, ErrTitleRequired
	}
	if err := s.checkISBN(input, 0); err != nil {
		return nil, err
	}

	book := &models.Book{}
	s.applyInput(book, input)
	book.IsApproved = false

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	bookID, err := s.bookRepo.CreateBook(tx, book)
	if err != nil {
		return nil, err
	}
	if len(input.SubcategoryIDs) > 0 {
		if err := s.bookRepo.SetSubcategories(tx, bookID, input.SubcategoryIDs); err != nil {
			return nil, err
		}
	}
	actorID := actorIDOf(actor)
	if _, err := s.requestRepo.CreateUploadRequest(tx, &models.UploadRequest{
		BookID:        bookID,
		SubmittedByID: actorID,
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing book create: %w", err)
	}

	targetType := "book"
	s.logs.Record(actorID, "BOOK_CREATE", fmt.Sprintf("Created book %q (id %d), pending approval", book.Title, bookID), &targetType, &bookID)
	return s.bookRepo.FindBookByID(bookID)
}

// UpdateBook applies the edit and pulls the book back out of the approved
// catalog until staff re-review it.
func (s *bookService) UpdateBook(bookID int64, input BookInput, actor *models.User) (*models.Book, error) {
	if input.Title == "" {
		return nil, ErrTitleRequired
	}
	book, err := s.bookRepo.FindBookByID(bookID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	if err := s.checkISBN(input, bookID); err != nil {
		return nil, err
	}

	s.applyInput(book, input)
	book.IsApproved = false

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.bookRepo.UpdateBook(tx, book); err != nil {
		return nil, err
	}
	if input.SubcategoryIDs != nil {
		if err := s.bookRepo.SetSubcategories(tx, bookID, input.SubcategoryIDs); err != nil {
			return nil, err
		}
	}

	actorID := actorIDOf(actor)
	err = s.requestRepo.ResetUploadRequestToPending(tx, bookID, actorID)
	if errors.Is(err, repositories.ErrNotFound) {
		_, err = s.requestRepo.CreateUploadRequest(tx, &models.UploadRequest{
			BookID:        bookID,
			SubmittedByID: actorID,
		})
	}
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing book update: %w", err)
	}

	targetType := "book"
	s.logs.Record(actorID, "BOOK_UPDATE", fmt.Sprintf("Updated book %q (id %d), approval reset", book.Title, bookID), &targetType, &bookID)
	return s.bookRepo.FindBookByID(bookID)
}

func (s *bookService) DeleteBook(bookID int64, actor *models.User) error {
	err := s.bookRepo.SoftDeleteBook(s.db, bookID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrBookNotFound
		}
		return err
	}
	targetType := "book"
	s.logs.Record(actorIDOf(actor), "BOOK_DELETE", fmt.Sprintf("Deleted book id %d", bookID), &targetType, &bookID)
	return nil
}

// GrantBookAccess creates a direct grant, bypassing the request workflow.
func (s *bookService) GrantBookAccess(bookID, userID int64, actor *models.User) error {
	if _, err := s.bookRepo.FindBookByID(bookID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrBookNotFound
		}
		return err
	}
	if _, err := s.userRepo.FindUserByID(userID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if _, err := s.accessRepo.CreateGrant(s.db, &models.BookPermission{BookID: bookID, UserID: &userID}); err != nil {
		return err
	}
	targetType := "book"
	s.logs.Record(actorIDOf(actor), "BOOK_ACCESS_GRANT", fmt.Sprintf("Granted user %d access to book %d", userID, bookID), &targetType, &bookID)
	return nil
}

func actorIDOf(actor *models.User) *int64 {
	if actor == nil {
		return nil
	}
	id := actor.ID
	return &id
}
