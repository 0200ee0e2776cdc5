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
	ErrCopyNotFound     = errors.New("book copy not found")
	ErrCopyNotAvailable = errors.New("book copy is not available for issue")
	ErrIssueNotFound    = errors.New("issue record not found")
	ErrAlreadyReturned  = errors.New("book copy already returned")
)

// --- Data Transfer Objects (DTOs) ---

// CopyInput registers a physical copy on a shelf.
type CopyInput struct {
	BookID     int64  `json:"book_id" binding:"required"`
	LocationID int64  `json:"location_id" binding:"required"`
	Status     string `json:"status"`
}

// IssueInput lends a copy to a user.
type IssueInput struct {
	UserID int64 `json:"user_id" binding:"required"`
	CopyID int64 `json:"copy_id" binding:"required"`
	Days   int64 `json:"days"`
}

// --- IssueService Interface ---

// IssueService runs physical circulation: copies on shelves, lending and
// returns. The denormalized copy counters on the book row are refreshed after
// every mutation.
type IssueService interface {
	AddCopy(input CopyInput, actor *models.User) (*models.BookCopy, error)
	ListCopies(bookID int64) ([]models.BookCopy, error)
	RemoveCopy(copyID int64, actor *models.User) error

	IssueBook(input IssueInput, actor *models.User) (*models.IssuedBook, error)
	ReturnBook(issueID int64, actor *models.User) (*models.IssuedBook, error)
	ListIssues(status string) ([]models.IssuedBook, error)
	ListUserIssues(userID int64) ([]models.IssuedBook, error)
}

type issueService struct {
	circRepo repositories.CirculationRepository
	bookRepo repositories.BookRepository
	userRepo repositories.UserRepository
	logs     LogService
	db       *sql.DB
}

// NewIssueService creates a new instance of IssueService.
func NewIssueService(
	circRepo repositories.CirculationRepository,
	bookRepo repositories.BookRepository,
	userRepo repositories.UserRepository,
	logs LogService,
	db *sql.DB,
) IssueService {
	return &issueService{circRepo: circRepo, bookRepo: bookRepo, userRepo: userRepo, logs: logs, db: db}
}

// refreshCounters recomputes total/available copies onto the book row.
func (s *issueService) refreshCounters(executor repositories.SQLExecutor, bookID int64) error {
	total, available, err := s.circRepo.CountCopies(bookID)
	if err != nil {
		return err
	}
	book, err := s.bookRepo.FindBookByID(bookID)
	if err != nil {
		return err
	}
	book.TotalCopies = total
	book.AvailableCopies = available
	return s.bookRepo.UpdateBook(executor, book)
}

func (s *issueService) AddCopy(input CopyInput, actor *models.User) (*models.BookCopy, error) {
	if _, err := s.bookRepo.FindBookByID(input.BookID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}

	copyID, err := s.circRepo.CreateCopy(s.db, &models.BookCopy{
		BookID:     input.BookID,
		LocationID: input.LocationID,
		Status:     input.Status,
	})
	if err != nil {
		return nil, err
	}
	if err := s.refreshCounters(s.db, input.BookID); err != nil {
		return nil, err
	}

	targetType := "book_copy"
	s.logs.Record(actorIDOf(actor), "COPY_CREATE", fmt.Sprintf("Added copy %d of book %d", copyID, input.BookID), &targetType, &copyID)
	return s.circRepo.FindCopyByID(copyID)
}

func (s *issueService) ListCopies(bookID int64) ([]models.BookCopy, error) {
	return s.circRepo.ListCopiesByBook(bookID)
}

func (s *issueService) RemoveCopy(copyID int64, actor *models.User) error {
	copy, err := s.circRepo.FindCopyByID(copyID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrCopyNotFound
		}
		return err
	}
	if err := s.circRepo.SoftDeleteCopy(s.db, copyID); err != nil {
		return err
	}
	if err := s.refreshCounters(s.db, copy.BookID); err != nil {
		return err
	}
	targetType := "book_copy"
	s.logs.Record(actorIDOf(actor), "COPY_DELETE", fmt.Sprintf("Removed copy %d of book %d", copyID, copy.BookID), &targetType, &copyID)
	return nil
}

// IssueBook lends an available copy, flipping its status and opening an issue
// record in one transaction.
func (s *issueService) IssueBook(input IssueInput, actor *models.User) (*models.IssuedBook, error) {
	if _, err := s.userRepo.FindUserByID(input.UserID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	copy, err := s.circRepo.FindCopyByID(input.CopyID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrCopyNotFound
		}
		return nil, err
	}
	if copy.Status != models.CopyStatusAvailable && copy.Status != models.CopyStatusNew {
		return nil, ErrCopyNotAvailable
	}

	days := input.Days
	if days <= 0 {
		days = 14
	}
	due := time.Now().AddDate(0, 0, int(days))

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	issueID, err := s.circRepo.CreateIssue(tx, &models.IssuedBook{
		UserID:  input.UserID,
		CopyID:  input.CopyID,
		DueDate: &due,
	})
	if err != nil {
		return nil, err
	}
	if err := s.circRepo.UpdateCopyStatus(tx, input.CopyID, models.CopyStatusIssued); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing issue: %w", err)
	}

	if err := s.refreshCounters(s.db, copy.BookID); err != nil {
		return nil, err
	}

	targetType := "issued_book"
	s.logs.Record(actorIDOf(actor), "BOOK_ISSUE",
		fmt.Sprintf("Issued copy %d to user %d for %d days", input.CopyID, input.UserID, days), &targetType, &issueID)
	return s.circRepo.FindIssueByID(issueID)
}

func (s *issueService) ReturnBook(issueID int64, actor *models.User) (*models.IssuedBook, error) {
	issue, err := s.circRepo.FindIssueByID(issueID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrIssueNotFound
		}
		return nil, err
	}
	if issue.Status == models.IssueStatusReturned {
		return nil, ErrAlreadyReturned
	}
	copy, err := s.circRepo.FindCopyByID(issue.CopyID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.circRepo.MarkReturned(tx, issueID, time.Now()); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrAlreadyReturned
		}
		return nil, err
	}
	if err := s.circRepo.UpdateCopyStatus(tx, issue.CopyID, models.CopyStatusAvailable); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing return: %w", err)
	}

	if err := s.refreshCounters(s.db, copy.BookID); err != nil {
		return nil, err
	}

	targetType := "issued_book"
	s.logs.Record(actorIDOf(actor), "BOOK_RETURN", fmt.Sprintf("Copy %d returned by user %d", issue.CopyID, issue.UserID), &targetType, &issueID)
	return s.circRepo.FindIssueByID(issueID)
}

func (s *issueService) ListIssues(status string) ([]models.IssuedBook, error) {
	return s.circRepo.ListIssues(status)
}

func (s *issueService) ListUserIssues(userID int64) ([]models.IssuedBook, error) {
	return s.circRepo.ListIssuesByUser(userID)
}
