package services

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"booknest_backend/internal/models"
	"booknest_backend/internal/repositories"
)

// --- Custom Service Errors ---
var (
	ErrRequestNotFound       = errors.New("request not found")
	ErrRequestAlreadyPending = errors.New("a pending request for this book already exists")
	ErrInvalidReviewAction   = errors.New("review action must be approve, reject, or pending")
	ErrReviewConflict        = errors.New("request was reviewed concurrently, reload and retry")
)

// --- Data Transfer Objects (DTOs) ---

// AccessRequestInput is the applicant form for unlocking a restricted book.
type AccessRequestInput struct {
	BookID        int64   `json:"book_id" binding:"required"`
	Name          string  `json:"name" binding:"required"`
	Age           *string `json:"age"`
	Location      *string `json:"location"`
	Whatsapp      string  `json:"whatsapp" binding:"required"`
	Qualification *string `json:"qualification"`
	Institution   *string `json:"institution"`
	Teachers      *string `json:"teachers"`
	Purpose       *string `json:"purpose"`
	PreviousWork  *string `json:"previous_work"`
}

// BookRequestInput is the borrow/delivery request form.
type BookRequestInput struct {
	BookID          int64   `json:"book_id" binding:"required"`
	RequestReason   string  `json:"request_reason" binding:"required"`
	DeliveryAddress string  `json:"delivery_address" binding:"required"`
	ContactNumber   *string `json:"contact_number"`
	RequestedDays   int64   `json:"requested_days"`
}

// ReviewInput carries a reviewer verdict.
type ReviewInput struct {
	Action string  `json:"action" binding:"required"` // approve | reject | pending
	Reason *string `json:"reason"`
}

// UploadRequestInput queues a book for content review.
type UploadRequestInput struct {
	BookID int64 `json:"book_id" binding:"required"`
}

// AccessStatusResult answers "where does my request stand" for one book.
type AccessStatusResult struct {
	Status          string  `json:"status"` // not_requested | pending | approved | rejected
	HasAccess       bool    `json:"has_access"`
	RejectionReason *string `json:"rejection_reason,omitempty"`
}

// --- AccessService Interface ---

// AccessService runs the request state machines. Both flavors share one
// lifecycle: no row means not requested, a pending row blocks resubmission,
// and a reviewed row is reset in place when the user applies again.
type AccessService interface {
	SubmitAccessRequest(input AccessRequestInput, caller *models.User) (*models.AccessRequest, error)
	CheckAccessStatus(bookID int64, caller *models.User) (*AccessStatusResult, error)
	ListMyAccessRequests(caller *models.User) ([]models.AccessRequest, error)
	ListAccessRequests() ([]models.AccessRequest, error)
	ReviewAccessRequest(requestID int64, input ReviewInput, actor *models.User) (*models.AccessRequest, error)

	SubmitBookRequest(input BookRequestInput, caller *models.User) (*models.BookRequest, error)
	ListMyBookRequests(caller *models.User) ([]models.BookRequest, error)
	ListBookRequests(status string) ([]models.BookRequest, error)
	ReviewBookRequest(requestID int64, input ReviewInput, actor *models.User) (*models.BookRequest, error)

	SubmitUploadRequest(input UploadRequestInput, caller *models.User) (*models.UploadRequest, error)
	ListUploadRequests(status string) ([]models.UploadRequest, error)
	ReviewUploadRequest(requestID int64, input ReviewInput, actor *models.User) (*models.UploadRequest, error)
}

type accessService struct {
	accessRepo  repositories.AccessRepository
	requestRepo repositories.RequestRepository
	bookRepo    repositories.BookRepository
	logs        LogService
	db          *sql.DB
}

// NewAccessService creates a new instance of AccessService.
func NewAccessService(
	accessRepo repositories.AccessRepository,
	requestRepo repositories.RequestRepository,
	bookRepo repositories.BookRepository,
	logs LogService,
	db *sql.DB,
) AccessService {
	return &accessService{
		accessRepo:  accessRepo,
		requestRepo: requestRepo,
		bookRepo:    bookRepo,
		logs:        logs,
		db:          db,
	}
}

// defaultRejectionReason is recorded when a reviewer rejects without one.
const defaultRejectionReason = "No reason provided."

// reviewVerdict normalizes the action to a target status. Reviewers can also
// push a request back to pending, which wipes the prior verdict.
func reviewVerdict(input ReviewInput, approvedStatus, rejectedStatus, pendingStatus string) (string, *string, error) {
	switch strings.ToLower(strings.TrimSpace(input.Action)) {
	case "approve", "approved":
		return approvedStatus, nil, nil
	case "reject", "rejected":
		reason := input.Reason
		if reason == nil || strings.TrimSpace(*reason) == "" {
			fallback := defaultRejectionReason
			reason = &fallback
		}
		return rejectedStatus, reason, nil
	case "pending":
		return pendingStatus, nil, nil
	default:
		return "", nil, ErrInvalidReviewAction
	}
}

func (s *accessService) bookExists(bookID int64) error {
	if _, err := s.bookRepo.FindBookByID(bookID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrBookNotFound
		}
		return err
	}
	return nil
}

// --- AccessRequest flavor ---

func (s *accessService) SubmitAccessRequest(input AccessRequestInput, caller *models.User) (*models.AccessRequest, error) {
	if err := s.bookExists(input.BookID); err != nil {
		return nil, err
	}

	existing, err := s.accessRepo.FindAccessRequestByUserAndBook(caller.ID, input.BookID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	req := &models.AccessRequest{
		UserID:        caller.ID,
		BookID:        input.BookID,
		Name:          input.Name,
		Age:           input.Age,
		Location:      input.Location,
		Whatsapp:      input.Whatsapp,
		Qualification: input.Qualification,
		Institution:   input.Institution,
		Teachers:      input.Teachers,
		Purpose:       input.Purpose,
		PreviousWork:  input.PreviousWork,
	}

	if existing == nil {
		id, err := s.accessRepo.CreateAccessRequest(s.db, req)
		if err != nil {
			return nil, err
		}
		req.ID = id
	} else {
		if strings.EqualFold(existing.Status, models.AccessStatusPending) {
			return nil, ErrRequestAlreadyPending
		}
		// Approved or rejected: reuse the row, wiping the old verdict.
		req.ID = existing.ID
		if err := s.accessRepo.ResubmitAccessRequest(s.db, req); err != nil {
			return nil, err
		}
	}

	targetType := "access_request"
	s.logs.Record(actorIDOf(caller), "ACCESS_REQUEST_SUBMIT",
		fmt.Sprintf("User %d requested access to book %d", caller.ID, input.BookID), &targetType, &req.ID)
	return s.accessRepo.FindAccessRequestByID(req.ID)
}

func (s *accessService) CheckAccessStatus(bookID int64, caller *models.User) (*AccessStatusResult, error) {
	if err := s.bookExists(bookID); err != nil {
		return nil, err
	}

	granted, err := s.accessRepo.HasGrant(bookID, caller.ID)
	if err != nil {
		return nil, err
	}

	req, err := s.accessRepo.FindAccessRequestByUserAndBook(caller.ID, bookID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return &AccessStatusResult{Status: "not_requested", HasAccess: granted}, nil
		}
		return nil, err
	}

	status := strings.ToLower(req.Status)
	return &AccessStatusResult{
		Status:          status,
		HasAccess:       granted || status == models.AccessStatusApproved,
		RejectionReason: req.RejectionReason,
	}, nil
}

func (s *accessService) ListMyAccessRequests(caller *models.User) ([]models.AccessRequest, error) {
	return s.accessRepo.ListAccessRequestsByUser(caller.ID)
}

func (s *accessService) ListAccessRequests() ([]models.AccessRequest, error) {
	return s.accessRepo.ListAccessRequests()
}

func (s *accessService) ReviewAccessRequest(requestID int64, input ReviewInput, actor *models.User) (*models.AccessRequest, error) {
	toStatus, reason, err := reviewVerdict(input, models.AccessStatusApproved, models.AccessStatusRejected, models.AccessStatusPending)
	if err != nil {
		return nil, err
	}

	req, err := s.accessRepo.FindAccessRequestByID(requestID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}

	// Guard on the status we just observed so two reviewers cannot both win.
	err = s.accessRepo.UpdateAccessRequestStatus(s.db, requestID, req.Status, toStatus, reason)
	if err != nil {
		if errors.Is(err, repositories.ErrStaleUpdate) {
			return nil, ErrReviewConflict
		}
		return nil, err
	}

	targetType := "access_request"
	s.logs.Record(actorIDOf(actor), "ACCESS_REQUEST_REVIEW",
		fmt.Sprintf("Access request %d for book %d marked %s", requestID, req.BookID, toStatus), &targetType, &requestID)
	return s.accessRepo.FindAccessRequestByID(requestID)
}

// --- BookRequest flavor ---

func (s *accessService) SubmitBookRequest(input BookRequestInput, caller *models.User) (*models.BookRequest, error) {
	if err := s.bookExists(input.BookID); err != nil {
		return nil, err
	}

	existing, err := s.requestRepo.FindBookRequestByUserAndBook(caller.ID, input.BookID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	days := input.RequestedDays
	if days <= 0 {
		days = 14
	}
	req := &models.BookRequest{
		UserID:          caller.ID,
		BookID:          input.BookID,
		RequestReason:   input.RequestReason,
		DeliveryAddress: input.DeliveryAddress,
		ContactNumber:   input.ContactNumber,
		RequestedDays:   days,
	}

	if existing == nil {
		id, err := s.requestRepo.CreateBookRequest(s.db, req)
		if err != nil {
			return nil, err
		}
		req.ID = id
	} else {
		if strings.EqualFold(existing.Status, models.ReviewStatusPending) {
			return nil, ErrRequestAlreadyPending
		}
		req.ID = existing.ID
		if err := s.requestRepo.ResubmitBookRequest(s.db, req); err != nil {
			return nil, err
		}
	}

	targetType := "book_request"
	s.logs.Record(actorIDOf(caller), "BOOK_REQUEST_SUBMIT",
		fmt.Sprintf("User %d requested book %d for %d days", caller.ID, input.BookID, days), &targetType, &req.ID)
	return s.requestRepo.FindBookRequestByID(req.ID)
}

func (s *accessService) ListMyBookRequests(caller *models.User) ([]models.BookRequest, error) {
	return s.requestRepo.ListBookRequestsByUser(caller.ID)
}

func (s *accessService) ListBookRequests(status string) ([]models.BookRequest, error) {
	return s.requestRepo.ListBookRequests(status)
}

func (s *accessService) ReviewBookRequest(requestID int64, input ReviewInput, actor *models.User) (*models.BookRequest, error) {
	toStatus, reason, err := reviewVerdict(input, models.ReviewStatusApproved, models.ReviewStatusRejected, models.ReviewStatusPending)
	if err != nil {
		return nil, err
	}

	req, err := s.requestRepo.FindBookRequestByID(requestID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}

	err = s.requestRepo.UpdateBookRequestStatus(s.db, requestID, req.Status, toStatus, reason)
	if err != nil {
		if errors.Is(err, repositories.ErrStaleUpdate) {
			return nil, ErrReviewConflict
		}
		return nil, err
	}

	targetType := "book_request"
	s.logs.Record(actorIDOf(actor), "BOOK_REQUEST_REVIEW",
		fmt.Sprintf("Book request %d for book %d marked %s", requestID, req.BookID, toStatus), &targetType, &requestID)
	return s.requestRepo.FindBookRequestByID(requestID)
}

// --- UploadRequest flavor ---

// SubmitUploadRequest queues a book for content review by hand, for books
// whose request was reviewed (or never created). One row per book: a pending
// request blocks resubmission, a reviewed one is reset in place.
func (s *accessService) SubmitUploadRequest(input UploadRequestInput, caller *models.User) (*models.UploadRequest, error) {
	if err := s.bookExists(input.BookID); err != nil {
		return nil, err
	}

	existing, err := s.requestRepo.FindUploadRequestByBookID(input.BookID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	var requestID int64
	if existing == nil {
		requestID, err = s.requestRepo.CreateUploadRequest(s.db, &models.UploadRequest{
			BookID:        input.BookID,
			SubmittedByID: &caller.ID,
		})
		if err != nil {
			return nil, err
		}
	} else {
		if strings.EqualFold(existing.Status, models.ReviewStatusPending) {
			return nil, ErrRequestAlreadyPending
		}
		if err := s.requestRepo.ResetUploadRequestToPending(s.db, input.BookID, &caller.ID); err != nil {
			return nil, err
		}
		requestID = existing.ID
	}

	targetType := "upload_request"
	s.logs.Record(actorIDOf(caller), "UPLOAD_REQUEST_SUBMIT",
		fmt.Sprintf("User %d queued book %d for review", caller.ID, input.BookID), &targetType, &requestID)
	return s.requestRepo.FindUploadRequestByID(requestID)
}

func (s *accessService) ListUploadRequests(status string) ([]models.UploadRequest, error) {
	return s.requestRepo.ListUploadRequests(status)
}

// ReviewUploadRequest records the verdict and flips the book's approval flag
// in one transaction. Re-reviewing is allowed; applying the same verdict
// twice leaves the same end state.
func (s *accessService) ReviewUploadRequest(requestID int64, input ReviewInput, actor *models.User) (*models.UploadRequest, error) {
	toStatus, remarks, err := reviewVerdict(input, models.ReviewStatusApproved, models.ReviewStatusRejected, models.ReviewStatusPending)
	if err != nil {
		return nil, err
	}

	req, err := s.requestRepo.FindUploadRequestByID(requestID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if toStatus == models.ReviewStatusPending {
		// Back to the queue: clear the verdict rather than stamp a reviewer.
		err = s.requestRepo.ResetUploadRequestToPending(tx, req.BookID, nil)
	} else {
		err = s.requestRepo.ReviewUploadRequest(tx, requestID, toStatus, remarks, actor.ID)
	}
	if err != nil {
		return nil, err
	}
	if err := s.bookRepo.SetApproval(tx, req.BookID, toStatus == models.ReviewStatusApproved); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing upload review: %w", err)
	}

	targetType := "upload_request"
	s.logs.Record(actorIDOf(actor), "UPLOAD_REQUEST_REVIEW",
		fmt.Sprintf("Upload request %d for book %d marked %s", requestID, req.BookID, toStatus), &targetType, &requestID)
	return s.requestRepo.FindUploadRequestByID(requestID)
}
