package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"booknest_backend/internal/models"
)

// RequestRepository covers the staff-reviewed request flows: borrow requests
// (BookRequest) and content approval (UploadRequest).
type RequestRepository interface {
	CreateBookRequest(executor SQLExecutor, req *models.BookRequest) (int64, error)
	FindBookRequestByID(requestID int64) (*models.BookRequest, error)
	FindBookRequestByUserAndBook(userID, bookID int64) (*models.BookRequest, error)
	ResubmitBookRequest(executor SQLExecutor, req *models.BookRequest) error
	UpdateBookRequestStatus(executor SQLExecutor, requestID int64, fromStatus, toStatus string, rejectionReason *string) error
	ListBookRequestsByUser(userID int64) ([]models.BookRequest, error)
	ListBookRequests(status string) ([]models.BookRequest, error)

	CreateUploadRequest(executor SQLExecutor, req *models.UploadRequest) (int64, error)
	FindUploadRequestByID(requestID int64) (*models.UploadRequest, error)
	FindUploadRequestByBookID(bookID int64) (*models.UploadRequest, error)
	// ResetUploadRequestToPending re-queues the book's upload request after an
	// edit, keeping the single row per book.
	ResetUploadRequestToPending(executor SQLExecutor, bookID int64, submittedByID *int64) error
	ReviewUploadRequest(executor SQLExecutor, requestID int64, status string, remarks *string, reviewedByID int64) error
	ListUploadRequests(status string) ([]models.UploadRequest, error)
}

type requestRepository struct {
	db *sql.DB
}

// NewRequestRepository creates a new instance of RequestRepository.
func NewRequestRepository(db *sql.DB) RequestRepository {
	return &requestRepository{db: db}
}

// --- BookRequest ---

const bookRequestColumns = `br.id, br.user_id, br.book_id, br.request_reason, br.delivery_address,
	       br.contact_number, br.requested_days, br.status, br.rejection_reason, br.created_at, br.updated_at`

func scanBookRequest(row scanner) (*models.BookRequest, error) {
	req := &models.BookRequest{}
	var contactNumber, rejectionReason sql.NullString
	var updatedAt sql.NullTime

	err := row.Scan(
		&req.ID, &req.UserID, &req.BookID, &req.RequestReason, &req.DeliveryAddress,
		&contactNumber, &req.RequestedDays, &req.Status, &rejectionReason, &req.CreatedAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: scanning book request: %v", ErrDatabaseError, err)
	}
	if contactNumber.Valid {
		req.ContactNumber = &contactNumber.String
	}
	if rejectionReason.Valid {
		req.RejectionReason = &rejectionReason.String
	}
	if updatedAt.Valid {
		req.UpdatedAt = &updatedAt.Time
	}
	return req, nil
}

func (r *requestRepository) CreateBookRequest(executor SQLExecutor, req *models.BookRequest) (int64, error) {
	now := time.Now()
	var id int64
	err := executor.QueryRow(
		`INSERT INTO book_requests
		   (user_id, book_id, request_reason, delivery_address, contact_number, requested_days, status, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)
		 RETURNING id`,
		req.UserID, req.BookID, req.RequestReason, req.DeliveryAddress,
		req.ContactNumber, req.RequestedDays, models.ReviewStatusPending, now,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%w: creating book request: %v", ErrDatabaseError, err)
	}
	return id, nil
}

func (r *requestRepository) FindBookRequestByID(requestID int64) (*models.BookRequest, error) {
	query := `SELECT ` + bookRequestColumns + ` FROM book_requests br WHERE br.id = $1`
	return scanBookRequest(r.db.QueryRow(query, requestID))
}

func (r *requestRepository) FindBookRequestByUserAndBook(userID, bookID int64) (*models.BookRequest, error) {
	query := `SELECT ` + bookRequestColumns + ` FROM book_requests br WHERE br.user_id = $1 AND br.book_id = $2`
	return scanBookRequest(r.db.QueryRow(query, userID, bookID))
}

// ResubmitBookRequest overwrites the request fields on the existing row and
// resets it to Pending, clearing any rejection reason.
func (r *requestRepository) ResubmitBookRequest(executor SQLExecutor, req *models.BookRequest) error {
	res, err := executor.Exec(
		`UPDATE book_requests SET
		   request_reason = $1, delivery_address = $2, contact_number = $3, requested_days = $4,
		   status = $5, rejection_reason = NULL, updated_at = $6
		 WHERE id = $7`,
		req.RequestReason, req.DeliveryAddress, req.ContactNumber, req.RequestedDays,
		models.ReviewStatusPending, time.Now(), req.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: resubmitting book request %d: %v", ErrDatabaseError, req.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *requestRepository) UpdateBookRequestStatus(executor SQLExecutor, requestID int64, fromStatus, toStatus string, rejectionReason *string) error {
	res, err := executor.Exec(
		`UPDATE book_requests
		 SET status = $1, rejection_reason = $2, updated_at = $3
		 WHERE id = $4 AND LOWER(status) = LOWER($5)`,
		toStatus, rejectionReason, time.Now(), requestID, fromStatus,
	)
	if err != nil {
		return fmt.Errorf("%w: updating book request %d status: %v", ErrDatabaseError, requestID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStaleUpdate
	}
	return nil
}

func (r *requestRepository) listBookRequests(where string, args ...interface{}) ([]models.BookRequest, error) {
	query := `SELECT ` + bookRequestColumns + ` FROM book_requests br ` + where

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: listing book requests: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var reqs []models.BookRequest
	for rows.Next() {
		req, err := scanBookRequest(rows)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, *req)
	}
	return reqs, rows.Err()
}

func (r *requestRepository) ListBookRequestsByUser(userID int64) ([]models.BookRequest, error) {
	return r.listBookRequests(`WHERE br.user_id = $1 ORDER BY br.id DESC`, userID)
}

// ListBookRequests returns all requests, newest first, optionally filtered by
// status. Empty status means no filter.
func (r *requestRepository) ListBookRequests(status string) ([]models.BookRequest, error) {
	if status == "" {
		return r.listBookRequests(`ORDER BY br.created_at DESC`)
	}
	return r.listBookRequests(`WHERE LOWER(br.status) = LOWER($1) ORDER BY br.created_at DESC`, status)
}

// --- UploadRequest ---

const uploadRequestColumns = `ur.id, ur.book_id, ur.submitted_by_id, ur.reviewed_by_id,
	       ur.status, ur.remarks, ur.submitted_at, ur.reviewed_at`

func scanUploadRequest(row scanner) (*models.UploadRequest, error) {
	req := &models.UploadRequest{}
	var submittedBy, reviewedBy sql.NullInt64
	var remarks sql.NullString
	var reviewedAt sql.NullTime

	err := row.Scan(
		&req.ID, &req.BookID, &submittedBy, &reviewedBy,
		&req.Status, &remarks, &req.SubmittedAt, &reviewedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: scanning upload request: %v", ErrDatabaseError, err)
	}
	if submittedBy.Valid {
		req.SubmittedByID = &submittedBy.Int64
	}
	if reviewedBy.Valid {
		req.ReviewedByID = &reviewedBy.Int64
	}
	if remarks.Valid {
		req.Remarks = &remarks.String
	}
	if reviewedAt.Valid {
		req.ReviewedAt = &reviewedAt.Time
	}
	return req, nil
}

func (r *requestRepository) CreateUploadRequest(executor SQLExecutor, req *models.UploadRequest) (int64, error) {
	var id int64
	err := executor.QueryRow(
		`INSERT INTO upload_requests (book_id, submitted_by_id, status, submitted_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		req.BookID, req.SubmittedByID, models.ReviewStatusPending, time.Now(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%w: creating upload request: %v", ErrDatabaseError, err)
	}
	return id, nil
}

func (r *requestRepository) FindUploadRequestByID(requestID int64) (*models.UploadRequest, error) {
	query := `SELECT ` + uploadRequestColumns + ` FROM upload_requests ur WHERE ur.id = $1`
	return scanUploadRequest(r.db.QueryRow(query, requestID))
}

func (r *requestRepository) FindUploadRequestByBookID(bookID int64) (*models.UploadRequest, error) {
	query := `SELECT ` + uploadRequestColumns + ` FROM upload_requests ur WHERE ur.book_id = $1`
	return scanUploadRequest(r.db.QueryRow(query, bookID))
}

func (r *requestRepository) ResetUploadRequestToPending(executor SQLExecutor, bookID int64, submittedByID *int64) error {
	res, err := executor.Exec(
		`UPDATE upload_requests
		 SET status = $1, submitted_by_id = COALESCE($2, submitted_by_id),
		     reviewed_by_id = NULL, remarks = NULL, reviewed_at = NULL, submitted_at = $3
		 WHERE book_id = $4`,
		models.ReviewStatusPending, submittedByID, time.Now(), bookID,
	)
	if err != nil {
		return fmt.Errorf("%w: resetting upload request for book %d: %v", ErrDatabaseError, bookID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ReviewUploadRequest records the reviewer's verdict. No status guard here;
// re-reviewing an already reviewed request is allowed and idempotent at the
// service layer.
func (r *requestRepository) ReviewUploadRequest(executor SQLExecutor, requestID int64, status string, remarks *string, reviewedByID int64) error {
	res, err := executor.Exec(
		`UPDATE upload_requests
		 SET status = $1, remarks = $2, reviewed_by_id = $3, reviewed_at = $4
		 WHERE id = $5`,
		status, remarks, reviewedByID, time.Now(), requestID,
	)
	if err != nil {
		return fmt.Errorf("%w: reviewing upload request %d: %v", ErrDatabaseError, requestID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUploadRequests returns upload requests newest first, optionally filtered
// by status, with book title and submitter attached for the review queue.
func (r *requestRepository) ListUploadRequests(status string) ([]models.UploadRequest, error) {
	query := `
		SELECT ` + uploadRequestColumns + `, b.title, COALESCE(u.username, '')
		FROM upload_requests ur
		LEFT JOIN books b ON ur.book_id = b.id
		LEFT JOIN users u ON ur.submitted_by_id = u.id`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE LOWER(ur.status) = LOWER($1)`
		args = append(args, status)
	}
	query += ` ORDER BY ur.submitted_at DESC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: listing upload requests: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var reqs []models.UploadRequest
	for rows.Next() {
		req := &models.UploadRequest{}
		var submittedBy, reviewedBy sql.NullInt64
		var remarks, bookTitle sql.NullString
		var reviewedAt sql.NullTime
		var submitterName string

		err := rows.Scan(
			&req.ID, &req.BookID, &submittedBy, &reviewedBy,
			&req.Status, &remarks, &req.SubmittedAt, &reviewedAt,
			&bookTitle, &submitterName,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning upload request: %v", ErrDatabaseError, err)
		}
		if submittedBy.Valid {
			req.SubmittedByID = &submittedBy.Int64
			if submitterName != "" {
				req.SubmittedBy = &models.User{ID: submittedBy.Int64, Username: submitterName}
			}
		}
		if reviewedBy.Valid {
			req.ReviewedByID = &reviewedBy.Int64
		}
		if remarks.Valid {
			req.Remarks = &remarks.String
		}
		if reviewedAt.Valid {
			req.ReviewedAt = &reviewedAt.Time
		}
		if bookTitle.Valid {
			req.Book = &models.Book{ID: req.BookID, Title: bookTitle.String}
		}
		reqs = append(reqs, *req)
	}
	return reqs, rows.Err()
}
