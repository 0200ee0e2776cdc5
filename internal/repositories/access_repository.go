package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"booknest_backend/internal/models"
)

// AccessRepository covers direct book grants and the user-facing restricted
// access request workflow.
type AccessRepository interface {
	// Direct grants (BookPermission rows).
	CreateGrant(executor SQLExecutor, grant *models.BookPermission) (int64, error)
	HasGrant(bookID, userID int64) (bool, error)
	GrantedBookIDs(userID int64) (map[int64]bool, error)

	// AccessRequest state machine.
	CreateAccessRequest(executor SQLExecutor, req *models.AccessRequest) (int64, error)
	FindAccessRequestByID(requestID int64) (*models.AccessRequest, error)
	FindAccessRequestByUserAndBook(userID, bookID int64) (*models.AccessRequest, error)
	ResubmitAccessRequest(executor SQLExecutor, req *models.AccessRequest) error
	// UpdateAccessRequestStatus applies a reviewed transition guarded by the
	// previously observed status. ErrStaleUpdate means another reviewer won.
	UpdateAccessRequestStatus(executor SQLExecutor, requestID int64, fromStatus, toStatus string, rejectionReason *string) error
	ApprovedBookIDs(userID int64) (map[int64]bool, error)
	ListAccessRequestsByUser(userID int64) ([]models.AccessRequest, error)
	ListAccessRequests() ([]models.AccessRequest, error)
	HasApprovedAccessRequest(userID, bookID int64) (bool, error)
}

type accessRepository struct {
	db *sql.DB
}

// NewAccessRepository creates a new instance of AccessRepository.
func NewAccessRepository(db *sql.DB) AccessRepository {
	return &accessRepository{db: db}
}

// --- Direct grants ---

func (r *accessRepository) CreateGrant(executor SQLExecutor, grant *models.BookPermission) (int64, error) {
	var id int64
	err := executor.QueryRow(
		`INSERT INTO book_permissions (book_id, user_id, role_id, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		grant.BookID, grant.UserID, grant.RoleID, time.Now(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%w: creating book grant: %v", ErrDatabaseError, err)
	}
	return id, nil
}

func (r *accessRepository) HasGrant(bookID, userID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(
		`SELECT EXISTS(SELECT 1 FROM book_permissions WHERE book_id = $1 AND user_id = $2)`,
		bookID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: checking book grant: %v", ErrDatabaseError, err)
	}
	return exists, nil
}

// GrantedBookIDs batches every direct grant of the user into one membership
// set, so list endpoints resolve visibility without a per-book query.
func (r *accessRepository) GrantedBookIDs(userID int64) (map[int64]bool, error) {
	rows, err := r.db.Query(`SELECT book_id FROM book_permissions WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: listing granted books: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	ids := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: scanning grant: %v", ErrDatabaseError, err)
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// --- AccessRequest state machine ---

const accessRequestColumns = `ar.id, ar.user_id, ar.book_id, ar.name, ar.age, ar.location, ar.whatsapp,
	       ar.qualification, ar.institution, ar.teachers, ar.purpose, ar.previous_work,
	       ar.status, ar.rejection_reason, ar.created_at, ar.updated_at`

func scanAccessRequest(row scanner, withBook bool) (*models.AccessRequest, error) {
	req := &models.AccessRequest{}
	var age, location, qualification, institution, teachers, purpose, previousWork sql.NullString
	var rejectionReason sql.NullString
	var updatedAt sql.NullTime
	var bookTitle, bookCover sql.NullString

	dest := []interface{}{
		&req.ID, &req.UserID, &req.BookID, &req.Name, &age, &location, &req.Whatsapp,
		&qualification, &institution, &teachers, &purpose, &previousWork,
		&req.Status, &rejectionReason, &req.CreatedAt, &updatedAt,
	}
	if withBook {
		dest = append(dest, &bookTitle, &bookCover)
	}
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: scanning access request: %v", ErrDatabaseError, err)
	}

	setNullString := func(dst **string, src sql.NullString) {
		if src.Valid {
			v := src.String
			*dst = &v
		}
	}
	setNullString(&req.Age, age)
	setNullString(&req.Location, location)
	setNullString(&req.Qualification, qualification)
	setNullString(&req.Institution, institution)
	setNullString(&req.Teachers, teachers)
	setNullString(&req.Purpose, purpose)
	setNullString(&req.PreviousWork, previousWork)
	setNullString(&req.RejectionReason, rejectionReason)
	if updatedAt.Valid {
		req.UpdatedAt = &updatedAt.Time
	}
	if withBook {
		setNullString(&req.BookTitle, bookTitle)
		setNullString(&req.BookCover, bookCover)
	}
	return req, nil
}

func (r *accessRepository) CreateAccessRequest(executor SQLExecutor, req *models.AccessRequest) (int64, error) {
	now := time.Now()
	var id int64
	err := executor.QueryRow(
		`INSERT INTO access_requests_user
		   (user_id, book_id, name, age, location, whatsapp, qualification, institution,
		    teachers, purpose, previous_work, status, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$13)
		 RETURNING id`,
		req.UserID, req.BookID, req.Name, req.Age, req.Location, req.Whatsapp,
		req.Qualification, req.Institution, req.Teachers, req.Purpose, req.PreviousWork,
		models.AccessStatusPending, now,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%w: creating access request: %v", ErrDatabaseError, err)
	}
	return id, nil
}

func (r *accessRepository) FindAccessRequestByID(requestID int64) (*models.AccessRequest, error) {
	query := `SELECT ` + accessRequestColumns + ` FROM access_requests_user ar WHERE ar.id = $1`
	return scanAccessRequest(r.db.QueryRow(query, requestID), false)
}

func (r *accessRepository) FindAccessRequestByUserAndBook(userID, bookID int64) (*models.AccessRequest, error) {
	query := `SELECT ` + accessRequestColumns + ` FROM access_requests_user ar WHERE ar.user_id = $1 AND ar.book_id = $2`
	return scanAccessRequest(r.db.QueryRow(query, userID, bookID), false)
}

// ResubmitAccessRequest overwrites the form fields of an existing row and
// resets it to pending, clearing any rejection reason. Reuses the same row so
// a (user, book) pair keeps at most one live request.
func (r *accessRepository) ResubmitAccessRequest(executor SQLExecutor, req *models.AccessRequest) error {
	res, err := executor.Exec(
		`UPDATE access_requests_user SET
		   name = $1, age = $2, location = $3, whatsapp = $4, qualification = $5,
		   institution = $6, teachers = $7, purpose = $8, previous_work = $9,
		   status = $10, rejection_reason = NULL, updated_at = $11
		 WHERE id = $12`,
		req.Name, req.Age, req.Location, req.Whatsapp, req.Qualification,
		req.Institution, req.Teachers, req.Purpose, req.PreviousWork,
		models.AccessStatusPending, time.Now(), req.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: resubmitting access request %d: %v", ErrDatabaseError, req.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *accessRepository) UpdateAccessRequestStatus(executor SQLExecutor, requestID int64, fromStatus, toStatus string, rejectionReason *string) error {
	res, err := executor.Exec(
		`UPDATE access_requests_user
		 SET status = $1, rejection_reason = $2, updated_at = $3
		 WHERE id = $4 AND LOWER(status) = LOWER($5)`,
		toStatus, rejectionReason, time.Now(), requestID, fromStatus,
	)
	if err != nil {
		return fmt.Errorf("%w: updating access request %d status: %v", ErrDatabaseError, requestID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStaleUpdate
	}
	return nil
}

// ApprovedBookIDs batches the user's approved requests into one membership
// set. The status match is case-insensitive; historical rows carry mixed case.
func (r *accessRepository) ApprovedBookIDs(userID int64) (map[int64]bool, error) {
	rows, err := r.db.Query(
		`SELECT book_id FROM access_requests_user WHERE user_id = $1 AND LOWER(status) = $2`,
		userID, models.AccessStatusApproved,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: listing approved requests: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	ids := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: scanning approved request: %v", ErrDatabaseError, err)
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

func (r *accessRepository) HasApprovedAccessRequest(userID, bookID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(
		`SELECT EXISTS(
		   SELECT 1 FROM access_requests_user
		   WHERE user_id = $1 AND book_id = $2 AND LOWER(status) = $3)`,
		userID, bookID, models.AccessStatusApproved,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: checking approved request: %v", ErrDatabaseError, err)
	}
	return exists, nil
}

// listAccessRequests joins the book outer so deleted books still show in history.
func (r *accessRepository) listAccessRequests(where string, args ...interface{}) ([]models.AccessRequest, error) {
	query := `
		SELECT ` + accessRequestColumns + `, b.title, b.cover_image_url
		FROM access_requests_user ar
		LEFT JOIN books b ON ar.book_id = b.id
		` + where

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: listing access requests: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var reqs []models.AccessRequest
	for rows.Next() {
		req, err := scanAccessRequest(rows, true)
		if err != nil {
			return nil, err
		}
		if req.BookTitle == nil {
			removed := "Unknown Book (Removed)"
			req.BookTitle = &removed
		}
		reqs = append(reqs, *req)
	}
	return reqs, rows.Err()
}

func (r *accessRepository) ListAccessRequestsByUser(userID int64) ([]models.AccessRequest, error) {
	return r.listAccessRequests(`WHERE ar.user_id = $1 ORDER BY ar.id DESC`, userID)
}

func (r *accessRepository) ListAccessRequests() ([]models.AccessRequest, error) {
	return r.listAccessRequests(`ORDER BY ar.created_at DESC`)
}
