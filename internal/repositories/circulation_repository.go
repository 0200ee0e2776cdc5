package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"booknest_backend/internal/models"
)

// CirculationRepository tracks physical copies and issued books.
type CirculationRepository interface {
	CreateCopy(executor SQLExecutor, copy *models.BookCopy) (int64, error)
	FindCopyByID(copyID int64) (*models.BookCopy, error)
	ListCopiesByBook(bookID int64) ([]models.BookCopy, error)
	UpdateCopyStatus(executor SQLExecutor, copyID int64, status string) error
	SoftDeleteCopy(executor SQLExecutor, copyID int64) error
	CountCopies(bookID int64) (total, available int64, err error)

	CreateIssue(executor SQLExecutor, issue *models.IssuedBook) (int64, error)
	FindIssueByID(issueID int64) (*models.IssuedBook, error)
	FindOpenIssueByCopy(copyID int64) (*models.IssuedBook, error)
	MarkReturned(executor SQLExecutor, issueID int64, returnedAt time.Time) error
	ListIssuesByUser(userID int64) ([]models.IssuedBook, error)
	ListIssues(status string) ([]models.IssuedBook, error)
}

type circulationRepository struct {
	db *sql.DB
}

// NewCirculationRepository creates a new instance of CirculationRepository.
func NewCirculationRepository(db *sql.DB) CirculationRepository {
	return &circulationRepository{db: db}
}

func scanCopy(row scanner) (*models.BookCopy, error) {
	c := &models.BookCopy{}
	var deletedAt sql.NullTime
	err := row.Scan(&c.ID, &c.BookID, &c.LocationID, &c.Status, &c.CreatedAt, &c.UpdatedAt, &deletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: scanning book copy: %v", ErrDatabaseError, err)
	}
	if deletedAt.Valid {
		c.DeletedAt = &deletedAt.Time
	}
	return c, nil
}

func (r *circulationRepository) CreateCopy(executor SQLExecutor, copy *models.BookCopy) (int64, error) {
	now := time.Now()
	status := copy.Status
	if status == "" {
		status = models.CopyStatusAvailable
	}
	var id int64
	err := executor.QueryRow(
		`INSERT INTO book_copies (book_id, location_id, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $4) RETURNING id`,
		copy.BookID, copy.LocationID, status, now,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%w: creating book copy: %v", ErrDatabaseError, err)
	}
	return id, nil
}

func (r *circulationRepository) FindCopyByID(copyID int64) (*models.BookCopy, error) {
	return scanCopy(r.db.QueryRow(
		`SELECT id, book_id, location_id, status, created_at, updated_at, deleted_at
		 FROM book_copies WHERE id = $1 AND deleted_at IS NULL`,
		copyID,
	))
}

func (r *circulationRepository) ListCopiesByBook(bookID int64) ([]models.BookCopy, error) {
	rows, err := r.db.Query(
		`SELECT id, book_id, location_id, status, created_at, updated_at, deleted_at
		 FROM book_copies WHERE book_id = $1 AND deleted_at IS NULL ORDER BY id`,
		bookID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: listing copies for book %d: %v", ErrDatabaseError, bookID, err)
	}
	defer rows.Close()

	var copies []models.BookCopy
	for rows.Next() {
		c, err := scanCopy(rows)
		if err != nil {
			return nil, err
		}
		copies = append(copies, *c)
	}
	return copies, rows.Err()
}

func (r *circulationRepository) UpdateCopyStatus(executor SQLExecutor, copyID int64, status string) error {
	res, err := executor.Exec(
		`UPDATE book_copies SET status = $1, updated_at = $2 WHERE id = $3 AND deleted_at IS NULL`,
		status, time.Now(), copyID,
	)
	if err != nil {
		return fmt.Errorf("%w: updating copy %d status: %v", ErrDatabaseError, copyID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *circulationRepository) SoftDeleteCopy(executor SQLExecutor, copyID int64) error {
	res, err := executor.Exec(
		`UPDATE book_copies SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL`,
		time.Now(), copyID,
	)
	if err != nil {
		return fmt.Errorf("%w: deleting copy %d: %v", ErrDatabaseError, copyID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountCopies recomputes the denormalized counters on the book row.
func (r *circulationRepository) CountCopies(bookID int64) (int64, int64, error) {
	var total, available int64
	err := r.db.QueryRow(
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE status IN ($2, $3))
		 FROM book_copies WHERE book_id = $1 AND deleted_at IS NULL`,
		bookID, models.CopyStatusAvailable, models.CopyStatusNew,
	).Scan(&total, &available)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: counting copies for book %d: %v", ErrDatabaseError, bookID, err)
	}
	return total, available, nil
}

func scanIssue(row scanner) (*models.IssuedBook, error) {
	issue := &models.IssuedBook{}
	var dueDate, returnDate sql.NullTime
	err := row.Scan(
		&issue.ID, &issue.UserID, &issue.CopyID, &issue.IssueDate,
		&dueDate, &returnDate, &issue.Status, &issue.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: scanning issued book: %v", ErrDatabaseError, err)
	}
	if dueDate.Valid {
		issue.DueDate = &dueDate.Time
	}
	if returnDate.Valid {
		issue.ActualReturnDate = &returnDate.Time
	}
	return issue, nil
}

func (r *circulationRepository) CreateIssue(executor SQLExecutor, issue *models.IssuedBook) (int64, error) {
	var id int64
	err := executor.QueryRow(
		`INSERT INTO issued_books (user_id, copy_id, issue_date, due_date, status, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $3) RETURNING id`,
		issue.UserID, issue.CopyID, time.Now(), issue.DueDate, models.IssueStatusIssued,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%w: creating issue record: %v", ErrDatabaseError, err)
	}
	return id, nil
}

func (r *circulationRepository) FindIssueByID(issueID int64) (*models.IssuedBook, error) {
	return scanIssue(r.db.QueryRow(
		`SELECT id, user_id, copy_id, issue_date, due_date, actual_return_date, status, updated_at
		 FROM issued_books WHERE id = $1`,
		issueID,
	))
}

func (r *circulationRepository) FindOpenIssueByCopy(copyID int64) (*models.IssuedBook, error) {
	return scanIssue(r.db.QueryRow(
		`SELECT id, user_id, copy_id, issue_date, due_date, actual_return_date, status, updated_at
		 FROM issued_books WHERE copy_id = $1 AND status = $2`,
		copyID, models.IssueStatusIssued,
	))
}

func (r *circulationRepository) MarkReturned(executor SQLExecutor, issueID int64, returnedAt time.Time) error {
	res, err := executor.Exec(
		`UPDATE issued_books SET status = $1, actual_return_date = $2, updated_at = $3
		 WHERE id = $4 AND status != $1`,
		models.IssueStatusReturned, returnedAt, time.Now(), issueID,
	)
	if err != nil {
		return fmt.Errorf("%w: returning issue %d: %v", ErrDatabaseError, issueID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *circulationRepository) listIssues(where string, args ...interface{}) ([]models.IssuedBook, error) {
	query := `
		SELECT i.id, i.user_id, i.copy_id, i.issue_date, i.due_date, i.actual_return_date, i.status, i.updated_at,
		       COALESCE(u.username, ''), c.book_id, COALESCE(b.title, '')
		FROM issued_books i
		LEFT JOIN users u ON i.user_id = u.id
		LEFT JOIN book_copies c ON i.copy_id = c.id
		LEFT JOIN books b ON c.book_id = b.id
		` + where

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: listing issued books: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var issues []models.IssuedBook
	for rows.Next() {
		issue := &models.IssuedBook{}
		var dueDate, returnDate sql.NullTime
		var username, bookTitle string
		var bookID sql.NullInt64
		err := rows.Scan(
			&issue.ID, &issue.UserID, &issue.CopyID, &issue.IssueDate,
			&dueDate, &returnDate, &issue.Status, &issue.UpdatedAt,
			&username, &bookID, &bookTitle,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning issued book: %v", ErrDatabaseError, err)
		}
		if dueDate.Valid {
			issue.DueDate = &dueDate.Time
		}
		if returnDate.Valid {
			issue.ActualReturnDate = &returnDate.Time
		}
		if username != "" {
			issue.User = &models.User{ID: issue.UserID, Username: username}
		}
		if bookID.Valid {
			issue.Copy = &models.BookCopy{ID: issue.CopyID, BookID: bookID.Int64}
			if bookTitle != "" {
				issue.Copy.Book = &models.Book{ID: bookID.Int64, Title: bookTitle}
			}
		}
		issues = append(issues, *issue)
	}
	return issues, rows.Err()
}

func (r *circulationRepository) ListIssuesByUser(userID int64) ([]models.IssuedBook, error) {
	return r.listIssues(`WHERE i.user_id = $1 ORDER BY i.id DESC`, userID)
}

func (r *circulationRepository) ListIssues(status string) ([]models.IssuedBook, error) {
	if status == "" {
		return r.listIssues(`ORDER BY i.id DESC`)
	}
	return r.listIssues(`WHERE LOWER(i.status) = LOWER($1) ORDER BY i.id DESC`, status)
}
