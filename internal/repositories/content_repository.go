package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"booknest_backend/internal/models"
)

// ContentRepository covers site content: announcements and the donation page.
type ContentRepository interface {
	CreatePost(executor SQLExecutor, post *models.Post) (int64, error)
	FindPostByID(postID int64) (*models.Post, error)
	ListPosts(activeOnly bool) ([]models.Post, error)
	UpdatePost(executor SQLExecutor, post *models.Post) error
	SoftDeletePost(executor SQLExecutor, postID int64) error

	GetDonationInfo() (*models.DonationInfo, error)
	UpsertDonationInfo(executor SQLExecutor, info *models.DonationInfo) error
}

type contentRepository struct {
	db *sql.DB
}

// NewContentRepository creates a new instance of ContentRepository.
func NewContentRepository(db *sql.DB) ContentRepository {
	return &contentRepository{db: db}
}

func (r *contentRepository) CreatePost(executor SQLExecutor, post *models.Post) (int64, error) {
	var id int64
	err := executor.QueryRow(
		`INSERT INTO posts (title, content, image_url, is_active, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		post.Title, post.Content, post.ImageURL, post.IsActive, time.Now(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%w: creating post: %v", ErrDatabaseError, err)
	}
	return id, nil
}

func scanPost(row scanner) (*models.Post, error) {
	post := &models.Post{}
	var imageURL sql.NullString
	var deletedAt sql.NullTime
	err := row.Scan(&post.ID, &post.Title, &post.Content, &imageURL, &post.IsActive, &post.CreatedAt, &deletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: scanning post: %v", ErrDatabaseError, err)
	}
	if imageURL.Valid {
		post.ImageURL = &imageURL.String
	}
	if deletedAt.Valid {
		post.DeletedAt = &deletedAt.Time
	}
	return post, nil
}

func (r *contentRepository) FindPostByID(postID int64) (*models.Post, error) {
	return scanPost(r.db.QueryRow(
		`SELECT id, title, content, image_url, is_active, created_at, deleted_at
		 FROM posts WHERE id = $1 AND deleted_at IS NULL`,
		postID,
	))
}

// ListPosts returns posts newest first. activeOnly hides drafts for the
// public site.
func (r *contentRepository) ListPosts(activeOnly bool) ([]models.Post, error) {
	query := `SELECT id, title, content, image_url, is_active, created_at, deleted_at
	          FROM posts WHERE deleted_at IS NULL`
	if activeOnly {
		query += ` AND is_active = TRUE`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("%w: listing posts: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	return posts, rows.Err()
}

func (r *contentRepository) UpdatePost(executor SQLExecutor, post *models.Post) error {
	res, err := executor.Exec(
		`UPDATE posts SET title = $1, content = $2, image_url = $3, is_active = $4 WHERE id = $5 AND deleted_at IS NULL`,
		post.Title, post.Content, post.ImageURL, post.IsActive, post.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: updating post %d: %v", ErrDatabaseError, post.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *contentRepository) SoftDeletePost(executor SQLExecutor, postID int64) error {
	res, err := executor.Exec(
		`UPDATE posts SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL`,
		time.Now(), postID,
	)
	if err != nil {
		return fmt.Errorf("%w: deleting post %d: %v", ErrDatabaseError, postID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetDonationInfo returns the single donation row; ErrNotFound when the page
// has never been configured.
func (r *contentRepository) GetDonationInfo() (*models.DonationInfo, error) {
	info := &models.DonationInfo{}
	var description, bankName, accountName, accountNumber, iban, contactEmail sql.NullString
	err := r.db.QueryRow(
		`SELECT id, title, description, bank_name, account_name, account_number, iban, contact_email, updated_at
		 FROM donation_info ORDER BY id LIMIT 1`,
	).Scan(&info.ID, &info.Title, &description, &bankName, &accountName, &accountNumber, &iban, &contactEmail, &info.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: loading donation info: %v", ErrDatabaseError, err)
	}
	setNullString := func(dst **string, src sql.NullString) {
		if src.Valid {
			v := src.String
			*dst = &v
		}
	}
	setNullString(&info.Description, description)
	setNullString(&info.BankName, bankName)
	setNullString(&info.AccountName, accountName)
	setNullString(&info.AccountNumber, accountNumber)
	setNullString(&info.IBAN, iban)
	setNullString(&info.ContactEmail, contactEmail)
	return info, nil
}

// UpsertDonationInfo updates the single row, creating it on first use.
func (r *contentRepository) UpsertDonationInfo(executor SQLExecutor, info *models.DonationInfo) error {
	now := time.Now()
	res, err := executor.Exec(
		`UPDATE donation_info SET title = $1, description = $2, bank_name = $3, account_name = $4,
		        account_number = $5, iban = $6, contact_email = $7, updated_at = $8`,
		info.Title, info.Description, info.BankName, info.AccountName,
		info.AccountNumber, info.IBAN, info.ContactEmail, now,
	)
	if err != nil {
		return fmt.Errorf("%w: updating donation info: %v", ErrDatabaseError, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	_, err = executor.Exec(
		`INSERT INTO donation_info (title, description, bank_name, account_name, account_number, iban, contact_email, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		info.Title, info.Description, info.BankName, info.AccountName,
		info.AccountNumber, info.IBAN, info.ContactEmail, now,
	)
	if err != nil {
		return fmt.Errorf("%w: creating donation info: %v", ErrDatabaseError, err)
	}
	return nil
}
