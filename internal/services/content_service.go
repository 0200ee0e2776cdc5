package services

import (
	"database/sql"
	"errors"
	"fmt"

	"booknest_backend/internal/models"
	"booknest_backend/internal/repositories"
)

// --- Custom Service Errors ---
var (
	ErrPostNotFound = errors.New("post not found")
)

// --- Data Transfer Objects (DTOs) ---

// PostInput carries announcement payloads.
type PostInput struct {
	Title    string  `json:"title" binding:"required"`
	Content  string  `json:"content" binding:"required"`
	ImageURL *string `json:"image_url"`
	IsActive *bool   `json:"is_active"`
}

// DonationInput replaces the donation page content.
type DonationInput struct {
	Title         string  `json:"title" binding:"required"`
	Description   *string `json:"description"`
	BankName      *string `json:"bank_name"`
	AccountName   *string `json:"account_name"`
	AccountNumber *string `json:"account_number"`
	IBAN          *string `json:"iban"`
	ContactEmail  *string `json:"contact_email"`
}

// --- ContentService Interface ---

// ContentService manages public site content: announcements and the
// donation page.
type ContentService interface {
	CreatePost(input PostInput, actor *models.User) (*models.Post, error)
	GetPost(postID int64) (*models.Post, error)
	ListPosts(activeOnly bool) ([]models.Post, error)
	UpdatePost(postID int64, input PostInput, actor *models.User) (*models.Post, error)
	DeletePost(postID int64, actor *models.User) error

	GetDonationInfo() (*models.DonationInfo, error)
	UpdateDonationInfo(input DonationInput, actor *models.User) (*models.DonationInfo, error)
}

type contentService struct {
	contentRepo repositories.ContentRepository
	logs        LogService
	db          *sql.DB
}

// NewContentService creates a new instance of ContentService.
func NewContentService(contentRepo repositories.ContentRepository, logs LogService, db *sql.DB) ContentService {
	return &contentService{contentRepo: contentRepo, logs: logs, db: db}
}

func (s *contentService) CreatePost(input PostInput, actor *models.User) (*models.Post, error) {
	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}
	post := &models.Post{Title: input.Title, Content: input.Content, ImageURL: input.ImageURL, IsActive: active}
	id, err := s.contentRepo.CreatePost(s.db, post)
	if err != nil {
		return nil, err
	}
	targetType := "post"
	s.logs.Record(actorIDOf(actor), "POST_CREATE", fmt.Sprintf("Created post %q", input.Title), &targetType, &id)
	return s.contentRepo.FindPostByID(id)
}

func (s *contentService) GetPost(postID int64) (*models.Post, error) {
	post, err := s.contentRepo.FindPostByID(postID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return post, nil
}

func (s *contentService) ListPosts(activeOnly bool) ([]models.Post, error) {
	return s.contentRepo.ListPosts(activeOnly)
}

func (s *contentService) UpdatePost(postID int64, input PostInput, actor *models.User) (*models.Post, error) {
	post, err := s.GetPost(postID)
	if err != nil {
		return nil, err
	}
	post.Title = input.Title
	post.Content = input.Content
	post.ImageURL = input.ImageURL
	if input.IsActive != nil {
		post.IsActive = *input.IsActive
	}
	if err := s.contentRepo.UpdatePost(s.db, post); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	targetType := "post"
	s.logs.Record(actorIDOf(actor), "POST_UPDATE", fmt.Sprintf("Updated post %d", postID), &targetType, &postID)
	return s.contentRepo.FindPostByID(postID)
}

func (s *contentService) DeletePost(postID int64, actor *models.User) error {
	if err := s.contentRepo.SoftDeletePost(s.db, postID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrPostNotFound
		}
		return err
	}
	targetType := "post"
	s.logs.Record(actorIDOf(actor), "POST_DELETE", fmt.Sprintf("Deleted post %d", postID), &targetType, &postID)
	return nil
}

// GetDonationInfo returns the donation page, or an empty page when it has
// never been configured.
func (s *contentService) GetDonationInfo() (*models.DonationInfo, error) {
	info, err := s.contentRepo.GetDonationInfo()
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return &models.DonationInfo{}, nil
		}
		return nil, err
	}
	return info, nil
}

func (s *contentService) UpdateDonationInfo(input DonationInput, actor *models.User) (*models.DonationInfo, error) {
	info := &models.DonationInfo{
		Title:         input.Title,
		Description:   input.Description,
		BankName:      input.BankName,
		AccountName:   input.AccountName,
		AccountNumber: input.AccountNumber,
		IBAN:          input.IBAN,
		ContactEmail:  input.ContactEmail,
	}
	if err := s.contentRepo.UpsertDonationInfo(s.db, info); err != nil {
		return nil, err
	}
	targetType := "donation_info"
	id := int64(1)
	s.logs.Record(actorIDOf(actor), "DONATION_UPDATE", "Updated donation page content", &targetType, &id)
	return s.contentRepo.GetDonationInfo()
}
