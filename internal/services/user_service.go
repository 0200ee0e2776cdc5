package services

import (
	"database/sql"
	"errors"
	"fmt"

	"booknest_backend/internal/models"
	"booknest_backend/internal/repositories"

	"golang.org/x/crypto/bcrypt"
)

// --- Custom Service Errors ---
var (
	ErrCannotChangeOwnRole = errors.New("users cannot change their own role")
	ErrCannotDeleteSelf    = errors.New("users cannot delete their own account")
)

// --- Data Transfer Objects (DTOs) ---

// UpdateProfileRequest carries self-service profile edits. Role and status
// are deliberately absent.
type UpdateProfileRequest struct {
	Email    *string `json:"email"`
	FullName *string `json:"full_name"`
}

// AdminCreateUserRequest provisions an account with an explicit role, unlike
// self-registration which always lands on Member.
type AdminCreateUserRequest struct {
	Username string  `json:"username" binding:"required"`
	Email    string  `json:"email" binding:"required,email"`
	Password string  `json:"password" binding:"required,min=8"`
	FullName *string `json:"full_name"`
	RoleID   int64   `json:"role_id" binding:"required"`
	Status   *string `json:"status"`
}

// AdminUpdateUserRequest carries staff edits to any account.
type AdminUpdateUserRequest struct {
	Email    *string `json:"email"`
	FullName *string `json:"full_name"`
	Status   *string `json:"status"`
	RoleID   *int64  `json:"role_id"`
}

// --- UserService Interface ---
type UserService interface {
	GetProfile(userID int64) (*models.User, error)
	UpdateProfile(userID int64, req UpdateProfileRequest) (*models.User, error)
	ListUsers(skip, limit int64) ([]models.User, error)
	GetUser(userID int64) (*models.User, error)
	CreateUser(req AdminCreateUserRequest, actor *models.User) (*models.User, error)
	UpdateUser(userID int64, req AdminUpdateUserRequest, actor *models.User) (*models.User, error)
	DeleteUser(userID int64, actor *models.User) error
}

type userService struct {
	userRepo repositories.UserRepository
	roleRepo repositories.RoleRepository
	logs     LogService
	db       *sql.DB
}

// NewUserService creates a new instance of UserService.
func NewUserService(userRepo repositories.UserRepository, roleRepo repositories.RoleRepository, logs LogService, db *sql.DB) UserService {
	return &userService{userRepo: userRepo, roleRepo: roleRepo, logs: logs, db: db}
}

func (s *userService) GetProfile(userID int64) (*models.User, error) {
	user, err := s.userRepo.FindUserByID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) UpdateProfile(userID int64, req UpdateProfileRequest) (*models.User, error) {
	user, err := s.GetProfile(userID)
	if err != nil {
		return nil, err
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.FullName != nil {
		user.FullName = req.FullName
	}
	if err := s.userRepo.UpdateUser(s.db, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrEmailExists
		}
		return nil, err
	}
	return s.userRepo.FindUserByID(userID)
}

func (s *userService) ListUsers(skip, limit int64) ([]models.User, error) {
	return s.userRepo.ListUsers(skip, limit)
}

func (s *userService) GetUser(userID int64) (*models.User, error) {
	return s.GetProfile(userID)
}

// CreateUser provisions an account on behalf of staff.
func (s *userService) CreateUser(req AdminCreateUserRequest, actor *models.User) (*models.User, error) {
	if exists, err := s.userRepo.UsernameExists(req.Username); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrUsernameExists
	}
	if _, _, err := s.userRepo.FindUserByEmail(req.Email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}
	if _, err := s.roleRepo.FindRoleByID(req.RoleID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	status := models.UserStatusActive
	if req.Status != nil {
		status = *req.Status
	}
	user := &models.User{
		Username: req.Username,
		Email:    req.Email,
		FullName: req.FullName,
		Status:   status,
		RoleID:   req.RoleID,
	}
	userID, err := s.userRepo.CreateUser(s.db, user, string(hash))
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrUsernameExists
		}
		return nil, err
	}

	targetType := "user"
	s.logs.Record(actorIDOf(actor), "USER_CREATE", fmt.Sprintf("Created user %q", req.Username), &targetType, &userID)
	return s.userRepo.FindUserByID(userID)
}

// UpdateUser applies staff edits. Actors cannot reassign their own role, so
// an admin cannot accidentally lock themselves out of user management.
func (s *userService) UpdateUser(userID int64, req AdminUpdateUserRequest, actor *models.User) (*models.User, error) {
	user, err := s.GetProfile(userID)
	if err != nil {
		return nil, err
	}

	if req.RoleID != nil && *req.RoleID != user.RoleID {
		if actor != nil && actor.ID == userID {
			return nil, ErrCannotChangeOwnRole
		}
		if _, err := s.roleRepo.FindRoleByID(*req.RoleID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, ErrRoleNotFound
			}
			return nil, err
		}
		user.RoleID = *req.RoleID
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.FullName != nil {
		user.FullName = req.FullName
	}
	if req.Status != nil {
		user.Status = *req.Status
	}

	if err := s.userRepo.UpdateUser(s.db, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrEmailExists
		}
		return nil, err
	}

	targetType := "user"
	s.logs.Record(actorIDOf(actor), "USER_UPDATE", fmt.Sprintf("Updated user %d", userID), &targetType, &userID)
	return s.userRepo.FindUserByID(userID)
}

func (s *userService) DeleteUser(userID int64, actor *models.User) error {
	if actor != nil && actor.ID == userID {
		return ErrCannotDeleteSelf
	}
	err := s.userRepo.SoftDeleteUser(s.db, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	targetType := "user"
	s.logs.Record(actorIDOf(actor), "USER_DELETE", fmt.Sprintf("Deleted user %d", userID), &targetType, &userID)
	return nil
}
