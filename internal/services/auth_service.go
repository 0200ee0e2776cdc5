package services

import (
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	"booknest_backend/internal/mailer"
	"booknest_backend/internal/models"
	"booknest_backend/internal/repositories"
	"booknest_backend/pkg/utils"

	googleAuthIDTokenVerifier "github.com/futurenda/google-auth-id-token-verifier"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// --- Custom Service Errors ---
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameExists     = errors.New("username already exists")
	ErrEmailExists        = errors.New("email already exists")
	ErrRoleNotFound       = errors.New("specified role not found")
	ErrTokenGeneration    = errors.New("failed to generate token")
	ErrInvalidGoogleToken = errors.New("invalid Google ID token")
	ErrInvalidOTP         = errors.New("invalid or expired OTP code")
	ErrPasswordMismatch   = errors.New("passwords do not match")
)

const otpTTL = 10 * time.Minute

// --- Data Transfer Objects (DTOs) ---

// LoginRequest DTO.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest DTO.
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name"`
}

// GoogleLoginRequest DTO.
type GoogleLoginRequest struct {
	IDToken string `json:"id_token" binding:"required"`
}

// ForgotPasswordRequest DTO.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest DTO.
type ResetPasswordRequest struct {
	Email           string `json:"email" binding:"required,email"`
	OTP             string `json:"otp" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

// AuthResponse DTO.
type AuthResponse struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
}

// --- AuthService Interface ---
type AuthService interface {
	Register(req RegisterRequest) (*models.User, error)
	Login(req LoginRequest) (*AuthResponse, error)
	LoginWithGoogle(req GoogleLoginRequest) (*AuthResponse, error)
	ForgotPassword(req ForgotPasswordRequest) error
	ResetPassword(req ResetPasswordRequest) error
	ChangePassword(userID int64, currentPassword, newPassword string) error
}

type authService struct {
	userRepo       repositories.UserRepository
	roleRepo       repositories.RoleRepository
	tokens         *utils.TokenManager
	mail           mailer.Mailer
	logs           LogService
	googleClientID string
	db             *sql.DB
}

// NewAuthService creates a new instance of AuthService.
func NewAuthService(
	userRepo repositories.UserRepository,
	roleRepo repositories.RoleRepository,
	tokens *utils.TokenManager,
	mail mailer.Mailer,
	logs LogService,
	googleClientID string,
	db *sql.DB,
) AuthService {
	return &authService{
		userRepo:       userRepo,
		roleRepo:       roleRepo,
		tokens:         tokens,
		mail:           mail,
		logs:           logs,
		googleClientID: googleClientID,
		db:             db,
	}
}

func (s *authService) issueToken(user *models.User) (*AuthResponse, error) {
	token, err := s.tokens.Generate(user.ID, user.Username, user.RoleName(), 0)
	if err != nil {
		return nil, ErrTokenGeneration
	}
	return &AuthResponse{User: user, AccessToken: token, TokenType: "bearer"}, nil
}

// Register creates a user on the default Member role.
func (s *authService) Register(req RegisterRequest) (*models.User, error) {
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

	role, err := s.roleRepo.FindRoleByName(models.RoleMember)
	if err != nil {
		return nil, ErrRoleNotFound
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &models.User{
		Username: req.Username,
		Email:    req.Email,
		Status:   models.UserStatusActive,
		RoleID:   role.ID,
	}
	if req.FullName != "" {
		user.FullName = &req.FullName
	}

	userID, err := s.userRepo.CreateUser(s.db, user, string(hash))
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrUsernameExists
		}
		return nil, err
	}

	targetType := "user"
	s.logs.Record(&userID, "USER_REGISTER", fmt.Sprintf("User %q registered", req.Username), &targetType, &userID)
	return s.userRepo.FindUserByID(userID)
}

// Login verifies the credentials and issues a bearer token. Inactive accounts
// are blocked before a token is issued. Every attempt leaves a best-effort
// audit entry.
func (s *authService) Login(req LoginRequest) (*AuthResponse, error) {
	targetType := "user"
	user, hash, err := s.userRepo.FindUserByUsername(req.Username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			s.logs.Record(nil, "LOGIN_FAILED", fmt.Sprintf("Failed login for unknown username %q", req.Username), nil, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
		s.logs.Record(&user.ID, "LOGIN_FAILED", fmt.Sprintf("Failed login for user %q", req.Username), &targetType, &user.ID)
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive() {
		s.logs.Record(&user.ID, "LOGIN_BLOCKED", fmt.Sprintf("Blocked login for inactive user %q", req.Username), &targetType, &user.ID)
		return nil, ErrInactiveUser
	}
	s.logs.Record(&user.ID, "LOGIN_SUCCESS", fmt.Sprintf("User %q logged in", req.Username), &targetType, &user.ID)
	return s.issueToken(user)
}

// LoginWithGoogle verifies the Google ID token, provisioning an account on
// first sign-in.
func (s *authService) LoginWithGoogle(req GoogleLoginRequest) (*AuthResponse, error) {
	v := googleAuthIDTokenVerifier.Verifier{}
	if err := v.VerifyIDToken(req.IDToken, []string{s.googleClientID}); err != nil {
		return nil, ErrInvalidGoogleToken
	}
	claims, err := googleAuthIDTokenVerifier.Decode(req.IDToken)
	if err != nil {
		return nil, ErrInvalidGoogleToken
	}

	user, _, err := s.userRepo.FindUserByEmail(claims.Email)
	if err == nil {
		return s.issueToken(user)
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	// First sign-in: create a Member with a random password, so the
	// credential path stays unusable until the user sets one.
	role, err := s.roleRepo.FindRoleByName(models.RoleMember)
	if err != nil {
		return nil, ErrRoleNotFound
	}
	randomPassword, err := randomToken(32)
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(randomPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	newUser := &models.User{
		Username: claims.Email,
		Email:    claims.Email,
		Status:   models.UserStatusActive,
		RoleID:   role.ID,
	}
	if claims.Name != "" {
		newUser.FullName = &claims.Name
	}
	userID, err := s.userRepo.CreateUser(s.db, newUser, string(hash))
	if err != nil {
		return nil, err
	}

	targetType := "user"
	s.logs.Record(&userID, "USER_REGISTER", fmt.Sprintf("User %q registered via Google", claims.Email), &targetType, &userID)

	user, err = s.userRepo.FindUserByID(userID)
	if err != nil {
		return nil, err
	}
	return s.issueToken(user)
}

// ForgotPassword emails a short-lived OTP. An unknown email is a not-found
// error.
func (s *authService) ForgotPassword(req ForgotPasswordRequest) error {
	user, _, err := s.userRepo.FindUserByEmail(req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	otp, err := randomOTP(6)
	if err != nil {
		return err
	}
	if err := s.userRepo.SetOTP(s.db, user.ID, otp, time.Now().Add(otpTTL)); err != nil {
		return err
	}

	body := fmt.Sprintf("Your password reset code is %s. It expires in %d minutes.", otp, int(otpTTL.Minutes()))
	if err := s.mail.Send(user.Email, "Password Reset Code", body); err != nil {
		log.Error().Err(err).Str("email", user.Email).Msg("failed to send OTP mail")
		return err
	}
	return nil
}

// ResetPassword consumes a valid OTP and replaces the credential.
func (s *authService) ResetPassword(req ResetPasswordRequest) error {
	if req.NewPassword != req.ConfirmPassword {
		return ErrPasswordMismatch
	}
	user, _, err := s.userRepo.FindUserByEmail(req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrInvalidOTP
		}
		return err
	}
	if user.OTPCode == nil || user.OTPExpiresAt == nil {
		return ErrInvalidOTP
	}
	if *user.OTPCode != req.OTP || time.Now().After(*user.OTPExpiresAt) {
		return ErrInvalidOTP
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.userRepo.UpdatePassword(tx, user.ID, string(hash)); err != nil {
		return err
	}
	if err := s.userRepo.ClearOTP(tx, user.ID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing password reset: %w", err)
	}

	targetType := "user"
	s.logs.Record(&user.ID, "PASSWORD_RESET", fmt.Sprintf("User %d reset their password", user.ID), &targetType, &user.ID)
	return nil
}

// ChangePassword verifies the current password before replacing it.
func (s *authService) ChangePassword(userID int64, currentPassword, newPassword string) error {
	user, err := s.userRepo.FindUserByID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	_, hash, err := s.userRepo.FindUserByUsername(user.Username)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(currentPassword)) != nil {
		return ErrInvalidCredentials
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	return s.userRepo.UpdatePassword(s.db, userID, string(newHash))
}

// randomOTP returns a numeric code of the given length.
func randomOTP(length int) (string, error) {
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("generating OTP: %w", err)
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}

// randomToken returns a URL-safe random string.
func randomToken(length int) (string, error) {
	const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			return "", fmt.Errorf("generating token: %w", err)
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}
