package handlers

import (
	"errors"
	"net/http"

	"booknest_backend/internal/middleware"
	"booknest_backend/internal/services"
	"booknest_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// AuthHandler holds the authentication and user services.
type AuthHandler struct {
	authService services.AuthService
	userService services.UserService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(as services.AuthService, us services.UserService) *AuthHandler {
	return &AuthHandler{authService: as, userService: us}
}

// Register handles self-service account creation.
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	user, err := h.authService.Register(req)
	if err != nil {
		utils.LogError(err, "Register: Error from authService.Register")
		switch {
		case errors.Is(err, services.ErrUsernameExists):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "Username already exists.", err.Error()))
		case errors.Is(err, services.ErrEmailExists):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "Email already exists.", err.Error()))
		case errors.Is(err, services.ErrRoleNotFound):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Default role is not configured.", err.Error()))
		default:
			internalError(c, "register user")
		}
		return
	}
	c.JSON(http.StatusCreated, user)
}

// Login exchanges credentials for a bearer token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.authService.Login(req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid username or password.", err.Error()))
		case errors.Is(err, services.ErrInactiveUser):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "User account is inactive.", err.Error()))
		default:
			utils.LogError(err, "Login: Error from authService.Login")
			internalError(c, "login")
		}
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GoogleLogin verifies a Google ID token, provisioning the account on first
// sign-in.
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	var req services.GoogleLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.authService.LoginWithGoogle(req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidGoogleToken) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid Google ID token.", err.Error()))
		} else {
			utils.LogError(err, "GoogleLogin: Error from authService.LoginWithGoogle")
			internalError(c, "login with Google")
		}
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ForgotPassword mails an OTP to the account's email.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req services.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := h.authService.ForgotPassword(req); err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "No account with this email.", err.Error()))
		} else {
			utils.LogError(err, "ForgotPassword: Error from authService.ForgotPassword")
			internalError(c, "process password reset")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "A reset code has been sent."})
}

// ResetPassword consumes the OTP and sets the new password.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req services.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := h.authService.ResetPassword(req); err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidOTP):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Invalid or expired OTP code.", err.Error()))
		case errors.Is(err, services.ErrPasswordMismatch):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Passwords do not match.", err.Error()))
		default:
			utils.LogError(err, "ResetPassword: Error from authService.ResetPassword")
			internalError(c, "reset password")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password has been reset."})
}

// GetProfile returns the authenticated user's profile.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "User not authenticated.", ""))
		return
	}
	profile, err := h.userService.GetProfile(user.ID)
	if err != nil {
		utils.LogError(err, "GetProfile: Error from userService.GetProfile")
		internalError(c, "load profile")
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateProfile lets the user edit their own email and name.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "User not authenticated.", ""))
		return
	}

	var req services.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	profile, err := h.userService.UpdateProfile(user.ID, req)
	if err != nil {
		if errors.Is(err, services.ErrEmailExists) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "Email already exists.", err.Error()))
		} else {
			utils.LogError(err, "UpdateProfile: Error from userService.UpdateProfile")
			internalError(c, "update profile")
		}
		return
	}
	c.JSON(http.StatusOK, profile)
}

// ChangePasswordRequest DTO.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

// ChangePassword verifies the current password and replaces it.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "User not authenticated.", ""))
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	err := h.authService.ChangePassword(user.ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Current password is incorrect.", err.Error()))
		} else {
			utils.LogError(err, "ChangePassword: Error from authService.ChangePassword")
			internalError(c, "change password")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password changed."})
}
