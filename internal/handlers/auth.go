package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/taskflow/taskflow-api/internal/auth"
	"github.com/taskflow/taskflow-api/internal/constants"
	"github.com/taskflow/taskflow-api/internal/dto"
	"github.com/taskflow/taskflow-api/internal/httperr"
	"github.com/taskflow/taskflow-api/internal/middleware"
	"github.com/taskflow/taskflow-api/internal/services"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Register creates a new user and returns it with a bearer token.
func (h *AuthHandler) Register(c *gin.Context) {
	type RegisterRequest struct {
		Username string `json:"username" binding:"required,min=3,max=50"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Binding(c, err)
		return
	}

	user, err := h.authService.Register(services.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondAuthError(c, err)
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Username)
	if err != nil {
		httperr.Internal(c)
		return
	}

	httperr.Success(c, http.StatusCreated, "User registered successfully", gin.H{
		"user":  dto.ToUserDTO(*user),
		"token": token,
	})
}

// Login authenticates a user and returns a bearer token.
func (h *AuthHandler) Login(c *gin.Context) {
	type LoginRequest struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Binding(c, err)
		return
	}

	user, err := h.authService.Login(services.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondAuthError(c, err)
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Username)
	if err != nil {
		httperr.Internal(c)
		return
	}

	httperr.Success(c, http.StatusOK, "Login successful", gin.H{
		"user":  dto.ToUserDTO(*user),
		"token": token,
	})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		httperr.Unauthorized(c, "")
		return
	}

	user, err := h.authService.GetUser(userID)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	httperr.Success(c, http.StatusOK, "Token is valid", gin.H{
		"user": dto.ToUserDTO(*user),
	})
}

func respondAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrPasswordTooShort):
		httperr.ValidationFailed(c, []httperr.FieldError{{
			Field:   "password",
			Message: fmt.Sprintf("must be at least %d characters", constants.MinPasswordLength),
		}})
	case errors.Is(err, services.ErrEmailTaken):
		httperr.Conflict(c, "Email already registered")
	case errors.Is(err, services.ErrUsernameTaken):
		httperr.Conflict(c, "Username already taken")
	case errors.Is(err, services.ErrInvalidCredentials):
		httperr.Unauthorized(c, "Invalid credentials")
	case errors.Is(err, services.ErrUserNotFound):
		httperr.NotFound(c, "User not found")
	default:
		httperr.Internal(c)
	}
}
