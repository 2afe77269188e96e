package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mindfull/backend/internal/api/middleware"
	"github.com/mindfull/backend/internal/models"
	"github.com/mindfull/backend/internal/repository"
	"github.com/mindfull/backend/internal/service"
)

type AuthHandler struct {
	authService service.AuthService
}

func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

type RegisterRequest struct {
	Email    string          `json:"email" binding:"required,email"`
	Username string          `json:"username" binding:"required,min=3,max=30"`
	Password string          `json:"password" binding:"required,min=8"`
	Name     string          `json:"name" binding:"required,min=1"`
	Role     models.UserRole `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type AuthResponse struct {
	User         interface{} `json:"user"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresAt    string      `json:"expires_at"`
}

// Register creates a new student or counsellor account
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	user, tokens, err := h.authService.Register(req.Email, req.Username, req.Password, req.Name, req.Role)
	if err != nil {
		if err == repository.ErrEmailAlreadyExists {
			middleware.RespondWithError(c, http.StatusConflict, "Email already exists")
			return
		}
		if err == repository.ErrUsernameAlreadyExists {
			middleware.RespondWithError(c, http.StatusConflict, "Username already exists")
			return
		}
		if err == service.ErrWeakPassword || err == service.ErrInvalidRole {
			middleware.RespondWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to register user")
		return
	}

	c.JSON(http.StatusCreated, AuthResponse{
		User:         user.ToResponse(),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    tokens.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// Login authenticates a user with email and password
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	user, tokens, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		if err == service.ErrInvalidCredentials {
			middleware.RespondWithError(c, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to login")
		return
	}

	c.JSON(http.StatusOK, AuthResponse{
		User:         user.ToResponse(),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    tokens.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// RefreshToken exchanges a refresh token for a new token pair
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	tokens, err := h.authService.RefreshToken(req.RefreshToken)
	if err != nil {
		middleware.RespondWithError(c, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// GetMe returns the currently authenticated user
func (h *AuthHandler) GetMe(c *gin.Context) {
	userID, err := middleware.GetUserIDFromContext(c)
	if err != nil {
		middleware.RespondWithError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.authService.GetUserByID(userID)
	if err != nil {
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to get user")
		return
	}

	c.JSON(http.StatusOK, user.ToResponse())
}

// Logout revokes the current user's refresh token
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, err := middleware.GetUserIDFromContext(c)
	if err != nil {
		middleware.RespondWithError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.authService.Logout(userID); err != nil {
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to logout")
		return
	}

	middleware.RespondWithSuccess(c, http.StatusOK, gin.H{"message": "Logged out"})
}

// GetCounsellors lists all registered counsellors
func (h *AuthHandler) GetCounsellors(c *gin.Context) {
	counsellors, err := h.authService.GetCounsellors()
	if err != nil {
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to get counsellors")
		return
	}

	responses := make([]models.UserResponse, 0, len(counsellors))
	for _, u := range counsellors {
		responses = append(responses, u.ToResponse())
	}

	c.JSON(http.StatusOK, responses)
}
