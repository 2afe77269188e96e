package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mindfull/backend/internal/config"
	"github.com/mindfull/backend/internal/models"
	"github.com/mindfull/backend/internal/repository"
	"github.com/mindfull/backend/pkg/auth"
	"github.com/mindfull/backend/pkg/database"
	"github.com/redis/go-redis/v9"
)

var (
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrWeakPassword        = errors.New("password must be between 8 and 72 characters")
	ErrInvalidRole         = errors.New("role must be student or counsellor")
	ErrRefreshTokenRevoked = errors.New("refresh token revoked")
)

type AuthService interface {
	Register(email, username, password, name string, role models.UserRole) (*models.User, *auth.TokenPair, error)
	Login(email, password string) (*models.User, *auth.TokenPair, error)
	RefreshToken(refreshToken string) (*auth.TokenPair, error)
	Logout(userID uuid.UUID) error
	GetUserByID(id uuid.UUID) (*models.User, error)
	GetCounsellors() ([]models.User, error)
}

type authService struct {
	userRepo repository.UserRepository
	jwtCfg   *config.JWTConfig
}

func NewAuthService(userRepo repository.UserRepository, jwtCfg *config.JWTConfig) AuthService {
	return &authService{
		userRepo: userRepo,
		jwtCfg:   jwtCfg,
	}
}

func (s *authService) Register(email, username, password, name string, role models.UserRole) (*models.User, *auth.TokenPair, error) {
	if !auth.IsPasswordValid(password) {
		return nil, nil, ErrWeakPassword
	}

	if role == "" {
		role = models.UserRoleStudent
	}
	if role != models.UserRoleStudent && role != models.UserRoleCounsellor {
		return nil, nil, ErrInvalidRole
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return nil, nil, err
	}

	user := &models.User{
		Email:    email,
		Username: username,
		Password: hashedPassword,
		Name:     name,
		Role:     role,
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, nil, err
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}

	return user, tokens, nil
}

func (s *authService) Login(email, password string) (*models.User, *auth.TokenPair, error) {
	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if err := auth.VerifyPassword(user.Password, password); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}

	return user, tokens, nil
}

// RefreshToken exchanges a valid, unrevoked refresh token for a new pair.
// The stored token must match so logout actually invalidates the session.
func (s *authService) RefreshToken(refreshToken string) (*auth.TokenPair, error) {
	claims, err := auth.ValidateToken(refreshToken, s.jwtCfg.Secret)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	stored, err := database.Get(ctx, refreshKey(claims.UserID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRefreshTokenRevoked
		}
		return nil, err
	}
	if stored != refreshToken {
		return nil, ErrRefreshTokenRevoked
	}

	user, err := s.userRepo.FindByID(claims.UserID)
	if err != nil {
		return nil, err
	}

	return s.issueTokens(user)
}

// Logout revokes the user's stored refresh token
func (s *authService) Logout(userID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return database.Delete(ctx, refreshKey(userID))
}

func (s *authService) GetUserByID(id uuid.UUID) (*models.User, error) {
	return s.userRepo.FindByID(id)
}

func (s *authService) GetCounsellors() ([]models.User, error) {
	return s.userRepo.FindCounsellors()
}

// issueTokens generates a token pair and records the refresh token in Redis
// with the refresh expiry as TTL
func (s *authService) issueTokens(user *models.User) (*auth.TokenPair, error) {
	tokens, err := auth.GenerateTokenPair(user.ID, user.Email, user.Username, string(user.Role), s.jwtCfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	ttl := time.Duration(s.jwtCfg.RefreshHours) * time.Hour
	if err := database.SetWithTTL(ctx, refreshKey(user.ID), tokens.RefreshToken, ttl); err != nil {
		return nil, err
	}

	return tokens, nil
}

func refreshKey(userID uuid.UUID) string {
	return fmt.Sprintf("refresh:%s", userID)
}
