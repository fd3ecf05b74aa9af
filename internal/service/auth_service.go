package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"backend/internal/mailer"
	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/repository"
	"backend/pkg/apperr"
	"backend/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	accessTokenTTL       = 24 * time.Hour
	refreshTokenTTL      = 7 * 24 * time.Hour
	resetTokenTTL        = time.Hour
	verificationTokenTTL = 24 * time.Hour
)

// --- DTOs ---

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type CreateUserRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

type UserResponse struct {
	ID            uuid.UUID `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	Role          string    `json:"role"`
	Active        bool      `json:"active"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     string    `json:"created_at"`
}

type AuthResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         UserResponse `json:"user"`
}

// --- Interface ---

// AuthService owns account authentication: login, refresh rotation, password
// management and email verification. Failure messages stay generic so account
// existence is never leaked.
type AuthService interface {
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	CreateUser(ctx context.Context, actor Actor, req CreateUserRequest) (*UserResponse, error)
	GetUser(ctx context.Context, id string) (*UserResponse, error)
	ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
	VerifyEmail(ctx context.Context, token string) error
}

type authService struct {
	userRepo  repository.UserRepository
	tokenRepo repository.TokenRepository
	audit     AuditService
	mail      mailer.Mailer
	now       func() time.Time
	log       zerolog.Logger
}

func NewAuthService(
	userRepo repository.UserRepository,
	tokenRepo repository.TokenRepository,
	audit AuditService,
	mail mailer.Mailer,
) AuthService {
	return &authService{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		audit:     audit,
		mail:      mail,
		now:       time.Now,
		log:       logger.WithComponent("auth"),
	}
}

// --- Implementation ---

func (s *authService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, apperr.New(apperr.Unauthorized, "invalid email or password")
	}
	if !user.Active {
		return nil, apperr.New(apperr.Unauthorized, "invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, apperr.New(apperr.Unauthorized, "invalid email or password")
	}

	resp, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	s.audit.LogAction(ctx, AuditEntry{
		UserID:     user.ID.String(),
		UserEmail:  user.Email,
		Action:     model.ActionLogin,
		Entity:     model.EntityUser,
		EntityID:   user.ID.String(),
		EntityName: user.Username,
	})

	return resp, nil
}

// Refresh exchanges a valid refresh token for a new token pair. The presented
// token is deleted so each refresh token is single-use.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	stored, err := s.userRepo.GetRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, apperr.New(apperr.Unauthorized, "invalid refresh token")
	}
	if s.now().After(stored.ExpiresAt) {
		_ = s.userRepo.DeleteRefreshToken(ctx, refreshToken)
		return nil, apperr.New(apperr.Unauthorized, "invalid refresh token")
	}

	user, err := s.userRepo.GetByID(ctx, stored.UserID.String())
	if err != nil || !user.Active {
		return nil, apperr.New(apperr.Unauthorized, "invalid refresh token")
	}

	if err := s.userRepo.DeleteRefreshToken(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}
	return s.issueTokens(ctx, user)
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.userRepo.DeleteRefreshToken(ctx, refreshToken)
}

func (s *authService) CreateUser(ctx context.Context, actor Actor, req CreateUserRequest) (*UserResponse, error) {
	role := req.Role
	if role == "" {
		role = model.RoleUser
	}
	if role != model.RoleAdmin && role != model.RoleUser {
		return nil, apperr.New(apperr.Validation, "invalid role: must be admin or user")
	}

	if _, err := s.userRepo.GetByUsername(ctx, req.Username); err == nil {
		return nil, apperr.New(apperr.Conflict, "username already exists")
	}
	if _, err := s.userRepo.GetByEmail(ctx, req.Email); err == nil {
		return nil, apperr.New(apperr.Conflict, "email already exists")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username: req.Username,
		Email:    req.Email,
		Password: string(hashedPassword),
		Role:     role,
		Active:   true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.sendVerificationEmail(ctx, user)

	s.audit.LogAction(ctx, AuditEntry{
		UserID:     actor.ID,
		UserEmail:  actor.Email,
		Action:     model.ActionCreate,
		Entity:     model.EntityUser,
		EntityID:   user.ID.String(),
		EntityName: user.Username,
	})

	return mapUserResponse(user), nil
}

func (s *authService) GetUser(ctx context.Context, id string) (*UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "user not found")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return mapUserResponse(user), nil
}

// ChangePassword verifies the current password before setting the new one.
// Password changes are deliberately not written to the audit trail.
func (s *authService) ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return apperr.New(apperr.Unauthorized, "invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)); err != nil {
		return apperr.New(apperr.Unauthorized, "invalid credentials")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = string(hashedPassword)
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// ForgotPassword issues a single-use reset token. The response is identical
// whether or not the email has an account, so the endpoint cannot be used to
// enumerate users.
func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	// Opportunistic sweep so expired reset and verification tokens do not
	// accumulate between requests.
	if err := s.tokenRepo.PurgeExpired(ctx, s.now()); err != nil {
		s.log.Warn().Err(err).Msg("failed to purge expired tokens")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		s.log.Debug().Str("email", email).Msg("password reset requested for unknown email")
		return nil
	}

	token, err := randomToken()
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	reset := &model.PasswordResetToken{
		Token:     token,
		Email:     user.Email,
		UserID:    user.ID,
		ExpiresAt: s.now().Add(resetTokenTTL),
	}
	if err := s.tokenRepo.CreateReset(ctx, reset); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", frontendURL(), token)
	err = s.mail.Send(ctx, mailer.Message{
		To:      user.Email,
		Subject: "Reset your password",
		HTML:    fmt.Sprintf("<p>Click <a href=%q>here</a> to reset your password. The link expires in one hour.</p>", link),
	})
	if err != nil {
		s.log.Error().Err(err).Msg("failed to send password reset email")
	}
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	reset, err := s.tokenRepo.FindReset(ctx, req.Token)
	if err != nil || reset.Used || s.now().After(reset.ExpiresAt) {
		return apperr.New(apperr.Unauthorized, "invalid or expired reset token")
	}

	user, err := s.userRepo.GetByID(ctx, reset.UserID.String())
	if err != nil {
		return apperr.New(apperr.Unauthorized, "invalid or expired reset token")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = string(hashedPassword)
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if err := s.tokenRepo.ConsumeReset(ctx, reset); err != nil {
		return fmt.Errorf("failed to consume reset token: %w", err)
	}
	return nil
}

func (s *authService) VerifyEmail(ctx context.Context, token string) error {
	verification, err := s.tokenRepo.FindVerification(ctx, token)
	if err != nil || verification.Used || s.now().After(verification.ExpiresAt) {
		return apperr.New(apperr.Unauthorized, "invalid or expired verification token")
	}

	user, err := s.userRepo.GetByID(ctx, verification.UserID.String())
	if err != nil {
		return apperr.New(apperr.Unauthorized, "invalid or expired verification token")
	}

	user.EmailVerified = true
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to mark email verified: %w", err)
	}
	return s.tokenRepo.ConsumeVerification(ctx, verification)
}

// --- Helpers ---

func (s *authService) issueTokens(ctx context.Context, user *model.User) (*AuthResponse, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"email": user.Email,
		"role":  user.Role,
		"iat":   now.Unix(),
		"exp":   now.Add(accessTokenTTL).Unix(),
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(middleware.GetJWTSecret())
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshToken, err := randomToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	err = s.userRepo.CreateRefreshToken(ctx, &model.RefreshToken{
		UserID:    user.ID,
		Token:     refreshToken,
		ExpiresAt: now.Add(refreshTokenTTL),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         *mapUserResponse(user),
	}, nil
}

func (s *authService) sendVerificationEmail(ctx context.Context, user *model.User) {
	token, err := randomToken()
	if err != nil {
		s.log.Error().Err(err).Msg("failed to generate verification token")
		return
	}
	verification := &model.EmailVerificationToken{
		Token:     token,
		Email:     user.Email,
		UserID:    user.ID,
		ExpiresAt: s.now().Add(verificationTokenTTL),
	}
	if err := s.tokenRepo.CreateVerification(ctx, verification); err != nil {
		s.log.Error().Err(err).Msg("failed to store verification token")
		return
	}

	link := fmt.Sprintf("%s/verify-email?token=%s", frontendURL(), token)
	err = s.mail.Send(ctx, mailer.Message{
		To:      user.Email,
		Subject: "Verify your email address",
		HTML:    fmt.Sprintf("<p>Welcome! Click <a href=%q>here</a> to verify your email address.</p>", link),
	})
	if err != nil {
		s.log.Error().Err(err).Str("email", user.Email).Msg("failed to send verification email")
	}
}

// randomToken returns a 64-char hex string from 32 random bytes.
func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func frontendURL() string {
	if url := os.Getenv("FRONTEND_URL"); url != "" {
		return url
	}
	return "http://localhost:3000"
}

func mapUserResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:            user.ID,
		Username:      user.Username,
		Email:         user.Email,
		Role:          user.Role,
		Active:        user.Active,
		EmailVerified: user.EmailVerified,
		CreatedAt:     user.CreatedAt.Format(time.RFC3339),
	}
}
