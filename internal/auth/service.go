package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"parkly/internal/audit"
	"parkly/internal/notifications"
	"parkly/internal/shared/apperrors"
	"parkly/internal/shared/config"
	"parkly/internal/users"
	"parkly/pkg/logger"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidToken       = errors.New("invalid token")
	ErrAccountDisabled    = errors.New("account disabled")
)

type Service interface {
	Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, req *ChangePasswordRequest) error
	GetProfile(ctx context.Context, userID uuid.UUID) (*UserResponse, error)
	ValidateToken(tokenString string) (*JWTClaims, error)
}

type service struct {
	repo     Repository
	config   *config.Config
	notifier notifications.Notifier
	audit    audit.Recorder
	log      *logger.Logger
}

// NewService wires the auth service. notifier and recorder may be nil.
func NewService(repo Repository, cfg *config.Config, notifier notifications.Notifier, recorder audit.Recorder, log *logger.Logger) Service {
	if log == nil {
		log = logger.GetDefault()
	}
	return &service{
		repo:     repo,
		config:   cfg,
		notifier: notifier,
		audit:    recorder,
		log:      log,
	}
}

func (s *service) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return nil, apperrors.Internal(err, "Failed to register user")
	}
	if exists {
		return nil, apperrors.Conflict(ErrUserAlreadyExists, "User with this email already exists")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Internal(err, "Failed to register user")
	}

	// staff accounts are provisioned by an admin, never self-registered
	user := &users.User{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     email,
		Phone:     req.Phone,
		Password:  string(hashedPassword),
		Role:      users.RoleCustomer,
		IsActive:  true,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrUserAlreadyExists) {
			return nil, apperrors.Conflict(err, "User with this email already exists")
		}
		return nil, apperrors.Internal(err, "Failed to register user")
	}

	tokenPair, err := s.generateTokenPair(user)
	if err != nil {
		return nil, err
	}

	s.welcome(ctx, user)
	s.log.LogAuthSuccess(ctx, user.ID.String(), "register")

	return &AuthResponse{
		User:         newUserResponse(user),
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresIn:    tokenPair.ExpiresIn,
	}, nil
}

func (s *service) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	user, err := s.repo.GetUserByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, apperrors.Unauthenticated(ErrInvalidCredentials, "Invalid email or password")
		}
		return nil, apperrors.Internal(err, "Failed to login")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, apperrors.Unauthenticated(ErrInvalidCredentials, "Invalid email or password")
	}
	if !user.IsActive {
		return nil, apperrors.Forbidden(ErrAccountDisabled, "Account is deactivated")
	}

	tokenPair, err := s.generateTokenPair(user)
	if err != nil {
		return nil, err
	}

	s.log.LogAuthSuccess(ctx, user.ID.String(), "password")

	return &AuthResponse{
		User:         newUserResponse(user),
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresIn:    tokenPair.ExpiresIn,
	}, nil
}

func (s *service) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.validateToken(refreshToken)
	if err != nil {
		return nil, apperrors.Unauthenticated(err, "Invalid or expired refresh token")
	}

	if claims.Type != tokenTypeRefresh {
		return nil, apperrors.Unauthenticated(ErrInvalidToken, "Invalid or expired refresh token")
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, apperrors.Unauthenticated(ErrInvalidToken, "Invalid or expired refresh token")
	}

	// the role may have changed since the refresh token was issued
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, apperrors.Unauthenticated(err, "User not found")
		}
		return nil, apperrors.Internal(err, "Failed to refresh token")
	}
	if !user.IsActive {
		return nil, apperrors.Forbidden(ErrAccountDisabled, "Account is deactivated")
	}

	s.log.LogAuthSuccess(ctx, user.ID.String(), "refresh")
	return s.generateTokenPair(user)
}

func (s *service) ChangePassword(ctx context.Context, userID uuid.UUID, req *ChangePasswordRequest) error {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return apperrors.NotFound(err, "User not found")
		}
		return apperrors.Internal(err, "Failed to change password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
		return apperrors.Unauthenticated(ErrInvalidCredentials, "Current password is incorrect")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperrors.Internal(err, "Failed to change password")
	}

	if err := s.repo.UpdateUserPassword(ctx, userID, string(hashedPassword)); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return apperrors.NotFound(err, "User not found")
		}
		return apperrors.Internal(err, "Failed to change password")
	}

	s.record(ctx, user.ID, "Password changed")
	return nil
}

func (s *service) GetProfile(ctx context.Context, userID uuid.UUID) (*UserResponse, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, apperrors.NotFound(err, "User not found")
		}
		return nil, apperrors.Internal(err, "Failed to load user")
	}
	resp := newUserResponse(user)
	return &resp, nil
}

func (s *service) ValidateToken(tokenString string) (*JWTClaims, error) {
	return s.validateToken(tokenString)
}

func (s *service) generateTokenPair(user *users.User) (*TokenPair, error) {
	now := time.Now()

	accessToken, err := s.signToken(user, tokenTypeAccess, now, s.config.JWT.JWTExpiresIn)
	if err != nil {
		return nil, apperrors.Internal(err, "Failed to issue token")
	}
	refreshToken, err := s.signToken(user, tokenTypeRefresh, now, s.config.JWT.RefreshExpiresIn)
	if err != nil {
		return nil, apperrors.Internal(err, "Failed to issue token")
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.config.JWT.JWTExpiresIn.Seconds()),
	}, nil
}

func (s *service) signToken(user *users.User, tokenType string, now time.Time, ttl time.Duration) (string, error) {
	claims := JWTClaims{
		UserID: user.ID.String(),
		Email:  user.Email,
		Role:   string(user.Role),
		Type:   tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    tokenIssuer,
			Subject:   user.ID.String(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.JWT.Secret))
}

func (s *service) validateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(s.config.JWT.Secret), nil
	})

	if err != nil {
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}

// welcome sends the greeting notification and audit record for a new account.
// Failures are logged, registration has already succeeded.
func (s *service) welcome(ctx context.Context, user *users.User) {
	ctx = context.WithoutCancel(ctx)

	if s.notifier != nil {
		notification := notifications.NewNotificationBuilder().
			WithRecipient(user.ID).
			WithType(notifications.NotificationTypeInApp).
			WithContent("Welcome to Parkly!", "Your account has been created successfully. Open a wallet at your favourite garage to start booking spots.").
			Build()
		if err := s.notifier.Notify(ctx, notification); err != nil {
			s.log.LogSideEffectFailure(ctx, "notification", user.ID.String(), err)
		}
	}

	s.record(ctx, user.ID, "User registered")
}

func (s *service) record(ctx context.Context, userID uuid.UUID, action string) {
	if s.audit == nil {
		return
	}
	entry := audit.Entry{
		UserID:     userID,
		Action:     action,
		EntityType: audit.EntityUser,
		EntityID:   userID,
	}
	if err := s.audit.Record(context.WithoutCancel(ctx), entry); err != nil {
		s.log.LogSideEffectFailure(ctx, "audit", userID.String(), err)
	}
}
