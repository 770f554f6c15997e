package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/digkill/magicpic/internal/auth"
	"github.com/digkill/magicpic/internal/models"
	"github.com/digkill/magicpic/internal/repository"
)

// RefreshTokens persists the live refresh token id per user.
type RefreshTokens interface {
	Save(ctx context.Context, userID int64, tokenID string, ttl time.Duration) error
	Matches(ctx context.Context, userID int64, tokenID string) (bool, error)
	Revoke(ctx context.Context, userID int64) error
}

type SignupInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone,omitempty"`
}

type Session struct {
	User *models.User `json:"user"`
	auth.TokenPair
}

type AuthService struct {
	users         *repository.UserRepository
	issuer        *auth.Issuer
	refresh       RefreshTokens
	signupCredits int
	log           *zap.Logger
}

func NewAuthService(users *repository.UserRepository, issuer *auth.Issuer, refresh RefreshTokens, signupCredits int, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{users: users, issuer: issuer, refresh: refresh, signupCredits: signupCredits, log: log}
}

const referralAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func newReferralCode() (string, error) {
	buf := make([]byte, 8)
	max := big.NewInt(int64(len(referralAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = referralAlphabet[n.Int64()]
	}
	return string(buf), nil
}

func validateSignup(in SignupInput) error {
	if _, err := mail.ParseAddress(in.Email); err != nil || !strings.Contains(in.Email, "@") {
		return reject(CodeValidation, "A valid email is required.")
	}
	if len(in.Password) < 8 {
		return reject(CodeValidation, "Password must be at least 8 characters.")
	}
	if strings.TrimSpace(in.Name) == "" {
		return reject(CodeValidation, "Name is required.")
	}
	return nil
}

// Signup creates an account with the starting balance and logs it in.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*Session, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateSignup(in); err != nil {
		return nil, err
	}

	existing, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, internal(err)
	}
	if existing != nil {
		return nil, reject(CodeEmailExists, "An account with this email already exists")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, internal(err)
	}

	var user *models.User
	for attempt := 0; attempt < 5 && user == nil; attempt++ {
		code, err := newReferralCode()
		if err != nil {
			return nil, internal(fmt.Errorf("referral code: %w", err))
		}
		user, err = s.users.Create(ctx, &models.User{
			Email:          in.Email,
			HashedPassword: hash,
			Name:           strings.TrimSpace(in.Name),
			Phone:          strings.TrimSpace(in.Phone),
			Credits:        s.signupCredits,
			ReferralCode:   code,
			IsActive:       true,
		})
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, internal(err)
		}
		// Either a concurrent signup took the email or the code collided.
		if taken, findErr := s.users.FindByEmail(ctx, in.Email); findErr == nil && taken != nil {
			return nil, reject(CodeEmailExists, "An account with this email already exists")
		}
		user = nil
	}
	if user == nil {
		return nil, internal(errors.New("could not allocate a unique referral code"))
	}

	s.log.Info("user signed up", zap.Int64("user_id", user.ID))
	return s.startSession(ctx, user)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, internal(err)
	}
	if user == nil || !user.IsActive || !auth.CheckPassword(user.HashedPassword, password) {
		return nil, reject(CodeInvalidCredentials, "Incorrect email or password")
	}
	if err := s.users.TouchLastLogin(ctx, user.ID); err != nil {
		s.log.Warn("touch last login", zap.Int64("user_id", user.ID), zap.Error(err))
	}
	return s.startSession(ctx, user)
}

// Refresh rotates the pair. Only the most recently issued refresh token is accepted.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := s.issuer.Parse(refreshToken, auth.TokenRefresh)
	if err != nil {
		return nil, reject(CodeUnauthorized, "Invalid refresh token")
	}
	ok, err := s.refresh.Matches(ctx, claims.UserID, claims.ID)
	if err != nil {
		return nil, internal(err)
	}
	if !ok {
		return nil, reject(CodeUnauthorized, "Invalid refresh token")
	}
	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, internal(err)
	}
	if user == nil || !user.IsActive {
		return nil, reject(CodeUnauthorized, "Invalid refresh token")
	}
	return s.startSession(ctx, user)
}

func (s *AuthService) Logout(ctx context.Context, userID int64) error {
	if err := s.refresh.Revoke(ctx, userID); err != nil {
		return internal(err)
	}
	return nil
}

func (s *AuthService) Me(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, internal(err)
	}
	if user == nil {
		return nil, reject(CodeUnauthorized, "User not found")
	}
	return user, nil
}

func (s *AuthService) startSession(ctx context.Context, user *models.User) (*Session, error) {
	pair, err := s.issuer.Issue(user.ID, user.Email)
	if err != nil {
		return nil, internal(err)
	}
	if err := s.refresh.Save(ctx, user.ID, pair.RefreshID(), s.issuer.RefreshExpiry()); err != nil {
		return nil, internal(err)
	}
	return &Session{User: user, TokenPair: pair}, nil
}
