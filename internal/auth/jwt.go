package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carries the user identity. ID (jti) is unique per token so a rotated
// refresh token never equals its predecessor, even inside the same second.
type Claims struct {
	UserID int64     `json:"user_id"`
	Email  string    `json:"email"`
	Type   TokenType `json:"typ"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`

	refreshID string
}

// RefreshID is the jti of the refresh token, the value kept in the store.
func (p TokenPair) RefreshID() string {
	return p.refreshID
}

type Issuer struct {
	secret        []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	now           func() time.Time
}

func NewIssuer(secret string, accessExpiry, refreshExpiry time.Duration) *Issuer {
	return &Issuer{
		secret:        []byte(secret),
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
		now:           time.Now,
	}
}

func (i *Issuer) RefreshExpiry() time.Duration {
	return i.refreshExpiry
}

func (i *Issuer) Issue(userID int64, email string) (TokenPair, error) {
	access, _, err := i.sign(userID, email, TokenAccess, i.accessExpiry)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, jti, err := i.sign(userID, email, TokenRefresh, i.refreshExpiry)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int64(i.accessExpiry.Seconds()),
		refreshID:    jti,
	}, nil
}

func (i *Issuer) sign(userID int64, email string, typ TokenType, expiry time.Duration) (string, string, error) {
	now := i.now()
	jti := uuid.NewString()
	claims := Claims{
		UserID: userID,
		Email:  email,
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   fmt.Sprint(userID),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, jti, nil
}

// Parse validates signature, expiry and token type.
func (i *Issuer) Parse(tokenString string, want TokenType) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != want {
		return nil, fmt.Errorf("%w: got %s token, want %s", ErrInvalidToken, claims.Type, want)
	}
	return claims, nil
}
