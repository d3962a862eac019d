package auth

import (
	"chat-presence/domain"
	"chat-presence/errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "chat-presence"

// Claims defines the structure of the data stored inside the JWT.
type Claims struct {
	UserID     string `json:"user_id" validate:"required,max=128"`
	Name       string `json:"name" validate:"max=256"`
	ProfilePic string `json:"profile_pic,omitempty"`
	jwt.RegisteredClaims
}

// Tokens signs and validates HS256 tokens with a single shared secret.
type Tokens struct {
	secret   []byte
	duration time.Duration
	now      func() time.Time
}

func NewTokens(secret string, duration time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), duration: duration, now: time.Now}
}

// GenerateToken creates a signed JWT for a specific user.
func (t *Tokens) GenerateToken(user domain.AuthUser) (string, error) {
	now := t.now()
	claims := &Claims{
		UserID:     string(user.ID),
		Name:       user.DisplayName,
		ProfilePic: user.ProfilePic,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(t.duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   string(user.ID),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// ValidateToken parses and validates the signature, expiration and content of a JWT string.
func (t *Tokens) ValidateToken(tokenString string) (domain.AuthUser, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(token *jwt.Token) (interface{}, error) {
			return t.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return domain.AuthUser{}, fmt.Errorf("%w: %v", errors.ErrUnauthenticated, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return domain.AuthUser{}, fmt.Errorf("%w: %v", errors.ErrUnauthenticated, jwt.ErrSignatureInvalid)
	}
	if err := validateClaims(claims); err != nil {
		return domain.AuthUser{}, fmt.Errorf("%w: %v", errors.ErrUnauthenticated, err)
	}
	return domain.AuthUser{
		ID:          domain.UserID(claims.UserID),
		DisplayName: claims.Name,
		ProfilePic:  claims.ProfilePic,
	}, nil
}

// PeekUser reads the identity carried by a token without checking its signature.
// Clients use it to know who they are, the server always calls ValidateToken.
func PeekUser(tokenString string) (domain.AuthUser, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return domain.AuthUser{}, fmt.Errorf("%w: %v", errors.ErrUnauthenticated, err)
	}
	if err := validateClaims(claims); err != nil {
		return domain.AuthUser{}, fmt.Errorf("%w: %v", errors.ErrUnauthenticated, err)
	}
	return domain.AuthUser{
		ID:          domain.UserID(claims.UserID),
		DisplayName: claims.Name,
		ProfilePic:  claims.ProfilePic,
	}, nil
}
