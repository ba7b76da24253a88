// Package authpw verifies the site owner's email and password.
package authpw

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for any failed sign-in, without saying
// which half was wrong.
var ErrInvalidCredentials = errors.New("invalid email or password")

// Owner is the single account allowed into the admin panel.
type Owner struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
}

// Service checks sign-in attempts against the configured owner.
type Service struct {
	owner Owner
}

// NewService validates the owner configuration. A plain password is hashed
// once here; passwordHash wins when both are set.
func NewService(email, displayName, passwordHash, password string) (*Service, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, errors.New("owner email is required")
	}
	if passwordHash == "" {
		if password == "" {
			return nil, errors.New("owner password or password hash is required")
		}
		hashed, err := HashPassword(password)
		if err != nil {
			return nil, err
		}
		passwordHash = hashed
	}
	if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
		return nil, fmt.Errorf("owner password hash: %w", err)
	}
	if strings.TrimSpace(displayName) == "" {
		displayName = email
	}
	return &Service{owner: Owner{
		ID:           "owner",
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
	}}, nil
}

// SignInRequest contains sign-in parameters
type SignInRequest struct {
	Email    string
	Password string
}

// SignIn returns the owner when the credentials match.
func (s *Service) SignIn(_ context.Context, req SignInRequest) (Owner, error) {
	if req.Email == "" || req.Password == "" {
		return Owner{}, fmt.Errorf("%w: email and password are required", ErrInvalidCredentials)
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	emailMatches := subtle.ConstantTimeCompare([]byte(email), []byte(s.owner.Email)) == 1

	// Compare the password even for an unknown email so timing does not leak it.
	if err := bcrypt.CompareHashAndPassword([]byte(s.owner.PasswordHash), []byte(req.Password)); err != nil || !emailMatches {
		return Owner{}, ErrInvalidCredentials
	}
	return s.owner, nil
}

// Owner returns the configured owner without its hash.
func (s *Service) Owner() Owner {
	owner := s.owner
	owner.PasswordHash = ""
	return owner
}

func HashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", errors.New("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// GenerateToken creates a secure random token
func GenerateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
