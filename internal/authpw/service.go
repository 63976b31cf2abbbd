// Package authpw provides email/password authentication for invited people
// and self-registered builders.
package authpw

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"buildwise/api/internal/store"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 6
	ConfirmTokenTTL   = 24 * time.Hour
	defaultTerms      = "marketing"
)

var (
	ErrInviteRequired     = errors.New("registration requires invitation")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
)

// PersonStore defines the storage interface for auth
type PersonStore interface {
	GetPerson(ctx context.Context, email string) (store.Person, error)
	SetPassword(ctx context.Context, email, passwordHash, fullName, phone string) (store.Person, error)
	SaveMarketingSignup(ctx context.Context, in store.MarketingSignup) (store.Person, error)
	ConfirmEmail(ctx context.Context, email string) error
}

type Service struct {
	store PersonStore
	cost  int
	now   func() time.Time
}

func NewService(persons PersonStore) *Service {
	return &Service{store: persons, cost: bcrypt.DefaultCost, now: time.Now}
}

type RegisterRequest struct {
	Email    string
	FullName string
	Phone    string
	Password string
}

// Register completes registration for a person created by an invite or assignment.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (store.Person, error) {
	if len(req.Password) < MinPasswordLength {
		return store.Person{}, ErrWeakPassword
	}
	existing, err := s.lookup(ctx, req.Email)
	if err != nil {
		return store.Person{}, err
	}
	if existing != nil && existing.HasPassword() {
		return store.Person{}, ErrUserExists
	}
	if existing == nil {
		return store.Person{}, ErrInviteRequired
	}
	hash, err := s.hash(req.Password)
	if err != nil {
		return store.Person{}, err
	}
	return s.store.SetPassword(ctx, existing.Email, hash, req.FullName, req.Phone)
}

// Login checks the password. Unknown people and people without a password
// get the same error as a wrong password.
func (s *Service) Login(ctx context.Context, email, password string) (store.Person, error) {
	person, err := s.lookup(ctx, email)
	if err != nil {
		return store.Person{}, err
	}
	if person == nil || !person.HasPassword() {
		return store.Person{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*person.PasswordHash), []byte(password)); err != nil {
		return store.Person{}, ErrInvalidCredentials
	}
	return *person, nil
}

type MarketingRequest struct {
	Email        string
	FullName     string
	Password     string
	TermsVersion string
}

// RegisterMarketing stores a builder signup and returns the email confirmation token.
func (s *Service) RegisterMarketing(ctx context.Context, req MarketingRequest) (store.Person, string, error) {
	if len(req.Password) < MinPasswordLength {
		return store.Person{}, "", ErrWeakPassword
	}
	existing, err := s.lookup(ctx, req.Email)
	if err != nil {
		return store.Person{}, "", err
	}
	if existing != nil && existing.HasPassword() {
		return store.Person{}, "", ErrUserExists
	}
	hash, err := s.hash(req.Password)
	if err != nil {
		return store.Person{}, "", err
	}
	token, err := generateToken(24)
	if err != nil {
		return store.Person{}, "", fmt.Errorf("generate confirm token: %w", err)
	}
	terms := strings.TrimSpace(req.TermsVersion)
	if terms == "" {
		terms = defaultTerms
	}
	now := s.now()
	person, err := s.store.SaveMarketingSignup(ctx, store.MarketingSignup{
		Email:         req.Email,
		FullName:      req.FullName,
		PasswordHash:  hash,
		ConfirmToken:  token,
		ConfirmExpiry: now.Add(ConfirmTokenTTL),
		TermsVersion:  terms,
		AgreedAt:      now,
	})
	if err != nil {
		return store.Person{}, "", err
	}
	return person, token, nil
}

// ConfirmEmail validates the token sent in the confirmation link.
func (s *Service) ConfirmEmail(ctx context.Context, email, token string) error {
	person, err := s.lookup(ctx, email)
	if err != nil {
		return err
	}
	if person == nil || person.EmailConfirmToken == nil || token == "" ||
		subtle.ConstantTimeCompare([]byte(*person.EmailConfirmToken), []byte(token)) != 1 {
		return ErrInvalidToken
	}
	if person.EmailConfirmExpires != nil && person.EmailConfirmExpires.Before(s.now()) {
		return ErrTokenExpired
	}
	return s.store.ConfirmEmail(ctx, person.Email)
}

func (s *Service) lookup(ctx context.Context, email string) (*store.Person, error) {
	person, err := s.store.GetPerson(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup person: %w", err)
	}
	return &person, nil
}

func (s *Service) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func generateToken(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
