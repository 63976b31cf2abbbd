package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"buildwise/api/internal/auth"
	"buildwise/api/internal/authpw"
	"buildwise/api/internal/home"
	"buildwise/api/internal/store"
)

type Session struct {
	Token        string
	RefreshToken string
	Email        string
	FullName     string
	Roles        []string
	JTI          string
	ExpiresAt    time.Time
}

func (s Session) Actor() home.Actor {
	return home.Actor{Email: s.Email, FullName: s.FullName}
}

// UserView is the person as returned by auth endpoints.
type UserView struct {
	Email    string   `json:"email"`
	FullName string   `json:"fullName"`
	Phone    string   `json:"phone"`
	Roles    []string `json:"roles"`
}

func userView(p store.Person) UserView {
	roles := p.Roles.V
	if roles == nil {
		roles = []string{}
	}
	return UserView{Email: p.Email, FullName: p.FullName, Phone: p.Phone, Roles: roles}
}

type RegisterInput struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"fullName" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phone"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type MarketingInput struct {
	Email         string `json:"email" validate:"required,email"`
	FullName      string `json:"fullName" validate:"required"`
	Password      string `json:"password" validate:"required,min=6"`
	PlanID        string `json:"planId" validate:"omitempty,oneof=guide ai_assurance"`
	AcceptedTerms bool   `json:"acceptedTerms"`
	TermsVersion  string `json:"termsVersion"`
}

func (s *Service) Login(ctx context.Context, input LoginInput) (Session, store.Person, error) {
	if err := validateInput(input); err != nil {
		return Session{}, store.Person{}, err
	}
	person, err := s.passwords.Login(ctx, input.Email, input.Password)
	if err != nil {
		return Session{}, store.Person{}, err
	}
	session, err := s.issueSession(ctx, person)
	return session, person, err
}

// Register completes registration for an invited person and signs them in.
func (s *Service) Register(ctx context.Context, input RegisterInput) (Session, store.Person, error) {
	if err := validateInput(input); err != nil {
		return Session{}, store.Person{}, err
	}
	person, err := s.passwords.Register(ctx, authpw.RegisterRequest{
		Email:    input.Email,
		FullName: strings.TrimSpace(input.FullName),
		Phone:    strings.TrimSpace(input.Phone),
		Password: input.Password,
	})
	if err != nil {
		return Session{}, store.Person{}, err
	}
	session, err := s.issueSession(ctx, person)
	return session, person, err
}

// RegisterMarketing stores a builder signup and mails the confirmation link.
// The token is returned so the handler can echo it when mail is not configured.
func (s *Service) RegisterMarketing(ctx context.Context, input MarketingInput) (string, error) {
	if err := validateInput(input); err != nil {
		return "", err
	}
	if !input.AcceptedTerms {
		return "", invalid("Validation failed", []FieldError{{Field: "acceptedTerms", Tag: "required", Message: "must be accepted"}})
	}
	person, token, err := s.passwords.RegisterMarketing(ctx, authpw.MarketingRequest{
		Email:        input.Email,
		FullName:     strings.TrimSpace(input.FullName),
		Password:     input.Password,
		TermsVersion: input.TermsVersion,
	})
	if err != nil {
		return "", err
	}
	if s.mail != nil {
		link := s.publicLink("confirm-email", "token="+token+"&email="+url.QueryEscape(person.Email))
		if err := s.mail.SendConfirmEmail(person.Email, link); err != nil {
			log.Warn().Err(err).Str("email", person.Email).Msg("confirm email failed")
		}
	}
	return token, nil
}

func (s *Service) ConfirmEmail(ctx context.Context, email, token string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(token) == "" {
		return invalid("Validation failed", []FieldError{{Field: "token", Tag: "required", Message: "token and email are required"}})
	}
	return s.passwords.ConfirmEmail(ctx, email, token)
}

func (s *Service) Me(ctx context.Context, email string) (store.Person, error) {
	person, err := s.store.GetPerson(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Person{}, notFound("USER_NOT_FOUND", "User not found")
	}
	return person, err
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// session is issued.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, store.Person, error) {
	if s.sessions == nil {
		return Session{}, store.Person{}, domainError(http.StatusServiceUnavailable, "AUTH_UNAVAILABLE", "Session store not configured", nil)
	}
	tokenHash := auth.HashToken(refreshToken)
	email, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, store.Person{}, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Invalid refresh token", nil)
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, store.Person{}, err
	}
	person, err := s.store.GetPerson(ctx, email)
	if err != nil {
		return Session{}, store.Person{}, err
	}
	session, err := s.issueSession(ctx, person)
	return session, person, err
}

func (s *Service) issueSession(ctx context.Context, person store.Person) (Session, error) {
	now := s.now()
	jti := uuid.NewString()
	claims := auth.NewClaims(person.Email, person.FullName, person.Roles.V, jti, now, s.cfg.AccessTTL)
	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), claims)
	if err != nil {
		return Session{}, err
	}

	session := Session{
		Token:     token,
		Email:     person.Email,
		FullName:  person.FullName,
		Roles:     person.Roles.V,
		JTI:       jti,
		ExpiresAt: claims.Expiry(),
	}
	if s.sessions == nil {
		return session, nil
	}
	refresh, err := newRefreshToken()
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), person.Email, now.Add(s.cfg.RefreshTTL)); err != nil {
		return Session{}, fmt.Errorf("save refresh session: %w", err)
	}
	session.RefreshToken = refresh
	return session, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	if s.sessions != nil {
		revoked, err := s.sessions.IsAccessTokenRevoked(ctx, claims.JTI())
		if err != nil {
			return Session{}, err
		}
		if revoked {
			return Session{}, auth.ErrInvalidToken
		}
	}
	return Session{
		Token:     token,
		Email:     claims.Email(),
		FullName:  claims.Name,
		Roles:     claims.Roles,
		JTI:       claims.JTI(),
		ExpiresAt: claims.Expiry(),
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if s.sessions == nil {
		return nil
	}
	if session.JTI != "" {
		if err := s.sessions.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt); err != nil {
			log.Warn().Err(err).Str("email", session.Email).Msg("access token revocation failed")
		}
	}
	if refreshToken != "" {
		if err := s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken)); err != nil {
			log.Warn().Err(err).Str("email", session.Email).Msg("refresh session revocation failed")
		}
	}
	return nil
}

func newRefreshToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
