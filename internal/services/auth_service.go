// Package services – AuthService
//
// AuthService owns signup, login and bearer-token verification. Emails are
// stored trimmed and lower-cased; passwords are bcrypt-hashed. Login never
// reveals whether the email or the password was wrong.
package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/mindmate-backend/internal/auth"
	"github.com/tbourn/mindmate-backend/internal/domain"
)

// DefaultPasswordMinLen is the minimum password length in runes.
const DefaultPasswordMinLen = 6

// MaxPasswordBytes is bcrypt's input limit.
const MaxPasswordBytes = 72

// MaxUsernameRunes caps usernames.
const MaxUsernameRunes = 64

// Session is the result of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// AuthService manages accounts and session tokens.
type AuthService struct {
	Users          UserStore
	Hasher         *auth.Hasher
	Tokens         *auth.Tokens
	PasswordMinLen int

	// dummyHash is compared against on unknown emails so both failure
	// paths cost one bcrypt comparison.
	dummyHash string
}

// NewAuthService wires an AuthService with DefaultPasswordMinLen.
func NewAuthService(users UserStore, h *auth.Hasher, t *auth.Tokens) *AuthService {
	s := &AuthService{Users: users, Hasher: h, Tokens: t, PasswordMinLen: DefaultPasswordMinLen}
	s.dummyHash, _ = h.Hash("mindmate-dummy-password")
	return s
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup validates and creates an account.
func (s *AuthService) Signup(ctx context.Context, email, username, password string) (*domain.User, error) {
	tr := otel.Tracer("services/AuthService")
	ctx, span := tr.Start(ctx, "Signup")
	defer span.End()

	email = NormalizeEmail(email)
	username = strings.TrimSpace(username)
	if !plausibleEmail(email) {
		return nil, ErrInvalidEmail
	}
	if username == "" || utf8.RuneCountInString(username) > MaxUsernameRunes {
		return nil, ErrInvalidUsername
	}
	if utf8.RuneCountInString(password) < s.minLen() {
		return nil, ErrWeakPassword
	}
	if len(password) > MaxPasswordBytes {
		return nil, ErrPasswordTooLong
	}

	hash, err := s.Hasher.Hash(password)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	u := &domain.User{Email: email, Username: username, PasswordHash: hash}
	if err := s.Users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, ErrAccountExists
		}
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("user.id", u.ID))
	return u, nil
}

// Login verifies credentials and issues a session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	tr := otel.Tracer("services/AuthService")
	ctx, span := tr.Start(ctx, "Login")
	defer span.End()

	u, err := s.Users.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.Hasher.Compare(s.dummyHash, password)
			return nil, ErrInvalidCredentials
		}
		span.RecordError(err)
		return nil, err
	}
	if !s.Hasher.Compare(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	tok, exp, err := s.Tokens.Issue(u.ID, u.Username)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("user.id", u.ID))
	return &Session{Token: tok, ExpiresAt: exp, User: u}, nil
}

// Authenticate verifies a bearer token and returns the user id it carries.
func (s *AuthService) Authenticate(ctx context.Context, token string) (string, error) {
	_, span := otel.Tracer("services/AuthService").Start(ctx, "Authenticate")
	defer span.End()

	c, err := s.Tokens.Parse(token)
	if err != nil {
		return "", ErrInvalidToken
	}
	span.SetAttributes(attribute.String("user.id", c.Subject))
	return c.Subject, nil
}

// Me returns the account behind userID.
func (s *AuthService) Me(ctx context.Context, userID string) (*domain.User, error) {
	ctx, span := otel.Tracer("services/AuthService").Start(ctx, "Me",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	u, err := s.Users.GetUser(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	return u, err
}

func (s *AuthService) minLen() int {
	if s.PasswordMinLen > 0 {
		return s.PasswordMinLen
	}
	return DefaultPasswordMinLen
}

// plausibleEmail is a shape check only; handlers validate the format.
func plausibleEmail(e string) bool {
	at := strings.LastIndexByte(e, '@')
	return at > 0 && at < len(e)-1 && !strings.ContainsAny(e, " \t\r\n")
}
