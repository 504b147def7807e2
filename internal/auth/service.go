package auth

import (
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/abushop/shopfront/internal/config"
	"github.com/abushop/shopfront/internal/database/users"
	"github.com/abushop/shopfront/internal/entities"
)

// Validation patterns
var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,64}$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrUsernameRequired   = errors.New("username is required")
	ErrEmailRequired      = errors.New("email is required")
	ErrPasswordRequired   = errors.New("password is required")
	ErrUsernameInvalid    = errors.New("username must be 3-64 characters, alphanumeric and underscore/hyphen only")
	ErrEmailInvalid       = errors.New("invalid email format")
)

// UserStore defines the interface for credential record access. The store
// must enforce identifier uniqueness itself (unique index or equivalent
// atomic insert); CreateUser on a duplicate returns users.ErrDuplicateUser.
type UserStore interface {
	CreateUser(user *entities.User) error
	GetUserByEmail(email string) (*entities.User, error)
	GetUserByID(id uint) (*entities.User, error)
}

// Service handles registration and credential verification. Both delivery
// mechanisms (cookie sessions and bearer tokens) authenticate through it, so
// the failure-delay policy applies uniformly.
type Service struct {
	store  UserStore
	config config.Auth

	jwtSecret []byte

	dummyHashOnce sync.Once
	dummyHash     string
}

// NewService creates a new authentication service. If no JWT secret is
// configured, a per-process secret is generated and a warning logged: tokens
// issued with it stop verifying after a restart.
func NewService(store UserStore, cfg config.Auth) *Service {
	secret := cfg.JWTSecret
	if secret == "" {
		generated, err := GenerateSecret()
		if err != nil {
			log.Fatalf("Failed to generate JWT secret: %v", err)
		}
		secret = generated
		log.Printf("Generated JWT secret (set AUTH_JWT_SECRET to keep tokens valid across restarts)")
	}

	return &Service{
		store:     store,
		config:    cfg,
		jwtSecret: []byte(secret),
	}
}

// NormalizeIdentifier lowercases and trims a login identifier.
func NormalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

// Verify checks a password against the credential record for identifier.
// A missing account and a wrong password are indistinguishable to the
// caller: both return ErrInvalidCredentials, both cost a bcrypt comparison,
// and both take at least config.FailureDelay before returning.
func (s *Service) Verify(identifier, password string) (*entities.User, error) {
	start := time.Now()
	identifier = NormalizeIdentifier(identifier)

	user, err := s.store.GetUserByEmail(identifier)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			// Burn a comparison against a throwaway hash so a missing
			// account costs the same as a wrong password.
			_ = CheckPassword(password, s.throwawayHash())
			s.sleepUntilFailureFloor(start)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := CheckPassword(password, user.PasswordHash); err != nil {
		if !errors.Is(err, ErrInvalidPassword) {
			return nil, fmt.Errorf("failed to verify password: %w", err)
		}
		s.sleepUntilFailureFloor(start)
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// Register creates a credential record from the public registration input.
// The display name defaults to the username.
func (s *Service) Register(username, email, password string) (*entities.User, error) {
	return s.CreateUser(username, email, username, password)
}

// CreateUser validates input, hashes the password and stores a new
// credential record. Duplicate identifiers surface as ErrUserExists; the
// uniqueness decision is made by the store's own constraint, not by a
// read-then-write check.
func (s *Service) CreateUser(username, email, name, password string) (*entities.User, error) {
	username = strings.TrimSpace(username)
	email = NormalizeIdentifier(email)

	if username == "" {
		return nil, ErrUsernameRequired
	}
	if email == "" {
		return nil, ErrEmailRequired
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}

	if !usernamePattern.MatchString(username) {
		return nil, ErrUsernameInvalid
	}

	// RFC 5321 limits addresses to 254 octets
	if len(email) > 254 || !emailPattern.MatchString(email) {
		return nil, ErrEmailInvalid
	}

	passwordHash, err := HashPassword(password, s.config.BcryptCost)
	if err != nil {
		return nil, err
	}

	if name == "" {
		name = username
	}

	user := &entities.User{
		Username:     username,
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
	}

	if err := s.store.CreateUser(user); err != nil {
		if errors.Is(err, users.ErrDuplicateUser) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	return user, nil
}

// GetUserByID retrieves a user by their ID.
func (s *Service) GetUserByID(id uint) (*entities.User, error) {
	return s.store.GetUserByID(id)
}

// sleepUntilFailureFloor blocks until at least config.FailureDelay has
// passed since start. Plain time.Sleep on purpose: the caller must not be
// able to skip or cancel the delay.
func (s *Service) sleepUntilFailureFloor(start time.Time) {
	floor := s.config.FailureDelay
	if floor <= 0 {
		return
	}
	if elapsed := time.Since(start); elapsed < floor {
		time.Sleep(floor - elapsed)
	}
}

// throwawayHash returns a hash of an unguessable value, computed once at the
// configured cost so comparisons against it match real verification cost.
func (s *Service) throwawayHash() string {
	s.dummyHashOnce.Do(func() {
		secret, err := GenerateSecret()
		if err != nil {
			secret = "shopfront-throwaway-credential"
		}
		cost := s.config.BcryptCost
		if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
			cost = bcrypt.DefaultCost
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
		if err != nil {
			// CheckPassword against an empty hash still fails closed.
			return
		}
		s.dummyHash = string(hash)
	})
	return s.dummyHash
}
