// Package auth implements the single-user demo sign-up and login backed by
// a key-value store. There is one stored credential; signing up replaces it.
package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/twiced-technology-gmbh/taskdesk/internal/clierr"
	"github.com/twiced-technology-gmbh/taskdesk/internal/store"
)

// Store keys.
const (
	KeyUser          = "demoUser"
	KeyAuthenticated = "isAuthenticated"
)

const authenticated = "true"

// Credential is the stored sign-up pair. Password holds a bcrypt hash of
// the SHA-256 digest of the password, so any length is accepted.
type Credential struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Service signs users up, in and out.
type Service struct {
	store store.Store
	cost  int
	log   zerolog.Logger
}

// New returns a Service over s. A cost of 0 uses bcrypt.DefaultCost.
func New(s store.Store, cost int, log zerolog.Logger) *Service {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Service{store: s, cost: cost, log: log}
}

// Signup stores email and password as the demo credential, replacing any
// previous one. It does not sign the user in.
func (s *Service) Signup(ctx context.Context, email, password string) error {
	if err := validate(email, password); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword(digest(password), s.cost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	data, err := json.Marshal(Credential{Email: email, Password: string(hash)})
	if err != nil {
		return fmt.Errorf("encoding credential: %w", err)
	}
	if err := s.store.Set(ctx, KeyUser, string(data)); err != nil {
		return fmt.Errorf("saving credential: %w", err)
	}
	s.log.Info().Str("email", email).Msg("signed up")
	return nil
}

// Login checks email and password against the stored credential and marks
// the session authenticated on success. A mismatch changes nothing.
func (s *Service) Login(ctx context.Context, email, password string) error {
	if err := validate(email, password); err != nil {
		return err
	}
	cred, ok, err := s.Credential(ctx)
	if err != nil {
		return err
	}
	if !ok || cred.Email != email || !passwordMatches(cred.Password, password) {
		s.log.Warn().Str("email", email).Msg("login rejected")
		return clierr.New(clierr.InvalidCredentials, "Invalid credentials")
	}
	if err := s.store.Set(ctx, KeyAuthenticated, authenticated); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	s.log.Info().Str("email", email).Msg("logged in")
	return nil
}

// Logout clears the authenticated flag. The credential is kept.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.store.Delete(ctx, KeyAuthenticated); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	s.log.Info().Msg("logged out")
	return nil
}

// IsAuthenticated reports whether the flag is set.
func (s *Service) IsAuthenticated(ctx context.Context) (bool, error) {
	v, ok, err := s.store.Get(ctx, KeyAuthenticated)
	if err != nil {
		return false, fmt.Errorf("reading session: %w", err)
	}
	return ok && v == authenticated, nil
}

// Require returns NOT_AUTHENTICATED unless the flag is set.
func (s *Service) Require(ctx context.Context) error {
	ok, err := s.IsAuthenticated(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return clierr.New(clierr.NotAuthenticated, "not logged in; run 'taskdesk login' first")
	}
	return nil
}

// Credential returns the stored credential, if any.
func (s *Service) Credential(ctx context.Context) (Credential, bool, error) {
	raw, ok, err := s.store.Get(ctx, KeyUser)
	if err != nil {
		return Credential{}, false, fmt.Errorf("reading credential: %w", err)
	}
	if !ok {
		return Credential{}, false, nil
	}
	var cred Credential
	if err := json.Unmarshal([]byte(raw), &cred); err != nil {
		return Credential{}, false, fmt.Errorf("decoding %s: %w", KeyUser, err)
	}
	return cred, true, nil
}

// passwordMatches compares against a bcrypt hash. Credentials written
// before hashing was introduced hold the plain password.
func passwordMatches(stored, password string) bool {
	if _, err := bcrypt.Cost([]byte(stored)); err != nil {
		return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), digest(password)) == nil
}

// digest keeps bcrypt input under its 72-byte limit.
func digest(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

func validate(email, password string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return clierr.New(clierr.InvalidInput, "email and password are required")
	}
	return nil
}
