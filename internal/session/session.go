package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/applywise/applywise/internal/models"
	"github.com/applywise/applywise/internal/store"
)

const (
	// CodeTTL bounds how long a freshly issued workspace code can be redeemed.
	CodeTTL = 5 * time.Minute
	// SessionTTL bounds how long an issued session token stays valid.
	SessionTTL = 24 * time.Hour
)

// codeChars excludes visually similar characters (0, O, 1, I).
const codeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const codeLength = 6

var (
	ErrInvalidCode    = errors.New("invalid or expired code")
	ErrInvalidSession = errors.New("invalid or expired session")
)

// Service issues workspace codes and session tokens. The workspace code
// doubles as the profile id, so re-entering a code with prior activity
// reopens the same workspace.
type Service struct {
	store store.SessionStore
	now   func() time.Time
}

func NewService(s store.SessionStore) *Service {
	return &Service{store: s, now: time.Now}
}

// GenerateCode returns a six character workspace code.
func GenerateCode() string {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("session: reading random bytes: %v", err))
	}
	for i, b := range buf {
		buf[i] = codeChars[int(b)%len(codeChars)]
	}
	return string(buf)
}

// GenerateToken returns an opaque token such as "sess_dGhlIHF1aWNr".
func GenerateToken(prefix string) string {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("session: reading random bytes: %v", err))
	}
	return prefix + "_" + base64.RawURLEncoding.EncodeToString(buf)
}

// NormalizeCode maps user input to the canonical code form.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// RequestCode registers a pending workspace code and returns it with its
// redemption deadline. A caller-provided code is honored so returning users
// can ask for their existing workspace.
func (s *Service) RequestCode(ctx context.Context, provided string) (string, time.Time, error) {
	s.pruneQuietly(ctx)

	code := NormalizeCode(provided)
	if code == "" {
		code = GenerateCode()
	}
	expiresAt := s.now().Add(CodeTTL)
	pending := models.PendingCode{Code: code, ProfileID: code, ExpiresAt: expiresAt}
	if err := s.store.SavePendingCode(ctx, pending); err != nil {
		return "", time.Time{}, fmt.Errorf("saving pending code: %w", err)
	}
	return code, expiresAt, nil
}

// Verify redeems a workspace code and issues a session. The code is
// single-use while pending, but a code that already has workspace activity
// is accepted again so its owner can log back in.
func (s *Service) Verify(ctx context.Context, code string) (models.Session, error) {
	s.pruneQuietly(ctx)

	code = NormalizeCode(code)
	if code == "" {
		return models.Session{}, ErrInvalidCode
	}

	now := s.now()
	pending, err := s.store.TakePendingCode(ctx, code)
	switch {
	case err == nil && pending != nil && pending.ExpiresAt.After(now):
		// Fresh code, redeem it.
	case err == nil || errors.Is(err, store.ErrNotFound):
		active, actErr := s.store.HasProfileActivity(ctx, code)
		if actErr != nil {
			return models.Session{}, fmt.Errorf("checking workspace activity: %w", actErr)
		}
		if !active {
			return models.Session{}, ErrInvalidCode
		}
	default:
		return models.Session{}, fmt.Errorf("redeeming code: %w", err)
	}

	sess := models.Session{
		Token:      GenerateToken("sess"),
		ProfileID:  code,
		AccessCode: code,
		IssuedAt:   now,
		ExpiresAt:  now.Add(SessionTTL),
	}
	if err := s.store.SaveSession(ctx, sess); err != nil {
		return models.Session{}, fmt.Errorf("saving session: %w", err)
	}
	return sess, nil
}

// Validate resolves a bearer token to its session, deleting it when expired.
func (s *Service) Validate(ctx context.Context, token string) (models.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return models.Session{}, ErrInvalidSession
	}
	sess, err := s.store.Session(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return models.Session{}, ErrInvalidSession
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("loading session: %w", err)
	}
	if !sess.ExpiresAt.After(s.now()) {
		_ = s.store.DeleteSession(ctx, token)
		return models.Session{}, ErrInvalidSession
	}
	return *sess, nil
}

// Logout discards the session for a token. Unknown tokens are not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	err := s.store.DeleteSession(ctx, strings.TrimSpace(token))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// Pruning is best-effort housekeeping on the request path, never fatal.
func (s *Service) pruneQuietly(ctx context.Context) {
	_ = s.store.PruneExpired(ctx)
}
