package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/marmos91/rmshelf/internal/logger"
	"github.com/marmos91/rmshelf/pkg/document"
	"github.com/marmos91/rmshelf/pkg/metrics"
	"github.com/marmos91/rmshelf/pkg/store/kv"
)

var validate = validator.New()

// Config configures a Holder.
type Config struct {
	// Email and SyncVersion make up the minted profile
	Email       string
	SyncVersion string

	// Secret signs user tokens. A random secret is generated when empty.
	Secret []byte

	// Metrics receives login activity (default: no-op)
	Metrics metrics.SessionMetrics

	// Now overrides the clock (tests)
	Now func() time.Time
}

// Holder owns the current session and its persisted copy.
//
// Thread Safety:
// Safe for concurrent use. Login and Logout are serialised so memory and
// storage never disagree.
type Holder struct {
	store   kv.Store
	profile Profile
	secret  []byte
	metrics metrics.SessionMetrics
	now     func() time.Time

	// opMu serialises Init, Login and Logout
	opMu sync.Mutex

	mu      sync.RWMutex
	current *Session
}

// NewHolder creates a logged-out Holder persisting to store. Call Init to
// restore a previous session.
func NewHolder(store kv.Store, cfg Config) (*Holder, error) {
	if store == nil {
		return nil, fmt.Errorf("session storage is required")
	}

	profile := Profile{Email: cfg.Email, SyncVersion: cfg.SyncVersion}
	if profile.Email == "" {
		profile.Email = DefaultEmail
	}
	if profile.SyncVersion == "" {
		profile.SyncVersion = DefaultSyncVersion
	}
	if err := validate.Struct(profile); err != nil {
		return nil, fmt.Errorf("invalid session profile: %w", err)
	}

	secret := cfg.Secret
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate token secret: %w", err)
		}
	}

	m := cfg.Metrics
	if m == nil {
		m = metrics.NewSessionMetricsWith(nil)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Holder{
		store:   store,
		profile: profile,
		secret:  secret,
		metrics: m,
		now:     now,
	}, nil
}

// Init restores the persisted session.
//
// It fails open: missing entries leave the holder logged out, and malformed
// entries (bad JSON, failed validation, an unparseable token, or only one of
// the two keys present) are deleted and leave it logged out as well. Only a
// storage failure is returned, and the holder is then logged out too.
func (h *Holder) Init(ctx context.Context) error {
	h.opMu.Lock()
	defer h.opMu.Unlock()

	h.setCurrent(nil)

	tokensRaw, tokensErr := h.store.Get(ctx, TokensKey)
	userRaw, userErr := h.store.Get(ctx, UserKey)
	for _, err := range []error{tokensErr, userErr} {
		if err != nil && !errors.Is(err, kv.ErrNotFound) {
			return fmt.Errorf("failed to read session: %w", err)
		}
	}

	if tokensErr != nil && userErr != nil {
		logger.Debug("No stored session")
		return nil
	}

	s, err := decodeSession(tokensRaw, userRaw, tokensErr == nil, userErr == nil)
	if err != nil {
		logger.Warn("Discarding stored session: %v", err)
		return h.clearStorage(ctx)
	}

	h.setCurrent(s)
	logger.Info("Restored session for %s", s.Profile.Email)
	return nil
}

func decodeSession(tokensRaw, userRaw []byte, hasTokens, hasUser bool) (*Session, error) {
	if !hasTokens || !hasUser {
		return nil, fmt.Errorf("incomplete session entries")
	}

	var s Session
	if err := json.Unmarshal(tokensRaw, &s.Credentials); err != nil {
		return nil, fmt.Errorf("%s: %w", TokensKey, err)
	}
	if err := json.Unmarshal(userRaw, &s.Profile); err != nil {
		return nil, fmt.Errorf("%s: %w", UserKey, err)
	}
	if err := validate.Struct(s.Credentials); err != nil {
		return nil, fmt.Errorf("%s: %w", TokensKey, err)
	}
	if err := validate.Struct(s.Profile); err != nil {
		return nil, fmt.Errorf("%s: %w", UserKey, err)
	}

	claims, err := parseUserToken(s.Credentials.UserToken)
	if err != nil {
		return nil, err
	}
	if claims.IssuedAt != nil {
		s.IssuedAt = claims.IssuedAt.UTC()
	}
	return &s, nil
}

// NormalizeDeviceCode trims and upper-cases code and checks that it is
// exactly DeviceCodeLength letters or digits.
func NormalizeDeviceCode(code string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if len(normalized) != DeviceCodeLength {
		return "", document.NewValidationError(
			fmt.Sprintf("device code must be %d characters", DeviceCodeLength), "")
	}
	for _, r := range normalized {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", document.NewValidationError("device code must contain only letters and digits", "")
		}
	}
	return normalized, nil
}

// Login pairs the device with code and stores the new session, replacing
// any previous one.
//
// Returns:
//   - Session: The new session
//   - error: ErrValidation for a malformed code, ErrOperationFailed when the
//     session cannot be minted or stored (the holder is then logged out)
func (h *Holder) Login(ctx context.Context, code string) (Session, error) {
	normalized, err := NormalizeDeviceCode(code)
	if err != nil {
		h.metrics.RecordLogin("invalid")
		return Session{}, err
	}

	h.opMu.Lock()
	defer h.opMu.Unlock()

	now := h.now()
	userToken, err := signUserToken(h.secret, normalized, h.profile, now)
	if err != nil {
		h.metrics.RecordLogin("error")
		return Session{}, document.NewOperationFailedError("login failed", "", err)
	}

	s := Session{
		Credentials: Credentials{
			DeviceToken: deviceToken(normalized, now),
			UserToken:   userToken,
		},
		Profile:  h.profile,
		IssuedAt: time.Unix(now.Unix(), 0).UTC(),
	}

	if err := h.persist(ctx, s); err != nil {
		h.setCurrent(nil)
		h.metrics.RecordLogin("error")
		return Session{}, document.NewOperationFailedError("failed to store session", "", err)
	}

	h.setCurrent(&s)
	h.metrics.RecordLogin("success")
	logger.Info("Signed in as %s", s.Profile.Email)
	return s, nil
}

func (h *Holder) persist(ctx context.Context, s Session) error {
	tokens, err := json.Marshal(s.Credentials)
	if err != nil {
		return err
	}
	user, err := json.Marshal(s.Profile)
	if err != nil {
		return err
	}

	if err := h.store.Set(ctx, TokensKey, tokens); err != nil {
		return err
	}
	if err := h.store.Set(ctx, UserKey, user); err != nil {
		// never leave half a session behind
		_ = h.store.Delete(ctx, TokensKey)
		return err
	}
	return nil
}

// Logout clears the session from memory and storage. Logging out while
// logged out succeeds.
func (h *Holder) Logout(ctx context.Context) error {
	h.opMu.Lock()
	defer h.opMu.Unlock()

	wasAuthenticated := h.IsAuthenticated()
	h.setCurrent(nil)

	if err := h.clearStorage(ctx); err != nil {
		return document.NewOperationFailedError("failed to clear stored session", "", err)
	}
	if wasAuthenticated {
		h.metrics.RecordLogout()
		logger.Info("Signed out")
	}
	return nil
}

func (h *Holder) clearStorage(ctx context.Context) error {
	return errors.Join(
		h.store.Delete(ctx, TokensKey),
		h.store.Delete(ctx, UserKey),
	)
}

// Current returns the current session.
func (h *Holder) Current() (Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.current == nil {
		return Session{}, false
	}
	return *h.current, true
}

// IsAuthenticated reports whether a session is held.
func (h *Holder) IsAuthenticated() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current != nil
}

// Verify reports whether userToken is the user token of the current
// session.
func (h *Holder) Verify(userToken string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.current == nil || userToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(userToken), []byte(h.current.Credentials.UserToken)) == 1
}

func (h *Holder) setCurrent(s *Session) {
	h.mu.Lock()
	h.current = s
	h.mu.Unlock()
	h.metrics.SetAuthenticated(s != nil)
}
