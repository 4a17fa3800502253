// Package session holds the signed-in user's access token. It stands in
// for the external authentication provider: it never talks to an identity
// service, it only stores the token it is given and reads the claims.
package session

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/juju/errors"
	"github.com/rs/zerolog"

	"github.com/msalah0e/cloudcanvas/internal/vault"
)

// TokenKey is the vault key holding the access token.
const TokenKey = "access_token"

// ErrInvalidToken is returned by SignIn for tokens that cannot be decoded
// or have already expired.
const ErrInvalidToken = errors.ConstError("invalid access token")

// User is the identity decoded from the access token's claims.
type User struct {
	ID        string
	Email     string
	Role      string
	ExpiresAt time.Time
}

// Provider exposes the current session to the rest of the client.
type Provider struct {
	mu      sync.Mutex
	vault   vault.Vault
	loading atomic.Bool
	now     func() time.Time
	logger  zerolog.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithClock overrides the clock used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

// NewProvider returns a provider persisting its token in v.
func NewProvider(v vault.Vault, opts ...Option) *Provider {
	p := &Provider{vault: v, now: time.Now, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SignIn validates the token's shape and expiry and stores it.
func (p *Provider) SignIn(token string) (*User, error) {
	token = strings.TrimSpace(token)
	user, err := p.decode(token)
	if err != nil {
		return nil, err
	}
	if p.expired(user) {
		return nil, errors.WithType(errors.New("token has expired"), ErrInvalidToken)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.vault.Set(TokenKey, token); err != nil {
		return nil, errors.Annotate(err, "storing access token")
	}
	p.logger.Debug().Str("user", user.ID).Msg("signed in")
	return user, nil
}

// SignOut forgets the stored token. Signing out twice is not an error.
func (p *Provider) SignOut() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.vault.Delete(TokenKey); err != nil && !errors.Is(err, vault.ErrKeyNotFound) {
		return errors.Annotate(err, "removing access token")
	}
	return nil
}

// AccessToken returns the stored token, or "" when signed out or expired.
func (p *Provider) AccessToken(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	token, user, err := p.read()
	if err != nil || user == nil {
		return "", err
	}
	if p.expired(user) {
		p.logger.Info().Str("user", user.ID).Msg("access token expired")
		return "", nil
	}
	return token, nil
}

// CurrentUser returns the signed-in user, if any.
func (p *Provider) CurrentUser() (*User, bool) {
	_, user, err := p.read()
	if err != nil || user == nil || p.expired(user) {
		return nil, false
	}
	return user, true
}

// Loading reports whether the session is currently being read from the vault.
func (p *Provider) Loading() bool {
	return p.loading.Load()
}

func (p *Provider) read() (string, *User, error) {
	p.loading.Store(true)
	defer p.loading.Store(false)

	p.mu.Lock()
	token, err := p.vault.Get(TokenKey)
	p.mu.Unlock()
	if errors.Is(err, vault.ErrKeyNotFound) {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, errors.Annotate(err, "reading access token")
	}

	user, err := p.decode(token)
	if err != nil {
		p.logger.Warn().Err(err).Msg("discarding unreadable access token")
		return "", nil, nil
	}
	return token, user, nil
}

func (p *Provider) decode(token string) (*User, error) {
	if token == "" {
		return nil, errors.WithType(errors.New("empty token"), ErrInvalidToken)
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, errors.WithType(errors.Annotate(err, "decoding token"), ErrInvalidToken)
	}

	user := &User{}
	user.ID, _ = claims.GetSubject()
	if email, ok := claims["email"].(string); ok {
		user.Email = email
	}
	if role, ok := claims["role"].(string); ok {
		user.Role = role
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		user.ExpiresAt = exp.Time
	}
	return user, nil
}

func (p *Provider) expired(u *User) bool {
	return !u.ExpiresAt.IsZero() && !p.now().Before(u.ExpiresAt)
}
