// Package session authenticates report users and carries the resulting
// Principal through request contexts. Tokens are HS256 JWTs; passwords are
// checked against bcrypt hashes.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrBadCredentials is returned for an unknown user or wrong password.
	ErrBadCredentials = errors.New("session: bad credentials")
	// ErrInvalidToken is returned for missing, malformed, expired or
	// foreign tokens.
	ErrInvalidToken = errors.New("session: invalid token")
)

// Principal is an authenticated user.
type Principal struct {
	Username  string    `json:"username"`
	TokenID   string    `json:"token_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Claims is the JWT payload.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Manager issues and validates tokens for a fixed user table.
type Manager struct {
	secret  []byte
	issuer  string
	ttl     time.Duration
	users   map[string][]byte
	now     func() time.Time
	compare func(hash, password []byte) error
}

// missingUserHash stands in for the hash of a user that does not exist, so
// an unknown name costs the same bcrypt work as a wrong password.
var missingUserHash = sync.OnceValue(func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("no such user"), bcrypt.DefaultCost)
	if err != nil {
		panic(fmt.Sprintf("session: placeholder hash: %v", err))
	}
	return h
})

// Config configures a Manager. Users maps usernames to bcrypt hashes.
type Config struct {
	Secret string
	Issuer string
	TTL    time.Duration
	Users  map[string]string
}

// NewManager returns a Manager. An empty secret is rejected.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Secret == "" {
		return nil, errors.New("session: secret must not be empty")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 12 * time.Hour
	}
	users := make(map[string][]byte, len(cfg.Users))
	for u, h := range cfg.Users {
		users[u] = []byte(h)
	}
	return &Manager{
		secret:  []byte(cfg.Secret),
		issuer:  cfg.Issuer,
		ttl:     cfg.TTL,
		users:   users,
		now:     time.Now,
		compare: bcrypt.CompareHashAndPassword,
	}, nil
}

// HashPassword returns a bcrypt hash suitable for the config user table.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("session: hash password: %w", err)
	}
	return string(h), nil
}

// Login checks the credentials and issues a signed token.
func (m *Manager) Login(username, password string) (string, Principal, error) {
	hash, ok := m.users[username]
	if !ok {
		hash = missingUserHash()
	}
	if err := m.compare(hash, []byte(password)); err != nil || !ok {
		return "", Principal{}, ErrBadCredentials
	}
	return m.Issue(username)
}

// Issue signs a token for username without checking credentials.
func (m *Manager) Issue(username string) (string, Principal, error) {
	now := m.now()
	p := Principal{
		Username:  username,
		TokenID:   uuid.NewString(),
		ExpiresAt: now.Add(m.ttl).Truncate(time.Second),
	}
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        p.TokenID,
			Issuer:    m.issuer,
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(p.ExpiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", Principal{}, fmt.Errorf("session: sign token: %w", err)
	}
	return token, p, nil
}

// Validate parses and verifies a token. Tokens signed with another method,
// issuer or key, and expired tokens, yield ErrInvalidToken.
func (m *Manager) Validate(token string) (Principal, error) {
	if token == "" {
		return Principal{}, ErrInvalidToken
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if _, known := m.users[claims.Username]; !known {
		return Principal{}, fmt.Errorf("%w: unknown user %q", ErrInvalidToken, claims.Username)
	}
	return Principal{
		Username:  claims.Username,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

type ctxKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the Principal stored in ctx.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}
