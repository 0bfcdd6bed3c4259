package stub

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token kinds.
const (
	kindAccess  = "access"
	kindRefresh = "refresh"
)

var (
	// ErrInvalidToken is returned for malformed or badly signed tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is returned for tokens past their exp claim.
	ErrTokenExpired = errors.New("token expired")
)

// Claims are the JWT claims of a stub session token.
type Claims struct {
	Kind string `json:"type"`
	jwt.RegisteredClaims
}

// TokenIssuer signs HS256 JWTs and tracks live refresh tokens. Refresh tokens
// are single use.
type TokenIssuer struct {
	now        func() time.Time
	refresh    map[string]int64
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	mu         sync.Mutex
}

// NewTokenIssuer creates an issuer. A nil secret is replaced by random bytes.
func NewTokenIssuer(secret []byte, accessTTL, refreshTTL time.Duration) (*TokenIssuer, error) {
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate signing secret: %w", err)
		}
	}
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &TokenIssuer{
		now:        time.Now,
		refresh:    make(map[string]int64),
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

// Issue returns a fresh access and refresh token pair for a user.
func (t *TokenIssuer) Issue(userID int64) (access, refresh string, err error) {
	access, _, err = t.sign(userID, kindAccess, t.accessTTL)
	if err != nil {
		return "", "", err
	}
	refresh, jti, err := t.sign(userID, kindRefresh, t.refreshTTL)
	if err != nil {
		return "", "", err
	}

	t.mu.Lock()
	t.refresh[jti] = userID
	t.mu.Unlock()
	return access, refresh, nil
}

// Authenticate returns the user id carried by a valid access token.
func (t *TokenIssuer) Authenticate(token string) (int64, error) {
	_, userID, err := t.verify(token, kindAccess)
	return userID, err
}

// Refresh consumes a refresh token and issues a new pair.
func (t *TokenIssuer) Refresh(token string) (access, refresh string, err error) {
	c, _, err := t.verify(token, kindRefresh)
	if err != nil {
		return "", "", err
	}

	t.mu.Lock()
	userID, ok := t.refresh[c.ID]
	delete(t.refresh, c.ID)
	t.mu.Unlock()
	if !ok {
		return "", "", fmt.Errorf("%w: refresh token already used", ErrInvalidToken)
	}
	return t.Issue(userID)
}

func (t *TokenIssuer) sign(userID int64, kind string, ttl time.Duration) (string, string, error) {
	now := t.now()
	c := Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign %s token: %w", kind, err)
	}
	return signed, c.ID, nil
}

func (t *TokenIssuer) verify(token, kind string) (*Claims, int64, error) {
	c := &Claims{}
	_, err := jwt.ParseWithClaims(token, c, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, 0, ErrTokenExpired
	case err != nil:
		return nil, 0, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if c.Kind != kind {
		return nil, 0, fmt.Errorf("%w: expected %s token", ErrInvalidToken, kind)
	}
	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: bad subject %q", ErrInvalidToken, c.Subject)
	}
	return c, userID, nil
}
