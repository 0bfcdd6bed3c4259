package bankapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// refreshLeeway renews a token a minute before its JWT expiry.
const refreshLeeway = time.Minute

// refreshResponse is the body returned by /api/auth/refresh and /api/auth/login.
type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// refreshTokenSource exchanges a refresh token for a new access token.
// The API rotates refresh tokens, so the latest one is kept.
type refreshTokenSource struct {
	ctx          context.Context
	httpClient   *http.Client
	baseURL      string
	refreshToken string
	mu           sync.Mutex
}

// NewTokenSource returns the credential source for a user session.
// With a refresh token, expired access tokens are renewed through
// /api/auth/refresh; without one the access token is used as-is.
func NewTokenSource(ctx context.Context, baseURL, accessToken, refreshToken string) (oauth2.TokenSource, error) {
	if accessToken == "" && refreshToken == "" {
		return nil, ErrMissingCredentials
	}

	var initial *oauth2.Token
	if accessToken != "" {
		initial = &oauth2.Token{
			AccessToken:  accessToken,
			TokenType:    "Bearer",
			RefreshToken: refreshToken,
			Expiry:       tokenExpiry(accessToken),
		}
	}

	if refreshToken == "" {
		return oauth2.StaticTokenSource(initial), nil
	}

	src := &refreshTokenSource{
		ctx:          ctx,
		baseURL:      strings.TrimRight(baseURL, "/"),
		refreshToken: refreshToken,
		httpClient:   &http.Client{Timeout: DefaultTimeout},
	}
	return oauth2.ReuseTokenSource(initial, src), nil
}

// Token implements oauth2.TokenSource.
func (s *refreshTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	jsonBody, err := json.Marshal(map[string]string{"refresh_token": s.refreshToken})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(s.ctx, http.MethodPost, s.baseURL+"/api/auth/refresh", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read refresh response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token refresh: %w", newAPIError(resp.StatusCode, body))
	}

	var parsed refreshResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse refresh response: %w", err)
	}
	if parsed.AccessToken == "" {
		return nil, fmt.Errorf("token refresh returned no access token")
	}
	if parsed.RefreshToken != "" {
		s.refreshToken = parsed.RefreshToken
	}

	tokenType := parsed.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}

	return &oauth2.Token{
		AccessToken:  parsed.AccessToken,
		TokenType:    tokenType,
		RefreshToken: s.refreshToken,
		Expiry:       tokenExpiry(parsed.AccessToken),
	}, nil
}

// tokenExpiry reads the exp claim of a JWT access token without verifying
// it; the API stays the judge of validity. Tokens that are not JWTs, or carry
// no exp, never expire from the client's point of view.
func tokenExpiry(accessToken string) time.Time {
	token, _, err := jwt.NewParser().ParseUnverified(accessToken, jwt.MapClaims{})
	if err != nil {
		return time.Time{}
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Add(-refreshLeeway)
}

// Login exchanges a username and password for a session token pair.
func Login(ctx context.Context, baseURL, username, password string) (*oauth2.Token, error) {
	jsonBody, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(baseURL, "/")+"/api/auth/login", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := (&http.Client{Timeout: DefaultTimeout}).Do(req)
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read login response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("login: %w", newAPIError(resp.StatusCode, body))
	}

	var parsed refreshResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse login response: %w", err)
	}
	if parsed.AccessToken == "" {
		return nil, fmt.Errorf("login returned no access token")
	}
	return &oauth2.Token{
		AccessToken:  parsed.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: parsed.RefreshToken,
		Expiry:       tokenExpiry(parsed.AccessToken),
	}, nil
}
