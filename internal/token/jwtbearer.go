package token

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// jwtBearerGrantType is the OAuth 2.0 grant for exchanging a signed
	// assertion for an access token, as used by service accounts.
	jwtBearerGrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	// defaultAssertionTTL bounds the signed assertion's validity. One
	// hour is the ceiling most token endpoints accept.
	defaultAssertionTTL = time.Hour

	// defaultTokenTTL is assumed when the endpoint omits expires_in.
	defaultTokenTTL = time.Hour

	// expiryMargin is how long before expiry a cached token is treated
	// as stale. It absorbs clock skew between this host and the token
	// endpoint, so an alert never goes out with a token that the
	// backend considers already expired.
	expiryMargin = 30 * time.Second
)

// JWTBearerOptions configures a JWTBearerSource.
type JWTBearerOptions struct {
	// TokenURL is the OAuth token endpoint.
	TokenURL string

	// Issuer is the service-account identity placed in the assertion's
	// iss claim.
	Issuer string

	// Audience is the assertion's aud claim. Defaults to TokenURL,
	// which is what most endpoints require.
	Audience string

	// Key signs the assertion with RS256.
	Key *rsa.PrivateKey

	// HTTPClient performs the token exchange. Defaults to
	// http.DefaultClient.
	HTTPClient *http.Client
}

// JWTBearerSource obtains bearer tokens via the OAuth 2.0 JWT-bearer
// grant: it signs a short-lived RS256 assertion, exchanges it at the
// token endpoint, and caches the result until shortly before expiry.
//
// Design decision: the cache is guarded by a mutex held across the
// exchange. Only the alert delivery goroutine asks for tokens, so
// serializing fetches costs nothing and guarantees at most one exchange
// per expiry, however many alerts share it.
type JWTBearerSource struct {
	tokenURL string
	issuer   string
	audience string
	key      *rsa.PrivateKey
	http     *http.Client

	mu      sync.Mutex
	cached  string
	expires time.Time

	// now is replaced in tests to step across token expiry.
	now func() time.Time
}

// NewJWTBearerSource creates a source for the given endpoint and
// signing identity.
func NewJWTBearerSource(opts JWTBearerOptions) (*JWTBearerSource, error) {
	if opts.TokenURL == "" {
		return nil, ErrMissingTokenURL
	}
	if opts.Issuer == "" {
		return nil, ErrMissingIssuer
	}
	if opts.Key == nil {
		return nil, ErrMissingKey
	}
	if opts.Audience == "" {
		opts.Audience = opts.TokenURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &JWTBearerSource{
		tokenURL: opts.TokenURL,
		issuer:   opts.Issuer,
		audience: opts.Audience,
		key:      opts.Key,
		http:     opts.HTTPClient,
		now:      time.Now,
	}, nil
}

// Token returns the cached bearer token, exchanging a fresh assertion
// when the cache is empty or about to expire.
func (s *JWTBearerSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != "" && s.now().Before(s.expires.Add(-expiryMargin)) {
		return s.cached, nil
	}

	tok, ttl, err := s.exchange(ctx)
	if err != nil {
		return "", err
	}

	s.cached = tok
	s.expires = s.now().Add(ttl)
	return tok, nil
}

// tokenResponse is the token endpoint's JSON reply. Fields beyond these
// two are ignored.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (s *JWTBearerSource) exchange(ctx context.Context) (string, time.Duration, error) {
	assertion, err := s.signAssertion()
	if err != nil {
		return "", 0, err
	}

	form := url.Values{}
	form.Set("grant_type", jwtBearerGrantType)
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.http.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("failed to exchange token assertion: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // Response body close errors are not actionable

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("token endpoint returned %s", resp.Status)
	}

	var parsed tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", 0, fmt.Errorf("failed to decode token response: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", 0, ErrNoToken
	}

	ttl := defaultTokenTTL
	if parsed.ExpiresIn > 0 {
		ttl = time.Duration(parsed.ExpiresIn) * time.Second
	}
	return parsed.AccessToken, ttl, nil
}

func (s *JWTBearerSource) signAssertion() (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Audience:  jwt.ClaimStrings{s.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(defaultAssertionTTL)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token assertion: %w", err)
	}
	return signed, nil
}

// LoadRSAPrivateKey reads a PEM-encoded RSA private key from path.
func LoadRSAPrivateKey(path string) (*rsa.PrivateKey, error) {
	pemBytes, err := os.ReadFile(path) //nolint:gosec // The path comes from the operator's own configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read signing key: %w", err)
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signing key: %w", err)
	}
	return key, nil
}
