package token

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenEndpoint is a fake OAuth endpoint that verifies incoming
// assertions against the test key and hands out numbered tokens.
type tokenEndpoint struct {
	key *rsa.PrivateKey

	mu       sync.Mutex
	requests int
	lastErr  error
}

func (e *tokenEndpoint) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e.mu.Lock()
		e.requests++
		n := e.requests
		e.mu.Unlock()

		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := e.verify(r); err != nil {
			e.mu.Lock()
			e.lastErr = err
			e.mu.Unlock()
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"tok-%d","expires_in":3600}`, n)
	})
}

func (e *tokenEndpoint) verify(r *http.Request) error {
	if got := r.PostForm.Get("grant_type"); got != jwtBearerGrantType {
		return fmt.Errorf("unexpected grant_type %q", got)
	}

	assertion := r.PostForm.Get("assertion")
	if assertion == "" {
		return errors.New("missing assertion")
	}

	// Tests drive the source with a fixed clock, so the assertion's
	// time claims are checked by the caller rather than here.
	claims := jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(assertion, &claims, func(t *jwt.Token) (any, error) {
		return &e.key.PublicKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}), jwt.WithoutClaimsValidation())
	if err != nil {
		return fmt.Errorf("bad assertion: %w", err)
	}
	if claims.Issuer != "svc@fleet.example.com" {
		return fmt.Errorf("unexpected issuer %q", claims.Issuer)
	}
	return nil
}

func (e *tokenEndpoint) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.requests
}

func (e *tokenEndpoint) lastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

func newTestSource(t *testing.T) (*JWTBearerSource, *tokenEndpoint) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate test key: %v", err)
	}

	endpoint := &tokenEndpoint{key: key}
	server := httptest.NewServer(endpoint.handler())
	t.Cleanup(server.Close)

	source, err := NewJWTBearerSource(JWTBearerOptions{
		TokenURL: server.URL,
		Issuer:   "svc@fleet.example.com",
		Key:      key,
	})
	if err != nil {
		t.Fatalf("failed to create source: %v", err)
	}
	return source, endpoint
}

func TestNewJWTBearerSource(t *testing.T) {
	t.Parallel()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate test key: %v", err)
	}

	tests := []struct {
		name string
		opts JWTBearerOptions
		want error
	}{
		{
			name: "missing token url",
			opts: JWTBearerOptions{Issuer: "svc@fleet.example.com", Key: key},
			want: ErrMissingTokenURL,
		},
		{
			name: "missing issuer",
			opts: JWTBearerOptions{TokenURL: "https://oauth.example.com/token", Key: key},
			want: ErrMissingIssuer,
		},
		{
			name: "missing key",
			opts: JWTBearerOptions{TokenURL: "https://oauth.example.com/token", Issuer: "svc@fleet.example.com"},
			want: ErrMissingKey,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := NewJWTBearerSource(tt.opts); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestJWTBearerSourceToken(t *testing.T) {
	t.Parallel()

	t.Run("exchanges a signed assertion for a token", func(t *testing.T) {
		t.Parallel()

		source, endpoint := newTestSource(t)
		got, err := source.Token(context.Background())
		if err != nil {
			t.Fatalf("failed to get token: %v", err)
		}
		if got != "tok-1" {
			t.Errorf("got %q, want tok-1", got)
		}
		if err := endpoint.lastError(); err != nil {
			t.Errorf("endpoint rejected the assertion: %v", err)
		}
	})

	t.Run("caches the token until it nears expiry", func(t *testing.T) {
		t.Parallel()

		source, endpoint := newTestSource(t)
		base := time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC)
		now := base
		source.now = func() time.Time { return now }

		if _, err := source.Token(context.Background()); err != nil {
			t.Fatalf("failed to get token: %v", err)
		}

		now = base.Add(30 * time.Minute)
		got, err := source.Token(context.Background())
		if err != nil {
			t.Fatalf("failed to get cached token: %v", err)
		}
		if got != "tok-1" {
			t.Errorf("got %q, want the cached tok-1", got)
		}
		if endpoint.count() != 1 {
			t.Errorf("got %d exchanges, want the cache to absorb the second call", endpoint.count())
		}
	})

	t.Run("refreshes within the expiry margin", func(t *testing.T) {
		t.Parallel()

		source, endpoint := newTestSource(t)
		base := time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC)
		now := base
		source.now = func() time.Time { return now }

		if _, err := source.Token(context.Background()); err != nil {
			t.Fatalf("failed to get token: %v", err)
		}

		// Ten seconds short of expiry is inside the staleness margin
		now = base.Add(time.Hour - 10*time.Second)
		got, err := source.Token(context.Background())
		if err != nil {
			t.Fatalf("failed to refresh token: %v", err)
		}
		if got != "tok-2" {
			t.Errorf("got %q, want a fresh tok-2", got)
		}
		if endpoint.count() != 2 {
			t.Errorf("got %d exchanges, want 2", endpoint.count())
		}
	})

	t.Run("endpoint failure surfaces as an error", func(t *testing.T) {
		t.Parallel()

		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			t.Fatalf("failed to generate test key: %v", err)
		}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "revoked", http.StatusForbidden)
		}))
		t.Cleanup(server.Close)

		source, err := NewJWTBearerSource(JWTBearerOptions{
			TokenURL: server.URL,
			Issuer:   "svc@fleet.example.com",
			Key:      key,
		})
		if err != nil {
			t.Fatalf("failed to create source: %v", err)
		}
		if _, err := source.Token(context.Background()); err == nil {
			t.Error("got nil error from a failing endpoint")
		}
	})
}
