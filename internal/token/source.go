package token

import "context"

// Source supplies the OAuth bearer token attached to password alerts in
// managed mode.
type Source interface {
	// Token returns a bearer token valid at the time of the call.
	Token(ctx context.Context) (string, error)
}

// StaticSource returns one pre-issued token unchanged. Meant for tests
// and for deployments that rotate tokens outside this process.
type StaticSource struct {
	token string
}

// NewStaticSource creates a Source that always returns tok.
func NewStaticSource(tok string) *StaticSource {
	return &StaticSource{token: tok}
}

// Token implements Source.
func (s *StaticSource) Token(_ context.Context) (string, error) {
	if s.token == "" {
		return "", ErrNoToken
	}
	return s.token, nil
}
