package google

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/oauth2"

	"github.com/teemow/availsync/internal/instrumentation"
)

// TokenProvider supplies OAuth token sources for Google API clients.
type TokenProvider interface {
	// TokenSource returns a refreshing token source for account.
	TokenSource(ctx context.Context, account string) (oauth2.TokenSource, error)

	// HasToken reports whether a token exists for account.
	HasToken(account string) bool
}

// FileTokenProvider provides tokens from the on-disk cache and writes
// refreshed tokens back.
type FileTokenProvider struct {
	conf    *oauth2.Config
	metrics *instrumentation.Metrics
}

// NewFileTokenProvider creates a file-based token provider. metrics may be nil.
func NewFileTokenProvider(conf *oauth2.Config, metrics *instrumentation.Metrics) *FileTokenProvider {
	return &FileTokenProvider{conf: conf, metrics: metrics}
}

// TokenSource loads the cached token for account and wraps it in a source
// that persists every refreshed token.
func (p *FileTokenProvider) TokenSource(ctx context.Context, account string) (oauth2.TokenSource, error) {
	tok, err := LoadToken(account)
	if err != nil {
		return nil, err
	}

	return &persistingTokenSource{
		ctx:     ctx,
		base:    p.conf.TokenSource(ctx, tok),
		account: account,
		last:    tok,
		metrics: p.metrics,
	}, nil
}

// HasToken checks if a token file exists for the specified account.
func (p *FileTokenProvider) HasToken(account string) bool {
	return HasToken(account)
}

type persistingTokenSource struct {
	ctx     context.Context
	mu      sync.Mutex
	base    oauth2.TokenSource
	account string
	last    *oauth2.Token
	metrics *instrumentation.Metrics
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, err := s.base.Token()
	if err != nil {
		s.metrics.RecordOAuthTokenRefresh(s.ctx, instrumentation.OAuthResultFailure)
		return nil, fmt.Errorf("failed to refresh token for account %q: %w", s.account, err)
	}

	if s.last == nil || tok.AccessToken != s.last.AccessToken {
		s.metrics.RecordOAuthTokenRefresh(s.ctx, instrumentation.OAuthResultSuccess)
		if err := SaveToken(s.account, tok); err != nil {
			slog.Warn("failed to persist refreshed token", "account", s.account, "error", err)
		}
		s.last = tok
	}
	return tok, nil
}
