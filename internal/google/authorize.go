package google

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/oauth2"
)

// DefaultAuthTimeout bounds how long Authorize waits for the browser callback.
const DefaultAuthTimeout = 5 * time.Minute

// AuthorizeOptions configures the loopback flow.
type AuthorizeOptions struct {
	// Port for the callback server. 0 picks a free port.
	Port int
	// NoBrowser only prints the URL.
	NoBrowser bool
	// Timeout defaults to DefaultAuthTimeout.
	Timeout time.Duration
	// Out receives the instructions. Defaults to os.Stderr.
	Out io.Writer
	// Browser opens the URL. Defaults to OpenBrowser.
	Browser func(url string) error
}

// Authorize runs the installed-application loopback flow with PKCE and
// returns the resulting token. conf.RedirectURL is overwritten.
func Authorize(ctx context.Context, conf *oauth2.Config, opts AuthorizeOptions) (*oauth2.Token, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultAuthTimeout
	}
	if opts.Out == nil {
		opts.Out = os.Stderr
	}
	if opts.Browser == nil {
		opts.Browser = OpenBrowser
	}

	state, err := randomState()
	if err != nil {
		return nil, err
	}

	srv := NewCallbackServer(opts.Port, state)
	if err := srv.Start(); err != nil {
		return nil, fmt.Errorf("failed to start callback server: %w", err)
	}
	defer func() { _ = srv.Stop() }()

	cfg := *conf
	cfg.RedirectURL = srv.RedirectURL()

	verifier := oauth2.GenerateVerifier()
	authURL := cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.S256ChallengeOption(verifier),
	)

	fmt.Fprintf(opts.Out, "Visit this URL to authorize availsync:\n\n%s\n\n", authURL)
	if !opts.NoBrowser {
		if err := opts.Browser(authURL); err != nil {
			fmt.Fprintf(opts.Out, "Could not open a browser (%v); open the URL manually.\n", err)
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	code, err := srv.WaitForCode(waitCtx)
	if err != nil {
		return nil, err
	}

	tok, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	return tok, nil
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
