package google

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestAuthorize_LoopbackFlow(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		assert.NotEmpty(t, r.PostForm.Get("code_verifier"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","refresh_token":"rt","token_type":"Bearer","expires_in":3600}`))
	}))
	defer tokenSrv.Close()

	conf := &oauth2.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://accounts.example.com/auth",
			TokenURL: tokenSrv.URL,
		},
	}

	var out bytes.Buffer
	browser := func(authURL string) error {
		u, err := url.Parse(authURL)
		if err != nil {
			return err
		}
		q := u.Query()
		assert.Equal(t, "offline", q.Get("access_type"))
		assert.Equal(t, "consent", q.Get("prompt"))
		assert.Equal(t, "S256", q.Get("code_challenge_method"))
		assert.NotEmpty(t, q.Get("code_challenge"))
		assert.Regexp(t, `^http://127\.0\.0\.1:\d+/$`, q.Get("redirect_uri"))

		cb := q.Get("redirect_uri") + "?state=" + url.QueryEscape(q.Get("state")) + "&code=the-code"
		go func() {
			resp, err := http.Get(cb)
			if err == nil {
				resp.Body.Close()
			}
		}()
		return nil
	}

	tok, err := Authorize(context.Background(), conf, AuthorizeOptions{
		Timeout: 5 * time.Second,
		Out:     &out,
		Browser: browser,
	})
	require.NoError(t, err)
	assert.Equal(t, "at", tok.AccessToken)
	assert.Equal(t, "rt", tok.RefreshToken)
	assert.Contains(t, out.String(), "https://accounts.example.com/auth")
	assert.Empty(t, conf.RedirectURL, "caller config is left untouched")
}

func TestAuthorize_NoBrowserTimesOut(t *testing.T) {
	called := false
	var out bytes.Buffer

	_, err := Authorize(context.Background(), &oauth2.Config{
		Endpoint: oauth2.Endpoint{AuthURL: "https://accounts.example.com/auth"},
	}, AuthorizeOptions{
		NoBrowser: true,
		Timeout:   50 * time.Millisecond,
		Out:       &out,
		Browser:   func(string) error { called = true; return nil },
	})
	require.Error(t, err)
	assert.False(t, called)
	assert.Contains(t, out.String(), "Visit this URL")
}
