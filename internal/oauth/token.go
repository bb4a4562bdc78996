package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/thoreinstein/conductor/internal/errors"
	"github.com/thoreinstein/conductor/internal/secrets"
)

// Vault key suffixes for a server's credential bundle.
const (
	suffixToken    = "oauth_token"
	suffixProvider = "oauth_provider"
	suffixRefresh  = "oauth_refresh"
	suffixExpires  = "oauth_expires"
)

// maxTokenResponse caps how much of a token endpoint reply is read.
const maxTokenResponse = 1 << 20

// TokenKey returns the vault key holding serverID's access token.
func TokenKey(serverID string) string {
	return secrets.Key(serverID, suffixToken)
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        any    `json:"expires_in"`
	ExpiresAt        any    `json:"expires_at"`
	OK               *bool  `json:"ok"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	AuthedUser       *struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   any    `json:"expires_in"`
	} `json:"authed_user"`
}

// parseTokenResponse turns a token endpoint reply into a token. Slack-style
// replies carry the user token under authed_user and report failures with
// ok:false on a 200.
func parseTokenResponse(status int, body []byte, now time.Time) (*oauth2.Token, error) {
	var resp tokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &errors.OAuthError{Reason: "invalid token response: " + truncate(string(body), 200), Err: err}
	}

	if status < 200 || status > 299 {
		msg := resp.ErrorDescription
		if msg == "" {
			msg = resp.Error
		}
		if msg == "" {
			msg = "unknown OAuth error"
		}
		return nil, &errors.OAuthError{Reason: "token request failed: " + msg}
	}
	if resp.OK != nil && !*resp.OK {
		msg := resp.Error
		if msg == "" {
			msg = "unknown OAuth error"
		}
		return nil, &errors.OAuthError{Reason: "token request failed: " + msg}
	}

	tok := &oauth2.Token{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    "Bearer",
	}
	if tok.AccessToken == "" && resp.AuthedUser != nil {
		tok.AccessToken = resp.AuthedUser.AccessToken
	}
	if tok.AccessToken == "" {
		return nil, &errors.OAuthError{Reason: "token response missing access_token"}
	}

	switch v := resp.ExpiresAt.(type) {
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			tok.Expiry = t.UTC()
		}
	case float64:
		tok.Expiry = time.Unix(int64(v), 0).UTC()
	default:
		if secs, ok := seconds(resp.ExpiresIn); ok {
			tok.Expiry = now.Add(time.Duration(secs) * time.Second).UTC()
		} else if resp.AuthedUser != nil {
			if secs, ok := seconds(resp.AuthedUser.ExpiresIn); ok {
				tok.Expiry = now.Add(time.Duration(secs) * time.Second).UTC()
			}
		}
	}
	return tok, nil
}

func seconds(v any) (int64, bool) {
	var n int64
	switch v := v.(type) {
	case float64:
		n = int64(v)
	case string:
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false
		}
		n = parsed
	default:
		return 0, false
	}
	return max(n, 0), true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// requestToken posts params to the provider's token endpoint in the
// provider's style.
func (m *Manager) requestToken(ctx context.Context, p Provider, creds Credentials, params map[string]string) (*oauth2.Token, error) {
	var req *http.Request
	var err error

	switch p.Style {
	case StyleJSONBasicAuth:
		payload, merr := json.Marshal(params)
		if merr != nil {
			return nil, errors.Wrap(merr, "encoding token request")
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint.TokenURL, bytes.NewReader(payload))
		if err != nil {
			return nil, errors.Wrap(err, "building token request")
		}
		req.SetBasicAuth(creds.ClientID, creds.ClientSecret)
		req.Header.Set("Content-Type", "application/json")
	default:
		form := url.Values{}
		form.Set("client_id", creds.ClientID)
		form.Set("client_secret", creds.ClientSecret)
		for k, v := range params {
			form.Set(k, v)
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint.TokenURL, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, errors.Wrap(err, "building token request")
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")

	m.log().Debug("token request", "provider", p.Name, "grant_type", params["grant_type"], "style", p.Style)

	resp, err := m.httpClient().Do(req)
	if err != nil {
		return nil, &errors.OAuthError{Reason: "token request to " + p.Name + " failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponse))
	if err != nil {
		return nil, &errors.OAuthError{Reason: "reading token response", Err: err}
	}
	return parseTokenResponse(resp.StatusCode, body, m.now())
}

// Exchange trades an authorization code for a token.
func (m *Manager) Exchange(ctx context.Context, p Provider, creds Credentials, code, redirectURI, state string) (*oauth2.Token, error) {
	params := map[string]string{
		"grant_type":   "authorization_code",
		"code":         code,
		"redirect_uri": redirectURI,
	}
	if state != "" {
		params["state"] = state
	}
	return m.requestToken(ctx, p, creds, params)
}

// refreshWith trades refreshToken for a new token. Providers that do not
// rotate refresh tokens omit one from the reply; the old one is kept.
func (m *Manager) refreshWith(ctx context.Context, p Provider, creds Credentials, refreshToken string) (*oauth2.Token, error) {
	tok, err := m.requestToken(ctx, p, creds, map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
	})
	if err != nil {
		return nil, err
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = refreshToken
	}
	return tok, nil
}

// save persists a bundle. Absent refresh tokens and expiries delete any
// stale values left by an earlier bundle.
func (m *Manager) save(serverID, provider string, tok *oauth2.Token) error {
	if err := m.Secrets.Set(secrets.Key(serverID, suffixToken), tok.AccessToken); err != nil {
		return errors.Wrap(err, "storing access token")
	}
	if err := m.Secrets.Set(secrets.Key(serverID, suffixProvider), provider); err != nil {
		return errors.Wrap(err, "storing provider")
	}

	if tok.RefreshToken != "" {
		if err := m.Secrets.Set(secrets.Key(serverID, suffixRefresh), tok.RefreshToken); err != nil {
			return errors.Wrap(err, "storing refresh token")
		}
	} else if err := m.Secrets.Delete(secrets.Key(serverID, suffixRefresh)); err != nil {
		return errors.Wrap(err, "clearing refresh token")
	}

	if !tok.Expiry.IsZero() {
		if err := m.Secrets.Set(secrets.Key(serverID, suffixExpires), tok.Expiry.UTC().Format(time.RFC3339)); err != nil {
			return errors.Wrap(err, "storing expiry")
		}
	} else if err := m.Secrets.Delete(secrets.Key(serverID, suffixExpires)); err != nil {
		return errors.Wrap(err, "clearing expiry")
	}
	return nil
}

// bundle is a stored credential set.
type bundle struct {
	token    *oauth2.Token
	provider string
	// badExpiry marks an expiry value that could not be parsed.
	badExpiry bool
}

// load returns the stored bundle for serverID, or nil when there is no
// access token.
func (m *Manager) load(serverID string) (*bundle, error) {
	access, ok, err := m.Secrets.Get(secrets.Key(serverID, suffixToken))
	if err != nil {
		return nil, errors.Wrap(err, "reading access token")
	}
	if !ok || access == "" {
		return nil, nil
	}

	b := &bundle{token: &oauth2.Token{AccessToken: access, TokenType: "Bearer"}}
	if b.provider, _, err = m.Secrets.Get(secrets.Key(serverID, suffixProvider)); err != nil {
		return nil, errors.Wrap(err, "reading provider")
	}
	if b.token.RefreshToken, _, err = m.Secrets.Get(secrets.Key(serverID, suffixRefresh)); err != nil {
		return nil, errors.Wrap(err, "reading refresh token")
	}

	raw, ok, err := m.Secrets.Get(secrets.Key(serverID, suffixExpires))
	if err != nil {
		return nil, errors.Wrap(err, "reading expiry")
	}
	if ok && raw != "" {
		t, perr := time.Parse(time.RFC3339, raw)
		if perr != nil {
			b.badExpiry = true
		} else {
			b.token.Expiry = t.UTC()
		}
	}
	return b, nil
}
