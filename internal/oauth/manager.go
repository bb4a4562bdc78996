package oauth

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/thoreinstein/conductor/internal/errors"
	"github.com/thoreinstein/conductor/internal/secrets"
)

const (
	// DefaultCallbackTimeout bounds how long the callback listener waits.
	DefaultCallbackTimeout = 5 * time.Minute

	// RefreshSkew is how close to expiry a token is refreshed early.
	RefreshSkew = 60 * time.Second

	requestTimeout = 20 * time.Second
)

// Manager runs authorization flows and keeps per-server credential bundles
// in a secret store.
type Manager struct {
	Secrets secrets.Store

	// HTTPClient is used for token requests. Nil means a client with a
	// 20 second timeout.
	HTTPClient *http.Client

	// OpenBrowser opens the authorization URL. Nil means the platform
	// opener.
	OpenBrowser func(url string) error

	// Now is the clock. Nil means time.Now.
	Now func() time.Time

	// Getenv reads the process environment. Nil means os.Getenv.
	Getenv func(string) string

	CallbackTimeout time.Duration

	logger *slog.Logger
}

// NewManager returns a Manager storing bundles in store.
func NewManager(store secrets.Store) *Manager {
	return &Manager{
		Secrets:         store,
		CallbackTimeout: DefaultCallbackTimeout,
		logger:          slog.Default().With("component", "oauth"),
	}
}

func (m *Manager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *Manager) log() *slog.Logger {
	if m.logger != nil {
		return m.logger
	}
	return slog.Default().With("component", "oauth")
}

func (m *Manager) httpClient() *http.Client {
	if m.HTTPClient != nil {
		return m.HTTPClient
	}
	return &http.Client{Timeout: requestTimeout}
}

func (m *Manager) getenv(key string) string {
	if m.Getenv != nil {
		return m.Getenv(key)
	}
	return os.Getenv(key)
}

func (m *Manager) callbackTimeout() time.Duration {
	if m.CallbackTimeout > 0 {
		return m.CallbackTimeout
	}
	return DefaultCallbackTimeout
}

func (m *Manager) openBrowser(u string) error {
	if m.OpenBrowser != nil {
		return m.OpenBrowser(u)
	}
	return OpenURL(u)
}

// OpenURL opens u with the platform's default handler.
func OpenURL(u string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", u).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", u).Start()
	default:
		return exec.Command("xdg-open", u).Start()
	}
}

// Credentials are a provider's client id and secret.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

func credentialKeys(provider, field string) []string {
	return []string{
		"OAUTH_" + EnvKey(provider) + "_" + field,
		"OAUTH_" + field,
		field,
	}
}

// ResolveCredentials finds the client id and secret for provider. Each
// value is looked up under OAUTH_{PROVIDER}_CLIENT_ID, OAUTH_CLIENT_ID and
// CLIENT_ID (likewise for the secret), first in the vault under the
// server's namespace, then in env, then in the process environment.
func (m *Manager) ResolveCredentials(serverID, provider string, env map[string]string) (Credentials, error) {
	id, err := m.resolveValue(serverID, env, credentialKeys(provider, "CLIENT_ID"))
	if err != nil {
		return Credentials{}, err
	}
	if id == "" {
		key := EnvKey(provider)
		return Credentials{}, &errors.OAuthError{
			Reason: "missing client id for provider " + provider + "; set OAUTH_" + key + "_CLIENT_ID or OAUTH_CLIENT_ID",
		}
	}

	secret, err := m.resolveValue(serverID, env, credentialKeys(provider, "CLIENT_SECRET"))
	if err != nil {
		return Credentials{}, err
	}
	if secret == "" {
		key := EnvKey(provider)
		return Credentials{}, &errors.OAuthError{
			Reason: "missing client secret for provider " + provider + "; set OAUTH_" + key + "_CLIENT_SECRET or OAUTH_CLIENT_SECRET",
		}
	}
	return Credentials{ClientID: id, ClientSecret: secret}, nil
}

func (m *Manager) resolveValue(serverID string, env map[string]string, keys []string) (string, error) {
	for _, k := range keys {
		v, ok, err := m.Secrets.Get(secrets.Key(serverID, k))
		if err != nil {
			return "", errors.Wrapf(err, "reading %s", k)
		}
		if ok && strings.TrimSpace(v) != "" {
			return v, nil
		}
	}
	for _, k := range keys {
		if v := env[k]; strings.TrimSpace(v) != "" {
			return v, nil
		}
	}
	for _, k := range keys {
		if v := m.getenv(k); strings.TrimSpace(v) != "" {
			return v, nil
		}
	}
	return "", nil
}

// SetCredentials stores a provider's client id and secret in the vault
// under serverID.
func (m *Manager) SetCredentials(serverID, provider string, creds Credentials) error {
	if creds.ClientID != "" {
		if err := m.Secrets.Set(secrets.Key(serverID, credentialKeys(provider, "CLIENT_ID")[0]), creds.ClientID); err != nil {
			return errors.Wrap(err, "storing client id")
		}
	}
	if creds.ClientSecret != "" {
		if err := m.Secrets.Set(secrets.Key(serverID, credentialKeys(provider, "CLIENT_SECRET")[0]), creds.ClientSecret); err != nil {
			return errors.Wrap(err, "storing client secret")
		}
	}
	return nil
}

// ValidToken returns serverID's access token, refreshing it first when it
// expires within RefreshSkew. It reports false when no token is stored.
func (m *Manager) ValidToken(ctx context.Context, serverID string, env map[string]string) (string, bool, error) {
	b, err := m.load(serverID)
	if err != nil {
		return "", false, err
	}
	if b == nil {
		return "", false, nil
	}
	if !b.badExpiry && (b.token.Expiry.IsZero() || b.token.Expiry.After(m.now().Add(RefreshSkew))) {
		return b.token.AccessToken, true, nil
	}

	tok, err := m.refresh(ctx, serverID, b, env)
	if err != nil {
		return "", false, err
	}
	return tok.AccessToken, true, nil
}

// Refresh forces a refresh of serverID's token.
func (m *Manager) Refresh(ctx context.Context, serverID string, env map[string]string) error {
	b, err := m.load(serverID)
	if err != nil {
		return err
	}
	if b == nil {
		return &errors.OAuthError{Reason: "no token stored for " + serverID}
	}
	_, err = m.refresh(ctx, serverID, b, env)
	return err
}

func (m *Manager) refresh(ctx context.Context, serverID string, b *bundle, env map[string]string) (*oauth2.Token, error) {
	if b.provider == "" {
		return nil, &errors.OAuthError{Reason: "missing provider for " + serverID}
	}
	if b.token.RefreshToken == "" {
		return nil, &errors.OAuthError{Reason: "token expired and no refresh token is available"}
	}

	p := Lookup(b.provider)
	creds, err := m.ResolveCredentials(serverID, b.provider, env)
	if err != nil {
		return nil, err
	}
	tok, err := m.refreshWith(ctx, p, creds, b.token.RefreshToken)
	if err != nil {
		return nil, err
	}
	if err := m.save(serverID, b.provider, tok); err != nil {
		return nil, err
	}
	m.log().Info("token refreshed", "server", serverID, "provider", b.provider)
	return tok, nil
}

// Status describes a server's authorization state.
type Status struct {
	ServerID      string     `json:"serverId"`
	Authenticated bool       `json:"authenticated"`
	Provider      string     `json:"provider,omitempty"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	Error         string     `json:"error,omitempty"`
}

// Status reports whether serverID holds a usable token, refreshing it if
// needed. Refresh failures are reported in Status.Error.
func (m *Manager) Status(ctx context.Context, serverID string, env map[string]string) Status {
	st := Status{ServerID: serverID}
	if _, ok, err := m.ValidToken(ctx, serverID, env); err != nil {
		st.Error = err.Error()
		return st
	} else if !ok {
		return st
	}

	st.Authenticated = true
	b, err := m.load(serverID)
	if err != nil || b == nil {
		return st
	}
	st.Provider = b.provider
	if !b.token.Expiry.IsZero() {
		exp := b.token.Expiry
		st.ExpiresAt = &exp
	}
	return st
}

// Revoke deletes serverID's bundle and every client credential stored
// under it. Tokens are not revoked with the provider.
func (m *Manager) Revoke(serverID string) error {
	keys := []string{suffixToken, suffixProvider, suffixExpires, suffixRefresh}
	for _, p := range Known() {
		keys = append(keys, credentialKeys(p, "CLIENT_ID")[0], credentialKeys(p, "CLIENT_SECRET")[0])
	}
	keys = append(keys, "OAUTH_CLIENT_ID", "OAUTH_CLIENT_SECRET", "CLIENT_ID", "CLIENT_SECRET")

	for _, k := range keys {
		if err := m.Secrets.Delete(secrets.Key(serverID, k)); err != nil {
			return errors.Wrapf(err, "deleting %s", k)
		}
	}
	m.log().Info("credentials revoked", "server", serverID)
	return nil
}
