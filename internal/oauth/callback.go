package oauth

import (
	"context"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/thoreinstein/conductor/internal/errors"
)

// CallbackPath is the redirect path served by the local listener.
const CallbackPath = "/callback"

// Result describes a completed authorization.
type Result struct {
	ServerID   string
	Provider   string
	ExpiresAt  time.Time
	HasRefresh bool
}

// Flow is an authorization in progress. The local listener accepts one
// callback and then stops.
type Flow struct {
	ServerID    string
	Provider    string
	AuthURL     string
	RedirectURI string

	m        *Manager
	provider Provider
	creds    Credentials
	state    string
	srv      *http.Server
	once     sync.Once
	done     chan flowResult
	timeout  time.Duration
	shutdown sync.Once
}

type flowResult struct {
	res *Result
	err error
}

// Begin resolves client credentials, starts the callback listener on an
// ephemeral loopback port, and builds the authorization URL. The caller
// directs the user to Flow.AuthURL and then calls Wait.
func (m *Manager) Begin(ctx context.Context, serverID, providerName string, env map[string]string) (*Flow, error) {
	p := Lookup(providerName)
	creds, err := m.ResolveCredentials(serverID, providerName, env)
	if err != nil {
		return nil, err
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		return nil, &errors.OAuthError{Reason: "starting callback listener", Err: err}
	}
	port := ln.Addr().(*net.TCPAddr).Port

	f := &Flow{
		ServerID:    serverID,
		Provider:    p.Name,
		RedirectURI: fmt.Sprintf("http://localhost:%d%s", port, CallbackPath),
		m:           m,
		provider:    p,
		creds:       creds,
		state:       uuid.NewString(),
		done:        make(chan flowResult, 1),
		timeout:     m.callbackTimeout(),
	}

	cfg := oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     p.Endpoint,
		RedirectURL:  f.RedirectURI,
		Scopes:       p.Scopes,
	}
	var opts []oauth2.AuthCodeOption
	for k, v := range p.Extra {
		opts = append(opts, oauth2.SetAuthURLParam(k, v))
	}
	f.AuthURL = cfg.AuthCodeURL(f.state, opts...)

	mux := http.NewServeMux()
	mux.HandleFunc(CallbackPath, f.handle)
	f.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := f.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			m.log().Warn("callback listener stopped", "error", err)
		}
	}()

	m.log().Debug("callback listener started", "server", serverID, "provider", p.Name, "redirect_uri", f.RedirectURI)
	return f, nil
}

func (f *Flow) handle(w http.ResponseWriter, r *http.Request) {
	var res *Result
	err := error(&errors.OAuthError{Reason: "callback already handled"})
	first := false
	f.once.Do(func() {
		first = true
		res, err = f.complete(r)
	})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		renderPage(w, failurePage, err.Error())
	} else {
		renderPage(w, successPage, "")
	}

	if first {
		f.done <- flowResult{res: res, err: err}
	}
}

func (f *Flow) complete(r *http.Request) (*Result, error) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		msg := q.Get("error_description")
		if msg == "" {
			msg = e
		}
		return nil, &errors.OAuthError{Reason: "provider returned error: " + msg}
	}

	state := q.Get("state")
	if state == "" {
		return nil, &errors.OAuthError{Reason: "missing state parameter"}
	}
	if state != f.state {
		return nil, &errors.OAuthError{Reason: "state mismatch"}
	}
	code := q.Get("code")
	if code == "" {
		return nil, &errors.OAuthError{Reason: "no authorization code in callback"}
	}

	tok, err := f.m.Exchange(r.Context(), f.provider, f.creds, code, f.RedirectURI, f.state)
	if err != nil {
		return nil, err
	}
	if err := f.m.save(f.ServerID, f.Provider, tok); err != nil {
		return nil, err
	}

	f.m.log().Info("authorization complete", "server", f.ServerID, "provider", f.Provider)
	return &Result{
		ServerID:   f.ServerID,
		Provider:   f.Provider,
		ExpiresAt:  tok.Expiry,
		HasRefresh: tok.RefreshToken != "",
	}, nil
}

// Wait blocks until the first callback is handled, the callback timeout
// elapses, or ctx is done. The listener is stopped in every case.
func (f *Flow) Wait(ctx context.Context) (*Result, error) {
	defer f.Close()

	timer := time.NewTimer(f.timeout)
	defer timer.Stop()

	select {
	case r := <-f.done:
		return r.res, r.err
	case <-timer.C:
		return nil, &errors.OAuthError{Reason: fmt.Sprintf("no callback received within %s", f.timeout)}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the callback listener.
func (f *Flow) Close() {
	f.shutdown.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = f.srv.Shutdown(ctx)
	})
}

// Start runs a complete authorization for serverID: it begins a flow,
// opens the authorization URL in a browser, and waits for the callback.
// A browser that fails to open is logged with the URL so the user can
// open it by hand.
func (m *Manager) Start(ctx context.Context, serverID, provider string, env map[string]string) (*Result, error) {
	f, err := m.Begin(ctx, serverID, provider, env)
	if err != nil {
		return nil, err
	}
	if err := m.openBrowser(f.AuthURL); err != nil {
		m.log().Warn("could not open browser; open the URL manually", "url", f.AuthURL, "error", err)
	}
	return f.Wait(ctx)
}

var (
	successPage = template.Must(template.New("success").Parse(pageHead("Authorization Successful", "#22c55e") +
		`<p>You can close this window and return to your terminal.</p>
    <script>setTimeout(() => window.close(), 3000);</script>` + pageTail))

	failurePage = template.Must(template.New("failure").Parse(pageHead("Authorization Failed", "#ef4444") +
		`<p>{{.}}</p>
    <p>Close this window and run conductor auth login again.</p>` + pageTail))
)

const pageTail = `
  </div>
</body>
</html>`

func pageHead(title, color string) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head><title>Conductor - ")
	b.WriteString(title)
	b.WriteString(`</title></head>
<body style="font-family: -apple-system, BlinkMacSystemFont, sans-serif; display: flex; justify-content: center; align-items: center; height: 100vh; margin: 0; background: #0a0a0a; color: #fafafa;">
  <div style="text-align: center; max-width: 400px;">
    <h1 style="color: `)
	b.WriteString(color)
	b.WriteString(`;">`)
	b.WriteString(title)
	b.WriteString("</h1>\n    ")
	return b.String()
}

func renderPage(w http.ResponseWriter, t *template.Template, msg string) {
	_ = t.Execute(w, msg)
}
