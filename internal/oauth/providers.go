package oauth

import (
	"sort"
	"strings"

	"golang.org/x/oauth2"
)

// TokenStyle selects how token requests are encoded.
type TokenStyle int

const (
	// StyleForm posts client credentials in a form-encoded body.
	StyleForm TokenStyle = iota

	// StyleJSONBasicAuth posts a JSON body and sends client credentials
	// with HTTP basic auth.
	StyleJSONBasicAuth
)

func (s TokenStyle) String() string {
	if s == StyleJSONBasicAuth {
		return "json+basic"
	}
	return "form"
}

// Provider describes one authorization server.
type Provider struct {
	Name     string
	Endpoint oauth2.Endpoint
	Scopes   []string
	Extra    map[string]string
	Style    TokenStyle
}

var providers = map[string]Provider{
	"github": {
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://github.com/login/oauth/authorize",
			TokenURL: "https://github.com/login/oauth/access_token",
		},
		Scopes: []string{"repo"},
	},
	"google": {
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://accounts.google.com/o/oauth2/v2/auth",
			TokenURL: "https://oauth2.googleapis.com/token",
		},
		Scopes: []string{"openid", "email", "profile"},
		Extra:  map[string]string{"access_type": "offline", "prompt": "consent"},
	},
	"notion": {
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://api.notion.com/v1/oauth/authorize",
			TokenURL: "https://api.notion.com/v1/oauth/token",
		},
		Style: StyleJSONBasicAuth,
	},
	"slack": {
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://slack.com/oauth/v2/authorize",
			TokenURL: "https://slack.com/api/oauth.v2.access",
		},
		Scopes: []string{"chat:write"},
	},
	"linear": {
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://linear.app/oauth/authorize",
			TokenURL: "https://api.linear.app/oauth/token",
		},
		Scopes: []string{"read"},
	},
}

// Lookup returns the provider registered under name (case-insensitive).
// Unknown names are treated as an issuer host: "auth.example.com" maps to
// https://auth.example.com/oauth/authorize and /oauth/token.
func Lookup(name string) Provider {
	key := strings.ToLower(strings.TrimSpace(name))
	if p, ok := providers[key]; ok {
		p.Name = key
		return p
	}

	base := strings.TrimRight(strings.TrimSpace(name), "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	return Provider{
		Name: strings.TrimSpace(name),
		Endpoint: oauth2.Endpoint{
			AuthURL:  base + "/oauth/authorize",
			TokenURL: base + "/oauth/token",
		},
	}
}

// Known returns the names of the built-in providers, sorted.
func Known() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EnvKey upper-cases a provider name for use in environment variable names.
// Every rune outside [A-Za-z0-9] becomes an underscore.
func EnvKey(provider string) string {
	var b strings.Builder
	for _, r := range provider {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - 'a' + 'A')
		case (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
