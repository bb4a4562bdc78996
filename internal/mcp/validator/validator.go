// Package validator checks canonical MCP servers before they are stored or
// synced.
package validator

import (
	"net/url"
	"sort"

	"github.com/thoreinstein/conductor/internal/mcp"
)

// Option configures a Validator.
type Option func(*Validator)

// Validator validates canonical MCP servers.
type Validator struct {
	// strictSecrets reports secret values found in Env as errors rather
	// than warnings.
	strictSecrets bool
}

// New creates a new Validator with the given options.
func New(opts ...Option) *Validator {
	v := &Validator{}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// WithStrictSecrets makes a secret env value at rest an error.
func WithStrictSecrets(strict bool) Option {
	return func(v *Validator) {
		v.strictSecrets = strict
	}
}

// Validate checks a server list for issues.
// Returns a slice of validation errors/warnings, or nil if valid.
// Use [HasErrors] to check if any errors (vs warnings) were found.
func (v *Validator) Validate(servers []*mcp.Server) []*ValidationError {
	var errs []*ValidationError

	exact := make(map[string]bool, len(servers))
	folded := make(map[string]string, len(servers))
	for _, s := range servers {
		errs = append(errs, v.ValidateServer(s)...)

		if s.Name == "" {
			continue
		}
		if exact[s.Name] {
			errs = append(errs, &ValidationError{
				ServerName: s.Name,
				Field:      "name",
				Message:    "name is used by more than one server",
				Severity:   SeverityError,
				Err:        ErrDuplicateName,
			})
			continue
		}
		exact[s.Name] = true

		// Host matching is case-insensitive, so the two servers would
		// overwrite each other in every host file.
		if other, ok := folded[mcp.NameKey(s.Name)]; ok {
			errs = append(errs, &ValidationError{
				ServerName: s.Name,
				Field:      "name",
				Message:    "collides with " + other + " on case-insensitive hosts",
				Severity:   SeverityWarning,
				Err:        ErrCaseCollision,
			})
			continue
		}
		folded[mcp.NameKey(s.Name)] = s.Name
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ValidateServer checks a single server.
func (v *Validator) ValidateServer(s *mcp.Server) []*ValidationError {
	var errs []*ValidationError

	if s.Name == "" {
		errs = append(errs, &ValidationError{
			Field:    "name",
			Message:  "server name is required",
			Severity: SeverityError,
			Err:      ErrMissingServerName,
		})
	}

	switch s.Transport {
	case mcp.TransportStdio, "":
		if s.Command == "" {
			errs = append(errs, &ValidationError{
				ServerName: s.Name,
				Field:      "command",
				Message:    "stdio transport requires command",
				Severity:   SeverityError,
				Err:        ErrMissingCommand,
			})
		}
		if s.URL != "" {
			errs = append(errs, &ValidationError{
				ServerName: s.Name,
				Field:      "url",
				Message:    "url is ignored for stdio transport",
				Severity:   SeverityWarning,
			})
		}
	case mcp.TransportSSE, mcp.TransportStreamableHTTP:
		errs = append(errs, v.validateURL(s)...)
		if s.Command != "" {
			errs = append(errs, &ValidationError{
				ServerName: s.Name,
				Field:      "command",
				Message:    "command is ignored for " + string(s.Transport) + " transport",
				Severity:   SeverityWarning,
			})
		}
	default:
		errs = append(errs, &ValidationError{
			ServerName: s.Name,
			Field:      "transport",
			Message:    "transport must be 'stdio', 'sse', or 'streamable-http'",
			Severity:   SeverityError,
			Err:        ErrInvalidTransport,
		})
	}

	errs = append(errs, v.validateEnv(s)...)
	return errs
}

func (v *Validator) validateURL(s *mcp.Server) []*ValidationError {
	if s.URL == "" {
		return []*ValidationError{{
			ServerName: s.Name,
			Field:      "url",
			Message:    string(s.Transport) + " transport requires URL",
			Severity:   SeverityError,
			Err:        ErrMissingURL,
		}}
	}
	u, err := url.Parse(s.URL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return []*ValidationError{{
			ServerName: s.Name,
			Field:      "url",
			Message:    "url must be an absolute http(s) URL",
			Severity:   SeverityError,
			Err:        ErrMissingURL,
		}}
	}
	return nil
}

// validateEnv checks env keys and that declared secrets are not stored
// literally.
func (v *Validator) validateEnv(s *mcp.Server) []*ValidationError {
	var errs []*ValidationError

	keys := make([]string, 0, len(s.Env))
	for k := range s.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if k == "" {
			errs = append(errs, &ValidationError{
				ServerName: s.Name,
				Field:      "env",
				Message:    "environment variable key cannot be empty",
				Severity:   SeverityError,
				Err:        ErrEmptyEnvKey,
			})
			continue
		}
		if s.HasSecretKey(k) && s.Env[k] != "" {
			sev := SeverityWarning
			if v.strictSecrets {
				sev = SeverityError
			}
			errs = append(errs, &ValidationError{
				ServerName: s.Name,
				Field:      "env." + k,
				Message:    "value belongs in the secret store",
				Severity:   sev,
				Err:        ErrSecretAtRest,
			})
		}
	}
	return errs
}
