package doctor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/thoreinstein/conductor/internal/mcp"
	"github.com/thoreinstein/conductor/internal/mcp/validator"
	"github.com/thoreinstein/conductor/internal/platform"
	"github.com/thoreinstein/conductor/internal/secrets"
	"github.com/thoreinstein/conductor/internal/store"
	"github.com/thoreinstein/conductor/pkg/fileutil"
)

// maxSecureFilePerm is the loosest acceptable mode for a host config file.
const maxSecureFilePerm os.FileMode = 0o644

// StoreCheck verifies that the master document loads and that its servers
// are valid.
type StoreCheck struct {
	Store *store.Store
}

var _ Check = (*StoreCheck)(nil)

// NewStoreCheck creates a master document check.
func NewStoreCheck(st *store.Store) *StoreCheck {
	return &StoreCheck{Store: st}
}

// Name returns the unique identifier for this check.
func (c *StoreCheck) Name() string {
	return "master-document"
}

// Category returns the grouping for this check.
func (c *StoreCheck) Category() string {
	return "store"
}

// Run loads the document and validates every server.
func (c *StoreCheck) Run(context.Context) *CheckResult {
	result := &CheckResult{
		Name:     c.Name(),
		Category: c.Category(),
		Status:   SeverityPass,
		Details:  map[string]any{"path": c.Store.Path()},
	}

	doc, err := c.Store.Load()
	if err != nil {
		result.Status = SeverityError
		result.Message = fmt.Sprintf("master document cannot be read: %v", err)
		result.FixHint = "restore a backup with: conductor backup restore " + c.Store.Path()
		return result
	}

	result.Details["servers"] = len(doc.Servers)
	result.Details["enabled"] = len(doc.Enabled())
	result.Details["clients"] = len(doc.Sync)

	issues := validator.New().Validate(doc.Servers)
	if len(issues) > 0 {
		messages := make([]string, 0, len(issues))
		for _, issue := range issues {
			messages = append(messages, issue.Error())
		}
		result.Details["issues"] = messages
	}

	switch {
	case validator.HasErrors(issues):
		result.Status = SeverityError
		result.Message = fmt.Sprintf("%d server(s) are invalid", len(validator.Errors(issues)))
		result.FixHint = "fix or remove the listed servers with conductor server update|remove"
	case validator.HasWarnings(issues):
		result.Status = SeverityWarning
		result.Message = fmt.Sprintf("%d server warning(s)", len(validator.Warnings(issues)))
	default:
		result.Message = fmt.Sprintf("%d server(s), %d enabled", len(doc.Servers), len(doc.Enabled()))
	}
	return result
}

// ClientConfigCheck verifies that a host's config file parses with the
// host's format and is safely permissioned. A file that does not parse is
// an error because sync refuses to overwrite it.
type ClientConfigCheck struct {
	PermissionFixer

	Client *platform.Client
}

var (
	_ Check = (*ClientConfigCheck)(nil)
	_ Fixer = (*ClientConfigCheck)(nil)
)

// NewClientConfigCheck creates a host config check for client.
func NewClientConfigCheck(client *platform.Client) *ClientConfigCheck {
	return &ClientConfigCheck{Client: client}
}

// Name returns the unique identifier for this check.
func (c *ClientConfigCheck) Name() string {
	return "client:" + c.Client.ID
}

// Category returns the grouping for this check.
func (c *ClientConfigCheck) Category() string {
	return "client"
}

// Run parses the host config and inspects its permissions.
func (c *ClientConfigCheck) Run(context.Context) *CheckResult {
	result := &CheckResult{
		Name:     c.Name(),
		Category: c.Category(),
		Status:   SeverityPass,
		Details:  make(map[string]any),
	}

	path := c.Client.ConfigPath()
	if path == "" {
		result.Status = SeverityInfo
		result.Message = "no config location for " + c.Client.DisplayName
		return result
	}
	result.Details["path"] = path

	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		result.Status = SeverityInfo
		result.Message = "config file does not exist yet; the first sync creates it"
		c.setIssues(checkDirectory(filepath.Dir(path), c.Client.ID))
		c.apply(result)
		return result
	}
	if err != nil {
		result.Status = SeverityError
		result.Message = fmt.Sprintf("cannot stat config file: %v", err)
		return result
	}

	var issues []pathIssue
	if runtime.GOOS != "windows" {
		issues = append(issues, checkFilePermissions(path, c.Client.ID, info.Mode())...)
	}
	issues = append(issues, checkDirectory(filepath.Dir(path), c.Client.ID)...)
	c.setIssues(issues)

	data, err := fileutil.ReadFileWithLimit(path)
	if err != nil {
		result.Status = SeverityError
		result.Message = fmt.Sprintf("config file is not readable: %v", err)
		result.FixHint = "chmod 600 " + path
		return result
	}

	f := c.Client.FormatFor(path)
	result.Details["format"] = f.ID()
	if len(strings.TrimSpace(string(data))) == 0 {
		result.Message = "config file is empty"
		c.apply(result)
		return result
	}

	servers, err := f.Parse(data)
	if err != nil {
		result.Status = SeverityError
		result.Message = formatParseError(err, data)
		result.FixHint = "fix the syntax by hand or restore a backup with: conductor backup restore " + path
		return result
	}

	names := mcp.Names(servers)
	result.Details["servers"] = names
	result.Message = fmt.Sprintf("%d server(s) configured", len(names))
	c.apply(result)
	return result
}

// apply raises result to the worst permission issue found.
func (c *ClientConfigCheck) apply(result *CheckResult) {
	if len(c.issues) == 0 {
		return
	}
	problems := make([]string, 0, len(c.issues))
	var hints []string
	worst := result.Status
	for _, issue := range c.issues {
		problems = append(problems, fmt.Sprintf("%s: %s", issue.Path, issue.Problem))
		if issue.Severity > worst {
			worst = issue.Severity
		}
		if issue.FixHint != "" {
			hints = append(hints, issue.FixHint)
		}
	}
	result.Status = worst
	result.Details["issues"] = problems
	result.Message = fmt.Sprintf("%s; %d permission issue(s)", result.Message, len(c.issues))
	result.Fixable = c.CanFix()
	result.FixHint = strings.Join(hints, "; ")
}

// SecretStoreCheck verifies that the secret vault answers and that every
// declared secret env key has a value.
type SecretStoreCheck struct {
	Vault secrets.Store
	Store *store.Store
}

var _ Check = (*SecretStoreCheck)(nil)

// NewSecretStoreCheck creates a vault check. st may be nil, in which case
// declared keys are not inspected.
func NewSecretStoreCheck(vault secrets.Store, st *store.Store) *SecretStoreCheck {
	return &SecretStoreCheck{Vault: vault, Store: st}
}

// Name returns the unique identifier for this check.
func (c *SecretStoreCheck) Name() string {
	return "secret-store"
}

// Category returns the grouping for this check.
func (c *SecretStoreCheck) Category() string {
	return "secrets"
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Run pings the vault and looks up every declared secret.
func (c *SecretStoreCheck) Run(ctx context.Context) *CheckResult {
	result := &CheckResult{
		Name:     c.Name(),
		Category: c.Category(),
		Status:   SeverityPass,
		Details:  make(map[string]any),
	}
	if c.Vault == nil {
		result.Status = SeverityError
		result.Message = "no secret store configured"
		return result
	}
	if p, ok := c.Vault.(interface{ Path() string }); ok {
		result.Details["path"] = p.Path()
	}

	var err error
	if p, ok := c.Vault.(pinger); ok {
		err = p.Ping(ctx)
	} else {
		_, _, err = c.Vault.Get(secrets.Key("conductor", "doctor"))
	}
	if err != nil {
		result.Status = SeverityError
		result.Message = fmt.Sprintf("secret store is unreachable: %v", err)
		return result
	}

	if c.Store == nil {
		result.Message = "secret store is reachable"
		return result
	}
	doc, err := c.Store.Load()
	if err != nil {
		result.Status = SeverityInfo
		result.Message = "secret store is reachable; declared keys not checked"
		return result
	}

	var missing []string
	declared := 0
	for _, srv := range doc.Servers {
		for _, key := range srv.SecretEnvKeys {
			declared++
			if _, ok, err := c.Vault.Get(secrets.Key(srv.ID, key)); err != nil || !ok {
				missing = append(missing, srv.Name+"."+key)
			}
		}
	}
	result.Details["declared"] = declared
	if len(missing) > 0 {
		result.Status = SeverityWarning
		result.Details["missing"] = missing
		result.Message = fmt.Sprintf("%d of %d declared secret(s) have no value", len(missing), declared)
		result.FixHint = "set them with: conductor secret set <server> <KEY>"
		return result
	}
	result.Message = fmt.Sprintf("secret store is reachable; %d declared secret(s) set", declared)
	return result
}

// pathIssue represents a single path or permission problem.
type pathIssue struct {
	Path        string
	Client      string
	Type        string // "file" or "directory"
	Problem     string
	Severity    Severity
	Permissions string
	Fixable     bool
	FixHint     string
}

// checkFilePermissions flags host config files other users can modify.
// Synced files may carry tokens, so the fix tightens them to 0600.
func checkFilePermissions(path, clientID string, mode os.FileMode) []pathIssue {
	var issues []pathIssue
	perm := mode.Perm()

	if perm&0o002 != 0 {
		issues = append(issues, pathIssue{
			Path:        path,
			Client:      clientID,
			Type:        "file",
			Problem:     "file is world-writable (security risk)",
			Severity:    SeverityWarning,
			Permissions: formatPermissions(mode),
			Fixable:     true,
			FixHint:     "chmod 600 " + path,
		})
		return issues
	}

	if perm|maxSecureFilePerm != maxSecureFilePerm {
		issues = append(issues, pathIssue{
			Path:        path,
			Client:      clientID,
			Type:        "file",
			Problem:     fmt.Sprintf("file has overly permissive permissions (mode %s, expected %s or less)", formatPermissions(mode), formatPermissions(maxSecureFilePerm)),
			Severity:    SeverityWarning,
			Permissions: formatPermissions(mode),
			Fixable:     true,
			FixHint:     "chmod 600 " + path,
		})
	}
	return issues
}

// checkDirectory validates that a host config directory can receive the
// temporary file an atomic write needs.
func checkDirectory(path, clientID string) []pathIssue {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return []pathIssue{{
			Path:     path,
			Client:   clientID,
			Type:     "directory",
			Problem:  fmt.Sprintf("cannot stat directory: %v", err),
			Severity: SeverityError,
		}}
	}
	if !info.IsDir() {
		return []pathIssue{{
			Path:     path,
			Client:   clientID,
			Type:     "directory",
			Problem:  "expected directory but found file",
			Severity: SeverityError,
		}}
	}

	var issues []pathIssue
	if !isDirectoryWritable(path) {
		issues = append(issues, pathIssue{
			Path:        path,
			Client:      clientID,
			Type:        "directory",
			Problem:     "directory is not writable",
			Severity:    SeverityWarning,
			Permissions: formatPermissions(info.Mode()),
			FixHint:     "chmod u+w " + path,
		})
	}
	if runtime.GOOS != "windows" && info.Mode().Perm()&0o002 != 0 {
		issues = append(issues, pathIssue{
			Path:        path,
			Client:      clientID,
			Type:        "directory",
			Problem:     "directory is world-writable (security risk)",
			Severity:    SeverityWarning,
			Permissions: formatPermissions(info.Mode()),
			Fixable:     true,
			FixHint:     "chmod 755 " + path,
		})
	}
	return issues
}

// isDirectoryWritable tests if a directory is writable by creating a temp file.
func isDirectoryWritable(path string) bool {
	tmpFile, err := os.CreateTemp(path, ".conductor-doctor-*")
	if err != nil {
		return false
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	os.Remove(tmpPath)
	return true
}

// formatPermissions returns a human-readable permission string (e.g., "0644").
func formatPermissions(mode os.FileMode) string {
	return fmt.Sprintf("%04o", mode.Perm())
}

// formatParseError adds line and column information when the underlying
// decoder reports an offset.
func formatParseError(err error, data []byte) string {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(data, int(syntaxErr.Offset))
		return fmt.Sprintf("JSON syntax error at line %d, column %d: %v", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(data, int(typeErr.Offset))
		return fmt.Sprintf("JSON type error at line %d, column %d: %v", line, col, err)
	}

	var decodeErr *toml.DecodeError
	if errors.As(err, &decodeErr) {
		row, col := decodeErr.Position()
		return fmt.Sprintf("TOML syntax error at line %d, column %d: %v", row, col, err)
	}

	return fmt.Sprintf("config does not parse: %v", err)
}

// offsetToLineCol converts a byte offset to line and column numbers.
// Lines and columns are 1-indexed.
func offsetToLineCol(data []byte, offset int) (line, col int) {
	if offset > len(data) {
		offset = len(data)
	}
	if offset < 0 {
		offset = 0
	}

	line = 1
	lineStart := 0

	for i := range offset {
		if data[i] == '\n' {
			line++
			lineStart = i + 1
		}
	}

	col = offset - lineStart + 1
	return line, col
}
