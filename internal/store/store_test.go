package store

import (
	"encoding/json"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/conductor/internal/errors"
	"github.com/thoreinstein/conductor/internal/mcp"
	"github.com/thoreinstein/conductor/internal/mcp/validator"
)

type tick struct {
	mu sync.Mutex
	t  time.Time
}

func (c *tick) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newStore(t *testing.T) *Store {
	t.Helper()
	clock := &tick{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	return Open(t.TempDir(), WithClock(clock.Now))
}

func TestLoad_MissingFile(t *testing.T) {
	s := newStore(t)
	doc, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, doc.Servers)
	assert.Equal(t, DefaultSettings(), doc.Settings)
}

func TestLoad_Malformed(t *testing.T) {
	s := newStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0o600))
	_, err := s.Load()
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestSettings_PartialDefaults(t *testing.T) {
	s := newStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte(`{"servers": [], "settings": {"autoSync": false}}`), 0o600))

	got, err := s.Settings()
	require.NoError(t, err)
	assert.False(t, got.AutoSync)
	assert.Equal(t, 5, got.SyncDelay)
	assert.Equal(t, 30, got.BackupRetention)
	assert.True(t, got.NotifyExternal)
}

func TestAddServer(t *testing.T) {
	s := newStore(t)
	ctx := t.Context()

	srv, err := s.AddServer(ctx, ServerInput{Name: "remote", URL: "https://api.test/sse"})
	require.NoError(t, err)
	assert.Equal(t, mcp.TransportSSE, srv.Transport)
	assert.Equal(t, SourceConductor, srv.Source)
	assert.True(t, srv.Enabled)
	assert.NotEmpty(t, srv.ID)

	_, err = s.AddServer(ctx, ServerInput{Name: "remote", Command: "x"})
	assert.ErrorIs(t, err, errors.ErrDuplicateName)

	_, err = s.AddServer(ctx, ServerInput{Name: "nocmd"})
	assert.ErrorIs(t, err, validator.ErrMissingCommand)

	activity, err := s.Activity()
	require.NoError(t, err)
	require.Len(t, activity, 1)
	assert.Equal(t, ActivityAdd, activity[0].Type)
}

func TestAddServer_RejectsSecretAtRest(t *testing.T) {
	s := newStore(t)
	ctx := t.Context()

	_, err := s.AddServer(ctx, ServerInput{
		Name:          "api",
		Command:       "api-server",
		Env:           map[string]string{"API_KEY": "sk-literal", "REGION": "eu"},
		SecretEnvKeys: []string{"API_KEY"},
	})
	require.ErrorIs(t, err, validator.ErrSecretAtRest)

	// A declared key without a literal value is fine.
	_, err = s.AddServer(ctx, ServerInput{
		Name:          "api",
		Command:       "api-server",
		Env:           map[string]string{"REGION": "eu"},
		SecretEnvKeys: []string{"API_KEY"},
	})
	require.NoError(t, err)

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk-literal")
}

func TestUpdateServer_RejectsSecretAtRest(t *testing.T) {
	s := newStore(t)
	ctx := t.Context()

	_, err := s.AddServer(ctx, ServerInput{Name: "gh", Command: "gh", Env: map[string]string{"TOKEN": "abc"}})
	require.NoError(t, err)

	keys := []string{"TOKEN"}
	_, err = s.UpdateServer(ctx, "gh", ServerPatch{SecretEnvKeys: &keys})
	require.ErrorIs(t, err, validator.ErrSecretAtRest)

	got, err := s.Server("gh")
	require.NoError(t, err)
	assert.Empty(t, got.SecretEnvKeys, "a rejected patch changes nothing")

	// Moving the value out of env in the same patch is accepted.
	env := map[string]string{}
	updated, err := s.UpdateServer(ctx, "gh", ServerPatch{Env: &env, SecretEnvKeys: &keys})
	require.NoError(t, err)
	assert.Equal(t, []string{"TOKEN"}, updated.SecretEnvKeys)

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	var doc struct {
		Servers []struct {
			Env map[string]string `json:"env"`
		} `json:"servers"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Len(t, doc.Servers, 1)
	assert.NotContains(t, doc.Servers[0].Env, "TOKEN")
}

func TestUpdateServer_ClearsOptionalFields(t *testing.T) {
	s := newStore(t)
	ctx := t.Context()

	srv, err := s.AddServer(ctx, ServerInput{Name: "fs", Command: "fs", Description: "files", Env: map[string]string{"A": "1"}})
	require.NoError(t, err)

	empty := ""
	args := []string{"--root", "/"}
	updated, err := s.UpdateServer(ctx, srv.ID, ServerPatch{Description: &empty, Args: &args})
	require.NoError(t, err)
	assert.Empty(t, updated.Description)
	assert.Equal(t, args, updated.Args)
	assert.Equal(t, map[string]string{"A": "1"}, updated.Env)
	assert.True(t, updated.UpdatedAt.After(srv.UpdatedAt))

	// Clearing the command of a stdio server is rejected and nothing changes.
	_, err = s.UpdateServer(ctx, "fs", ServerPatch{Command: &empty})
	assert.ErrorIs(t, err, validator.ErrMissingCommand)
	got, err := s.Server("fs")
	require.NoError(t, err)
	assert.Equal(t, "fs", got.Command)

	_, err = s.UpdateServer(ctx, "missing", ServerPatch{})
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestDeleteServer_PurgesSyncRecords(t *testing.T) {
	s := newStore(t)
	ctx := t.Context()

	a, err := s.AddServer(ctx, ServerInput{Name: "a", Command: "a"})
	require.NoError(t, err)
	b, err := s.AddServer(ctx, ServerInput{Name: "b", Command: "b"})
	require.NoError(t, err)
	require.NoError(t, s.RecordSync(ctx, "cursor", []string{a.ID, b.ID}, []string{"a", "b"}))

	_, err = s.DeleteServer(ctx, a.ID)
	require.NoError(t, err)

	doc, err := s.Load()
	require.NoError(t, err)
	assert.Len(t, doc.Servers, 1)
	rec := doc.Record("cursor")
	require.NotNil(t, rec)
	assert.Equal(t, []string{b.ID}, rec.ServerIDs)
	// Names stay so the next sync can remove the orphan.
	assert.Equal(t, []string{"a", "b"}, rec.PreviouslySyncedNames)

	_, err = s.DeleteServer(ctx, a.ID)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestToggleServer(t *testing.T) {
	s := newStore(t)
	ctx := t.Context()
	_, err := s.AddServer(ctx, ServerInput{Name: "a", Command: "a"})
	require.NoError(t, err)

	srv, err := s.ToggleServer(ctx, "A", false)
	require.NoError(t, err)
	assert.False(t, srv.Enabled)

	doc, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, doc.Enabled())
}

func TestImportServers_Dedupe(t *testing.T) {
	s := newStore(t)
	ctx := t.Context()
	_, err := s.AddServer(ctx, ServerInput{Name: "fs", Command: "fs"})
	require.NoError(t, err)

	incoming := []*mcp.Server{mcp.New("fs"), mcp.New("fs"), mcp.New("new")}
	incoming[0].Command = "fs"
	incoming[1].Command = "other"
	incoming[2].Command = "n"

	res, err := s.ImportServers(ctx, "cursor", incoming)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Added)
	assert.Equal(t, 1, res.Skipped)
	for _, srv := range res.Servers {
		assert.Equal(t, "cursor", srv.Source)
	}
	assert.Equal(t, []string{"fs (1)", "new"}, mcp.Names(res.Servers))
}

func TestActivity_CapAndOrder(t *testing.T) {
	s := newStore(t)
	ctx := t.Context()

	require.NoError(t, s.Update(ctx, func(doc *Document) error {
		for i := range MaxActivity + 25 {
			s.Log(doc, ActivitySync, "entry", "", "")
			doc.Activity[len(doc.Activity)-1].Details = string(rune('a' + i%26))
		}
		return nil
	}))

	got, err := s.Activity()
	require.NoError(t, err)
	require.Len(t, got, MaxActivity)
	assert.True(t, got[0].Timestamp.After(got[len(got)-1].Timestamp))

	require.NoError(t, s.ClearActivity(ctx))
	got, err = s.Activity()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStacks(t *testing.T) {
	s := newStore(t)
	ctx := t.Context()

	first, err := s.SaveStack(ctx, json.RawMessage(`{"name":"one"}`))
	require.NoError(t, err)
	second, err := s.SaveStack(ctx, json.RawMessage(`{"name":"two"}`))
	require.NoError(t, err)

	list, err := s.Stacks()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	require.NoError(t, s.DeleteStack(ctx, first.ID))
	assert.ErrorIs(t, s.DeleteStack(ctx, first.ID), errors.ErrNotFound)

	_, err = s.SaveStack(ctx, json.RawMessage(`{`))
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestUpdate_Concurrent(t *testing.T) {
	s := newStore(t)
	ctx := t.Context()

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.AddServer(ctx, ServerInput{Name: string(rune('a' + i)), Command: "x"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	servers, err := s.Servers()
	require.NoError(t, err)
	assert.Len(t, servers, 10)
}

func TestUpdate_FnErrorSkipsWrite(t *testing.T) {
	s := newStore(t)
	boom := errors.New("boom")
	err := s.Update(t.Context(), func(doc *Document) error {
		doc.Servers = append(doc.Servers, mcp.New("x"))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	_, statErr := os.Stat(s.Path())
	assert.True(t, os.IsNotExist(statErr))
}
