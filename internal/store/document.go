package store

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/thoreinstein/conductor/internal/mcp"
)

// MaxActivity caps the activity log; the oldest entries are pruned first.
const MaxActivity = 200

// Document is the master document persisted at ~/.conductor/config.json.
type Document struct {
	Servers  []*mcp.Server   `json:"servers"`
	Sync     []*SyncRecord   `json:"sync"`
	Activity []ActivityEntry `json:"activity"`
	Settings Settings        `json:"settings"`
	Stacks   []SavedStack    `json:"stacks"`
}

// NewDocument returns an empty document with default settings.
func NewDocument() *Document {
	return &Document{
		Servers:  []*mcp.Server{},
		Sync:     []*SyncRecord{},
		Activity: []ActivityEntry{},
		Settings: DefaultSettings(),
		Stacks:   []SavedStack{},
	}
}

func (d *Document) normalize() {
	if d.Servers == nil {
		d.Servers = []*mcp.Server{}
	}
	d.Servers = slices.DeleteFunc(d.Servers, func(s *mcp.Server) bool { return s == nil })
	if d.Sync == nil {
		d.Sync = []*SyncRecord{}
	}
	d.Sync = slices.DeleteFunc(d.Sync, func(r *SyncRecord) bool { return r == nil })
	if d.Activity == nil {
		d.Activity = []ActivityEntry{}
	}
	if d.Stacks == nil {
		d.Stacks = []SavedStack{}
	}
}

// Server returns the server with id, or nil.
func (d *Document) Server(id string) *mcp.Server {
	for _, s := range d.Servers {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// ServerByName returns the server with exactly name, or nil.
func (d *Document) ServerByName(name string) *mcp.Server {
	for _, s := range d.Servers {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Resolve finds a server by ID, then exact name, then case-insensitive
// name when that match is unique.
func (d *Document) Resolve(ref string) *mcp.Server {
	if s := d.Server(ref); s != nil {
		return s
	}
	if s := d.ServerByName(ref); s != nil {
		return s
	}
	var found *mcp.Server
	for _, s := range d.Servers {
		if mcp.NameKey(s.Name) == mcp.NameKey(ref) {
			if found != nil {
				return nil
			}
			found = s
		}
	}
	return found
}

// UniqueName returns name, or the first "name (n)" not already used by a
// server.
func (d *Document) UniqueName(name string) string {
	candidate := name
	for n := 1; d.ServerByName(candidate) != nil; n++ {
		candidate = fmt.Sprintf("%s (%d)", name, n)
	}
	return candidate
}

// Enabled returns the enabled servers in document order.
func (d *Document) Enabled() []*mcp.Server {
	out := make([]*mcp.Server, 0, len(d.Servers))
	for _, s := range d.Servers {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

// Record returns the sync record for clientID, or nil.
func (d *Document) Record(clientID string) *SyncRecord {
	for _, r := range d.Sync {
		if r.ClientID == clientID {
			return r
		}
	}
	return nil
}

// EnsureRecord returns the sync record for clientID, creating it.
func (d *Document) EnsureRecord(clientID string) *SyncRecord {
	if r := d.Record(clientID); r != nil {
		return r
	}
	r := &SyncRecord{ClientID: clientID, Enabled: true}
	d.Sync = append(d.Sync, r)
	return r
}

// ActivityEntry is one line of the activity log.
type ActivityEntry struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
	Details     string    `json:"details,omitempty"`
	ClientID    string    `json:"clientId,omitempty"`
	ServerID    string    `json:"serverId,omitempty"`
}

// Activity types.
const (
	ActivitySync   = "sync"
	ActivityAdd    = "add"
	ActivityUpdate = "update"
	ActivityDelete = "delete"
	ActivityImport = "import"
	ActivityError  = "error"
	ActivityAuth   = "auth"
	ActivityStack  = "stack"
)

// SavedStack is a stack kept in the master document as its serialized
// JSON.
type SavedStack struct {
	ID        string          `json:"id"`
	JSON      json.RawMessage `json:"json"`
	CreatedAt time.Time       `json:"createdAt"`
}
