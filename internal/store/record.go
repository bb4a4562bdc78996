package store

import (
	"slices"
	"time"

	"github.com/thoreinstein/conductor/internal/mcp"
)

// SyncRecord tracks what conductor has written to one client.
type SyncRecord struct {
	ClientID string `json:"clientId"`
	Enabled  bool   `json:"enabled"`

	// ServerIDs is the last set of canonical IDs targeted.
	ServerIDs []string `json:"serverIds"`

	// SyncedServerNames are the names written by the most recent
	// successful sync.
	SyncedServerNames []string `json:"syncedServerNames"`

	// PreviouslySyncedNames is the union of every name ever synced to the
	// client. It only grows, except through Reset.
	PreviouslySyncedNames []string `json:"previouslySyncedNames"`

	LastSynced time.Time `json:"lastSynced,omitzero"`
}

// Baseline returns the names whose host entries conductor may remove as
// orphans.
//
// Records written before cumulative tracking existed have synced the
// client without remembering names. For those, the baseline is seeded
// from the entries observed in the host file that carry the name of a
// canonical server, so entries conductor wrote are not mistaken for the
// user's own. Observed names unknown to the master document stay foreign.
func (r *SyncRecord) Baseline(observed []string, canonical []*mcp.Server) []string {
	if r == nil {
		return nil
	}
	if len(r.PreviouslySyncedNames) > 0 {
		return slices.Clone(r.PreviouslySyncedNames)
	}

	seed := slices.Clone(r.SyncedServerNames)
	if r.LastSynced.IsZero() && len(r.ServerIDs) == 0 {
		return seed
	}
	known := mcp.NewNameSet(mcp.Names(canonical)...)
	for _, name := range observed {
		if known.Has(name) {
			seed = append(seed, name)
		}
	}
	return union(nil, seed)
}

// MergeSynced records a successful sync of names built from serverIDs.
// PreviouslySyncedNames becomes the union of its old value and names.
func (r *SyncRecord) MergeSynced(serverIDs, names []string, at time.Time) {
	r.ServerIDs = slices.Clone(serverIDs)
	r.SyncedServerNames = union(nil, names)
	r.PreviouslySyncedNames = union(r.PreviouslySyncedNames, names)
	r.LastSynced = at.UTC()
	r.Enabled = true
}

// Reset forgets every name synced to the client. The next sync treats all
// existing host entries as foreign. ServerIDs and LastSynced are cleared
// too, otherwise Baseline would read the record as a legacy one and seed
// orphans from the host file again.
func (r *SyncRecord) Reset() {
	r.ServerIDs = []string{}
	r.SyncedServerNames = []string{}
	r.PreviouslySyncedNames = []string{}
	r.LastSynced = time.Time{}
}

// union returns the sorted set union of a and b, comparing exactly.
func union(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	slices.Sort(out)
	return slices.Compact(out)
}
