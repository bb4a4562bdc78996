// Package syncer writes the canonical server list into host config files.
//
// A sync of one host selects the target servers, grafts in vault secrets
// and OAuth tokens, merges them into the host's existing file through its
// [format.Format] (keeping entries conductor never wrote), writes the
// result atomically, and reads it back to verify every target is present.
// A failed write or verification restores the content captured before the
// write. Successful syncs grow the host's record of names conductor owns,
// which is what later syncs use to tell orphans from the user's own
// entries.
package syncer
