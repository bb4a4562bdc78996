// Package store persists conductor's master document: canonical servers,
// per-client sync records, the activity log, settings, and saved stacks.
//
// The document is a single JSON file (~/.conductor/config.json) written
// through the backup-aware atomic writer. [Store.Update] runs a full
// read-modify-write cycle under a gofrs/flock lock file so two conductor
// processes cannot interleave mutations.
//
// Secret values never live here. Servers list the env keys whose values
// sit in the secret vault (SecretEnvKeys) and the sync orchestrator grafts
// them in at write time.
package store
