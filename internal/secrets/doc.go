// Package secrets stores credential values outside the master document.
//
// Values are addressed by namespaced keys built with [Key]: per-server env
// secrets use "{serverId}:{ENV_NAME}", OAuth bundles use
// "{serverId}:oauth_token" and friends, and provider client credentials use
// "{serverId}:OAUTH_{PROVIDER}_CLIENT_ID".
//
// [SQLiteStore] is the on-disk vault (modernc.org/sqlite, no cgo);
// [MemoryStore] backs tests.
package secrets
