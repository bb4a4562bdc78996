// Package backup is the single write path for files conductor owns or
// modifies: host MCP configs and the master document.
//
// Writes go through [Manager.Write], which validates content, serializes
// writers of the same path through the process-wide guard, copies the
// previous content to a sibling backup, prunes old backups, and commits
// with a rename.
//
// # Backup Layout
//
// Backups live next to the file they protect:
//
//	~/.cursor/
//	├── mcp.json
//	├── mcp_20260123_100712.json.bak
//	└── mcp_20260123_094501.json.bak
//
// The newest five are kept per file by default.
//
// # Restoring
//
// [Manager.Restore] writes a backup's content back through [Manager.Write],
// so the content being replaced is itself backed up first.
package backup
