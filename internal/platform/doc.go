// Package platform describes the host applications conductor syncs MCP
// servers into.
//
// Each [Client] knows its candidate config locations for the current
// operating system, the [format.Format] its file uses, and how to tell
// whether it is installed. Candidates are tried in order and the first
// existing file wins; when none exists the primary candidate is used so
// the first sync creates it.
//
//	| ID             | Primary location (macOS)                                   | Format        |
//	|----------------|------------------------------------------------------------|---------------|
//	| claude-desktop | ~/Library/Application Support/Claude/claude_desktop_config.json | mcpServers |
//	| claude-code    | ~/.claude.json (fallback ~/.claude/settings.json)          | mcpServers, native headers |
//	| cursor         | ~/.cursor/mcp.json                                         | mcpServers    |
//	| vscode         | .../Code/User/mcp.json (fallback settings.json)            | servers / mcp.servers |
//	| windsurf       | ~/.codeium/windsurf/mcp_config.json                        | mcpServers    |
//	| zed            | ~/.config/zed/settings.json                                | context_servers |
//	| jetbrains      | .../JetBrains/<IDE><version>/options/mcp.xml               | XML           |
//	| codex          | ~/.codex/config.toml                                       | TOML          |
//	| antigravity    | .../Antigravity/User/mcp.json                              | servers / mcp.servers |
//
// Use [Default] for the built-in registry, or [Builtin] with a custom
// [paths.Dirs] in tests.
package platform
