// Package config provides configuration management for the conductor CLI.
//
// These are CLI preferences, distinct from the master document in
// ~/.conductor/config.json that holds the servers themselves.
//
// # Configuration File
//
// The file is config.yaml, searched in the current directory,
// $CONDUCTOR_CONFIG_DIR, and $XDG_CONFIG_HOME/conductor:
//
//	version: 1
//	conductor_dir: ~/.conductor
//	default_clients: [cursor, claude-code]
//	watch_debounce: 500ms
//	oauth:
//	  callback_timeout: 5m
//	clients:
//	  - id: my-editor
//	    name: My Editor
//	    format: mcpServers
//	    path: ~/.my-editor/mcp.json
//
// Every key can be overridden from the environment with the CONDUCTOR_
// prefix, e.g. CONDUCTOR_WATCH_DEBOUNCE=1s.
//
// # Loading Configuration
//
//	config.Init()
//	cfg, err := config.Load("")
//	if err != nil {
//	    return err
//	}
//	registry, err := cfg.Registry(paths.Current())
//
// Load validates the result; [Validate] may also be called directly.
package config
