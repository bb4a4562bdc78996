// Package paths resolves the directories conductor and the host
// applications it manages keep their files in.
//
// Conductor's own state lives under ~/.conductor:
//
//	~/.conductor/config.json   master document
//	~/.conductor/config.lock   cross-process lock
//	~/.conductor/secrets.db    secret vault
//
// CLI preferences follow the XDG Base Directory layout via
// github.com/adrg/xdg ($XDG_CONFIG_HOME/conductor/config.yaml).
//
// Host locations differ per operating system. [Dirs] captures the base
// directories once so client adapters can derive their paths without
// consulting the environment, and tests can substitute a temp tree.
package paths
