// Package mcp defines the canonical MCP (Model Context Protocol) server
// model that every host format converts to and from.
//
// A [Server] is stored in the master document and identified by a stable
// ID. Host files carry no IDs, so servers read from a host receive fresh
// IDs and are reconciled with the master document by name. Name matching
// against hosts ignores case (see [NameKey] and [NameSet]).
//
// # Transports
//
//   - [TransportStdio]: Command and Args launch a local subprocess.
//   - [TransportSSE]: URL is an SSE endpoint.
//   - [TransportStreamableHTTP]: URL is a streamable HTTP endpoint.
//
// Exactly one of Command or URL is meaningful, as selected by Transport.
//
// # Secrets
//
// SecretEnvKeys lists Env entries whose values live in the secret store.
// Those values are never persisted in Env; the sync orchestrator grafts
// them in for the duration of a sync.
//
// # Forward Compatibility
//
// [Server] preserves unknown JSON fields across a read-modify-write of the
// master document.
package mcp
