// Package format reads and writes MCP server definitions in each host
// application's native configuration format.
//
// Every [Format] has two halves:
//
//   - Parse normalizes raw host text into canonical servers. A missing or
//     unrecognized server container yields an empty list; malformed syntax
//     is a [errors.ParseError].
//   - Serialize merges canonical servers into existing host text. Existing
//     entries are partitioned by case-insensitive name into owned, orphaned,
//     and foreign (see [Classify]). Foreign entries and all unrelated
//     settings are kept unchanged, owned entries are re-rendered, and
//     orphans are dropped.
//
// Hosts without native bearer-header support receive network servers as a
// local mcp-remote proxy invocation (see [ProxyArgs]).
package format
