// Package oauth runs authorization-code flows for MCP servers that need an
// access token and keeps the resulting credential bundle in the secret
// vault.
//
// Provider endpoints are a static table ([Lookup]); an unknown provider
// name is treated as an issuer host. A flow ([Manager.Begin]) listens on
// an ephemeral loopback port for a single callback, checks the state
// parameter, exchanges the code, and stores the bundle under
// "{serverId}:oauth_token", "oauth_refresh", "oauth_expires" and
// "oauth_provider". [Manager.ValidToken] refreshes tokens that expire
// within a minute before returning them.
package oauth
