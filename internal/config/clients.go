package config

import (
	"github.com/thoreinstein/conductor/internal/errors"
	"github.com/thoreinstein/conductor/internal/paths"
	"github.com/thoreinstein/conductor/internal/platform"
)

// Build returns the host client described by c.
func (c CustomClient) Build() (*platform.Client, error) {
	f, err := platform.NewFormat(c.Format, c.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "client %s", c.ID)
	}
	return platform.NewClient(c.ID, c.Name, f, paths.Expand(c.Path)), nil
}

// Registry returns the built-in clients for dirs followed by the custom
// clients declared in the config.
func (c *Config) Registry(dirs paths.Dirs) (*platform.Registry, error) {
	r, err := platform.NewRegistry(platform.Builtin(dirs)...)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return r, nil
	}
	for _, cc := range c.Clients {
		client, err := cc.Build()
		if err != nil {
			return nil, err
		}
		if err := r.Register(client); err != nil {
			return nil, errors.Wrapf(err, "registering client %s", cc.ID)
		}
	}
	return r, nil
}

// SyncTargets returns the IDs "sync --all" should write: DefaultClients
// when set, otherwise every installed client.
func (c *Config) SyncTargets(r *platform.Registry) []string {
	if c != nil && len(c.DefaultClients) > 0 {
		return append([]string(nil), c.DefaultClients...)
	}
	installed := r.Installed()
	ids := make([]string, 0, len(installed))
	for _, cl := range installed {
		ids = append(ids, cl.ID)
	}
	return ids
}
