package platform

import (
	"sync"

	"github.com/thoreinstein/conductor/internal/errors"
	"github.com/thoreinstein/conductor/internal/paths"
)

// Sentinel errors for registry operations.
var (
	// ErrClientAlreadyRegistered is returned when attempting to register
	// a client with an ID that is already in use.
	ErrClientAlreadyRegistered = errors.New("client already registered")

	// ErrInvalidClient is returned when attempting to register a client
	// without an ID or format.
	ErrInvalidClient = errors.New("invalid client")
)

// Registry manages client registration and lookup.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
	order   []string
}

// NewRegistry creates a registry holding clients, in order.
func NewRegistry(clients ...*Client) (*Registry, error) {
	r := &Registry{clients: make(map[string]*Client, len(clients))}
	for _, c := range clients {
		if err := r.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the registry of built-in clients for the current user.
func Default() *Registry {
	defaultOnce.Do(func() {
		// Builtin IDs are unique, so registration cannot fail.
		defaultRegistry, _ = NewRegistry(Builtin(paths.Current())...)
	})
	return defaultRegistry
}

// Register adds a client. Returns an error if:
//   - The client has no ID or no format
//   - A client with the same ID is already registered
func (r *Registry) Register(c *Client) error {
	if c == nil || c.ID == "" || c.formatFor == nil {
		return ErrInvalidClient
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.clients[c.ID]; exists {
		return errors.Wrapf(ErrClientAlreadyRegistered, "%s", c.ID)
	}

	r.clients[c.ID] = c
	r.order = append(r.order, c.ID)
	return nil
}

// Get returns the client with the given ID, or a NotFoundError.
func (r *Registry) Get(id string) (*Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[id]
	if !ok {
		return nil, &errors.NotFoundError{Kind: "client", ID: id}
	}
	return c, nil
}

// All returns every registered client in registration order.
func (r *Registry) All() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Client, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.clients[id])
	}
	return out
}

// IDs returns every registered client ID in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.order...)
}

// Installed returns only clients that appear to be installed.
func (r *Registry) Installed() []*Client {
	all := r.All()
	out := make([]*Client, 0, len(all))
	for _, c := range all {
		if c.Installed() {
			out = append(out, c)
		}
	}
	return out
}
