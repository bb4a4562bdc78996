package secrets

import (
	"sort"
	"strings"
	"sync"

	"github.com/thoreinstein/conductor/internal/errors"
)

// ErrInvalidKey is returned for an empty key.
var ErrInvalidKey = errors.New("secret key must not be empty")

// Store is an opaque key/value vault.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
}

// Key namespaces a secret by the server (or provider) it belongs to:
// "{owner}:{name}".
func Key(owner, name string) string {
	return owner + ":" + name
}

// Lister is implemented by stores that can enumerate keys.
type Lister interface {
	// Keys returns keys starting with prefix, sorted.
	Keys(prefix string) ([]string, error)
}

// DeletePrefix removes every key starting with prefix when s can list
// keys. It reports how many keys were removed.
func DeletePrefix(s Store, prefix string) (int, error) {
	l, ok := s.(Lister)
	if !ok {
		return 0, nil
	}
	keys, err := l.Keys(prefix)
	if err != nil {
		return 0, err
	}
	for _, k := range keys {
		if err := s.Delete(k); err != nil {
			return 0, errors.Wrapf(err, "deleting %s", k)
		}
	}
	return len(keys), nil
}

// MemoryStore is an in-process Store for tests and dry runs.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (m *MemoryStore) Get(key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrInvalidKey
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(key, value string) error {
	if key == "" {
		return ErrInvalidKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryStore) Delete(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryStore) Keys(prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}
