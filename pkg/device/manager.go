package device

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/bft-labs/acquire/internal/domain"
)

// Factory opens a new instance of a registered driver. Camera factories must
// return a Camera and storage factories a Storage.
type Factory func() (Device, error)

// SelectPolicy decides which device Select returns when several match.
type SelectPolicy int

const (
	// SelectFirst returns the first match in registration order.
	SelectFirst SelectPolicy = iota
	// SelectUnique fails with ErrAmbiguousSelection on more than one match.
	SelectUnique
)

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithSelectPolicy sets the selection policy. Default: SelectFirst.
func WithSelectPolicy(p SelectPolicy) ManagerOption {
	return func(m *Manager) {
		m.policy = p
	}
}

type entry struct {
	id      Identifier
	factory Factory
}

// Manager is the registry of available drivers. It is safe for concurrent
// use. Devices are never unregistered, so identifiers stay valid for the
// manager's lifetime.
type Manager struct {
	mu      sync.RWMutex
	entries []entry
	policy  SelectPolicy
}

// NewManager creates an empty registry.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register adds a driver and returns its identifier. Names are unique per kind.
func (m *Manager) Register(kind Kind, name string, factory Factory) (Identifier, error) {
	if kind != KindCamera && kind != KindStorage {
		return Identifier{}, fmt.Errorf("device: cannot register kind %s", kind)
	}
	if name == "" {
		return Identifier{}, fmt.Errorf("device: empty name")
	}
	if factory == nil {
		return Identifier{}, fmt.Errorf("device: nil factory for %q", name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.entries {
		if e.id.Kind == kind && e.id.Name == name {
			return Identifier{}, fmt.Errorf("device: %s %q already registered", kind, name)
		}
	}
	id := Identifier{Kind: kind, Index: len(m.entries), Name: name}
	m.entries = append(m.entries, entry{id: id, factory: factory})
	return id, nil
}

// List returns the identifiers of the given kind in registration order.
// KindNone lists every device.
func (m *Manager) List(kind Kind) []Identifier {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Identifier
	for _, e := range m.entries {
		if kind == KindNone || e.id.Kind == kind {
			out = append(out, e.id)
		}
	}
	return out
}

// Select resolves pattern against the names of devices of the given kind.
// The pattern is a regular expression; if it does not compile it is matched
// as a literal substring. An empty pattern matches every device of the kind.
func (m *Manager) Select(kind Kind, pattern string) (Identifier, error) {
	if kind == KindNone {
		return Identifier{}, nil
	}
	match := matcher(pattern)

	m.mu.RLock()
	defer m.mu.RUnlock()

	var found []Identifier
	for _, e := range m.entries {
		if e.id.Kind != kind || !match(e.id.Name) {
			continue
		}
		if m.policy == SelectFirst {
			return e.id, nil
		}
		found = append(found, e.id)
	}

	switch len(found) {
	case 0:
		return Identifier{}, fmt.Errorf("%w: %s matching %q", domain.ErrNoMatchingDevice, kind, pattern)
	case 1:
		return found[0], nil
	default:
		names := make([]string, len(found))
		for i, id := range found {
			names[i] = id.Name
		}
		return Identifier{}, fmt.Errorf("%w: %s matching %q: %s",
			domain.ErrAmbiguousSelection, kind, pattern, strings.Join(names, ", "))
	}
}

func matcher(pattern string) func(string) bool {
	if pattern == "" {
		return func(string) bool { return true }
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return func(name string) bool { return strings.Contains(name, pattern) }
	}
	return re.MatchString
}

// Open instantiates the device behind id.
func (m *Manager) Open(id Identifier) (Device, error) {
	m.mu.RLock()
	if id.IsZero() || id.Index < 0 || id.Index >= len(m.entries) || m.entries[id.Index].id != id {
		m.mu.RUnlock()
		return nil, fmt.Errorf("%w: unknown identifier %s", domain.ErrNoMatchingDevice, id)
	}
	factory := m.entries[id.Index].factory
	m.mu.RUnlock()

	d, err := factory()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", id, err)
	}
	return d, nil
}

// OpenCamera opens id and checks that it is a camera.
func (m *Manager) OpenCamera(id Identifier) (Camera, error) {
	if id.Kind != KindCamera {
		return nil, fmt.Errorf("%w: %s is not a camera", domain.ErrNoMatchingDevice, id)
	}
	d, err := m.Open(id)
	if err != nil {
		return nil, err
	}
	c, ok := d.(Camera)
	if !ok {
		d.Close()
		return nil, fmt.Errorf("device: %s does not implement Camera", id)
	}
	return c, nil
}

// OpenStorage opens id and checks that it is a storage device.
func (m *Manager) OpenStorage(id Identifier) (Storage, error) {
	if id.Kind != KindStorage {
		return nil, fmt.Errorf("%w: %s is not a storage device", domain.ErrNoMatchingDevice, id)
	}
	d, err := m.Open(id)
	if err != nil {
		return nil, err
	}
	s, ok := d.(Storage)
	if !ok {
		d.Close()
		return nil, fmt.Errorf("device: %s does not implement Storage", id)
	}
	return s, nil
}
