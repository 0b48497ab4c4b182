// Package keys is the single registry of persistence keys. Every persisted
// store takes its key from here so two stores can never share a namespace.
package keys

import (
	"fmt"
	"strings"
)

// Key names one persisted blob (or, for per-entity stores, one prefix).
type Key string

const (
	Auth      Key = "duet.auth"
	Profile   Key = "duet.profile"
	Workspace Key = "duet.workspace"
	Calendar  Key = "duet.calendar"
	Todos     Key = "duet.todos"
	Stories   Key = "duet.stories"
	Memories  Key = "duet.memories"
	Chat      Key = "duet.chat"
)

// sep separates an entity id from its store prefix.
const sep = "/"

// All lists every key in declaration order.
func All() []Key {
	return []Key{Auth, Profile, Workspace, Calendar, Todos, Stories, Memories, Chat}
}

// Entity returns the key for one entity record under k.
func (k Key) Entity(id string) string {
	return string(k) + sep + id
}

func (k Key) String() string { return string(k) }

// Parse resolves a key by its full name or short suffix ("todos").
func Parse(name string) (Key, error) {
	for _, k := range All() {
		if string(k) == name || strings.TrimPrefix(string(k), "duet.") == name {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown store key %q", name)
}

// Registry hands out each key at most once per process wiring.
type Registry struct {
	claimed map[Key]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{claimed: make(map[Key]string)}
}

// Claim records owner as the user of k. A second claim is a wiring bug.
func (r *Registry) Claim(k Key, owner string) error {
	if prev, ok := r.claimed[k]; ok {
		return fmt.Errorf("persistence key %q already claimed by %s", k, prev)
	}
	for other := range r.claimed {
		if strings.HasPrefix(string(k), string(other)+sep) || strings.HasPrefix(string(other), string(k)+sep) {
			return fmt.Errorf("persistence key %q overlaps %q", k, other)
		}
	}
	r.claimed[k] = owner
	return nil
}

// Owner reports who claimed k.
func (r *Registry) Owner(k Key) (string, bool) {
	o, ok := r.claimed[k]
	return o, ok
}
