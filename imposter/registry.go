package imposter

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/imposterwatch/imposterwatch/syntax"
)

// WatchedIdentity is a public figure whose display name is protected. Accounts in ExceptedDIDs legitimately use the
// name and are never blocked.
type WatchedIdentity struct {
	Name         string
	CanonicalKey string
	ExceptedDIDs map[string]bool
}

// Registry maps canonical keys to watched identities. It is immutable after construction and safe for concurrent
// reads.
type Registry struct {
	entries map[string]*WatchedIdentity
}

// RegistryEntry is the configuration form of a WatchedIdentity.
type RegistryEntry struct {
	Name         string
	ExceptedDIDs []string
}

// NewRegistry builds a registry from configuration entries. The canonical key of each entry is Normalize(Name). Empty
// keys, duplicate keys, and malformed excepted DIDs are configuration errors.
func NewRegistry(entries []RegistryEntry) (*Registry, error) {
	r := &Registry{
		entries: make(map[string]*WatchedIdentity, len(entries)),
	}
	for _, e := range entries {
		key := Normalize(e.Name)
		if key == "" {
			return nil, fmt.Errorf("watched identity %q normalizes to an empty key", e.Name)
		}
		if prev, ok := r.entries[key]; ok {
			return nil, fmt.Errorf("watched identities %q and %q share canonical key %q", prev.Name, e.Name, key)
		}
		excepted := make(map[string]bool, len(e.ExceptedDIDs))
		for _, raw := range e.ExceptedDIDs {
			did, err := syntax.ParseDID(raw)
			if err != nil {
				return nil, fmt.Errorf("watched identity %q: excepted DID %q: %w", e.Name, raw, err)
			}
			excepted[did.String()] = true
		}
		r.entries[key] = &WatchedIdentity{
			Name:         e.Name,
			CanonicalKey: key,
			ExceptedDIDs: excepted,
		}
	}
	return r, nil
}

// DefaultRegistryEntries is the built-in watch list.
func DefaultRegistryEntries() []RegistryEntry {
	return []RegistryEntry{
		{Name: "Elon Musk"},
		{Name: "Jack Mallers", ExceptedDIDs: []string{"did:plc:l4q3e43f3wt2zzbsfebubb2g"}},
		{Name: "Vitalik Buterin"},
		{Name: "Mark Cuban", ExceptedDIDs: []string{"did:plc:y5xyloyy7s4a2bwfeimj7r3b"}},
	}
}

func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultRegistryEntries())
	if err != nil {
		panic(fmt.Sprintf("built-in registry is invalid: %v", err))
	}
	return r
}

// LoadRegistryFileJSON reads a registry from a JSON object mapping display name to a list of excepted DIDs, eg:
//
//	{"Elon Musk": [], "Jack Mallers": ["did:plc:l4q3e43f3wt2zzbsfebubb2g"]}
func LoadRegistryFileJSON(p string) (*Registry, error) {
	raw, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}

	var m map[string][]string
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parsing registry file %s: %w", p, err)
	}

	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	// stable order, so duplicate-key errors are deterministic
	sort.Strings(names)

	entries := make([]RegistryEntry, 0, len(names))
	for _, name := range names {
		entries = append(entries, RegistryEntry{Name: name, ExceptedDIDs: m[name]})
	}
	return NewRegistry(entries)
}

// Lookup returns the watched identity for an exact canonical key.
func (r *Registry) Lookup(key string) (*WatchedIdentity, bool) {
	w, ok := r.entries[key]
	return w, ok
}

func (r *Registry) Len() int {
	return len(r.entries)
}
