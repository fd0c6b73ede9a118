// Package party implements the supplier/customer directory: a small named
// list persisted per record kind and per owner, used to autocomplete the
// counterpart field during record entry.
package party

import (
	"fmt"
	"strings"

	"tally/internal/core"
)

// Store persists one directory per key as an ordered party list.
type Store interface {
	Load(key string) ([]core.Party, error)
	Save(key string, parties []core.Party) error
}

// Directory is an explicit repository over a storage backend. Directories
// are namespaced by record kind and by owning user; the legacy un-namespaced
// keys (`suppliers`, `customers`) are read-only history and never written.
type Directory struct {
	store Store
}

func NewDirectory(store Store) *Directory {
	return &Directory{store: store}
}

// key follows the "{recordType}Parties" scheme, extended with the owner id.
func key(ownerID string, kind core.Kind) string {
	return fmt.Sprintf("%sParties/%s", kind, ownerID)
}

// List returns the directory in insertion order.
func (d *Directory) List(ownerID string, kind core.Kind) ([]core.Party, error) {
	parties, err := d.store.Load(key(ownerID, kind))
	if err != nil {
		return nil, fmt.Errorf("load party directory: %w", err)
	}
	return parties, nil
}

// Find looks a party up by exact trimmed-name match.
func (d *Directory) Find(ownerID string, kind core.Kind, name string) (core.Party, bool, error) {
	parties, err := d.List(ownerID, kind)
	if err != nil {
		return core.Party{}, false, err
	}
	name = strings.TrimSpace(name)
	for _, p := range parties {
		if p.Name == name {
			return p, true, nil
		}
	}
	return core.Party{}, false, nil
}

// Add appends a party and persists immediately. A party whose trimmed name
// already exists (case-sensitive exact match) yields ErrDuplicateParty and
// leaves the directory unchanged; callers typically ignore that error.
func (d *Directory) Add(ownerID string, kind core.Kind, p core.Party) error {
	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return err
	}

	k := key(ownerID, kind)
	parties, err := d.store.Load(k)
	if err != nil {
		return fmt.Errorf("load party directory: %w", err)
	}
	for _, existing := range parties {
		if existing.Name == p.Name {
			return core.ErrDuplicateParty
		}
	}

	parties = append(parties, p)
	if err := d.store.Save(k, parties); err != nil {
		return fmt.Errorf("save party directory: %w", err)
	}
	return nil
}

// Remove deletes by exact name match and persists the updated list. Removing
// a name that is not present is a no-op. Records that captured the party's
// details at save time are unaffected.
func (d *Directory) Remove(ownerID string, kind core.Kind, name string) error {
	k := key(ownerID, kind)
	parties, err := d.store.Load(k)
	if err != nil {
		return fmt.Errorf("load party directory: %w", err)
	}

	name = strings.TrimSpace(name)
	out := parties[:0]
	for _, p := range parties {
		if p.Name != name {
			out = append(out, p)
		}
	}
	if len(out) == len(parties) {
		return nil
	}

	if err := d.store.Save(k, out); err != nil {
		return fmt.Errorf("save party directory: %w", err)
	}
	return nil
}

// EnsureSeed populates an empty directory with defaults for a fresh owner.
// A directory that already has entries is left alone.
func (d *Directory) EnsureSeed(ownerID string, kind core.Kind, seed []core.Party) error {
	parties, err := d.List(ownerID, kind)
	if err != nil {
		return err
	}
	if len(parties) > 0 {
		return nil
	}
	for _, p := range seed {
		if err := d.Add(ownerID, kind, p); err != nil && err != core.ErrDuplicateParty {
			return err
		}
	}
	return nil
}
