// Package icons resolves aircraft identifiers to display icon references.
//
// The table is a flat key-value document mapping callsigns, type designators
// or tail numbers to icon paths. It is built once at startup and never
// mutated afterwards, so it is safe for concurrent readers without locking.
package icons

import (
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"
)

// DefaultIcon is returned when no table entry matches.
const DefaultIcon = "assets/icons/circle.svg"

// Table is an immutable identifier-to-icon mapping. The zero value (and a
// nil *Table) behaves as an empty table: every lookup falls through to the
// default icon.
type Table struct {
	byKey       map[string]string
	defaultIcon string
}

// New builds a table from the given mapping. Keys are uppercased so lookups
// are case-insensitive. defaultIcon may be empty to use DefaultIcon.
func New(mapping map[string]string, defaultIcon string) *Table {
	byKey := make(map[string]string, len(mapping))
	for key, icon := range mapping {
		byKey[strings.ToUpper(strings.TrimSpace(key))] = icon
	}
	if defaultIcon == "" {
		defaultIcon = DefaultIcon
	}
	return &Table{byKey: byKey, defaultIcon: defaultIcon}
}

// Load reads a YAML icon document from path. A missing file is not an error:
// the gateway must still start without one, so Load returns an empty table
// and the caller just sees every lookup resolve to the default icon.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(nil, ""), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read icon table: %w", err)
	}
	return Parse(data)
}

// Parse builds a table from a YAML document of the form:
//
//	UAL123: icons/ual.svg
//	B738: icons/b738.svg
func Parse(data []byte) (*Table, error) {
	var mapping map[string]string
	if err := yaml.Unmarshal(data, &mapping); err != nil {
		return nil, fmt.Errorf("parse icon table: %w", err)
	}
	return New(mapping, ""), nil
}

// Lookup returns the icon mapped to key (case-insensitive) and whether a
// mapping exists.
func (t *Table) Lookup(key string) (string, bool) {
	if t == nil {
		return "", false
	}
	icon, ok := t.byKey[strings.ToUpper(strings.TrimSpace(key))]
	return icon, ok
}

// Default returns the fall-through icon reference.
func (t *Table) Default() string {
	if t == nil || t.defaultIcon == "" {
		return DefaultIcon
	}
	return t.defaultIcon
}

// Len returns the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.byKey)
}
