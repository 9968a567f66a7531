package truth

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"zoi/sentinel/pkg/compliance"
)

//go:embed authority.yaml
var defaultTableYAML []byte

// MinMatchLength is the shortest normalized name allowed to match by
// containment.
const MinMatchLength = 4

// Entry is one banned substance with its canonical regulatory data.
type Entry struct {
	Substance  string   `yaml:"substance"`
	Aliases    []string `yaml:"aliases,omitempty"`
	Limit      string   `yaml:"limit"`
	Regulation string   `yaml:"regulation"`
	Note       string   `yaml:"note"`
}

type tableFile struct {
	Version    string  `yaml:"version"`
	Substances []Entry `yaml:"substances"`
}

type indexed struct {
	key   string
	entry *Entry
}

// Table is an immutable authority table.
type Table struct {
	version string
	source  string
	entries []Entry
	keys    []indexed
}

// TableError reports an authority table that could not be loaded.
type TableError struct {
	Source string
	Cause  error
}

func (e *TableError) Error() string {
	return fmt.Sprintf("authority table %s: %v", e.Source, e.Cause)
}

func (e *TableError) Unwrap() error {
	return e.Cause
}

// ParseTable decodes a YAML authority table. source names it in errors.
func ParseTable(data []byte, source string) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, &TableError{Source: source, Cause: err}
	}
	if len(f.Substances) == 0 {
		return nil, &TableError{Source: source, Cause: errors.New("no substances")}
	}

	t := &Table{version: f.Version, source: source, entries: f.Substances}
	seen := make(map[string]string)
	for i := range t.entries {
		e := &t.entries[i]
		e.Substance = strings.TrimSpace(e.Substance)
		if e.Substance == "" {
			return nil, &TableError{Source: source, Cause: fmt.Errorf("substance %d has no name", i)}
		}
		for _, name := range append([]string{e.Substance}, e.Aliases...) {
			key := compliance.CompactKey(name)
			if len(key) < MinMatchLength {
				return nil, &TableError{Source: source, Cause: fmt.Errorf("name %q shorter than %d characters", name, MinMatchLength)}
			}
			if owner, dup := seen[key]; dup && owner != e.Substance {
				return nil, &TableError{Source: source, Cause: fmt.Errorf("name %q listed for %s and %s", name, owner, e.Substance)}
			}
			seen[key] = e.Substance
			t.keys = append(t.keys, indexed{key: key, entry: e})
		}
	}
	return t, nil
}

// LoadTable reads a YAML authority table from path.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &TableError{Source: path, Cause: err}
	}
	return ParseTable(data, path)
}

// DefaultTable returns the embedded authority table.
func DefaultTable() *Table {
	t, err := ParseTable(defaultTableYAML, "embedded")
	if err != nil {
		panic(err)
	}
	return t
}

// Version returns the table's declared version.
func (t *Table) Version() string { return t.version }

// Source returns where the table was loaded from.
func (t *Table) Source() string { return t.source }

// Len returns the number of substances.
func (t *Table) Len() int { return len(t.entries) }

// Entries returns a copy of the table's entries.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Match finds the entry for a substance name. Names match when either
// normalized form contains the other and the shorter one has at least
// MinMatchLength characters; an exact match wins, otherwise the longest
// matching authority name.
func (t *Table) Match(name string) (Entry, bool) {
	key := compliance.CompactKey(name)
	if len(key) < MinMatchLength {
		return Entry{}, false
	}

	var best *indexed
	for i := range t.keys {
		k := &t.keys[i]
		if k.key == key {
			return *k.entry, true
		}
		if !strings.Contains(key, k.key) && !strings.Contains(k.key, key) {
			continue
		}
		if best == nil || len(k.key) > len(best.key) {
			best = k
		}
	}
	if best == nil {
		return Entry{}, false
	}
	return *best.entry, true
}
