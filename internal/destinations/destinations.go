// Package destinations holds the city name to listings URL lookup table.
package destinations

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"dario.cat/mergo"
	"github.com/antzucaro/matchr"
	"github.com/titanous/json5"
)

// suggestThreshold is the minimum Jaro-Winkler similarity for a suggestion.
const suggestThreshold = 0.85

// Table maps normalized city names to absolute listings URLs. It is read-only
// after construction and safe for concurrent use.
type Table struct {
	urls map[string]string
}

// New builds a table from raw city names; keys are normalized.
func New(urls map[string]string) *Table {
	t := &Table{urls: make(map[string]string, len(urls))}
	for name, url := range urls {
		key := Normalize(name)
		if key == "" || url == "" {
			continue
		}
		t.urls[key] = url
	}
	return t
}

// Normalize lowercases and trims a city name.
func Normalize(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// Load reads the table from path. When a sibling "<name>.local<ext>" file
// exists its entries are merged over the base file. Names are normalized
// before merging, so a local entry overrides the base whatever its case.
// Files are parsed as JSON5, which accepts plain JSON.
func Load(path string) (*Table, error) {
	base, err := readFile(path)
	if err != nil {
		return nil, err
	}

	local, err := readFile(localPath(path))
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if len(local) > 0 {
		if err := mergo.Merge(&base, local, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merge local destinations: %w", err)
		}
	}

	t := New(base)
	if len(t.urls) == 0 {
		return nil, fmt.Errorf("destinations %s: no entries", path)
	}
	return t, nil
}

func readFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, err
	}
	var out map[string]string
	if err := json5.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse destinations %s: %w", path, err)
	}
	return normalizeKeys(out), nil
}

// normalizeKeys rewrites raw city names to lookup keys. Names that collide
// after normalization resolve in sorted order of the raw names, so the last
// one wins.
func normalizeKeys(raw map[string]string) map[string]string {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]string, len(raw))
	for _, name := range names {
		key := Normalize(name)
		if key == "" || raw[name] == "" {
			continue
		}
		out[key] = raw[name]
	}
	return out
}

func localPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".local" + ext
}

// Save writes the table as a JSON object, creating the parent directory.
func Save(path string, t *Table) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create destinations directory: %w", err)
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(t.urls); err != nil {
		return fmt.Errorf("encode destinations: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write destinations: %w", err)
	}
	return nil
}

// Lookup returns the listings URL for a city name in any letter case.
func (t *Table) Lookup(name string) (string, bool) {
	url, ok := t.urls[Normalize(name)]
	return url, ok
}

// Suggest returns the known city most similar to name, if any is close enough.
func (t *Table) Suggest(name string) (string, bool) {
	key := Normalize(name)
	if key == "" {
		return "", false
	}
	best, bestScore := "", 0.0
	for _, candidate := range t.Names() {
		score := matchr.JaroWinkler(key, candidate, false)
		if score > bestScore {
			best, bestScore = candidate, score
		}
	}
	if bestScore < suggestThreshold {
		return "", false
	}
	return best, true
}

// Names returns all city keys in sorted order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.urls))
	for name := range t.urls {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of cities.
func (t *Table) Len() int {
	return len(t.urls)
}
