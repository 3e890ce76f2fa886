// Package packs holds the use-case pack catalog: named bundles of seed
// clarifier hints that bias clarifier generation toward a document type.
// The built-in catalog is static; an optional overlay directory of YAML
// packs can add or replace entries and is hot-reloaded on change.
package packs

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/finprompt/refinery/pkg/models"
)

// Option is one choice in a dropdown/multiselect seed clarifier.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// SeedClarifier is a pack-supplied hint question. Unlike generated
// clarifiers, seeds may carry value/label option pairs and placeholders.
type SeedClarifier struct {
	ID          string               `json:"id" yaml:"id"`
	Label       string               `json:"label" yaml:"label"`
	Type        models.ClarifierType `json:"type" yaml:"type"`
	Options     []Option             `json:"options,omitempty" yaml:"options,omitempty"`
	Required    bool                 `json:"required,omitempty" yaml:"required,omitempty"`
	Placeholder string               `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
}

// Pack is a named bundle of seed clarifiers keyed by a unique string key.
type Pack struct {
	Key            string          `json:"key" yaml:"key"`
	Name           string          `json:"name" yaml:"name"`
	Description    string          `json:"description" yaml:"description"`
	SeedClarifiers []SeedClarifier `json:"seedClarifiers" yaml:"seed_clarifiers"`
}

// Catalog resolves pack keys against the built-in set plus any overlay.
type Catalog struct {
	mu      sync.RWMutex
	overlay map[string]Pack
}

// NewCatalog creates a catalog with only the built-in packs.
func NewCatalog() *Catalog {
	return &Catalog{overlay: make(map[string]Pack)}
}

// Get looks a pack up by key; overlay entries shadow built-ins.
func (c *Catalog) Get(key string) (*Pack, bool) {
	c.mu.RLock()
	if p, ok := c.overlay[key]; ok {
		c.mu.RUnlock()
		return &p, true
	}
	c.mu.RUnlock()

	for i := range builtinPacks {
		if builtinPacks[i].Key == key {
			p := builtinPacks[i]
			return &p, true
		}
	}
	return nil, false
}

// List returns every pack, built-ins in catalog order followed by
// overlay-only packs sorted by key.
func (c *Catalog) List() []Pack {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Pack, 0, len(builtinPacks)+len(c.overlay))
	seen := make(map[string]bool, len(builtinPacks))
	for _, p := range builtinPacks {
		if o, ok := c.overlay[p.Key]; ok {
			out = append(out, o)
		} else {
			out = append(out, p)
		}
		seen[p.Key] = true
	}

	extra := make([]Pack, 0, len(c.overlay))
	for key, p := range c.overlay {
		if !seen[key] {
			extra = append(extra, p)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i].Key < extra[j].Key })
	return append(out, extra...)
}

// LoadOverlay replaces the overlay from a directory of *.yaml pack files.
// A missing directory simply clears the overlay. Individual bad files are
// skipped with a log line so one broken pack cannot take the catalog down.
func (c *Catalog) LoadOverlay(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			c.mu.Lock()
			c.overlay = make(map[string]Pack)
			c.mu.Unlock()
			return nil
		}
		return err
	}

	overlay := make(map[string]Pack)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Skipping unreadable pack file")
			continue
		}

		var p Pack
		if err := yaml.Unmarshal(data, &p); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Skipping malformed pack file")
			continue
		}
		if p.Key == "" {
			log.Warn().Str("path", path).Msg("Skipping pack file without a key")
			continue
		}
		overlay[p.Key] = p
	}

	c.mu.Lock()
	c.overlay = overlay
	c.mu.Unlock()

	log.Info().Int("packs", len(overlay)).Str("dir", dir).Msg("Pack overlay loaded")
	return nil
}
