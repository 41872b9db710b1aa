// Package catalog holds the shop's purchasable items. Items come from a YAML
// file or, when none is configured, from the built-in list.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/heartmarshall/hideout-backend/internal/domain"
)

const reloadDebounce = 200 * time.Millisecond

type fileItem struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Kind  string `yaml:"kind"`
	Price int    `yaml:"price"`
	Icon  string `yaml:"icon"`
}

type file struct {
	Items []fileItem `yaml:"items"`
}

var builtin = []domain.ShopItem{
	{ID: "bg_forest", Name: "숲속 아지트", Kind: domain.ItemKindBackground, Price: 100, Icon: "🌲"},
	{ID: "bg_ocean", Name: "바닷가 아지트", Kind: domain.ItemKindBackground, Price: 150, Icon: "🌊"},
	{ID: "bg_library", Name: "도서관 아지트", Kind: domain.ItemKindBackground, Price: 200, Icon: "📚"},
	{ID: "bg_space", Name: "우주 아지트", Kind: domain.ItemKindBackground, Price: 300, Icon: "🚀"},
	{ID: "bg_castle", Name: "용의 성", Kind: domain.ItemKindBackground, Price: 500, Icon: "🏰"},
}

// Catalog is safe for concurrent use.
type Catalog struct {
	path string
	log  *slog.Logger

	mu    sync.RWMutex
	items []domain.ShopItem
	byID  map[string]domain.ShopItem
}

// New loads the catalog from path. An empty path selects the built-in items.
func New(path string, logger *slog.Logger) (*Catalog, error) {
	c := &Catalog{path: path, log: logger.With("service", "catalog")}

	if path == "" {
		c.set(slices.Clone(builtin))
		return c, nil
	}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Parse decodes and validates a YAML catalog document.
func Parse(data []byte) ([]domain.ShopItem, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	var errs []domain.FieldError
	seen := make(map[string]bool, len(f.Items))
	items := make([]domain.ShopItem, 0, len(f.Items))

	for i, it := range f.Items {
		field := fmt.Sprintf("items[%d]", i)
		kind := domain.ItemKind(it.Kind)
		if kind == "" {
			kind = domain.ItemKindBackground
		}

		switch {
		case it.ID == "":
			errs = append(errs, domain.FieldError{Field: field + ".id", Message: "required"})
		case seen[it.ID]:
			errs = append(errs, domain.FieldError{Field: field + ".id", Message: "duplicate " + it.ID})
		}
		if it.Price <= 0 {
			errs = append(errs, domain.FieldError{Field: field + ".price", Message: "must be positive"})
		}
		if !kind.IsValid() {
			errs = append(errs, domain.FieldError{Field: field + ".kind", Message: "unknown kind " + it.Kind})
		}
		seen[it.ID] = true

		name := it.Name
		if name == "" {
			name = it.ID
		}
		items = append(items, domain.ShopItem{ID: it.ID, Name: name, Kind: kind, Price: it.Price, Icon: it.Icon})
	}

	if len(errs) > 0 {
		return nil, domain.NewValidationErrors(errs)
	}
	return items, nil
}

// Items returns all items in catalog order.
func (c *Catalog) Items() []domain.ShopItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.items)
}

// Item looks up one item by id.
func (c *Catalog) Item(id string) (domain.ShopItem, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	it, ok := c.byID[id]
	if !ok {
		return domain.ShopItem{}, fmt.Errorf("shop item %s: %w", id, domain.ErrNotFound)
	}
	return it, nil
}

// Reload re-reads the catalog file. On error the previous items stay active.
func (c *Catalog) Reload() error {
	if c.path == "" {
		return nil
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("read catalog %s: %w", c.path, err)
	}
	items, err := Parse(data)
	if err != nil {
		return fmt.Errorf("catalog %s: %w", c.path, err)
	}

	c.set(items)
	c.log.Info("catalog loaded", slog.String("path", c.path), slog.Int("items", len(items)))
	return nil
}

func (c *Catalog) set(items []domain.ShopItem) {
	byID := make(map[string]domain.ShopItem, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}

	c.mu.Lock()
	c.items = items
	c.byID = byID
	c.mu.Unlock()
}

// Watch reloads the catalog whenever its file changes, until ctx ends.
// Editors often replace files instead of writing them, so the parent
// directory is watched and events are filtered by name.
func (c *Catalog) Watch(ctx context.Context) error {
	if c.path == "" {
		<-ctx.Done()
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("catalog watcher: %w", err)
	}
	defer w.Close()

	target := filepath.Clean(c.path)
	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			debounce = time.After(reloadDebounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			c.log.Warn("catalog watcher error", slog.String("error", err.Error()))

		case <-debounce:
			debounce = nil
			if err := c.Reload(); err != nil {
				if errors.Is(err, os.ErrNotExist) {
					continue
				}
				c.log.Error("catalog reload failed, keeping previous items", slog.String("error", err.Error()))
			}
		}
	}
}
