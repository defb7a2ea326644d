package symbol

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// Cache — биекция между символами и их текстовыми именами.
// Загружается один раз при старте и далее только читается, поэтому
// не требует синхронизации. Поиск в обе стороны за O(1).
type Cache struct {
	byID   map[Symbol]string
	byName map[string]Symbol
}

// NewCache builds a cache from name→symbol entries.
// Conflicting duplicates are rejected: the cache must stay a bijection.
func NewCache(entries map[string]int64) (*Cache, error) {
	c := &Cache{
		byID:   make(map[Symbol]string, len(entries)),
		byName: make(map[string]Symbol, len(entries)),
	}
	for name, id := range entries {
		sym := Symbol(id)
		if prev, ok := c.byID[sym]; ok && prev != name {
			return nil, fmt.Errorf("symbol %s maps to both %q and %q", sym.HexString(), prev, name)
		}
		c.byID[sym] = name
		c.byName[name] = sym
	}
	return c, nil
}

// LoadFile reads a JSON object of name→symbol pairs from path.
// A missing file yields an empty cache: unknown symbols still render as hex tokens.
func LoadFile(path string) (*Cache, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("symbol cache file not found, starting empty", "path", path)
			return NewCache(nil)
		}
		return nil, fmt.Errorf("reading symbol cache %s: %w", path, err)
	}

	var entries map[string]int64
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing symbol cache %s: %w", path, err)
	}

	c, err := NewCache(entries)
	if err != nil {
		return nil, err
	}
	slog.Info("symbol cache loaded", "path", path, "count", c.Count())
	return c, nil
}

// Name returns the textual name of a symbol, if known.
func (c *Cache) Name(s Symbol) (string, bool) {
	name, ok := c.byID[s]
	return name, ok
}

// Lookup returns the symbol registered for a name, if known.
func (c *Cache) Lookup(name string) (Symbol, bool) {
	s, ok := c.byName[name]
	return s, ok
}

// Token returns the name of a symbol, falling back to its hex form.
func (c *Cache) Token(s Symbol) string {
	if name, ok := c.byID[s]; ok {
		return name
	}
	return s.HexString()
}

// Resolve converts a name to its symbol, hashing when the cache has no entry.
func (c *Cache) Resolve(name string) Symbol {
	if s, ok := c.byName[name]; ok {
		return s
	}
	return HashString(name)
}

// Count returns the number of known entries.
func (c *Cache) Count() int {
	return len(c.byID)
}
