package reference

import (
	"log/slog"
	"sync/atomic"

	"zoi/sentinel/pkg/compliance"
)

// Catalog serves the active reference base. It is safe for concurrent use.
type Catalog struct {
	base   atomic.Pointer[Base]
	logger *slog.Logger
}

// NewCatalog creates a catalog over b. A nil base uses DefaultBase.
func NewCatalog(b *Base) *Catalog {
	if b == nil {
		b = DefaultBase()
	}
	c := &Catalog{logger: slog.Default().With("component", "reference")}
	c.base.Store(b)
	return c
}

// Base returns the active base.
func (c *Catalog) Base() *Base { return c.base.Load() }

// Swap installs b as the active base.
func (c *Catalog) Swap(b *Base) {
	old := c.base.Swap(b)
	c.logger.Info("reference base replaced",
		"source", b.Source(),
		"version", b.Version(),
		"products", b.Len(),
		"aliases", b.Normalizer().Aliases(),
		"previous_version", old.Version(),
	)
}

// Reload loads path and swaps it in. On error the active base is kept.
func (c *Catalog) Reload(path string) error {
	b, err := LoadBase(path)
	if err != nil {
		c.logger.Error("reference reload failed, keeping active base", "path", path, "error", err)
		return err
	}
	c.Swap(b)
	return nil
}

// Normalize maps a raw product identifier to its cache key.
func (c *Catalog) Normalize(raw string) string {
	return c.Base().Normalizer().Normalize(raw)
}

// Lookup returns a copy of the reference record for key.
func (c *Catalog) Lookup(key string) (*compliance.Record, bool) {
	return c.Base().Lookup(key)
}

// Products lists the active base.
func (c *Catalog) Products() []Summary {
	return c.Base().Products()
}
