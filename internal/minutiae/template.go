package minutiae

import (
	"sync"

	"github.com/ridgeline-data/match.report/internal/bozorth3"
)

// Template is a prepared match input: the pruned minutia sequence plus
// its truncated edge table. Once built, a template is immutable and may
// be shared by any number of concurrent matches.
type Template struct {
	Minutiae []bozorth3.Minutia
	Edges    []bozorth3.Edge
}

// Prepare loads one template file and builds its edge table.
func Prepare(path string, maxMinutiae int, format bozorth3.Format) (*Template, error) {
	minutiae, err := LoadFile(path, "", maxMinutiae)
	if err != nil {
		return nil, err
	}

	edges := bozorth3.LimitEdges(bozorth3.FindEdges(minutiae, format))
	return &Template{Minutiae: minutiae, Edges: edges}, nil
}

// Cache maps file paths to prepared templates. Lookups and insertions are
// serialized; the templates themselves are immutable. Failed loads are
// not cached, so every lookup of a bad path retries and reports the
// error again.
type Cache struct {
	mu          sync.Mutex
	maxMinutiae int
	format      bozorth3.Format
	items       map[string]*Template
}

// NewCache creates an empty template cache with fixed preparation
// parameters.
func NewCache(maxMinutiae int, format bozorth3.Format) *Cache {
	return &Cache{
		maxMinutiae: maxMinutiae,
		format:      format,
		items:       make(map[string]*Template),
	}
}

// Get returns the prepared template for path, loading it on first use.
func (c *Cache) Get(path string) (*Template, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if template, ok := c.items[path]; ok {
		return template, nil
	}

	template, err := Prepare(path, c.maxMinutiae, c.format)
	if err != nil {
		return nil, err
	}
	c.items[path] = template
	return template, nil
}

// Len reports how many templates are cached.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
