// Package catalog is a thin multi-table registry: it opens and tracks
// several record.Table values under one configured directory. It is not
// part of the spec's core (the record manager operates on one table at a
// time); it exists because a usable demo needs somewhere to keep more than
// one open table, the way the teacher's db.DBManager did for its relations.
package catalog

import (
	"path/filepath"
	"sort"

	"github.com/ferrolabs/ferrodb/errs"
	"github.com/ferrolabs/ferrodb/record"
	"golang.org/x/exp/maps"
)

// Catalog tracks the tables opened under one directory.
type Catalog struct {
	dir    string
	tables map[string]*record.Table
}

// New returns an empty catalog rooted at dir.
func New(dir string) *Catalog {
	return &Catalog{dir: dir, tables: make(map[string]*record.Table)}
}

func (c *Catalog) path(name string) string {
	return filepath.Join(c.dir, name+".tbl")
}

// CreateTable creates and opens a new table named name with the given
// schema.
func (c *Catalog) CreateTable(name string, schema *record.Schema) error {
	if _, exists := c.tables[name]; exists {
		return errs.Newf(errs.InvalidArg, "table %q already exists", name)
	}
	path := c.path(name)
	if err := record.CreateTable(path, schema); err != nil {
		return err
	}
	t, err := record.OpenTable(path)
	if err != nil {
		return err
	}
	c.tables[name] = t
	return nil
}

// Open opens an existing table file into the catalog under name.
func (c *Catalog) Open(name string) (*record.Table, error) {
	if t, ok := c.tables[name]; ok {
		return t, nil
	}
	t, err := record.OpenTable(c.path(name))
	if err != nil {
		return nil, err
	}
	c.tables[name] = t
	return t, nil
}

// Table returns the named table, already open.
func (c *Catalog) Table(name string) (*record.Table, error) {
	t, ok := c.tables[name]
	if !ok {
		return nil, errs.Newf(errs.InvalidArg, "table %q not open", name)
	}
	return t, nil
}

// CloseTable flushes and closes one table, removing it from the catalog.
func (c *Catalog) CloseTable(name string) error {
	t, ok := c.tables[name]
	if !ok {
		return errs.Newf(errs.InvalidArg, "table %q not open", name)
	}
	if err := record.CloseTable(t); err != nil {
		return err
	}
	delete(c.tables, name)
	return nil
}

// DropTable closes (if open) and destroys the table's backing file.
func (c *Catalog) DropTable(name string) error {
	if _, ok := c.tables[name]; ok {
		if err := c.CloseTable(name); err != nil {
			return err
		}
	}
	return record.DeleteTable(c.path(name))
}

// TableNames returns every open table's name, sorted.
func (c *Catalog) TableNames() []string {
	names := maps.Keys(c.tables)
	sort.Strings(names)
	return names
}

// CloseAll closes every open table; it returns the first error
// encountered but still attempts to close the rest.
func (c *Catalog) CloseAll() error {
	var firstErr error
	for _, name := range c.TableNames() {
		if err := c.CloseTable(name); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
