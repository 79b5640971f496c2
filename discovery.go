package servreg

// Catalog is an ordered set of candidate component definitions. It takes the
// place of scanning packages: the host application lists its components once,
// and discovery filters the list per role.
//
// Catalog is NOT thread-safe. Fill it in one goroutine before registration.
type Catalog struct {
	definitions []*Definition
}

// NewCatalog returns a catalog holding defs in order.
func NewCatalog(defs ...*Definition) *Catalog {
	c := &Catalog{}
	c.Add(defs...)
	return c
}

// Add appends definitions. Nil entries are ignored.
func (c *Catalog) Add(defs ...*Definition) {
	for _, d := range defs {
		if d != nil {
			c.definitions = append(c.definitions, d)
		}
	}
}

// Len returns the number of definitions.
func (c *Catalog) Len() int {
	return len(c.definitions)
}

// Definitions returns a copy of the definitions in insertion order.
func (c *Catalog) Definitions() []*Definition {
	out := make([]*Definition, len(c.definitions))
	copy(out, c.definitions)
	return out
}

// Discover returns the definitions declaring role, in catalog order.
func (c *Catalog) Discover(role Role) []*Definition {
	return Discover(c.definitions, role)
}

// Discover returns the subset of defs declaring role, preserving order.
// Abstract definitions are excluded.
func Discover(defs []*Definition, role Role) []*Definition {
	var out []*Definition
	for _, d := range defs {
		if d.Abstract() || !d.Roles.Has(role) {
			continue
		}
		out = append(out, d)
	}
	return out
}
