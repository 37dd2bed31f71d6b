package resources

// Cache holds the output of the last discovery command of a resource. Only
// the most recent command line is retained.
type Cache struct {
	line  string
	value any
	valid bool
}

// Get returns the cached output when line is the last command line stored.
func (c *Cache) Get(line string) (any, bool) {
	if !c.valid || c.line != line {
		return nil, false
	}
	return c.value, true
}

// Put replaces the cached entry.
func (c *Cache) Put(line string, value any) {
	c.line, c.value, c.valid = line, value, true
}
