package variant

// ShrinkConfiguration is the mutable state of one shrink invocation:
// an ordered rule set, an input archive/directory set, a library set used
// for resolution only, and a single output archive.
//
// Invariants maintained by the mutators:
//   - inputs and libraries are each free of canonical-path duplicates
//   - the library set never contains an entry already present in the input
//     set; adding an input evicts any matching library entry
//
// Insertion order is preserved for both sets so that rendered shrinker
// invocations are deterministic.
type ShrinkConfiguration struct {
	rules []string

	inputs     []string
	inputSet   map[string]struct{}
	libraries  []string
	librarySet map[string]struct{}

	outputArchive string
}

// NewShrinkConfiguration creates an empty configuration producing the given
// output archive.
func NewShrinkConfiguration(outputArchive string) *ShrinkConfiguration {
	return &ShrinkConfiguration{
		inputSet:      make(map[string]struct{}),
		librarySet:    make(map[string]struct{}),
		outputArchive: outputArchive,
	}
}

// AddInput adds an archive or directory to the input set. Re-adding an
// already-present path is a no-op. If the path is currently a library entry
// it is promoted: removed from the library set and appended to the inputs.
func (c *ShrinkConfiguration) AddInput(path string) {
	key := CanonicalPath(path)
	if _, dup := c.inputSet[key]; dup {
		return
	}
	if _, wasLib := c.librarySet[key]; wasLib {
		delete(c.librarySet, key)
		c.libraries = removeCanonical(c.libraries, key)
	}
	c.inputSet[key] = struct{}{}
	c.inputs = append(c.inputs, path)
}

// AddLibrary adds a resolution-only entry. Paths already present in either
// set are skipped, so libraries never duplicate inputs.
func (c *ShrinkConfiguration) AddLibrary(path string) {
	key := CanonicalPath(path)
	if _, isInput := c.inputSet[key]; isInput {
		return
	}
	if _, dup := c.librarySet[key]; dup {
		return
	}
	c.librarySet[key] = struct{}{}
	c.libraries = append(c.libraries, path)
}

// SetRules replaces the entire rule set. An override never merges with what
// was there before.
func (c *ShrinkConfiguration) SetRules(rules []string) {
	c.rules = append([]string(nil), rules...)
}

// AppendRules appends rules after whatever the current set is.
func (c *ShrinkConfiguration) AppendRules(rules ...string) {
	c.rules = append(c.rules, rules...)
}

// Inputs returns the input set in insertion order.
func (c *ShrinkConfiguration) Inputs() []string {
	return append([]string(nil), c.inputs...)
}

// Libraries returns the library set in insertion order.
func (c *ShrinkConfiguration) Libraries() []string {
	return append([]string(nil), c.libraries...)
}

// Rules returns the ordered rule set.
func (c *ShrinkConfiguration) Rules() []string {
	return append([]string(nil), c.rules...)
}

// OutputArchive returns the single output archive path.
func (c *ShrinkConfiguration) OutputArchive() string { return c.outputArchive }

// HasInput reports whether the canonical form of path is in the input set.
func (c *ShrinkConfiguration) HasInput(path string) bool {
	_, ok := c.inputSet[CanonicalPath(path)]
	return ok
}

// HasLibrary reports whether the canonical form of path is in the library set.
func (c *ShrinkConfiguration) HasLibrary(path string) bool {
	_, ok := c.librarySet[CanonicalPath(path)]
	return ok
}

func removeCanonical(paths []string, key string) []string {
	out := paths[:0]
	for _, p := range paths {
		if CanonicalPath(p) == key {
			continue
		}
		out = append(out, p)
	}
	return out
}
