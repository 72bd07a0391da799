package cfr

// HierarchyContext is the chain of ancestor identifiers and labels in effect
// for a node during traversal.
//
// The zero value is an empty context. HierarchyContext is a value type: the
// arrays are copied on assignment, so With never affects the receiver or any
// other copy. Traversal relies on this to hand each pending branch its own
// snapshot.
type HierarchyContext struct {
	ids      [NumLevels]string
	labels   [NumLevels]string
	hasID    [NumLevels]bool
	hasLabel [NumLevels]bool
}

// With returns a copy of c with the identifier for level set to id.
// When hasLabel is false the label already in effect at that level is kept.
func (c HierarchyContext) With(level Level, id, label string, hasLabel bool) HierarchyContext {
	if !level.Valid() {
		return c
	}
	c.ids[level] = id
	c.hasID[level] = true
	if hasLabel {
		c.labels[level] = label
		c.hasLabel[level] = true
	}
	return c
}

// ID returns the structural identifier at level.
func (c HierarchyContext) ID(level Level) (string, bool) {
	if !level.Valid() || !c.hasID[level] {
		return "", false
	}
	return c.ids[level], true
}

// Label returns the display label at level.
func (c HierarchyContext) Label(level Level) (string, bool) {
	if !level.Valid() || !c.hasLabel[level] {
		return "", false
	}
	return c.labels[level], true
}

// IDOrEmpty returns the identifier at level or "".
func (c HierarchyContext) IDOrEmpty(level Level) string {
	id, _ := c.ID(level)
	return id
}

// LabelPtr returns the label at level, or nil when no label is in effect.
func (c HierarchyContext) LabelPtr(level Level) *string {
	label, ok := c.Label(level)
	if !ok {
		return nil
	}
	return &label
}

// Has reports whether an identifier is set at level.
func (c HierarchyContext) Has(level Level) bool {
	return level.Valid() && c.hasID[level]
}

// IDs returns the identifiers present, keyed by level name.
func (c HierarchyContext) IDs() map[string]string {
	out := make(map[string]string, NumLevels)
	for _, l := range Levels() {
		if c.hasID[l] {
			out[l.String()] = c.ids[l]
		}
	}
	return out
}

// Labels returns, for every level with an identifier, its label or nil.
func (c HierarchyContext) Labels() map[string]*string {
	out := make(map[string]*string, NumLevels)
	for _, l := range Levels() {
		if c.hasID[l] {
			out[l.String()] = c.LabelPtr(l)
		}
	}
	return out
}
