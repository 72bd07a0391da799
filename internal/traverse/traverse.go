// Package traverse walks a parsed regulatory document and yields one
// (HierarchyContext, text) pair per leaf section, in document order.
//
// Traversal uses an explicit work stack. Each stack entry carries the context
// captured when it was pushed, so updates made while descending one branch
// are invisible to its siblings. Children are pushed in reverse so the LIFO
// stack pops them in document order.
//
// A Traverser is single-use: once Next reports false it stays exhausted.
// Construct a new one to walk the same document again.
package traverse

import (
	"fmt"

	"github.com/roach88/cfrstat/internal/cfr"
	"github.com/roach88/cfrstat/internal/document"
)

// Section is one emitted leaf: its hierarchy context and concatenated
// paragraph text.
type Section struct {
	Context cfr.HierarchyContext
	Text    string
}

// ID returns the section identifier.
func (s Section) ID() string {
	return s.Context.IDOrEmpty(cfr.LevelSection)
}

// StructureError reports a hierarchy node that cannot be placed in the
// hierarchy, such as a division without an identifier.
type StructureError struct {
	DivType string
	Element string
	Reason  string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("invalid %s element <%s>: %s", e.DivType, e.Element, e.Reason)
}

type frame struct {
	node *document.Node
	ctx  cfr.HierarchyContext
}

// Traverser produces sections lazily, in the style of bufio.Scanner:
//
//	t := traverse.New(root)
//	for t.Next() {
//	    s := t.Section()
//	}
//	if err := t.Err(); err != nil { ... }
type Traverser struct {
	stack   []frame
	current Section
	err     error
	visited int
}

// New returns a Traverser positioned before the first section of root.
func New(root *document.Node) *Traverser {
	t := &Traverser{}
	if root != nil {
		t.stack = append(t.stack, frame{node: root})
	}
	return t
}

// Next advances to the next section. It returns false when the document is
// exhausted or an error occurred.
func (t *Traverser) Next() bool {
	if t.err != nil {
		return false
	}
	for len(t.stack) > 0 {
		f := t.stack[len(t.stack)-1]
		t.stack[len(t.stack)-1] = frame{}
		t.stack = t.stack[:len(t.stack)-1]
		t.visited++

		ctx := f.ctx
		level, isLevel := cfr.LevelForDivType(f.node.Type())
		if isLevel {
			id, ok := f.node.Identifier()
			if !ok || cfr.Normalize(id) == "" {
				t.err = &StructureError{DivType: f.node.Type(), Element: f.node.Name, Reason: "missing N identifier"}
				t.stack = nil
				return false
			}
			label, hasLabel := f.node.Heading()
			ctx = ctx.With(level, cfr.Normalize(id), cfr.Normalize(label), hasLabel)
		}

		if isLevel && level == cfr.LevelSection {
			t.current = Section{Context: ctx, Text: f.node.ParagraphText()}
			return true
		}

		divs := f.node.Divisions()
		for i := len(divs) - 1; i >= 0; i-- {
			t.stack = append(t.stack, frame{node: divs[i], ctx: ctx})
		}
	}
	return false
}

// Section returns the section produced by the last successful Next.
func (t *Traverser) Section() Section {
	return t.current
}

// Err returns the first error encountered.
func (t *Traverser) Err() error {
	return t.err
}

// Pending returns the number of nodes still queued.
func (t *Traverser) Pending() int {
	return len(t.stack)
}

// Visited returns the number of nodes popped so far.
func (t *Traverser) Visited() int {
	return t.visited
}

// Collect walks root to completion and returns every section.
func Collect(root *document.Node) ([]Section, error) {
	t := New(root)
	var out []Section
	for t.Next() {
		out = append(out, t.Section())
	}
	return out, t.Err()
}
