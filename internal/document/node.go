package document

import "strings"

// Attr returns the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	v, ok := n.Attrs[name]
	return v, ok
}

// Type returns the TYPE attribute, or "" for elements without one.
func (n *Node) Type() string {
	return n.Attrs[AttrType]
}

// Identifier returns the N attribute.
func (n *Node) Identifier() (string, bool) {
	return n.Attr(AttrIdentifier)
}

// Children returns the direct element children in document order.
func (n *Node) Children() []*Node {
	return n.children
}

// IsDivision reports whether n is a DIV1..DIV9 structural element.
func (n *Node) IsDivision() bool {
	return strings.HasPrefix(n.Name, divisionPrefix)
}

// Divisions returns the direct structural children in document order.
func (n *Node) Divisions() []*Node {
	var divs []*Node
	for _, c := range n.children {
		if c.IsDivision() {
			divs = append(divs, c)
		}
	}
	return divs
}

// Heading returns the trimmed text of the first heading-bearing child.
// It reports false when n has no heading child.
func (n *Node) Heading() (string, bool) {
	for _, c := range n.children {
		if strings.HasPrefix(c.Name, headingPrefix) {
			return strings.TrimSpace(c.Text()), true
		}
	}
	return "", false
}

// Text returns all character data in n's subtree, in document order, without
// separators.
func (n *Node) Text() string {
	var b strings.Builder
	n.writeText(&b)
	return b.String()
}

func (n *Node) writeText(b *strings.Builder) {
	for _, p := range n.parts {
		if p.child != nil {
			p.child.writeText(b)
			continue
		}
		b.WriteString(p.text)
	}
}

// Paragraphs returns every P element in n's subtree in document order,
// including P elements nested inside other P elements.
func (n *Node) Paragraphs() []*Node {
	var out []*Node
	stack := []*Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur != n && cur.Name == paragraphName {
			out = append(out, cur)
		}
		for i := len(cur.children) - 1; i >= 0; i-- {
			stack = append(stack, cur.children[i])
		}
	}
	return out
}

// ParagraphText joins the text of every paragraph in n's subtree with single
// spaces. A subtree without paragraphs yields "".
func (n *Node) ParagraphText() string {
	paras := n.Paragraphs()
	texts := make([]string, len(paras))
	for i, p := range paras {
		texts[i] = p.Text()
	}
	return strings.Join(texts, " ")
}
