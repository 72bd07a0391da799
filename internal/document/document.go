// Package document parses regulatory XML into an element tree and exposes the
// accessors traversal needs: structural type, identifier, division children,
// heading text and paragraph text.
//
// Only element and character data tokens are kept. Comments, processing
// instructions and directives are dropped at parse time.
package document

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/net/html/charset"
)

// Element name prefixes of the regulatory vocabulary.
const (
	divisionPrefix = "DIV"
	headingPrefix  = "HEAD"
	paragraphName  = "P"
)

// Attribute names carried by division elements.
const (
	AttrType       = "TYPE"
	AttrIdentifier = "N"
	AttrNode       = "NODE"
)

// Node is one element of a parsed document.
type Node struct {
	Name  string
	Attrs map[string]string

	// parts interleaves character data and child elements in document order.
	parts    []part
	children []*Node
}

type part struct {
	text  string
	child *Node
}

// ParseError reports a document that could not be parsed into a single tree.
type ParseError struct {
	Offset int64
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed document at offset %d: %v", e.Offset, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

var (
	errNoRoot        = errors.New("document has no root element")
	errMultipleRoots = errors.New("document has more than one root element")
)

// Parse reads a complete XML document and returns its root element.
func Parse(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)
	dec.Entity = xml.HTMLEntity
	dec.CharsetReader = charset.NewReaderLabel

	var root *Node
	var open []*Node
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ParseError{Offset: dec.InputOffset(), Err: err}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Name: t.Name.Local, Attrs: make(map[string]string, len(t.Attr))}
			for _, a := range t.Attr {
				n.Attrs[a.Name.Local] = a.Value
			}
			if len(open) == 0 {
				if root != nil {
					return nil, &ParseError{Offset: dec.InputOffset(), Err: errMultipleRoots}
				}
				root = n
			} else {
				parent := open[len(open)-1]
				parent.parts = append(parent.parts, part{child: n})
				parent.children = append(parent.children, n)
			}
			open = append(open, n)
		case xml.EndElement:
			open = open[:len(open)-1]
		case xml.CharData:
			if len(open) > 0 {
				cur := open[len(open)-1]
				cur.parts = append(cur.parts, part{text: string(t)})
			}
		}
	}

	if root == nil {
		return nil, &ParseError{Offset: dec.InputOffset(), Err: errNoRoot}
	}
	return root, nil
}

// ParseString parses a document held in memory.
func ParseString(s string) (*Node, error) {
	return Parse(strings.NewReader(s))
}

// ParseFile parses the document stored at path.
func ParseFile(path string) (*Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer f.Close()
	return Parse(f)
}
