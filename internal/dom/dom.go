// Package dom is a small build-and-append layer over golang.org/x/net/html.
//
// Every piece of member-supplied text enters the tree as a text node or an
// attribute value, so escaping happens once, at Render.
package dom

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Attr is a shorthand for building attribute lists.
func Attr(key, val string) html.Attribute {
	return html.Attribute{Key: key, Val: val}
}

var safeSchemes = map[string]bool{"http": true, "https": true, "mailto": true, "tel": true}

// SafeURL returns raw when it is relative or uses http, https, mailto or tel,
// and "#" otherwise. Data-sourced href and src values go through it.
func SafeURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	u, err := url.Parse(trimmed)
	if err != nil {
		return "#"
	}
	if u.Scheme == "" {
		return trimmed
	}
	if !safeSchemes[strings.ToLower(u.Scheme)] {
		return "#"
	}
	return trimmed
}

// El creates an element node with the given attributes and children.
func El(tag string, attrs []html.Attribute, children ...*html.Node) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
		Attr:     attrs,
	}
	for _, c := range children {
		if c != nil {
			n.AppendChild(c)
		}
	}
	return n
}

// Text creates a text node.
func Text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// Append adds children to parent, skipping nils.
func Append(parent *html.Node, children ...*html.Node) {
	for _, c := range children {
		if c != nil {
			parent.AppendChild(c)
		}
	}
}

// Clear removes every child of n.
func Clear(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
}

// ReplaceChildren clears n and appends children.
func ReplaceChildren(n *html.Node, children ...*html.Node) {
	Clear(n)
	Append(n, children...)
}

// Children returns the element children of n.
func Children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// GetAttr returns the value of key on n.
func GetAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets or replaces key on n.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr drops key from n.
func RemoveAttr(n *html.Node, key string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace != "" || a.Key != key {
			kept = append(kept, a)
		}
	}
	n.Attr = kept
}

// TextContent concatenates all text below n.
func TextContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// SetText replaces the content of n with a single text node.
func SetText(n *html.Node, s string) {
	ReplaceChildren(n, Text(s))
}

func classes(n *html.Node) []string {
	v, _ := GetAttr(n, "class")
	return strings.Fields(v)
}

// HasClass reports whether n carries class c.
func HasClass(n *html.Node, c string) bool {
	for _, have := range classes(n) {
		if have == c {
			return true
		}
	}
	return false
}

// AddClass adds c to n's class list once.
func AddClass(n *html.Node, c string) {
	if HasClass(n, c) {
		return
	}
	SetAttr(n, "class", strings.TrimSpace(strings.Join(append(classes(n), c), " ")))
}

// RemoveClass drops every occurrence of c from n's class list.
func RemoveClass(n *html.Node, c string) {
	var keep []string
	for _, have := range classes(n) {
		if have != c {
			keep = append(keep, have)
		}
	}
	if len(keep) == 0 {
		RemoveAttr(n, "class")
		return
	}
	SetAttr(n, "class", strings.Join(keep, " "))
}

// SetClass replaces n's class attribute.
func SetClass(n *html.Node, c string) {
	SetAttr(n, "class", c)
}

// Find returns the first node in document order below root (inclusive) that
// satisfies match.
func Find(root *html.Node, match func(*html.Node) bool) *html.Node {
	if match(root) {
		return root
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if found := Find(c, match); found != nil {
			return found
		}
	}
	return nil
}

// FindAll returns every node below root (inclusive) that satisfies match.
func FindAll(root *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

// FindByID returns the element whose id attribute equals id, or nil.
func FindByID(root *html.Node, id string) *html.Node {
	return Find(root, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		v, ok := GetAttr(n, "id")
		return ok && v == id
	})
}

// FindTag returns the first element named tag, or nil.
func FindTag(root *html.Node, tag string) *html.Node {
	return Find(root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == tag
	})
}

// MissingIDError lists the element IDs a page was expected to provide.
type MissingIDError struct {
	IDs []string
}

func (e *MissingIDError) Error() string {
	return fmt.Sprintf("missing elements: %s", strings.Join(e.IDs, ", "))
}

// MustFindIDs looks up all ids at once. Either every node is returned, in the
// order asked for, or a *MissingIDError naming each absent id.
func MustFindIDs(root *html.Node, ids ...string) ([]*html.Node, error) {
	nodes := make([]*html.Node, len(ids))
	var missing []string
	for i, id := range ids {
		nodes[i] = FindByID(root, id)
		if nodes[i] == nil {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingIDError{IDs: missing}
	}
	return nodes, nil
}

// Parse reads a full HTML document.
func Parse(r io.Reader) (*html.Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	return doc, nil
}

// ParseFragment parses s as children of a <div> and returns them.
func ParseFragment(s string) ([]*html.Node, error) {
	ctx := El("div", nil)
	nodes, err := html.ParseFragment(strings.NewReader(s), ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html fragment: %w", err)
	}
	return nodes, nil
}

// Render serializes n.
func Render(w io.Writer, n *html.Node) error {
	return html.Render(w, n)
}

// RenderString serializes n to a string. Rendering to memory cannot fail for
// trees built with this package, so errors are folded into the output.
func RenderString(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return fmt.Sprintf("<!-- render error: %v -->", err)
	}
	return buf.String()
}

// RenderChildren serializes the children of n without n itself.
func RenderChildren(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}
