package lexer

import "github.com/rivo/uniseg"

// Cursor steps through source text one extended grapheme cluster at a time.
// Segmentation happens once, up front; the scanner only ever peeks and
// advances over whole clusters, so multi-code-point characters are never
// split.
type Cursor struct {
	clusters []string
	pos      int
}

// NewCursor segments src into grapheme clusters.
func NewCursor(src string) *Cursor {
	var clusters []string
	gr := uniseg.NewGraphemes(src)
	for gr.Next() {
		clusters = append(clusters, gr.Str())
	}
	return &Cursor{clusters: clusters}
}

// Graphemes splits s into its extended grapheme clusters.
func Graphemes(s string) []string {
	var out []string
	gr := uniseg.NewGraphemes(s)
	for gr.Next() {
		out = append(out, gr.Str())
	}
	return out
}

// AtEnd reports whether the cursor is past the last cluster.
func (c *Cursor) AtEnd() bool { return c.pos >= len(c.clusters) }

// Peek returns the current cluster without advancing.
func (c *Cursor) Peek() (string, bool) {
	if c.AtEnd() {
		return "", false
	}
	return c.clusters[c.pos], true
}

// PeekNext returns the cluster after the current one.
func (c *Cursor) PeekNext() (string, bool) {
	if c.pos+1 >= len(c.clusters) {
		return "", false
	}
	return c.clusters[c.pos+1], true
}

// Next returns the current cluster and advances.
func (c *Cursor) Next() (string, bool) {
	if c.AtEnd() {
		return "", false
	}
	g := c.clusters[c.pos]
	c.pos++
	return g, true
}
