// Package render builds the presenter screen's HTML fragments from approved
// submissions: a bar chart of themes, a word cloud of key terms and an
// audience sentiment overview.
//
// Fragments are built as golang.org/x/net/html node trees and serialized
// with html.Render, so submission text is always escaped.
package render

import (
	"bytes"
	"io"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/cognicore/crowdpulse/pkg/crowdpulse/lexicon"
	"github.com/cognicore/crowdpulse/pkg/crowdpulse/theme"
)

const (
	// WaitingMessage is shown by every view until something is approved.
	WaitingMessage = "Waiting for approved submissions..."
	// NoTermsMessage is shown by the word cloud when no submission has terms.
	NoTermsMessage = "Not enough data for key terms yet..."
)

// Renderer turns submissions into presenter fragments.
type Renderer struct {
	taxonomy theme.Taxonomy
	jargon   *lexicon.Lexicon
}

// NewRenderer creates a renderer. Theme icons come from taxonomy; word
// cloud terms are normalized through jargon (nil uses lexicon.Default()).
func NewRenderer(taxonomy theme.Taxonomy, jargon *lexicon.Lexicon) *Renderer {
	if jargon == nil {
		jargon = lexicon.Default()
	}
	return &Renderer{taxonomy: taxonomy, jargon: jargon}
}

// Render serializes a fragment.
func Render(w io.Writer, n *html.Node) error {
	return html.Render(w, n)
}

// String serializes a fragment to a string.
func String(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}

func element(a atom.Atom, class string, children ...*html.Node) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	if class != "" {
		n.Attr = append(n.Attr, html.Attribute{Key: "class", Val: class})
	}
	for _, c := range children {
		if c != nil {
			n.AppendChild(c)
		}
	}
	return n
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func span(class, s string) *html.Node {
	return element(atom.Span, class, text(s))
}

func withStyle(n *html.Node, style string) *html.Node {
	n.Attr = append(n.Attr, html.Attribute{Key: "style", Val: style})
	return n
}

func waiting(msg string) *html.Node {
	return element(atom.H2, "", text(msg))
}
