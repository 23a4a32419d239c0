package transcript

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/unicode/norm"
)

var skippedElements = map[atom.Atom]struct{}{
	atom.Script:   {},
	atom.Style:    {},
	atom.Noscript: {},
	atom.Head:     {},
	atom.Template: {},
}

var blockElements = map[atom.Atom]struct{}{
	atom.P: {}, atom.Div: {}, atom.Li: {}, atom.Br: {}, atom.Tr: {},
	atom.H1: {}, atom.H2: {}, atom.H3: {}, atom.H4: {}, atom.H5: {}, atom.H6: {},
	atom.Blockquote: {}, atom.Pre: {}, atom.Section: {}, atom.Article: {},
	atom.Dt: {}, atom.Dd: {}, atom.Td: {}, atom.Th: {},
}

// ExtractHTML returns the visible text of an HTML transcript, one block per line.
func ExtractHTML(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	var (
		lines   []string
		current strings.Builder
	)
	breakLine := func() {
		if text := strings.Join(strings.Fields(current.String()), " "); text != "" {
			lines = append(lines, norm.NFC.String(text))
		}
		current.Reset()
	}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if _, skip := skippedElements[n.DataAtom]; skip {
				return
			}
		}
		if n.Type == html.TextNode {
			current.WriteString(n.Data)
			current.WriteByte(' ')
			return
		}
		_, block := blockElements[n.DataAtom]
		if block && n.Type == html.ElementNode {
			breakLine()
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
		if block && n.Type == html.ElementNode {
			breakLine()
		}
	}
	walk(doc)
	breakLine()
	if len(lines) == 0 {
		return "", nil
	}
	return strings.Join(lines, "\n") + "\n", nil
}
