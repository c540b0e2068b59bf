/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package wiki

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// PlainText flattens an HTML fragment to text, one line per block element.
// Input that does not parse is returned trimmed.
func PlainText(fragment string) string {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" || !strings.Contains(fragment, "<") {
		return fragment
	}

	nodes, err := html.ParseFragment(strings.NewReader(fragment), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return fragment
	}

	var (
		lines   []string
		current strings.Builder
	)

	flush := func() {
		line := strings.Join(strings.Fields(current.String()), " ")
		if line != "" {
			lines = append(lines, line)
		}
		current.Reset()
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			current.WriteString(n.Data)

			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "sup":
				return
			case "br":
				flush()

				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode && isBlock(n.Data) {
			flush()
		}
	}

	for _, n := range nodes {
		walk(n)
	}
	flush()

	return strings.Join(lines, "\n")
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "li", "ul", "ol", "dl", "dd", "dt", "blockquote", "table", "tr",
		"h1", "h2", "h3", "h4", "h5", "h6":
		return true
	}

	return false
}
