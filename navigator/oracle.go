/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package navigator

import (
	"context"
	"strings"
	"time"
)

// Namespaces that never hold ordinary articles.
var namespaces = map[string]bool{
	"category":  true,
	"draft":     true,
	"file":      true,
	"help":      true,
	"image":     true,
	"mediawiki": true,
	"module":    true,
	"portal":    true,
	"special":   true,
	"talk":      true,
	"template":  true,
	"timedtext": true,
	"user":      true,
	"wikipedia": true,
	"wp":        true,
}

// IsNamespaced reports whether title lives outside the article namespace,
// e.g. "Category:Foo" or "Template talk:Bar". Titles like "Halo 3: ODST"
// are ordinary articles.
func IsNamespaced(title string) bool {
	prefix, _, ok := strings.Cut(title, ":")
	if !ok {
		return false
	}

	prefix = strings.ToLower(strings.TrimSpace(prefix))

	return namespaces[prefix] || strings.HasSuffix(prefix, " talk")
}

// oracle adapts a Graph for strategies: every call is time-bounded, errors
// become empty results, and namespaced links are dropped.
type oracle struct {
	graph   Graph
	timeout time.Duration
	logf    func(format string, args ...any)
}

func (o *oracle) links(ctx context.Context, title string) []string {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	links, err := o.graph.Links(ctx, title)
	if err != nil {
		o.logf("NAVIG: Links of %q unavailable: %v", title, err)

		return nil
	}

	filtered := make([]string, 0, len(links))
	for _, link := range links {
		if link == "" || IsNamespaced(link) {
			continue
		}
		filtered = append(filtered, link)
	}

	return filtered
}

func (o *oracle) extract(ctx context.Context, title string) string {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	text, err := o.graph.Extract(ctx, title)
	if err != nil {
		o.logf("NAVIG: Extract of %q unavailable: %v", title, err)

		return ""
	}

	return text
}
