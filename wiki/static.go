/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package wiki

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// StaticGraph is a fixed link graph, for offline play and tests.
//
// The YAML form is:
//
//	articles:
//	  Pizza:
//	    extract: Pizza is an Italian dish.
//	    links: [Naples, Cheese]
type StaticGraph struct {
	articles map[string]staticArticle
	titles   []string
}

type staticArticle struct {
	title   string
	Extract string   `yaml:"extract"`
	Links   []string `yaml:"links"`
}

type staticFile struct {
	Articles map[string]staticArticle `yaml:"articles"`
}

// LoadGraph reads a StaticGraph from a YAML file.
func LoadGraph(path string) (*StaticGraph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	g, err := ParseGraph(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return g, nil
}

// ParseGraph decodes a StaticGraph from YAML. Article titles must be unique
// ignoring case.
func ParseGraph(data []byte) (*StaticGraph, error) {
	var f staticFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	if len(f.Articles) == 0 {
		return nil, errors.New("graph has no articles")
	}

	g := &StaticGraph{articles: make(map[string]staticArticle, len(f.Articles))}

	for title, article := range f.Articles {
		key := strings.ToLower(title)
		if _, dup := g.articles[key]; dup {
			return nil, fmt.Errorf("duplicate article %q", title)
		}

		article.title = title
		g.articles[key] = article
		g.titles = append(g.titles, title)
	}

	slices.Sort(g.titles)

	return g, nil
}

func (g *StaticGraph) article(title string) (staticArticle, error) {
	a, ok := g.articles[strings.ToLower(title)]
	if !ok {
		return staticArticle{}, ErrNotFound
	}

	return a, nil
}

func (g *StaticGraph) Links(_ context.Context, title string) ([]string, error) {
	a, err := g.article(title)
	if err != nil {
		return nil, err
	}

	return slices.Clone(a.Links), nil
}

func (g *StaticGraph) Extract(_ context.Context, title string) (string, error) {
	a, err := g.article(title)
	if err != nil {
		return "", err
	}

	return a.Extract, nil
}

// Random returns a uniformly chosen article title.
func (g *StaticGraph) Random(_ context.Context) (string, error) {
	return g.titles[rand.IntN(len(g.titles))], nil
}

// Search returns up to ten titles containing query, prefix matches first.
func (g *StaticGraph) Search(_ context.Context, query string) ([]string, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, nil
	}

	var prefix, contains []string
	for _, title := range g.titles {
		lower := strings.ToLower(title)
		switch {
		case strings.HasPrefix(lower, query):
			prefix = append(prefix, title)
		case strings.Contains(lower, query):
			contains = append(contains, title)
		}
	}

	matches := append(prefix, contains...)
	if len(matches) > searchLimit {
		matches = matches[:searchLimit]
	}

	return matches, nil
}

// Titles returns every article title, sorted.
func (g *StaticGraph) Titles() []string {
	return slices.Clone(g.titles)
}
