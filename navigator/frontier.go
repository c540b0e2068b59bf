/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package navigator

import (
	"context"
	"fmt"
	"slices"
	"time"
)

const (
	frontierName = "frontier"

	defaultDepthCap = 6
	defaultTopK     = 10
)

// Frontier explores articles in first-in first-out order, enqueueing only the
// TopK best-scoring links of each article and never expanding past DepthCap
// hops. The first route found to the goal wins; because children are pruned
// it is not guaranteed to be the shortest.
//
// A run that does not reach the goal commits only the start article.
type Frontier struct {
	DepthCap int
	TopK     int
	// Delay is the pause after each expansion.
	Delay time.Duration
}

// NewFrontier returns a frontier search with the default depth cap and pacing.
func NewFrontier() *Frontier {
	return &Frontier{
		DepthCap: defaultDepthCap,
		TopK:     defaultTopK,
		Delay:    500 * time.Millisecond,
	}
}

func (f *Frontier) Name() string { return frontierName }

type frontierEntry struct {
	article string
	path    []string
}

func (f *Frontier) Navigate(ctx context.Context, s *Session) State {
	depthCap, topK := f.DepthCap, f.TopK
	if depthCap <= 0 {
		depthCap = defaultDepthCap
	}
	if topK <= 0 {
		topK = defaultTopK
	}

	queue := []frontierEntry{{article: s.Start(), path: []string{s.Start()}}}

	for len(queue) > 0 {
		if s.Stopped() {
			return Cancelled
		}

		entry := queue[0]
		queue = queue[1:]

		if s.IsGoal(entry.article) {
			s.Commit(entry.path)

			return Succeeded
		}

		depth := len(entry.path) - 1
		if s.Visited(entry.article) || depth >= depthCap {
			continue
		}

		s.Visit(entry.article)
		if depth > 0 {
			s.Explore(entry.article, depth, fmt.Sprintf("Exploring at depth %d", depth))
			if s.Stopped() {
				return Cancelled
			}
		}

		links := s.Links(ctx, entry.article)
		if s.Stopped() {
			return Cancelled
		}

		candidates := Rank(links, s.Goal(), "", s.Visited)
		if len(candidates) > topK {
			candidates = candidates[:topK]
		}

		for _, c := range candidates {
			queue = append(queue, frontierEntry{
				article: c.Title,
				path:    append(slices.Clip(entry.path), c.Title),
			})
		}

		if !s.Wait(f.Delay) {
			return Cancelled
		}
	}

	s.Logf("NAVIG: Frontier exhausted before reaching %q", s.Goal())

	return Failed
}
