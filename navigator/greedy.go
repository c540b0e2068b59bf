/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package navigator

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const greedyName = "greedy"

// Words that mark a title as a broad hub when the walk is stuck.
var broadWords = []string{
	"history",
	"culture",
	"society",
	"world",
	"international",
	"general",
}

const (
	defaultMaxAttempts = 15
	defaultTopN        = 10

	broadFallbackLimit = 20
	broadPickSpread    = 3
)

// Greedy walks a single path, picking each hop by a weighted random draw over
// the best-scoring unvisited links. When no scored link is left it broadens to
// hub-like titles before giving up.
type Greedy struct {
	// MaxAttempts bounds the number of hops.
	MaxAttempts int
	// TopN is how many of the best candidates take part in each draw.
	TopN int
	// Delay and Jitter pace the walk: each hop is followed by a pause of
	// Delay plus a random duration below Jitter.
	Delay  time.Duration
	Jitter time.Duration
}

// NewGreedy returns a greedy walk with the default budget and human-like pacing.
func NewGreedy() *Greedy {
	return &Greedy{
		MaxAttempts: defaultMaxAttempts,
		TopN:        defaultTopN,
		Delay:       1500 * time.Millisecond,
		Jitter:      time.Second,
	}
}

func (g *Greedy) Name() string { return greedyName }

func (g *Greedy) Navigate(ctx context.Context, s *Session) State {
	current := s.Start()

	if s.IsGoal(current) {
		return Succeeded
	}

	budget := g.MaxAttempts
	if budget <= 0 {
		budget = defaultMaxAttempts
	}

	for attempts := 0; attempts < budget; attempts++ {
		if s.Stopped() {
			return Cancelled
		}

		s.Visit(current)

		next, ok := g.next(ctx, s, current)
		if s.Stopped() {
			return Cancelled
		}
		if !ok {
			s.Logf("NAVIG: No way forward from %q", current)

			return Failed
		}

		current = next
		s.Advance(current, Reason(current, s.Goal()))

		if s.IsGoal(current) {
			return Succeeded
		}

		if !s.Wait(g.Delay + s.Jitter(g.Jitter)) {
			return Cancelled
		}
	}

	return Failed
}

// next picks the hop after current, falling back to broad links when no
// scored candidate is left.
func (g *Greedy) next(ctx context.Context, s *Session, current string) (string, bool) {
	var (
		links   []string
		extract string
		group   errgroup.Group
	)

	group.Go(func() error {
		links = s.Links(ctx, current)

		return nil
	})
	group.Go(func() error {
		extract = s.Extract(ctx, current)

		return nil
	})
	_ = group.Wait()

	candidates := Rank(links, s.Goal(), extract, s.Visited)
	topN := g.TopN
	if topN <= 0 {
		topN = defaultTopN
	}
	if len(candidates) > topN {
		candidates = candidates[:topN]
	}

	if len(candidates) > 0 {
		return pickWeighted(candidates, s.Rand()), true
	}

	if s.Stopped() {
		return "", false
	}

	broad := g.broaden(ctx, s, current)
	if len(broad) == 0 {
		return "", false
	}

	s.Logf("NAVIG: Broadening search from %q", current)

	return broad[s.Rand().IntN(min(broadPickSpread, len(broad)))], true
}

// broaden refetches the links of current and keeps unvisited hub-like titles,
// or the first few unvisited links if none look broad.
func (g *Greedy) broaden(ctx context.Context, s *Session, current string) []string {
	var unvisited, broad []string

	for _, c := range Rank(s.Links(ctx, current), s.Goal(), "", s.Visited) {
		unvisited = append(unvisited, c.Title)
		if isBroad(c.Title) {
			broad = append(broad, c.Title)
		}
	}

	if len(broad) > 0 {
		return broad
	}

	if len(unvisited) > broadFallbackLimit {
		unvisited = unvisited[:broadFallbackLimit]
	}

	return unvisited
}

func isBroad(title string) bool {
	lower := strings.ToLower(title)
	for _, w := range broadWords {
		if strings.Contains(lower, w) {
			return true
		}
	}

	return len(strings.Fields(title)) <= 2 && !strings.Contains(title, "(")
}

// pickWeighted draws a candidate with probability proportional to its score.
// Candidates must be sorted best first; if every score is zero the first one
// is returned.
func pickWeighted(candidates []Candidate, r Rand) string {
	total := 0
	for _, c := range candidates {
		total += c.Score
	}

	if total == 0 {
		return candidates[0].Title
	}

	n := r.IntN(total)
	for _, c := range candidates {
		if n < c.Score {
			return c.Title
		}
		n -= c.Score
	}

	return candidates[0].Title
}
