/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package navigator

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"
)

const (
	exactBonus   = 1000
	wordBonus    = 100
	partialBonus = 50
	contextBonus = 30
	generalBonus = 20
	topicBonus   = 15
	noisePenalty = 50

	// Goal words shorter than this are ignored, as are partial matches whose
	// shorter side is shorter than this.
	minWordLen = 3

	// Titles shorter than this are treated as general topics.
	generalMaxLen = 20
)

// Broad connector topics. Articles about them are well linked.
var topics = []string{
	"history",
	"culture",
	"science",
	"art",
	"music",
	"literature",
	"philosophy",
	"politics",
	"geography",
	"religion",
	"technology",
	"society",
	"people",
	"world",
	"international",
	"modern",
	"ancient",
}

// Candidate is a link scored against the goal.
type Candidate struct {
	Title string
	Score int
}

type scorer struct {
	goal      string
	goalWords []string
	context   string
}

func newScorer(goal, context string) *scorer {
	goal = strings.ToLower(goal)

	var words []string
	for _, w := range strings.Fields(goal) {
		if utf8.RuneCountInString(w) >= minWordLen {
			words = append(words, w)
		}
	}

	return &scorer{
		goal:      goal,
		goalWords: words,
		context:   strings.ToLower(context),
	}
}

// Score rates how promising candidate is as the next hop toward goal. context
// is the current article's extract and may be empty. The result is never
// negative; an exact match always outranks any partial match, which in turn
// outranks an unrelated title.
func Score(candidate, goal, context string) int {
	return newScorer(goal, context).score(candidate)
}

func (s *scorer) score(candidate string) int {
	lower := strings.ToLower(candidate)

	score := 0

	if lower == s.goal {
		score += exactBonus
	}

	for _, gw := range s.goalWords {
		for _, cw := range strings.Fields(lower) {
			switch {
			case cw == gw:
				score += wordBonus
			case partialMatch(cw, gw):
				score += partialBonus
			}
		}
	}

	if s.context != "" && strings.Contains(s.context, lower) {
		score += contextBonus
	}

	if utf8.RuneCountInString(candidate) < generalMaxLen && !strings.ContainsAny(candidate, "(,") {
		score += generalBonus
	}

	if isNoise(lower) {
		score -= noisePenalty
	}

	for _, topic := range topics {
		if strings.Contains(lower, topic) {
			score += topicBonus
		}
	}

	return max(score, 0)
}

func (s *scorer) overlaps(candidate string) bool {
	lower := strings.ToLower(candidate)
	if lower == s.goal {
		return true
	}

	for _, gw := range s.goalWords {
		for _, cw := range strings.Fields(lower) {
			if cw == gw || partialMatch(cw, gw) {
				return true
			}
		}
	}

	return false
}

func partialMatch(a, b string) bool {
	if min(utf8.RuneCountInString(a), utf8.RuneCountInString(b)) < minWordLen {
		return false
	}

	return strings.Contains(a, b) || strings.Contains(b, a)
}

// isNoise matches structural pages that are poor hops: namespaced pages,
// disambiguation pages and lists.
func isNoise(lower string) bool {
	return IsNamespaced(lower) ||
		strings.Contains(lower, "disambiguation") ||
		strings.HasPrefix(lower, "list of ")
}

// Rank scores links against goal and returns them best first. Namespaced
// links, duplicates and links for which exclude returns true are dropped.
// Links with equal scores keep their original order.
func Rank(links []string, goal, context string, exclude func(string) bool) []Candidate {
	s := newScorer(goal, context)

	seen := make(map[string]struct{}, len(links))
	candidates := make([]Candidate, 0, len(links))

	for _, link := range links {
		key := strings.ToLower(link)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		if link == "" || IsNamespaced(link) {
			continue
		}
		if exclude != nil && exclude(link) {
			continue
		}

		candidates = append(candidates, Candidate{Title: link, Score: s.score(link)})
	}

	slices.SortStableFunc(candidates, func(a, b Candidate) int {
		return cmp.Compare(b.Score, a.Score)
	})

	return candidates
}

// Reason describes why candidate looks like a good hop toward goal.
func Reason(candidate, goal string) string {
	lower := strings.ToLower(candidate)

	switch {
	case newScorer(goal, "").overlaps(candidate):
		return fmt.Sprintf("Found connection to %q", goal)
	case strings.Contains(lower, "history"):
		return "Exploring historical connections"
	case strings.Contains(lower, "culture"), strings.Contains(lower, "society"):
		return "Following cultural pathways"
	}

	return "Strategic navigation choice"
}
