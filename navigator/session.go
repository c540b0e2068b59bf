/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package navigator

import (
	"context"
	"strings"
	"time"
)

const reasonStart = "Starting point"

// Session is the per-run state a Strategy works against: the visited set,
// the committed path, the oracle and the stop signal.
//
// A Session is used from a single goroutine.
type Session struct {
	nav     *Navigator
	ctx     context.Context
	stop    <-chan struct{}
	visited map[string]struct{}
	oracle  *oracle
}

func (s *Session) Start() string { return s.nav.start }

func (s *Session) Goal() string { return s.nav.goal }

// Rand returns the navigator's random source.
func (s *Session) Rand() Rand { return s.nav.rng }

// Logf writes diagnostic output through the navigator's logger.
func (s *Session) Logf(format string, args ...any) { s.nav.logf(format, args...) }

// IsGoal reports whether title is the goal article.
func (s *Session) IsGoal(title string) bool {
	return SameTitle(title, s.nav.goal)
}

// Visit adds title to the visited set. The set never shrinks during a run.
func (s *Session) Visit(title string) {
	s.visited[strings.ToLower(title)] = struct{}{}
}

func (s *Session) Visited(title string) bool {
	_, ok := s.visited[strings.ToLower(title)]

	return ok
}

// Stopped reports whether Stop was called or the run's context is done.
func (s *Session) Stopped() bool {
	select {
	case <-s.stop:
		return true
	case <-s.ctx.Done():
		return true
	default:
		return false
	}
}

// Links returns the article links of title, or nothing if the oracle failed.
func (s *Session) Links(ctx context.Context, title string) []string {
	return s.oracle.links(ctx, title)
}

// Extract returns a plain-text summary of title, or "" if the oracle failed.
func (s *Session) Extract(ctx context.Context, title string) string {
	return s.oracle.extract(ctx, title)
}

// Advance appends article to the committed path and emits a step event.
func (s *Session) Advance(article, reasoning string) Step {
	s.nav.mu.Lock()
	step := Step{
		Article:   article,
		Order:     len(s.nav.path),
		Reasoning: reasoning,
		At:        time.Now(),
	}
	s.nav.path = append(s.nav.path, step)
	s.nav.mu.Unlock()

	s.emit(step)

	return step
}

// Explore emits a step event for an article under consideration without
// committing it to the path. order is the article's distance from the start.
func (s *Session) Explore(article string, order int, reasoning string) {
	s.emit(Step{
		Article:   article,
		Order:     order,
		Reasoning: reasoning,
		At:        time.Now(),
	})
}

// Commit replaces the committed path with titles, which must begin with the
// start article. Steps already on the path keep their timestamps.
func (s *Session) Commit(titles []string) {
	s.nav.mu.Lock()
	defer s.nav.mu.Unlock()

	now := time.Now()
	path := make([]Step, 0, len(titles))
	for i, title := range titles {
		if i < len(s.nav.path) && SameTitle(s.nav.path[i].Article, title) {
			path = append(path, s.nav.path[i])

			continue
		}

		path = append(path, Step{
			Article:   title,
			Order:     i,
			Reasoning: Reason(title, s.nav.goal),
			At:        now,
		})
	}

	s.nav.path = path
}

// Wait pauses for d, returning false if the run was stopped meanwhile.
func (s *Session) Wait(d time.Duration) bool {
	if !s.nav.pacing || d <= 0 {
		return !s.Stopped()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return !s.Stopped()
	case <-s.stop:
		return false
	case <-s.ctx.Done():
		return false
	}
}

// Jitter returns a random duration in [0, limit).
func (s *Session) Jitter(limit time.Duration) time.Duration {
	ms := int(limit / time.Millisecond)
	if ms <= 0 {
		return 0
	}

	return time.Duration(s.nav.rng.IntN(ms)) * time.Millisecond
}

func (s *Session) emit(step Step) {
	if s.nav.onStep != nil {
		s.nav.onStep(step)
	}
}
