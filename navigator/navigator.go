/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package navigator finds a route between two encyclopedia articles by
// following outbound links, using nothing but what a player could see: the
// current article's links, a short extract of it, and the goal title.
//
// A Navigator runs one Strategy per Run. Two strategies are provided: Greedy,
// a single weighted-random walk, and Frontier, a depth-capped search over the
// best-scoring links of every expanded article.
package navigator

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

// ErrRunning is returned by Run when the navigator is already running.
var ErrRunning = errors.New("navigator: run already in progress")

// State is the lifecycle state of a Navigator.
type State int

const (
	Idle State = iota
	Running
	Succeeded
	Failed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Done reports whether s is a terminal state.
func (s State) Done() bool {
	return s == Succeeded || s == Failed || s == Cancelled
}

// Step is one article on a navigation path.
type Step struct {
	Article   string    `json:"article"`
	Order     int       `json:"order"`
	Reasoning string    `json:"reasoning,omitempty"`
	At        time.Time `json:"at"`
}

// Result is the outcome of a single Run.
type Result struct {
	Strategy string        `json:"strategy"`
	State    State         `json:"state"`
	Path     []Step        `json:"path"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Titles returns the article titles of the path, in order.
func (r Result) Titles() []string {
	titles := make([]string, len(r.Path))
	for i, step := range r.Path {
		titles[i] = step.Article
	}
	return titles
}

// Hops is the number of links followed.
func (r Result) Hops() int {
	if len(r.Path) == 0 {
		return 0
	}
	return len(r.Path) - 1
}

// Graph is the link graph oracle a navigator queries.
//
// Implementations may fail or block; the navigator never lets their errors
// escape Run.
type Graph interface {
	Links(ctx context.Context, title string) ([]string, error)
	Extract(ctx context.Context, title string) (string, error)
}

// Strategy decides which links a navigator follows.
//
// Navigate drives a Session until it reaches a terminal state and returns it.
type Strategy interface {
	Name() string
	Navigate(ctx context.Context, s *Session) State
}

// Rand is the source of randomness used for weighted picks and pacing jitter.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

// SameTitle reports whether a and b name the same article.
func SameTitle(a, b string) bool {
	return strings.ToLower(a) == strings.ToLower(b)
}

const defaultCallTimeout = 10 * time.Second

// Option configures a Navigator.
type Option func(*Navigator)

// WithStrategy selects the path-finding strategy. Greedy is the default.
func WithStrategy(strategy Strategy) Option {
	return func(n *Navigator) {
		if strategy != nil {
			n.strategy = strategy
		}
	}
}

// WithOnStep registers a callback invoked synchronously for every step event.
// It runs on the navigation goroutine, so slow handlers slow the run down.
func WithOnStep(fn func(Step)) Option {
	return func(n *Navigator) { n.onStep = fn }
}

// WithRand injects the random source.
func WithRand(r Rand) Option {
	return func(n *Navigator) {
		if r != nil {
			n.rng = r
		}
	}
}

// WithCallTimeout bounds every individual oracle call.
func WithCallTimeout(d time.Duration) Option {
	return func(n *Navigator) {
		if d > 0 {
			n.callTimeout = d
		}
	}
}

// WithLogger sets the function used for diagnostic output.
func WithLogger(logf func(format string, args ...any)) Option {
	return func(n *Navigator) {
		if logf != nil {
			n.logf = logf
		}
	}
}

// WithoutPacing removes the delay between steps. Intended for tests and
// non-interactive use.
func WithoutPacing() Option {
	return func(n *Navigator) { n.pacing = false }
}

// Navigator searches for a path from a start article to a goal article.
type Navigator struct {
	start string
	goal  string
	graph Graph

	strategy    Strategy
	onStep      func(Step)
	rng         Rand
	callTimeout time.Duration
	logf        func(format string, args ...any)
	pacing      bool

	mu    sync.Mutex
	state State
	path  []Step
	stop  chan struct{}
}

// New returns an idle navigator from start to goal over g.
func New(start, goal string, g Graph, opts ...Option) *Navigator {
	n := &Navigator{
		start:       start,
		goal:        goal,
		graph:       g,
		strategy:    NewGreedy(),
		rng:         rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		callTimeout: defaultCallTimeout,
		logf:        func(string, ...any) {},
		pacing:      true,
	}

	for _, opt := range opts {
		opt(n)
	}

	return n
}

func (n *Navigator) Start() string { return n.start }

func (n *Navigator) Goal() string { return n.goal }

// Strategy returns the name of the configured strategy.
func (n *Navigator) Strategy() string { return n.strategy.Name() }

// State returns the current lifecycle state.
func (n *Navigator) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.state
}

// CurrentPath returns a snapshot of the path committed so far. It is safe to
// call while Run is in progress.
func (n *Navigator) CurrentPath() []Step {
	n.mu.Lock()
	defer n.mu.Unlock()

	path := make([]Step, len(n.path))
	copy(path, n.path)

	return path
}

// Stop cancels a running navigation. The loop exits at its next check; an
// oracle call already in flight is allowed to finish. Stop is idempotent and
// does nothing when the navigator is not running.
func (n *Navigator) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.state != Running || n.stop == nil {
		return
	}

	select {
	case <-n.stop:
	default:
		close(n.stop)
	}
}

// Run navigates until the goal is reached, the strategy's budget is spent, or
// the run is stopped. Oracle failures never surface here; the only error is
// ErrRunning. Cancelling ctx has the same effect as Stop.
func (n *Navigator) Run(ctx context.Context) (Result, error) {
	n.mu.Lock()
	if n.state == Running {
		n.mu.Unlock()

		return Result{}, ErrRunning
	}
	n.state = Running
	n.path = nil
	n.stop = make(chan struct{})
	stop := n.stop
	n.mu.Unlock()

	began := time.Now()

	s := &Session{
		nav:     n,
		ctx:     ctx,
		stop:    stop,
		visited: make(map[string]struct{}),
		oracle: &oracle{
			graph:   n.graph,
			timeout: n.callTimeout,
			logf:    n.logf,
		},
	}

	s.Advance(n.start, reasonStart)

	n.logf("NAVIG: %s run from %q to %q", n.strategy.Name(), n.start, n.goal)

	state := n.strategy.Navigate(ctx, s)

	n.mu.Lock()
	n.state = state
	path := make([]Step, len(n.path))
	copy(path, n.path)
	n.mu.Unlock()

	result := Result{
		Strategy: n.strategy.Name(),
		State:    state,
		Path:     path,
		Elapsed:  time.Since(began),
	}

	n.logf("NAVIG: %s run from %q to %q %s after %d hops in %s",
		result.Strategy, n.start, n.goal, state, result.Hops(), result.Elapsed.Round(time.Millisecond))

	return result, nil
}

// StrategyByName returns a default-configured strategy by name.
func StrategyByName(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", greedyName:
		return NewGreedy(), nil
	case frontierName:
		return NewFrontier(), nil
	}

	return nil, fmt.Errorf("navigator: unknown strategy %q", name)
}
