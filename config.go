/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Seednode/wikirace/navigator"
	"github.com/Seednode/wikirace/wiki"
)

type Config struct {
	bind           string
	cacheTTL       time.Duration
	depthCap       int
	graph          string
	maxAttempts    int
	noPacing       bool
	playerTimeout  time.Duration
	port           int
	prefix         string
	profile        bool
	requestRate    float64
	requestTimeout time.Duration
	seed           uint64
	sessionTimeout time.Duration
	strategy       string
	tlsCert        string
	tlsKey         string
	verbose        bool
	version        bool
	wikiURL        string
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if _, err := navigator.StrategyByName(c.strategy); err != nil {
		return fmt.Errorf("invalid strategy (must be greedy or frontier): %q", c.strategy)
	}
	if c.maxAttempts < 1 {
		return fmt.Errorf("invalid max attempts (must be at least 1): %d", c.maxAttempts)
	}
	if c.depthCap < 1 {
		return fmt.Errorf("invalid depth cap (must be at least 1): %d", c.depthCap)
	}
	if c.requestRate < 0 {
		return fmt.Errorf("invalid request rate (must not be negative): %v", c.requestRate)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

// newStrategy returns a fresh strategy with the configured budget.
func (c *Config) newStrategy(name string) (navigator.Strategy, error) {
	if name == "" {
		name = c.strategy
	}

	strategy, err := navigator.StrategyByName(name)
	if err != nil {
		return nil, err
	}

	switch s := strategy.(type) {
	case *navigator.Greedy:
		s.MaxAttempts = c.maxAttempts
	case *navigator.Frontier:
		s.DepthCap = c.depthCap
	}

	return strategy, nil
}

// newSource returns the static graph if one was given, and the wiki client
// otherwise. With watch set, the graph file is reloaded on change until ctx
// is cancelled.
func (c *Config) newSource(ctx context.Context, watch bool) (wiki.Source, error) {
	switch {
	case c.graph != "" && watch:
		return wiki.WatchGraph(ctx, c.graph, func(format string, args ...any) {
			logf(c, format, args...)
		})
	case c.graph != "":
		return wiki.LoadGraph(c.graph)
	}

	return wiki.NewClient(c.wikiURL,
		wiki.WithTimeout(c.requestTimeout),
		wiki.WithRateLimit(c.requestRate, max(int(c.requestRate*2), 1)),
		wiki.WithCacheTTL(c.cacheTTL),
		wiki.WithUserAgent("wikirace/"+releaseVersion+" (https://github.com/Seednode/wikirace)"),
	), nil
}

func bindEnv(v *viper.Viper, fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("WIKIRACE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "wikirace",
		Short:         "Race an automated navigator from one encyclopedia article to another.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	pfs := cmd.PersistentFlags()
	pfs.DurationVar(&cfg.cacheTTL, "cache-ttl", 30*time.Minute, "how long fetched links and extracts are reused (env: WIKIRACE_CACHE_TTL)")
	pfs.IntVar(&cfg.depthCap, "depth-cap", 6, "maximum hops explored by the frontier strategy (env: WIKIRACE_DEPTH_CAP)")
	pfs.StringVar(&cfg.graph, "graph", "", "path to a yaml link graph to use instead of the wiki api (env: WIKIRACE_GRAPH)")
	pfs.IntVar(&cfg.maxAttempts, "max-attempts", 15, "maximum hops taken by the greedy strategy (env: WIKIRACE_MAX_ATTEMPTS)")
	pfs.Float64Var(&cfg.requestRate, "request-rate", 10, "maximum wiki api requests per second, 0 for unlimited (env: WIKIRACE_REQUEST_RATE)")
	pfs.DurationVar(&cfg.requestTimeout, "request-timeout", 10*time.Second, "timeout for each wiki api request (env: WIKIRACE_REQUEST_TIMEOUT)")
	pfs.StringVarP(&cfg.strategy, "strategy", "s", "greedy", "navigator strategy, greedy or frontier (env: WIKIRACE_STRATEGY)")
	pfs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: WIKIRACE_VERBOSE)")
	pfs.StringVar(&cfg.wikiURL, "wiki-url", wiki.DefaultEndpoint, "mediawiki action api endpoint (env: WIKIRACE_WIKI_URL)")

	fs := cmd.Flags()
	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: WIKIRACE_BIND)")
	fs.DurationVar(&cfg.playerTimeout, "player-timeout", 10*time.Minute, "time before disconnected players are removed (env: WIKIRACE_PLAYER_TIMEOUT)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: WIKIRACE_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: WIKIRACE_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: WIKIRACE_PROFILE)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle races are ended (env: WIKIRACE_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: WIKIRACE_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: WIKIRACE_TLS_KEY)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: WIKIRACE_VERSION)")

	bindEnv(v, pfs)
	bindEnv(v, fs)

	cmd.AddCommand(newSolveCmd(cfg, v))

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("wikirace v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
