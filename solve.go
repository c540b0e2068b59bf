/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Seednode/wikirace/navigator"
)

func newSolveCmd(cfg *Config, v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solve START GOAL",
		Short: "Run the navigator from START to GOAL and print each step.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return solve(cmd.Context(), cmd.OutOrStdout(), cfg, args[0], args[1])
		},
	}

	fs := cmd.Flags()
	fs.BoolVar(&cfg.noPacing, "no-pacing", false, "do not pause between steps (env: WIKIRACE_NO_PACING)")
	fs.Uint64Var(&cfg.seed, "seed", 0, "random seed for the greedy strategy, 0 for a random one (env: WIKIRACE_SEED)")

	bindEnv(v, fs)

	return cmd
}

func solve(ctx context.Context, w io.Writer, cfg *Config, start, goal string) error {
	src, err := cfg.newSource(ctx, false)
	if err != nil {
		return err
	}

	strategy, err := cfg.newStrategy("")
	if err != nil {
		return err
	}

	opts := []navigator.Option{
		navigator.WithStrategy(strategy),
		navigator.WithCallTimeout(cfg.requestTimeout),
		navigator.WithLogger(func(format string, args ...any) {
			logf(cfg, format, args...)
		}),
		navigator.WithOnStep(func(s navigator.Step) {
			fmt.Fprintf(w, "%3d. %s  (%s)\n", s.Order, s.Article, s.Reasoning)
		}),
	}
	if cfg.seed != 0 {
		opts = append(opts, navigator.WithRand(rand.New(rand.NewPCG(cfg.seed, cfg.seed))))
	}
	if cfg.noPacing {
		opts = append(opts, navigator.WithoutPacing())
	}

	nav := navigator.New(start, goal, src, opts...)

	result, err := nav.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s: %s after %s in %s\n",
		result.Strategy,
		result.State,
		formatHops(result.Hops()),
		result.Elapsed.Round(time.Millisecond),
	)

	if result.State == navigator.Succeeded {
		fmt.Fprintf(w, "path: %s\n", formatPath(result.Titles()))
	}

	return nil
}
