/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runSolve(t *testing.T, args ...string) string {
	t.Helper()

	cmd := newCmd(&Config{})

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(append([]string{"solve"}, args...))

	require.NoError(t, cmd.Execute())

	return out.String()
}

func TestSolve_Greedy(t *testing.T) {
	graph := writeGraph(t)

	out := runSolve(t, "Pizza", "Italy", "--graph", graph, "--no-pacing", "--seed", "7")

	assert.Contains(t, out, "  0. Pizza  (Starting point)\n")
	assert.Contains(t, out, "  1. Naples  (")
	assert.Contains(t, out, "  2. Italy  (Found connection to \"Italy\")\n")
	assert.Contains(t, out, "greedy: succeeded after 2 hops in ")
	assert.Contains(t, out, "path: Pizza → Naples → Italy\n")
}

func TestSolve_Frontier(t *testing.T) {
	graph := writeGraph(t)

	out := runSolve(t, "Pizza", "Rome", "--graph", graph, "--no-pacing", "--strategy", "frontier")

	assert.Contains(t, out, "frontier: succeeded after 3 hops in ")
	assert.Contains(t, out, "path: Pizza → Naples → Italy → Rome\n")
}

func TestSolve_FrontierDepthCap(t *testing.T) {
	graph := writeGraph(t)

	out := runSolve(t, "Pizza", "Rome", "--graph", graph, "--no-pacing", "-s", "frontier", "--depth-cap", "2")

	assert.Contains(t, out, "frontier: failed after 0 hops in ")
	assert.NotContains(t, out, "path:")
}

func TestSolve_Errors(t *testing.T) {
	graph := writeGraph(t)

	tests := []struct {
		name string
		args []string
	}{
		{name: "missing goal", args: []string{"solve", "Pizza"}},
		{name: "unknown strategy", args: []string{"solve", "Pizza", "Italy", "--graph", graph, "--strategy", "astar"}},
		{name: "missing graph", args: []string{"solve", "Pizza", "Italy", "--graph", graph + ".missing"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newCmd(&Config{})
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs(tt.args)

			assert.Error(t, cmd.Execute())
		})
	}
}
