/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/wikirace/navigator"
	"github.com/Seednode/wikirace/wiki"
)

type raceStateView struct {
	Round   int          `json:"round"`
	Racing  bool         `json:"racing"`
	Host    string       `json:"host"`
	Start   string       `json:"start"`
	Goal    string       `json:"goal"`
	Winner  string       `json:"winner"`
	Players []RacerState `json:"players"`
	Bot     *struct {
		Strategy string `json:"strategy"`
		State    string `json:"state"`
	} `json:"bot"`
}

func raceServer(t *testing.T, cfg *Config) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(testRouter(t, cfg))
	t.Cleanup(srv.Close)

	return srv
}

func dialRace(t *testing.T, srv *httptest.Server, raceID, playerID string) *websocket.Conn {
	t.Helper()

	header := http.Header{}
	if playerID != "" {
		header.Set("Cookie", playerCookieName+"="+playerID)
	}

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/race/" + raceID + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })

	return conn
}

// expect reads messages until one of the given type arrives and decodes it
// into out. Messages of other types are passed to skipped, if set.
func expect(t *testing.T, conn *websocket.Conn, typ string, out any, skipped ...func(string, json.RawMessage)) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	for {
		var raw json.RawMessage
		require.NoError(t, conn.ReadJSON(&raw), "waiting for %s", typ)

		var head struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(raw, &head))

		if head.Type == typ {
			if out != nil {
				require.NoError(t, json.Unmarshal(raw, out))
			}
			return
		}

		for _, fn := range skipped {
			fn(head.Type, raw)
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, msg ClientMessage) {
	t.Helper()

	require.NoError(t, conn.WriteJSON(msg))
}

func TestRace_BotWins(t *testing.T) {
	srv := raceServer(t, validConfig())
	host := dialRace(t, srv, "botwins1", "")

	var info SessionInfoMessage
	expect(t, host, "session_info", &info)
	assert.True(t, info.IsHost)
	assert.False(t, info.IsExisting)
	assert.Equal(t, "Player 1", info.Name)
	assert.Equal(t, "botwins1", info.RaceID)

	send(t, host, ClientMessage{Type: "start", Start: "Pizza", Goal: "Italy", Strategy: "greedy"})

	var botSteps []string
	var finished FinishedMessage
	expect(t, host, "finished", &finished, func(typ string, raw json.RawMessage) {
		if typ != "bot_step" {
			return
		}
		var msg BotStepMessage
		require.NoError(t, json.Unmarshal(raw, &msg))
		botSteps = append(botSteps, msg.Step.Article)
	})

	assert.Equal(t, botName, finished.Winner)
	assert.True(t, finished.IsBot)
	assert.Equal(t, 1, finished.Round)
	assert.Equal(t, 2, finished.Hops)
	if diff := cmp.Diff([]string{"Pizza", "Naples", "Italy"}, finished.Path); diff != "" {
		t.Errorf("bot path mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Pizza", "Naples", "Italy"}, botSteps); diff != "" {
		t.Errorf("bot steps mismatch (-want +got):\n%s", diff)
	}

	var state raceStateView
	expect(t, host, "race_state", &state)
	assert.False(t, state.Racing)
	assert.Equal(t, botName, state.Winner)
}

// With a depth cap of one the frontier bot cannot reach a goal two hops away,
// leaving the race to the players.
func stuckBotConfig() *Config {
	cfg := validConfig()
	cfg.depthCap = 1
	return cfg
}

func startStuckRace(t *testing.T, host *websocket.Conn) {
	t.Helper()

	expect(t, host, "session_info", nil)
	send(t, host, ClientMessage{Type: "start", Start: "Pizza", Goal: "Italy", Strategy: "frontier"})

	var state raceStateView
	for state.Bot == nil || state.Bot.State != navigator.Failed.String() {
		expect(t, host, "race_state", &state)
	}
	require.True(t, state.Racing)
}

func TestRace_PlayerWins(t *testing.T) {
	srv := raceServer(t, stuckBotConfig())
	host := dialRace(t, srv, "playwin1", "")
	startStuckRace(t, host)

	send(t, host, ClientMessage{Type: "move", Article: "naples"})

	var step PlayerStepMessage
	expect(t, host, "player_step", &step)
	assert.Equal(t, "Player 1", step.Player)
	assert.Equal(t, "Naples", step.Step.Article)
	assert.Equal(t, 1, step.Step.Order)

	send(t, host, ClientMessage{Type: "move", Article: "Italy"})

	var finished FinishedMessage
	expect(t, host, "finished", &finished)
	assert.Equal(t, "Player 1", finished.Winner)
	assert.False(t, finished.IsBot)
	assert.Equal(t, []string{"Pizza", "Naples", "Italy"}, finished.Path)

	send(t, host, ClientMessage{Type: "move", Article: "Rome"})

	var errMsg ErrorMessage
	expect(t, host, "error", &errMsg)
	assert.Equal(t, "The race is not running.", errMsg.Message)
}

func TestRace_InvalidMoves(t *testing.T) {
	srv := raceServer(t, stuckBotConfig())
	host := dialRace(t, srv, "invalid1", "")
	startStuckRace(t, host)

	for _, article := range []string{"Rome", "Category:Foods", ""} {
		send(t, host, ClientMessage{Type: "move", Article: article})

		var errMsg ErrorMessage
		expect(t, host, "error", &errMsg)
		assert.True(t, strings.HasPrefix(errMsg.Message, "Invalid move: "), errMsg.Message)
	}

	send(t, host, ClientMessage{Type: "move", Article: "Naples"})
	expect(t, host, "player_step", nil)
}

func TestRace_HostOnlyCommands(t *testing.T) {
	srv := raceServer(t, stuckBotConfig())
	host := dialRace(t, srv, "hostonly", "")
	expect(t, host, "session_info", nil)

	guest := dialRace(t, srv, "hostonly", "")

	var info SessionInfoMessage
	expect(t, guest, "session_info", &info)
	assert.False(t, info.IsHost)
	assert.Equal(t, "Player 2", info.Name)

	send(t, guest, ClientMessage{Type: "start", Start: "Pizza", Goal: "Italy"})

	var errMsg ErrorMessage
	expect(t, guest, "error", &errMsg)
	assert.Equal(t, "Only the host can start a race.", errMsg.Message)

	send(t, guest, ClientMessage{Type: "stop"})
	expect(t, guest, "error", &errMsg)
	assert.Equal(t, "Only the host can stop a race.", errMsg.Message)
}

func TestRace_StartValidation(t *testing.T) {
	srv := raceServer(t, validConfig())
	host := dialRace(t, srv, "validate", "")
	expect(t, host, "session_info", nil)

	tests := []struct {
		msg  ClientMessage
		want string
	}{
		{msg: ClientMessage{Type: "start", Start: "Pizza", Goal: "pizza"}, want: "Pick two different articles."},
		{msg: ClientMessage{Type: "start", Start: "Pizza", Goal: "Italy", Strategy: "astar"}, want: `Unknown strategy "astar".`},
	}

	for _, tt := range tests {
		send(t, host, tt.msg)

		var errMsg ErrorMessage
		expect(t, host, "error", &errMsg)
		assert.Equal(t, tt.want, errMsg.Message)
	}
}

func TestRace_Stop(t *testing.T) {
	cfg := validConfig()
	cfg.noPacing = false
	srv := raceServer(t, cfg)

	host := dialRace(t, srv, "stopping", "")
	expect(t, host, "session_info", nil)

	send(t, host, ClientMessage{Type: "start", Start: "Pizza", Goal: "Rome", Strategy: "greedy"})

	var state raceStateView
	for !state.Racing {
		expect(t, host, "race_state", &state)
	}

	send(t, host, ClientMessage{Type: "stop"})

	for state.Racing {
		expect(t, host, "race_state", &state)
	}
	assert.Empty(t, state.Winner)

	for state.Bot == nil || state.Bot.State != navigator.Cancelled.String() {
		expect(t, host, "race_state", &state)
	}
}

func TestRace_Rename(t *testing.T) {
	srv := raceServer(t, validConfig())
	host := dialRace(t, srv, "renaming", "")
	expect(t, host, "session_info", nil)

	guest := dialRace(t, srv, "renaming", "")
	expect(t, guest, "session_info", nil)

	send(t, guest, ClientMessage{Type: "join", Name: "  Ada  "})

	var info SessionInfoMessage
	expect(t, guest, "session_info", &info)
	assert.Equal(t, "Ada", info.Name)

	var state raceStateView
	for len(state.Players) != 2 || state.Players[1].Name != "Ada" {
		expect(t, host, "race_state", &state)
	}
	assert.Equal(t, "Player 1", state.Host)

	for _, name := range []string{"ada", "navigator", strings.Repeat("x", maxNameLength+1)} {
		send(t, host, ClientMessage{Type: "join", Name: name})

		var errMsg ErrorMessage
		expect(t, host, "error", &errMsg)
		assert.NotEmpty(t, errMsg.Message)
	}
}

func TestRace_ReconnectKeepsProgress(t *testing.T) {
	srv := raceServer(t, stuckBotConfig())

	host := dialRace(t, srv, "reconnect", "host-cookie")
	startStuckRace(t, host)

	send(t, host, ClientMessage{Type: "move", Article: "Naples"})
	expect(t, host, "player_step", nil)
	require.NoError(t, host.Close())

	again := dialRace(t, srv, "reconnect", "host-cookie")

	var info SessionInfoMessage
	expect(t, again, "session_info", &info)
	assert.True(t, info.IsHost)
	assert.True(t, info.IsExisting)

	var state raceStateView
	expect(t, again, "race_state", &state)
	require.Len(t, state.Players, 1)
	assert.Equal(t, []string{"Pizza", "Naples"}, state.Players[0].Path)
	assert.Equal(t, 1, state.Players[0].Hops)
}

func TestFollowLink(t *testing.T) {
	g, err := wiki.ParseGraph([]byte(raceGraph))
	require.NoError(t, err)

	ctx := context.Background()

	article, err := followLink(ctx, g, "Pizza", "NAPLES")
	require.NoError(t, err)
	assert.Equal(t, "Naples", article)

	_, err = followLink(ctx, g, "Pizza", "Category:Foods")
	assert.Error(t, err)

	_, err = followLink(ctx, g, "Pizza", "Italy")
	assert.EqualError(t, err, `"Italy" is not linked from "Pizza"`)

	_, err = followLink(ctx, g, "Cheese", "Pizza")
	assert.Error(t, err)
}

func TestRaceManager_IDsAndReaping(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := validConfig()
	g, err := wiki.ParseGraph([]byte(raceGraph))
	require.NoError(t, err)

	rm := newRaceManager(ctx, cfg, g)

	seen := make(map[string]bool)
	for range 50 {
		id := rm.newRaceID()
		assert.Len(t, id, 8)
		assert.False(t, seen[id])
		seen[id] = true
	}

	hub := rm.getHub("reapme12")
	assert.Same(t, hub, rm.getHub("reapme12"))

	rm.reap(time.Now().Add(-time.Hour))
	assert.Same(t, hub, rm.getHub("reapme12"))

	rm.reap(time.Now().Add(time.Minute))

	select {
	case <-hub.ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("reaped hub was not closed")
	}

	assert.NotSame(t, hub, rm.getHub("reapme12"))
}

func TestHub_RemoveRacer(t *testing.T) {
	cfg := validConfig()
	hub := newHub(context.Background(), cfg, nil, "removals")
	defer hub.cancel()

	hub.racers["gone"] = &Racer{PlayerID: "gone", Name: "Player 1"}
	hub.order = []string{"gone"}

	hub.removeRacer("gone")

	assert.Empty(t, hub.racers)
	assert.Empty(t, hub.order)
}
