/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Wikirace races
//
// A host opens a race, picks (or rolls) a start and goal article, and races
// the navigator bot to the goal by following article links. Anyone with the
// race link can join and race alongside.
//
// Features:
// - WebSockets per race ID: /race/:raceid and /race/:raceid/ws
// - First connection to a race becomes the host, and only the host can start or stop it
// - Players identified by cookie (playerID) and keep their progress across reconnects
// - Moves are checked against the link list of the player's current article
// - The first player or bot to reach the goal wins, and a human win stops the bot
// - Races auto-reaped after configurable idle timeout
// - Random 8-char race IDs via crypto/rand, with server-side collision check
// - In-browser QR button to share the current race, backed by go-qrcode

package main

import (
	"context"
	"crypto/rand"
	"embed"
	"fmt"
	"log"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/Seednode/wikirace/navigator"
	"github.com/Seednode/wikirace/wiki"
)

const (
	botName        = "Navigator"
	startReasoning = "Starting point"
	moveReasoning  = "Followed a link"
	maxNameLength  = 32
)

// Racer holds the data we store server-side for each human player.
type Racer struct {
	PlayerID string
	Name     string
	Path     []navigator.Step
}

func (r *Racer) current() string {
	if len(r.Path) == 0 {
		return ""
	}
	return r.Path[len(r.Path)-1].Article
}

// Messages coming from clients
type ClientMessage struct {
	Type     string `json:"type"`               // "join", "start", "move", "stop"
	Name     string `json:"name,omitempty"`     // join
	Start    string `json:"start,omitempty"`    // start
	Goal     string `json:"goal,omitempty"`     // start
	Strategy string `json:"strategy,omitempty"` // start
	Article  string `json:"article,omitempty"`  // move
}

// SessionInfoMessage is sent immediately on connect so the client knows
// its name and whether it is the host.
type SessionInfoMessage struct {
	Type       string `json:"type"` // "session_info"
	RaceID     string `json:"race_id"`
	Name       string `json:"name"`
	IsHost     bool   `json:"is_host"`
	IsExisting bool   `json:"is_existing"`
}

type RacerState struct {
	Name string   `json:"name"`
	Path []string `json:"path"`
	Hops int      `json:"hops"`
}

type BotState struct {
	Name     string           `json:"name"`
	Strategy string           `json:"strategy"`
	State    navigator.State  `json:"state"`
	Steps    []navigator.Step `json:"steps"`
	Path     []string         `json:"path,omitempty"`
}

// RaceStateMessage is broadcast whenever the race changes shape.
type RaceStateMessage struct {
	Type      string       `json:"type"` // "race_state"
	Round     int          `json:"round"`
	Racing    bool         `json:"racing"`
	Host      string       `json:"host,omitempty"`
	Start     string       `json:"start,omitempty"`
	Goal      string       `json:"goal,omitempty"`
	StartedAt time.Time    `json:"started_at,omitzero"`
	Winner    string       `json:"winner,omitempty"`
	Players   []RacerState `json:"players"`
	Bot       *BotState    `json:"bot,omitempty"`
}

// BotStepMessage carries one step emitted by the navigator, committed or not.
type BotStepMessage struct {
	Type  string         `json:"type"` // "bot_step"
	Round int            `json:"round"`
	Step  navigator.Step `json:"step"`
}

type PlayerStepMessage struct {
	Type   string         `json:"type"` // "player_step"
	Round  int            `json:"round"`
	Player string         `json:"player"`
	Step   navigator.Step `json:"step"`
}

type FinishedMessage struct {
	Type    string   `json:"type"` // "finished"
	Round   int      `json:"round"`
	Winner  string   `json:"winner"`
	IsBot   bool     `json:"is_bot"`
	Path    []string `json:"path"`
	Hops    int      `json:"hops"`
	Elapsed string   `json:"elapsed"`
}

// ErrorMessage is sent only to the offending client.
type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}

type Client struct {
	conn     *websocket.Conn
	send     chan any
	playerID string
}

type joinRequest struct {
	client *Client
	name   string
}

type startRequest struct {
	client   *Client
	start    string
	goal     string
	strategy string
}

type moveRequest struct {
	client  *Client
	round   int
	from    string
	article string
}

type Hub struct {
	id  string
	cfg *Config
	src wiki.Source

	ctx    context.Context
	cancel context.CancelFunc

	clients map[*Client]bool
	racers  map[string]*Racer
	order   []string

	register chan *Client
	unreg    chan *Client
	joins    chan joinRequest
	starts   chan startRequest
	moves    chan moveRequest
	stops    chan *Client

	mu sync.RWMutex

	createdAt  time.Time
	lastActive time.Time
	hostID     string // cookie/playerID of the host

	round     int
	racing    bool
	start     string
	goal      string
	startedAt time.Time
	winner    string

	bot       *navigator.Navigator
	botCancel context.CancelFunc
	botState  navigator.State
	botSteps  []navigator.Step
	botPath   []string
}

func newHub(ctx context.Context, cfg *Config, src wiki.Source, raceID string) *Hub {
	ctx, cancel := context.WithCancel(ctx)
	now := time.Now()

	return &Hub{
		id:         raceID,
		cfg:        cfg,
		src:        src,
		ctx:        ctx,
		cancel:     cancel,
		clients:    make(map[*Client]bool),
		racers:     make(map[string]*Racer),
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		joins:      make(chan joinRequest),
		starts:     make(chan startRequest),
		moves:      make(chan moveRequest),
		stops:      make(chan *Client),
		createdAt:  now,
		lastActive: now,
	}
}

func (h *Hub) run() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case c := <-h.register:
			h.handleRegister(c)
		case c := <-h.unreg:
			h.handleUnregister(c)
		case jr := <-h.joins:
			h.handleJoin(jr)
		case sr := <-h.starts:
			h.handleStart(sr)
		case mr := <-h.moves:
			h.handleMove(mr)
		case c := <-h.stops:
			h.handleStop(c)
		}
	}
}

// submit hands a request to the run loop, giving up once the hub is closed.
func submit[T any](h *Hub, ch chan T, v T) bool {
	select {
	case ch <- v:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *Hub) handleRegister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	// First connection becomes host
	if h.hostID == "" {
		h.hostID = c.playerID
	}

	racer, isExisting := h.racers[c.playerID]
	if !isExisting {
		racer = &Racer{
			PlayerID: c.playerID,
			Name:     h.freeNameLocked(),
		}
		if h.racing {
			racer.Path = []navigator.Step{startStep(h.start, h.startedAt)}
		}
		h.racers[c.playerID] = racer
		h.order = append(h.order, c.playerID)
	}

	h.clients[c] = true

	h.sendLocked(c, SessionInfoMessage{
		Type:       "session_info",
		RaceID:     h.id,
		Name:       racer.Name,
		IsHost:     h.hostID == c.playerID,
		IsExisting: isExisting,
	})

	h.broadcastStateLocked()
}

func (h *Hub) handleUnregister(c *Client) {
	h.mu.Lock()
	h.lastActive = time.Now()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	playerID := c.playerID
	isHost := playerID == h.hostID
	h.mu.Unlock()

	// Host "leaving" does not end the race.
	if playerID != "" && !isHost && h.cfg.playerTimeout > 0 {
		time.AfterFunc(h.cfg.playerTimeout, func() {
			h.removeRacer(playerID)
		})
	}
}

// removeRacer drops a player's entry if no client with this playerID has
// reconnected in the meantime.
func (h *Hub) removeRacer(playerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if client.playerID == playerID {
			return
		}
	}

	if _, ok := h.racers[playerID]; !ok {
		return
	}

	delete(h.racers, playerID)
	h.order = slices.DeleteFunc(h.order, func(id string) bool {
		return id == playerID
	})

	h.lastActive = time.Now()

	h.broadcastStateLocked()
}

func (h *Hub) handleJoin(jr joinRequest) {
	h.mu.Lock()
	defer h.mu.Unlock()

	racer, ok := h.racers[jr.client.playerID]
	if !ok {
		return
	}

	name := strings.TrimSpace(jr.name)
	if name == "" {
		return
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		h.sendErrorLocked(jr.client, fmt.Sprintf("Names can be at most %d characters.", maxNameLength))
		return
	}
	if strings.EqualFold(name, botName) {
		h.sendErrorLocked(jr.client, "That name is taken.")
		return
	}
	for _, other := range h.racers {
		if other != racer && strings.EqualFold(other.Name, name) {
			h.sendErrorLocked(jr.client, "That name is taken.")
			return
		}
	}

	racer.Name = name
	h.lastActive = time.Now()

	h.sendLocked(jr.client, SessionInfoMessage{
		Type:       "session_info",
		RaceID:     h.id,
		Name:       racer.Name,
		IsHost:     h.hostID == jr.client.playerID,
		IsExisting: true,
	})

	h.broadcastStateLocked()
}

func (h *Hub) handleStart(sr startRequest) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := sr.client

	if c.playerID != h.hostID {
		h.sendErrorLocked(c, "Only the host can start a race.")
		return
	}
	if h.racing {
		h.sendErrorLocked(c, "A race is already running.")
		return
	}
	if sr.start == "" || sr.goal == "" || navigator.SameTitle(sr.start, sr.goal) {
		h.sendErrorLocked(c, "Pick two different articles.")
		return
	}

	strategy, err := h.cfg.newStrategy(sr.strategy)
	if err != nil {
		h.sendErrorLocked(c, fmt.Sprintf("Unknown strategy %q.", sr.strategy))
		return
	}

	now := time.Now()

	h.round++
	h.racing = true
	h.start = sr.start
	h.goal = sr.goal
	h.startedAt = now
	h.winner = ""
	h.lastActive = now

	for _, racer := range h.racers {
		racer.Path = []navigator.Step{startStep(sr.start, now)}
	}

	round := h.round
	opts := []navigator.Option{
		navigator.WithStrategy(strategy),
		navigator.WithCallTimeout(h.cfg.requestTimeout),
		navigator.WithLogger(func(format string, args ...any) {
			logf(h.cfg, format, args...)
		}),
		navigator.WithOnStep(func(step navigator.Step) {
			h.botStep(round, step)
		}),
	}
	if h.cfg.noPacing {
		opts = append(opts, navigator.WithoutPacing())
	}

	botCtx, cancel := context.WithCancel(h.ctx)

	h.bot = navigator.New(sr.start, sr.goal, h.src, opts...)
	h.botCancel = cancel
	h.botState = navigator.Running
	h.botSteps = nil
	h.botPath = nil

	logf(h.cfg, "RACES: Race %s round %d: %q to %q (%s)", h.id, round, sr.start, sr.goal, strategy.Name())

	go h.runBot(botCtx, cancel, h.bot, round)

	h.broadcastStateLocked()
}

func (h *Hub) runBot(ctx context.Context, cancel context.CancelFunc, nav *navigator.Navigator, round int) {
	defer cancel()

	result, err := nav.Run(ctx)
	if err != nil {
		log.Printf("race %s: %v", h.id, err)
		return
	}

	logf(h.cfg, "RACES: Race %s round %d: bot %s after %s in %s",
		h.id,
		round,
		result.State,
		formatHops(result.Hops()),
		result.Elapsed.Round(time.Millisecond),
	)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.round != round {
		return
	}

	h.botState = result.State
	h.botPath = result.Titles()
	h.lastActive = time.Now()

	if result.State == navigator.Succeeded && h.racing {
		h.finishLocked(botName, true, h.botPath)
		return
	}

	h.broadcastStateLocked()
}

func (h *Hub) botStep(round int, step navigator.Step) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.round != round {
		return
	}

	h.botSteps = append(h.botSteps, step)
	h.lastActive = time.Now()

	h.broadcastLocked(BotStepMessage{
		Type:  "bot_step",
		Round: round,
		Step:  step,
	})
}

func (h *Hub) handleMove(mr moveRequest) {
	h.mu.Lock()
	defer h.mu.Unlock()

	racer, ok := h.racers[mr.client.playerID]
	if !ok || !h.racing || h.round != mr.round {
		return
	}

	// The player moved on while the links were being fetched.
	if !navigator.SameTitle(racer.current(), mr.from) {
		return
	}

	step := navigator.Step{
		Article:   mr.article,
		Order:     len(racer.Path),
		Reasoning: moveReasoning,
		At:        time.Now(),
	}
	racer.Path = append(racer.Path, step)
	h.lastActive = step.At

	h.broadcastLocked(PlayerStepMessage{
		Type:   "player_step",
		Round:  h.round,
		Player: racer.Name,
		Step:   step,
	})

	if navigator.SameTitle(mr.article, h.goal) {
		h.finishLocked(racer.Name, false, pathTitles(racer.Path))
	}
}

func (h *Hub) handleStop(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c.playerID != h.hostID {
		h.sendErrorLocked(c, "Only the host can stop a race.")
		return
	}
	if !h.racing {
		return
	}

	h.racing = false
	h.lastActive = time.Now()
	h.stopBotLocked()

	logf(h.cfg, "RACES: Race %s round %d stopped by host", h.id, h.round)

	h.broadcastStateLocked()
}

// finishLocked ends the round with a winner and stops the bot if it is
// still walking.
func (h *Hub) finishLocked(winner string, isBot bool, path []string) {
	h.racing = false
	h.winner = winner
	h.stopBotLocked()

	elapsed := time.Since(h.startedAt)

	logf(h.cfg, "RACES: Race %s round %d won by %s in %s", h.id, h.round, winner, elapsed.Round(time.Millisecond))

	h.broadcastLocked(FinishedMessage{
		Type:    "finished",
		Round:   h.round,
		Winner:  winner,
		IsBot:   isBot,
		Path:    path,
		Hops:    max(len(path)-1, 0),
		Elapsed: formatElapsed(elapsed),
	})
	h.broadcastStateLocked()
}

// stopBotLocked halts the current bot, including one whose run has not
// started yet.
func (h *Hub) stopBotLocked() {
	if h.botCancel != nil {
		h.botCancel()
	}
	if h.bot != nil {
		h.bot.Stop()
	}
}

// position returns the round and current article of a player, and whether
// that player can move right now.
func (h *Hub) position(playerID string) (int, string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	racer, ok := h.racers[playerID]
	if !ok || !h.racing {
		return 0, "", false
	}
	return h.round, racer.current(), true
}

func (h *Hub) freeNameLocked() string {
	for i := len(h.racers) + 1; ; i++ {
		name := fmt.Sprintf("Player %d", i)
		taken := false
		for _, r := range h.racers {
			if strings.EqualFold(r.Name, name) {
				taken = true
				break
			}
		}
		if !taken {
			return name
		}
	}
}

func (h *Hub) stateLocked() RaceStateMessage {
	msg := RaceStateMessage{
		Type:      "race_state",
		Round:     h.round,
		Racing:    h.racing,
		Start:     h.start,
		Goal:      h.goal,
		StartedAt: h.startedAt,
		Winner:    h.winner,
		Players:   make([]RacerState, 0, len(h.order)),
	}

	if host, ok := h.racers[h.hostID]; ok {
		msg.Host = host.Name
	}

	for _, id := range h.order {
		racer, ok := h.racers[id]
		if !ok {
			continue
		}
		path := pathTitles(racer.Path)
		msg.Players = append(msg.Players, RacerState{
			Name: racer.Name,
			Path: path,
			Hops: max(len(path)-1, 0),
		})
	}

	if h.bot != nil {
		msg.Bot = &BotState{
			Name:     botName,
			Strategy: h.bot.Strategy(),
			State:    h.botState,
			Steps:    slices.Clone(h.botSteps),
			Path:     h.botPath,
		}
	}

	return msg
}

func (h *Hub) broadcastStateLocked() {
	h.broadcastLocked(h.stateLocked())
}

func (h *Hub) broadcastLocked(msg any) {
	for client := range h.clients {
		h.sendLocked(client, msg)
	}
}

// sendLocked drops clients whose send buffer is full.
func (h *Hub) sendLocked(c *Client, msg any) {
	if !h.clients[c] {
		return
	}

	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) sendErrorLocked(c *Client, message string) {
	h.sendLocked(c, ErrorMessage{
		Type:    "error",
		Message: message,
	})
}

func (h *Hub) sendError(c *Client, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sendErrorLocked(c, message)
}

// closeAll disconnects all clients of this hub and stops its bot (used by reaper).
func (h *Hub) closeAll() {
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(h.clients, c)
	}
}

func startStep(article string, at time.Time) navigator.Step {
	return navigator.Step{
		Article:   article,
		Order:     0,
		Reasoning: startReasoning,
		At:        at,
	}
}

func pathTitles(path []navigator.Step) []string {
	titles := make([]string, len(path))
	for i, step := range path {
		titles[i] = step.Article
	}
	return titles
}

// followLink returns the canonical title of article if it is linked from
// from, according to src.
func followLink(ctx context.Context, src wiki.Source, from, article string) (string, error) {
	links, err := src.Links(ctx, from)
	if err != nil {
		return "", err
	}

	i := slices.IndexFunc(links, func(link string) bool {
		return !navigator.IsNamespaced(link) && navigator.SameTitle(link, article)
	})
	if i < 0 {
		return "", fmt.Errorf("%q is not linked from %q", article, from)
	}

	return links[i], nil
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const playerCookieName = "wikirace_id"

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	u, err := uuid.NewRandom()
	if err != nil {
		log.Println("uuid error:", err)
		return ""
	}
	id := u.String()

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// RaceManager holds a set of hubs keyed by race ID, so each /race/$raceid
// is its own isolated session.
type RaceManager struct {
	ctx         context.Context
	cfg         *Config
	src         wiki.Source
	mu          sync.Mutex
	hubs        map[string]*Hub
	idleTimeout time.Duration
}

func newRaceManager(ctx context.Context, cfg *Config, src wiki.Source) *RaceManager {
	rm := &RaceManager{
		ctx:         ctx,
		cfg:         cfg,
		src:         src,
		hubs:        make(map[string]*Hub),
		idleTimeout: cfg.sessionTimeout,
	}
	if rm.idleTimeout > 0 {
		go rm.reaperLoop()
	}
	return rm
}

func (rm *RaceManager) getHub(raceID string) *Hub {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if hub, ok := rm.hubs[raceID]; ok {
		return hub
	}

	hub := newHub(rm.ctx, rm.cfg, rm.src, raceID)
	rm.hubs[raceID] = hub
	go hub.run()
	return hub
}

// newRaceID generates a crypto-random race ID and ensures it doesn't
// collide with existing races.
func (rm *RaceManager) newRaceID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	for {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, 8)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		id := string(out)

		rm.mu.Lock()
		_, exists := rm.hubs[id]
		rm.mu.Unlock()

		if !exists {
			return id
		}
	}
}

// reaperLoop periodically removes hubs that have been idle longer than
// idleTimeout, and closes every hub once the server shuts down.
func (rm *RaceManager) reaperLoop() {
	ticker := time.NewTicker(rm.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-rm.ctx.Done():
			rm.reap(time.Now().Add(time.Hour))
			return
		case <-ticker.C:
			rm.reap(time.Now().Add(-rm.idleTimeout))
		}
	}
}

func (rm *RaceManager) reap(cutoff time.Time) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	for id, hub := range rm.hubs {
		hub.mu.RLock()
		last := hub.lastActive
		hub.mu.RUnlock()

		if last.Before(cutoff) {
			delete(rm.hubs, id)
			logf(rm.cfg, "RACES: Reaped race %s", id)
			go hub.closeAll()
		}
	}
}

// WebSocket handler that picks the hub based on :raceid
func serveRaceWS(cfg *Config, rm *RaceManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		raceID := ps.ByName("raceid")
		if raceID == "" {
			http.Error(w, "missing race id", http.StatusBadRequest)
			return
		}

		playerID := getOrSetPlayerID(w, r)
		if playerID == "" {
			http.Error(w, "unable to assign player id", http.StatusInternalServerError)
			return
		}

		hub := rm.getHub(raceID)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := &Client{
			conn:     conn,
			send:     make(chan any, 32),
			playerID: playerID,
		}

		if !submit(hub, hub.register, client) {
			_ = conn.Close()
			return
		}

		logf(cfg, "RACES: Player %s connected to race %s from %s", playerID[:min(8, len(playerID))], raceID, realIP(r))

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		submit(h, h.unreg, c)
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		var ok bool
		switch msg.Type {
		case "join":
			ok = submit(h, h.joins, joinRequest{client: c, name: msg.Name})
		case "start":
			ok = c.requestStart(h, msg)
		case "move":
			ok = c.requestMove(h, msg)
		case "stop":
			ok = submit(h, h.stops, c)
		default:
			// ignore unknown types
			ok = true
		}
		if !ok {
			return
		}
	}
}

// requestStart rolls a random pair when either article is missing. Lookups
// run here so the hub loop never waits on the wiki.
func (c *Client) requestStart(h *Hub, msg ClientMessage) bool {
	start := strings.TrimSpace(msg.Start)
	goal := strings.TrimSpace(msg.Goal)

	if start == "" || goal == "" {
		ctx, cancel := context.WithTimeout(h.ctx, h.cfg.requestTimeout)
		defer cancel()

		randomStart, randomGoal, err := wiki.RandomPair(ctx, h.src)
		if err != nil {
			logf(h.cfg, "RACES: Race %s: random pair failed: %v", h.id, err)
			h.sendError(c, "Could not pick random articles. Please try again.")
			return h.ctx.Err() == nil
		}
		if start == "" {
			start = randomStart
		}
		if goal == "" {
			goal = randomGoal
		}
	}

	return submit(h, h.starts, startRequest{
		client:   c,
		start:    start,
		goal:     goal,
		strategy: msg.Strategy,
	})
}

func (c *Client) requestMove(h *Hub, msg ClientMessage) bool {
	round, from, ok := h.position(c.playerID)
	if !ok {
		h.sendError(c, "The race is not running.")
		return true
	}

	ctx, cancel := context.WithTimeout(h.ctx, h.cfg.requestTimeout)
	defer cancel()

	article, err := followLink(ctx, h.src, from, strings.TrimSpace(msg.Article))
	if err != nil {
		h.sendError(c, fmt.Sprintf("Invalid move: %v", err))
		return h.ctx.Err() == nil
	}

	return submit(h, h.moves, moveRequest{
		client:  c,
		round:   round,
		from:    from,
		article: article,
	})
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// QR handler: generates a PNG QR code for the current race URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	raceID := ps.ByName("raceid")
	if raceID == "" {
		http.Error(w, "missing race id", http.StatusBadRequest)
		return
	}

	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /.../:raceid/qr; strip trailing "/qr" to get the race URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(scheme+"://"+r.Host+path, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

//go:embed race/*
var raceAssets embed.FS

func serveRaceAsset(cfg *Config, name, contentType string) httprouter.Handle {
	data, err := raceAssets.ReadFile("race/" + name)
	if err != nil {
		panic(err)
	}

	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		if name == "index.html" {
			_ = getOrSetPlayerID(w, r)
		}

		_, _ = w.Write(data)
	}
}

// redirectNewRace handles GET /race by generating a new random race ID
// (with server-side collision detection) and redirecting to /race/:raceid.
func redirectNewRace(cfg *Config, path string, rm *RaceManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		raceID := rm.newRaceID()
		logf(cfg, "RACES: Created race %s/%s", path, raceID)
		http.Redirect(w, r, cfg.prefix+path+"/"+raceID, http.StatusTemporaryRedirect)
	}
}

// registerRaces sets up routes so that:
//   - $path                  → redirects to new random race (8-char ID)
//   - $path/:raceid          → HTML client
//   - $path/:raceid/ws       → WebSocket for that race
//   - $path/:raceid/qr       → PNG QR code for that race URL
func registerRaces(cfg *Config, path string, mux *httprouter.Router, rm *RaceManager) {
	mux.GET(cfg.prefix+path, redirectNewRace(cfg, path, rm))

	mux.GET(cfg.prefix+path+"/:raceid", serveRaceAsset(cfg, "index.html", "text/html; charset=utf-8"))

	mux.GET(cfg.prefix+"/assets/race/app.css", serveRaceAsset(cfg, "app.css", "text/css; charset=utf-8"))
	mux.GET(cfg.prefix+"/assets/race/app.js", serveRaceAsset(cfg, "app.js", "application/javascript; charset=utf-8"))

	mux.GET(cfg.prefix+path+"/:raceid/ws", serveRaceWS(cfg, rm))

	mux.GET(cfg.prefix+path+"/:raceid/qr", qrHandler)
}
