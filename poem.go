// Poembox poem game
//
// Each player starts a poem with an opening line, then the poems rotate:
// every step, each player extends a different poem, seeing only a bounded
// hint of the previous line. When every poem has passed through every
// player, the host replays the results line by line.
//
// Implementation details:
// - One hub goroutine per session drives the game.Match actor on a fixed
//   tick; websocket clients only feed messages into the hub's inbox
// - Players identified by cookie on first connection
// - Random 8-char session IDs via crypto/rand, with collision check
// - Sessions auto-reaped after configurable idle timeout
// - In-browser QR button to share the current session, backed by go-qrcode
// - On SIGTERM, in-progress sessions snapshot into SQLite and are restored
//   (with shifted deadlines) on the next start

package main

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/poembox/poembox/game"
	"github.com/poembox/poembox/store"
)

// Messages crossing the websocket. Payloads stay wire-encoded; the socket
// layer only frames them with an opcode.
type wsClientMessage struct {
	Op   int    `json:"op"`
	Data string `json:"data,omitempty"`
}

type wsServerMessage struct {
	Op    int    `json:"op,omitempty"`
	Data  string `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

type Client struct {
	conn   *websocket.Conn
	send   chan wsServerMessage
	userID string
}

type joinRequest struct {
	client *Client
	reply  chan error
}

// Hub owns one session: its match state machine, its connected clients,
// and the tick loop. All match access happens on the hub goroutine.
type Hub struct {
	id      string
	match   *game.Match
	clients map[string]*Client // by userID

	register  chan joinRequest
	unreg     chan *Client
	inbox     chan game.Envelope
	terminate chan chan *game.Snapshot
	done      chan struct{}
	stopOnce  sync.Once

	lastActive atomic.Int64 // unix seconds
}

func newHub(sessionID string, match *game.Match) *Hub {
	h := &Hub{
		id:        sessionID,
		match:     match,
		clients:   make(map[string]*Client),
		register:  make(chan joinRequest),
		unreg:     make(chan *Client),
		inbox:     make(chan game.Envelope, 256),
		terminate: make(chan chan *game.Snapshot),
		done:      make(chan struct{}),
	}
	h.touch()
	return h
}

func (h *Hub) touch() {
	h.lastActive.Store(time.Now().Unix())
}

func (h *Hub) stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) run(cfg *Config) {
	ticker := time.NewTicker(cfg.tickInterval)
	defer ticker.Stop()

	var pending []game.Envelope

	for {
		select {
		case <-h.done:
			for _, c := range h.clients {
				close(c.send)
			}
			h.clients = nil
			return

		case jr := <-h.register:
			err := h.match.JoinAttempt(jr.client.userID)
			if err == nil {
				h.clients[jr.client.userID] = jr.client
				h.match.Join(jr.client.userID, time.Now(), h)
				h.touch()
			}
			jr.reply <- err

		case c := <-h.unreg:
			if h.clients[c.userID] == c {
				delete(h.clients, c.userID)
				h.match.Leave([]string{c.userID}, time.Now(), h)
			}
			close(c.send)
			h.touch()

		case env := <-h.inbox:
			pending = append(pending, env)
			h.touch()

		case <-ticker.C:
			h.match.Tick(time.Now(), pending, h)
			pending = nil

		case reply := <-h.terminate:
			snap := h.match.Terminate(time.Now(), int(cfg.terminateGrace.Seconds()), h)
			reply <- snap
		}
	}
}

// Broadcast implements game.Dispatcher. Sends are fire-and-forget: a slow
// consumer loses the message rather than stalling the tick.
func (h *Hub) Broadcast(op game.OpCode, data string, to ...string) {
	msg := wsServerMessage{Op: int(op), Data: data}

	if len(to) == 0 {
		for _, c := range h.clients {
			select {
			case c.send <- msg:
			default:
			}
		}
		return
	}

	for _, id := range to {
		if c, ok := h.clients[id]; ok {
			select {
			case c.send <- msg:
			default:
			}
		}
	}
}

// Kick implements game.Dispatcher by closing the target's socket; the
// read pump then unregisters the presence through the normal path.
func (h *Hub) Kick(userIDs ...string) {
	for _, id := range userIDs {
		if c, ok := h.clients[id]; ok {
			_ = c.conn.Close()
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const playerCookieName = "poembox_id"

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	id := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// SessionManager holds the live hubs keyed by session ID, plus the
// snapshot store used for crash/restart recovery.
type SessionManager struct {
	mu        sync.Mutex
	hubs      map[string]*Hub
	cfg       *Config
	snapshots *store.Store // nil when persistence is disabled
}

func newSessionManager(cfg *Config, snapshots *store.Store) *SessionManager {
	sm := &SessionManager{
		hubs:      make(map[string]*Hub),
		cfg:       cfg,
		snapshots: snapshots,
	}
	if cfg.sessionTimeout > 0 {
		go sm.reaperLoop()
	}
	return sm
}

func (sm *SessionManager) getHub(sessionID, language string) *Hub {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if hub, ok := sm.hubs[sessionID]; ok {
		return hub
	}

	match := game.New(language, sm.cfg.reconnectGrace, func(format string, args ...any) {
		logf(sm.cfg, "GAME %s: "+format, append([]any{sessionID}, args...)...)
	})
	hub := newHub(sessionID, match)
	sm.hubs[sessionID] = hub
	go hub.run(sm.cfg)
	return hub
}

// newSessionID generates a crypto-random session ID and ensures it doesn't
// collide with live sessions.
func (sm *SessionManager) newSessionID() string {
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

		sm.mu.Lock()
		_, exists := sm.hubs[id]
		sm.mu.Unlock()

		if !exists {
			return id
		}
	}
}

// restoreAll rebuilds sessions from persisted snapshots at startup. The
// restored players are invited back out-of-band; with no side channel
// available that currently means the server log.
func (sm *SessionManager) restoreAll() {
	if sm.snapshots == nil {
		return
	}

	blobs, err := sm.snapshots.All()
	if err != nil {
		logf(sm.cfg, "RESTORE: reading snapshots: %v", err)
		return
	}

	now := time.Now()
	for id, blob := range blobs {
		snap, err := game.DecodeSnapshot(blob)
		if err != nil {
			logf(sm.cfg, "RESTORE: snapshot %s unreadable, dropping: %v", id, err)
			_ = sm.snapshots.Delete(id)
			continue
		}

		players := snap.PreviouslyConnected()
		match := game.Restore(snap, now, sm.cfg.reconnectGrace, func(format string, args ...any) {
			logf(sm.cfg, "GAME %s: "+format, append([]any{id}, args...)...)
		})

		hub := newHub(id, match)
		sm.mu.Lock()
		sm.hubs[id] = hub
		sm.mu.Unlock()
		go hub.run(sm.cfg)

		_ = sm.snapshots.Delete(id)
		logf(sm.cfg, "RESTORE: session %s ready, awaiting %s", id, strings.Join(players, ", "))
	}
}

// reaperLoop periodically removes hubs that have been idle longer than the
// session timeout.
func (sm *SessionManager) reaperLoop() {
	ticker := time.NewTicker(sm.cfg.sessionTimeout / 2)
	for range ticker.C {
		cutoff := time.Now().Add(-sm.cfg.sessionTimeout).Unix()

		sm.mu.Lock()
		for id, hub := range sm.hubs {
			if hub.lastActive.Load() < cutoff {
				delete(sm.hubs, id)
				hub.stop()
				logf(sm.cfg, "GAMES: Reaped idle session %s", id)
			}
		}
		sm.mu.Unlock()
	}
}

// shutdownAll terminates every live session, persisting a snapshot for
// each one that has something worth restoring. A snapshot write failure is
// logged and treated as "no restore possible" rather than blocking
// shutdown.
func (sm *SessionManager) shutdownAll() {
	sm.mu.Lock()
	hubs := make(map[string]*Hub, len(sm.hubs))
	for id, hub := range sm.hubs {
		hubs[id] = hub
	}
	sm.hubs = make(map[string]*Hub)
	sm.mu.Unlock()

	for id, hub := range hubs {
		reply := make(chan *game.Snapshot, 1)
		select {
		case hub.terminate <- reply:
			if snap := <-reply; snap != nil && sm.snapshots != nil {
				blob, err := snap.Encode()
				if err == nil {
					err = sm.snapshots.Save(id, blob, snap.SavedAt)
				}
				if err != nil {
					logf(sm.cfg, "SHUTDOWN: snapshot %s not saved, no restore possible: %v", id, err)
				} else {
					logf(sm.cfg, "SHUTDOWN: snapshot %s saved", id)
				}
			}
		case <-time.After(2 * time.Second):
			logf(sm.cfg, "SHUTDOWN: session %s unresponsive, skipping snapshot", id)
		}
		hub.stop()
	}
}

// WebSocket handler that picks the hub based on :gameid.
func serveWSForManager(cfg *Config, sm *SessionManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		sessionID := ps.ByName("gameid")
		if sessionID == "" {
			http.Error(w, "missing session id", http.StatusBadRequest)
			return
		}

		userID := getOrSetPlayerID(w, r)
		if userID == "" {
			http.Error(w, "unable to assign player id", http.StatusInternalServerError)
			return
		}

		language := r.URL.Query().Get("lang")
		if language == "" {
			language = cfg.defaultLanguage
		}
		hub := sm.getHub(sessionID, language)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "GAMES: upgrade error: %v", err)
			return
		}

		client := &Client{
			conn:   conn,
			send:   make(chan wsServerMessage, 32),
			userID: userID,
		}

		reply := make(chan error, 1)
		select {
		case hub.register <- joinRequest{client: client, reply: reply}:
		case <-hub.done:
			_ = conn.Close()
			return
		}

		if err := <-reply; err != nil {
			_ = conn.WriteJSON(wsServerMessage{Error: err.Error()})
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	for {
		var msg wsClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Op == 0 {
			continue
		}

		select {
		case h.inbox <- game.Envelope{Sender: c.userID, Op: game.OpCode(msg.Op), Data: msg.Data}:
		case <-h.done:
			return
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// QR handler: generates a PNG QR code for the current session URL using
// go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	sessionID := ps.ByName("gameid")
	if sessionID == "" {
		http.Error(w, "missing session id", http.StatusBadRequest)
		return
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /.../:gameid/qr; strip trailing "/qr" to get the session URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// redirectNewGame handles GET /path by creating a new session ID (with
// collision detection) and redirecting to /path/:gameid, preserving the
// creator's preferred language.
func redirectNewGame(cfg *Config, path string, sm *SessionManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		sessionID := sm.newSessionID()
		logf(cfg, "GAMES: Created session %s/%s", path, sessionID)

		target := path + "/" + sessionID
		if lang := r.URL.Query().Get("lang"); lang != "" {
			target += "?lang=" + lang
		}
		http.Redirect(w, r, target, http.StatusTemporaryRedirect)
	}
}

// registerPoemGame sets up routes so that:
//   - $path             → redirects to a new session (8-char ID)
//   - $path/:gameid     → HTML client
//   - $path/:gameid/ws  → WebSocket for that session
//   - $path/:gameid/qr  → PNG QR code for that session URL
func registerPoemGame(cfg *Config, path string, mux *httprouter.Router, sm *SessionManager) {
	mux.GET(cfg.prefix+path, redirectNewGame(cfg, cfg.prefix+path, sm))

	mux.GET(cfg.prefix+path+"/:gameid", getIndexHandler(cfg))

	mux.GET(cfg.prefix+path+"/:gameid/ws", serveWSForManager(cfg, sm))

	mux.GET(cfg.prefix+path+"/:gameid/qr", qrHandler)
}
