/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Magic book sessions
//
// Every visitor to $path is redirected to $path/:session, a fresh book
// identified by a random UUID. All tabs showing the same session URL see
// the same book: stage changes, answers and sounds are broadcast to every
// connected client.
//
// Features:
// - One websocket hub per session: $path/:session/ws
// - The hub's run loop is the only goroutine touching the book
// - Timed stage transitions are posted back onto the run loop
// - Late joiners receive a snapshot of the current page
// - Sessions are reaped after a configurable idle timeout
// - QR code for the session URL at $path/:session/qr, backed by go-qrcode

package main

import (
	_ "embed"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

var errNoListeners = errors.New("no connected clients")

// Messages coming from clients
type ClientMessage struct {
	Type string `json:"type"`          // "open", "reveal", "again", "reset", "mute", "key"
	Key  string `json:"key,omitempty"` // key
}

// Messages sent to clients
type StageMessage struct {
	Type   string `json:"type"` // "stage"
	Stage  string `json:"stage"`
	Active bool   `json:"active"`
}

type OpeningMessage struct {
	Type    string `json:"type"` // "opening"
	Opening bool   `json:"opening"`
}

type AnswerMessage struct {
	Type   string `json:"type"` // "answer"
	Text   string `json:"text"`
	Number int    `json:"number"`
	Replay bool   `json:"replay"` // replay the card animation
}

type MutedMessage struct {
	Type  string `json:"type"` // "muted"
	Muted bool   `json:"muted"`
}

type SoundMessage struct {
	Type string `json:"type"` // "sound"
	Clip Clip   `json:"clip"`
}

type ParticlesMessage struct {
	Type      string     `json:"type"` // "particles"
	Particles []Particle `json:"particles"`
}

type Client struct {
	conn *websocket.Conn
	send chan any
}

type command struct {
	client *Client
	msg    ClientMessage
}

// Hub owns one book and fans its changes out to every connected client.
type Hub struct {
	id   string
	cfg  *Config
	book *Book

	clients map[*Client]bool

	register chan *Client
	unreg    chan *Client
	commands chan command
	calls    chan func()
	done     chan struct{}
	stop     sync.Once

	mu         sync.RWMutex
	createdAt  time.Time
	lastActive time.Time
}

func newHub(cfg *Config, id string) (*Hub, error) {
	now := time.Now()

	h := &Hub{
		id:         id,
		cfg:        cfg,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		commands:   make(chan command),
		calls:      make(chan func(), 8),
		done:       make(chan struct{}),
		createdAt:  now,
		lastActive: now,
	}

	book, err := newBook(cfg, cfg.pool, loopScheduler{post: h.post}, h, h, nil)
	if err != nil {
		return nil, err
	}
	h.book = book

	return h, nil
}

// post queues f onto the run loop. Calls made after the hub stops are dropped.
func (h *Hub) post(f func()) {
	select {
	case h.calls <- f:
	case <-h.done:
	}
}

func (h *Hub) touch() {
	h.mu.Lock()
	h.lastActive = time.Now()
	h.mu.Unlock()
}

func (h *Hub) idleSince() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.lastActive
}

func (h *Hub) run() {
	for {
		select {
		case c := <-h.register:
			h.touch()
			h.clients[c] = true
			h.sendSnapshot(c)

		case c := <-h.unreg:
			h.touch()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}

		case cmd := <-h.commands:
			h.touch()
			h.handleCommand(cmd)

		case f := <-h.calls:
			f()

		case <-h.done:
			h.book.Close()
			for c := range h.clients {
				close(c.send)
				_ = c.conn.Close()
				delete(h.clients, c)
			}
			return
		}
	}
}

func (h *Hub) handleCommand(cmd command) {
	var err error

	switch cmd.msg.Type {
	case "open":
		err = h.book.Open()
	case "reveal":
		err = h.book.Reveal()
	case "again":
		err = h.book.Again()
	case "reset":
		h.book.Reset()
	case "mute":
		h.book.ToggleMute()
	case "key":
		err = h.book.Key(cmd.msg.Key)
	default:
		err = ErrIgnored
	}

	if err != nil {
		logf(h.cfg, "BOOKS: %s %q in book %s: %v", cmd.msg.Type, cmd.msg.Key, h.id, err)
	}
}

func (h *Hub) sendSnapshot(c *Client) {
	snap := h.book.Snapshot()

	msgs := []any{
		ParticlesMessage{Type: "particles", Particles: snap.Particles},
		MutedMessage{Type: "muted", Muted: snap.Muted},
		OpeningMessage{Type: "opening", Opening: snap.Opening},
	}
	if snap.Answer != nil {
		msgs = append(msgs, AnswerMessage{
			Type:   "answer",
			Text:   snap.Answer.Text,
			Number: snap.Answer.Number,
		})
	}
	msgs = append(msgs, StageMessage{Type: "stage", Stage: snap.Stage.String(), Active: snap.Active})

	for _, msg := range msgs {
		h.sendTo(c, msg)
	}
}

// sendTo drops clients that are too slow to keep up.
func (h *Hub) sendTo(c *Client, msg any) {
	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) broadcast(msg any) {
	for c := range h.clients {
		h.sendTo(c, msg)
	}
}

func (h *Hub) Stage(stage Stage, active bool) {
	h.broadcast(StageMessage{Type: "stage", Stage: stage.String(), Active: active})
}

func (h *Hub) Opening(opening bool) {
	h.broadcast(OpeningMessage{Type: "opening", Opening: opening})
}

func (h *Hub) Answer(answer Answer, replay bool) {
	h.broadcast(AnswerMessage{Type: "answer", Text: answer.Text, Number: answer.Number, Replay: replay})
}

func (h *Hub) Muted(muted bool) {
	h.broadcast(MutedMessage{Type: "muted", Muted: muted})
}

// Play asks every connected browser to synthesise clip.
func (h *Hub) Play(clip Clip) error {
	if len(h.clients) == 0 {
		return errNoListeners
	}

	h.broadcast(SoundMessage{Type: "sound", Clip: clip})

	return nil
}

func (h *Hub) Close() {
	h.stop.Do(func() {
		close(h.done)
	})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// BookManager holds a set of hubs keyed by session ID, so each
// $path/:session is its own isolated book.
type BookManager struct {
	cfg         *Config
	mu          sync.Mutex
	hubs        map[string]*Hub
	idleTimeout time.Duration
	quit        chan struct{}
	closed      sync.Once
}

func newBookManager(cfg *Config) *BookManager {
	bm := &BookManager{
		cfg:         cfg,
		hubs:        make(map[string]*Hub),
		idleTimeout: cfg.sessionTimeout,
		quit:        make(chan struct{}),
	}
	if bm.idleTimeout > 0 {
		go bm.reaperLoop()
	}
	return bm
}

func (bm *BookManager) getHub(id string) (*Hub, error) {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	if hub, ok := bm.hubs[id]; ok {
		return hub, nil
	}

	hub, err := newHub(bm.cfg, id)
	if err != nil {
		return nil, err
	}
	bm.hubs[id] = hub
	go hub.run()

	logf(bm.cfg, "BOOKS: Opened book %s", id)

	return hub, nil
}

func (bm *BookManager) count() int {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	return len(bm.hubs)
}

// reap closes hubs that have been idle since before cutoff.
func (bm *BookManager) reap(cutoff time.Time) int {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	reaped := 0
	for id, hub := range bm.hubs {
		if hub.idleSince().Before(cutoff) {
			delete(bm.hubs, id)
			hub.Close()
			reaped++

			logf(bm.cfg, "BOOKS: Closed idle book %s", id)
		}
	}

	return reaped
}

func (bm *BookManager) reaperLoop() {
	ticker := time.NewTicker(bm.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			bm.reap(time.Now().Add(-bm.idleTimeout))
		case <-bm.quit:
			return
		}
	}
}

func (bm *BookManager) Close() {
	bm.closed.Do(func() {
		close(bm.quit)

		bm.mu.Lock()
		defer bm.mu.Unlock()

		for id, hub := range bm.hubs {
			delete(bm.hubs, id)
			hub.Close()
		}
	})
}

func validSession(id string) bool {
	_, err := uuid.Parse(id)

	return err == nil
}

// WebSocket handler that picks the hub based on :session
func serveWSForManager(cfg *Config, bm *BookManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		id := ps.ByName("session")
		if !validSession(id) {
			http.Error(w, "invalid book id", http.StatusNotFound)
			return
		}

		hub, err := bm.getHub(id)
		if err != nil {
			http.Error(w, "unable to open book", http.StatusInternalServerError)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := &Client{
			conn: conn,
			send: make(chan any, 16),
		}

		select {
		case hub.register <- client:
		case <-hub.done:
			_ = conn.Close()
			return
		}

		logf(cfg, "BOOKS: %s joined book %s", realIP(r), id)

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
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		select {
		case h.commands <- command{client: c, msg: msg}:
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

// QR handler: generates a PNG QR code for the current book URL using go-qrcode.
func qrHandler(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if !validSession(ps.ByName("session")) {
			http.Error(w, "invalid book id", http.StatusNotFound)
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

		// We are at /.../:session/qr; strip trailing "/qr" to get the book URL.
		path := strings.TrimSuffix(r.URL.Path, "/qr")

		url := scheme + "://" + r.Host + path

		const qrSize = 320
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		securityHeaders(cfg, w)

		if _, err := w.Write(png); err != nil {
			errs <- err
		}
	}
}

//go:embed assets/book/index.html
var indexHTML string

func getIndexHandler(cfg *Config) httprouter.Handle {
	page := strings.ReplaceAll(indexHTML, "{{PREFIX}}", cfg.prefix)

	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if !validSession(ps.ByName("session")) {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		securityHeaders(cfg, w)

		_, _ = w.Write([]byte(page))
	}
}

// redirectNewBook handles GET $path by creating a session ID and
// redirecting to $path/:session.
func redirectNewBook(cfg *Config, path string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		id := uuid.NewString()
		logf(cfg, "BOOKS: New book %s%s/%s for %s", cfg.prefix, path, id, realIP(r))
		http.Redirect(w, r, cfg.prefix+path+"/"+id, http.StatusTemporaryRedirect)
	}
}

// registerBook sets up routes so that:
//   - $path                  → redirects to a new book
//   - $path/:session         → HTML client
//   - $path/:session/ws      → WebSocket for that book
//   - $path/:session/qr      → PNG QR code for that book URL
//   - /assets/*filepath      → embedded css and js
func registerBook(cfg *Config, path string, mux *httprouter.Router, errs chan<- error) *BookManager {
	bm := newBookManager(cfg)

	mux.GET(cfg.prefix+path, redirectNewBook(cfg, path))

	mux.GET(cfg.prefix+path+"/:session", getIndexHandler(cfg))

	mux.GET(cfg.prefix+"/assets/*filepath", serveAssets(cfg, errs))

	mux.GET(cfg.prefix+path+"/:session/ws", serveWSForManager(cfg, bm))

	mux.GET(cfg.prefix+path+"/:session/qr", qrHandler(cfg, errs))

	return bm
}
