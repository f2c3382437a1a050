package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/AaronLay10/SemanticZoom/internal/events"
	"github.com/AaronLay10/SemanticZoom/internal/viewer"
)

const (
	// Number of recent events sent to a new event stream subscriber
	recentEventsCount = 50

	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = 54 * time.Second

	// Updates queued for a page before it is resynced from a snapshot
	pageQueue = 256

	// Largest message a page may send
	maxMessageSize = 64 << 10
)

var eventsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ClientMessage is one input event forwarded by the page.
type ClientMessage struct {
	Type      string  `json:"type"`
	Surface   string  `json:"surface,omitempty"`
	PointerID int     `json:"pointerId,omitempty"`
	Button    int     `json:"button,omitempty"`
	X         float64 `json:"x,omitempty"`
	Y         float64 `json:"y,omitempty"`
	DeltaY    float64 `json:"deltaY,omitempty"`
	Width     float64 `json:"width,omitempty"`
	Height    float64 `json:"height,omitempty"`
	Value     float64 `json:"value,omitempty"`
	Mode      string  `json:"mode,omitempty"`
}

// Apply forwards m to v.
func (m ClientMessage) Apply(v *viewer.Viewer) error {
	switch m.Type {
	case "resize":
		return v.Resize(m.Surface, m.Width, m.Height)
	case "pointerdown":
		return v.PointerDown(m.Surface, m.PointerID, m.Button, m.X, m.Y)
	case "pointermove":
		return v.PointerMove(m.Surface, m.PointerID, m.X, m.Y)
	case "pointerup":
		return v.PointerUp(m.Surface, m.PointerID)
	case "pointerleave":
		return v.PointerLeave(m.Surface)
	case "wheel":
		return v.Wheel(m.Surface, m.X, m.Y, m.DeltaY)
	case "level":
		v.SetLevel(m.Value)
	case "threshold":
		v.SetThreshold(m.Value)
	case "mode":
		v.SelectMode(m.Mode)
	default:
		return fmt.Errorf("unknown message type %q", m.Type)
	}
	return nil
}

// pageConn queues updates for one page. When the queue overflows the
// queued updates are dropped and the page gets a fresh snapshot instead.
type pageConn struct {
	conn   *websocket.Conn
	out    chan viewer.Update
	resync atomic.Bool
}

func (p *pageConn) notify(u viewer.Update) {
	select {
	case p.out <- u:
	default:
		p.resync.Store(true)
	}
}

func (p *pageConn) write(v interface{}) error {
	p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return p.conn.WriteJSON(v)
}

func (p *pageConn) writeSnapshot(v *viewer.Viewer) error {
drain:
	for {
		select {
		case <-p.out:
		default:
			break drain
		}
	}
	for _, u := range v.Snapshot() {
		if err := p.write(u); err != nil {
			return err
		}
	}
	return nil
}

// viewHandler runs one page session over a websocket.
func (s *Server) viewHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	page := &pageConn{conn: conn, out: make(chan viewer.Update, pageQueue)}
	v := s.newViewer(uuid.NewString(), page.notify)
	defer s.sessions.Remove(v.ID())

	if err := page.writeSnapshot(v); err != nil {
		log.Printf("ws write snapshot failed: %v", err)
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(maxMessageSize)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg ClientMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				log.Printf("page %s: invalid message: %v", v.ID(), err)
				continue
			}
			if err := msg.Apply(v); err != nil {
				log.Printf("page %s: %v", v.ID(), err)
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		if page.resync.Swap(false) {
			if s.opts.Metrics != nil {
				s.opts.Metrics.droppedUpdates.Inc()
			}
			if err := page.writeSnapshot(v); err != nil {
				return
			}
		}

		select {
		case <-done:
			return

		case u := <-page.out:
			if err := page.write(u); err != nil {
				log.Printf("page %s: write failed: %v", v.ID(), err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// wsEventsHandler streams the structured event log.
func wsEventsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := eventsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sub := events.Subscribe()
	defer events.Unsubscribe(sub)

	for _, e := range events.RecentEvents(recentEventsCount) {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(e); err != nil {
			log.Printf("ws write recent event failed: %v", err)
			return
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return

		case e, ok := <-sub:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(e); err != nil {
				log.Printf("ws write event failed: %v", err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
