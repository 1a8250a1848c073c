// Package realtime pushes billing events to an owner's open dashboards over
// websockets.
package realtime

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	EventTenantAssigned   = "tenant.assigned"
	EventTenantMovedOut   = "tenant.moved_out"
	EventPaymentRecorded  = "payment.recorded"
	EventRentUpdated      = "rent.updated"
	EventRentLogsCreated  = "rent_logs.generated"
	EventRentLogsOverdue  = "rent_logs.overdue"
	EventApartmentChanged = "apartment.changed"
)

const writeWait = 5 * time.Second

type Event struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type ownerEvent struct {
	ownerID int // 0 fans out to every owner
	event   Event
}

// Authenticator resolves the token a socket presents to an owner id.
type Authenticator func(token string) (int, error)

type Hub struct {
	clients    map[int]map[*websocket.Conn]bool
	clientsMux sync.Mutex
	broadcast  chan ownerEvent
	upgrader   websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[int]map[*websocket.Conn]bool),
		broadcast: make(chan ownerEvent, 256),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Run delivers published events until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// Publish queues an event for one owner. It never blocks a request; when
// the queue is full the event is dropped.
func (h *Hub) Publish(ownerID int, eventType string, data interface{}) {
	if h == nil {
		return
	}
	msg := ownerEvent{ownerID: ownerID, event: Event{Type: eventType, Data: data, Timestamp: time.Now()}}
	select {
	case h.broadcast <- msg:
	default:
		log.Printf("[Realtime] Queue full, dropping %s for owner %d", eventType, ownerID)
	}
}

// PublishAll queues an event for every connected owner.
func (h *Hub) PublishAll(eventType string, data interface{}) {
	h.Publish(0, eventType, data)
}

// ClientCount returns the number of open sockets for an owner.
func (h *Hub) ClientCount(ownerID int) int {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	return len(h.clients[ownerID])
}

// ServeWS upgrades the request after authenticating the ?token= parameter.
// Browsers cannot set headers on websocket handshakes.
func (h *Hub) ServeWS(authenticate Authenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, err := authenticate(r.URL.Query().Get("token"))
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[Realtime] Upgrade failed: %v", err)
			return
		}

		h.clientsMux.Lock()
		if h.clients[ownerID] == nil {
			h.clients[ownerID] = make(map[*websocket.Conn]bool)
		}
		h.clients[ownerID][conn] = true
		h.clientsMux.Unlock()

		go h.readUntilClosed(ownerID, conn)
	}
}

func (h *Hub) readUntilClosed(ownerID int, conn *websocket.Conn) {
	defer h.remove(ownerID, conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) deliver(msg ownerEvent) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()

	for ownerID, conns := range h.clients {
		if msg.ownerID != 0 && msg.ownerID != ownerID {
			continue
		}
		for conn := range conns {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg.event); err != nil {
				conn.Close()
				delete(conns, conn)
			}
		}
		if len(conns) == 0 {
			delete(h.clients, ownerID)
		}
	}
}

func (h *Hub) remove(ownerID int, conn *websocket.Conn) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()

	conn.Close()
	if conns, ok := h.clients[ownerID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.clients, ownerID)
		}
	}
}

func (h *Hub) closeAll() {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()

	for ownerID, conns := range h.clients {
		for conn := range conns {
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			conn.Close()
		}
		delete(h.clients, ownerID)
	}
}
