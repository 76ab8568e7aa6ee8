// internal/websocket/hub.go
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/mdobak/go-xerrors"

	"github.com/pateldhruv64/cow-belt-final/internal/data"
)

const (
	TypeHistory = "history"
	TypeReading = "reading"
	TypeAlert   = "alert"

	broadcastBuffer = 256
	sendBuffer      = 256
)

// Message is the envelope of everything pushed to the dashboard.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Hub maintains the set of active clients and broadcasts messages.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run serves registrations and broadcasts until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			slog.Debug("websocket client registered", slog.String("remote", client.conn.RemoteAddr().String()))

		case client := <-h.unregister:
			h.mu.Lock()
			if h.clients[client] {
				delete(h.clients, client)
				close(client.send)
				slog.Debug("websocket client unregistered", slog.String("remote", client.conn.RemoteAddr().String()))
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					slog.Warn("websocket client too slow, removing", slog.String("remote", client.conn.RemoteAddr().String()))
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Attach registers a connection, queues the initial messages for it and starts its pumps.
// It blocks until Run has accepted the client.
func (h *Hub) Attach(conn *websocket.Conn, initial ...Message) *Client {
	client := &Client{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}

	for _, m := range initial {
		if b, err := encode(m); err == nil {
			client.send <- b
		}
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return client
	}

	go client.writePump()
	go client.readPump()
	return client
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues a message for every client. It drops the message when the queue is full
// or the hub has stopped.
func (h *Hub) Broadcast(msgType string, payload any) {
	b, err := encode(Message{Type: msgType, Payload: payload})
	if err != nil {
		return
	}
	select {
	case h.broadcast <- b:
	case <-h.done:
	default:
		slog.Warn("websocket broadcast queue full, message dropped", slog.String("type", msgType))
	}
}

// BroadcastReading pushes a stored reading.
func (h *Hub) BroadcastReading(r data.Reading) {
	h.Broadcast(TypeReading, r)
}

// AlertCreated pushes a new alert. It makes the hub an alert sink.
func (h *Hub) AlertCreated(_ context.Context, alert data.Alert) {
	h.Broadcast(TypeAlert, alert)
}

func encode(m Message) ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		slog.Error("marshal websocket message", slog.String("type", m.Type), slog.Any("error", xerrors.New(err)))
	}
	return b, err
}
