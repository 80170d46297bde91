package services

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"stock_recommendation_backend/models"
)

// WebSocket configuration
const (
	MaxWebSocketClients   = 100
	WebSocketWriteTimeout = 10 * time.Second
	WebSocketPongTimeout  = 60 * time.Second
	WebSocketPingInterval = 30 * time.Second
)

// BatchMessage is what gets pushed to connected clients when a new
// recommendation batch is generated
type BatchMessage struct {
	Type        string                      `json:"type"`
	Strategy    string                      `json:"strategy"`
	ExecutionID string                      `json:"execution_id"`
	Batch       *models.RecommendationBatch `json:"batch"`
	Time        string                      `json:"time"`
}

// wsClient represents one connected WebSocket client
type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// BroadcastService pushes freshly generated recommendation batches to
// WebSocket clients so UI layers can refresh without polling
type BroadcastService struct {
	clients    map[*wsClient]bool
	broadcast  chan BatchMessage
	register   chan *wsClient
	unregister chan *wsClient
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
}

// Global broadcast service instance
var GlobalBroadcastService *BroadcastService

// InitBroadcastService initializes the broadcast service and starts its hub
func InitBroadcastService() {
	GlobalBroadcastService = &BroadcastService{
		clients:    make(map[*wsClient]bool),
		broadcast:  make(chan BatchMessage, 64),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	go GlobalBroadcastService.run()
	log.Println("Broadcast service started")
}

// run is the hub loop: client registration and message fan-out
func (bs *BroadcastService) run() {
	for {
		select {
		case client := <-bs.register:
			bs.mu.Lock()
			if len(bs.clients) >= MaxWebSocketClients {
				bs.mu.Unlock()
				close(client.send)
				client.conn.Close()
				continue
			}
			bs.clients[client] = true
			count := len(bs.clients)
			bs.mu.Unlock()
			log.Printf("WebSocket client connected (%d total)", count)

		case client := <-bs.unregister:
			bs.mu.Lock()
			if _, ok := bs.clients[client]; ok {
				delete(bs.clients, client)
				close(client.send)
			}
			bs.mu.Unlock()

		case msg := <-bs.broadcast:
			data, err := json.Marshal(msg)
			if err != nil {
				log.Printf("Failed to marshal broadcast message: %v", err)
				continue
			}
			bs.mu.RLock()
			for client := range bs.clients {
				select {
				case client.send <- data:
				default:
					// Slow client, drop the message rather than block the hub
				}
			}
			bs.mu.RUnlock()
		}
	}
}

// PublishBatch queues a batch for broadcast to all connected clients
func (bs *BroadcastService) PublishBatch(executionID string, batch *models.RecommendationBatch) {
	msg := BatchMessage{
		Type:        "recommendation_batch",
		Strategy:    batch.Strategy.String(),
		ExecutionID: executionID,
		Batch:       batch,
		Time:        time.Now().Format(time.RFC3339),
	}
	select {
	case bs.broadcast <- msg:
	default:
		log.Println("Broadcast queue full, dropping batch message")
	}
}

// HandleWebSocket upgrades an HTTP request and services the connection
func (bs *BroadcastService) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := bs.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan []byte, 16),
	}
	bs.register <- client

	go bs.writePump(client)
	go bs.readPump(client)
}

// writePump sends queued messages and keepalive pings to one client
func (bs *BroadcastService) writePump(client *wsClient) {
	ticker := time.NewTicker(WebSocketPingInterval)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case data, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(WebSocketWriteTimeout))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(WebSocketWriteTimeout))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains client frames and detects disconnects
func (bs *BroadcastService) readPump(client *wsClient) {
	defer func() {
		bs.unregister <- client
		client.conn.Close()
	}()

	client.conn.SetReadLimit(512)
	client.conn.SetReadDeadline(time.Now().Add(WebSocketPongTimeout))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(WebSocketPongTimeout))
		return nil
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// ClientCount returns the number of connected clients
func (bs *BroadcastService) ClientCount() int {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	return len(bs.clients)
}
