package webserver

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 54 * time.Second
	wsSendBuffer = 32
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSFrame is one push frame sent to connected operators. Type follows the
// "instance:{id}:status" / "instance:{id}:qrcode" convention.
type WSFrame struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub fans instance lifecycle events out to every connected websocket. It
// subscribes to the application bus and pushes one frame per event.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*wsClient
	log     *zap.Logger
}

func NewHub(bus EventBus.Bus, log *zap.Logger) (*Hub, error) {
	h := &Hub{
		clients: make(map[string]*wsClient),
		log:     log,
	}
	if err := bus.Subscribe("instance.status", func(instanceID, status string) {
		h.Broadcast(fmt.Sprintf("instance:%s:status", instanceID), map[string]string{"status": status})
	}); err != nil {
		return nil, err
	}
	if err := bus.Subscribe("instance.qrcode", func(instanceID, qr string) {
		h.Broadcast(fmt.Sprintf("instance:%s:qrcode", instanceID), map[string]string{"qrcode": qr})
	}); err != nil {
		return nil, err
	}
	return h, nil
}

// Register mounts the websocket endpoint on the shared server.
func (h *Hub) Register() {
	RootGET("/ws", h.handle)
}

func (h *Hub) handle(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	client := &wsClient{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, wsSendBuffer),
	}
	h.mu.Lock()
	h.clients[client.id] = client
	h.mu.Unlock()

	h.log.Info("websocket client connected",
		zap.String("namespace", "web"),
		zap.String("client_id", client.id))

	go h.writePump(client)
	go h.readPump(client)
	return nil
}

// Broadcast pushes one frame to every connected client. Slow clients are
// dropped rather than allowed to block the rest.
func (h *Hub) Broadcast(frameType string, payload interface{}) {
	data, err := jsoniter.Marshal(WSFrame{Type: frameType, Payload: payload})
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		select {
		case client.send <- data:
		default:
			h.log.Warn("websocket client lagging, dropping frame",
				zap.String("namespace", "web"),
				zap.String("client_id", client.id))
		}
	}
}

// ClientCount reports how many operators are connected.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) drop(client *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[client.id]; ok {
		delete(h.clients, client.id)
		close(client.send)
	}
	h.mu.Unlock()
}

func (h *Hub) readPump(client *wsClient) {
	defer func() {
		h.drop(client)
		_ = client.conn.Close()
	}()
	client.conn.SetReadLimit(512)
	_ = client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		// Clients only listen; any inbound traffic besides pings is ignored.
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(client *wsClient) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = client.conn.Close()
	}()
	for {
		select {
		case data, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
