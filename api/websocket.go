package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/stockpulse/stockpulse/internal/analysis/fundamental"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is enforced on the REST routes only
	},
}

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 << 10

	sendBuffer = 64
)

// WebSocket message types.
const (
	MsgProjection       = "projection"
	MsgProjectionResult = "projection_result"
	MsgDCF              = "dcf"
	MsgDCFResult        = "dcf_result"
	MsgSignals          = "signals"
	MsgPing             = "ping"
	MsgPong             = "pong"
	MsgError            = "error"
)

// WSMessage is a message sent to WebSocket clients. ID echoes the request
// it answers.
type WSMessage struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// wsRequest is a message received from a client.
type wsRequest struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ============================================================
// Hub
// ============================================================

// WSHub tracks connected clients and fans out broadcasts.
type WSHub struct {
	mu      sync.RWMutex
	clients map[*WSClient]struct{}
}

// WSClient is a single WebSocket connection's outbound queue.
type WSClient struct {
	send   chan WSMessage
	mu     sync.Mutex
	closed bool
}

// NewWSHub creates a new WebSocket hub.
func NewWSHub() *WSHub {
	return &WSHub{clients: make(map[*WSClient]struct{})}
}

func newWSClient() *WSClient {
	return &WSClient{send: make(chan WSMessage, sendBuffer)}
}

// trySend queues msg without blocking. It reports false when the client is
// closed or its queue is full.
func (c *WSClient) trySend(msg WSMessage) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *WSClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Register adds a client to the hub.
func (h *WSHub) Register(c *WSClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client and closes its queue.
func (h *WSHub) Unregister(c *WSClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

// Broadcast sends msg to every client. Clients whose queue is full are
// disconnected.
func (h *WSHub) Broadcast(msg WSMessage) {
	var slow []*WSClient
	h.mu.RLock()
	for c := range h.clients {
		if !c.trySend(msg) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range slow {
		h.Unregister(c)
	}
}

// ClientCount returns the number of connected WebSocket clients.
func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *WSHub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*WSClient]struct{})
	h.mu.Unlock()
	for c := range clients {
		c.close()
	}
}

// ============================================================
// Connection handling
// ============================================================

// handleWebSocket upgrades the connection. Clients send projection or dcf
// requests and receive the recomputed result on the same connection.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := newWSClient()
	s.wsHub.Register(client)

	go s.wsWritePump(conn, client)
	go s.wsReadPump(conn, client)
}

func (s *Server) wsReadPump(conn *websocket.Conn, client *WSClient) {
	defer func() {
		s.wsHub.Unregister(client)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug().Err(err).Msg("WebSocket read error")
			}
			return
		}

		var req wsRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			client.trySend(WSMessage{Type: MsgError, Error: "invalid message"})
			continue
		}
		client.trySend(s.recompute(req))
	}
}

// recompute answers a single client request.
func (s *Server) recompute(req wsRequest) WSMessage {
	switch req.Type {
	case MsgProjection:
		var p ProjectionRequest
		if err := json.Unmarshal(req.Data, &p); err != nil {
			return WSMessage{Type: MsgError, ID: req.ID, Error: "invalid projection request"}
		}
		if len(p.Inputs) > maxProjectionYears {
			return WSMessage{Type: MsgError, ID: req.ID, Error: errTooManyYears.Error()}
		}
		return WSMessage{
			Type: MsgProjectionResult,
			ID:   req.ID,
			Data: fundamental.SummarizeInputs(p.Inputs, p.BaseRevenue, p.Shares, p.Price),
		}

	case MsgDCF:
		var d DCFRequest
		if err := json.Unmarshal(req.Data, &d); err != nil {
			return WSMessage{Type: MsgError, ID: req.ID, Error: "invalid dcf request"}
		}
		in, err := s.dcfInputs(d)
		if err != nil {
			return WSMessage{Type: MsgError, ID: req.ID, Error: err.Error()}
		}
		return WSMessage{
			Type: MsgDCFResult,
			ID:   req.ID,
			Data: valuate(d.Baseline, d.Shares, d.Price, in, d.Sensitivity),
		}

	case MsgPing:
		return WSMessage{Type: MsgPong, ID: req.ID}
	}
	return WSMessage{Type: MsgError, ID: req.ID, Error: "unknown message type " + req.Type}
}

func (s *Server) wsWritePump(conn *websocket.Conn, client *WSClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, encodeWS(msg)); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// encodeWS marshals msg, replacing a result JSON cannot represent with an
// error reply so the connection stays up.
func encodeWS(msg WSMessage) []byte {
	data, err := json.Marshal(msg)
	if err != nil {
		data, _ = json.Marshal(WSMessage{Type: MsgError, ID: msg.ID, Error: "failed to encode result"})
	}
	return data
}
