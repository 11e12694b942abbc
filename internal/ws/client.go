package ws

import (
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nasidaunjeruk/pos/internal/auth"
	"github.com/nasidaunjeruk/pos/internal/enum"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10 // must stay below pongWait
	maxMessageSize = 512
	sendBuffer     = 256
)

// Tokens are checked on the query string, so any origin may connect.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Client is one connected screen: a customer display, the kitchen view or a
// second cashier terminal.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	topics []string
	send   chan []byte
}

type welcome struct {
	Terminal string   `json:"terminal"`
	Role     string   `json:"role"`
	Topics   []string `json:"topics"`
}

// listen discards anything the screen sends and unregisters it once the
// connection drops or stops answering pings.
func (c *Client) listen() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err == nil {
			continue
		}
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
			c.hub.log.WithError(err).Warn("websocket read")
		}
		return
	}
}

// deliver writes one event per text frame and keeps the connection alive
// with pings. It returns when the hub closes send or a write fails.
func (c *Client) deliver() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		var (
			kind int
			data []byte
		)
		select {
		case msg, ok := <-c.send:
			if !ok {
				kind = websocket.CloseMessage
			} else {
				kind, data = websocket.TextMessage, msg
			}
		case <-ticker.C:
			kind = websocket.PingMessage
		}

		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(kind, data); err != nil || kind == websocket.CloseMessage {
			return
		}
	}
}

// ParseTopics reads a comma separated topic list, keeping only known topics.
// An empty or fully unknown list subscribes to everything.
func ParseTopics(raw string) []string {
	var topics []string
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(strings.ToLower(t))
		if slices.Contains(DefaultTopics, t) && !slices.Contains(topics, t) {
			topics = append(topics, t)
		}
	}
	if len(topics) == 0 {
		return slices.Clone(DefaultTopics)
	}
	return topics
}

// greeting is the first frame a screen receives, confirming its session and
// subscriptions.
func greeting(claims *auth.Claims, topics []string) []byte {
	payload, _ := json.Marshal(welcome{Terminal: claims.Terminal, Role: claims.Role, Topics: topics})
	msg, _ := json.Marshal(Event{Type: enum.EventNotice, Topic: enum.TopicNotice, Payload: payload, SentAt: time.Now()})
	return msg
}

// ServeWS upgrades a display connection.
// Endpoint: WS /ws?token=JWT&topics=cart,ledger
func ServeWS(hub *Hub, jwtSecret string, w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("token") == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	claims, err := auth.ValidateToken(jwtSecret, q.Get("token"))
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.log.WithError(err).Warn("websocket upgrade")
		return
	}

	client := &Client{
		hub:    hub,
		conn:   conn,
		topics: ParseTopics(q.Get("topics")),
		send:   make(chan []byte, sendBuffer),
	}
	client.send <- greeting(claims, client.topics)
	hub.register <- client
	hub.log.WithFields(map[string]any{"terminal": claims.Terminal, "topics": client.topics}).Debug("display connected")

	go client.deliver()
	go client.listen()
}
