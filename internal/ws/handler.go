package ws

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	pkgAuth "riichi-league/pkg/auth"
	"riichi-league/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// FeedMessage is what dashboard clients receive when a round is recorded.
type FeedMessage struct {
	Type    string    `json:"type"`
	RoundID int64     `json:"roundId"`
	Summary string    `json:"summary"`
	At      time.Time `json:"at"`
}

// Hub fans newly recorded rounds out to every connected feed client. It
// implements the round service's Publisher.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

func (h *Hub) PublishRound(roundID int64, summary string) {
	msg := FeedMessage{
		Type:    "round_recorded",
		RoundID: roundID,
		Summary: summary,
		At:      time.Now(),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.outbound <- msg:
		default:
			// Slow consumer; drop the connection rather than block the feed.
			c.closeOnce()
		}
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for dev
	},
}

func (h *Hub) HandleFeedWS(c *gin.Context) {
	token, err := getTokenFromRequest(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	claims, err := pkgAuth.ParsePlayerToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}

	logger.Log.Info("New feed connection", zap.Int64("playerID", claims.SubjectID))

	client := newClient(conn, claims.SubjectID, h)
	h.register(client)
	client.run()
}

func getTokenFromRequest(c *gin.Context) (string, error) {
	token := strings.TrimSpace(c.Query("token"))
	if token != "" {
		return token, nil
	}
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			token = strings.TrimSpace(parts[1])
			if token != "" {
				return token, nil
			}
		}
	}
	return "", errors.New("missing token")
}

type client struct {
	conn      *websocket.Conn
	playerID  int64
	hub       *Hub
	outbound  chan FeedMessage
	done      chan struct{}
	once      sync.Once
	pingEvery time.Duration
}

func newClient(conn *websocket.Conn, playerID int64, hub *Hub) *client {
	conn.SetReadLimit(1 << 16)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	return &client{
		conn:      conn,
		playerID:  playerID,
		hub:       hub,
		outbound:  make(chan FeedMessage, 16),
		done:      make(chan struct{}),
		pingEvery: 25 * time.Second,
	}
}

func (c *client) closeOnce() {
	c.once.Do(func() { close(c.done) })
}

func (c *client) run() {
	go c.writePump()
	c.readPump()
}

// readPump only watches for the close; the feed is one-way.
func (c *client) readPump() {
	defer func() {
		c.closeOnce()
		c.hub.unregister(c)
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			logger.Log.Info("feed read closed", zap.Error(err), zap.Int64("playerID", c.playerID))
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(c.pingEvery)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.outbound:
			if err := c.conn.WriteJSON(msg); err != nil {
				logger.Log.Info("feed write error", zap.Error(err), zap.Int64("playerID", c.playerID))
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
