package websocket

import (
	"log"
	"time"

	"github.com/gorilla/websocket"
)

// Параметры подключения по умолчанию
const (
	defaultWriteWait      = 10 * time.Second
	defaultPongWait       = 60 * time.Second
	defaultMaxMessageSize = 4096
	defaultSendBuffer     = 32
)

// ClientOptions позволяет переопределить лимиты подключения
type ClientOptions struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	MaxMessageSize int64
	SendBuffer     int
}

// Client представляет одно WebSocket-подключение аутентифицированного пользователя
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID uint
	send   chan []byte

	writeWait      time.Duration
	pongWait       time.Duration
	maxMessageSize int64
}

// NewClient создает клиента для подключения conn
func NewClient(hub *Hub, conn *websocket.Conn, userID uint, opts ClientOptions) *Client {
	if opts.WriteWait <= 0 {
		opts.WriteWait = defaultWriteWait
	}
	if opts.PongWait <= 0 {
		opts.PongWait = defaultPongWait
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = defaultMaxMessageSize
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	return &Client{
		hub:            hub,
		conn:           conn,
		userID:         userID,
		send:           make(chan []byte, opts.SendBuffer),
		writeWait:      opts.WriteWait,
		pongWait:       opts.PongWait,
		maxMessageSize: opts.MaxMessageSize,
	}
}

// Start регистрирует клиента и запускает насосы чтения и записи
func (c *Client) Start() {
	c.hub.Register(c)
	go c.writePump()
	go c.readPump()
}

// readPump читает входящие сообщения. Канал серверный push-only, входящие
// данные игнорируются; чтение нужно для обработки pong и закрытия.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[Client] Неожиданное закрытие подключения пользователя %d: %v", c.userID, err)
			}
			return
		}
	}
}

// writePump пишет исходящие события и периодические ping-фреймы
func (c *Client) writePump() {
	pingInterval := (c.pongWait * 9) / 10
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
