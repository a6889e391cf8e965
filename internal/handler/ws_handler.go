package handler

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"

	"github.com/yourusername/quizdeck-api/internal/config"
	ws "github.com/yourusername/quizdeck-api/internal/websocket"
	"github.com/yourusername/quizdeck-api/pkg/auth"
)

// WSHandler обрабатывает WebSocket-подключения для push-уведомлений
type WSHandler struct {
	hub        *ws.Hub
	jwtService *auth.JWTService
	upgrader   gorillaws.Upgrader
	opts       ws.ClientOptions
}

// NewWSHandler создает новый обработчик WebSocket-подключений
func NewWSHandler(hub *ws.Hub, jwtService *auth.JWTService, cfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		hub:        hub,
		jwtService: jwtService,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// CORS для HTTP обрабатывает gin-contrib/cors; origin
			// WebSocket-рукопожатия проверяется на уровне балансировщика
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		opts: ws.ClientOptions{
			WriteWait:      time.Duration(cfg.WriteWait) * time.Second,
			PongWait:       time.Duration(cfg.PongWait) * time.Second,
			MaxMessageSize: int64(cfg.MaxMessageSize),
			SendBuffer:     cfg.ClientSendBuffer,
		},
	}
}

// HandleConnection апгрейдит HTTP-запрос до WebSocket. Браузерные клиенты
// не могут выставить заголовок Authorization при рукопожатии, поэтому токен
// принимается и через query-параметр token.
func (h *WSHandler) HandleConnection(c *gin.Context) {
	token := extractWSToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "требуется токен авторизации"})
		return
	}

	claims, err := h.jwtService.ParseToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "невалидный токен"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade сам пишет ответ при ошибке рукопожатия
		log.Printf("[WSHandler] Ошибка апгрейда соединения для пользователя %d: %v", claims.UserID, err)
		return
	}

	client := ws.NewClient(h.hub, conn, claims.UserID, h.opts)
	client.Start()
}

func extractWSToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}
