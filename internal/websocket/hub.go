package websocket

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
)

// Event — конверт исходящего WebSocket-сообщения
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Hub управляет активными WebSocket-подключениями. Один пользователь может
// держать несколько подключений (вкладки, устройства); событие доставляется
// во все. Доставка fire-and-forget: медленный клиент отключается, источником
// истины остается инбокс уведомлений в БД.
type Hub struct {
	mu      sync.RWMutex
	clients map[uint]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

// NewHub создает новый хаб
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uint]map[*Client]struct{}),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		done:       make(chan struct{}),
	}
}

// Run обрабатывает регистрацию и отключение клиентов до вызова Shutdown
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.done:
			h.closeAll()
			return
		}
	}
}

// Shutdown останавливает хаб и закрывает все подключения
func (h *Hub) Shutdown() {
	close(h.done)
}

// Register ставит клиента в очередь на регистрацию
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister ставит клиента в очередь на отключение
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// SendToUser отправляет событие всем подключениям пользователя.
// Реализует service.Pusher.
func (h *Hub) SendToUser(userID uint, eventType string, payload interface{}) error {
	data, err := json.Marshal(Event{Type: eventType, Payload: payload})
	if err != nil {
		return fmt.Errorf("failed to marshal ws event: %w", err)
	}

	h.mu.RLock()
	conns := make([]*Client, 0, len(h.clients[userID]))
	for client := range h.clients[userID] {
		conns = append(conns, client)
	}
	h.mu.RUnlock()

	for _, client := range conns {
		select {
		case client.send <- data:
		default:
			// Буфер клиента переполнен: отключаем, чтобы не блокировать доставку
			log.Printf("[Hub] Буфер клиента пользователя %d переполнен, отключаем", userID)
			h.Unregister(client)
		}
	}

	return nil
}

// ConnectionCount возвращает число активных подключений пользователя
func (h *Hub) ConnectionCount(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	if h.clients[client.userID] == nil {
		h.clients[client.userID] = make(map[*Client]struct{})
	}
	h.clients[client.userID][client] = struct{}{}
	h.mu.Unlock()
	log.Printf("[Hub] Пользователь %d подключился (%d подключений)", client.userID, h.ConnectionCount(client.userID))
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if conns, ok := h.clients[client.userID]; ok {
		if _, exists := conns[client]; exists {
			delete(conns, client)
			close(client.send)
			if len(conns) == 0 {
				delete(h.clients, client.userID)
			}
		}
	}
	h.mu.Unlock()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, conns := range h.clients {
		for client := range conns {
			close(client.send)
		}
		delete(h.clients, userID)
	}
	log.Println("[Hub] Все WebSocket-подключения закрыты")
}
