package websocket

import (
	"encoding/json"
	"sync"
	"time"
)

type BalanceUpdate struct {
	Currency string `json:"currency"`
	Balance  string `json:"balance"`
}

type RateUpdate struct {
	LastRefresh time.Time `json:"last_refresh"`
	Source      string    `json:"source"`
	Pairs       int       `json:"pairs"`
}

type event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Hub tracks connected clients per user. Balance updates go to the owning
// user's clients; rate updates go to everyone.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(userID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*Client]struct{})
	}
	h.clients[userID][client] = struct{}{}
}

func (h *Hub) Unregister(userID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		return
	}
	delete(h.clients[userID], client)
	if len(h.clients[userID]) == 0 {
		delete(h.clients, userID)
	}
}

func (h *Hub) BroadcastBalance(userID string, update BalanceUpdate) {
	payload, _ := json.Marshal(event{Type: "balance", Payload: update})
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[userID] {
		select {
		case client.send <- payload:
		default:
		}
	}
}

func (h *Hub) BroadcastRates(lastRefresh time.Time, source string, pairs int) {
	payload, _ := json.Marshal(event{Type: "rates", Payload: RateUpdate{
		LastRefresh: lastRefresh,
		Source:      source,
		Pairs:       pairs,
	}})
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, clients := range h.clients {
		for client := range clients {
			select {
			case client.send <- payload:
			default:
			}
		}
	}
}
