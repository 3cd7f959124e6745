package ws

import (
	"encoding/json"
	"sync"
	"time"

	"credit_engine/internal/domain"
	"credit_engine/internal/logger"
)

// Hub fans committed balance changes out to the owner's open connections.
// A user may hold several connections, one per tab or device.
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[int64]map[*Client]struct{})}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.UserID] = set
	}
	set[c] = struct{}{}
	connectedClients.Inc()
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.UserID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.Send)
	connectedClients.Dec()
	if len(set) == 0 {
		delete(h.clients, c.UserID)
	}
}

// Connections returns how many connections userID holds.
func (h *Hub) Connections(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// NotifyBalance implements service.BalanceNotifier. Slow clients miss
// events rather than block the caller.
func (h *Hub) NotifyBalance(userID int64, balance domain.Balance, entries []*domain.LedgerEntry) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	set := h.clients[userID]
	if len(set) == 0 {
		return
	}

	ev := BalancePayload{Balance: balance, At: time.Now().UTC()}
	for _, e := range entries {
		ev.EntryIDs = append(ev.EntryIDs, e.ID)
	}
	msg, err := json.Marshal(Message{Type: MsgBalance, Payload: ev})
	if err != nil {
		logger.Error("ws: marshal balance event", "user_id", userID, "error", err)
		return
	}

	for c := range set {
		select {
		case c.Send <- msg:
		default:
			droppedEvents.Inc()
			logger.Warn("ws: send buffer full, dropping balance event", "user_id", userID)
		}
	}
}
