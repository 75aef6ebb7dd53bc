package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event types pushed to floor tablets and kitchen displays.
const (
	EventKOTCreated   = "kot.created"
	EventOrderUpdated = "order.updated"
	EventTableUpdated = "table.updated"
)

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type restaurantEvent struct {
	RestaurantID uuid.UUID
	Event        Event
}

// Hub maintains the set of active clients per restaurant and fans events
// out to them.
type Hub struct {
	rooms map[uuid.UUID]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *restaurantEvent

	// done is closed when Run returns; sends after that are dropped.
	done chan struct{}

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *restaurantEvent, 256),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until ctx is cancelled, then
// closes every client's send channel so their write pumps hang up.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.restaurantID] == nil {
				h.rooms[client.restaurantID] = make(map[*Client]bool)
			}
			h.rooms[client.restaurantID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			message, err := json.Marshal(event.Event)
			if err != nil {
				zap.L().Error("marshal ws event", zap.String("type", event.Event.Type), zap.Error(err))
				continue
			}

			h.mu.Lock()
			for client := range h.rooms[event.RestaurantID] {
				select {
				case client.send <- message:
				default:
					// Slow consumer; drop it rather than stall the room.
					h.removeLocked(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.rooms[client.restaurantID]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.restaurantID)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for rid, clients := range h.rooms {
		for client := range clients {
			close(client.send)
		}
		delete(h.rooms, rid)
	}
}

// BroadcastToRestaurant queues an event for every client of a restaurant.
// It never blocks once the hub has stopped.
func (h *Hub) BroadcastToRestaurant(restaurantID uuid.UUID, event Event) {
	select {
	case h.broadcast <- &restaurantEvent{RestaurantID: restaurantID, Event: event}:
	case <-h.done:
	}
}

// Publish marshals payload and broadcasts it under eventType.
func (h *Hub) Publish(restaurantID uuid.UUID, eventType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	h.BroadcastToRestaurant(restaurantID, Event{Type: eventType, Payload: raw})
	return nil
}

// ClientCount returns the number of connected clients of a restaurant.
func (h *Hub) ClientCount(restaurantID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[restaurantID])
}

func (h *Hub) add(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}
