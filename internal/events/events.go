// Package events publishes order-flow events to NATS for downstream
// consumers such as kitchen display services.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/kot"
)

const (
	// TicketTopic carries every persisted KOT.
	TicketTopic = "kitchen.tickets"
	// TableStatusTopic carries table state changes.
	TableStatusTopic = "tables.status"
	// OrderTopic carries order lifecycle changes (settled, cancelled).
	OrderTopic = "orders.lifecycle"

	EventTicketCreated      = "kot.created"
	EventTableStatusChanged = "table.status.changed"
	EventOrderSettled       = "order.settled"
	EventOrderCancelled     = "order.cancelled"
)

type Publisher interface {
	Publish(ctx context.Context, topic string, msg []byte) error
	Close() error
}

type TicketEvent struct {
	EventType    string     `json:"event_type"`
	RestaurantID uuid.UUID  `json:"restaurant_id"`
	OrderID      uuid.UUID  `json:"order_id"`
	OrderNumber  string     `json:"order_number"`
	KotID        uuid.UUID  `json:"kot_id"`
	TicketNumber int32      `json:"ticket_number"`
	Group        string     `json:"group"`
	Kind         kot.Kind   `json:"kind"`
	Lines        []kot.Line `json:"lines"`
	OccurredAt   time.Time  `json:"occurred_at"`
}

type TableStatusEvent struct {
	EventType      string    `json:"event_type"`
	RestaurantID   uuid.UUID `json:"restaurant_id"`
	TableID        uuid.UUID `json:"table_id"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type OrderEvent struct {
	EventType    string    `json:"event_type"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
	OrderID      uuid.UUID `json:"order_id"`
	OrderNumber  string    `json:"order_number"`
	Status       string    `json:"status"`
	Total        string    `json:"total,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Emit marshals v and publishes it on topic.
func Emit(ctx context.Context, p Publisher, topic string, v any) error {
	msg, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}
	return p.Publish(ctx, topic, msg)
}

type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("cafe-pos-api"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.conn.Publish(topic, msg)
}

// Close flushes buffered messages before disconnecting.
func (p *NATSPublisher) Close() error {
	err := p.conn.Drain()
	if err != nil {
		p.conn.Close()
	}
	return err
}

// NoopPublisher is used when NATS_URL is not configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, []byte) error { return nil }
func (NoopPublisher) Close() error                                  { return nil }
