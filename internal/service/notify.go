package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/database"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/events"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/kot"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/printer"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/ws"
)

// SentTicket is a persisted KOT together with its decoded lines.
type SentTicket struct {
	Kot    database.Kot
	Ticket kot.Ticket
}

// TicketBatch is everything produced by one send, reprint or flush.
type TicketBatch struct {
	RestaurantID   uuid.UUID
	RestaurantName string
	Order          database.Order
	TableName      string
	Tickets        []SentTicket
}

// TableChange records a table status transition made inside a transaction.
type TableChange struct {
	Table    database.DiningTable
	Previous string
}

// Notifier is told about committed changes. Implementations must not fail
// the caller; delivery problems are logged.
type Notifier interface {
	TicketsSent(ctx context.Context, batch TicketBatch)
	TablesChanged(ctx context.Context, changes []TableChange)
	OrderChanged(ctx context.Context, order database.Order, eventType string)
}

// Broadcaster is satisfied by *ws.Hub.
type Broadcaster interface {
	Publish(restaurantID uuid.UUID, eventType string, payload any) error
}

// TicketPrinter is satisfied by *printer.Router.
type TicketPrinter interface {
	Enabled() bool
	Print(ctx context.Context, h printer.Header, tickets []kot.Ticket) error
}

// Dispatcher fans committed changes out to WebSocket clients, NATS and the
// kitchen printers. Printing happens on the goroutine started by Run so a
// slow or unreachable printer never holds up the request that sent the KOT.
type Dispatcher struct {
	hub          Broadcaster
	pub          events.Publisher
	printer      TicketPrinter
	printTimeout time.Duration
	jobs         chan printJob
}

type printJob struct {
	header  printer.Header
	tickets []kot.Ticket
	orderID uuid.UUID
}

const printQueueSize = 64

func NewDispatcher(hub Broadcaster, pub events.Publisher, p TicketPrinter) *Dispatcher {
	if pub == nil {
		pub = events.NoopPublisher{}
	}
	return &Dispatcher{
		hub:          hub,
		pub:          pub,
		printer:      p,
		printTimeout: 15 * time.Second,
		jobs:         make(chan printJob, printQueueSize),
	}
}

// Run prints queued tickets until ctx is cancelled. Jobs still queued at
// that point are logged and discarded.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			if n := len(d.jobs); n > 0 {
				zap.L().Warn("print queue abandoned on shutdown", zap.Int("jobs", n))
			}
			return
		case job := <-d.jobs:
			d.print(ctx, job)
		}
	}
}

func (d *Dispatcher) print(ctx context.Context, job printJob) {
	pctx, cancel := context.WithTimeout(ctx, d.printTimeout)
	defer cancel()
	if err := d.printer.Print(pctx, job.header, job.tickets); err != nil {
		zap.L().Error("print kot",
			zap.Stringer("order_id", job.orderID),
			zap.Int32("ticket_number", job.header.TicketNumber),
			zap.Error(err))
	}
}

func (d *Dispatcher) TicketsSent(ctx context.Context, batch TicketBatch) {
	if len(batch.Tickets) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	log := zap.L().With(zap.Stringer("order_id", batch.Order.ID))

	for _, st := range batch.Tickets {
		ev := events.TicketEvent{
			EventType:    events.EventTicketCreated,
			RestaurantID: batch.RestaurantID,
			OrderID:      batch.Order.ID,
			OrderNumber:  batch.Order.OrderNumber,
			KotID:        st.Kot.ID,
			TicketNumber: st.Kot.TicketNumber,
			Group:        st.Ticket.Group,
			Kind:         st.Ticket.Kind,
			Lines:        st.Ticket.Lines,
			OccurredAt:   st.Kot.CreatedAt,
		}
		if d.hub != nil {
			if err := d.hub.Publish(batch.RestaurantID, ws.EventKOTCreated, ev); err != nil {
				log.Warn("broadcast kot", zap.Error(err))
			}
		}
		if err := events.Emit(ctx, d.pub, events.TicketTopic, ev); err != nil {
			log.Warn("publish kot", zap.Error(err))
		}
	}

	if d.printer == nil || !d.printer.Enabled() {
		return
	}
	for _, st := range batch.Tickets {
		job := printJob{
			header: printer.Header{
				Restaurant:   batch.RestaurantName,
				OrderNumber:  batch.Order.OrderNumber,
				OrderType:    batch.Order.OrderType,
				Table:        batch.TableName,
				TicketNumber: st.Kot.TicketNumber,
				At:           st.Kot.CreatedAt,
			},
			tickets: []kot.Ticket{st.Ticket},
			orderID: batch.Order.ID,
		}
		select {
		case d.jobs <- job:
		default:
			// The ticket is still on the KDS and can be reprinted.
			log.Error("print queue full, ticket not printed", zap.Int32("ticket_number", st.Kot.TicketNumber))
		}
	}
}

func (d *Dispatcher) TablesChanged(ctx context.Context, changes []TableChange) {
	ctx = context.WithoutCancel(ctx)
	for _, c := range changes {
		ev := events.TableStatusEvent{
			EventType:      events.EventTableStatusChanged,
			RestaurantID:   c.Table.RestaurantID,
			TableID:        c.Table.ID,
			Status:         c.Table.Status,
			PreviousStatus: c.Previous,
			OccurredAt:     c.Table.UpdatedAt,
		}
		if d.hub != nil {
			if err := d.hub.Publish(c.Table.RestaurantID, ws.EventTableUpdated, ev); err != nil {
				zap.L().Warn("broadcast table", zap.Error(err))
			}
		}
		if err := events.Emit(ctx, d.pub, events.TableStatusTopic, ev); err != nil {
			zap.L().Warn("publish table", zap.Error(err))
		}
	}
}

func (d *Dispatcher) OrderChanged(ctx context.Context, order database.Order, eventType string) {
	if d.hub != nil {
		if err := d.hub.Publish(order.RestaurantID, ws.EventOrderUpdated, order); err != nil {
			zap.L().Warn("broadcast order", zap.Error(err))
		}
	}
	if eventType == "" {
		return
	}
	ev := events.OrderEvent{
		EventType:    eventType,
		RestaurantID: order.RestaurantID,
		OrderID:      order.ID,
		OrderNumber:  order.OrderNumber,
		Status:       order.Status,
		OccurredAt:   order.UpdatedAt,
	}
	if err := events.Emit(context.WithoutCancel(ctx), d.pub, events.OrderTopic, ev); err != nil {
		zap.L().Warn("publish order", zap.Error(err))
	}
}

// nopNotifier is used when a service is built without one.
type nopNotifier struct{}

func (nopNotifier) TicketsSent(context.Context, TicketBatch)              {}
func (nopNotifier) TablesChanged(context.Context, []TableChange)          {}
func (nopNotifier) OrderChanged(context.Context, database.Order, string) {}
