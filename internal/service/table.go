package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/database"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/enum"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/tablestate"
)

// Errors returned by the table service.
var (
	ErrInvalidTableStatus  = errors.New("invalid status")
	ErrStatusOwnedByOrder  = errors.New("OCCUPIED is managed by orders")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrGuestNameRequired   = errors.New("guest_name is required")
	ErrInvalidPartySize    = errors.New("party_size must be > 0")
	ErrReservedForRequired = errors.New("reserved_for is required")
)

// TableStore defines the DB methods needed for table status changes and
// reservations. Satisfied by *database.Queries.
type TableStore interface {
	GetDiningTable(ctx context.Context, arg database.GetDiningTableParams) (database.DiningTable, error)
	UpdateDiningTableStatus(ctx context.Context, arg database.UpdateDiningTableStatusParams) (database.DiningTable, error)
	GetCustomer(ctx context.Context, arg database.GetCustomerParams) (database.Customer, error)
	GetNextOrderNumber(ctx context.Context, restaurantID uuid.UUID) (int32, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)

	GetReservation(ctx context.Context, arg database.GetReservationParams) (database.Reservation, error)
	CreateReservation(ctx context.Context, arg database.CreateReservationParams) (database.Reservation, error)
	UpdateReservationStatus(ctx context.Context, arg database.UpdateReservationStatusParams) (database.Reservation, error)
	CountBookedReservationsForTable(ctx context.Context, arg database.CountBookedReservationsForTableParams) (int64, error)
}

// NewTableStore creates a TableStore from a DBTX (pool or tx).
type NewTableStore func(db database.DBTX) TableStore

// TableService handles floor state: manual table transitions and the
// reservation lifecycle.
type TableService struct {
	pool     TxBeginner
	newStore NewTableStore
	notify   Notifier
}

func NewTableService(pool TxBeginner, newStore NewTableStore, notify Notifier) *TableService {
	if notify == nil {
		notify = nopNotifier{}
	}
	return &TableService{pool: pool, newStore: newStore, notify: notify}
}

// SetStatus moves a table to target by the matching event. Staff can clean,
// reserve and release tables; seating and vacating happen through orders.
func (s *TableService) SetStatus(ctx context.Context, restaurantID, tableID uuid.UUID, target string) (database.DiningTable, error) {
	if !tablestate.IsValidStatus(target) {
		return database.DiningTable{}, ErrInvalidTableStatus
	}
	if target == enum.TableStatusOccupied {
		return database.DiningTable{}, ErrStatusOwnedByOrder
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.DiningTable{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	table, err := store.GetDiningTable(ctx, database.GetDiningTableParams{ID: tableID, RestaurantID: restaurantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.DiningTable{}, ErrTableNotFound
		}
		return database.DiningTable{}, fmt.Errorf("get table: %w", err)
	}
	if table.Status == target {
		return table, nil
	}

	ev, err := tablestate.EventFor(table.Status, target)
	if err != nil {
		return database.DiningTable{}, err
	}
	if ev == tablestate.EventFree || ev == tablestate.EventVacate {
		return database.DiningTable{}, ErrStatusOwnedByOrder
	}
	change, err := moveTable(ctx, store, restaurantID, tableID, ev)
	if err != nil {
		return database.DiningTable{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return database.DiningTable{}, fmt.Errorf("commit tx: %w", err)
	}
	s.notify.TablesChanged(ctx, []TableChange{change})
	return change.Table, nil
}

// CreateReservationRequest books a party, optionally at a specific table.
type CreateReservationRequest struct {
	RestaurantID uuid.UUID
	TableID      uuid.UUID
	CustomerID   uuid.UUID
	GuestName    string
	Phone        string
	PartySize    int32
	ReservedFor  time.Time
	Notes        string
}

func (r CreateReservationRequest) validate() error {
	if strings.TrimSpace(r.GuestName) == "" {
		return ErrGuestNameRequired
	}
	if r.PartySize <= 0 {
		return ErrInvalidPartySize
	}
	if r.ReservedFor.IsZero() {
		return ErrReservedForRequired
	}
	return nil
}

// CreateReservation books a reservation. An AVAILABLE table is put on hold
// (RESERVED); a busy table keeps its status.
func (s *TableService) CreateReservation(ctx context.Context, req CreateReservationRequest) (database.Reservation, error) {
	if err := req.validate(); err != nil {
		return database.Reservation{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Reservation{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	if req.CustomerID != uuid.Nil {
		if err := checkCustomer(ctx, store, req.RestaurantID, req.CustomerID); err != nil {
			return database.Reservation{}, err
		}
	}

	var changes []TableChange
	if req.TableID != uuid.Nil {
		table, err := store.GetDiningTable(ctx, database.GetDiningTableParams{ID: req.TableID, RestaurantID: req.RestaurantID})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return database.Reservation{}, ErrTableNotFound
			}
			return database.Reservation{}, fmt.Errorf("get table: %w", err)
		}
		if table.Status == enum.TableStatusAvailable {
			change, err := moveTable(ctx, store, req.RestaurantID, table.ID, tablestate.EventReserve)
			if err != nil {
				return database.Reservation{}, err
			}
			changes = append(changes, change)
		}
	}

	res, err := store.CreateReservation(ctx, database.CreateReservationParams{
		RestaurantID: req.RestaurantID,
		TableID:      optionalUUID(req.TableID),
		CustomerID:   optionalUUID(req.CustomerID),
		GuestName:    strings.TrimSpace(req.GuestName),
		Phone:        optionalText(req.Phone),
		PartySize:    req.PartySize,
		ReservedFor:  req.ReservedFor,
		Notes:        optionalText(req.Notes),
	})
	if err != nil {
		return database.Reservation{}, fmt.Errorf("create reservation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Reservation{}, fmt.Errorf("commit tx: %w", err)
	}
	s.notify.TablesChanged(ctx, changes)
	return res, nil
}

// SeatReservation opens an order for a booked party. The party size becomes
// the guest count.
func (s *TableService) SeatReservation(ctx context.Context, restaurantID, reservationID, staffID uuid.UUID) (database.Reservation, database.Order, error) {
	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		res, order, changes, err := s.seatTx(ctx, restaurantID, reservationID, staffID)
		if err == nil {
			s.notify.TablesChanged(ctx, changes)
			s.notify.OrderChanged(ctx, order, "")
			return res, order, nil
		}
		if isUniqueViolation(err, orderNumberConstraint) {
			lastErr = err
			continue
		}
		return database.Reservation{}, database.Order{}, err
	}
	return database.Reservation{}, database.Order{}, lastErr
}

func (s *TableService) seatTx(ctx context.Context, restaurantID, reservationID, staffID uuid.UUID) (database.Reservation, database.Order, []TableChange, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Reservation{}, database.Order{}, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	res, err := getReservation(ctx, store, restaurantID, reservationID)
	if err != nil {
		return database.Reservation{}, database.Order{}, nil, err
	}
	if err := tablestate.NextReservation(res.Status, enum.ReservationStatusSeated); err != nil {
		return database.Reservation{}, database.Order{}, nil, err
	}

	req := OpenOrderRequest{
		RestaurantID: restaurantID,
		CreatedBy:    staffID,
		OrderType:    enum.OrderTypeDineIn,
		Guests:       res.PartySize,
		Notes:        "Reservation: " + res.GuestName,
	}
	if res.TableID.Valid {
		req.TableID = res.TableID.Bytes
	}
	if res.CustomerID.Valid {
		req.CustomerID = res.CustomerID.Bytes
	}
	order, changes, err := openOrder(ctx, store, req)
	if err != nil {
		return database.Reservation{}, database.Order{}, nil, err
	}

	res, err = store.UpdateReservationStatus(ctx, database.UpdateReservationStatusParams{
		ID:           res.ID,
		RestaurantID: restaurantID,
		Status:       enum.ReservationStatusSeated,
		FromStatus:   enum.ReservationStatusBooked,
		OrderID:      optionalUUID(order.ID),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Reservation{}, database.Order{}, nil, fmt.Errorf("%w: reservation changed concurrently", tablestate.ErrInvalidTransition)
		}
		return database.Reservation{}, database.Order{}, nil, fmt.Errorf("update reservation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Reservation{}, database.Order{}, nil, fmt.Errorf("commit tx: %w", err)
	}
	return res, order, changes, nil
}

// CancelReservation cancels a booking.
func (s *TableService) CancelReservation(ctx context.Context, restaurantID, reservationID uuid.UUID) (database.Reservation, error) {
	return s.closeReservation(ctx, restaurantID, reservationID, enum.ReservationStatusCancelled)
}

// MarkNoShow records that a booked party never arrived.
func (s *TableService) MarkNoShow(ctx context.Context, restaurantID, reservationID uuid.UUID) (database.Reservation, error) {
	return s.closeReservation(ctx, restaurantID, reservationID, enum.ReservationStatusNoShow)
}

// closeReservation ends a booking and releases its table when no other
// booking still holds it.
func (s *TableService) closeReservation(ctx context.Context, restaurantID, reservationID uuid.UUID, status string) (database.Reservation, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Reservation{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	res, err := getReservation(ctx, store, restaurantID, reservationID)
	if err != nil {
		return database.Reservation{}, err
	}
	if err := tablestate.NextReservation(res.Status, status); err != nil {
		return database.Reservation{}, err
	}

	res, err = store.UpdateReservationStatus(ctx, database.UpdateReservationStatusParams{
		ID:           res.ID,
		RestaurantID: restaurantID,
		Status:       status,
		FromStatus:   res.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Reservation{}, fmt.Errorf("%w: reservation changed concurrently", tablestate.ErrInvalidTransition)
		}
		return database.Reservation{}, fmt.Errorf("update reservation: %w", err)
	}

	var changes []TableChange
	if res.TableID.Valid {
		others, err := store.CountBookedReservationsForTable(ctx, database.CountBookedReservationsForTableParams{
			TableID:   res.TableID.Bytes,
			ExcludeID: res.ID,
		})
		if err != nil {
			return database.Reservation{}, fmt.Errorf("count reservations: %w", err)
		}
		if others == 0 {
			change, err := moveTable(ctx, store, restaurantID, res.TableID.Bytes, tablestate.EventRelease)
			switch {
			case err == nil:
				changes = append(changes, change)
			case errors.Is(err, tablestate.ErrInvalidTransition), errors.Is(err, ErrTableNotFound):
				// Table was seated or released by hand in the meantime.
			default:
				return database.Reservation{}, err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Reservation{}, fmt.Errorf("commit tx: %w", err)
	}
	s.notify.TablesChanged(ctx, changes)
	return res, nil
}

func getReservation(ctx context.Context, store TableStore, restaurantID, reservationID uuid.UUID) (database.Reservation, error) {
	res, err := store.GetReservation(ctx, database.GetReservationParams{ID: reservationID, RestaurantID: restaurantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Reservation{}, ErrReservationNotFound
		}
		return database.Reservation{}, fmt.Errorf("get reservation: %w", err)
	}
	return res, nil
}
