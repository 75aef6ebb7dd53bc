// Package tablestate holds the dining table and reservation state machines.
package tablestate

import (
	"errors"
	"fmt"

	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/enum"
)

// Event drives a table from one status to the next.
type Event string

const (
	EventSeat    Event = "SEAT"
	EventVacate  Event = "VACATE"
	EventFree    Event = "FREE"
	EventClean   Event = "CLEAN"
	EventReserve Event = "RESERVE"
	EventRelease Event = "RELEASE"
)

var ErrInvalidTransition = errors.New("invalid status transition")

type edge struct {
	from  string
	event Event
}

// tableTransitions maps (current status, event) to the next status.
var tableTransitions = map[edge]string{
	{enum.TableStatusAvailable, EventSeat}:    enum.TableStatusOccupied,
	{enum.TableStatusReserved, EventSeat}:     enum.TableStatusOccupied,
	{enum.TableStatusOccupied, EventVacate}:   enum.TableStatusCleaning,
	{enum.TableStatusOccupied, EventFree}:     enum.TableStatusAvailable,
	{enum.TableStatusCleaning, EventClean}:    enum.TableStatusAvailable,
	{enum.TableStatusAvailable, EventReserve}: enum.TableStatusReserved,
	{enum.TableStatusReserved, EventRelease}:  enum.TableStatusAvailable,
}

// Next returns the status a table moves to when ev happens in state.
func Next(state string, ev Event) (string, error) {
	next, ok := tableTransitions[edge{state, ev}]
	if !ok {
		return "", fmt.Errorf("%w: %s on %s table", ErrInvalidTransition, ev, state)
	}
	return next, nil
}

// IsValidStatus reports whether s is a known table status.
func IsValidStatus(s string) bool {
	switch s {
	case enum.TableStatusAvailable, enum.TableStatusOccupied,
		enum.TableStatusCleaning, enum.TableStatusReserved:
		return true
	}
	return false
}

// EventFor maps a requested target status onto the event that reaches it
// from current. Used by the manual status endpoint.
func EventFor(current, target string) (Event, error) {
	for e, to := range tableTransitions {
		if e.from == current && to == target {
			return e.event, nil
		}
	}
	return "", fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, target)
}

// reservationTransitions lists the statuses a reservation can move to.
// SEATED, CANCELLED and NO_SHOW are terminal.
var reservationTransitions = map[string][]string{
	enum.ReservationStatusBooked: {
		enum.ReservationStatusSeated,
		enum.ReservationStatusCancelled,
		enum.ReservationStatusNoShow,
	},
}

// NextReservation validates a reservation status change.
func NextReservation(current, next string) error {
	for _, s := range reservationTransitions[current] {
		if s == next {
			return nil
		}
	}
	return fmt.Errorf("%w: reservation %s -> %s", ErrInvalidTransition, current, next)
}
