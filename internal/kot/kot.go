// Package kot computes kitchen order tickets for a running order.
//
// An order keeps, per line, the quantity currently in the cart and the
// quantity the kitchen has already been told about. The functions here turn
// that pair into the delta that still has to go out, split the delta into
// tickets according to the restaurant's preference, and reconcile the line
// state once the tickets have been sent. Nothing in this package performs
// I/O; callers persist the result.
package kot

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Kind tells the kitchen what to do with the lines of a ticket.
type Kind string

const (
	KindNew     Kind = "NEW"
	KindVoid    Kind = "VOID"
	KindReprint Kind = "REPRINT"
)

var (
	ErrNegativeSent     = errors.New("sent quantity must be >= 0")
	ErrNegativeQuantity = errors.New("quantity must be >= 0")
)

// Line is one item on a ticket (or in a cart).
type Line struct {
	ItemID       uuid.UUID `json:"item_id"`
	MenuItemID   uuid.UUID `json:"menu_item_id"`
	Name         string    `json:"name"`
	CategoryID   uuid.UUID `json:"category_id"`
	CategoryName string    `json:"category_name,omitempty"`
	Station      string    `json:"station"`
	Quantity     int32     `json:"quantity"`
	Instructions string    `json:"instructions,omitempty"`
}

// key identifies a line across the sent and cart sets. Persisted lines are
// matched by ID; ad-hoc lines fall back to menu item plus instructions.
func (l Line) key() string {
	if l.ItemID != uuid.Nil {
		return l.ItemID.String()
	}
	return l.MenuItemID.String() + "|" + strings.TrimSpace(l.Instructions)
}

// CartItem is a line together with the quantity already sent to the kitchen.
type CartItem struct {
	Line
	SentQuantity int32 `json:"sent_quantity"`
}

// Validate rejects negative quantities.
func (c CartItem) Validate() error {
	if c.SentQuantity < 0 {
		return ErrNegativeSent
	}
	if c.Quantity < 0 {
		return ErrNegativeQuantity
	}
	return nil
}

// Ticket is a group of lines printed together.
type Ticket struct {
	Group string `json:"group"`
	Kind  Kind   `json:"kind"`
	Lines []Line `json:"lines"`
}

// ItemCount is the total quantity on the ticket.
func (t Ticket) ItemCount() int32 {
	var n int32
	for _, l := range t.Lines {
		n += l.Quantity
	}
	return n
}

type tally struct {
	order []string
	first map[string]Line
	qty   map[string]int32
}

func newTally(lines []Line) tally {
	t := tally{
		first: make(map[string]Line, len(lines)),
		qty:   make(map[string]int32, len(lines)),
	}
	for _, l := range lines {
		k := l.key()
		if _, ok := t.first[k]; !ok {
			t.order = append(t.order, k)
			t.first[k] = l
		}
		if l.Quantity > 0 {
			t.qty[k] += l.Quantity
		}
	}
	return t
}

// Diff compares what the kitchen has seen with the current cart. Quantities
// of lines sharing a key are summed. added holds positive deltas in cart
// order, removed holds reductions in sent order.
func Diff(sent, cart []Line) (added, removed []Line) {
	s := newTally(sent)
	c := newTally(cart)

	for _, k := range c.order {
		if d := c.qty[k] - s.qty[k]; d > 0 {
			l := c.first[k]
			l.Quantity = d
			added = append(added, l)
		}
	}
	for _, k := range s.order {
		if d := s.qty[k] - c.qty[k]; d > 0 {
			l := s.first[k]
			l.Quantity = d
			removed = append(removed, l)
		}
	}
	return added, removed
}

// Pending is Diff applied to persisted per-line state.
func Pending(items []CartItem) (added, removed []Line, err error) {
	sent := make([]Line, 0, len(items))
	cart := make([]Line, 0, len(items))
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return nil, nil, err
		}
		s := it.Line
		s.Quantity = it.SentQuantity
		sent = append(sent, s)
		cart = append(cart, it.Line)
	}
	added, removed = Diff(sent, cart)
	return added, removed, nil
}

// HasPending reports whether the cart differs from what was sent.
func HasPending(items []CartItem) bool {
	for _, it := range items {
		if it.Quantity != it.SentQuantity {
			return true
		}
	}
	return false
}

// Build returns the tickets needed to bring the kitchen up to date: NEW
// tickets for added quantities followed by VOID tickets for reductions.
func Build(items []CartItem, pref Preference) ([]Ticket, error) {
	added, removed, err := Pending(items)
	if err != nil {
		return nil, err
	}
	tickets := Group(added, pref, KindNew)
	tickets = append(tickets, Group(removed, pref, KindVoid)...)
	return tickets, nil
}

// Reprint returns REPRINT tickets for everything the kitchen already has.
func Reprint(items []CartItem, pref Preference) ([]Ticket, error) {
	lines := make([]Line, 0, len(items))
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return nil, err
		}
		if it.SentQuantity == 0 {
			continue
		}
		l := it.Line
		l.Quantity = it.SentQuantity
		lines = append(lines, l)
	}
	return Group(lines, pref, KindReprint), nil
}

// MarkSent reconciles line state after the tickets from Build went out.
// Lines left at quantity zero are dropped.
func MarkSent(items []CartItem) []CartItem {
	out := make([]CartItem, 0, len(items))
	for _, it := range items {
		if it.Quantity <= 0 {
			continue
		}
		it.SentQuantity = it.Quantity
		out = append(out, it)
	}
	return out
}
