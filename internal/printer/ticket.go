package printer

import (
	"fmt"
	"strings"
	"time"

	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/kot"
)

// Header is the order context printed above the ticket lines.
type Header struct {
	Restaurant   string
	OrderNumber  string
	OrderType    string
	Table        string
	TicketNumber int32
	StaffName    string
	At           time.Time
}

var kindBanner = map[kot.Kind]string{
	kot.KindNew:     "KOT",
	kot.KindVoid:    "*** VOID ***",
	kot.KindReprint: "KOT REPRINT",
}

// RenderTicket lays out one ticket. VOID tickets print quantities negated so
// the line cannot be mistaken for a new order.
func RenderTicket(h Header, t kot.Ticket) []byte {
	var e encoder
	e.init()

	e.setAlign(alignCenter)
	if h.Restaurant != "" {
		e.writeln(h.Restaurant)
	}
	e.setEmphasize(true)
	e.setSize(2, 2)
	banner := kindBanner[t.Kind]
	if banner == "" {
		banner = string(t.Kind)
	}
	e.writeln(banner)
	e.setSize(1, 1)
	e.writeln(t.Group)
	e.setEmphasize(false)
	e.lineFeed()

	e.setAlign(alignLeft)
	e.separator()
	e.setEmphasize(true)
	e.writeln(fmt.Sprintf("Order #%s  KOT %d", h.OrderNumber, h.TicketNumber))
	e.setEmphasize(false)
	if h.Table != "" {
		e.setEmphasize(true)
		e.setSize(1, 2)
		e.writeln("Table: " + h.Table)
		e.setSize(1, 1)
		e.setEmphasize(false)
	} else if h.OrderType != "" {
		e.writeln("Type: " + strings.ReplaceAll(h.OrderType, "_", " "))
	}
	if h.StaffName != "" {
		e.writeln("By: " + h.StaffName)
	}
	at := h.At
	if at.IsZero() {
		at = time.Now()
	}
	e.writeln("Time: " + at.Format("02 Jan 15:04"))
	e.separator()

	for _, l := range t.Lines {
		qty := l.Quantity
		if t.Kind == kot.KindVoid {
			qty = -qty
		}
		e.setEmphasize(true)
		e.writeln(fmt.Sprintf("%3d x %s", qty, l.Name))
		e.setEmphasize(false)
		if ins := strings.TrimSpace(l.Instructions); ins != "" {
			e.writeln("      > " + ins)
		}
	}

	e.separator()
	e.writeln(fmt.Sprintf("Items: %d", t.ItemCount()))
	e.lineFeed()
	e.lineFeed()
	e.cut()
	return e.bytes()
}
