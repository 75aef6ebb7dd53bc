package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/database"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/enum"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/events"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/kot"
)

// orderFixture is a restaurant with two tables and a kitchen and a bar item.
type orderFixture struct {
	store  *fakeStore
	svc    *OrderService
	tx     *mockTx
	notify *recordingNotifier

	restaurant database.Restaurant
	t1, t2     database.DiningTable
	curry      database.GetMenuItemForOrderRow
	lime       database.GetMenuItemForOrderRow
	staffID    uuid.UUID
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	store := newFakeStore()
	pool, tx := testPool()
	notify := &recordingNotifier{}
	f := &orderFixture{
		store:   store,
		svc:     NewOrderService(pool, func(db database.DBTX) OrderStore { return store }, notify),
		tx:      tx,
		notify:  notify,
		staffID: uuid.New(),
	}
	f.restaurant = store.addRestaurant("5")
	f.t1 = store.addTable(f.restaurant.ID, "T1", enum.TableStatusAvailable)
	f.t2 = store.addTable(f.restaurant.ID, "T2", enum.TableStatusAvailable)
	f.curry = store.addMenuItem("Paneer Curry", "150.00", enum.StationKitchen)
	f.lime = store.addMenuItem("Fresh Lime", "60.00", enum.StationBar)
	return f
}

func (f *orderFixture) open(t *testing.T, tableID uuid.UUID) database.Order {
	t.Helper()
	order, err := f.svc.OpenOrder(context.Background(), OpenOrderRequest{
		RestaurantID: f.restaurant.ID,
		CreatedBy:    f.staffID,
		TableID:      tableID,
	})
	require.NoError(t, err)
	return order
}

func (f *orderFixture) add(t *testing.T, orderID uuid.UUID, mi database.GetMenuItemForOrderRow, qty int32, instructions string) database.OrderItem {
	t.Helper()
	item, err := f.svc.AddItem(context.Background(), AddItemRequest{
		RestaurantID: f.restaurant.ID,
		OrderID:      orderID,
		MenuItemID:   mi.ID,
		Quantity:     qty,
		Instructions: instructions,
	})
	require.NoError(t, err)
	return item
}

func (f *orderFixture) send(t *testing.T, orderID uuid.UUID) TicketBatch {
	t.Helper()
	batch, err := f.svc.SendKOT(context.Background(), f.restaurant.ID, orderID, f.staffID)
	require.NoError(t, err)
	return batch
}

func (f *orderFixture) tableStatus(id uuid.UUID) string {
	return f.store.tables[id].Status
}

func decodeLines(t *testing.T, k database.Kot) []kot.Line {
	t.Helper()
	var lines []kot.Line
	require.NoError(t, json.Unmarshal(k.Lines, &lines))
	return lines
}

// =====================
// OpenOrder
// =====================

func TestOpenOrder_Defaults(t *testing.T) {
	f := newOrderFixture(t)

	order := f.open(t, uuid.Nil)

	assert.Equal(t, "0001", order.OrderNumber)
	assert.Equal(t, enum.OrderTypeDineIn, order.OrderType)
	assert.Equal(t, int32(1), order.Guests)
	assert.Equal(t, enum.OrderStatusOpen, order.Status)
	assert.False(t, order.TableID.Valid, "pending order has no table")
	assert.Equal(t, 1, f.tx.committed)
}

func TestOpenOrder_Validation(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  OpenOrderRequest
		want error
	}{
		{"unknown type", OpenOrderRequest{OrderType: "DRIVE_THRU"}, ErrInvalidOrderType},
		{"takeaway with table", OpenOrderRequest{OrderType: enum.OrderTypeTakeaway, TableID: f.t1.ID}, ErrTableNotAllowed},
		{"negative guests", OpenOrderRequest{Guests: -2}, ErrInvalidGuests},
		{"unknown customer", OpenOrderRequest{CustomerID: uuid.New()}, ErrCustomerNotFound},
		{"unknown table", OpenOrderRequest{TableID: uuid.New()}, ErrTableNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.RestaurantID = f.restaurant.ID
			_, err := f.svc.OpenOrder(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestOpenOrder_SeatsTable(t *testing.T) {
	f := newOrderFixture(t)

	order := f.open(t, f.t1.ID)

	assert.True(t, order.TableID.Valid)
	assert.Equal(t, enum.TableStatusOccupied, f.tableStatus(f.t1.ID))
	require.Len(t, f.notify.tables, 1)
	assert.Equal(t, enum.TableStatusAvailable, f.notify.tables[0].Previous)
}

func TestOpenOrder_ReservedTableCanBeSeated(t *testing.T) {
	f := newOrderFixture(t)
	tbl := f.store.addTable(f.restaurant.ID, "T9", enum.TableStatusReserved)

	f.open(t, tbl.ID)

	assert.Equal(t, enum.TableStatusOccupied, f.tableStatus(tbl.ID))
}

func TestOpenOrder_TableBusy(t *testing.T) {
	for _, status := range []string{enum.TableStatusOccupied, enum.TableStatusCleaning} {
		t.Run(status, func(t *testing.T) {
			f := newOrderFixture(t)
			tbl := f.store.addTable(f.restaurant.ID, "T9", status)

			_, err := f.svc.OpenOrder(context.Background(), OpenOrderRequest{
				RestaurantID: f.restaurant.ID,
				TableID:      tbl.ID,
			})
			assert.ErrorIs(t, err, ErrTableBusy)
			assert.Equal(t, status, f.tableStatus(tbl.ID))
		})
	}
}

func TestOpenOrder_RetriesOnNumberConflict(t *testing.T) {
	f := newOrderFixture(t)
	f.store.failOnce("CreateOrder", uniqueViolation(orderNumberConstraint))

	order := f.open(t, uuid.Nil)

	assert.Equal(t, "0001", order.OrderNumber)
}

func TestOpenOrder_GivesUpAfterRetries(t *testing.T) {
	f := newOrderFixture(t)
	f.store.hooks["CreateOrder"] = func() error { return uniqueViolation(orderNumberConstraint) }

	_, err := f.svc.OpenOrder(context.Background(), OpenOrderRequest{RestaurantID: f.restaurant.ID})

	assert.True(t, isUniqueViolation(err, orderNumberConstraint))
}

func TestOpenOrder_OpenOrderOnTableIndex(t *testing.T) {
	f := newOrderFixture(t)
	f.store.failOnce("CreateOrder", uniqueViolation(openOrderPerTableIndex))

	_, err := f.svc.OpenOrder(context.Background(), OpenOrderRequest{RestaurantID: f.restaurant.ID, TableID: f.t1.ID})

	assert.ErrorIs(t, err, ErrTableBusy)
}

func TestOpenOrder_BeginError(t *testing.T) {
	store := newFakeStore()
	pool := &mockTxBeginner{err: errors.New("pool closed")}
	svc := NewOrderService(pool, func(db database.DBTX) OrderStore { return store }, nil)

	_, err := svc.OpenOrder(context.Background(), OpenOrderRequest{RestaurantID: uuid.New()})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin tx")
}

// =====================
// Cart edits
// =====================

func TestAddItem_MergesUnsentLines(t *testing.T) {
	f := newOrderFixture(t)
	order := f.open(t, f.t1.ID)

	f.add(t, order.ID, f.curry, 2, "")
	merged := f.add(t, order.ID, f.curry, 1, "")
	f.add(t, order.ID, f.curry, 1, "no onion")

	items := f.store.itemsFor(order.ID)
	require.Len(t, items, 2)
	assert.Equal(t, int32(3), merged.Quantity)
	assert.Equal(t, "no onion", items[1].Instructions)
	assert.True(t, numericEquals(items[0].UnitPrice, "150"), "price is snapshotted")
}

func TestAddItem_SentLineIsNotMerged(t *testing.T) {
	f := newOrderFixture(t)
	order := f.open(t, f.t1.ID)

	f.add(t, order.ID, f.curry, 1, "")
	f.send(t, order.ID)
	f.add(t, order.ID, f.curry, 1, "")

	items := f.store.itemsFor(order.ID)
	require.Len(t, items, 2)
	assert.Equal(t, int32(1), items[0].SentQuantity)
	assert.Equal(t, int32(0), items[1].SentQuantity)
}

func TestAddItem_Errors(t *testing.T) {
	f := newOrderFixture(t)
	order := f.open(t, uuid.Nil)
	sold := f.store.addMenuItem("Biryani", "200", enum.StationKitchen)
	sold.IsAvailable = false
	f.store.menu[sold.ID] = sold

	tests := []struct {
		name string
		req  AddItemRequest
		want error
	}{
		{"zero quantity", AddItemRequest{OrderID: order.ID, MenuItemID: f.curry.ID}, ErrInvalidQuantity},
		{"unknown order", AddItemRequest{OrderID: uuid.New(), MenuItemID: f.curry.ID, Quantity: 1}, ErrOrderNotFound},
		{"unknown item", AddItemRequest{OrderID: order.ID, MenuItemID: uuid.New(), Quantity: 1}, ErrMenuItemNotFound},
		{"sold out", AddItemRequest{OrderID: order.ID, MenuItemID: sold.ID, Quantity: 1}, ErrMenuItemUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.RestaurantID = f.restaurant.ID
			_, err := f.svc.AddItem(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAddItem_ClosedOrder(t *testing.T) {
	f := newOrderFixture(t)
	order := f.open(t, uuid.Nil)
	_, _, err := f.svc.Cancel(context.Background(), f.restaurant.ID, order.ID, f.staffID)
	require.NoError(t, err)

	_, err = f.svc.AddItem(context.Background(), AddItemRequest{
		RestaurantID: f.restaurant.ID,
		OrderID:      order.ID,
		MenuItemID:   f.curry.ID,
		Quantity:     1,
	})
	assert.ErrorIs(t, err, ErrOrderClosed)
}

func TestUpdateItem_DeletesUnsentLineAtZero(t *testing.T) {
	f := newOrderFixture(t)
	order := f.open(t, uuid.Nil)
	item := f.add(t, order.ID, f.curry, 2, "")

	updated, err := f.svc.UpdateItem(context.Background(), UpdateItemRequest{
		RestaurantID: f.restaurant.ID,
		OrderID:      order.ID,
		ItemID:       item.ID,
	})

	require.NoError(t, err)
	assert.Nil(t, updated)
	assert.Empty(t, f.store.itemsFor(order.ID))
}

func TestUpdateItem_SentLineVoidedOnNextSend(t *testing.T) {
	f := newOrderFixture(t)
	order := f.open(t, f.t1.ID)
	item := f.add(t, order.ID, f.curry, 2, "")
	f.send(t, order.ID)

	require.NoError(t, f.svc.RemoveItem(context.Background(), f.restaurant.ID, order.ID, item.ID))
	items := f.store.itemsFor(order.ID)
	require.Len(t, items, 1, "sent line stays until the void goes out")
	assert.Equal(t, int32(0), items[0].Quantity)

	batch := f.send(t, order.ID)
	require.Len(t, batch.Tickets, 1)
	assert.Equal(t, kot.KindVoid, batch.Tickets[0].Ticket.Kind)
	assert.Equal(t, int32(2), batch.Tickets[0].Ticket.ItemCount())
	assert.Empty(t, f.store.itemsFor(order.ID), "voided line is pruned")
}

func TestUpdateItem_SentInstructionsRejected(t *testing.T) {
	f := newOrderFixture(t)
	order := f.open(t, uuid.Nil)
	item := f.add(t, order.ID, f.curry, 1, "mild")
	f.send(t, order.ID)

	spicy := "extra spicy"
	_, err := f.svc.UpdateItem(context.Background(), UpdateItemRequest{
		RestaurantID: f.restaurant.ID,
		OrderID:      order.ID,
		ItemID:       item.ID,
		Quantity:     1,
		Instructions: &spicy,
	})
	assert.ErrorIs(t, err, ErrSentInstructions)
}

func TestUpdateItem_Errors(t *testing.T) {
	f := newOrderFixture(t)
	order := f.open(t, uuid.Nil)

	_, err := f.svc.UpdateItem(context.Background(), UpdateItemRequest{
		RestaurantID: f.restaurant.ID, OrderID: order.ID, ItemID: uuid.New(), Quantity: -1,
	})
	assert.ErrorIs(t, err, ErrNegativeQuantity)

	_, err = f.svc.UpdateItem(context.Background(), UpdateItemRequest{
		RestaurantID: f.restaurant.ID, OrderID: order.ID, ItemID: uuid.New(), Quantity: 1,
	})
	assert.ErrorIs(t, err, ErrItemNotFound)
}

// =====================
// Tables
// =====================

func TestAssignTable_SeatsPendingOrder(t *testing.T) {
	f := newOrderFixture(t)
	order := f.open(t, uuid.Nil)

	updated, err := f.svc.AssignTable(context.Background(), f.restaurant.ID, order.ID, f.t1.ID)

	require.NoError(t, err)
	assert.Equal(t, f.t1.ID, uuid.UUID(updated.TableID.Bytes))
	assert.Equal(t, enum.TableStatusOccupied, f.tableStatus(f.t1.ID))
}

func TestAssignTable_MoveFreesUnusedTable(t *testing.T) {
	f := newOrderFixture(t)
	order := f.open(t, f.t1.ID)

	_, err := f.svc.AssignTable(context.Background(), f.restaurant.ID, order.ID, f.t2.ID)

	require.NoError(t, err)
	assert.Equal(t, enum.TableStatusAvailable, f.tableStatus(f.t1.ID))
	assert.Equal(t, enum.TableStatusOccupied, f.tableStatus(f.t2.ID))
}

func TestAssignTable_MoveAfterSendNeedsCleaning(t *testing.T) {
	f := newOrderFixture(t)
	order := f.open(t, f.t1.ID)
	f.add(t, order.ID, f.curry, 1, "")
	f.send(t, order.ID)

	_, err := f.svc.AssignTable(context.Background(), f.restaurant.ID, order.ID, f.t2.ID)

	require.NoError(t, err)
	assert.Equal(t, enum.TableStatusCleaning, f.tableStatus(f.t1.ID))
}

func TestAssignTable_SameTableIsNoop(t *testing.T) {
	f := newOrderFixture(t)
	order := f.open(t, f.t1.ID)
	f.notify.tables = nil

	_, err := f.svc.AssignTable(context.Background(), f.restaurant.ID, order.ID, f.t1.ID)

	require.NoError(t, err)
	assert.Empty(t, f.notify.tables)
}

func TestAssignTable_BusyTarget(t *testing.T) {
	f := newOrderFixture(t)
	f.open(t, f.t2.ID)
	order := f.open(t, f.t1.ID)

	_, err := f.svc.AssignTable(context.Background(), f.restaurant.ID, order.ID, f.t2.ID)

	assert.ErrorIs(t, err, ErrTableBusy)
}

// =====================
// KOT
// =====================

func TestSendKOT_NothingToSend(t *testing.T) {
	f := newOrderFixture(t)
	order := f.open(t, f.t1.ID)

	_, err := f.svc.SendKOT(context.Background(), f.restaurant.ID, order.ID, f.staffID)
	assert.ErrorIs(t, err, ErrNothingToSend)

	f.add(t, order.ID, f.curry, 1, "")
	f.send(t, order.ID)
	_, err = f.svc.SendKOT(context.Background(), f.restaurant.ID, order.ID, f.staffID)
	assert.ErrorIs(t, err, ErrNothingToSend)
}

func TestSendKOT_SingleModeDelta(t *testing.T) {
	f := newOrderFixture(t)
	order := f.open(t, f.t1.ID)
	f.add(t, order.ID, f.curry, 2, "")
	f.add(t, order.ID, f.lime, 1, "")

	first := f.send(t, order.ID)
	require.Len(t, first.Tickets, 1)
	assert.Equal(t, kot.DefaultGroup, first.Tickets[0].Ticket.Group)
	assert.Equal(t, int32(1), first.Tickets[0].Kot.TicketNumber)
	assert.Equal(t, "T1", first.TableName)
	assert.Equal(t, "Cafe Test", first.RestaurantName)

	f.add(t, order.ID, f.lime, 1, "")
	second := f.send(t, order.ID)
	require.Len(t, second.Tickets, 1)
	assert.Equal(t, int32(2), second.Tickets[0].Kot.TicketNumber)

	lines := decodeLines(t, second.Tickets[0].Kot)
	require.Len(t, lines, 1, "only the delta is printed")
	assert.Equal(t, "Fresh Lime", lines[0].Name)
	assert.Equal(t, int32(1), lines[0].Quantity)

	assert.Len(t, f.notify.batches, 2)
}

func TestSendKOT_KitchenBarSplit(t *testing.T) {
	f := newOrderFixture(t)
	pref := kot.Preference{Mode: kot.ModeKitchenBar, GroupOrder: []string{"BAR", "KITCHEN"}}
	_, err := f.store.UpsertKotPreference(context.Background(), PreferenceParams(f.restaurant.ID, pref))
	require.NoError(t, err)

	order := f.open(t, f.t1.ID)
	f.add(t, order.ID, f.curry, 1, "")
	f.add(t, order.ID, f.lime, 2, "")

	batch := f.send(t, order.ID)
	require.Len(t, batch.Tickets, 2)
	assert.Equal(t, "BAR", batch.Tickets[0].Ticket.Group)
	assert.Equal(t, "KITCHEN", batch.Tickets[1].Ticket.Group)
	assert.Equal(t, "BAR", batch.Tickets[0].Kot.GroupName)
}

func TestSendKOT_QuantityChangeProducesNewAndVoid(t *testing.T) {
	f := newOrderFixture(t)
	order := f.open(t, f.t1.ID)
	curry := f.add(t, order.ID, f.curry, 3, "")
	lime := f.add(t, order.ID, f.lime, 1, "")
	f.send(t, order.ID)

	_, err := f.svc.UpdateItem(context.Background(), UpdateItemRequest{
		RestaurantID: f.restaurant.ID, OrderID: order.ID, ItemID: curry.ID, Quantity: 1,
	})
	require.NoError(t, err)
	_, err = f.svc.UpdateItem(context.Background(), UpdateItemRequest{
		RestaurantID: f.restaurant.ID, OrderID: order.ID, ItemID: lime.ID, Quantity: 2,
	})
	require.NoError(t, err)

	batch := f.send(t, order.ID)
	require.Len(t, batch.Tickets, 2)
	assert.Equal(t, kot.KindNew, batch.Tickets[0].Ticket.Kind)
	assert.Equal(t, int32(1), batch.Tickets[0].Ticket.ItemCount())
	assert.Equal(t, kot.KindVoid, batch.Tickets[1].Ticket.Kind)
	assert.Equal(t, int32(2), batch.Tickets[1].Ticket.ItemCount())

	for _, it := range f.store.itemsFor(order.ID) {
		assert.Equal(t, it.Quantity, it.SentQuantity, "line %s reconciled", it.Name)
	}
}

func TestReprintKOT(t *testing.T) {
	f := newOrderFixture(t)
	order := f.open(t, f.t1.ID)
	f.add(t, order.ID, f.curry, 2, "")

	_, err := f.svc.ReprintKOT(context.Background(), f.restaurant.ID, order.ID, f.staffID)
	assert.ErrorIs(t, err, ErrNothingToSend, "nothing sent yet")

	f.send(t, order.ID)
	f.add(t, order.ID, f.lime, 1, "")

	batch, err := f.svc.ReprintKOT(context.Background(), f.restaurant.ID, order.ID, f.staffID)
	require.NoError(t, err)
	require.Len(t, batch.Tickets, 1)
	assert.Equal(t, kot.KindReprint, batch.Tickets[0].Ticket.Kind)
	assert.Equal(t, int32(2), batch.Tickets[0].Ticket.ItemCount(), "unsent lime is not reprinted")
	assert.Equal(t, int32(2), batch.Tickets[0].Kot.TicketNumber)

	items := f.store.itemsFor(order.ID)
	assert.Equal(t, int32(0), items[1].SentQuantity, "reprint leaves line state alone")
}

// =====================
// Settle
// =====================

func (f *orderFixture) settle(t *testing.T, req SettleRequest) *SettleResult {
	t.Helper()
	req.RestaurantID = f.restaurant.ID
	req.StaffID = f.staffID
	res, err := f.svc.Settle(context.Background(), req)
	require.NoError(t, err)
	return res
}

func TestSettle_PaidInFull(t *testing.T) {
	f := newOrderFixture(t)
	order := f.open(t, f.t1.ID)
	f.add(t, order.ID, f.curry, 2, "")

	res := f.settle(t, SettleRequest{OrderID: order.ID, PaymentMethod: enum.PaymentMethodCash})

	// 300 + 5% tax
	assert.Equal(t, "INV-00001", res.Bill.BillNumber)
	assert.True(t, numericEquals(res.Bill.Subtotal, "300"))
	assert.True(t, numericEquals(res.Bill.Tax, "15"))
	assert.True(t, numericEquals(res.Bill.Total, "315"))
	assert.True(t, numericEquals(res.Bill.PaidAmount, "315"))
	assert.Equal(t, enum.BillStatusPaid, res.Bill.Status)
	assert.True(t, res.Change.IsZero())
	assert.Nil(t, res.PendingBill)

	assert.Equal(t, enum.OrderStatusSettled, res.Order.Status)
	assert.Equal(t, enum.TableStatusCleaning, f.tableStatus(f.t1.ID))
	assert.Contains(t, f.notify.orders, events.EventOrderSettled)
}

func TestSettle_FlushesUnsentLinesAsFinalKOT(t *testing.T) {
	f := newOrderFixture(t)
	order := f.open(t, f.t1.ID)
	f.add(t, order.ID, f.curry, 1, "")
	f.send(t, order.ID)
	f.add(t, order.ID, f.lime, 1, "")

	res := f.settle(t, SettleRequest{OrderID: order.ID, PaymentMethod: enum.PaymentMethodCard})

	require.Len(t, res.Tickets.Tickets, 1)
	assert.Equal(t, kot.KindNew, res.Tickets.Tickets[0].Ticket.Kind)
	assert.Len(t, f.store.kotsFor(order.ID), 2)
	assert.True(t, numericEquals(res.Bill.Subtotal, "210"))
}

func TestSettle_ChangeReturned(t *testing.T) {
	f := newOrderFixture(t)
	order := f.open(t, uuid.Nil)
	f.add(t, order.ID, f.curry, 2, "")

	res := f.settle(t, SettleRequest{OrderID: order.ID, PaymentMethod: enum.PaymentMethodCash, PaidAmount: "500"})

	assert.True(t, numericEquals(res.Bill.PaidAmount, "315"), "paid is clamped to the total")
	assert.True(t, res.Change.Equal(decimal.RequireFromString("185")))
	assert.Equal(t, enum.BillStatusPaid, res.Bill.Status)
}

func TestSettle_PartialRequiresCustomer(t *testing.T) {
	f := newOrderFixture(t)
	order := f.open(t, uuid.Nil)
	f.add(t, order.ID, f.curry, 2, "")

	_, err := f.svc.Settle(context.Background(), SettleRequest{
		RestaurantID:  f.restaurant.ID,
		OrderID:       order.ID,
		PaymentMethod: enum.PaymentMethodCash,
		PaidAmount:    "100",
	})
	assert.ErrorIs(t, err, ErrCustomerRequired)
}

func TestSettle_PartialOpensReceivable(t *testing.T) {
	f := newOrderFixture(t)
	cust := f.store.addCustomer(f.restaurant.ID, "Asha")
	order := f.open(t, uuid.Nil)
	f.add(t, order.ID, f.curry, 2, "")

	res := f.settle(t, SettleRequest{
		OrderID:       order.ID,
		PaymentMethod: enum.PaymentMethodUPI,
		PaidAmount:    "100",
		CustomerID:    cust.ID,
	})

	assert.Equal(t, enum.BillStatusPartial, res.Bill.Status)
	assert.Equal(t, cust.ID, uuid.UUID(res.Order.CustomerID.Bytes))
	require.NotNil(t, res.PendingBill)
	assert.Equal(t, enum.PartyTypeCustomer, res.PendingBill.PartyType)
	assert.Equal(t, cust.ID, res.PendingBill.PartyID)
	assert.Equal(t, enum.SourceTypeBill, res.PendingBill.SourceType)
	assert.Equal(t, res.Bill.ID, res.PendingBill.SourceID)
	assert.True(t, numericEquals(res.PendingBill.AmountDue, "215"))
}

func TestSettle_SubCentTenderRoundsToCents(t *testing.T) {
	f := newOrderFixture(t)
	order := f.open(t, uuid.Nil)
	f.add(t, order.ID, f.curry, 2, "")

	// 314.999 is 315.00 at the till: a walk-in pays in full.
	res := f.settle(t, SettleRequest{OrderID: order.ID, PaymentMethod: enum.PaymentMethodCash, PaidAmount: "314.999"})

	assert.Equal(t, enum.BillStatusPaid, res.Bill.Status)
	assert.True(t, numericEquals(res.Bill.PaidAmount, "315"))
	assert.True(t, res.Change.IsZero())
	assert.Nil(t, res.PendingBill)
}

func TestSettle_SubCentPartialReceivableIsSettleable(t *testing.T) {
	f := newOrderFixture(t)
	cust := f.store.addCustomer(f.restaurant.ID, "Meera")
	order := f.open(t, uuid.Nil)
	f.add(t, order.ID, f.curry, 2, "")

	res := f.settle(t, SettleRequest{
		OrderID:       order.ID,
		PaymentMethod: enum.PaymentMethodCash,
		PaidAmount:    "100.004",
		CustomerID:    cust.ID,
	})

	assert.Equal(t, enum.BillStatusPartial, res.Bill.Status)
	assert.True(t, numericEquals(res.Bill.PaidAmount, "100"))
	require.NotNil(t, res.PendingBill)
	assert.True(t, numericEquals(res.PendingBill.AmountDue, "215"))

	ledger := newTestLedgerService(f.store)
	settled, err := ledger.SettlePendingBill(context.Background(), SettlePendingRequest{
		RestaurantID:  f.restaurant.ID,
		PendingBillID: res.PendingBill.ID,
		Amount:        "215",
		PaymentMethod: enum.PaymentMethodCash,
	})
	require.NoError(t, err)
	assert.Equal(t, enum.PendingBillStatusSettled, settled.PendingBill.Status)
}

func TestSettle_CreditDefaultsToUnpaid(t *testing.T) {
	f := newOrderFixture(t)
	cust := f.store.addCustomer(f.restaurant.ID, "Ravi")
	order, err := f.svc.OpenOrder(context.Background(), OpenOrderRequest{
		RestaurantID: f.restaurant.ID,
		CustomerID:   cust.ID,
		OrderType:    enum.OrderTypeTakeaway,
	})
	require.NoError(t, err)
	f.add(t, order.ID, f.lime, 1, "")

	res := f.settle(t, SettleRequest{OrderID: order.ID, PaymentMethod: enum.PaymentMethodCredit})

	assert.Equal(t, enum.BillStatusUnpaid, res.Bill.Status)
	assert.True(t, numericEquals(res.Bill.PaidAmount, "0"))
	require.NotNil(t, res.PendingBill)
	assert.True(t, numericEquals(res.PendingBill.AmountDue, "63"))
}

func TestSettle_PercentageDiscount(t *testing.T) {
	f := newOrderFixture(t)
	order := f.open(t, uuid.Nil)
	f.add(t, order.ID, f.curry, 2, "")

	res := f.settle(t, SettleRequest{
		OrderID:       order.ID,
		PaymentMethod: enum.PaymentMethodCash,
		DiscountType:  enum.DiscountTypePercentage,
		DiscountValue: "10",
	})

	assert.True(t, numericEquals(res.Bill.Discount, "30"))
	assert.True(t, numericEquals(res.Bill.Tax, "13.5"))
	assert.True(t, numericEquals(res.Bill.Total, "283.5"))
}

func TestSettle_Errors(t *testing.T) {
	f := newOrderFixture(t)
	order := f.open(t, uuid.Nil)
	f.add(t, order.ID, f.curry, 1, "")
	empty := f.open(t, uuid.Nil)

	tests := []struct {
		name string
		req  SettleRequest
		want error
	}{
		{"bad method", SettleRequest{OrderID: order.ID, PaymentMethod: "CHEQUE"}, ErrInvalidPaymentMethod},
		{"bad amount", SettleRequest{OrderID: order.ID, PaymentMethod: enum.PaymentMethodCash, PaidAmount: "-5"}, ErrInvalidAmount},
		{"bad discount type", SettleRequest{OrderID: order.ID, PaymentMethod: enum.PaymentMethodCash, DiscountType: "BOGO"}, ErrInvalidDiscount},
		{"discount too large", SettleRequest{OrderID: order.ID, PaymentMethod: enum.PaymentMethodCash, DiscountType: enum.DiscountTypeFixed, DiscountValue: "151"}, ErrDiscountTooLarge},
		{"empty order", SettleRequest{OrderID: empty.ID, PaymentMethod: enum.PaymentMethodCash}, ErrEmptyOrder},
		{"unknown order", SettleRequest{OrderID: uuid.New(), PaymentMethod: enum.PaymentMethodCash}, ErrOrderNotFound},
		{"unknown customer", SettleRequest{OrderID: order.ID, PaymentMethod: enum.PaymentMethodCash, CustomerID: uuid.New()}, ErrCustomerNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.RestaurantID = f.restaurant.ID
			_, err := f.svc.Settle(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSettle_DeductsStockByRecipe(t *testing.T) {
	f := newOrderFixture(t)
	paneer := f.store.addIngredient(f.restaurant.ID, "Paneer", "kg", "1", "0.5")
	cream := f.store.addIngredient(f.restaurant.ID, "Cream", "l", "0.3", "0.1")
	f.store.addRecipe(f.curry.ID, paneer.ID, "0.2")
	f.store.addRecipe(f.curry.ID, cream.ID, "0.1")

	order := f.open(t, uuid.Nil)
	f.add(t, order.ID, f.curry, 2, "")
	f.add(t, order.ID, f.lime, 1, "")

	res := f.settle(t, SettleRequest{OrderID: order.ID, PaymentMethod: enum.PaymentMethodCash})

	assert.True(t, numericEquals(f.store.ingredients[paneer.ID].Stock, "0.6"))
	assert.True(t, numericEquals(f.store.ingredients[cream.ID].Stock, "0.1"))
	require.Len(t, res.LowStock, 1)
	assert.Equal(t, "Cream", res.LowStock[0].Name)

	require.Len(t, f.store.movements, 2)
	for _, m := range f.store.movements {
		assert.Equal(t, enum.MovementSale, m.Kind)
		assert.True(t, numericToDecimal(m.Quantity).IsNegative())
		assert.Equal(t, order.ID, uuid.UUID(m.ReferenceID.Bytes))
	}
}

func TestSettle_StockMayGoNegative(t *testing.T) {
	f := newOrderFixture(t)
	lime := f.store.addIngredient(f.restaurant.ID, "Lime", "pc", "1", "5")
	f.store.addRecipe(f.lime.ID, lime.ID, "2")

	order := f.open(t, uuid.Nil)
	f.add(t, order.ID, f.lime, 1, "")
	res := f.settle(t, SettleRequest{OrderID: order.ID, PaymentMethod: enum.PaymentMethodCash})

	assert.True(t, numericEquals(f.store.ingredients[lime.ID].Stock, "-1"))
	assert.Len(t, res.LowStock, 1)
}

func TestSettle_RetriesOnBillNumberConflict(t *testing.T) {
	f := newOrderFixture(t)
	order := f.open(t, uuid.Nil)
	f.add(t, order.ID, f.curry, 1, "")
	f.store.failOnce("CreateBill", uniqueViolation(billNumberConstraint))

	res := f.settle(t, SettleRequest{OrderID: order.ID, PaymentMethod: enum.PaymentMethodCash})

	assert.Equal(t, "INV-00001", res.Bill.BillNumber)
	assert.Len(t, f.store.bills, 1)
}

func TestSettle_CommitError(t *testing.T) {
	f := newOrderFixture(t)
	order := f.open(t, uuid.Nil)
	f.add(t, order.ID, f.curry, 1, "")
	f.tx.commitErr = errors.New("connection reset")
	f.notify.orders = nil

	_, err := f.svc.Settle(context.Background(), SettleRequest{
		RestaurantID:  f.restaurant.ID,
		OrderID:       order.ID,
		PaymentMethod: enum.PaymentMethodCash,
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit tx")
	assert.Empty(t, f.notify.orders, "nothing is dispatched before commit")
}

// =====================
// Cancel
// =====================

func TestCancel_NothingSentFreesTable(t *testing.T) {
	f := newOrderFixture(t)
	order := f.open(t, f.t1.ID)
	f.add(t, order.ID, f.curry, 1, "")

	cancelled, batch, err := f.svc.Cancel(context.Background(), f.restaurant.ID, order.ID, f.staffID)

	require.NoError(t, err)
	assert.Equal(t, enum.OrderStatusCancelled, cancelled.Status)
	assert.Empty(t, batch.Tickets)
	assert.Equal(t, enum.TableStatusAvailable, f.tableStatus(f.t1.ID))
}

func TestCancel_SentLinesAreVoided(t *testing.T) {
	f := newOrderFixture(t)
	order := f.open(t, f.t1.ID)
	f.add(t, order.ID, f.curry, 2, "")
	f.send(t, order.ID)
	f.add(t, order.ID, f.lime, 1, "")

	_, batch, err := f.svc.Cancel(context.Background(), f.restaurant.ID, order.ID, f.staffID)

	require.NoError(t, err)
	require.Len(t, batch.Tickets, 1)
	assert.Equal(t, kot.KindVoid, batch.Tickets[0].Ticket.Kind)
	assert.Equal(t, int32(2), batch.Tickets[0].Ticket.ItemCount(), "unsent lime is dropped silently")
	assert.Equal(t, enum.TableStatusCleaning, f.tableStatus(f.t1.ID))
	assert.Contains(t, f.notify.orders, events.EventOrderCancelled)
}

func TestCancel_StaffMovedTable(t *testing.T) {
	f := newOrderFixture(t)
	order := f.open(t, f.t1.ID)
	tbl := f.store.tables[f.t1.ID]
	tbl.Status = enum.TableStatusCleaning
	f.store.tables[f.t1.ID] = tbl

	_, _, err := f.svc.Cancel(context.Background(), f.restaurant.ID, order.ID, f.staffID)

	require.NoError(t, err)
	assert.Equal(t, enum.TableStatusCleaning, f.tableStatus(f.t1.ID))
}

func TestCancel_ClosedOrder(t *testing.T) {
	f := newOrderFixture(t)
	order := f.open(t, uuid.Nil)
	_, _, err := f.svc.Cancel(context.Background(), f.restaurant.ID, order.ID, f.staffID)
	require.NoError(t, err)

	_, _, err = f.svc.Cancel(context.Background(), f.restaurant.ID, order.ID, f.staffID)
	assert.ErrorIs(t, err, ErrOrderClosed)
}

// =====================
// Money helpers
// =====================

func TestDiscountAmount(t *testing.T) {
	subtotal := decimal.RequireFromString("250")
	tests := []struct {
		name    string
		typ     string
		value   string
		want    string
		wantErr error
	}{
		{"none", "", "", "0", nil},
		{"percentage", enum.DiscountTypePercentage, "12.5", "31.25", nil},
		{"full percentage", enum.DiscountTypePercentage, "100", "250", nil},
		{"over 100 percent", enum.DiscountTypePercentage, "101", "", ErrInvalidDiscountValue},
		{"fixed", enum.DiscountTypeFixed, "40", "40", nil},
		{"fixed above subtotal", enum.DiscountTypeFixed, "250.01", "", ErrDiscountTooLarge},
		{"negative", enum.DiscountTypeFixed, "-1", "", ErrInvalidDiscountValue},
		{"garbage", enum.DiscountTypeFixed, "ten", "", ErrInvalidDiscountValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := discountAmount(subtotal, tt.typ, tt.value)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestComputeTotals(t *testing.T) {
	d := decimal.RequireFromString
	ptr := func(s string) *decimal.Decimal { v := d(s); return &v }

	tests := []struct {
		name        string
		subtotal    string
		discount    string
		rate        string
		tendered    *decimal.Decimal
		total       string
		paid        string
		change      string
		outstanding string
		status      string
	}{
		{"exact", "100", "0", "5", nil, "105", "105", "0", "0", enum.BillStatusPaid},
		{"rounded tax", "99.99", "0", "18", nil, "117.99", "117.99", "0", "0", enum.BillStatusPaid},
		{"discount before tax", "200", "50", "10", nil, "165", "165", "0", "0", enum.BillStatusPaid},
		{"overpaid", "100", "0", "0", ptr("150"), "100", "100", "50", "0", enum.BillStatusPaid},
		{"partial", "100", "0", "0", ptr("40"), "100", "40", "0", "60", enum.BillStatusPartial},
		{"unpaid", "100", "0", "0", ptr("0"), "100", "0", "0", "100", enum.BillStatusUnpaid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := computeTotals(d(tt.subtotal), d(tt.discount), d(tt.rate), tt.tendered)
			assert.True(t, got.Total.Equal(d(tt.total)), "total %s", got.Total)
			assert.True(t, got.Paid.Equal(d(tt.paid)), "paid %s", got.Paid)
			assert.True(t, got.Change.Equal(d(tt.change)), "change %s", got.Change)
			assert.True(t, got.Outstanding.Equal(d(tt.outstanding)), "outstanding %s", got.Outstanding)
			assert.Equal(t, tt.status, got.Status)
		})
	}
}

func TestReconcileParams_FollowsMarkSent(t *testing.T) {
	orderID := uuid.New()
	kept, voided, fresh := uuid.New(), uuid.New(), uuid.New()
	cart := []kot.CartItem{
		{Line: kot.Line{ItemID: kept, Quantity: 3}, SentQuantity: 1},
		{Line: kot.Line{ItemID: voided, Quantity: 0}, SentQuantity: 2},
		{Line: kot.Line{ItemID: fresh, Quantity: 1}},
	}

	p := reconcileParams(orderID, cart, kot.MarkSent(cart))

	assert.Equal(t, orderID, p.OrderID)
	assert.Equal(t, []uuid.UUID{kept, fresh}, p.SentIDs)
	assert.Equal(t, []int32{3, 1}, p.SentQuantities)
	assert.Equal(t, []uuid.UUID{voided}, p.DroppedIDs)
}

func TestParseTendered(t *testing.T) {
	got, err := parseTendered("", enum.PaymentMethodCash)
	require.NoError(t, err)
	assert.Nil(t, got, "empty cash tender pays in full")

	got, err = parseTendered(" ", enum.PaymentMethodCredit)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.IsZero())

	_, err = parseTendered("abc", enum.PaymentMethodCash)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	got, err = parseTendered("9.999", enum.PaymentMethodCash)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Equal(decimal.NewFromInt(10)), "tender %s", got)
}

func TestPreferenceRoundTrip(t *testing.T) {
	cat := uuid.New()
	pref := kot.Preference{
		Mode:           kot.ModeCategory,
		DefaultGroup:   "KITCHEN",
		CategoryGroups: map[uuid.UUID]string{cat: "DESSERT"},
		GroupOrder:     []string{"DESSERT"},
	}
	params := PreferenceParams(uuid.New(), pref)

	got, err := PreferenceFromRow(database.KotPreference{
		Mode:           params.Mode,
		DefaultGroup:   params.DefaultGroup,
		CategoryGroups: params.CategoryGroups,
		GroupOrder:     params.GroupOrder,
	})

	require.NoError(t, err)
	assert.Equal(t, pref, got)
}
