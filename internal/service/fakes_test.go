package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/database"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/enum"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr   error
	rollbackErr error
	committed   int
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitErr == nil {
		m.committed++
	}
	return m.commitErr
}
func (m *mockTx) Rollback(ctx context.Context) error { return m.rollbackErr }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner.
type mockTxBeginner struct {
	tx  pgx.Tx
	err error
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.tx, m.err
}

// fakeStore is an in-memory stand-in for *database.Queries. It satisfies
// every store interface in this package. Rollbacks are not simulated, so
// tests assert on errors rather than on state after a failed call.
//
// hooks run before the named method; a non-nil error is returned instead of
// touching state.
type fakeStore struct {
	restaurants  map[uuid.UUID]database.Restaurant
	prefs        map[uuid.UUID]database.KotPreference
	orders       map[uuid.UUID]database.Order
	items        []database.OrderItem
	tables       map[uuid.UUID]database.DiningTable
	customers    map[uuid.UUID]database.Customer
	menu         map[uuid.UUID]database.GetMenuItemForOrderRow
	recipes      map[uuid.UUID][]database.RecipeLineRow
	ingredients  map[uuid.UUID]database.Ingredient
	movements    []database.InventoryMovement
	kots         []database.Kot
	bills        map[uuid.UUID]database.Bill
	pendingBills map[uuid.UUID]database.PendingBill
	payments     []database.PendingBillPayment
	reservations map[uuid.UUID]database.Reservation
	vendors      map[uuid.UUID]database.Vendor
	expenses     map[uuid.UUID]database.Expense
	vendorOrders map[uuid.UUID]database.VendorOrder
	vendorLines  []database.VendorOrderLine
	staff        []database.Staff
	categories   []database.Category

	nextOrderNumber int32
	nextBillNumber  int32

	hooks map[string]func() error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		restaurants:  map[uuid.UUID]database.Restaurant{},
		prefs:        map[uuid.UUID]database.KotPreference{},
		orders:       map[uuid.UUID]database.Order{},
		tables:       map[uuid.UUID]database.DiningTable{},
		customers:    map[uuid.UUID]database.Customer{},
		menu:         map[uuid.UUID]database.GetMenuItemForOrderRow{},
		recipes:      map[uuid.UUID][]database.RecipeLineRow{},
		ingredients:  map[uuid.UUID]database.Ingredient{},
		bills:        map[uuid.UUID]database.Bill{},
		pendingBills: map[uuid.UUID]database.PendingBill{},
		reservations: map[uuid.UUID]database.Reservation{},
		vendors:      map[uuid.UUID]database.Vendor{},
		expenses:     map[uuid.UUID]database.Expense{},
		vendorOrders: map[uuid.UUID]database.VendorOrder{},
		hooks:        map[string]func() error{},
	}
}

func (f *fakeStore) hook(name string) error {
	if h, ok := f.hooks[name]; ok {
		return h()
	}
	return nil
}

// failOnce makes the named method fail with err on its first call only.
func (f *fakeStore) failOnce(name string, err error) {
	done := false
	f.hooks[name] = func() error {
		if done {
			return nil
		}
		done = true
		return err
	}
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

// --- Seed helpers ---

func (f *fakeStore) addRestaurant(taxRate string) database.Restaurant {
	r := database.Restaurant{ID: uuid.New(), Name: "Cafe Test", Currency: "INR", TaxRate: makeNumeric(taxRate)}
	f.restaurants[r.ID] = r
	return r
}

func (f *fakeStore) addTable(restaurantID uuid.UUID, name, status string) database.DiningTable {
	t := database.DiningTable{ID: uuid.New(), RestaurantID: restaurantID, Name: name, Seats: 4, Status: status, IsActive: true}
	f.tables[t.ID] = t
	return t
}

func (f *fakeStore) addCustomer(restaurantID uuid.UUID, name string) database.Customer {
	c := database.Customer{ID: uuid.New(), RestaurantID: restaurantID, Name: name, IsActive: true}
	f.customers[c.ID] = c
	return c
}

func (f *fakeStore) addVendor(restaurantID uuid.UUID, name string) database.Vendor {
	v := database.Vendor{ID: uuid.New(), RestaurantID: restaurantID, Name: name, IsActive: true}
	f.vendors[v.ID] = v
	return v
}

func (f *fakeStore) addMenuItem(name, price, station string) database.GetMenuItemForOrderRow {
	mi := database.GetMenuItemForOrderRow{
		ID:           uuid.New(),
		Name:         name,
		Price:        makeNumeric(price),
		CategoryID:   uuid.New(),
		CategoryName: station,
		Station:      station,
		IsAvailable:  true,
	}
	f.menu[mi.ID] = mi
	return mi
}

func (f *fakeStore) addIngredient(restaurantID uuid.UUID, name, unit, stock, threshold string) database.Ingredient {
	ing := database.Ingredient{
		ID:                uuid.New(),
		RestaurantID:      restaurantID,
		Name:              name,
		Unit:              unit,
		Stock:             makeNumeric(stock),
		LowStockThreshold: makeNumeric(threshold),
		IsActive:          true,
	}
	f.ingredients[ing.ID] = ing
	return ing
}

func (f *fakeStore) addRecipe(menuItemID, ingredientID uuid.UUID, qty string) {
	f.recipes[menuItemID] = append(f.recipes[menuItemID], database.RecipeLineRow{
		MenuItemID:   menuItemID,
		IngredientID: ingredientID,
		Quantity:     makeNumeric(qty),
	})
}

func (f *fakeStore) itemsFor(orderID uuid.UUID) []database.OrderItem {
	var out []database.OrderItem
	for _, it := range f.items {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	return out
}

func (f *fakeStore) kotsFor(orderID uuid.UUID) []database.Kot {
	var out []database.Kot
	for _, k := range f.kots {
		if k.OrderID == orderID {
			out = append(out, k)
		}
	}
	return out
}

// --- Restaurants ---

func (f *fakeStore) GetRestaurant(ctx context.Context, id uuid.UUID) (database.Restaurant, error) {
	r, ok := f.restaurants[id]
	if !ok {
		return database.Restaurant{}, pgx.ErrNoRows
	}
	return r, nil
}

func (f *fakeStore) CreateRestaurant(ctx context.Context, arg database.CreateRestaurantParams) (database.Restaurant, error) {
	if err := f.hook("CreateRestaurant"); err != nil {
		return database.Restaurant{}, err
	}
	r := database.Restaurant{
		ID:       uuid.New(),
		Name:     arg.Name,
		Address:  arg.Address,
		Phone:    arg.Phone,
		Currency: arg.Currency,
		TaxRate:  arg.TaxRate,
	}
	f.restaurants[r.ID] = r
	return r, nil
}

func (f *fakeStore) GetKotPreference(ctx context.Context, restaurantID uuid.UUID) (database.KotPreference, error) {
	p, ok := f.prefs[restaurantID]
	if !ok {
		return database.KotPreference{}, pgx.ErrNoRows
	}
	return p, nil
}

func (f *fakeStore) UpsertKotPreference(ctx context.Context, arg database.UpsertKotPreferenceParams) (database.KotPreference, error) {
	p := database.KotPreference{
		RestaurantID:   arg.RestaurantID,
		Mode:           arg.Mode,
		DefaultGroup:   arg.DefaultGroup,
		CategoryGroups: arg.CategoryGroups,
		GroupOrder:     arg.GroupOrder,
		UpdatedAt:      time.Now(),
	}
	f.prefs[arg.RestaurantID] = p
	return p, nil
}

func (f *fakeStore) CreateStaff(ctx context.Context, arg database.CreateStaffParams) (database.Staff, error) {
	if err := f.hook("CreateStaff"); err != nil {
		return database.Staff{}, err
	}
	s := database.Staff{
		ID:             uuid.New(),
		RestaurantID:   arg.RestaurantID,
		Email:          arg.Email,
		HashedPassword: arg.HashedPassword,
		HashedPin:      arg.HashedPin,
		FullName:       arg.FullName,
		Role:           arg.Role,
		IsActive:       true,
	}
	f.staff = append(f.staff, s)
	return s, nil
}

func (f *fakeStore) CreateCategory(ctx context.Context, arg database.CreateCategoryParams) (database.Category, error) {
	c := database.Category{
		ID:           uuid.New(),
		RestaurantID: arg.RestaurantID,
		Name:         arg.Name,
		Station:      arg.Station,
		SortOrder:    arg.SortOrder,
		IsActive:     true,
	}
	f.categories = append(f.categories, c)
	return c, nil
}

func (f *fakeStore) CreateDiningTable(ctx context.Context, arg database.CreateDiningTableParams) (database.DiningTable, error) {
	t := database.DiningTable{
		ID:           uuid.New(),
		RestaurantID: arg.RestaurantID,
		Name:         arg.Name,
		Seats:        arg.Seats,
		Status:       enum.TableStatusAvailable,
		IsActive:     true,
	}
	f.tables[t.ID] = t
	return t, nil
}

// --- Tables and reservations ---

func (f *fakeStore) GetDiningTable(ctx context.Context, arg database.GetDiningTableParams) (database.DiningTable, error) {
	t, ok := f.tables[arg.ID]
	if !ok || t.RestaurantID != arg.RestaurantID {
		return database.DiningTable{}, pgx.ErrNoRows
	}
	return t, nil
}

func (f *fakeStore) UpdateDiningTableStatus(ctx context.Context, arg database.UpdateDiningTableStatusParams) (database.DiningTable, error) {
	if err := f.hook("UpdateDiningTableStatus"); err != nil {
		return database.DiningTable{}, err
	}
	t, ok := f.tables[arg.ID]
	if !ok || t.RestaurantID != arg.RestaurantID || t.Status != arg.FromStatus {
		return database.DiningTable{}, pgx.ErrNoRows
	}
	t.Status = arg.Status
	t.UpdatedAt = time.Now()
	f.tables[t.ID] = t
	return t, nil
}

func (f *fakeStore) GetReservation(ctx context.Context, arg database.GetReservationParams) (database.Reservation, error) {
	r, ok := f.reservations[arg.ID]
	if !ok || r.RestaurantID != arg.RestaurantID {
		return database.Reservation{}, pgx.ErrNoRows
	}
	return r, nil
}

func (f *fakeStore) CreateReservation(ctx context.Context, arg database.CreateReservationParams) (database.Reservation, error) {
	r := database.Reservation{
		ID:           uuid.New(),
		RestaurantID: arg.RestaurantID,
		TableID:      arg.TableID,
		CustomerID:   arg.CustomerID,
		GuestName:    arg.GuestName,
		Phone:        arg.Phone,
		PartySize:    arg.PartySize,
		ReservedFor:  arg.ReservedFor,
		Status:       enum.ReservationStatusBooked,
		Notes:        arg.Notes,
	}
	f.reservations[r.ID] = r
	return r, nil
}

func (f *fakeStore) UpdateReservationStatus(ctx context.Context, arg database.UpdateReservationStatusParams) (database.Reservation, error) {
	r, ok := f.reservations[arg.ID]
	if !ok || r.RestaurantID != arg.RestaurantID || r.Status != arg.FromStatus {
		return database.Reservation{}, pgx.ErrNoRows
	}
	r.Status = arg.Status
	if arg.OrderID.Valid {
		r.OrderID = arg.OrderID
	}
	f.reservations[r.ID] = r
	return r, nil
}

func (f *fakeStore) CountBookedReservationsForTable(ctx context.Context, arg database.CountBookedReservationsForTableParams) (int64, error) {
	var n int64
	for _, r := range f.reservations {
		if r.ID != arg.ExcludeID && r.TableID.Valid && r.TableID.Bytes == arg.TableID && r.Status == enum.ReservationStatusBooked {
			n++
		}
	}
	return n, nil
}

// --- Parties ---

func (f *fakeStore) GetCustomer(ctx context.Context, arg database.GetCustomerParams) (database.Customer, error) {
	c, ok := f.customers[arg.ID]
	if !ok || c.RestaurantID != arg.RestaurantID {
		return database.Customer{}, pgx.ErrNoRows
	}
	return c, nil
}

func (f *fakeStore) GetVendor(ctx context.Context, arg database.GetVendorParams) (database.Vendor, error) {
	v, ok := f.vendors[arg.ID]
	if !ok || v.RestaurantID != arg.RestaurantID {
		return database.Vendor{}, pgx.ErrNoRows
	}
	return v, nil
}

// --- Orders ---

func (f *fakeStore) GetNextOrderNumber(ctx context.Context, restaurantID uuid.UUID) (int32, error) {
	return f.nextOrderNumber + 1, nil
}

func (f *fakeStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	if err := f.hook("CreateOrder"); err != nil {
		return database.Order{}, err
	}
	f.nextOrderNumber++
	now := time.Now()
	o := database.Order{
		ID:           uuid.New(),
		RestaurantID: arg.RestaurantID,
		OrderNumber:  arg.OrderNumber,
		OrderType:    arg.OrderType,
		TableID:      arg.TableID,
		CustomerID:   arg.CustomerID,
		Guests:       arg.Guests,
		Notes:        arg.Notes,
		Status:       enum.OrderStatusOpen,
		CreatedBy:    arg.CreatedBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.orders[o.ID] = o
	return o, nil
}

func (f *fakeStore) GetOrderForUpdate(ctx context.Context, arg database.GetOrderParams) (database.Order, error) {
	o, ok := f.orders[arg.ID]
	if !ok || o.RestaurantID != arg.RestaurantID {
		return database.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (f *fakeStore) UpdateOrderTable(ctx context.Context, arg database.UpdateOrderTableParams) (database.Order, error) {
	o, ok := f.orders[arg.ID]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	o.TableID = arg.TableID
	o.OrderType = arg.OrderType
	f.orders[o.ID] = o
	return o, nil
}

func (f *fakeStore) UpdateOrderCustomer(ctx context.Context, arg database.UpdateOrderCustomerParams) (database.Order, error) {
	o, ok := f.orders[arg.ID]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	o.CustomerID = arg.CustomerID
	f.orders[o.ID] = o
	return o, nil
}

func (f *fakeStore) IncrementOrderKotCount(ctx context.Context, id uuid.UUID) (int32, error) {
	o, ok := f.orders[id]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	o.KotCount++
	f.orders[id] = o
	return o.KotCount, nil
}

func (f *fakeStore) CloseOrder(ctx context.Context, arg database.CloseOrderParams) (database.Order, error) {
	o, ok := f.orders[arg.ID]
	if !ok || o.Status != enum.OrderStatusOpen {
		return database.Order{}, pgx.ErrNoRows
	}
	o.Status = arg.Status
	o.ClosedAt = pgtype.Timestamptz{Time: time.Now(), Valid: true}
	f.orders[o.ID] = o
	return o, nil
}

func (f *fakeStore) GetMenuItemForOrder(ctx context.Context, arg database.GetMenuItemForOrderParams) (database.GetMenuItemForOrderRow, error) {
	mi, ok := f.menu[arg.ID]
	if !ok {
		return database.GetMenuItemForOrderRow{}, pgx.ErrNoRows
	}
	return mi, nil
}

func (f *fakeStore) ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
	return f.itemsFor(orderID), nil
}

func (f *fakeStore) GetOrderItem(ctx context.Context, arg database.GetOrderItemParams) (database.OrderItem, error) {
	for _, it := range f.items {
		if it.ID == arg.ID && it.OrderID == arg.OrderID {
			return it, nil
		}
	}
	return database.OrderItem{}, pgx.ErrNoRows
}

func (f *fakeStore) FindUnsentOrderItem(ctx context.Context, arg database.FindUnsentOrderItemParams) (database.OrderItem, error) {
	for _, it := range f.items {
		if it.OrderID == arg.OrderID && it.MenuItemID == arg.MenuItemID && it.Instructions == arg.Instructions && it.SentQuantity == 0 {
			return it, nil
		}
	}
	return database.OrderItem{}, pgx.ErrNoRows
}

func (f *fakeStore) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	it := database.OrderItem{
		ID:           uuid.New(),
		OrderID:      arg.OrderID,
		MenuItemID:   arg.MenuItemID,
		Name:         arg.Name,
		CategoryID:   arg.CategoryID,
		CategoryName: arg.CategoryName,
		Station:      arg.Station,
		UnitPrice:    arg.UnitPrice,
		Quantity:     arg.Quantity,
		Instructions: arg.Instructions,
		CreatedAt:    time.Now(),
	}
	f.items = append(f.items, it)
	return it, nil
}

func (f *fakeStore) UpdateOrderItem(ctx context.Context, arg database.UpdateOrderItemParams) (database.OrderItem, error) {
	for i, it := range f.items {
		if it.ID == arg.ID && it.OrderID == arg.OrderID {
			it.Quantity = arg.Quantity
			it.Instructions = arg.Instructions
			f.items[i] = it
			return it, nil
		}
	}
	return database.OrderItem{}, pgx.ErrNoRows
}

func (f *fakeStore) DeleteOrderItem(ctx context.Context, arg database.DeleteOrderItemParams) error {
	out := f.items[:0]
	for _, it := range f.items {
		if it.ID == arg.ID && it.OrderID == arg.OrderID {
			continue
		}
		out = append(out, it)
	}
	f.items = out
	return nil
}

func (f *fakeStore) ReconcileOrderItems(ctx context.Context, arg database.ReconcileOrderItemsParams) error {
	sent := make(map[uuid.UUID]int32, len(arg.SentIDs))
	for i, id := range arg.SentIDs {
		sent[id] = arg.SentQuantities[i]
	}
	dropped := make(map[uuid.UUID]bool, len(arg.DroppedIDs))
	for _, id := range arg.DroppedIDs {
		dropped[id] = true
	}
	out := f.items[:0]
	for _, it := range f.items {
		if it.OrderID == arg.OrderID {
			if dropped[it.ID] {
				continue
			}
			if q, ok := sent[it.ID]; ok {
				it.SentQuantity = q
			}
		}
		out = append(out, it)
	}
	f.items = out
	return nil
}

func (f *fakeStore) CreateKot(ctx context.Context, arg database.CreateKotParams) (database.Kot, error) {
	k := database.Kot{
		ID:           uuid.New(),
		RestaurantID: arg.RestaurantID,
		OrderID:      arg.OrderID,
		TicketNumber: arg.TicketNumber,
		GroupName:    arg.GroupName,
		Kind:         arg.Kind,
		Lines:        arg.Lines,
		CreatedBy:    arg.CreatedBy,
		CreatedAt:    time.Now(),
	}
	f.kots = append(f.kots, k)
	return k, nil
}

// --- Bills ---

func (f *fakeStore) GetNextBillNumber(ctx context.Context, restaurantID uuid.UUID) (int32, error) {
	return f.nextBillNumber + 1, nil
}

func (f *fakeStore) CreateBill(ctx context.Context, arg database.CreateBillParams) (database.Bill, error) {
	if err := f.hook("CreateBill"); err != nil {
		return database.Bill{}, err
	}
	f.nextBillNumber++
	b := database.Bill{
		ID:            uuid.New(),
		RestaurantID:  arg.RestaurantID,
		OrderID:       arg.OrderID,
		CustomerID:    arg.CustomerID,
		BillNumber:    arg.BillNumber,
		Subtotal:      arg.Subtotal,
		Discount:      arg.Discount,
		Tax:           arg.Tax,
		Total:         arg.Total,
		PaidAmount:    arg.PaidAmount,
		PaymentMethod: arg.PaymentMethod,
		Status:        arg.Status,
		CreatedBy:     arg.CreatedBy,
	}
	f.bills[b.ID] = b
	return b, nil
}

func (f *fakeStore) AddBillPayment(ctx context.Context, arg database.AddBillPaymentParams) (database.Bill, error) {
	b, ok := f.bills[arg.ID]
	if !ok {
		return database.Bill{}, pgx.ErrNoRows
	}
	paid := numericToDecimal(b.PaidAmount).Add(numericToDecimal(arg.Amount))
	b.PaidAmount = decimalToNumeric(paid)
	switch {
	case paid.GreaterThanOrEqual(numericToDecimal(b.Total)):
		b.Status = enum.BillStatusPaid
	case paid.IsPositive():
		b.Status = enum.BillStatusPartial
	default:
		b.Status = enum.BillStatusUnpaid
	}
	f.bills[b.ID] = b
	return b, nil
}

// --- Pending bills ---

func (f *fakeStore) CreatePendingBill(ctx context.Context, arg database.CreatePendingBillParams) (database.PendingBill, error) {
	pb := database.PendingBill{
		ID:            uuid.New(),
		RestaurantID:  arg.RestaurantID,
		PartyType:     arg.PartyType,
		PartyID:       arg.PartyID,
		SourceType:    arg.SourceType,
		SourceID:      arg.SourceID,
		AmountDue:     arg.AmountDue,
		AmountSettled: makeNumeric("0"),
		Status:        enum.PendingBillStatusOpen,
	}
	f.pendingBills[pb.ID] = pb
	return pb, nil
}

func (f *fakeStore) GetPendingBillForUpdate(ctx context.Context, arg database.GetPendingBillParams) (database.PendingBill, error) {
	pb, ok := f.pendingBills[arg.ID]
	if !ok || pb.RestaurantID != arg.RestaurantID {
		return database.PendingBill{}, pgx.ErrNoRows
	}
	return pb, nil
}

func (f *fakeStore) SettlePendingBill(ctx context.Context, arg database.SettlePendingBillParams) (database.PendingBill, error) {
	pb, ok := f.pendingBills[arg.ID]
	if !ok || pb.Status != enum.PendingBillStatusOpen {
		return database.PendingBill{}, pgx.ErrNoRows
	}
	settled := numericToDecimal(pb.AmountSettled).Add(numericToDecimal(arg.Amount))
	pb.AmountSettled = decimalToNumeric(settled)
	if settled.GreaterThanOrEqual(numericToDecimal(pb.AmountDue)) {
		pb.Status = enum.PendingBillStatusSettled
	}
	f.pendingBills[pb.ID] = pb
	return pb, nil
}

func (f *fakeStore) CreatePendingBillPayment(ctx context.Context, arg database.CreatePendingBillPaymentParams) (database.PendingBillPayment, error) {
	p := database.PendingBillPayment{
		ID:            uuid.New(),
		PendingBillID: arg.PendingBillID,
		Amount:        arg.Amount,
		PaymentMethod: arg.PaymentMethod,
		CreatedBy:     arg.CreatedBy,
		CreatedAt:     time.Now(),
	}
	f.payments = append(f.payments, p)
	return p, nil
}

// --- Expenses ---

func (f *fakeStore) CreateExpense(ctx context.Context, arg database.CreateExpenseParams) (database.Expense, error) {
	e := database.Expense{
		ID:            uuid.New(),
		RestaurantID:  arg.RestaurantID,
		VendorID:      arg.VendorID,
		Category:      arg.Category,
		Description:   arg.Description,
		Amount:        arg.Amount,
		PaidAmount:    arg.PaidAmount,
		ExpenseDate:   arg.ExpenseDate,
		VendorOrderID: arg.VendorOrderID,
		CreatedBy:     arg.CreatedBy,
	}
	f.expenses[e.ID] = e
	return e, nil
}

func (f *fakeStore) AddExpensePayment(ctx context.Context, arg database.AddExpensePaymentParams) (database.Expense, error) {
	e, ok := f.expenses[arg.ID]
	if !ok {
		return database.Expense{}, pgx.ErrNoRows
	}
	e.PaidAmount = decimalToNumeric(numericToDecimal(e.PaidAmount).Add(numericToDecimal(arg.Amount)))
	f.expenses[e.ID] = e
	return e, nil
}

// --- Inventory ---

func (f *fakeStore) GetIngredient(ctx context.Context, arg database.GetIngredientParams) (database.Ingredient, error) {
	ing, ok := f.ingredients[arg.ID]
	if !ok || ing.RestaurantID != arg.RestaurantID {
		return database.Ingredient{}, pgx.ErrNoRows
	}
	return ing, nil
}

func (f *fakeStore) ListRecipeUsageForOrder(ctx context.Context, orderID uuid.UUID) ([]database.RecipeUsageRow, error) {
	totals := map[uuid.UUID]decimal.Decimal{}
	for _, it := range f.itemsFor(orderID) {
		if it.Quantity <= 0 {
			continue
		}
		for _, rl := range f.recipes[it.MenuItemID] {
			q := numericToDecimal(rl.Quantity).Mul(decimal.NewFromInt32(it.Quantity))
			totals[rl.IngredientID] = totals[rl.IngredientID].Add(q)
		}
	}
	out := make([]database.RecipeUsageRow, 0, len(totals))
	for id, q := range totals {
		out = append(out, database.RecipeUsageRow{IngredientID: id, Quantity: quantityToNumeric(q)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IngredientID.String() < out[j].IngredientID.String() })
	return out, nil
}

func (f *fakeStore) GetMenuItem(ctx context.Context, arg database.GetMenuItemParams) (database.MenuItem, error) {
	mi, ok := f.menu[arg.ID]
	if !ok {
		return database.MenuItem{}, pgx.ErrNoRows
	}
	return database.MenuItem{ID: mi.ID, RestaurantID: arg.RestaurantID, CategoryID: mi.CategoryID, Name: mi.Name, Price: mi.Price, IsAvailable: mi.IsAvailable, IsActive: true}, nil
}

func (f *fakeStore) DeleteRecipeLines(ctx context.Context, menuItemID uuid.UUID) error {
	delete(f.recipes, menuItemID)
	return nil
}

func (f *fakeStore) CreateRecipeLine(ctx context.Context, arg database.CreateRecipeLineParams) (database.RecipeLine, error) {
	f.addRecipe(arg.MenuItemID, arg.IngredientID, numericToDecimal(arg.Quantity).String())
	return database.RecipeLine{MenuItemID: arg.MenuItemID, IngredientID: arg.IngredientID, Quantity: arg.Quantity}, nil
}

func (f *fakeStore) ListRecipeLines(ctx context.Context, menuItemID uuid.UUID) ([]database.RecipeLineRow, error) {
	out := make([]database.RecipeLineRow, 0, len(f.recipes[menuItemID]))
	for _, rl := range f.recipes[menuItemID] {
		ing := f.ingredients[rl.IngredientID]
		rl.IngredientName = ing.Name
		rl.Unit = ing.Unit
		out = append(out, rl)
	}
	return out, nil
}

func (f *fakeStore) AdjustIngredientStock(ctx context.Context, arg database.AdjustIngredientStockParams) (database.Ingredient, error) {
	ing, ok := f.ingredients[arg.ID]
	if !ok || ing.RestaurantID != arg.RestaurantID {
		return database.Ingredient{}, pgx.ErrNoRows
	}
	ing.Stock = quantityToNumeric(numericToDecimal(ing.Stock).Add(numericToDecimal(arg.Delta)))
	f.ingredients[ing.ID] = ing
	return ing, nil
}

func (f *fakeStore) CreateInventoryMovement(ctx context.Context, arg database.CreateInventoryMovementParams) (database.InventoryMovement, error) {
	m := database.InventoryMovement{
		ID:           uuid.New(),
		RestaurantID: arg.RestaurantID,
		IngredientID: arg.IngredientID,
		Kind:         arg.Kind,
		Quantity:     arg.Quantity,
		ReferenceID:  arg.ReferenceID,
		Note:         arg.Note,
		CreatedBy:    arg.CreatedBy,
		CreatedAt:    time.Now(),
	}
	f.movements = append(f.movements, m)
	return m, nil
}

// --- Vendor orders ---

func (f *fakeStore) CreateVendorOrder(ctx context.Context, arg database.CreateVendorOrderParams) (database.VendorOrder, error) {
	vo := database.VendorOrder{
		ID:           uuid.New(),
		RestaurantID: arg.RestaurantID,
		VendorID:     arg.VendorID,
		Status:       enum.VendorOrderStatusDraft,
		Notes:        arg.Notes,
		ExpectedDate: arg.ExpectedDate,
		Total:        makeNumeric("0"),
		CreatedBy:    arg.CreatedBy,
	}
	f.vendorOrders[vo.ID] = vo
	return vo, nil
}

func (f *fakeStore) CreateVendorOrderLine(ctx context.Context, arg database.CreateVendorOrderLineParams) (database.VendorOrderLine, error) {
	l := database.VendorOrderLine{
		ID:            uuid.New(),
		VendorOrderID: arg.VendorOrderID,
		IngredientID:  arg.IngredientID,
		Description:   arg.Description,
		Quantity:      arg.Quantity,
		Unit:          arg.Unit,
		UnitCost:      arg.UnitCost,
	}
	f.vendorLines = append(f.vendorLines, l)
	return l, nil
}

func (f *fakeStore) UpdateVendorOrderTotal(ctx context.Context, id uuid.UUID) (database.VendorOrder, error) {
	vo, ok := f.vendorOrders[id]
	if !ok {
		return database.VendorOrder{}, pgx.ErrNoRows
	}
	total := decimal.Zero
	for _, l := range f.vendorLines {
		if l.VendorOrderID == id {
			total = total.Add(numericToDecimal(l.Quantity).Mul(numericToDecimal(l.UnitCost)))
		}
	}
	vo.Total = decimalToNumeric(total)
	f.vendorOrders[id] = vo
	return vo, nil
}

func (f *fakeStore) GetVendorOrder(ctx context.Context, arg database.GetVendorOrderParams) (database.VendorOrder, error) {
	vo, ok := f.vendorOrders[arg.ID]
	if !ok || vo.RestaurantID != arg.RestaurantID {
		return database.VendorOrder{}, pgx.ErrNoRows
	}
	return vo, nil
}

func (f *fakeStore) ListVendorOrderLines(ctx context.Context, vendorOrderID uuid.UUID) ([]database.VendorOrderLine, error) {
	var out []database.VendorOrderLine
	for _, l := range f.vendorLines {
		if l.VendorOrderID == vendorOrderID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateVendorOrderStatus(ctx context.Context, arg database.UpdateVendorOrderStatusParams) (database.VendorOrder, error) {
	vo, ok := f.vendorOrders[arg.ID]
	if !ok || vo.Status != arg.FromStatus {
		return database.VendorOrder{}, pgx.ErrNoRows
	}
	vo.Status = arg.Status
	now := pgtype.Timestamptz{Time: time.Now(), Valid: true}
	switch arg.Status {
	case enum.VendorOrderStatusSent:
		vo.SentAt = now
	case enum.VendorOrderStatusReceived:
		vo.ReceivedAt = now
	}
	f.vendorOrders[vo.ID] = vo
	return vo, nil
}

// --- Notifier ---

type recordingNotifier struct {
	batches []TicketBatch
	tables  []TableChange
	orders  []string
}

func (n *recordingNotifier) TicketsSent(ctx context.Context, batch TicketBatch) {
	n.batches = append(n.batches, batch)
}

func (n *recordingNotifier) TablesChanged(ctx context.Context, changes []TableChange) {
	n.tables = append(n.tables, changes...)
}

func (n *recordingNotifier) OrderChanged(ctx context.Context, order database.Order, eventType string) {
	n.orders = append(n.orders, eventType)
}

// --- Test helpers ---

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func numericEquals(n pgtype.Numeric, expected string) bool {
	d := numericToDecimal(n)
	exp, _ := decimal.NewFromString(expected)
	return d.Equal(exp)
}

func testPool() (*mockTxBeginner, *mockTx) {
	tx := &mockTx{}
	return &mockTxBeginner{tx: tx}, tx
}
