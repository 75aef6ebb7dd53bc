package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Restaurant struct {
	ID        uuid.UUID      `db:"id" json:"id"`
	Name      string         `db:"name" json:"name"`
	Address   pgtype.Text    `db:"address" json:"address"`
	Phone     pgtype.Text    `db:"phone" json:"phone"`
	Currency  string         `db:"currency" json:"currency"`
	TaxRate   pgtype.Numeric `db:"tax_rate" json:"tax_rate"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

type KotPreference struct {
	RestaurantID   uuid.UUID `db:"restaurant_id" json:"restaurant_id"`
	Mode           string    `db:"mode" json:"mode"`
	DefaultGroup   string    `db:"default_group" json:"default_group"`
	CategoryGroups []byte    `db:"category_groups" json:"category_groups"`
	GroupOrder     []string  `db:"group_order" json:"group_order"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

type Staff struct {
	ID             uuid.UUID   `db:"id" json:"id"`
	RestaurantID   uuid.UUID   `db:"restaurant_id" json:"restaurant_id"`
	Email          pgtype.Text `db:"email" json:"email"`
	HashedPassword pgtype.Text `db:"hashed_password" json:"hashed_password"`
	HashedPin      pgtype.Text `db:"hashed_pin" json:"hashed_pin"`
	FullName       string      `db:"full_name" json:"full_name"`
	Role           string      `db:"role" json:"role"`
	IsActive       bool        `db:"is_active" json:"is_active"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updated_at"`
}

type Category struct {
	ID           uuid.UUID `db:"id" json:"id"`
	RestaurantID uuid.UUID `db:"restaurant_id" json:"restaurant_id"`
	Name         string    `db:"name" json:"name"`
	Station      string    `db:"station" json:"station"`
	SortOrder    int32     `db:"sort_order" json:"sort_order"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type MenuItem struct {
	ID           uuid.UUID      `db:"id" json:"id"`
	RestaurantID uuid.UUID      `db:"restaurant_id" json:"restaurant_id"`
	CategoryID   uuid.UUID      `db:"category_id" json:"category_id"`
	Name         string         `db:"name" json:"name"`
	Description  pgtype.Text    `db:"description" json:"description"`
	Price        pgtype.Numeric `db:"price" json:"price"`
	Station      pgtype.Text    `db:"station" json:"station"`
	IsAvailable  bool           `db:"is_available" json:"is_available"`
	IsActive     bool           `db:"is_active" json:"is_active"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

type Ingredient struct {
	ID                uuid.UUID      `db:"id" json:"id"`
	RestaurantID      uuid.UUID      `db:"restaurant_id" json:"restaurant_id"`
	Name              string         `db:"name" json:"name"`
	Unit              string         `db:"unit" json:"unit"`
	Stock             pgtype.Numeric `db:"stock" json:"stock"`
	LowStockThreshold pgtype.Numeric `db:"low_stock_threshold" json:"low_stock_threshold"`
	CostPerUnit       pgtype.Numeric `db:"cost_per_unit" json:"cost_per_unit"`
	Keywords          []string       `db:"keywords" json:"keywords"`
	IsActive          bool           `db:"is_active" json:"is_active"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}

type RecipeLine struct {
	MenuItemID   uuid.UUID      `db:"menu_item_id" json:"menu_item_id"`
	IngredientID uuid.UUID      `db:"ingredient_id" json:"ingredient_id"`
	Quantity     pgtype.Numeric `db:"quantity" json:"quantity"`
}

type InventoryMovement struct {
	ID           uuid.UUID      `db:"id" json:"id"`
	RestaurantID uuid.UUID      `db:"restaurant_id" json:"restaurant_id"`
	IngredientID uuid.UUID      `db:"ingredient_id" json:"ingredient_id"`
	Kind         string         `db:"kind" json:"kind"`
	Quantity     pgtype.Numeric `db:"quantity" json:"quantity"`
	ReferenceID  pgtype.UUID    `db:"reference_id" json:"reference_id"`
	Note         pgtype.Text    `db:"note" json:"note"`
	CreatedBy    pgtype.UUID    `db:"created_by" json:"created_by"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}

type DiningTable struct {
	ID           uuid.UUID `db:"id" json:"id"`
	RestaurantID uuid.UUID `db:"restaurant_id" json:"restaurant_id"`
	Name         string    `db:"name" json:"name"`
	Seats        int32     `db:"seats" json:"seats"`
	Status       string    `db:"status" json:"status"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

type Reservation struct {
	ID           uuid.UUID   `db:"id" json:"id"`
	RestaurantID uuid.UUID   `db:"restaurant_id" json:"restaurant_id"`
	TableID      pgtype.UUID `db:"table_id" json:"table_id"`
	CustomerID   pgtype.UUID `db:"customer_id" json:"customer_id"`
	GuestName    string      `db:"guest_name" json:"guest_name"`
	Phone        pgtype.Text `db:"phone" json:"phone"`
	PartySize    int32       `db:"party_size" json:"party_size"`
	ReservedFor  time.Time   `db:"reserved_for" json:"reserved_for"`
	Status       string      `db:"status" json:"status"`
	Notes        pgtype.Text `db:"notes" json:"notes"`
	OrderID      pgtype.UUID `db:"order_id" json:"order_id"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updated_at"`
}

type Customer struct {
	ID           uuid.UUID   `db:"id" json:"id"`
	RestaurantID uuid.UUID   `db:"restaurant_id" json:"restaurant_id"`
	Name         string      `db:"name" json:"name"`
	Phone        pgtype.Text `db:"phone" json:"phone"`
	Email        pgtype.Text `db:"email" json:"email"`
	Notes        pgtype.Text `db:"notes" json:"notes"`
	IsActive     bool        `db:"is_active" json:"is_active"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updated_at"`
}

type Vendor struct {
	ID           uuid.UUID   `db:"id" json:"id"`
	RestaurantID uuid.UUID   `db:"restaurant_id" json:"restaurant_id"`
	Name         string      `db:"name" json:"name"`
	ContactName  pgtype.Text `db:"contact_name" json:"contact_name"`
	Phone        pgtype.Text `db:"phone" json:"phone"`
	Email        pgtype.Text `db:"email" json:"email"`
	Notes        pgtype.Text `db:"notes" json:"notes"`
	IsActive     bool        `db:"is_active" json:"is_active"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updated_at"`
}

type Order struct {
	ID           uuid.UUID          `db:"id" json:"id"`
	RestaurantID uuid.UUID          `db:"restaurant_id" json:"restaurant_id"`
	OrderNumber  string             `db:"order_number" json:"order_number"`
	OrderType    string             `db:"order_type" json:"order_type"`
	TableID      pgtype.UUID        `db:"table_id" json:"table_id"`
	CustomerID   pgtype.UUID        `db:"customer_id" json:"customer_id"`
	Guests       int32              `db:"guests" json:"guests"`
	Notes        pgtype.Text        `db:"notes" json:"notes"`
	Status       string             `db:"status" json:"status"`
	KotCount     int32              `db:"kot_count" json:"kot_count"`
	CreatedBy    uuid.UUID          `db:"created_by" json:"created_by"`
	CreatedAt    time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `db:"updated_at" json:"updated_at"`
	ClosedAt     pgtype.Timestamptz `db:"closed_at" json:"closed_at"`
}

type OrderItem struct {
	ID           uuid.UUID      `db:"id" json:"id"`
	OrderID      uuid.UUID      `db:"order_id" json:"order_id"`
	MenuItemID   uuid.UUID      `db:"menu_item_id" json:"menu_item_id"`
	Name         string         `db:"name" json:"name"`
	CategoryID   uuid.UUID      `db:"category_id" json:"category_id"`
	CategoryName string         `db:"category_name" json:"category_name"`
	Station      string         `db:"station" json:"station"`
	UnitPrice    pgtype.Numeric `db:"unit_price" json:"unit_price"`
	Quantity     int32          `db:"quantity" json:"quantity"`
	SentQuantity int32          `db:"sent_quantity" json:"sent_quantity"`
	Instructions string         `db:"instructions" json:"instructions"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

type Kot struct {
	ID           uuid.UUID `db:"id" json:"id"`
	RestaurantID uuid.UUID `db:"restaurant_id" json:"restaurant_id"`
	OrderID      uuid.UUID `db:"order_id" json:"order_id"`
	TicketNumber int32     `db:"ticket_number" json:"ticket_number"`
	GroupName    string    `db:"group_name" json:"group_name"`
	Kind         string    `db:"kind" json:"kind"`
	Lines        []byte    `db:"lines" json:"lines"`
	CreatedBy    uuid.UUID `db:"created_by" json:"created_by"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type Bill struct {
	ID            uuid.UUID      `db:"id" json:"id"`
	RestaurantID  uuid.UUID      `db:"restaurant_id" json:"restaurant_id"`
	OrderID       uuid.UUID      `db:"order_id" json:"order_id"`
	CustomerID    pgtype.UUID    `db:"customer_id" json:"customer_id"`
	BillNumber    string         `db:"bill_number" json:"bill_number"`
	Subtotal      pgtype.Numeric `db:"subtotal" json:"subtotal"`
	Discount      pgtype.Numeric `db:"discount" json:"discount"`
	Tax           pgtype.Numeric `db:"tax" json:"tax"`
	Total         pgtype.Numeric `db:"total" json:"total"`
	PaidAmount    pgtype.Numeric `db:"paid_amount" json:"paid_amount"`
	PaymentMethod string         `db:"payment_method" json:"payment_method"`
	Status        string         `db:"status" json:"status"`
	CreatedBy     uuid.UUID      `db:"created_by" json:"created_by"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

type VendorOrder struct {
	ID           uuid.UUID          `db:"id" json:"id"`
	RestaurantID uuid.UUID          `db:"restaurant_id" json:"restaurant_id"`
	VendorID     uuid.UUID          `db:"vendor_id" json:"vendor_id"`
	Status       string             `db:"status" json:"status"`
	Notes        pgtype.Text        `db:"notes" json:"notes"`
	ExpectedDate pgtype.Date        `db:"expected_date" json:"expected_date"`
	Total        pgtype.Numeric     `db:"total" json:"total"`
	CreatedBy    uuid.UUID          `db:"created_by" json:"created_by"`
	CreatedAt    time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `db:"updated_at" json:"updated_at"`
	SentAt       pgtype.Timestamptz `db:"sent_at" json:"sent_at"`
	ReceivedAt   pgtype.Timestamptz `db:"received_at" json:"received_at"`
}

type VendorOrderLine struct {
	ID            uuid.UUID      `db:"id" json:"id"`
	VendorOrderID uuid.UUID      `db:"vendor_order_id" json:"vendor_order_id"`
	IngredientID  pgtype.UUID    `db:"ingredient_id" json:"ingredient_id"`
	Description   string         `db:"description" json:"description"`
	Quantity      pgtype.Numeric `db:"quantity" json:"quantity"`
	Unit          string         `db:"unit" json:"unit"`
	UnitCost      pgtype.Numeric `db:"unit_cost" json:"unit_cost"`
}

type Expense struct {
	ID            uuid.UUID      `db:"id" json:"id"`
	RestaurantID  uuid.UUID      `db:"restaurant_id" json:"restaurant_id"`
	VendorID      pgtype.UUID    `db:"vendor_id" json:"vendor_id"`
	Category      string         `db:"category" json:"category"`
	Description   pgtype.Text    `db:"description" json:"description"`
	Amount        pgtype.Numeric `db:"amount" json:"amount"`
	PaidAmount    pgtype.Numeric `db:"paid_amount" json:"paid_amount"`
	ExpenseDate   pgtype.Date    `db:"expense_date" json:"expense_date"`
	VendorOrderID pgtype.UUID    `db:"vendor_order_id" json:"vendor_order_id"`
	CreatedBy     uuid.UUID      `db:"created_by" json:"created_by"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

type PendingBill struct {
	ID            uuid.UUID      `db:"id" json:"id"`
	RestaurantID  uuid.UUID      `db:"restaurant_id" json:"restaurant_id"`
	PartyType     string         `db:"party_type" json:"party_type"`
	PartyID       uuid.UUID      `db:"party_id" json:"party_id"`
	SourceType    string         `db:"source_type" json:"source_type"`
	SourceID      uuid.UUID      `db:"source_id" json:"source_id"`
	AmountDue     pgtype.Numeric `db:"amount_due" json:"amount_due"`
	AmountSettled pgtype.Numeric `db:"amount_settled" json:"amount_settled"`
	Status        string         `db:"status" json:"status"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

type PendingBillPayment struct {
	ID            uuid.UUID      `db:"id" json:"id"`
	PendingBillID uuid.UUID      `db:"pending_bill_id" json:"pending_bill_id"`
	Amount        pgtype.Numeric `db:"amount" json:"amount"`
	PaymentMethod string         `db:"payment_method" json:"payment_method"`
	CreatedBy     uuid.UUID      `db:"created_by" json:"created_by"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
}
