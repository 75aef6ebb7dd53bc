package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusOpen      = "OPEN"
	OrderStatusSettled   = "SETTLED"
	OrderStatusCancelled = "CANCELLED"
)

const (
	TableStatusAvailable = "AVAILABLE"
	TableStatusOccupied  = "OCCUPIED"
	TableStatusCleaning  = "CLEANING"
	TableStatusReserved  = "RESERVED"
)

const (
	ReservationStatusBooked    = "BOOKED"
	ReservationStatusSeated    = "SEATED"
	ReservationStatusCancelled = "CANCELLED"
	ReservationStatusNoShow    = "NO_SHOW"
)

const (
	BillStatusPaid    = "PAID"
	BillStatusPartial = "PARTIAL"
	BillStatusUnpaid  = "UNPAID"
)

const (
	PendingBillStatusOpen    = "OPEN"
	PendingBillStatusSettled = "SETTLED"
)

const (
	VendorOrderStatusDraft     = "DRAFT"
	VendorOrderStatusSent      = "SENT"
	VendorOrderStatusReceived  = "RECEIVED"
	VendorOrderStatusCancelled = "CANCELLED"
)

// ── Group C: Borderline (CHECK constrained in DB) ──

const (
	StaffRoleOwner   = "OWNER"
	StaffRoleManager = "MANAGER"
	StaffRoleCashier = "CASHIER"
	StaffRoleWaiter  = "WAITER"
	StaffRoleKitchen = "KITCHEN"
)

const (
	OrderTypeDineIn   = "DINE_IN"
	OrderTypeTakeaway = "TAKEAWAY"
	OrderTypeDelivery = "DELIVERY"
)

const (
	PartyTypeCustomer = "CUSTOMER"
	PartyTypeVendor   = "VENDOR"
)

const (
	SourceTypeBill    = "BILL"
	SourceTypeExpense = "EXPENSE"
)

const (
	MovementSale     = "SALE"
	MovementPurchase = "PURCHASE"
	MovementRestock  = "RESTOCK"
	MovementWaste    = "WASTE"
	MovementAdjust   = "ADJUST"
)

// ── Group B: Configurable labels (no DB constraint) ──

const (
	StationKitchen = "KITCHEN"
	StationBar     = "BAR"
)

const (
	PaymentMethodCash   = "CASH"
	PaymentMethodCard   = "CARD"
	PaymentMethodUPI    = "UPI"
	PaymentMethodCredit = "CREDIT"
)

const (
	DiscountTypePercentage = "PERCENTAGE"
	DiscountTypeFixed      = "FIXED_AMOUNT"
)

// IsValidStation reports whether s is a known preparation station.
func IsValidStation(s string) bool {
	return s == StationKitchen || s == StationBar
}

// IsValidRole reports whether s is a known staff role.
func IsValidRole(s string) bool {
	switch s {
	case StaffRoleOwner, StaffRoleManager, StaffRoleCashier, StaffRoleWaiter, StaffRoleKitchen:
		return true
	}
	return false
}

// IsValidPaymentMethod reports whether s is an accepted payment method.
func IsValidPaymentMethod(s string) bool {
	switch s {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodUPI, PaymentMethodCredit:
		return true
	}
	return false
}

// IsValidOrderType reports whether s is a known order type.
func IsValidOrderType(s string) bool {
	switch s {
	case OrderTypeDineIn, OrderTypeTakeaway, OrderTypeDelivery:
		return true
	}
	return false
}
