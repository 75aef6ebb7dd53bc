package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/database"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/enum"
)

// Errors returned by the ledger service.
var (
	ErrCategoryRequired     = errors.New("category is required")
	ErrInvalidExpenseAmount = errors.New("amount must be > 0")
	ErrPaidExceedsAmount    = errors.New("paid_amount exceeds amount")
	ErrVendorRequired       = errors.New("vendor_id is required when the expense is not paid in full")
	ErrVendorNotFound       = errors.New("vendor not found")
	ErrPendingBillNotFound  = errors.New("pending bill not found")
	ErrPendingBillSettled   = errors.New("pending bill is already settled")
	ErrOverSettlement       = errors.New("amount exceeds the outstanding balance")
)

// LedgerStore defines the DB methods for expenses and pending bills.
// Satisfied by *database.Queries.
type LedgerStore interface {
	GetVendor(ctx context.Context, arg database.GetVendorParams) (database.Vendor, error)
	CreateExpense(ctx context.Context, arg database.CreateExpenseParams) (database.Expense, error)
	AddExpensePayment(ctx context.Context, arg database.AddExpensePaymentParams) (database.Expense, error)
	AddBillPayment(ctx context.Context, arg database.AddBillPaymentParams) (database.Bill, error)
	CreatePendingBill(ctx context.Context, arg database.CreatePendingBillParams) (database.PendingBill, error)
	GetPendingBillForUpdate(ctx context.Context, arg database.GetPendingBillParams) (database.PendingBill, error)
	SettlePendingBill(ctx context.Context, arg database.SettlePendingBillParams) (database.PendingBill, error)
	CreatePendingBillPayment(ctx context.Context, arg database.CreatePendingBillPaymentParams) (database.PendingBillPayment, error)
}

// NewLedgerStore creates a LedgerStore from a DBTX (pool or tx).
type NewLedgerStore func(db database.DBTX) LedgerStore

// LedgerService books expenses and settles receivables and payables.
type LedgerService struct {
	pool     TxBeginner
	newStore NewLedgerStore
}

func NewLedgerService(pool TxBeginner, newStore NewLedgerStore) *LedgerService {
	return &LedgerService{pool: pool, newStore: newStore}
}

// CreateExpenseRequest is the input for booking an expense. An empty
// PaidAmount means paid in full; a zero ExpenseDate means today.
type CreateExpenseRequest struct {
	RestaurantID  uuid.UUID
	CreatedBy     uuid.UUID
	VendorID      uuid.UUID
	Category      string
	Description   string
	Amount        string
	PaidAmount    string
	ExpenseDate   time.Time
	VendorOrderID uuid.UUID
}

// ExpenseResult is a booked expense and the payable it opened, if any.
type ExpenseResult struct {
	Expense     database.Expense
	PendingBill *database.PendingBill
}

// CreateExpense books an expense. A vendor expense that is not paid in full
// opens a PAYABLE pending bill for the difference.
func (s *LedgerService) CreateExpense(ctx context.Context, req CreateExpenseRequest) (*ExpenseResult, error) {
	amount, paid, err := parseExpenseAmounts(req.Amount, req.PaidAmount)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	result, err := bookExpense(ctx, s.newStore(tx), req, amount, paid)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return result, nil
}

func parseExpenseAmounts(amountStr, paidStr string) (decimal.Decimal, decimal.Decimal, error) {
	amount, err := parseCents(amountStr)
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, decimal.Zero, ErrInvalidExpenseAmount
	}
	paid := amount
	if strings.TrimSpace(paidStr) != "" {
		paid, err = parseCents(paidStr)
		if err != nil || paid.IsNegative() {
			return decimal.Zero, decimal.Zero, ErrInvalidAmount
		}
	}
	if paid.GreaterThan(amount) {
		return decimal.Zero, decimal.Zero, ErrPaidExceedsAmount
	}
	return amount, paid, nil
}

// expenseBooker is the subset of a store needed to book an expense. Shared
// with vendor order receiving.
type expenseBooker interface {
	GetVendor(ctx context.Context, arg database.GetVendorParams) (database.Vendor, error)
	CreateExpense(ctx context.Context, arg database.CreateExpenseParams) (database.Expense, error)
	CreatePendingBill(ctx context.Context, arg database.CreatePendingBillParams) (database.PendingBill, error)
}

func bookExpense(ctx context.Context, store expenseBooker, req CreateExpenseRequest, amount, paid decimal.Decimal) (*ExpenseResult, error) {
	category := strings.TrimSpace(req.Category)
	if category == "" {
		return nil, ErrCategoryRequired
	}
	outstanding := amount.Sub(paid)
	if outstanding.IsPositive() && req.VendorID == uuid.Nil {
		return nil, ErrVendorRequired
	}
	if req.VendorID != uuid.Nil {
		if _, err := store.GetVendor(ctx, database.GetVendorParams{ID: req.VendorID, RestaurantID: req.RestaurantID}); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrVendorNotFound
			}
			return nil, fmt.Errorf("get vendor: %w", err)
		}
	}

	date := req.ExpenseDate
	if date.IsZero() {
		date = time.Now()
	}

	expense, err := store.CreateExpense(ctx, database.CreateExpenseParams{
		RestaurantID:  req.RestaurantID,
		VendorID:      optionalUUID(req.VendorID),
		Category:      category,
		Description:   optionalText(req.Description),
		Amount:        decimalToNumeric(amount),
		PaidAmount:    decimalToNumeric(paid),
		ExpenseDate:   pgtype.Date{Time: date, Valid: true},
		VendorOrderID: optionalUUID(req.VendorOrderID),
		CreatedBy:     req.CreatedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create expense: %w", err)
	}

	result := &ExpenseResult{Expense: expense}
	if outstanding.IsPositive() {
		pb, err := store.CreatePendingBill(ctx, database.CreatePendingBillParams{
			RestaurantID: req.RestaurantID,
			PartyType:    enum.PartyTypeVendor,
			PartyID:      req.VendorID,
			SourceType:   enum.SourceTypeExpense,
			SourceID:     expense.ID,
			AmountDue:    decimalToNumeric(outstanding),
		})
		if err != nil {
			return nil, fmt.Errorf("create pending bill: %w", err)
		}
		result.PendingBill = &pb
	}
	return result, nil
}

// SettlePendingRequest pays down a pending bill.
type SettlePendingRequest struct {
	RestaurantID  uuid.UUID
	PendingBillID uuid.UUID
	StaffID       uuid.UUID
	Amount        string
	PaymentMethod string
}

// SettlementResult is the updated pending bill and the payment recorded.
type SettlementResult struct {
	PendingBill database.PendingBill
	Payment     database.PendingBillPayment
}

// SettlePendingBill records a partial or full payment against a pending
// bill and applies it to the bill or expense that opened it.
func (s *LedgerService) SettlePendingBill(ctx context.Context, req SettlePendingRequest) (*SettlementResult, error) {
	if !enum.IsValidPaymentMethod(req.PaymentMethod) || req.PaymentMethod == enum.PaymentMethodCredit {
		return nil, ErrInvalidPaymentMethod
	}
	amount, err := parseCents(req.Amount)
	if err != nil || !amount.IsPositive() {
		return nil, ErrInvalidExpenseAmount
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	pb, err := store.GetPendingBillForUpdate(ctx, database.GetPendingBillParams{ID: req.PendingBillID, RestaurantID: req.RestaurantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPendingBillNotFound
		}
		return nil, fmt.Errorf("get pending bill: %w", err)
	}
	if pb.Status != enum.PendingBillStatusOpen {
		return nil, ErrPendingBillSettled
	}
	remaining := numericToDecimal(pb.AmountDue).Sub(numericToDecimal(pb.AmountSettled))
	if amount.GreaterThan(remaining) {
		return nil, ErrOverSettlement
	}

	updated, err := store.SettlePendingBill(ctx, database.SettlePendingBillParams{ID: pb.ID, Amount: decimalToNumeric(amount)})
	if err != nil {
		return nil, fmt.Errorf("settle pending bill: %w", err)
	}
	payment, err := store.CreatePendingBillPayment(ctx, database.CreatePendingBillPaymentParams{
		PendingBillID: pb.ID,
		Amount:        decimalToNumeric(amount),
		PaymentMethod: req.PaymentMethod,
		CreatedBy:     req.StaffID,
	})
	if err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}

	switch pb.SourceType {
	case enum.SourceTypeBill:
		if _, err := store.AddBillPayment(ctx, database.AddBillPaymentParams{ID: pb.SourceID, Amount: decimalToNumeric(amount)}); err != nil {
			return nil, fmt.Errorf("apply to bill: %w", err)
		}
	case enum.SourceTypeExpense:
		if _, err := store.AddExpensePayment(ctx, database.AddExpensePaymentParams{ID: pb.SourceID, Amount: decimalToNumeric(amount)}); err != nil {
			return nil, fmt.Errorf("apply to expense: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &SettlementResult{PendingBill: updated, Payment: payment}, nil
}
