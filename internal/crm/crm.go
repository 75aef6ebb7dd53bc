// Package crm folds bill and expense history into per-party rollups.
package crm

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillFact is the slice of a bill the customer rollup needs.
type BillFact struct {
	CustomerID uuid.UUID
	Total      decimal.Decimal
	Paid       decimal.Decimal
	At         time.Time
}

// CustomerRollup summarises a customer's visits.
type CustomerRollup struct {
	CustomerID    uuid.UUID       `json:"customer_id"`
	Visits        int             `json:"visits"`
	TotalSpent    decimal.Decimal `json:"total_spent"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
	Outstanding   decimal.Decimal `json:"outstanding"`
	AverageTicket decimal.Decimal `json:"average_ticket"`
	FirstVisit    time.Time       `json:"first_visit"`
	LastVisit     time.Time       `json:"last_visit"`
}

// ExpenseFact is the slice of an expense the vendor rollup needs.
type ExpenseFact struct {
	VendorID uuid.UUID
	Amount   decimal.Decimal
	Paid     decimal.Decimal
	At       time.Time
}

// VendorRollup summarises purchases from a vendor.
type VendorRollup struct {
	VendorID     uuid.UUID       `json:"vendor_id"`
	Purchases    int             `json:"purchases"`
	TotalBilled  decimal.Decimal `json:"total_billed"`
	TotalPaid    decimal.Decimal `json:"total_paid"`
	Outstanding  decimal.Decimal `json:"outstanding"`
	LastPurchase time.Time       `json:"last_purchase"`
}

// CustomerRollups groups bills by customer. Bills without a customer are
// walk-ins and are skipped.
func CustomerRollups(bills []BillFact) map[uuid.UUID]CustomerRollup {
	out := make(map[uuid.UUID]CustomerRollup)
	for _, b := range bills {
		if b.CustomerID == uuid.Nil {
			continue
		}
		r, ok := out[b.CustomerID]
		if !ok {
			r = CustomerRollup{CustomerID: b.CustomerID, FirstVisit: b.At, LastVisit: b.At}
		}
		r.Visits++
		r.TotalSpent = r.TotalSpent.Add(b.Total)
		r.TotalPaid = r.TotalPaid.Add(b.Paid)
		if b.At.Before(r.FirstVisit) {
			r.FirstVisit = b.At
		}
		if b.At.After(r.LastVisit) {
			r.LastVisit = b.At
		}
		out[b.CustomerID] = r
	}
	for id, r := range out {
		r.Outstanding = outstanding(r.TotalSpent, r.TotalPaid)
		r.AverageTicket = r.TotalSpent.Div(decimal.NewFromInt(int64(r.Visits))).Round(2)
		out[id] = r
	}
	return out
}

// VendorRollups groups expenses by vendor. Expenses without a vendor are
// skipped.
func VendorRollups(expenses []ExpenseFact) map[uuid.UUID]VendorRollup {
	out := make(map[uuid.UUID]VendorRollup)
	for _, e := range expenses {
		if e.VendorID == uuid.Nil {
			continue
		}
		r := out[e.VendorID]
		r.VendorID = e.VendorID
		r.Purchases++
		r.TotalBilled = r.TotalBilled.Add(e.Amount)
		r.TotalPaid = r.TotalPaid.Add(e.Paid)
		if e.At.After(r.LastPurchase) {
			r.LastPurchase = e.At
		}
		out[e.VendorID] = r
	}
	for id, r := range out {
		r.Outstanding = outstanding(r.TotalBilled, r.TotalPaid)
		out[id] = r
	}
	return out
}

// outstanding never goes below zero; overpayment is not credit.
func outstanding(total, paid decimal.Decimal) decimal.Decimal {
	d := total.Sub(paid)
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// SortedCustomers returns rollups ordered by total spent, highest first.
func SortedCustomers(m map[uuid.UUID]CustomerRollup) []CustomerRollup {
	out := make([]CustomerRollup, 0, len(m))
	for _, r := range m {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].TotalSpent.Cmp(out[j].TotalSpent); c != 0 {
			return c > 0
		}
		return out[i].CustomerID.String() < out[j].CustomerID.String()
	})
	return out
}

// SortedVendors returns rollups ordered by outstanding amount, highest first.
func SortedVendors(m map[uuid.UUID]VendorRollup) []VendorRollup {
	out := make([]VendorRollup, 0, len(m))
	for _, r := range m {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Outstanding.Cmp(out[j].Outstanding); c != 0 {
			return c > 0
		}
		return out[i].VendorID.String() < out[j].VendorID.String()
	})
	return out
}
