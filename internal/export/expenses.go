// Package export renders reports as spreadsheet workbooks.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ExpenseSheet is the sheet name of the expense workbook.
const ExpenseSheet = "Expenses"

// ContentTypeXLSX is the MIME type of an .xlsx workbook.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExpenseRow is one expense line of the export.
type ExpenseRow struct {
	Date        time.Time
	Category    string
	Description string
	Vendor      string
	Amount      decimal.Decimal
	Paid        decimal.Decimal
}

var expenseHeaders = []string{"Date", "Category", "Description", "Vendor", "Amount", "Paid", "Due"}

// Expenses builds a workbook with one row per expense and a totals row.
// The caller closes the returned file.
func Expenses(title string, rows []ExpenseRow) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", ExpenseSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#3b82f6"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("header style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("money style: %w", err)
	}
	total, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		NumFmt: 4,
		Border: []excelize.Border{{Type: "top", Color: "000000", Style: 2}},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("total style: %w", err)
	}

	s := ExpenseSheet
	// Keep the first failure; later calls still run so the caller sees one
	// error for the whole sheet.
	var firstErr error
	keep := func(err error) {
		if firstErr == nil && err != nil {
			firstErr = err
		}
	}
	set := func(cell string, v any) { keep(f.SetCellValue(s, cell, v)) }

	set("A1", title)
	for i, h := range expenseHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 3)
		keep(err)
		set(cell, h)
	}
	keep(f.SetCellStyle(s, "A3", "G3", header))

	var sumAmount, sumPaid decimal.Decimal
	row := 4
	for _, e := range rows {
		due := e.Amount.Sub(e.Paid)
		set(fmt.Sprintf("A%d", row), e.Date.Format("2006-01-02"))
		set(fmt.Sprintf("B%d", row), e.Category)
		set(fmt.Sprintf("C%d", row), e.Description)
		set(fmt.Sprintf("D%d", row), e.Vendor)
		set(fmt.Sprintf("E%d", row), e.Amount.InexactFloat64())
		set(fmt.Sprintf("F%d", row), e.Paid.InexactFloat64())
		set(fmt.Sprintf("G%d", row), due.InexactFloat64())
		sumAmount = sumAmount.Add(e.Amount)
		sumPaid = sumPaid.Add(e.Paid)
		row++
	}
	if row > 4 {
		keep(f.SetCellStyle(s, "E4", fmt.Sprintf("G%d", row-1), money))
	}

	set(fmt.Sprintf("A%d", row), "Total")
	set(fmt.Sprintf("E%d", row), sumAmount.InexactFloat64())
	set(fmt.Sprintf("F%d", row), sumPaid.InexactFloat64())
	set(fmt.Sprintf("G%d", row), sumAmount.Sub(sumPaid).InexactFloat64())
	keep(f.SetCellStyle(s, fmt.Sprintf("A%d", row), fmt.Sprintf("G%d", row), total))

	keep(f.SetColWidth(s, "A", "B", 14))
	keep(f.SetColWidth(s, "C", "C", 36))
	keep(f.SetColWidth(s, "D", "D", 24))
	keep(f.SetColWidth(s, "E", "G", 14))

	if firstErr != nil {
		f.Close()
		return nil, fmt.Errorf("fill expense sheet: %w", firstErr)
	}
	return f, nil
}

// WriteExpenses renders the workbook straight to w.
func WriteExpenses(w io.Writer, title string, rows []ExpenseRow) error {
	f, err := Expenses(title, rows)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
