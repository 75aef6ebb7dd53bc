// Package inventory turns pasted purchase lists into structured lines and
// matches them against a restaurant's ingredients.
package inventory

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

var ErrEmptyList = errors.New("no items found in list")

// PurchaseList is the result of parsing a pasted list.
type PurchaseList struct {
	// ExpectedDate is set when the first line is a date ("20 jan",
	// "2026-01-20").
	ExpectedDate *time.Time `json:"expected_date,omitempty"`
	Lines        []Line     `json:"lines"`
	Warnings     []string   `json:"warnings,omitempty"`
}

// Line is one parsed row, e.g. "tomato 5kg 12.50" or "milk 6l @1.20".
type Line struct {
	RawText     string          `json:"raw_text"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit,omitempty"`
	// UnitCost is zero when the line carried no price.
	UnitCost decimal.Decimal `json:"unit_cost"`
}

var months = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

// Known quantity units (a number followed by anything else is not a
// quantity).
var qtyUnits = map[string]bool{
	"kg": true, "g": true, "gm": true, "l": true, "ltr": true, "ml": true,
	"pc": true, "pcs": true, "pack": true, "pkt": true, "box": true,
	"btl": true, "bottle": true, "bottles": true, "can": true, "cans": true,
	"dozen": true, "doz": true, "bunch": true, "tray": true, "bag": true,
}

// Parse reads one item per line. Blank lines are ignored; lines without a
// description are reported as warnings. now anchors dates written without a
// year.
func Parse(text string, now time.Time) (*PurchaseList, error) {
	list := &PurchaseList{}
	first := true

	for _, raw := range strings.Split(text, "\n") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if first {
			first = false
			if d, ok := parseDateLine(raw, now); ok {
				list.ExpectedDate = &d
				continue
			}
		}

		line, err := parseLine(raw)
		if err != nil {
			list.Warnings = append(list.Warnings, fmt.Sprintf("skipped: %s", raw))
			continue
		}
		list.Lines = append(list.Lines, *line)
	}

	if len(list.Lines) == 0 {
		return nil, ErrEmptyList
	}
	return list, nil
}

// parseDateLine accepts "20 jan", "jan 20" or an ISO date. A day-month date
// more than 30 days in the past rolls into next year.
func parseDateLine(line string, now time.Time) (time.Time, bool) {
	line = strings.ToLower(strings.TrimSpace(line))
	if t, err := time.Parse("2006-01-02", line); err == nil {
		return t, true
	}

	parts := strings.Fields(line)
	if len(parts) != 2 {
		return time.Time{}, false
	}
	dayStr, monStr := parts[0], parts[1]
	if _, ok := months[dayStr]; ok {
		dayStr, monStr = monStr, dayStr
	}
	day, err := strconv.Atoi(dayStr)
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, false
	}
	month, ok := months[monStr]
	if !ok {
		return time.Time{}, false
	}

	parsed := time.Date(now.Year(), month, day, 0, 0, 0, 0, time.UTC)
	if parsed.Before(now.AddDate(0, 0, -30)) {
		parsed = parsed.AddDate(1, 0, 0)
	}
	return parsed, true
}

// parseLine splits a row into description, quantity and price. A bare
// number after the description is the line total; "@x" is the unit cost.
func parseLine(line string) (*Line, error) {
	tokens := strings.Fields(strings.ToLower(line))

	qty := decimal.NewFromInt(1)
	var unit string
	var total, unitCost decimal.Decimal
	var desc []string
	var qtyFound, totalFound, unitCostFound bool

	for _, tok := range tokens {
		if c, ok := parseUnitCost(tok); ok && !unitCostFound {
			unitCost = c
			unitCostFound = true
			continue
		}
		if q, u, ok := parseQtyUnitToken(tok); ok && !qtyFound {
			qty, unit = q, u
			qtyFound = true
			continue
		}
		if p, ok := parsePrice(tok); ok && len(desc) == 0 && !qtyFound && p.IsPositive() {
			// "3 eggs": a leading bare number counts.
			qty = p
			qtyFound = true
			continue
		}
		if p, ok := parsePrice(tok); ok && !totalFound && len(desc) > 0 {
			total = p
			totalFound = true
			continue
		}
		desc = append(desc, tok)
	}

	description := strings.Join(desc, " ")
	if strings.IndexFunc(description, unicode.IsLetter) < 0 {
		return nil, fmt.Errorf("no description in line: %q", line)
	}
	if !qty.IsPositive() {
		return nil, fmt.Errorf("quantity must be > 0: %q", line)
	}
	if !unitCostFound && totalFound {
		unitCost = total.Div(qty).Round(2)
	}

	return &Line{
		RawText:     line,
		Description: description,
		Quantity:    qty,
		Unit:        unit,
		UnitCost:    unitCost,
	}, nil
}

// parsePrice accepts plain amounts with an optional currency marker:
// "12.50", "₹450", "rs450", "$3".
func parsePrice(tok string) (decimal.Decimal, bool) {
	for _, prefix := range []string{"₹", "rs.", "rs", "$"} {
		tok = strings.TrimPrefix(tok, prefix)
	}
	tok = strings.ReplaceAll(tok, ",", "")
	if tok == "" || !unicode.IsDigit(rune(tok[0])) {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(tok)
	if err != nil || d.IsNegative() {
		return decimal.Zero, false
	}
	return d, true
}

func parseUnitCost(tok string) (decimal.Decimal, bool) {
	if !strings.HasPrefix(tok, "@") {
		return decimal.Zero, false
	}
	return parsePrice(tok[1:])
}

// parseQtyUnitToken parses "5kg" into (5, "kg"). Only known units match, so
// "7up" stays part of the description.
func parseQtyUnitToken(tok string) (decimal.Decimal, string, bool) {
	digitEnd := 0
	for i, r := range tok {
		if unicode.IsDigit(r) || r == '.' {
			digitEnd = i + 1
		} else {
			break
		}
	}
	if digitEnd == 0 || digitEnd == len(tok) {
		return decimal.Zero, "", false
	}

	unit := tok[digitEnd:]
	if !qtyUnits[unit] {
		return decimal.Zero, "", false
	}
	qty, err := decimal.NewFromString(tok[:digitEnd])
	if err != nil {
		return decimal.Zero, "", false
	}
	return qty, unit, true
}
