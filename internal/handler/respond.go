package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/middleware"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("encode JSON response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// internalError logs err and answers 500 without leaking details.
func internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	zap.L().Error(msg,
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// urlUUID parses a chi path parameter. On failure it writes a 400 naming
// label and returns false.
func urlUUID(w http.ResponseWriter, r *http.Request, param, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+label+" ID")
		return uuid.Nil, false
	}
	return id, true
}

func restaurantID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	return urlUUID(w, r, "rid", "restaurant")
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// staffID returns the authenticated staff member, or uuid.Nil when the
// route is mounted without auth (tests).
func staffID(r *http.Request) uuid.UUID {
	if c := middleware.ClaimsFromContext(r.Context()); c != nil {
		return c.StaffID
	}
	return uuid.Nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// --- Value conversion ---

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func numericToString(n pgtype.Numeric) string {
	return numericToDecimal(n).StringFixed(2)
}

// quantityString renders stock quantities without trailing zeros.
func quantityString(n pgtype.Numeric) string {
	return numericToDecimal(n).String()
}

func parseMoney(s string) (pgtype.Numeric, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return pgtype.Numeric{}, err
	}
	var n pgtype.Numeric
	if err := n.Scan(d.StringFixed(2)); err != nil {
		return pgtype.Numeric{}, err
	}
	return n, nil
}

func parseQuantity(s string) (pgtype.Numeric, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return pgtype.Numeric{}, err
	}
	var n pgtype.Numeric
	if err := n.Scan(d.StringFixed(3)); err != nil {
		return pgtype.Numeric{}, err
	}
	return n, nil
}

func optionalText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}

func uuidPtr(u pgtype.UUID) *uuid.UUID {
	if !u.Valid {
		return nil
	}
	id := uuid.UUID(u.Bytes)
	return &id
}

// parseOptionalUUID accepts "" as absent.
func parseOptionalUUID(s string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(s)
}

func datePtr(d pgtype.Date) *string {
	if !d.Valid {
		return nil
	}
	s := d.Time.Format(dateLayout)
	return &s
}

func timestampPtr(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}

// --- Query parameters ---

const dateLayout = "2006-01-02"

// pagination reads limit/offset with a default and a ceiling.
func pagination(r *http.Request, def, max int) (int32, int32) {
	limit := def
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > max {
		limit = max
	}
	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}
	return int32(limit), int32(offset)
}

func queryText(r *http.Request, key string) pgtype.Text {
	return optionalText(r.URL.Query().Get(key))
}

func queryUUID(w http.ResponseWriter, r *http.Request, key string) (pgtype.UUID, bool) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return pgtype.UUID{}, true
	}
	id, err := uuid.Parse(s)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+key)
		return pgtype.UUID{}, false
	}
	return pgtype.UUID{Bytes: id, Valid: true}, true
}

const maxRangeDays = 366

// zoneName is the IANA name of the zone request dates are parsed in.
// "Local" means config.ApplyTimeZone never ran; the server always runs it.
func zoneName() string {
	if n := time.Local.String(); n != "Local" {
		return n
	}
	return "UTC"
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.In(time.Local).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

// parseDateRange reads ?from= and ?to= as local calendar dates, both
// inclusive, and returns the half-open instant range [from, to+1day).
// Missing values fall back to defFrom and defTo.
func parseDateRange(w http.ResponseWriter, r *http.Request, defFrom, defTo time.Time) (time.Time, time.Time, bool) {
	from, to := startOfDay(defFrom), startOfDay(defTo)
	if s := r.URL.Query().Get("from"); s != "" {
		t, err := time.ParseInLocation(dateLayout, s, time.Local)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from date, expected YYYY-MM-DD")
			return time.Time{}, time.Time{}, false
		}
		from = t
	}
	if s := r.URL.Query().Get("to"); s != "" {
		t, err := time.ParseInLocation(dateLayout, s, time.Local)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to date, expected YYYY-MM-DD")
			return time.Time{}, time.Time{}, false
		}
		to = t
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "to must not be before from")
		return time.Time{}, time.Time{}, false
	}
	if to.Sub(from) > maxRangeDays*24*time.Hour {
		writeError(w, http.StatusBadRequest, "date range must not exceed 366 days")
		return time.Time{}, time.Time{}, false
	}
	return from, to.AddDate(0, 0, 1), true
}

func decimalFromInt(n int32) decimal.Decimal {
	return decimal.NewFromInt32(n)
}
