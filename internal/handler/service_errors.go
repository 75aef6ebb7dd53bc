package handler

import (
	"errors"
	"net/http"

	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/auth"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/service"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/tablestate"
)

// serviceErrorStatus maps domain errors from the service layer to HTTP
// statuses. Anything unlisted is a 500.
var serviceErrorStatus = []struct {
	err    error
	status int
}{
	// 404
	{service.ErrOrderNotFound, http.StatusNotFound},
	{service.ErrItemNotFound, http.StatusNotFound},
	{service.ErrReservationNotFound, http.StatusNotFound},
	{service.ErrPendingBillNotFound, http.StatusNotFound},
	{service.ErrVendorOrderNotFound, http.StatusNotFound},

	// 409
	{service.ErrOrderClosed, http.StatusConflict},
	{service.ErrTableBusy, http.StatusConflict},
	{service.ErrSentInstructions, http.StatusConflict},
	{service.ErrNothingToSend, http.StatusConflict},
	{service.ErrEmptyOrder, http.StatusConflict},
	{service.ErrStatusOwnedByOrder, http.StatusConflict},
	{service.ErrPendingBillSettled, http.StatusConflict},
	{service.ErrInvalidVendorTransition, http.StatusConflict},
	{service.ErrEmailTaken, http.StatusConflict},
	{tablestate.ErrInvalidTransition, http.StatusConflict},

	// 400: references to rows in the body
	{service.ErrMenuItemNotFound, http.StatusBadRequest},
	{service.ErrMenuItemUnavailable, http.StatusBadRequest},
	{service.ErrTableNotFound, http.StatusBadRequest},
	{service.ErrCustomerNotFound, http.StatusBadRequest},
	{service.ErrVendorNotFound, http.StatusBadRequest},
	{service.ErrIngredientNotFound, http.StatusBadRequest},

	// 400: validation
	{service.ErrInvalidOrderType, http.StatusBadRequest},
	{service.ErrInvalidQuantity, http.StatusBadRequest},
	{service.ErrNegativeQuantity, http.StatusBadRequest},
	{service.ErrInvalidGuests, http.StatusBadRequest},
	{service.ErrTableNotAllowed, http.StatusBadRequest},
	{service.ErrInvalidPaymentMethod, http.StatusBadRequest},
	{service.ErrInvalidAmount, http.StatusBadRequest},
	{service.ErrInvalidDiscount, http.StatusBadRequest},
	{service.ErrInvalidDiscountValue, http.StatusBadRequest},
	{service.ErrDiscountTooLarge, http.StatusBadRequest},
	{service.ErrCustomerRequired, http.StatusBadRequest},
	{service.ErrInvalidTableStatus, http.StatusBadRequest},
	{service.ErrGuestNameRequired, http.StatusBadRequest},
	{service.ErrInvalidPartySize, http.StatusBadRequest},
	{service.ErrReservedForRequired, http.StatusBadRequest},
	{service.ErrRestaurantNameRequired, http.StatusBadRequest},
	{service.ErrOwnerNameRequired, http.StatusBadRequest},
	{service.ErrInvalidEmail, http.StatusBadRequest},
	{service.ErrPasswordTooShort, http.StatusBadRequest},
	{service.ErrInvalidTableCount, http.StatusBadRequest},
	{service.ErrInvalidTaxRate, http.StatusBadRequest},
	{service.ErrCategoryRequired, http.StatusBadRequest},
	{service.ErrInvalidExpenseAmount, http.StatusBadRequest},
	{service.ErrPaidExceedsAmount, http.StatusBadRequest},
	{service.ErrVendorRequired, http.StatusBadRequest},
	{service.ErrOverSettlement, http.StatusBadRequest},
	{service.ErrEmptyVendorOrder, http.StatusBadRequest},
	{service.ErrLineDescription, http.StatusBadRequest},
	{service.ErrInvalidUnitCost, http.StatusBadRequest},
	{service.ErrInvalidMovementKind, http.StatusBadRequest},
	{service.ErrZeroAdjustment, http.StatusBadRequest},
	{service.ErrDuplicateIngredient, http.StatusBadRequest},
	{auth.ErrInvalidPin, http.StatusBadRequest},
}

// writeServiceError answers with the status mapped to err, or logs and
// answers 500 when err is not a domain error.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	for _, e := range serviceErrorStatus {
		if errors.Is(err, e.err) {
			writeError(w, e.status, err.Error())
			return
		}
	}
	internalError(w, r, op, err)
}
