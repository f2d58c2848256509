package domain

import (
	"errors"

	"github.com/smallbiznis/codemart/internal/errs"
)

var (
	ErrInvalidOrderID      = errs.New(errs.ErrValidation, "invalid_order_id")
	ErrInvalidCaller       = errs.New(errs.ErrValidation, "invalid_caller")
	ErrInvalidProject      = errs.New(errs.ErrValidation, "invalid_project")
	ErrInvalidAmount       = errs.New(errs.ErrValidation, "invalid_amount")
	ErrInvalidRefundAmount = errs.New(errs.ErrValidation, "invalid_refund_amount")
	ErrAmountScale         = errs.New(errs.ErrValidation, "amount_exceeds_4_decimal_places")
	ErrNegativeSplit       = errs.New(errs.ErrValidation, "negative_payment_component")
	ErrSplitMismatch       = errs.New(errs.ErrValidation, "payment_split_does_not_match_amount")
	ErrMethodMismatch      = errs.New(errs.ErrValidation, "payment_method_does_not_match_split")
	ErrInvalidMethod       = errs.New(errs.ErrValidation, "invalid_payment_method")
	ErrSelfPurchase        = errs.New(errs.ErrValidation, "cannot_purchase_own_project")
	ErrRemarkTooLong       = errs.New(errs.ErrValidation, "remark_too_long")
	ErrInvalidStatus       = errs.New(errs.ErrValidation, "invalid_status")
	ErrInvalidPageToken    = errs.New(errs.ErrValidation, "invalid_page_token")

	ErrNotBuyer       = errs.New(errs.ErrForbidden, "caller_is_not_the_buyer")
	ErrNotParticipant = errs.New(errs.ErrForbidden, "caller_is_not_a_participant")

	ErrNotPayable       = errs.New(errs.ErrInvalidState, "order_not_payable")
	ErrNotCancellable   = errs.New(errs.ErrInvalidState, "order_not_cancellable")
	ErrNotCompletable   = errs.New(errs.ErrInvalidState, "order_not_completable")
	ErrNotRefundable    = errs.New(errs.ErrInvalidState, "order_not_refundable")
	ErrRefundNotAllowed = errs.New(errs.ErrInvalidState, "refund_not_allowed_after_completion")

	ErrBuyerInsufficientPoints  = errs.New(errs.ErrInsufficientResource, "buyer_insufficient_points")
	ErrBuyerInsufficientBalance = errs.New(errs.ErrInsufficientResource, "buyer_insufficient_balance")
	ErrSellerInsufficient       = errs.New(errs.ErrInsufficientResource, "seller_insufficient_funds")

	ErrOrderConflict     = errs.New(errs.ErrConflict, "order_changed_concurrently")
	ErrDuplicatePurchase = errs.New(errs.ErrConflict, "project_already_ordered")

	ErrOrderNotFound = errs.New(errs.ErrNotFound, "order_not_found")

	ErrInconsistentOrder = errors.New("order_record_inconsistent")
)
