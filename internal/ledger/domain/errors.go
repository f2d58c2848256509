package domain

import (
	"errors"

	"github.com/smallbiznis/codemart/internal/errs"
)

var (
	ErrInvalidUser      = errs.New(errs.ErrValidation, "invalid_user")
	ErrInvalidCurrency  = errs.New(errs.ErrValidation, "invalid_currency")
	ErrInvalidType      = errs.New(errs.ErrValidation, "invalid_transaction_type")
	ErrInvalidAmount    = errs.New(errs.ErrValidation, "invalid_amount")
	ErrAmountScale      = errs.New(errs.ErrValidation, "amount_exceeds_4_decimal_places")
	ErrInvalidReference = errs.New(errs.ErrValidation, "invalid_reference")
	ErrInvalidPageToken = errs.New(errs.ErrValidation, "invalid_page_token")
	ErrInvalidTimeRange = errs.New(errs.ErrValidation, "invalid_time_range")

	ErrGrantForbidden = errs.New(errs.ErrForbidden, "grant_requires_system_actor")

	ErrInsufficientPoints = errs.New(errs.ErrInsufficientResource, "insufficient_available_balance")
	ErrInsufficientFrozen = errs.New(errs.ErrInsufficientResource, "insufficient_frozen_balance")

	ErrAccountConflict = errs.New(errs.ErrConflict, "account_version_conflict")
	ErrDuplicateEntry  = errs.New(errs.ErrConflict, "duplicate_ledger_entry")

	ErrAccountNotFound = errs.New(errs.ErrNotFound, "account_not_found")

	ErrAccountMismatch     = errors.New("posting_account_mismatch")
	ErrBrokenChain         = errors.New("ledger_chain_broken")
	ErrTransactionRequired = errors.New("ledger_posting_requires_transaction")
)
