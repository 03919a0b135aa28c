// Package errors provides custom error types for the hearth reconciliation
// engine. Service-layer errors use AppError so run summaries and log lines
// carry a stable code alongside the human-readable message.
package errors

// AppError represents a structured application error with an error code,
// human-readable message, and optional internal error.
type AppError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Internal error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:     sentinel.Code,
		Message:  sentinel.Message,
		Internal: internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:     sentinel.Code,
		Message:  message,
		Internal: sentinel.Internal,
	}
}

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input"}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found"}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred"}
)

// Account book errors.
var (
	ErrAccountBookNotFound = &AppError{Code: "ACCOUNT_BOOK_NOT_FOUND", Message: "Account book not found"}
)

// Budget errors.
var (
	ErrBudgetNotFound = &AppError{Code: "BUDGET_NOT_FOUND", Message: "Budget not found"}
	// ErrDuplicateBudget marks a broken one-budget-per-owner-per-period
	// invariant; callers surface it loudly instead of picking a row.
	ErrDuplicateBudget   = &AppError{Code: "DUPLICATE_BUDGET", Message: "More than one budget matches a unique owner/period lookup"}
	ErrSuccessorNotFound = &AppError{Code: "SUCCESSOR_NOT_FOUND", Message: "No current-period budget found for a prior-period budget"}
	ErrRolloverDisabled  = &AppError{Code: "ROLLOVER_DISABLED", Message: "Budget does not have rollover enabled"}
	// ErrBackfillPending guards fix-rollover ordering: a budget that still
	// has orphaned transactions cannot have its rollover recomputed until
	// fix-budget-ids has run for it.
	ErrBackfillPending = &AppError{Code: "BACKFILL_PENDING", Message: "Budget has orphaned transactions; run fix-budget-ids first"}
)

// History errors.
var (
	ErrHistoryExists = &AppError{Code: "HISTORY_EXISTS", Message: "A history record already exists for this budget and period"}
)
