package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound           = errors.New("requested resource not found")
	ErrUnauthorized       = errors.New("authentication required")
	ErrForbidden          = errors.New("forbidden access")
	ErrBadRequest         = errors.New("bad request")
	ErrConflict           = errors.New("resource conflict") // e.g., email already registered
	ErrInternalServer     = errors.New("internal server error")
	ErrValidation         = errors.New("validation failed")
	ErrServiceUnavailable = errors.New("service unavailable")

	ErrAccountNotVerified     = errors.New("account is not verified")
	ErrInvalidTransition      = errors.New("transition not allowed from current status")
	ErrInvalidState           = errors.New("operation not allowed in current status")
	ErrInvalidDecision        = errors.New("review decision must be APPROVE or REJECT")
	ErrDuplicateSolution      = errors.New("solution already submitted for this problem")
	ErrMissingRejectionReason = errors.New("rejection reason required")
	ErrLockedForReview        = errors.New("solution cannot be edited after review has started")
	ErrNotReviewable          = errors.New("solution is not reviewable in its current status")

	ErrInvalidCategory    = fmt.Errorf("invalid category: %w", ErrValidation)
	ErrInvalidProblemType = fmt.Errorf("invalid problem type: %w", ErrValidation)
)

// Stable error kinds exposed to API clients.
const (
	KindNotFound               = "NotFound"
	KindUnauthorized           = "Unauthorized"
	KindForbidden              = "Forbidden"
	KindAccountNotVerified     = "AccountNotVerified"
	KindInvalidTransition      = "InvalidTransition"
	KindInvalidState           = "InvalidState"
	KindInvalidDecision        = "InvalidDecision"
	KindValidation             = "ValidationError"
	KindDuplicateSolution      = "DuplicateSolution"
	KindMissingRejectionReason = "MissingRejectionReason"
	KindLockedForReview        = "LockedForReview"
	KindNotReviewable          = "NotReviewable"
	KindConflict               = "Conflict"
	KindBadRequest             = "BadRequest"
	KindServiceUnavailable     = "ServiceUnavailable"
	KindRateLimited            = "RateLimited"
	KindInternal               = "InternalError"
)

// kindTable is ordered: the more specific sentinels come first.
var kindTable = []struct {
	err    error
	kind   string
	status int
}{
	{ErrDuplicateSolution, KindDuplicateSolution, http.StatusConflict},
	{ErrMissingRejectionReason, KindMissingRejectionReason, http.StatusBadRequest},
	{ErrInvalidDecision, KindInvalidDecision, http.StatusBadRequest},
	{ErrAccountNotVerified, KindAccountNotVerified, http.StatusForbidden},
	{ErrInvalidTransition, KindInvalidTransition, http.StatusConflict},
	{ErrInvalidState, KindInvalidState, http.StatusForbidden},
	{ErrLockedForReview, KindLockedForReview, http.StatusForbidden},
	{ErrNotReviewable, KindNotReviewable, http.StatusConflict},
	{ErrNotFound, KindNotFound, http.StatusNotFound},
	{ErrUnauthorized, KindUnauthorized, http.StatusUnauthorized},
	{ErrForbidden, KindForbidden, http.StatusForbidden},
	{ErrValidation, KindValidation, http.StatusBadRequest},
	{ErrBadRequest, KindBadRequest, http.StatusBadRequest},
	{ErrConflict, KindConflict, http.StatusConflict},
	{ErrServiceUnavailable, KindServiceUnavailable, http.StatusServiceUnavailable},
}

// ErrorKind returns the stable kind of err, or KindInternal for unclassified faults.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, entry := range kindTable {
		if errors.Is(err, entry.err) {
			return entry.kind
		}
	}
	return KindInternal
}

// HTTPStatusFromError maps domain errors to HTTP status codes.
func HTTPStatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	for _, entry := range kindTable {
		if errors.Is(err, entry.err) {
			return entry.status
		}
	}

	// A unique violation that escaped the repositories untranslated.
	if IsUniqueViolation(err) {
		return http.StatusConflict
	}

	return http.StatusInternalServerError
}

// IsUniqueViolation reports whether err carries a Postgres unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Errorf creates a new error with formatting, useful for wrapping.
func Errorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
