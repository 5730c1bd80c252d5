package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestErrorKindPrefersSpecificSentinel(t *testing.T) {
	cases := []struct {
		err    error
		kind   string
		status int
	}{
		{fmt.Errorf("submit: %w", ErrDuplicateSolution), KindDuplicateSolution, http.StatusConflict},
		{ErrInvalidCategory, KindValidation, http.StatusBadRequest},
		{fmt.Errorf("x: %w", ErrAccountNotVerified), KindAccountNotVerified, http.StatusForbidden},
		{ErrLockedForReview, KindLockedForReview, http.StatusForbidden},
		{ErrNotReviewable, KindNotReviewable, http.StatusConflict},
		{ErrInvalidState, KindInvalidState, http.StatusForbidden},
		{ErrInvalidTransition, KindInvalidTransition, http.StatusConflict},
		{ErrNotFound, KindNotFound, http.StatusNotFound},
		{ErrUnauthorized, KindUnauthorized, http.StatusUnauthorized},
		{errors.New("disk on fire"), KindInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := ErrorKind(tc.err); got != tc.kind {
			t.Errorf("ErrorKind(%v) = %s, want %s", tc.err, got, tc.kind)
		}
		if got := HTTPStatusFromError(tc.err); got != tc.status {
			t.Errorf("HTTPStatusFromError(%v) = %d, want %d", tc.err, got, tc.status)
		}
	}
	if ErrorKind(nil) != "" || HTTPStatusFromError(nil) != http.StatusOK {
		t.Fatalf("nil error must map to no kind and 200")
	}
}

func TestUntranslatedUniqueViolationIsConflict(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	if got := HTTPStatusFromError(err); got != http.StatusConflict {
		t.Fatalf("unexpected status: %d", got)
	}
}

func TestRespondWithDomainErrorHidesInternalMessages(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondWithDomainError(rec, errors.New("pq: password authentication failed"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	if body.Kind != KindInternal || body.Error != ErrInternalServer.Error() {
		t.Fatalf("unexpected body: %+v", body)
	}

	rec = httptest.NewRecorder()
	RespondWithDomainError(rec, fmt.Errorf("problem is no longer APPROVED: %w", ErrInvalidTransition))
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	if rec.Code != http.StatusConflict || body.Kind != KindInvalidTransition {
		t.Fatalf("unexpected response: %d %+v", rec.Code, body)
	}
}
