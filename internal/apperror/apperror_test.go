package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindStatus(t *testing.T) {
	cases := map[Kind]int{
		KindInvalidCredentials: http.StatusUnauthorized,
		KindForbidden:          http.StatusForbidden,
		KindNotFound:           http.StatusNotFound,
		KindConflict:           http.StatusBadRequest,
		KindBadRequest:         http.StatusBadRequest,
		KindValidation:         http.StatusBadRequest,
		KindTooManyRequests:    http.StatusTooManyRequests,
		KindInternal:           http.StatusInternalServerError,
		Kind("whatever"):       http.StatusInternalServerError,
	}
	for k, want := range cases {
		if got := k.Status(); got != want {
			t.Errorf("%s.Status() = %d, want %d", k, got, want)
		}
	}
}

func TestKindOfWrapped(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("redeem: %w", Internal(cause))

	if KindOf(err) != KindInternal {
		t.Fatalf("kind = %s", KindOf(err))
	}
	if !errors.Is(err, cause) {
		t.Fatal("cause lost")
	}
	if !Is(fmt.Errorf("x: %w", Forbidden("no")), KindForbidden) {
		t.Fatal("Is did not see through wrapping")
	}
	if KindOf(errors.New("plain")) != KindInternal {
		t.Fatal("foreign errors must map to internal")
	}
}

func TestValidationCarriesFields(t *testing.T) {
	err := Validation(
		FieldError{Field: "email", Message: "already in use"},
		FieldError{Field: "cpf", Message: "already in use"},
	)
	if err.Kind != KindValidation || len(err.Fields) != 2 {
		t.Fatalf("unexpected %+v", err)
	}
}
