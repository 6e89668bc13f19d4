package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf(t *testing.T) {
	if KindOf(Validationf("bad input")) != KindValidation {
		t.Fatal("validation kind not detected")
	}
	if KindOf(fmt.Errorf("wrap: %w", Conflictf("busy"))) != KindConflict {
		t.Fatal("kind not detected through wrapping")
	}
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Fatal("plain error should be unknown kind")
	}
	if KindOf(nil) != KindUnknown {
		t.Fatal("nil error should be unknown kind")
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Validationf("x"), http.StatusBadRequest},
		{NotFoundf("x"), http.StatusNotFound},
		{Forbiddenf("x"), http.StatusForbidden},
		{Conflictf("x"), http.StatusConflict},
		{Persistence(errors.New("db down")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := HTTPStatus(c.err); got != c.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestCodeOf(t *testing.T) {
	if CodeOf(Conflictf("x")) != "state_conflict" {
		t.Fatalf("conflict code = %s", CodeOf(Conflictf("x")))
	}
	// 未归类错误不得泄露内部细节
	if CodeOf(errors.New("secret detail")) != "persistence_failure" {
		t.Fatalf("plain error code = %s", CodeOf(errors.New("x")))
	}
}

func TestUnwrap(t *testing.T) {
	inner := errors.New("disk full")
	err := Persistence(inner)
	if !errors.Is(err, inner) {
		t.Fatal("persistence error should unwrap to inner error")
	}
}
