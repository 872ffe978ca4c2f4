package errors

import (
	stderrors "errors"
	"net/http"
	"testing"
)

func TestErrorString(t *testing.T) {
	err := New(CodeNotFound, "agent missing", nil)
	if got := err.Error(); got != `[NOT_FOUND] agent missing` {
		t.Errorf("unexpected message %q", got)
	}
	wrapped := New(CodeStorage, "insert failed", stderrors.New("disk full"))
	if got := wrapped.Error(); got != `[STORAGE_ERROR] insert failed: disk full` {
		t.Errorf("unexpected message %q", got)
	}
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("root")
	err := New(CodeInternal, "wrapper", cause)
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is must reach the cause through Unwrap")
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		code Code
		want int
	}{
		{CodeNotFound, http.StatusNotFound},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeConflict, http.StatusConflict},
		{CodeInvalidInput, http.StatusBadRequest},
		{CodeTimeout, http.StatusRequestTimeout},
		{CodeRateLimit, http.StatusTooManyRequests},
		{CodeInternal, http.StatusInternalServerError},
		{CodeStorage, http.StatusInternalServerError},
		{Code(""), http.StatusBadRequest},
	}
	for _, tc := range cases {
		if got := New(tc.code, "x", nil).HTTPStatus(); got != tc.want {
			t.Errorf("code %s: status %d, want %d", tc.code, got, tc.want)
		}
	}
}

func TestAsServiceError(t *testing.T) {
	if AsServiceError(nil) != nil {
		t.Error("nil error must stay nil")
	}
	typed := NotFound("agent", "a-1")
	if got := AsServiceError(typed); got != typed {
		t.Error("typed errors must pass through unchanged")
	}
	raw := stderrors.New("bad key")
	promoted := AsServiceError(raw)
	if promoted.Code != "" {
		t.Errorf("raw errors must stay unclassified, got code %s", promoted.Code)
	}
	if promoted.HTTPStatus() != http.StatusBadRequest {
		t.Errorf("unclassified errors must map to 400, got %d", promoted.HTTPStatus())
	}
	if promoted.Message != "bad key" {
		t.Errorf("raw message must be preserved, got %q", promoted.Message)
	}
}

func TestWithContext(t *testing.T) {
	err := NotFound("secret", "s-9")
	if err.Context["resource"] != "secret" || err.Context["id"] != "s-9" {
		t.Errorf("context not recorded: %v", err.Context)
	}
}

func TestWrapStorage(t *testing.T) {
	if WrapStorage("insert", nil) != nil {
		t.Error("nil cause must yield nil")
	}
	err := WrapStorage("insert", stderrors.New("locked"))
	if err.Code != CodeStorage || err.Context["operation"] != "insert" {
		t.Errorf("unexpected wrap %v", err)
	}
}
