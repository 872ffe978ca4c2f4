package httpapi

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tracelens/tracelens/pkg/errors"
)

func TestWriteJSONSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, map[string]int{"total": 5})
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"total":5}` {
		t.Errorf("body = %s", got)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %s", ct)
	}
}

func TestWriteErrorUnclassifiedIs400(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, stderrors.New("bad key"))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["detail"] != "bad key" {
		t.Errorf("detail = %q, want the raw message", body["detail"])
	}
	if body["title"] != "ERROR" {
		t.Errorf("title = %q", body["title"])
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("content type = %s", ct)
	}
}

func TestWriteErrorTypedMapsStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{errors.NotFound("agent", "a-1"), http.StatusNotFound},
		{errors.Unauthorized("nope"), http.StatusUnauthorized},
		{errors.Conflict("dup"), http.StatusConflict},
		{errors.InvalidInput("bad"), http.StatusBadRequest},
		{errors.New(errors.CodeRateLimit, "slow down", nil), http.StatusTooManyRequests},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeError(rec, tc.err)
		if rec.Code != tc.want {
			t.Errorf("%v: status = %d, want %d", tc.err, rec.Code, tc.want)
		}
	}
}

func TestDecodeBody(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))
	res := decodeBody[payload](r)
	if res.IsErr() {
		t.Fatalf("decode failed: %v", res.Err())
	}
	if res.Value().Name != "x" {
		t.Errorf("name = %q", res.Value().Name)
	}

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	if res := decodeBody[payload](r); !res.IsErr() {
		t.Error("empty body must fail")
	}

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
	res = decodeBody[payload](r)
	if !res.IsErr() {
		t.Fatal("malformed body must fail")
	}
	if errors.AsServiceError(res.Err()).Code != errors.CodeInvalidInput {
		t.Errorf("expected invalid input, got %v", res.Err())
	}
}
