package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/tracelens/tracelens/pkg/errors"
	"github.com/tracelens/tracelens/pkg/result"
)

// decodeBody reads and decodes a JSON request body into T.
func decodeBody[T any](r *http.Request) result.Result[T] {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return result.Err[T](errors.InvalidInput("invalid body"))
	}
	if len(body) == 0 {
		return result.Err[T](errors.InvalidInput("empty body"))
	}
	res := result.DecodeJSON[T](body)
	if res.IsErr() {
		return result.Err[T](errors.InvalidInput(res.Err().Error()))
	}
	return res
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	payload := result.EncodeJSON(v)
	if payload.IsErr() {
		writeError(w, errors.New(errors.CodeInternal, "response encoding failed", payload.Err()))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload.Value())
}

// writeError renders err as an RFC 7807 problem document. Typed service
// errors map to their status; anything else surfaces as a 400 with the raw
// message.
func writeError(w http.ResponseWriter, err error) {
	se := errors.AsServiceError(err)
	title := string(se.Code)
	if title == "" {
		title = "ERROR"
	}
	body := map[string]any{
		"type":   "about:blank",
		"title":  title,
		"detail": se.Message,
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(se.HTTPStatus())
	_ = json.NewEncoder(w).Encode(body)
}
