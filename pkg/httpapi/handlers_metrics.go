package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/tracelens/tracelens/pkg/errors"
	"github.com/tracelens/tracelens/pkg/result"
	"github.com/tracelens/tracelens/pkg/store"
)

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request, rest []string) {
	if len(rest) == 0 || rest[0] != "requests" {
		http.NotFound(w, r)
		return
	}
	rest = rest[1:]
	switch {
	case len(rest) == 0 && r.Method == http.MethodPost:
		s.ingestUsage(w, r)
	case len(rest) == 0 && r.Method == http.MethodGet:
		s.usageTotals(w, r)
	case len(rest) == 1 && rest[0] == "by-provider" && r.Method == http.MethodGet:
		s.usageGrouped(w, r, s.usage.ByProvider)
	case len(rest) == 1 && rest[0] == "by-model" && r.Method == http.MethodGet:
		s.usageGrouped(w, r, s.usage.ByModel)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) ingestUsage(w http.ResponseWriter, r *http.Request) {
	body := decodeBody[store.UsageRecord](r)
	if body.IsErr() {
		s.fail(w, r, body.Err())
		return
	}
	res := result.WrapCtx(r.Context(), func(ctx context.Context) (*store.UsageRecord, error) {
		return s.usage.Insert(ctx, body.Value())
	})
	if res.IsErr() {
		s.fail(w, r, res.Err())
		return
	}
	writeJSON(w, http.StatusCreated, res.Value())
}

func (s *Server) usageTotals(w http.ResponseWriter, r *http.Request) {
	window, err := parseUsageWindow(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res := result.WrapCtx(r.Context(), func(ctx context.Context) (*store.UsageTotals, error) {
		return s.usage.Totals(ctx, window)
	})
	if res.IsErr() {
		s.fail(w, r, res.Err())
		return
	}
	writeJSON(w, http.StatusOK, res.Value())
}

func (s *Server) usageGrouped(w http.ResponseWriter, r *http.Request,
	group func(context.Context, store.UsageWindow) ([]store.UsageGroup, error)) {
	window, err := parseUsageWindow(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res := result.WrapCtx(r.Context(), func(ctx context.Context) ([]store.UsageGroup, error) {
		groups, err := group(ctx, window)
		if groups == nil {
			groups = []store.UsageGroup{}
		}
		return groups, err
	})
	if res.IsErr() {
		s.fail(w, r, res.Err())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": res.Value()})
}

func parseUsageWindow(r *http.Request) (store.UsageWindow, error) {
	var window store.UsageWindow
	query := r.URL.Query()
	if value := query.Get("since"); value != "" {
		since, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return window, errors.InvalidInput("since must be RFC 3339")
		}
		window.Since = since
	}
	if value := query.Get("until"); value != "" {
		until, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return window, errors.InvalidInput("until must be RFC 3339")
		}
		window.Until = until
	}
	return window, nil
}
