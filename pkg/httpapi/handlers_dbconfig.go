package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/tracelens/tracelens/pkg/result"
	"github.com/tracelens/tracelens/pkg/store"
)

func (s *Server) handleDBConfigs(w http.ResponseWriter, r *http.Request, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		s.listDBConfigs(w, r)
	case len(rest) == 0 && r.Method == http.MethodPost:
		s.createDBConfig(w, r)
	case len(rest) == 1 && rest[0] == "current" && r.Method == http.MethodGet:
		s.currentDBConfig(w, r)
	case len(rest) == 1 && strings.HasSuffix(rest[0], ":setcurrent") && r.Method == http.MethodPost:
		s.setCurrentDBConfig(w, r, strings.TrimSuffix(rest[0], ":setcurrent"))
	case len(rest) == 1 && r.Method == http.MethodGet:
		s.getDBConfig(w, r, rest[0])
	case len(rest) == 1 && r.Method == http.MethodDelete:
		s.deleteDBConfig(w, r, rest[0])
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) listDBConfigs(w http.ResponseWriter, r *http.Request) {
	res := result.WrapCtx(r.Context(), func(ctx context.Context) ([]store.DBConfig, error) {
		configs, err := s.dbconfigs.List(ctx)
		if configs == nil {
			configs = []store.DBConfig{}
		}
		return configs, err
	})
	if res.IsErr() {
		s.fail(w, r, res.Err())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"configs": res.Value()})
}

func (s *Server) createDBConfig(w http.ResponseWriter, r *http.Request) {
	body := decodeBody[store.DBConfig](r)
	if body.IsErr() {
		s.fail(w, r, body.Err())
		return
	}
	res := result.WrapCtx(r.Context(), func(ctx context.Context) (*store.DBConfig, error) {
		return s.dbconfigs.Create(ctx, body.Value())
	})
	if res.IsErr() {
		s.fail(w, r, res.Err())
		return
	}
	writeJSON(w, http.StatusCreated, res.Value())
}

func (s *Server) currentDBConfig(w http.ResponseWriter, r *http.Request) {
	res := result.WrapCtx(r.Context(), func(ctx context.Context) (*store.DBConfig, error) {
		return s.dbconfigs.Current(ctx)
	})
	if res.IsErr() {
		s.fail(w, r, res.Err())
		return
	}
	writeJSON(w, http.StatusOK, res.Value())
}

func (s *Server) setCurrentDBConfig(w http.ResponseWriter, r *http.Request, id string) {
	res := result.WrapCtx(r.Context(), func(ctx context.Context) (*store.DBConfig, error) {
		return s.dbconfigs.SetCurrent(ctx, id)
	})
	if res.IsErr() {
		s.fail(w, r, res.Err())
		return
	}
	writeJSON(w, http.StatusOK, res.Value())
}

func (s *Server) getDBConfig(w http.ResponseWriter, r *http.Request, id string) {
	res := result.WrapCtx(r.Context(), func(ctx context.Context) (*store.DBConfig, error) {
		return s.dbconfigs.Get(ctx, id)
	})
	if res.IsErr() {
		s.fail(w, r, res.Err())
		return
	}
	writeJSON(w, http.StatusOK, res.Value())
}

func (s *Server) deleteDBConfig(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.dbconfigs.Delete(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
