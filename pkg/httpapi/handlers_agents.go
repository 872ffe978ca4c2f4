package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/tracelens/tracelens/pkg/result"
	"github.com/tracelens/tracelens/pkg/store"
)

// agentListResponse carries one page of agents.
type agentListResponse struct {
	Agents        []store.Agent `json:"agents"`
	Total         int           `json:"total"`
	NextPageToken string        `json:"next_page_token,omitempty"`
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		s.listAgents(w, r)
	case len(rest) == 0 && r.Method == http.MethodPost:
		s.createAgent(w, r)
	case len(rest) == 1 && r.Method == http.MethodGet:
		s.getAgent(w, r, rest[0])
	case len(rest) == 1 && r.Method == http.MethodPatch:
		s.updateAgent(w, r, rest[0])
	case len(rest) == 1 && r.Method == http.MethodDelete:
		s.deleteAgent(w, r, rest[0])
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) listAgents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := store.AgentFilter{
		Provider:  query.Get("provider"),
		PageToken: query.Get("pageToken"),
	}
	if value := query.Get("enabled"); value != "" {
		if enabled, err := strconv.ParseBool(value); err == nil {
			filter.Enabled = &enabled
		}
	}
	if value := query.Get("pageSize"); value != "" {
		if size, err := strconv.ParseInt(value, 10, 32); err == nil {
			filter.PageSize = int32(size)
		}
	}

	res := result.WrapCtx(r.Context(), func(ctx context.Context) (agentListResponse, error) {
		agents, total, next, err := s.agents.List(ctx, filter)
		if err != nil {
			return agentListResponse{}, err
		}
		if agents == nil {
			agents = []store.Agent{}
		}
		return agentListResponse{Agents: agents, Total: total, NextPageToken: next}, nil
	})
	if res.IsErr() {
		s.fail(w, r, res.Err())
		return
	}
	writeJSON(w, http.StatusOK, res.Value())
}

func (s *Server) createAgent(w http.ResponseWriter, r *http.Request) {
	body := decodeBody[store.Agent](r)
	if body.IsErr() {
		s.fail(w, r, body.Err())
		return
	}
	res := result.WrapCtx(r.Context(), func(ctx context.Context) (*store.Agent, error) {
		return s.agents.Create(ctx, body.Value())
	})
	if res.IsErr() {
		s.fail(w, r, res.Err())
		return
	}
	writeJSON(w, http.StatusCreated, res.Value())
}

func (s *Server) getAgent(w http.ResponseWriter, r *http.Request, id string) {
	res := result.WrapCtx(r.Context(), func(ctx context.Context) (*store.Agent, error) {
		return s.agents.Get(ctx, id)
	})
	if res.IsErr() {
		s.fail(w, r, res.Err())
		return
	}
	writeJSON(w, http.StatusOK, res.Value())
}

func (s *Server) updateAgent(w http.ResponseWriter, r *http.Request, id string) {
	body := decodeBody[store.AgentUpdate](r)
	if body.IsErr() {
		s.fail(w, r, body.Err())
		return
	}
	res := result.WrapCtx(r.Context(), func(ctx context.Context) (*store.Agent, error) {
		return s.agents.Update(ctx, id, body.Value())
	})
	if res.IsErr() {
		s.fail(w, r, res.Err())
		return
	}
	writeJSON(w, http.StatusOK, res.Value())
}

func (s *Server) deleteAgent(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.agents.Delete(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
