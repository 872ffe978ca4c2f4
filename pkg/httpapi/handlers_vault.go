package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/tracelens/tracelens/pkg/errors"
	"github.com/tracelens/tracelens/pkg/result"
	"github.com/tracelens/tracelens/pkg/vault"
)

// secretRequest is the write payload for vault secrets.
type secretRequest struct {
	Name     string `json:"name"`
	Provider string `json:"provider"`
	Value    string `json:"value"`
}

// revealResponse returns a plaintext key exactly once, on explicit request.
type revealResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

func (s *Server) handleVault(w http.ResponseWriter, r *http.Request, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		s.listSecrets(w, r)
	case len(rest) == 0 && r.Method == http.MethodPost:
		s.upsertSecret(w, r)
	case len(rest) == 1 && strings.HasSuffix(rest[0], ":reveal") && r.Method == http.MethodPost:
		s.revealSecret(w, r, strings.TrimSuffix(rest[0], ":reveal"))
	case len(rest) == 1 && r.Method == http.MethodGet:
		s.getSecret(w, r, rest[0])
	case len(rest) == 1 && r.Method == http.MethodDelete:
		s.deleteSecret(w, r, rest[0])
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) listSecrets(w http.ResponseWriter, r *http.Request) {
	res := result.WrapCtx(r.Context(), func(ctx context.Context) ([]vault.MaskedSecret, error) {
		secrets, err := s.secrets.List(ctx)
		if err != nil {
			return nil, err
		}
		masked := make([]vault.MaskedSecret, 0, len(secrets))
		for _, secret := range secrets {
			masked = append(masked, secret.Masked())
		}
		return masked, nil
	})
	if res.IsErr() {
		s.fail(w, r, res.Err())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"secrets": res.Value()})
}

func (s *Server) upsertSecret(w http.ResponseWriter, r *http.Request) {
	body := decodeBody[secretRequest](r)
	if body.IsErr() {
		s.fail(w, r, body.Err())
		return
	}
	req := body.Value()
	res := result.WrapCtx(r.Context(), func(ctx context.Context) (vault.MaskedSecret, error) {
		stored, err := s.secrets.Upsert(ctx, vault.Secret{
			Name:     req.Name,
			Provider: req.Provider,
			Value:    req.Value,
		})
		if err != nil {
			return vault.MaskedSecret{}, err
		}
		return stored.Masked(), nil
	})
	if res.IsErr() {
		s.fail(w, r, res.Err())
		return
	}
	writeJSON(w, http.StatusCreated, res.Value())
}

func (s *Server) getSecret(w http.ResponseWriter, r *http.Request, id string) {
	res := result.WrapCtx(r.Context(), func(ctx context.Context) (vault.MaskedSecret, error) {
		secret, err := s.secrets.Get(ctx, id)
		if err != nil {
			return vault.MaskedSecret{}, err
		}
		return secret.Masked(), nil
	})
	if res.IsErr() {
		s.fail(w, r, res.Err())
		return
	}
	writeJSON(w, http.StatusOK, res.Value())
}

func (s *Server) revealSecret(w http.ResponseWriter, r *http.Request, id string) {
	if !s.revealEnabled {
		s.fail(w, r, errors.Unauthorized("secret reveal is disabled"))
		return
	}
	res := result.WrapCtx(r.Context(), func(ctx context.Context) (revealResponse, error) {
		secret, err := s.secrets.Get(ctx, id)
		if err != nil {
			return revealResponse{}, err
		}
		return revealResponse{ID: secret.ID, Name: secret.Name, Value: secret.Value}, nil
	})
	if res.IsErr() {
		s.fail(w, r, res.Err())
		return
	}
	writeJSON(w, http.StatusOK, res.Value())
}

func (s *Server) deleteSecret(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.secrets.Delete(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
