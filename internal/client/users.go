package client

import (
	"context"
	"strings"
	"time"

	"github.com/turnosmed/api-turnos/internal/apperror"
)

// Usuario is the profile slice returned by the external user directory.
type Usuario struct {
	ID     string `json:"id"`
	Nombre string `json:"nombre"`
	Email  string `json:"email"`
}

// UserClient looks up requesters in the external user API
// (GET {base}/{id}).
type UserClient struct {
	baseURL string
	hc      httpDoer
}

// NewUserClient builds a client for the given base URL with a per-call
// timeout.
func NewUserClient(baseURL string, timeout time.Duration) *UserClient {
	return &UserClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      newHTTPClient(timeout),
	}
}

// GetUsuario fetches one user by id, forwarding the caller's bearer
// token.  A missing user maps to USER_NOT_FOUND.
func (c *UserClient) GetUsuario(ctx context.Context, id, token string) (*Usuario, error) {
	if id == "" {
		return nil, apperror.ErrUsuarioNotFound
	}
	var u Usuario
	if err := getJSON(ctx, c.hc, c.baseURL+"/"+id, token, apperror.ErrUsuarioNotFound, &u); err != nil {
		return nil, err
	}
	if u.ID == "" {
		u.ID = id
	}
	return &u, nil
}
