package client

import (
	"context"
	"strings"
	"time"

	"github.com/turnosmed/api-turnos/internal/apperror"
)

// Servicio is the slice of a catalog entry the turnos service cares
// about.  Duración is informational only; it does not alter slot
// granularity.
type Servicio struct {
	ID       string `json:"id"`
	Nombre   string `json:"nombre"`
	Duracion int    `json:"duracion"`
}

// CatalogClient looks up services in the external catalog API
// (GET {base}/{id}).
type CatalogClient struct {
	baseURL string
	hc      httpDoer
}

// NewCatalogClient builds a client for the given base URL with a
// per-call timeout.
func NewCatalogClient(baseURL string, timeout time.Duration) *CatalogClient {
	return &CatalogClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      newHTTPClient(timeout),
	}
}

// GetServicio fetches one service by id, forwarding the caller's bearer
// token.  A missing service maps to SERVICE_NOT_FOUND.
func (c *CatalogClient) GetServicio(ctx context.Context, id, token string) (*Servicio, error) {
	if id == "" {
		return nil, apperror.ErrServicioNotFound
	}
	var s Servicio
	if err := getJSON(ctx, c.hc, c.baseURL+"/"+id, token, apperror.ErrServicioNotFound, &s); err != nil {
		return nil, err
	}
	if s.ID == "" {
		s.ID = id
	}
	return &s, nil
}
