package auth

import (
	"net/http"

	"github.com/google/uuid"
)

// Transport injects the bearer credential and a per-request id into every
// outgoing request. Requests issued before login go out without the
// Authorization header so the auth endpoints themselves keep working.
type Transport struct {
	Store *TokenStore
	Base  http.RoundTripper
}

func NewTransport(store *TokenStore) *Transport {
	return &Transport{Store: store, Base: http.DefaultTransport}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	if token := t.Store.Token(); token != "" {
		clone.Header.Set("Authorization", "Bearer "+token)
	}
	clone.Header.Set("X-Request-Id", uuid.NewString())

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(clone)
}
