// Package endpoint holds the static request mix and the weighted table used to
// pick a request type for every dispatch.
package endpoint

import (
	"net/http"
)

// Descriptor is one request type the generator can issue.
type Descriptor struct {
	Name    string
	Method  string
	Path    string
	Weight  int
	Body    string // template text, empty for no body
	Headers map[string]string
}

// HasBody reports whether the request carries a payload.
func (d Descriptor) HasBody() bool {
	return d.Body != ""
}

// DefaultMix is the fixed health/list/create mix sent to the CRUD service.
func DefaultMix() []Descriptor {
	return []Descriptor{
		{
			Name:   "health",
			Method: http.MethodGet,
			Path:   "/health",
			Weight: 30,
		},
		{
			Name:   "list",
			Method: http.MethodGet,
			Path:   "/api/items",
			Weight: 50,
		},
		{
			Name:   "create",
			Method: http.MethodPost,
			Path:   "/api/items",
			Weight: 20,
			Body:   `{"name": "item-{{uuid}}"}`,
			Headers: map[string]string{
				"Content-Type": "application/json",
			},
		},
	}
}
