package adapter

import (
	"context"
	"fmt"
	"net/http"

	"github.com/MKhiriev/go-vault-sync/models"
)

// ResourceClient is the CRUD client of one encrypted resource endpoint. E is
// the wire document type.
type ResourceClient[E any] struct {
	adapter *HTTPAdapter
	path    string
	name    string

	// saveMethod and saveStatus describe singleton writes, which differ
	// between endpoints (PUT 200 for /name, POST 201 for customer ids).
	saveMethod string
	saveStatus int
}

// ResourceOption customises a [ResourceClient].
type ResourceOption func(*resourceOptions)

type resourceOptions struct {
	saveMethod string
	saveStatus int
}

// WithSingletonSave sets the method and success status of singleton writes.
func WithSingletonSave(method string, status int) ResourceOption {
	return func(o *resourceOptions) {
		o.saveMethod = method
		o.saveStatus = status
	}
}

// NewResourceClient returns a client for the endpoint at path. name is used
// in error messages.
func NewResourceClient[E any](a *HTTPAdapter, path, name string, opts ...ResourceOption) *ResourceClient[E] {
	o := resourceOptions{saveMethod: http.MethodPut, saveStatus: http.StatusOK}
	for _, opt := range opts {
		opt(&o)
	}

	return &ResourceClient[E]{
		adapter:    a,
		path:       path,
		name:       name,
		saveMethod: o.saveMethod,
		saveStatus: o.saveStatus,
	}
}

// List fetches every document of the collection. filter is sent as the
// "filter" query parameter when not empty.
func (c *ResourceClient[E]) List(ctx context.Context, filter string) ([]E, error) {
	var docs []E

	req := c.adapter.request(ctx).SetResult(&docs)
	if filter != "" {
		req.SetQueryParam("filter", filter)
	}

	resp, err := req.Get(c.path)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c.name, err)
	}
	if err = mapHTTPError(resp, "failed to fetch "+c.name, http.StatusOK); err != nil {
		return nil, err
	}

	return docs, nil
}

// Create posts a new document and returns the server-assigned id and meta.
func (c *ResourceClient[E]) Create(ctx context.Context, body any) (models.StateResponse, error) {
	var state models.StateResponse

	resp, err := c.adapter.request(ctx).SetBody(body).SetResult(&state).Post(c.path)
	if err != nil {
		return models.StateResponse{}, fmt.Errorf("create %s: %w", c.name, err)
	}
	if err = mapHTTPError(resp, "failed to create "+c.name+" with server", http.StatusCreated); err != nil {
		return models.StateResponse{}, err
	}

	return state, nil
}

// Patch sends a partial update of document id.
func (c *ResourceClient[E]) Patch(ctx context.Context, id string, body any) (models.StateResponse, error) {
	var state models.StateResponse

	resp, err := c.adapter.request(ctx).
		SetPathParam("id", id).
		SetBody(body).
		SetResult(&state).
		Patch(c.path + "/{id}")
	if err != nil {
		return models.StateResponse{}, fmt.Errorf("update %s: %w", c.name, err)
	}
	if err = mapHTTPError(resp, "failed to update "+c.name, http.StatusOK); err != nil {
		return models.StateResponse{}, err
	}

	return state, nil
}

// Delete removes document id.
func (c *ResourceClient[E]) Delete(ctx context.Context, id string) error {
	resp, err := c.adapter.request(ctx).SetPathParam("id", id).Delete(c.path + "/{id}")
	if err != nil {
		return fmt.Errorf("delete %s: %w", c.name, err)
	}
	return mapHTTPError(resp, "failed to delete "+c.name, http.StatusNoContent)
}

// Fetch reads a singleton document. ok is false when the API answers 204 or
// 404.
func (c *ResourceClient[E]) Fetch(ctx context.Context) (doc E, ok bool, err error) {
	resp, err := c.adapter.request(ctx).SetResult(&doc).Get(c.path)
	if err != nil {
		return doc, false, fmt.Errorf("fetch %s: %w", c.name, err)
	}

	switch resp.StatusCode() {
	case http.StatusNoContent, http.StatusNotFound:
		var zero E
		return zero, false, nil
	}
	if err = mapHTTPError(resp, "failed to retrieve "+c.name+" from server", http.StatusOK); err != nil {
		return doc, false, err
	}

	return doc, true, nil
}

// Save creates or replaces a singleton document.
func (c *ResourceClient[E]) Save(ctx context.Context, body any) (models.StateResponse, error) {
	var state models.StateResponse

	resp, err := c.adapter.request(ctx).SetBody(body).SetResult(&state).Execute(c.saveMethod, c.path)
	if err != nil {
		return models.StateResponse{}, fmt.Errorf("save %s: %w", c.name, err)
	}
	if err = mapHTTPError(resp, "failed to submit "+c.name+" to server", c.saveStatus); err != nil {
		return models.StateResponse{}, err
	}

	return state, nil
}

// Remove deletes a singleton document.
func (c *ResourceClient[E]) Remove(ctx context.Context) error {
	resp, err := c.adapter.request(ctx).Delete(c.path)
	if err != nil {
		return fmt.Errorf("delete %s: %w", c.name, err)
	}
	return mapHTTPError(resp, "failed to delete "+c.name, http.StatusNoContent)
}
