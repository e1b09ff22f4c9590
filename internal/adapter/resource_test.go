package adapter

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-vault-sync/models"
)

func TestResourceClient_Collection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/tags":
			assert.Equal(t, "archived", r.URL.Query().Get("filter"))
			writeJSON(t, w, http.StatusOK, []models.EncryptedTag{{ID: "t1", Name: "n", Meta: models.Meta{Checksum: "c1"}}})
		case r.Method == http.MethodPost && r.URL.Path == "/tags":
			writeJSON(t, w, http.StatusCreated, models.StateResponse{ID: "t2", Meta: models.Meta{Checksum: "c2"}})
		case r.Method == http.MethodPatch && r.URL.Path == "/tags/t2":
			body, _ := io.ReadAll(r.Body)
			assert.JSONEq(t, `{"name":"x"}`, string(body))
			writeJSON(t, w, http.StatusOK, models.StateResponse{Meta: models.Meta{Checksum: "c3"}})
		case r.Method == http.MethodDelete && r.URL.Path == "/tags/t2":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	client := NewResourceClient[models.EncryptedTag](newTestAdapter(t, srv.URL), "/tags", "tag")

	tags, err := client.List(ctx, "archived")
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "c1", tags[0].Meta.Checksum)

	state, err := client.Create(ctx, map[string]string{"name": "n"})
	require.NoError(t, err)
	assert.Equal(t, "t2", state.ID)

	state, err = client.Patch(ctx, "t2", map[string]string{"name": "x"})
	require.NoError(t, err)
	assert.Equal(t, "c3", state.Meta.Checksum)

	require.NoError(t, client.Delete(ctx, "t2"))
	assert.ErrorIs(t, client.Delete(ctx, "missing"), ErrNotFound)
}

func TestResourceClient_Singleton(t *testing.T) {
	exists := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			if !exists {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			writeJSON(t, w, http.StatusOK, models.EncryptedName{FirstName: "A", Meta: models.Meta{Checksum: "c"}})
		case http.MethodPut:
			var body json.RawMessage
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			exists = true
			writeJSON(t, w, http.StatusOK, models.StateResponse{Meta: models.Meta{Checksum: "c"}})
		case http.MethodDelete:
			exists = false
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	client := NewResourceClient[models.EncryptedName](newTestAdapter(t, srv.URL), "/name", "name")

	_, ok, err := client.Fetch(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = client.Save(ctx, models.EncryptedName{FirstName: "A"})
	require.NoError(t, err)

	doc, ok, err := client.Fetch(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "A", doc.FirstName)

	require.NoError(t, client.Remove(ctx))
}

func TestResourceClient_SingletonPostSave(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPost:
			writeJSON(t, w, http.StatusCreated, models.StateResponse{Meta: models.Meta{Checksum: "c"}})
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	client := NewResourceClient[models.EncryptedCustomerID](newTestAdapter(t, srv.URL), "/stripe/customer-id", "customer id",
		WithSingletonSave(http.MethodPost, http.StatusCreated))

	_, ok, err := client.Fetch(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	state, err := client.Save(ctx, models.EncryptedCustomerID{CustomerID: "x"})
	require.NoError(t, err)
	assert.Equal(t, "c", state.Meta.Checksum)
}
