package outbox

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSchemaRegistryReturnsLatestVersion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/subjects/track_events-TrackChanged/versions/latest", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 7})
	}))
	defer srv.Close()

	id, err := NewSchemaRegistryClient(srv.URL+"/").EnsureSchema(context.Background(), "track_events-TrackChanged", trackChangedSchema)
	require.NoError(t, err)
	require.Equal(t, 7, id)
}

func TestSchemaRegistryRegistersMissingSubject(t *testing.T) {
	var registered map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPost:
			require.Equal(t, "/subjects/track_events-TrackDeleted/versions", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&registered))
			_ = json.NewEncoder(w).Encode(map[string]any{"id": 12})
		}
	}))
	defer srv.Close()

	id, err := NewSchemaRegistryClient(srv.URL).EnsureSchema(context.Background(), "track_events-TrackDeleted", trackDeletedSchema)
	require.NoError(t, err)
	require.Equal(t, 12, id)
	require.Equal(t, "JSON", registered["schemaType"])
	require.JSONEq(t, trackDeletedSchema, registered["schema"].(string))
}

func TestSchemaRegistrySurfacesRegisterErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte("incompatible"))
	}))
	defer srv.Close()

	_, err := NewSchemaRegistryClient(srv.URL).EnsureSchema(context.Background(), "s", trackChangedSchema)
	require.ErrorContains(t, err, "incompatible")
}
