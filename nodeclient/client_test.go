package nodeclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gabrielantonyxaviour/jedi-vault/interfaces"
)

func testNode(url string) interfaces.NodeDescriptor {
	return interfaces.NodeDescriptor{ID: "node-a", BaseURL: url}
}

func TestClient_Create(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := New(nil)
	record := interfaces.PartialRecord{interfaces.RecordIDKey: "id-1", "name": "plain"}
	err := client.Create(context.Background(), testNode(srv.URL), "token-a", "schema-1", record)
	require.NoError(t, err, "2xx response should be a successful write")

	assert.Equal(t, "/api/v1/data/create", gotPath)
	assert.Equal(t, "Bearer token-a", gotAuth, "Token must travel as a bearer credential")
	assert.Equal(t, "schema-1", gotBody["schema"], "Body must carry the schema identifier")

	data, ok := gotBody["data"].([]any)
	require.True(t, ok, "Body must carry a data array")
	require.Len(t, data, 1, "One write carries exactly one partial record")
}

func TestClient_CreateRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := New(nil)
	err := client.Create(context.Background(), testNode(srv.URL), "token", "schema-1", interfaces.PartialRecord{})
	assert.ErrorIs(t, err, interfaces.ErrNodeRejected, "Non-2xx must classify as a node rejection")
}

func TestClient_CreateUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := New(nil)
	err := client.Create(context.Background(), testNode(srv.URL), "token", "schema-1", interfaces.PartialRecord{})
	assert.ErrorIs(t, err, interfaces.ErrNodeUnreachable, "Transport failure must classify as unreachable")
}

func TestClient_Read(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "/api/v1/data/read", r.URL.Path)
		assert.Equal(t, map[string]any{"city": "Berlin"}, body["filter"])

		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{interfaces.RecordIDKey: "id-1", "city": "Berlin"},
			},
		})
	}))
	defer srv.Close()

	client := New(nil)
	outcome := client.Read(context.Background(), testNode(srv.URL), "token", "schema-1", interfaces.Filter{"city": "Berlin"})
	require.Equal(t, interfaces.NodeOK, outcome.Status)
	require.Len(t, outcome.Records, 1)

	id, err := outcome.Records[0].ID()
	require.NoError(t, err)
	assert.Equal(t, interfaces.RecordID("id-1"), id)
}

func TestClient_ReadZeroMatchesIsNotFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	}))
	defer srv.Close()

	client := New(nil)
	outcome := client.Read(context.Background(), testNode(srv.URL), "token", "schema-1", nil)
	assert.Equal(t, interfaces.NodeOK, outcome.Status,
		"A healthy node with zero matches must not look like an outage")
	assert.Empty(t, outcome.Records)
	assert.NoError(t, outcome.Err)
}

func TestClient_ReadOutcomeStatuses(t *testing.T) {
	rejecting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no", http.StatusForbidden)
	}))
	defer rejecting.Close()

	client := New(nil)
	outcome := client.Read(context.Background(), testNode(rejecting.URL), "token", "schema-1", nil)
	assert.Equal(t, interfaces.NodeRejected, outcome.Status)
	assert.ErrorIs(t, outcome.Err, interfaces.ErrNodeRejected)

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	down.Close()
	outcome = client.Read(context.Background(), testNode(down.URL), "token", "schema-1", nil)
	assert.Equal(t, interfaces.NodeUnreachable, outcome.Status)
	assert.ErrorIs(t, outcome.Err, interfaces.ErrNodeUnreachable)
}

func TestClient_Delete(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(map[string]any{"deleted": 1})
	}))
	defer srv.Close()

	client := New(nil)
	err := client.Delete(context.Background(), testNode(srv.URL), "token", "schema-1", interfaces.Filter{interfaces.RecordIDKey: "id-1"})
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/data/delete", gotPath)
}

func TestClient_ContextCancellation(t *testing.T) {
	blocked := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	defer srv.Close()
	defer close(blocked)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := New(nil)
	err := client.Create(ctx, testNode(srv.URL), "token", "schema-1", interfaces.PartialRecord{})
	assert.ErrorIs(t, err, interfaces.ErrNodeUnreachable,
		"A canceled call must surface as unreachable instead of blocking the join")
}
