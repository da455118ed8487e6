package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSendsServiceKeyAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "/v1/players/p%201/upgrade", r.URL.EscapedPath())

		var in map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "Queens", in["location"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"location":"Queens","level":3,"message":"ok"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "secret")
	out, err := c.Upgrade(context.Background(), "p 1", "Queens")
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, 3, out.Level)
}

func TestClientReturnsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ch_1", r.Header.Get("Idempotency-Key"))
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"duplicate idempotency key"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")
	_, err := c.CreditPremium(context.Background(), "p1", 10, "ch_1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "duplicate idempotency key", apiErr.Message)
}

func TestProfileRoundTrip(t *testing.T) {
	profileDirOverride = t.TempDir()
	t.Cleanup(func() { profileDirOverride = "" })

	_, err := LoadProfile()
	require.Error(t, err)

	require.NoError(t, SaveProfile(Profile{PlayerID: "p1", DisplayName: "Mario"}))
	got, err := LoadProfile()
	require.NoError(t, err)
	assert.Equal(t, "p1", got.PlayerID)

	require.NoError(t, ClearProfile())
	_, err = LoadProfile()
	require.Error(t, err)
}
