package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kindredhq/kindred-engine/pkg/retry"
)

func fastRetry() *retry.Config {
	cfg := retry.DefaultConfig()
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = 5 * time.Millisecond
	return cfg
}

func TestDoJSON_DecodesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "Bearer sekrit", r.Header.Get("Authorization"))
		w.Write([]byte(`{"id":"42","email":"a@b.com"}`))
	}))
	defer server.Close()

	client := NewRESTClient(server.URL, 0, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer sekrit")
	})

	var out struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	err := client.DoJSON(context.Background(), http.MethodGet, "/contacts/42", nil, &out)
	require.NoError(t, err)
	assert.Equal(t, "42", out.ID)
	assert.Equal(t, "a@b.com", out.Email)
}

func TestDoJSON_SendsRequestBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var in map[string]string
		require.NoError(t, decodeBody(r, &in))
		assert.Equal(t, "jane@example.com", in["email"])
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := NewRESTClient(server.URL, 0, nil)
	err := client.DoJSON(context.Background(), http.MethodPost, "/contacts",
		map[string]string{"email": "jane@example.com"}, nil)
	require.NoError(t, err)
}

func TestDoJSON_NonSuccessBecomesHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such contact", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewRESTClient(server.URL, 0, nil)
	err := client.DoJSON(context.Background(), http.MethodGet, "/contacts/missing", nil, nil)
	require.Error(t, err)
	assert.True(t, IsHTTPStatus(err, http.StatusNotFound))

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.False(t, httpErr.IsRetryable())
}

func TestDoJSON_RetriesServerErrors(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewRESTClient(server.URL, 0, nil)
	client.Retry = fastRetry()

	err := client.DoJSON(context.Background(), http.MethodGet, "/health", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDoJSON_DoesNotRetryClientErrors(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewRESTClient(server.URL, 0, nil)
	client.Retry = fastRetry()

	err := client.DoJSON(context.Background(), http.MethodGet, "/contacts", nil, nil)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoJSON_EmptyBodyWithOutIsTolerated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewRESTClient(server.URL, 0, nil)
	var out map[string]any
	err := client.DoJSON(context.Background(), http.MethodDelete, "/contacts/1", nil, &out)
	require.NoError(t, err)
}

func decodeBody(r *http.Request, out any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(out)
}
