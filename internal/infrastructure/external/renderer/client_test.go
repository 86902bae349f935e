package renderer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/internhub/internship-back-office/internal/domain/shared"
	"github.com/internhub/internship-back-office/pkg/retry"
)

func testConfig(baseURL string) ClientConfig {
	cfg := DefaultClientConfig(baseURL, "certificate-v2")
	cfg.Timeout = 2 * time.Second
	cfg.RetryConfig = retry.Config{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
	return cfg
}

func TestClient_Render_Success(t *testing.T) {
	document := []byte("%PDF-1.7 rendered certificate")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/render", r.URL.Path)

		var req renderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "certificate-v2", req.TemplateID)
		assert.Equal(t, "Jane Intern", req.Fields["full_name"])

		json.NewEncoder(w).Encode(renderResponse{
			DocumentBase64: base64.StdEncoding.EncodeToString(document),
			ContentType:    "application/pdf",
		})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))

	got, err := client.Render(context.Background(), map[string]string{
		"full_name": "Jane Intern",
	})
	require.NoError(t, err)
	assert.Equal(t, document, got)
}

func TestClient_Render_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(renderResponse{
			DocumentBase64: base64.StdEncoding.EncodeToString([]byte("doc")),
		})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))

	got, err := client.Render(context.Background(), map[string]string{"full_name": "X"})
	require.NoError(t, err)
	assert.Equal(t, []byte("doc"), got)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_Render_ClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))

	_, err := client.Render(context.Background(), map[string]string{"full_name": "X"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrRender))
	assert.Equal(t, int32(1), calls.Load(), "4xx responses must not be retried")
}

func TestClient_Render_EmptyDocumentRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(renderResponse{DocumentBase64: ""})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))

	_, err := client.Render(context.Background(), map[string]string{"full_name": "X"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrRender))
}
