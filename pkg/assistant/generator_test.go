package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_Generate(t *testing.T) {
	t.Run("Sends Sampling Parameters", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/generate", r.URL.Path)

			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "User: hi\nAssistant:", body["inputs"])

			params := body["parameters"].(map[string]any)
			assert.Equal(t, 0.2, params["temperature"])
			assert.Equal(t, 0.9, params["top_p"])
			assert.Equal(t, 1.15, params["repetition_penalty"])
			assert.Equal(t, float64(20), params["max_new_tokens"])
			assert.Equal(t, true, params["do_sample"])

			w.Write([]byte(`{"generated_text":" Hello there! How can"}`))
		}))
		defer server.Close()

		out, err := NewGenerator(server.URL+"/", DefaultParameters(), time.Second).
			Generate(context.Background(), "User: hi\nAssistant:")
		require.NoError(t, err)
		assert.Equal(t, " Hello there! How can", out)
	})

	t.Run("Server Error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model overloaded", http.StatusServiceUnavailable)
		}))
		defer server.Close()

		_, err := NewGenerator(server.URL, DefaultParameters(), time.Second).Generate(context.Background(), "x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "model overloaded")
	})
}

func TestGenerator_Warm(t *testing.T) {
	var ready atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		if !ready.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	g := NewGenerator(server.URL, DefaultParameters(), time.Second)
	assert.Error(t, g.Warm(context.Background()))
	ready.Store(true)
	assert.NoError(t, g.Warm(context.Background()))
}
