package geo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCityDirectory_Cities(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "romania", body["country"])

			w.Write([]byte(`{"error":false,"msg":"cities retrieved","data":["Bucharest","Cluj-Napoca"]}`))
		}))
		defer server.Close()

		cities, err := NewCityDirectory(server.URL, time.Second).Cities(context.Background(), "romania")
		require.NoError(t, err)
		assert.Equal(t, []string{"Bucharest", "Cluj-Napoca"}, cities)
	})

	t.Run("Directory Error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"error":true,"msg":"country not found","data":[]}`))
		}))
		defer server.Close()

		_, err := NewCityDirectory(server.URL, time.Second).Cities(context.Background(), "atlantis")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "country not found")
	})

	t.Run("Bad Status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		_, err := NewCityDirectory(server.URL, time.Second).Cities(context.Background(), "romania")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "502")
	})

	t.Run("Timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer server.Close()

		_, err := NewCityDirectory(server.URL, 20*time.Millisecond).Cities(context.Background(), "romania")
		assert.Error(t, err)
	})
}
