package assistant

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

func TestEntityClient_Entities(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ents", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "How far is Paris from Lyon?", body["text"])

		w.Write([]byte(`{"ents":[{"text":"Paris","label":"GPE"},{"text":"Monday","label":"DATE"},{"text":"Lyon","label":"GPE"}]}`))
	}))
	defer server.Close()

	ents, err := NewEntityClient(server.URL, time.Second).Entities(context.Background(), "How far is Paris from Lyon?")
	require.NoError(t, err)
	require.Len(t, ents, 3)
	assert.Equal(t, []string{"Paris", "Lyon"}, Places(ents))
}

func TestPlaces_KeepsLocationsInOrder(t *testing.T) {
	ents := []Entity{
		{Text: "the Alps", Label: LabelLOC},
		{Text: "Tuesday", Label: "DATE"},
		{Text: "Sibiu", Label: LabelGPE},
		{Text: "Ana", Label: "PERSON"},
	}
	assert.Equal(t, []string{"the Alps", "Sibiu"}, Places(ents))
	assert.Empty(t, Places(nil))
}
