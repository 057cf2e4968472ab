// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package similarity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/concept-engine/pkg/types"
)

func TestOpenAIEmbedder_Embed(t *testing.T) {
	var gotBody struct {
		Input []string `json:"input"`
		Model string   `json:"model"`
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		// Items deliberately out of order.
		w.Write([]byte(`{"object":"list","model":"text-embedding-3-small","data":[
			{"object":"embedding","index":1,"embedding":[0,1]},
			{"object":"embedding","index":0,"embedding":[1,0]}
		],"usage":{"prompt_tokens":2,"total_tokens":2}}`))
	}))
	defer ts.Close()

	e, err := NewOpenAIEmbedder(types.AIConfig{APIKey: "sk-test", BaseURL: ts.URL})
	require.NoError(t, err)

	vecs, err := e.Embed(context.Background(), []string{"entropy", "information gain"})
	require.NoError(t, err)
	assert.Equal(t, []string{"entropy", "information gain"}, gotBody.Input)
	assert.Equal(t, "text-embedding-3-small", gotBody.Model)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)
}

func TestOpenAIEmbedder_AuthErrorIsPermanent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Incorrect API key","type":"invalid_request_error","code":"invalid_api_key"}}`))
	}))
	defer ts.Close()

	e, err := NewOpenAIEmbedder(types.AIConfig{APIKey: "bad", BaseURL: ts.URL})
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
}

func TestOpenAIEmbedder_ServerErrorIsTransient(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	}))
	defer ts.Close()

	e, err := NewOpenAIEmbedder(types.AIConfig{APIKey: "sk", BaseURL: ts.URL})
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.False(t, IsPermanent(err))
}

func TestOpenAIEmbedder_RequiresKey(t *testing.T) {
	_, err := NewOpenAIEmbedder(types.AIConfig{})
	assert.Error(t, err)
}

func TestAdapter_WithOpenAIFallsBackOnAuth(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"nope","type":"invalid_request_error"}}`))
	}))
	defer ts.Close()

	e, err := NewOpenAIEmbedder(types.AIConfig{APIKey: "bad", BaseURL: ts.URL})
	require.NoError(t, err)
	a, _ := newTestAdapter(e)

	got := a.SimilarityBatch(context.Background(), "seed", []string{"a", "b", "c", "d"})
	for _, v := range got {
		assert.InDelta(t, 0.75, v, 1e-6)
	}
	assert.Equal(t, 1, calls)
}
