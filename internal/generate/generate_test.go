// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

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

func names(cs []types.Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Name
	}
	return out
}

func TestParseCandidates(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		exclude []string
		count   int
		want    []string
	}{
		{
			name:  "plain lines",
			text:  "information gain|computer science|application|both measure uncertainty\nenthalpy|physics|related",
			count: 10,
			want:  []string{"information gain", "enthalpy"},
		},
		{
			name:  "skips short and blank lines",
			text:  "\n\nonly|two\nHere are the concepts:\nfree energy|physics|foundation\n",
			count: 10,
			want:  []string{"free energy"},
		},
		{
			name:  "strips bullets and fences",
			text:  "```\n- free energy|physics|foundation\n* mutual information | information theory | extension\n```",
			count: 10,
			want:  []string{"free energy", "mutual information"},
		},
		{
			name:    "drops excluded case-insensitively",
			text:    "Entropy|physics|self\nfree energy|physics|foundation",
			exclude: []string{"entropy"},
			count:   10,
			want:    []string{"free energy"},
		},
		{
			name:  "drops duplicates by node id",
			text:  "Free Energy|Physics|foundation\nfree energy|physics|analogy\nfree energy|chemistry|analogy",
			count: 10,
			want:  []string{"Free Energy", "free energy"},
		},
		{
			name:  "truncates to count",
			text:  "a|x|r\nb|x|r\nc|x|r",
			count: 2,
			want:  []string{"a", "b"},
		},
		{
			name:  "malformed output yields nothing",
			text:  "I cannot help with that.",
			count: 5,
			want:  []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, names(ParseCandidates(tt.text, tt.exclude, tt.count)))
		})
	}
}

func TestParseCandidates_Fields(t *testing.T) {
	got := ParseCandidates("mutual information | information theory | extension | a|b", nil, 0)
	require.Len(t, got, 1)
	assert.Equal(t, types.Candidate{
		Name:       "mutual information",
		Discipline: "information theory",
		Relation:   "extension",
		Principle:  "a|b",
	}, got[0])
}

func TestStaticGenerator(t *testing.T) {
	g := StaticGenerator{Candidates: []types.Candidate{
		{Name: "Entropy", Discipline: "physics"},
		{Name: "free energy", Discipline: "physics"},
		{Name: "enthalpy", Discipline: "physics"},
		{Name: "", Discipline: "physics"},
		{Name: "free energy", Discipline: "physics"},
		{Name: "information gain", Discipline: "computer science"},
	}}

	got, err := g.Generate(context.Background(), Request{Seed: "entropy", Exclude: []string{"Enthalpy"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"free energy", "information gain"}, names(got))

	got, err = g.Generate(context.Background(), Request{Seed: "entropy", Count: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"free energy"}, names(got))
}

// chatServer answers every chat completion with reply and records the last
// request body.
func chatServer(t *testing.T, status int, reply string, got *openaiChatRequest) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		if got != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": reply},
				"finish_reason": "stop",
			}},
		})
	}))
	t.Cleanup(ts.Close)
	return ts
}

type openaiChatRequest struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newTestGenerator(t *testing.T, baseURL string) *OpenAIGenerator {
	t.Helper()
	cfg := types.DefaultConfig().Generator
	cfg.APIKey = "sk-test"
	cfg.BaseURL = baseURL
	g, err := NewOpenAIGenerator(cfg)
	require.NoError(t, err)
	return g
}

func TestOpenAIGenerator_Generate(t *testing.T) {
	var body openaiChatRequest
	reply := "entropy|physics|self\ninformation gain|computer science|application|shared uncertainty measure\nfree energy|physics|foundation"
	ts := chatServer(t, http.StatusOK, reply, &body)
	g := newTestGenerator(t, ts.URL)

	got, err := g.Generate(context.Background(), Request{
		Seed:        "Entropy",
		Disciplines: []string{"physics", "computer science"},
		Exclude:     []string{"enthalpy"},
		Count:       5,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"information gain", "free energy"}, names(got))
	assert.Equal(t, "shared uncertainty measure", got[0].Principle)

	assert.Equal(t, "google/gemini-2.0-flash-001", body.Model)
	assert.InDelta(t, 0.3, body.Temperature, 1e-6)
	assert.Equal(t, 500, body.MaxTokens)
	require.Len(t, body.Messages, 2)
	assert.Equal(t, "system", body.Messages[0].Role)
	prompt := body.Messages[1].Content
	assert.Contains(t, prompt, `Generate 5 concepts closely related to "Entropy"`)
	assert.Contains(t, prompt, "physics, computer science")
	assert.Contains(t, prompt, "Do not propose any of: enthalpy.")
	assert.Contains(t, prompt, "name|discipline|relation|cross_principle")
}

func TestOpenAIGenerator_GenerateDefaultsCount(t *testing.T) {
	var body openaiChatRequest
	ts := chatServer(t, http.StatusOK, "", &body)
	g := newTestGenerator(t, ts.URL)

	got, err := g.Generate(context.Background(), Request{Seed: "Entropy"})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Contains(t, body.Messages[1].Content, "Generate 10 concepts")
	assert.Contains(t, body.Messages[1].Content, "several different disciplines")
	assert.NotContains(t, body.Messages[1].Content, "Do not propose")
}

func TestOpenAIGenerator_Errors(t *testing.T) {
	ts := chatServer(t, http.StatusServiceUnavailable, "", nil)
	g := newTestGenerator(t, ts.URL)

	_, err := g.Generate(context.Background(), Request{Seed: "Entropy"})
	assert.Error(t, err)

	_, err = g.Generate(context.Background(), Request{Seed: "  "})
	assert.Error(t, err)

	_, err = NewOpenAIGenerator(types.GeneratorConfig{})
	assert.Error(t, err)
}

func TestOpenAIGenerator_Reason(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		wantErr  bool
		wantText string
		wantConf *float64
	}{
		{
			name:     "plain json",
			reply:    `{"logical_reasoning": "Both quantify uncertainty.", "credibility_score": 0.8}`,
			wantText: "Both quantify uncertainty.",
			wantConf: ptr(0.8),
		},
		{
			name:     "fenced json",
			reply:    "```json\n{\"logical_reasoning\": \"Shared math.\", \"credibility_score\": 1.4}\n```",
			wantText: "Shared math.",
			wantConf: ptr(1.0),
		},
		{
			name:     "missing score",
			reply:    `Sure. {"logical_reasoning": "Loosely linked."}`,
			wantText: "Loosely linked.",
		},
		{name: "not json", reply: "I am not sure.", wantErr: true},
		{name: "empty reasoning", reply: `{"logical_reasoning": "", "credibility_score": 0.5}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body openaiChatRequest
			ts := chatServer(t, http.StatusOK, tt.reply, &body)
			g := newTestGenerator(t, ts.URL)

			got, err := g.Reason(context.Background(), "entropy", "information gain", "foundation")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, got.Reasoning)
			if tt.wantConf == nil {
				assert.Nil(t, got.Confidence)
			} else {
				require.NotNil(t, got.Confidence)
				assert.InDelta(t, *tt.wantConf, *got.Confidence, 1e-9)
			}
			assert.Contains(t, body.Messages[1].Content, "Concept A: entropy")
			assert.Contains(t, body.Messages[1].Content, "Relation: foundation")
		})
	}
}

func ptr(f float64) *float64 { return &f }
