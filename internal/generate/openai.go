// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/pdiddy/concept-engine/internal/fusion"
	"github.com/pdiddy/concept-engine/pkg/types"
)

const (
	defaultChatModel = "google/gemini-2.0-flash-001"
	defaultCount     = 10
	defaultTimeout   = 15 * time.Second
	temperature      = 0.3
	maxTokens        = 500
)

// OpenAIGenerator proposes candidates through an OpenAI-compatible chat
// completion endpoint (OpenRouter by default).
type OpenAIGenerator struct {
	client  *openai.Client
	model   string
	count   int
	timeout time.Duration
}

// NewOpenAIGenerator builds a generator from cfg.
func NewOpenAIGenerator(cfg types.GeneratorConfig) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai generator: api key is required")
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	g := &OpenAIGenerator{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   cfg.Model,
		count:   cfg.Count,
		timeout: cfg.Timeout,
	}
	if g.model == "" {
		g.model = defaultChatModel
	}
	if g.count <= 0 {
		g.count = defaultCount
	}
	if g.timeout <= 0 {
		g.timeout = defaultTimeout
	}
	return g, nil
}

// Generate implements Generator. A zero req.Count uses the configured count.
func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) ([]types.Candidate, error) {
	if strings.TrimSpace(req.Seed) == "" {
		return nil, errors.New("seed concept is required")
	}
	if req.Count <= 0 {
		req.Count = g.count
	}

	prompt, err := renderDiscoveryPrompt(req)
	if err != nil {
		return nil, fmt.Errorf("rendering prompt: %w", err)
	}
	text, err := g.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return ParseCandidates(text, append([]string{req.Seed}, req.Exclude...), req.Count), nil
}

// Reason asks the model to justify the relation from -> to. The returned
// confidence is clamped to [0,1]; it is nil when the reply carries none.
func (g *OpenAIGenerator) Reason(ctx context.Context, from, to, relation string) (fusion.ReasoningData, error) {
	prompt, err := renderReasoningPrompt(from, to, relation)
	if err != nil {
		return fusion.ReasoningData{}, fmt.Errorf("rendering prompt: %w", err)
	}
	text, err := g.complete(ctx, prompt)
	if err != nil {
		return fusion.ReasoningData{}, err
	}
	return parseReasoning(text)
}

func (g *OpenAIGenerator) complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

type reasoningReply struct {
	Reasoning  string   `json:"logical_reasoning"`
	Confidence *float64 `json:"credibility_score"`
}

func parseReasoning(text string) (fusion.ReasoningData, error) {
	text = stripCodeFence(text)
	start, end := strings.Index(text, "{"), strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return fusion.ReasoningData{}, fmt.Errorf("no JSON object in reasoning reply")
	}

	var reply reasoningReply
	if err := json.Unmarshal([]byte(text[start:end+1]), &reply); err != nil {
		return fusion.ReasoningData{}, fmt.Errorf("parsing reasoning JSON: %w", err)
	}
	if strings.TrimSpace(reply.Reasoning) == "" {
		return fusion.ReasoningData{}, errors.New("reasoning reply is empty")
	}

	data := fusion.ReasoningData{Reasoning: strings.TrimSpace(reply.Reasoning)}
	if reply.Confidence != nil {
		c := min(1, max(0, *reply.Confidence))
		data.Confidence = &c
	}
	return data, nil
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
