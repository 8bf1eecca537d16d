package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const defaultModel = "gpt-4o-mini"

// OpenAIConfig configures any OpenAI-compatible chat completion endpoint.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OpenAI asks a chat model for a category or for insights.
type OpenAI struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &OpenAI{
		client:  openai.NewClientWithConfig(oc),
		model:   model,
		timeout: timeout,
	}
}

func (o *OpenAI) Suggest(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Description) == "" && strings.TrimSpace(req.Vendor) == "" {
		return "", ErrNoSuggestion
	}

	text, err := o.complete(ctx, 0, SuggestionPrompt(req))
	if err != nil {
		return "", err
	}
	match, ok := Match(text, req.Categories)
	if !ok {
		return "", fmt.Errorf("%w: model answered %q", ErrNoSuggestion, text)
	}
	return match, nil
}

func (o *OpenAI) Insights(ctx context.Context, lines []string) ([]Insight, error) {
	if len(lines) == 0 {
		return nil, nil
	}
	text, err := o.complete(ctx, 0.4, InsightPrompt(lines))
	if err != nil {
		return nil, err
	}
	return parseInsights(text)
}

func (o *OpenAI) complete(ctx context.Context, temperature float32, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoSuggestion
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// SuggestionPrompt builds the few-shot categorisation prompt.
func SuggestionPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("You are an intelligent expense categorization assistant.\n\n")
	if len(req.Examples) > 0 {
		b.WriteString("Here are some examples of how the user has categorized transactions in the past (use these as a style guide):\n")
		for _, e := range req.Examples {
			fmt.Fprintf(&b, "- %q was categorized as %s\n", e.Text, e.Category)
		}
		b.WriteString("\n")
	}
	b.WriteString("Based on the user's history (if provided) and general knowledge, categorize the following expense.\n")
	fmt.Fprintf(&b, "Description: %q\nVendor: %q\n\n", req.Description, req.Vendor)
	fmt.Fprintf(&b, "Return ONLY one of these exact values: %s.\nIf unsure, return Other.", strings.Join(req.Categories, ", "))
	return b.String()
}

// InsightPrompt asks for three JSON-formatted observations.
func InsightPrompt(lines []string) string {
	return "Analyze the following expense transactions for a couple.\n" +
		"Provide 3 concise, actionable insights or observations formatted as JSON.\n" +
		"Focus on trends, unusual spending, or savings opportunities.\n\n" +
		"Transactions Sample:\n" + strings.Join(lines, "\n") + "\n\n" +
		"Expected JSON Format:\n" +
		`[{"title": "Insight Title", "content": "One sentence description.", "type": "saving" | "trend" | "alert" | "positive"}]`
}

func parseInsights(text string) ([]Insight, error) {
	// Models like to wrap JSON in a fenced block
	text = strings.TrimSpace(text)
	if i := strings.Index(text, "["); i >= 0 {
		if j := strings.LastIndex(text, "]"); j > i {
			text = text[i : j+1]
		}
	}
	var out []Insight
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("decode insights: %w", err)
	}
	return out, nil
}
