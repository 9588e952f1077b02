package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Config holds connection settings for the OpenAI-compatible endpoint.
type Config struct {
	Endpoint string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// Judge wraps an OpenAI-compatible endpoint for the two optional calls the
// watcher makes: semantic near-duplicate checks and hashtag generation. Both
// are best-effort; callers treat any error as "no answer".
type Judge struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

const sameStoryPrompt = "Determine if the new post is essentially the same as any of the previous posts. " +
	"Respond only with 'yes' or 'no'."

const hashtagPrompt = "Suggest 2-6 hashtags for the news post below. " +
	"Respond with a JSON array of strings, each matching ^#[A-Za-z0-9]{2,40}$, nothing else."

var hashtagRe = regexp.MustCompile(`^#[A-Za-z0-9]{2,40}$`)

// NewJudge creates a judge against the configured endpoint.
func NewJudge(cfg Config) *Judge {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientConfig.BaseURL = cfg.Endpoint
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 8 * time.Second
	}
	return &Judge{client: openai.NewClientWithConfig(clientConfig), model: cfg.Model, timeout: cfg.Timeout}
}

// SameStory asks the model whether the candidate conveys the same news as
// any of the recent posts.
func (j *Judge) SameStory(ctx context.Context, candidate string, recent []string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	var sb strings.Builder
	sb.WriteString("Previous posts:\n")
	for _, r := range recent {
		sb.WriteString("- ")
		sb.WriteString(r)
		sb.WriteString("\n")
	}
	sb.WriteString("\nNew post:\n")
	sb.WriteString(candidate)
	sb.WriteString("\nIs the new post about the same news as any of the previous posts?")

	resp, err := j.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       j.model,
		Temperature: 0,
		MaxTokens:   1,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: sameStoryPrompt},
			{Role: openai.ChatMessageRoleUser, Content: sb.String()},
		},
	})
	if err != nil {
		return false, fmt.Errorf("same-story check: %w", err)
	}
	if len(resp.Choices) == 0 {
		return false, fmt.Errorf("same-story check: empty response")
	}
	answer := strings.ToLower(strings.TrimSpace(resp.Choices[0].Message.Content))
	return strings.HasPrefix(answer, "y"), nil
}

// Hashtags asks the model for 2-6 hashtags for a post. The response is
// validated strictly; anything off-format yields no tags rather than an
// error downstream.
func (j *Judge) Hashtags(ctx context.Context, title, topic, when, link string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	prompt := fmt.Sprintf("title: %s\ntopic: %s\nwhen: %s\nurl: %s", title, topic, when, link)
	resp, err := j.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       j.model,
		Temperature: 0.2,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: hashtagPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("hashtag generation: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("hashtag generation: empty response")
	}
	return parseHashtags(resp.Choices[0].Message.Content), nil
}

// parseHashtags extracts a valid tag list from a model response, tolerating
// a fenced code block around the JSON.
func parseHashtags(content string) []string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var tags []string
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &tags); err != nil {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	for _, t := range tags {
		if !hashtagRe.MatchString(t) {
			return nil // one bad tag invalidates the whole answer
		}
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	if len(out) < 2 || len(out) > 6 {
		return nil
	}
	return out
}
