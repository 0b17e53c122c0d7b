package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Client wraps the Anthropic API for failure log summarization.
type Client struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewClient creates an LLM client with the given API key and model.
func NewClient(apiKey, model string) *Client {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return &Client{
		api:   &client,
		model: anthropic.Model(model),
	}
}

// buildPrompt constructs the system and user prompts for failure summarization.
func buildPrompt(project, title, stdout, stderr string) (system string, user string) {
	system = `You summarize crash logs from supervised scripts for a GitHub issue. Given the captured stdout and stderr of a failed process, write a 2-4 sentence plain-text summary of the most likely cause of the failure.

Rules:
- Lead with the most specific error you can find (exception, missing file, refused connection, bad config)
- Mention the relevant log line verbatim when it is short
- Do not speculate beyond what the logs show
- Return plain text only, no markdown, no headings`

	var sb strings.Builder
	fmt.Fprintf(&sb, "Project: %s\nFailure: %s\n", project, title)
	if stdout != "" {
		sb.WriteString("\n--- STDOUT ---\n")
		sb.WriteString(stdout)
	}
	if stderr != "" {
		sb.WriteString("\n--- STDERR ---\n")
		sb.WriteString(stderr)
	}
	user = sb.String()
	return
}

// SummarizeFailure sends captured output to the LLM and returns a short
// plain-text summary suitable for the top of an issue body.
func (c *Client) SummarizeFailure(ctx context.Context, project, title, stdout, stderr string) (string, error) {
	systemPrompt, userPrompt := buildPrompt(project, title, stdout, stderr)

	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call: %w", err)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return "", fmt.Errorf("no text content in API response")
	}

	return strings.TrimSpace(text), nil
}
