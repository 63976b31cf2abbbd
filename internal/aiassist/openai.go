package aiassist

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const (
	ModelText   = openai.GPT4oMini
	ModelVision = openai.GPT4o
	temperature = 0.2
)

type CompletionRequest struct {
	Model  string
	System string
	// Parts are sent as separate text parts of one user message.
	Parts  []string
	Images []string
}

type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

type Completion struct {
	Text  string
	Model string
	Usage Usage
}

type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}

// OpenAIClient implements Completer with the chat completions API.
type OpenAIClient struct {
	client *openai.Client
}

// NewOpenAIClient returns nil when apiKey is empty so callers can detect a
// missing configuration.
func NewOpenAIClient(apiKey, baseURL string) *OpenAIClient {
	if apiKey == "" {
		return nil
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{client: openai.NewClientWithConfig(cfg)}
}

func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (Completion, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: req.System},
	}
	if len(req.Images) == 0 {
		for _, part := range req.Parts {
			messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: part})
		}
	} else {
		parts := make([]openai.ChatMessagePart, 0, len(req.Parts)+len(req.Images))
		for _, part := range req.Parts {
			parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: part})
		}
		for _, img := range req.Images {
			parts = append(parts, openai.ChatMessagePart{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: img},
			})
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, MultiContent: parts})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: temperature,
	})
	if err != nil {
		return Completion{}, fmt.Errorf("chat completion: %w", err)
	}
	out := Completion{
		Model: resp.Model,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	if out.Model == "" {
		out.Model = req.Model
	}
	if len(resp.Choices) > 0 {
		out.Text = resp.Choices[0].Message.Content
	}
	return out, nil
}
