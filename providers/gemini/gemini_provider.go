package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/nanunh/genstack/providers/contracts"
	"github.com/nanunh/genstack/providers/models"
	token_contracts "github.com/nanunh/genstack/token_management/contracts"
	genai "google.golang.org/genai"
)

// GeminiConfig implements the chat provider on the official genai client.
type GeminiConfig struct {
	ApiKey          string
	Model           string
	Temperature     *float32
	TokenManagement token_contracts.ITokenManagement

	client *genai.Client
}

const defaultModel = "gemini-2.0-flash"

// NewGeminiChatProvider creates the genai client. An empty ApiKey falls back
// to the GOOGLE_API_KEY / GEMINI_API_KEY environment.
func NewGeminiChatProvider(ctx context.Context, config *GeminiConfig) (contracts.IChatAIProvider, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: config.ApiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	model := config.Model
	if model == "" {
		model = defaultModel
	}
	return &GeminiConfig{
		ApiKey:          config.ApiKey,
		Model:           model,
		Temperature:     config.Temperature,
		TokenManagement: config.TokenManagement,
		client:          cli,
	}, nil
}

func (geminiProvider *GeminiConfig) ChatCompletionRequest(ctx context.Context, userInput string, prompt string) <-chan models.StreamResponse {
	responseChan := make(chan models.StreamResponse)

	send := func(r models.StreamResponse) bool {
		select {
		case responseChan <- r:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(responseChan)

		cfg := &genai.GenerateContentConfig{
			Temperature:       geminiProvider.Temperature,
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: prompt}}},
		}
		contents := []*genai.Content{{Role: genai.RoleUser, Parts: []*genai.Part{{Text: userInput}}}}

		var promptTokens, outputTokens int
		for resp, err := range geminiProvider.client.Models.GenerateContentStream(ctx, geminiProvider.Model, contents, cfg) {
			if err != nil {
				if ctx.Err() != nil {
					err = fmt.Errorf("request canceled: %w", ctx.Err())
				}
				send(models.StreamResponse{Err: err})
				return
			}
			if resp == nil {
				continue
			}
			if resp.UsageMetadata != nil {
				promptTokens = int(resp.UsageMetadata.PromptTokenCount)
				outputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
			}
			if text := resp.Text(); text != "" {
				if !send(models.StreamResponse{Content: text}) {
					return
				}
			}
		}
		if ctx.Err() != nil {
			send(models.StreamResponse{Err: errors.New("request canceled")})
			return
		}
		if geminiProvider.TokenManagement != nil && promptTokens > 0 {
			geminiProvider.TokenManagement.UsedTokens(promptTokens, outputTokens)
		}
		send(models.StreamResponse{Done: true})
	}()

	return responseChan
}
