package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	analyzer_models "github.com/nanunh/genstack/code_analyzer/models"
	"github.com/nanunh/genstack/providers/contracts"
	"github.com/nanunh/genstack/providers/gemini"
	"github.com/nanunh/genstack/providers/ollama"
	token_contracts "github.com/nanunh/genstack/token_management/contracts"
)

// AIProviderConfig selects and configures the generation backend.
type AIProviderConfig struct {
	Provider    string   `mapstructure:"provider"`
	BaseURL     string   `mapstructure:"base_url"`
	Model       string   `mapstructure:"model"`
	Temperature *float32 `mapstructure:"temperature"`
	ApiKey      string   `mapstructure:"api_key"`
}

// ChatProviderFactory creates a chat provider by name.
func ChatProviderFactory(ctx context.Context, config *AIProviderConfig, tokenManagement token_contracts.ITokenManagement) (contracts.IChatAIProvider, error) {
	if config == nil {
		return nil, errors.New("AI provider config required")
	}
	switch strings.ToLower(config.Provider) {
	case "ollama":
		return ollama.NewOllamaChatProvider(&ollama.OllamaConfig{
			BaseURL:         config.BaseURL,
			Model:           config.Model,
			Temperature:     config.Temperature,
			TokenManagement: tokenManagement,
		}), nil
	case "gemini", "google":
		return gemini.NewGeminiChatProvider(ctx, &gemini.GeminiConfig{
			ApiKey:          config.ApiKey,
			Model:           config.Model,
			Temperature:     config.Temperature,
			TokenManagement: tokenManagement,
		})
	default:
		return nil, fmt.Errorf("unsupported provider: %s", config.Provider)
	}
}

// ChatOracle adapts a streaming chat provider to the generation oracle.
type ChatOracle struct {
	chat    contracts.IChatAIProvider
	onChunk func(string)
}

var _ contracts.IGenerationOracle = (*ChatOracle)(nil)

func NewChatOracle(chat contracts.IChatAIProvider) *ChatOracle {
	return &ChatOracle{chat: chat}
}

// OnChunk registers a callback receiving streamed content as it arrives.
func (o *ChatOracle) OnChunk(fn func(string)) {
	o.onChunk = fn
}

// Generate sends the scoped prompt and collects the whole streamed answer.
func (o *ChatOracle) Generate(ctx context.Context, originalContent string, scoped analyzer_models.ScopedContext, instruction string) (string, error) {
	system, user := BuildPrompts(originalContent, scoped, instruction)

	var b strings.Builder
	for resp := range o.chat.ChatCompletionRequest(ctx, user, system) {
		if resp.Err != nil {
			return "", resp.Err
		}
		if resp.Done {
			break
		}
		b.WriteString(resp.Content)
		if o.onChunk != nil {
			o.onChunk(resp.Content)
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return b.String(), nil
}

// BuildPrompts returns the system prompt and user message for one modification.
func BuildPrompts(originalContent string, scoped analyzer_models.ScopedContext, instruction string) (string, string) {
	var system strings.Builder
	if scoped.Mode == analyzer_models.ScopeSymbol && scoped.Target != nil {
		kind := scoped.Target.Kind
		fmt.Fprintf(&system, "You are modifying a specific %s in %s code.\n\n", kind, scoped.Language)
		system.WriteString("STRUCTURAL CONTEXT:\n")
		system.WriteString(scoped.Describe())
		fmt.Fprintf(&system, "\nRULES:\n")
		fmt.Fprintf(&system, "1. Return ONLY the modified %s in a single fenced code block\n", kind)
		system.WriteString("2. Keep the same indentation level as the original\n")
		system.WriteString("3. Keep the same technology stack and import patterns\n")
		system.WriteString("4. Change only what the request asks for and keep the existing signature unless told otherwise\n")
		fmt.Fprintf(&system, "5. If the request removes the %s, return an empty code block\n", kind)
		user := fmt.Sprintf("Modify the %s '%s' according to this request: %s", kind, scoped.Target.Name, instruction)
		return system.String(), user
	}

	fmt.Fprintf(&system, "You are modifying a %s file.\n\n", scoped.Language)
	system.WriteString("STRUCTURAL CONTEXT:\n")
	system.WriteString(scoped.Describe())
	system.WriteString("\nRULES:\n")
	system.WriteString("- Make targeted changes based on the structural context\n")
	system.WriteString("- Preserve existing imports, functions, classes and style\n")
	system.WriteString("- Do not add frameworks or technologies not present in the original\n")
	system.WriteString("- Return the complete modified file in a single fenced code block\n")
	user := fmt.Sprintf("Original file:\n```%s\n%s\n```\n\nRequest: %s", scoped.Language, originalContent, instruction)
	return system.String(), user
}
