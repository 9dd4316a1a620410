package contracts

import (
	"context"

	analyzer_models "github.com/nanunh/genstack/code_analyzer/models"
	"github.com/nanunh/genstack/providers/models"
)

// IGenerationOracle produces replacement code for a scoped modification. Its
// output is untrusted text that may be wrapped in markdown fences.
type IGenerationOracle interface {
	Generate(ctx context.Context, originalContent string, scoped analyzer_models.ScopedContext, instruction string) (string, error)
}

// IChatAIProvider streams a chat completion.
type IChatAIProvider interface {
	ChatCompletionRequest(ctx context.Context, userInput string, prompt string) <-chan models.StreamResponse
}
