package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/onirworld/legalassist/internal/config"
	"github.com/onirworld/legalassist/internal/models"
)

// maxHistoryTurns bounds how much prior conversation goes into the prompt.
const maxHistoryTurns = 5

// ErrNoAnswer is returned when the model produced no completion choices.
var ErrNoAnswer = errors.New("model returned no answer")

// Searcher runs a similarity query against a named collection.
type Searcher interface {
	Search(ctx context.Context, collection string, vector []float32, limit int) ([]Document, error)
}

// Pipeline embeds a question, retrieves matching legal chunks and asks the
// model for a grounded answer. Calls block and are expected to run inside the
// chat worker pool.
type Pipeline struct {
	llm      *openai.Client
	searcher Searcher
	cfg      config.Retrieval
}

// New builds a pipeline from the retrieval settings. The LLM client points at
// an OpenAI-compatible endpoint, so a custom base URL selects the provider.
func New(cfg config.Retrieval, searcher Searcher) *Pipeline {
	llmConfig := openai.DefaultConfig(cfg.LLMAPIKey)
	if cfg.LLMBaseURL != "" {
		llmConfig.BaseURL = cfg.LLMBaseURL
	}
	return &Pipeline{
		llm:      openai.NewClientWithConfig(llmConfig),
		searcher: searcher,
		cfg:      cfg,
	}
}

// collection maps a request language to its document collection.
func (p *Pipeline) collection(language string) string {
	if language == "italian" || language == "it" {
		return p.cfg.CollectionItalian
	}
	return p.cfg.CollectionEnglish
}

// Search embeds the query and returns up to the configured number of scored
// chunks for the language's collection.
func (p *Pipeline) Search(ctx context.Context, query, language string) ([]Document, error) {
	const op = "retrieval.Search"

	// the embedding model expects queries prefixed this way
	resp, err := p.llm.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(p.cfg.EmbeddingModel),
		Input: []string{"query: " + strings.TrimSpace(query)},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%s: empty embedding response", op)
	}

	docs, err := p.searcher.Search(ctx, p.collection(language), resp.Data[0].Embedding, p.cfg.SearchLimit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return docs, nil
}

// Answer asks the model for a response grounded in the retrieved documents
// and the recent conversation history.
func (p *Pipeline) Answer(ctx context.Context, question string, docs []Document, history []models.ChatTurn, language string) (string, error) {
	const op = "retrieval.Answer"

	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt(language) + "\n\nLegal Context:\n" + formatDocs(docs),
		},
	}
	start := 0
	if len(history) > maxHistoryTurns*2 {
		start = len(history) - maxHistoryTurns*2
	}
	for _, turn := range history[start:] {
		role := openai.ChatMessageRoleUser
		if turn.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: turn.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: question,
	})

	resp, err := p.llm.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.cfg.LLMModel,
		Messages:    messages,
		Temperature: 0.1,
		MaxTokens:   2048,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: %w", op, ErrNoAnswer)
	}
	return resp.Choices[0].Message.Content, nil
}

// formatDocs renders the retrieved chunks with their source metadata for the
// prompt context block.
func formatDocs(docs []Document) string {
	if len(docs) == 0 {
		return "No relevant legal documents found."
	}

	var b strings.Builder
	for i, doc := range docs {
		fmt.Fprintf(&b, "Document %d:\n%s\n", i+1, doc.Text)

		if name, ok := doc.Metadata["law_name"].(string); ok && name != "" {
			fmt.Fprintf(&b, "Italian Law: %s\n", name)
		}
		if name, ok := doc.Metadata["english_law_name"].(string); ok && name != "" {
			fmt.Fprintf(&b, "English Law: %s\n", name)
		}
		if article, ok := doc.Metadata["article_number"].(string); ok && article != "" {
			fmt.Fprintf(&b, "Article: %s", article)
			if title, ok := doc.Metadata["article_title"].(string); ok && title != "" {
				fmt.Fprintf(&b, ": %s", title)
			}
			b.WriteString("\n")
		}
		if url, ok := doc.Metadata["source_url"].(string); ok && url != "" {
			fmt.Fprintf(&b, "Source URL: %s\n", url)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
