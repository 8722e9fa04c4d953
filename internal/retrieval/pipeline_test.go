package retrieval

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onirworld/legalassist/internal/config"
	"github.com/onirworld/legalassist/internal/models"
)

type stubSearcher struct {
	gotCollection string
	gotVector     []float32
	gotLimit      int
	docs          []Document
	err           error
}

func (s *stubSearcher) Search(_ context.Context, collection string, vector []float32, limit int) ([]Document, error) {
	s.gotCollection = collection
	s.gotVector = vector
	s.gotLimit = limit
	return s.docs, s.err
}

// newLLMServer fakes the OpenAI-compatible API surface the pipeline uses.
func newLLMServer(t *testing.T, onChat func(messages []map[string]string)) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/embeddings":
			w.Write([]byte(`{"data":[{"embedding":[0.1,0.2,0.3]}]}`))
		case "/chat/completions":
			if onChat != nil {
				var req struct {
					Messages []map[string]string `json:"messages"`
				}
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				onChat(req.Messages)
			}
			w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"A contract is an agreement."}}]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
}

func testConfig(baseURL string) config.Retrieval {
	return config.Retrieval{
		LLMAPIKey:         "test-key",
		LLMBaseURL:        baseURL,
		LLMModel:          "llama-3.3-70b-versatile",
		EmbeddingModel:    "intfloat/multilingual-e5-base",
		SearchLimit:       5,
		CollectionEnglish: "law_chunks",
		CollectionItalian: "law_chunks_it",
	}
}

func TestPipeline_Search(t *testing.T) {
	server := newLLMServer(t, nil)
	defer server.Close()

	searcher := &stubSearcher{docs: []Document{{Text: "chunk", Score: 0.9}}}
	pipeline := New(testConfig(server.URL), searcher)

	docs, err := pipeline.Search(context.Background(), "what is a contract", "english")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "law_chunks", searcher.gotCollection)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, searcher.gotVector)
	assert.Equal(t, 5, searcher.gotLimit)
}

func TestPipeline_SearchItalianCollection(t *testing.T) {
	server := newLLMServer(t, nil)
	defer server.Close()

	searcher := &stubSearcher{}
	pipeline := New(testConfig(server.URL), searcher)

	_, err := pipeline.Search(context.Background(), "cos'e un contratto", "italian")
	require.NoError(t, err)
	assert.Equal(t, "law_chunks_it", searcher.gotCollection)
}

func TestPipeline_Answer(t *testing.T) {
	var gotMessages []map[string]string
	server := newLLMServer(t, func(messages []map[string]string) {
		gotMessages = messages
	})
	defer server.Close()

	pipeline := New(testConfig(server.URL), &stubSearcher{})

	docs := []Document{{
		Text: "Article 1321: a contract is an agreement.",
		Metadata: map[string]any{
			"law_name":   "Codice Civile",
			"source_url": "https://example.com/cc/1321",
		},
	}}
	history := []models.ChatTurn{
		{Role: "user", Content: "Hello"},
		{Role: "assistant", Content: "Hello, how can I help?"},
	}

	answer, err := pipeline.Answer(context.Background(), "What is a contract?", docs, history, "english")
	require.NoError(t, err)
	assert.Equal(t, "A contract is an agreement.", answer)

	// system prompt + two history turns + the question
	require.Len(t, gotMessages, 4)
	assert.Equal(t, "system", gotMessages[0]["role"])
	assert.Contains(t, gotMessages[0]["content"], "Article 1321")
	assert.Contains(t, gotMessages[0]["content"], "Codice Civile")
	assert.Equal(t, "user", gotMessages[1]["role"])
	assert.Equal(t, "assistant", gotMessages[2]["role"])
	assert.Equal(t, "What is a contract?", gotMessages[3]["content"])
}

func TestPipeline_AnswerTruncatesHistory(t *testing.T) {
	var gotMessages []map[string]string
	server := newLLMServer(t, func(messages []map[string]string) {
		gotMessages = messages
	})
	defer server.Close()

	pipeline := New(testConfig(server.URL), &stubSearcher{})

	var history []models.ChatTurn
	for range 8 {
		history = append(history,
			models.ChatTurn{Role: "user", Content: "q"},
			models.ChatTurn{Role: "assistant", Content: "a"})
	}

	_, err := pipeline.Answer(context.Background(), "final question", nil, history, "english")
	require.NoError(t, err)

	// system + last five exchanges + the question
	assert.Len(t, gotMessages, 1+maxHistoryTurns*2+1)
}

func TestFormatDocsEmpty(t *testing.T) {
	assert.Equal(t, "No relevant legal documents found.", formatDocs(nil))
}
