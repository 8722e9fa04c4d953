package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// scoreThreshold filters out weakly related chunks on the vector store side.
const scoreThreshold = 0.3

// Document is a retrieved legal text chunk with its payload metadata.
type Document struct {
	Text     string
	Score    float64
	Metadata map[string]any
}

// QdrantClient searches collections over the vector store's REST API.
type QdrantClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewQdrantClient returns a client for the given vector store endpoint.
func NewQdrantClient(baseURL, apiKey string) *QdrantClient {
	return &QdrantClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type searchRequest struct {
	Vector         []float32 `json:"vector"`
	Limit          int       `json:"limit"`
	ScoreThreshold float64   `json:"score_threshold"`
	WithPayload    bool      `json:"with_payload"`
}

type searchResponse struct {
	Result []struct {
		Score   float64        `json:"score"`
		Payload map[string]any `json:"payload"`
	} `json:"result"`
	Status string `json:"status"`
}

// Search runs a similarity query against a collection and returns scored
// chunks, best first. Points without usable text content are skipped.
func (c *QdrantClient) Search(ctx context.Context, collection string, vector []float32, limit int) ([]Document, error) {
	body, err := json.Marshal(searchRequest{
		Vector:         vector,
		Limit:          limit,
		ScoreThreshold: scoreThreshold,
		WithPayload:    true,
	})
	if err != nil {
		return nil, err
	}

	url := c.baseURL + "/collections/" + collection + "/points/search"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("vector store: unexpected status " + resp.Status)
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(result.Result))
	for _, point := range result.Result {
		text := extractText(point.Payload)
		if text == "" {
			continue
		}
		metadata := make(map[string]any, len(point.Payload))
		for k, v := range point.Payload {
			if k == "chunk" {
				continue
			}
			metadata[k] = v
		}
		docs = append(docs, Document{
			Text:     text,
			Score:    point.Score,
			Metadata: metadata,
		})
	}
	return docs, nil
}

// extractText pulls the chunk body out of a payload, falling back to the
// alternative field names older ingestion runs used.
func extractText(payload map[string]any) string {
	for _, key := range []string{"chunk", "text", "content", "page_content"} {
		if val, ok := payload[key].(string); ok && val != "" {
			return val
		}
	}
	return ""
}
