package services

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/LexAiTools/proofofconcept-sub001/config"
	"github.com/LexAiTools/proofofconcept-sub001/models"
)

// CompletionErrorKind classifies upstream failures so the handler can map
// them to distinct HTTP statuses without comparing raw codes.
type CompletionErrorKind int

const (
	KindUpstream CompletionErrorKind = iota
	KindRateLimited
	KindQuotaExhausted
)

// CompletionError is a failed chat-completion request, classified by kind
// and carrying the upstream status.
type CompletionError struct {
	Kind   CompletionErrorKind
	Status int
}

func (e *CompletionError) Error() string {
	switch e.Kind {
	case KindRateLimited:
		return fmt.Sprintf("completion rate limited (status %d)", e.Status)
	case KindQuotaExhausted:
		return fmt.Sprintf("completion quota exhausted (status %d)", e.Status)
	default:
		return fmt.Sprintf("completion upstream failure (status %d)", e.Status)
	}
}

// CompletionGateway issues streaming chat-completion requests against an
// OpenAI-compatible endpoint. The credential stays server-side; the
// client and endpoint come from config so tests can point it at a fake.
type CompletionGateway struct {
	client      *resty.Client
	baseURL     string
	apiKey      string
	model       string
	temperature float32
}

func NewCompletionGateway(cfg config.Config) *CompletionGateway {
	return &CompletionGateway{
		client:      resty.New(),
		baseURL:     strings.TrimRight(cfg.OpenAIBaseURL, "/"),
		apiKey:      cfg.OpenAIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}
}

// StreamCompletion opens one streaming completion request. A non-2xx
// response is classified and returned as *CompletionError before any
// delta is produced. The returned stream is finite and not restartable;
// the caller must Close it.
func (g *CompletionGateway) StreamCompletion(ctx context.Context, segments []models.PromptSegment) (*CompletionStream, error) {
	if g.apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}

	requestBody := map[string]interface{}{
		"model":       g.model,
		"messages":    segments,
		"stream":      true,
		"temperature": g.temperature,
	}

	resp, err := g.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetHeader("Authorization", "Bearer "+g.apiKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "text/event-stream").
		SetBody(requestBody).
		Post(g.baseURL + "/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("completion request failed: %w", err)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return nil, classifyFailure(resp)
	}

	scanner := bufio.NewScanner(resp.RawBody())
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	return &CompletionStream{body: resp.RawBody(), scanner: scanner}, nil
}

func classifyFailure(resp *resty.Response) *CompletionError {
	body, _ := io.ReadAll(io.LimitReader(resp.RawBody(), 4*1024))
	resp.RawBody().Close()

	status := resp.StatusCode()
	switch {
	case status == 429 && strings.Contains(string(body), "insufficient_quota"):
		return &CompletionError{Kind: KindQuotaExhausted, Status: status}
	case status == 429:
		return &CompletionError{Kind: KindRateLimited, Status: status}
	case status == 402:
		return &CompletionError{Kind: KindQuotaExhausted, Status: status}
	default:
		return &CompletionError{Kind: KindUpstream, Status: status}
	}
}

// CompletionStream yields the incremental text deltas of one streamed
// completion. Recv returns io.EOF when the upstream signals completion;
// there is no terminal sentinel value.
type CompletionStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

type completionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Recv returns the next non-empty text delta. Records that fail to parse
// are skipped, never aborting the stream. A transport error mid-stream is
// returned as-is; the caller treats it as truncation.
func (s *CompletionStream) Recv() (string, error) {
	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			return "", io.EOF
		}

		var chunk completionChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		return chunk.Choices[0].Delta.Content, nil
	}

	if err := s.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// Close releases the upstream body. Safe to call more than once.
func (s *CompletionStream) Close() error {
	return s.body.Close()
}
