package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LexAiTools/proofofconcept-sub001/config"
	"github.com/LexAiTools/proofofconcept-sub001/models"
)

func gatewayFor(t *testing.T, upstream *httptest.Server) *CompletionGateway {
	t.Helper()
	return NewCompletionGateway(config.Config{
		OpenAIBaseURL: upstream.URL,
		OpenAIKey:     "test-key",
		Model:         "test-model",
		Temperature:   0.7,
	})
}

func deltaChunk(text string) string {
	return fmt.Sprintf(`data: {"choices":[{"delta":{"content":%q}}]}`+"\n\n", text)
}

func sseUpstream(t *testing.T, lines ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, line := range lines {
			fmt.Fprint(w, line)
			flusher.Flush()
		}
	}))
}

func collectDeltas(t *testing.T, stream *CompletionStream) []string {
	t.Helper()
	var deltas []string
	for {
		delta, err := stream.Recv()
		if err == io.EOF {
			return deltas
		}
		require.NoError(t, err)
		deltas = append(deltas, delta)
	}
}

func TestStreamCompletion_RelaysDeltasInOrder(t *testing.T) {
	t.Parallel()

	upstream := sseUpstream(t,
		deltaChunk("Hel"),
		deltaChunk("lo"),
		deltaChunk("!"),
		"data: [DONE]\n\n",
	)
	defer upstream.Close()

	stream, err := gatewayFor(t, upstream).StreamCompletion(context.Background(), []models.PromptSegment{
		{Role: models.RoleUser, Content: "hi"},
	})
	require.NoError(t, err)
	defer stream.Close()

	assert.Equal(t, []string{"Hel", "lo", "!"}, collectDeltas(t, stream))
}

func TestStreamCompletion_SkipsMalformedRecords(t *testing.T) {
	t.Parallel()

	upstream := sseUpstream(t,
		deltaChunk("a"),
		"data: {not valid json\n\n",
		deltaChunk("b"),
		deltaChunk("c"),
		"data: [DONE]\n\n",
	)
	defer upstream.Close()

	stream, err := gatewayFor(t, upstream).StreamCompletion(context.Background(), nil)
	require.NoError(t, err)
	defer stream.Close()

	assert.Equal(t, []string{"a", "b", "c"}, collectDeltas(t, stream))
}

func TestStreamCompletion_SkipsEmptyDeltas(t *testing.T) {
	t.Parallel()

	upstream := sseUpstream(t,
		`data: {"choices":[{"delta":{"role":"assistant"}}]}`+"\n\n",
		`data: {"choices":[]}`+"\n\n",
		deltaChunk("text"),
		"data: [DONE]\n\n",
	)
	defer upstream.Close()

	stream, err := gatewayFor(t, upstream).StreamCompletion(context.Background(), nil)
	require.NoError(t, err)
	defer stream.Close()

	assert.Equal(t, []string{"text"}, collectDeltas(t, stream))
}

func TestStreamCompletion_EOFWithoutDoneEndsStream(t *testing.T) {
	t.Parallel()

	upstream := sseUpstream(t, deltaChunk("partial"))
	defer upstream.Close()

	stream, err := gatewayFor(t, upstream).StreamCompletion(context.Background(), nil)
	require.NoError(t, err)
	defer stream.Close()

	delta, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "partial", delta)

	_, err = stream.Recv()
	assert.Equal(t, io.EOF, err)
}

func TestStreamCompletion_ClassifiesFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		status     int
		body       string
		wantKind   CompletionErrorKind
		wantStatus int
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":{"code":"rate_limit_exceeded"}}`, KindRateLimited, 429},
		{"quota via 429 body", http.StatusTooManyRequests, `{"error":{"code":"insufficient_quota"}}`, KindQuotaExhausted, 429},
		{"quota via 402", http.StatusPaymentRequired, `{"error":"credits exhausted"}`, KindQuotaExhausted, 402},
		{"generic upstream", http.StatusBadGateway, "bad gateway", KindUpstream, 502},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer upstream.Close()

			_, err := gatewayFor(t, upstream).StreamCompletion(context.Background(), nil)
			require.Error(t, err)

			var ce *CompletionError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.wantKind, ce.Kind)
			assert.Equal(t, tt.wantStatus, ce.Status)
		})
	}
}

func TestStreamCompletion_MissingKey(t *testing.T) {
	t.Parallel()

	gateway := NewCompletionGateway(config.Config{OpenAIBaseURL: "http://localhost:0"})
	_, err := gateway.StreamCompletion(context.Background(), nil)
	assert.Error(t, err)
}

func TestStreamCompletion_SendsPromptAndCredential(t *testing.T) {
	t.Parallel()

	var gotAuth string
	var gotBody []byte
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer upstream.Close()

	stream, err := gatewayFor(t, upstream).StreamCompletion(context.Background(), []models.PromptSegment{
		{Role: models.RoleSystem, Content: "instructions"},
		{Role: models.RoleUser, Content: "question"},
	})
	require.NoError(t, err)
	defer stream.Close()

	_, err = stream.Recv()
	assert.Equal(t, io.EOF, err)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Contains(t, string(gotBody), `"stream":true`)
	assert.Contains(t, string(gotBody), `"model":"test-model"`)
	assert.Contains(t, string(gotBody), "instructions")
	assert.Contains(t, string(gotBody), "question")
}
