package advisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"signal-gateway/internal/domain"

	"github.com/openai/openai-go"
	"go.opentelemetry.io/otel/trace"
)

func newTestGateway(llm LLMClient, timeout time.Duration) *Gateway {
	return NewGateway(
		trace.NewNoopTracerProvider().Tracer("test"),
		llm,
		GatewayConfig{Model: "gpt-4o-mini", Timeout: timeout, Temperature: 0.2},
	)
}

func TestCompleteHappyPath(t *testing.T) {
	llm := &stubLLMClient{
		response: &openai.ChatCompletion{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: `{"signal":"buy","explanation":"x"}`}},
			},
		},
	}
	gw := newTestGateway(llm, time.Second)

	reply, err := gw.Complete(context.Background(), "analyze")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != `{"signal":"buy","explanation":"x"}` {
		t.Fatalf("unexpected reply %q", reply)
	}
	if llm.calls != 1 {
		t.Fatalf("expected a single attempt, got %d", llm.calls)
	}
	if llm.params.Model != "gpt-4o-mini" {
		t.Fatalf("expected model gpt-4o-mini, got %s", llm.params.Model)
	}
	if len(llm.params.Messages) != 1 {
		t.Fatalf("expected one user message, got %d", len(llm.params.Messages))
	}
	if llm.params.ResponseFormat.OfJSONObject == nil {
		t.Fatal("expected json_object response format")
	}
}

func TestCompleteLLMErrorIsGatewayError(t *testing.T) {
	llm := &stubLLMClient{err: errors.New("api down")}
	gw := newTestGateway(llm, time.Second)

	_, err := gw.Complete(context.Background(), "analyze")
	var gerr *domain.GatewayError
	if !errors.As(err, &gerr) {
		t.Fatalf("expected GatewayError, got %v", err)
	}
	if llm.calls != 1 {
		t.Fatalf("gateway must not retry, got %d calls", llm.calls)
	}
}

func TestCompleteTimeoutCancelsCall(t *testing.T) {
	llm := &stubLLMClient{block: true}
	gw := newTestGateway(llm, 20*time.Millisecond)

	start := time.Now()
	_, err := gw.Complete(context.Background(), "analyze")
	var gerr *domain.GatewayError
	if !errors.As(err, &gerr) {
		t.Fatalf("expected GatewayError, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("timeout was not enforced")
	}
}

func TestCompleteEmptyChoices(t *testing.T) {
	gw := newTestGateway(&stubLLMClient{response: &openai.ChatCompletion{}}, time.Second)
	_, err := gw.Complete(context.Background(), "analyze")
	var gerr *domain.GatewayError
	if !errors.As(err, &gerr) {
		t.Fatalf("expected GatewayError, got %v", err)
	}
}

func TestCompleteWithoutClientFailsClosed(t *testing.T) {
	gw := newTestGateway(nil, time.Second)
	_, err := gw.Complete(context.Background(), "analyze")
	var gerr *domain.GatewayError
	if !errors.As(err, &gerr) {
		t.Fatalf("expected GatewayError, got %v", err)
	}
}

func TestNewGatewayDefaults(t *testing.T) {
	gw := NewGateway(trace.NewNoopTracerProvider().Tracer("test"), nil, GatewayConfig{})
	if gw.cfg.Timeout != 10*time.Second {
		t.Fatalf("expected default timeout 10s, got %s", gw.cfg.Timeout)
	}
	if gw.cfg.MaxTokens != 300 {
		t.Fatalf("expected default max tokens 300, got %d", gw.cfg.MaxTokens)
	}
	if gw.cfg.Model == "" {
		t.Fatal("expected default model")
	}
}

// --- stubs ---

type stubLLMClient struct {
	response *openai.ChatCompletion
	err      error
	block    bool
	calls    int
	params   openai.ChatCompletionNewParams
}

func (s *stubLLMClient) CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	s.calls++
	s.params = params
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.response, s.err
}
