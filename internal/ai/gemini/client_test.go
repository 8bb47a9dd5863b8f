package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/interview-coach/internal/ai"
)

type fakeChatCreator struct {
	mu    sync.Mutex
	calls []chatCallRecord
	queue map[string][]fakeChatResponse
}

type chatCallRecord struct {
	model  string
	config *genai.GenerateContentConfig
	chat   *fakeChat
}

type fakeChatResponse struct {
	resp *genai.GenerateContentResponse
	err  error
}

type fakeChat struct {
	mu       sync.Mutex
	response fakeChatResponse
	messages []string
}

func (f *fakeChat) SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, part := range parts {
		f.messages = append(f.messages, part.Text)
	}
	return f.response.resp, f.response.err
}

func newFakeChatCreator() *fakeChatCreator {
	return &fakeChatCreator{queue: make(map[string][]fakeChatResponse)}
}

func (f *fakeChatCreator) enqueue(model string, resp *genai.GenerateContentResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue[model] = append(f.queue[model], fakeChatResponse{resp: resp, err: err})
}

func (f *fakeChatCreator) Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	responses := f.queue[model]
	if len(responses) == 0 {
		return nil, errors.New("unexpected call")
	}
	res := responses[0]
	f.queue[model] = responses[1:]
	chat := &fakeChat{response: res}
	f.calls = append(f.calls, chatCallRecord{model: model, config: config, chat: chat})
	return chat, nil
}

func TestGeneratorRetriesOnTemporaryError(t *testing.T) {
	chats := newFakeChatCreator()
	tempErr := genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}
	chats.enqueue("gemini-pro", nil, tempErr)
	chats.enqueue("gemini-pro", &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: "retry ok"}}},
		}},
	}, nil)

	g := &Generator{
		chats:      chats,
		model:      "gemini-pro",
		maxRetries: 2,
		logger:     zap.NewNop(),
		wait:       noWait,
	}

	output, err := g.Generate(context.Background(), ai.Prompt("system", "message"), ai.Options{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if output != "retry ok" {
		t.Fatalf("unexpected output: %q", output)
	}

	if len(chats.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(chats.calls))
	}

	for _, call := range chats.calls {
		if call.config == nil || call.config.SystemInstruction == nil {
			t.Fatalf("expected system instruction to be set")
		}
		if got := call.config.SystemInstruction.Parts[0].Text; got != "system" {
			t.Fatalf("unexpected system instruction: %q", got)
		}
		if len(call.chat.messages) != 1 || call.chat.messages[0] != "message" {
			t.Fatalf("unexpected chat message: %+v", call.chat.messages)
		}
	}
}

func TestGeneratorStopsAfterRetriesExhausted(t *testing.T) {
	chats := newFakeChatCreator()
	tempErr := genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}
	chats.enqueue("gemini-pro", nil, tempErr)
	chats.enqueue("gemini-pro", nil, tempErr)

	g := &Generator{
		chats:      chats,
		model:      "gemini-pro",
		maxRetries: 2,
		logger:     zap.NewNop(),
		wait:       noWait,
	}

	_, err := g.Generate(context.Background(), ai.Prompt("sys", "msg"), ai.Options{})
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}

	if len(chats.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(chats.calls))
	}
}

func TestGeneratorDoesNotRetryOnLongQuotaDelay(t *testing.T) {
	chats := newFakeChatCreator()
	quotaErr := genai.APIError{
		Code:    http.StatusTooManyRequests,
		Status:  "RESOURCE_EXHAUSTED",
		Message: "quota exhausted, retry after 60 seconds",
	}
	chats.enqueue("gemini-pro", nil, quotaErr)

	g := &Generator{
		chats:      chats,
		model:      "gemini-pro",
		maxRetries: 3,
		logger:     zap.NewNop(),
	}

	_, err := g.Generate(context.Background(), ai.Prompt("sys", "msg"), ai.Options{})
	if err == nil {
		t.Fatal("expected error when quota delay too long")
	}

	if len(chats.calls) != 1 {
		t.Fatalf("expected single call, got %d", len(chats.calls))
	}
}

func noWait(context.Context, time.Duration) error { return nil }

func TestGeneratorRetryWaitHonoursCancellation(t *testing.T) {
	chats := newFakeChatCreator()
	tempErr := genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"}
	chats.enqueue("gemini-pro", nil, tempErr)

	g := &Generator{
		chats:      chats,
		model:      "gemini-pro",
		maxRetries: 3,
		logger:     zap.NewNop(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	start := time.Now()
	_, err := g.Generate(ctx, ai.Prompt("sys", "msg"), ai.Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
	if elapsed := time.Since(start); elapsed >= baseBackoff {
		t.Fatalf("retry wait ignored cancellation, took %s", elapsed)
	}
	if len(chats.calls) != 1 {
		t.Fatalf("expected a single call, got %d", len(chats.calls))
	}
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func TestGenerateSplitsSystemHistoryAndLastMessage(t *testing.T) {
	chats := newFakeChatCreator()
	chats.enqueue("gemini-pro", textResponse("  fine  "), nil)

	g := &Generator{
		chats:      chats,
		model:      "gemini-pro",
		maxRetries: 1,
		logger:     zap.NewNop(),
	}

	messages := []ai.Message{
		{Role: ai.RoleSystem, Content: "be an interviewer"},
		{Role: ai.RoleUser, Content: "first question"},
		{Role: ai.RoleAssistant, Content: "first answer"},
		{Role: ai.RoleUser, Content: "classify this"},
	}

	output, err := g.Generate(context.Background(), messages, ai.Options{MaxOutputTokens: 120, Temperature: 0.25})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output != "fine" {
		t.Fatalf("unexpected output: %q", output)
	}

	if len(chats.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(chats.calls))
	}

	call := chats.calls[0]
	if call.config.MaxOutputTokens != 120 {
		t.Fatalf("unexpected max output tokens: %d", call.config.MaxOutputTokens)
	}
	if call.config.Temperature == nil || *call.config.Temperature != 0.25 {
		t.Fatalf("unexpected temperature: %v", call.config.Temperature)
	}
	if got := call.config.SystemInstruction.Parts[0].Text; got != "be an interviewer" {
		t.Fatalf("unexpected system instruction: %q", got)
	}
	if len(call.chat.messages) != 1 || call.chat.messages[0] != "classify this" {
		t.Fatalf("unexpected chat message: %+v", call.chat.messages)
	}
}

func TestGenerateRejectsEmptyConversation(t *testing.T) {
	g := &Generator{
		chats:      newFakeChatCreator(),
		model:      "gemini-pro",
		maxRetries: 1,
		logger:     zap.NewNop(),
	}

	_, err := g.Generate(context.Background(), []ai.Message{{Role: ai.RoleSystem, Content: "sys"}}, ai.Options{})
	if err == nil {
		t.Fatal("expected error for conversation without user message")
	}
}

func TestGenerateFailsOnEmptyResponse(t *testing.T) {
	chats := newFakeChatCreator()
	chats.enqueue("gemini-pro", &genai.GenerateContentResponse{}, nil)

	g := &Generator{
		chats:      chats,
		model:      "gemini-pro",
		maxRetries: 3,
		logger:     zap.NewNop(),
	}

	if _, err := g.Generate(context.Background(), ai.Prompt("sys", "msg"), ai.Options{}); err == nil {
		t.Fatal("expected error for empty response")
	}

	if len(chats.calls) != 1 {
		t.Fatalf("empty responses must not be retried, got %d calls", len(chats.calls))
	}
}

func TestParseRetryAfter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		message string
		want    time.Duration
		ok      bool
	}{
		{"quota exhausted, retry after 60 seconds", 60 * time.Second, true},
		{"Please retry in 2.5s", 2500 * time.Millisecond, true},
		{"quota exhausted", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			t.Parallel()
			got, ok := parseRetryAfter(tt.message)
			if ok != tt.ok || got != tt.want {
				t.Fatalf("expected (%v, %v), got (%v, %v)", tt.want, tt.ok, got, ok)
			}
		})
	}
}
