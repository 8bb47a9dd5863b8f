package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spigell/interview-coach/internal/ai/gemini"
	"github.com/spigell/interview-coach/internal/ai/openai"
	"github.com/spigell/interview-coach/internal/interview"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewGeneratorWithoutKeyRunsOffline(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	for _, provider := range []string{"", "gemini", "openai"} {
		t.Run("provider="+provider, func(t *testing.T) {
			core, logs := observer.New(zap.WarnLevel)

			gen, err := newGenerator(context.Background(), &AIConfig{Provider: provider}, zap.New(core))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if gen != nil {
				t.Fatalf("expected no generator, got %T", gen)
			}
			if logs.FilterMessage("running without an ai backend").Len() != 1 {
				t.Fatalf("expected an offline warning, got %v", logs.All())
			}
		})
	}
}

func TestNewGeneratorOpenAIFromFile(t *testing.T) {
	keyFile := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(keyFile, []byte("sk-test\n"), 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}

	gen, err := newGenerator(context.Background(), &AIConfig{
		Provider: "OpenAI",
		OpenAI:   &OpenAIConfig{APIKeyFile: keyFile, BaseURL: "http://localhost:11434/v1"},
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen == nil {
		t.Fatal("expected a generator")
	}
}

func TestNewGeneratorUnknownProvider(t *testing.T) {
	if _, err := newGenerator(context.Background(), &AIConfig{Provider: "claude-local"}, zap.NewNop()); err == nil {
		t.Fatal("expected an error for unknown provider")
	}
}

func TestNewControllerPatternsFile(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "patterns.yaml")
	if err := os.WriteFile(valid, []byte("refuse:\n  - \"\\\\bpass\\\\b\"\n"), 0o600); err != nil {
		t.Fatalf("write patterns: %v", err)
	}

	controller, c, err := newController(&InterviewConfig{PatternsFile: valid, MaxFollowUpDepth: 3}, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if controller == nil || c == nil {
		t.Fatal("expected controller and coach")
	}
	if controller.MaxFollowUpDepth() != 3 {
		t.Fatalf("expected depth 3, got %d", controller.MaxFollowUpDepth())
	}

	session, err := interview.NewSession("sre", interview.ModeBrief, nil, []string{"How do you page on-call?", "What is an SLO?"})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	session, _, err = controller.Start(session)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	session, action, err := controller.HandleReply(context.Background(), session, "pass")
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if !session.Evaluations[0].SkippedDueToRefusal {
		t.Fatalf("expected the custom refusal pattern to skip, got %+v", session.Evaluations[0])
	}
	if q, ok := action.(interview.AskQuestion); !ok || q.Index != 1 {
		t.Fatalf("expected the next question, got %#v", action)
	}

	if _, _, err := newController(&InterviewConfig{PatternsFile: filepath.Join(dir, "missing.yaml")}, nil, zap.NewNop()); err == nil {
		t.Fatal("expected an error for a missing patterns file")
	}
}

func TestSelectModeConfigured(t *testing.T) {
	mode, err := selectMode(" Deep ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mode != interview.ModeDeep {
		t.Fatalf("expected deep, got %s", mode)
	}

	if _, err := selectMode("marathon"); err == nil {
		t.Fatal("expected an error for an unknown mode")
	}
}

func TestOpenArchiveDisabled(t *testing.T) {
	store, err := openArchive(&Config{})
	if err != nil || store != nil {
		t.Fatalf("expected disabled archive, got %v, %v", store, err)
	}
}

func TestModelDefaultsMatchClients(t *testing.T) {
	tests := map[string]string{
		"ai.gemini.model": gemini.DefaultModel,
		"ai.openai.model": openai.DefaultModel,
	}
	for key, want := range tests {
		if got := viper.GetString(key); got != want {
			t.Fatalf("%s: expected %q, got %q", key, want, got)
		}
	}
}
