package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spigell/interview-coach/internal/ai"
	"github.com/spigell/interview-coach/internal/ai/gemini"
	"github.com/spigell/interview-coach/internal/ai/openai"
	"github.com/spigell/interview-coach/internal/archive"
	"github.com/spigell/interview-coach/internal/classify"
	"github.com/spigell/interview-coach/internal/coach"
	"github.com/spigell/interview-coach/internal/evaluate"
	"github.com/spigell/interview-coach/internal/interview"
	"github.com/spigell/interview-coach/internal/secrets"

	"go.uber.org/zap"
)

// newGenerator builds the configured text generator. A nil generator with a
// nil error means no backend is configured and the interview runs on
// heuristics and fallback texts.
func newGenerator(ctx context.Context, cfg *AIConfig, log *zap.Logger) (ai.Generator, error) {
	if cfg == nil {
		return nil, nil
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	switch provider {
	case "", "gemini":
		if cfg.Gemini == nil {
			cfg.Gemini = &GeminiConfig{}
		}
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "gemini api key",
			Value: cfg.Gemini.APIKey,
			File:  cfg.Gemini.APIKeyFile,
			Env:   "GEMINI_API_KEY",
		})
		if err != nil {
			log.Warn("running without an ai backend",
				zap.Error(err),
				zap.String("hint", "set ai.gemini.api-key-file or GEMINI_API_KEY_FILE"),
			)
			return nil, nil
		}

		genLogger := log.With(zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries))

		gen, err := gemini.NewGenerator(ctx, gemini.Config{
			APIKey:       apiKey,
			Model:        cfg.Gemini.Model,
			MaxRetries:   cfg.Gemini.MaxRetries,
			MaxLogLength: cfg.Gemini.MaxLogLength,
		}, genLogger)
		if err != nil {
			return nil, err
		}
		return gen, nil
	case "openai":
		if cfg.OpenAI == nil {
			cfg.OpenAI = &OpenAIConfig{}
		}
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "openai api key",
			Value: cfg.OpenAI.APIKey,
			File:  cfg.OpenAI.APIKeyFile,
			Env:   "OPENAI_API_KEY",
		})
		if err != nil {
			log.Warn("running without an ai backend",
				zap.Error(err),
				zap.String("hint", "set ai.openai.api-key-file or OPENAI_API_KEY_FILE"),
			)
			return nil, nil
		}

		genLogger := log.With(zap.Int("ai_retry_attempts", cfg.OpenAI.MaxRetries))

		client, err := openai.New(openai.Config{
			APIKey:       apiKey,
			BaseURL:      cfg.OpenAI.BaseURL,
			Model:        cfg.OpenAI.Model,
			MaxRetries:   cfg.OpenAI.MaxRetries,
			MaxLogLength: cfg.OpenAI.MaxLogLength,
		}, genLogger)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
}

// newController wires classifiers, the evaluator and the coach around gen.
func newController(cfg *InterviewConfig, gen ai.Generator, log *zap.Logger) (*interview.Controller, *coach.Coach, error) {
	if cfg == nil {
		cfg = &InterviewConfig{}
	}

	patterns := classify.DefaultPatterns()
	if cfg.PatternsFile != "" {
		loaded, err := classify.LoadPatterns(cfg.PatternsFile)
		if err != nil {
			return nil, nil, fmt.Errorf("loading patterns: %w", err)
		}
		patterns = loaded
		log.Info("loaded pattern tables", zap.String("file", cfg.PatternsFile))
	}

	heuristics := classify.NewHeuristics(patterns)
	relation := classify.NewRelationClassifier(classify.RelationConfig{
		Patterns:  patterns,
		Threshold: cfg.OverlapThreshold,
		Generator: gen,
		Logger:    log.Named("relation"),
	})
	evaluator := evaluate.New(evaluate.Config{
		Generator:  gen,
		Heuristics: heuristics,
		Logger:     log.Named("evaluator"),
	})
	c := coach.New(gen, log.Named("coach"))

	controller := interview.NewController(
		interview.Config{MaxFollowUpDepth: cfg.MaxFollowUpDepth},
		interview.Deps{
			Intent:       heuristics,
			Relation:     relation,
			Evaluator:    evaluator,
			Collaborator: c,
			Logger:       log.Named("controller"),
		},
	)

	return controller, c, nil
}

// openArchive opens the archive when a path is configured. It returns nil
// when archival is disabled.
func openArchive(config *Config) (*archive.Store, error) {
	if config.Archive == nil || strings.TrimSpace(config.Archive.Path) == "" {
		return nil, nil
	}
	return archive.Open(config.Archive.Path)
}
