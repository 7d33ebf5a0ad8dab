package nl2sql

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/askdb/askdb/internal/observability"
)

const (
	ProviderOllama      = "ollama"
	DefaultOllamaModel  = "gemma3:4b"
	defaultModelTimeout = 2 * time.Minute
)

type OllamaConfig struct {
	ServerURL   string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// LLMTranslator drives any langchaingo model with a single rendered prompt.
type LLMTranslator struct {
	llm         llms.Model
	provider    string
	model       string
	temperature float64
	logger      *slog.Logger
}

func NewLLMTranslator(llm llms.Model, provider, model string, temperature float64, logger *slog.Logger) (*LLMTranslator, error) {
	if llm == nil {
		return nil, fmt.Errorf("language model is required")
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &LLMTranslator{
		llm:         llm,
		provider:    provider,
		model:       model,
		temperature: temperature,
		logger:      logger,
	}, nil
}

func NewOllamaTranslator(cfg OllamaConfig, logger *slog.Logger) (*LLMTranslator, error) {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultOllamaModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultModelTimeout
	}

	opts := []ollama.Option{
		ollama.WithModel(model),
		ollama.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if serverURL := strings.TrimSpace(cfg.ServerURL); serverURL != "" {
		// ollama.WithServerURL exits the process on a bad URL.
		if _, err := url.ParseRequestURI(serverURL); err != nil {
			return nil, fmt.Errorf("invalid ollama server URL %q: %w", serverURL, err)
		}
		opts = append(opts, ollama.WithServerURL(serverURL))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}
	return NewLLMTranslator(llm, ProviderOllama, model, cfg.Temperature, logger)
}

func (t *LLMTranslator) Translate(ctx context.Context, req Request) (Result, error) {
	prompt, err := BuildPrompt(req)
	if err != nil {
		return Result{}, &TranslationError{Provider: t.provider, Err: err}
	}

	start := time.Now()
	completion, err := llms.GenerateFromSinglePrompt(ctx, t.llm, prompt, llms.WithTemperature(t.temperature))
	elapsed := time.Since(start)
	if err == nil && CleanSQL(completion) == "" {
		err = ErrEmptySQL
	}
	observability.ObserveTranslation(t.provider, elapsed, err)
	if err != nil {
		t.logger.Warn("sql generation failed",
			slog.String("provider", t.provider),
			slog.String("model", t.model),
			slog.String("error", err.Error()),
		)
		return Result{}, &TranslationError{Provider: t.provider, Err: err}
	}

	t.logger.Debug("sql generated",
		slog.String("provider", t.provider),
		slog.String("model", t.model),
		slog.Duration("elapsed", elapsed),
	)
	return Result{
		SQL:      CleanSQL(completion),
		Provider: t.provider,
		Model:    t.model,
		Prompt:   prompt,
	}, nil
}
