package nl2sql

import (
	"fmt"
	"log/slog"

	"github.com/askdb/askdb/internal/config"
)

// New builds the translator selected by configuration.
func New(cfg config.AIConfig, logger *slog.Logger) (Translator, error) {
	switch cfg.Provider {
	case ProviderOllama, "":
		return NewOllamaTranslator(OllamaConfig{
			ServerURL:   cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger)
	case ProviderOpenAI:
		return NewOpenAITranslator(OpenAIConfig{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger)
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", cfg.Provider)
	}
}
