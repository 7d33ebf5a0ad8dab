package nl2sql

import (
	"context"
	"errors"
	"fmt"
)

// Hint is shown next to translation failures from the language model.
const Hint = "check that the language model backend is running"

// ProviderSchema marks a failure to read the schema before the model was
// called.
const ProviderSchema = "schema"

const schemaHint = "check that the database is still reachable"

var ErrEmptySQL = errors.New("model returned empty SQL")

type Request struct {
	Dialect  string `json:"dialect"`
	Schema   string `json:"schema"`
	Question string `json:"question"`
}

type Result struct {
	SQL      string `json:"sql"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Prompt   string `json:"-"`
}

type Translator interface {
	Translate(ctx context.Context, req Request) (Result, error)
}

// TranslationError means no query was produced. Callers must not execute
// anything after it.
type TranslationError struct {
	Provider string
	Err      error
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("generate sql with %s: %v", e.Provider, e.Err)
}

func (e *TranslationError) Unwrap() error {
	return e.Err
}

func (e *TranslationError) Hint() string {
	if e.Provider == ProviderSchema {
		return schemaHint
	}
	return Hint
}
